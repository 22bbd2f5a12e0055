package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	appconfig "po-reconciliation-service/cmd/poreconciler/config"
)

var (
	syncOrder  string
	syncStatus bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the local mirror of external order lines",
	Long: `Sync fetches purchase order lines from the procurement system and stores
them locally so that report runs can work entirely offline. Without flags it
syncs every transmitted order; failures on individual orders are counted and
do not stop the run.

Examples:
  poreconciler sync
  poreconciler sync --order PO-1042
  poreconciler sync --status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		handler := NewCLIErrorHandler()
		if err := runSync(cmd.Context()); err != nil {
			os.Exit(handler.HandleError(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncOrder, "order", "", "sync a single order by number or ID")
	syncCmd.Flags().BoolVar(&syncStatus, "status", false, "show mirror freshness instead of syncing")
}

func runSync(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, appconfig.CommandTimeout)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if syncStatus {
		status, err := a.syncer.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Mirror status: %d orders (%d cached, %d stale, %d never synced)\n",
			status.Total, status.Cached, status.Stale, status.Missing)
		return nil
	}

	if syncOrder != "" {
		order, err := a.store.OrderByNumber(ctx, syncOrder)
		if err != nil {
			order, err = a.store.Order(ctx, syncOrder)
			if err != nil {
				return err
			}
		}
		if err := a.syncer.SyncOrder(ctx, order); err != nil {
			return err
		}
		fmt.Printf("Synced %s\n", order.Number)
		return nil
	}

	result, err := a.syncer.SyncAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Synced %d of %d orders (%d failed) in %s\n",
		result.Synced, result.Total, result.Failed, result.Duration.Round(time.Millisecond))
	return nil
}
