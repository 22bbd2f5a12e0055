package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"po-reconciliation-service/internal/server"
	"po-reconciliation-service/internal/syncer"
)

var (
	serveAddr     string
	serveSchedule string
	serveNoSync   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reconciliation HTTP server",
	Long: `Serve exposes reconciliation over HTTP: per-order comparisons, the
portfolio report, and sync control. A background scheduler keeps the line
mirror fresh; disable it with --no-sync when another process owns syncing.

Examples:
  poreconciler serve
  poreconciler serve --addr :9090 --schedule "0 */2 * * *"
  poreconciler serve --no-sync`,
	RunE: func(cmd *cobra.Command, args []string) error {
		handler := NewCLIErrorHandler()
		if err := runServe(cmd.Context()); err != nil {
			os.Exit(handler.HandleError(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveSchedule, "schedule", "", "cron schedule for background syncs (default from config)")
	serveCmd.Flags().BoolVar(&serveNoSync, "no-sync", false, "disable the background sync scheduler")
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	serverConfig := a.config.Server
	if serveAddr != "" {
		serverConfig.Addr = serveAddr
	}

	if !serveNoSync {
		schedule := a.config.SyncSchedule
		if serveSchedule != "" {
			schedule = serveSchedule
		}
		scheduler := syncer.NewScheduler(a.syncer, a.logger)
		if err := scheduler.Start(ctx, schedule); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	srv := server.New(serverConfig, a.store, a.service, a.generator, a.syncer, a.logger)
	return srv.ListenAndServe(ctx)
}
