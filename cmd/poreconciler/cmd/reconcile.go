package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	appconfig "po-reconciliation-service/cmd/poreconciler/config"
	"po-reconciliation-service/internal/comparer"
	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/internal/parsers"
	"po-reconciliation-service/internal/report"
	"po-reconciliation-service/pkg/errors"
	"po-reconciliation-service/pkg/logger"
)

var (
	reconcileOrder       string
	reconcileLocalFile   string
	reconcileRemoteFile  string
	reconcileInvoiceFile string
	reconcileFormat      string
	reconcileOutput      string
	reconcileRefresh     bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile one purchase order's lines",
	Long: `Reconcile compares local requisition lines against the external procurement
system's purchase order lines and posted invoices, classifying every line as
unchanged, modified, added, or removed.

Two modes are supported. With --order, lines are loaded from the database and
the procurement API. With --local-file and --remote-file, lines are read from
CSV files and no database or API access is needed.

Examples:
  poreconciler reconcile --order PO-1042
  poreconciler reconcile --order PO-1042 --refresh --format json
  poreconciler reconcile --local-file lines.csv --remote-file snapshot.csv --invoice-file invoices.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		handler := NewCLIErrorHandler()
		if err := runReconcile(cmd.Context()); err != nil {
			os.Exit(handler.HandleError(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVar(&reconcileOrder, "order", "", "order number or ID to reconcile")
	reconcileCmd.Flags().StringVar(&reconcileLocalFile, "local-file", "", "CSV file with local requisition lines")
	reconcileCmd.Flags().StringVar(&reconcileRemoteFile, "remote-file", "", "CSV file with a snapshot of external order lines")
	reconcileCmd.Flags().StringVar(&reconcileInvoiceFile, "invoice-file", "", "CSV file with posted invoice lines (optional)")
	reconcileCmd.Flags().StringVar(&reconcileFormat, "format", "console", "output format: console or json")
	reconcileCmd.Flags().StringVar(&reconcileOutput, "output", "", "output file (default stdout)")
	reconcileCmd.Flags().BoolVar(&reconcileRefresh, "refresh", false, "bypass the line cache and fetch fresh data")
}

func runReconcile(ctx context.Context) error {
	offline := reconcileLocalFile != "" || reconcileRemoteFile != ""

	switch {
	case offline && reconcileOrder != "":
		return errors.ValidationError(errors.CodeInvalidConfig, "order", reconcileOrder, nil).
			WithSuggestion("use either --order or --local-file/--remote-file, not both")
	case offline:
		if reconcileLocalFile == "" || reconcileRemoteFile == "" {
			return errors.ConfigurationError(errors.CodeMissingConfig, "local-file/remote-file", nil, nil).
				WithSuggestion("file mode needs both --local-file and --remote-file")
		}
		return reconcileFromFiles(ctx)
	case reconcileOrder == "":
		return errors.ConfigurationError(errors.CodeMissingConfig, "order", nil, nil).
			WithSuggestion("pass --order, or --local-file and --remote-file for file mode")
	default:
		return reconcileFromDatabase(ctx)
	}
}

func reconcileFromDatabase(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, appconfig.CommandTimeout)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	order, err := a.store.OrderByNumber(ctx, reconcileOrder)
	if err != nil {
		// The flag accepts either form; fall back to an ID lookup
		order, err = a.store.Order(ctx, reconcileOrder)
		if err != nil {
			return err
		}
	}

	result, err := a.service.CompareOrder(ctx, order, models.FetchOptions{ForceRefresh: reconcileRefresh})
	if err != nil {
		return err
	}

	return writeComparisonResult(result)
}

func reconcileFromFiles(ctx context.Context) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	log := logger.GetGlobalLogger()

	localRecords, _, err := parsers.ParseLocalLines(reconcileLocalFile, log)
	if err != nil {
		return err
	}
	remoteRecords, _, err := parsers.ParseRemoteLines(reconcileRemoteFile, log)
	if err != nil {
		return err
	}
	var invoiceRecords []models.InvoiceLineRecord
	if reconcileInvoiceFile != "" {
		invoiceRecords, _, err = parsers.ParseInvoiceLines(reconcileInvoiceFile, log)
		if err != nil {
			return err
		}
	}

	normalizer := models.NewNormalizer()
	local := normalizer.LocalLines(localRecords)
	remote := normalizer.RemoteLines(remoteRecords)
	invoiceLines := normalizer.InvoiceLines(invoiceRecords)

	engine := comparer.NewEngine(cfg.Engine, log)
	result := engine.Compare(local, remote, invoiceLines)
	result.OrderNumber = reconcileLocalFile
	result.Anomalies = normalizer.Stats()
	result.FetchedAt = time.Now().UTC()

	return writeComparisonResult(result)
}

func writeComparisonResult(result *comparer.ComparisonResult) error {
	var w io.Writer = os.Stdout
	if reconcileOutput != "" {
		file, err := os.Create(reconcileOutput)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	return report.WriteComparison(result, report.OutputFormat(reconcileFormat), w)
}
