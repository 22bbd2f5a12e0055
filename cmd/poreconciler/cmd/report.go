package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	appconfig "po-reconciliation-service/cmd/poreconciler/config"
	"po-reconciliation-service/internal/report"
)

var (
	reportFormat string
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build the portfolio variance report",
	Long: `Report reconciles every transmitted order from locally mirrored line data
and aggregates the outcomes: total variance, variance distribution, supplier
and location rollups, monthly trends, and the orders with significant
variance.

Report runs never call the procurement API. Run 'poreconciler sync' first to
refresh the mirror; orders that have never been synced are skipped.

Examples:
  poreconciler report
  poreconciler report --format csv --output variance.csv
  poreconciler report --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		handler := NewCLIErrorHandler()
		if err := runReport(cmd.Context()); err != nil {
			os.Exit(handler.HandleError(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFormat, "format", "console", "output format: console, json, or csv")
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "output file (default stdout)")
}

func runReport(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, appconfig.CommandTimeout)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.generator.Generate(ctx)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if reportOutput != "" {
		file, err := os.Create(reportOutput)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	return report.Write(rep, report.OutputFormat(reportFormat), w)
}
