package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"po-reconciliation-service/internal/comparer"
	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/pkg/errors"
)

// WriteComparison renders a single order's reconciliation result
func WriteComparison(result *comparer.ComparisonResult, format OutputFormat, w io.Writer) error {
	switch format {
	case FormatConsole:
		return writeComparisonConsole(result, w)
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	default:
		return errors.ValidationError(errors.CodeOutOfRange, "format", string(format), nil)
	}
}

func writeComparisonConsole(result *comparer.ComparisonResult, w io.Writer) error {
	fmt.Fprintf(w, "ORDER COMPARISON %s\n", result.OrderNumber)
	fmt.Fprintf(w, "Fetched: %s\n\n", result.FetchedAt.Format(time.RFC3339))

	for _, row := range result.Comparison {
		fmt.Fprintf(w, "[%-9s] %s\n", row.Status, rowDescription(&row))
		if row.Variances != nil && row.Status == comparer.StatusModified {
			fmt.Fprintf(w, "            qty %s  unit %s  total %s\n",
				signed(row.Variances.QtyDelta),
				signed(row.Variances.UnitCostDelta),
				signed(row.Variances.TotalCostDelta))
		}
		if row.PriceListViolation {
			fmt.Fprintf(w, "            price list violation (%s)\n", row.Local.PriceList)
		}
		if row.Invoice != nil {
			fmt.Fprintf(w, "            invoiced via %s (score %.0f)\n", row.Invoice.Method, row.Invoice.Score)
		}
	}

	s := result.Summary
	fmt.Fprintf(w, "\nSummary: %d items  unchanged %d  modified %d  added %d  removed %d\n",
		s.TotalItems, s.UnchangedCount, s.ModifiedCount, s.AddedCount, s.RemovedCount)
	fmt.Fprintf(w, "Totals:  local %s  remote %s  invoiced %s\n",
		result.LocalTotal.StringFixed(2), result.RemoteTotal.StringFixed(2), result.InvoiceTotal.StringFixed(2))
	fmt.Fprintf(w, "Variance: %s\n", s.TotalVariance.StringFixed(2))

	if result.Anomalies.HasAnomalies() {
		fmt.Fprintf(w, "Data anomalies absorbed: %d bad amounts, %d empty descriptions\n",
			result.Anomalies.BadAmounts, result.Anomalies.EmptyDescriptions)
	}

	return nil
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.String()
	}
	return d.String()
}

func rowDescription(row *comparer.ComparisonRow) string {
	var line *models.NormalizedLine
	switch {
	case row.Local != nil:
		line = row.Local
	case row.Remote != nil:
		line = row.Remote
	default:
		return "(no line)"
	}
	if line.Description == "" {
		return "(no description)"
	}
	return line.Description
}
