package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"po-reconciliation-service/pkg/errors"
)

// OutputFormat selects how a report is rendered
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks whether the format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	}
	return false
}

// Write renders the report in the requested format
func Write(r *Report, format OutputFormat, w io.Writer) error {
	switch format {
	case FormatConsole:
		return writeConsole(r, w)
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(r)
	case FormatCSV:
		return writeCSV(r, w)
	default:
		return errors.ValidationError(errors.CodeOutOfRange, "format", string(format), nil)
	}
}

func writeConsole(r *Report, w io.Writer) error {
	fmt.Fprintf(w, "PURCHASE ORDER RECONCILIATION REPORT\n")
	fmt.Fprintf(w, "Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(w, "=== ORDERS ===\n")
	fmt.Fprintf(w, "  Reconciled:          %d\n", r.Orders)
	fmt.Fprintf(w, "  With discrepancies:  %d\n", r.OrdersWithDiscrepancies)
	fmt.Fprintf(w, "  Skipped (no data):   %d\n\n", r.OrdersSkipped)

	fmt.Fprintf(w, "=== LINE ITEMS ===\n")
	fmt.Fprintf(w, "  Unchanged: %d\n", r.ItemsUnchanged)
	fmt.Fprintf(w, "  Modified:  %d\n", r.ItemsModified)
	fmt.Fprintf(w, "  Added:     %d\n", r.ItemsAdded)
	fmt.Fprintf(w, "  Removed:   %d\n\n", r.ItemsRemoved)

	fmt.Fprintf(w, "=== COST MOVEMENTS ===\n")
	fmt.Fprintf(w, "  Unit cost increases: %d\n", r.UnitCostIncreases)
	fmt.Fprintf(w, "  Unit cost decreases: %d\n", r.UnitCostDecreases)
	fmt.Fprintf(w, "  Quantity increases:  %d\n", r.QtyIncreases)
	fmt.Fprintf(w, "  Quantity decreases:  %d\n", r.QtyDecreases)
	fmt.Fprintf(w, "  Total variance:      %s\n\n", r.TotalVariance.StringFixed(2))

	fmt.Fprintf(w, "=== PRICE LIST VIOLATIONS ===\n")
	fmt.Fprintf(w, "  Count: %d\n", r.PriceListViolations)
	fmt.Fprintf(w, "  Value: %s\n\n", r.PriceListViolationValue.StringFixed(2))

	fmt.Fprintf(w, "=== VARIANCE DISTRIBUTION ===\n")
	for _, bucket := range []VarianceBucket{BucketNone, BucketUnder100, BucketUnder500, BucketUnder1000, BucketUnder5000, BucketMajor} {
		fmt.Fprintf(w, "  %-11s %d\n", bucket+":", r.VarianceBuckets[bucket])
	}
	fmt.Fprintf(w, "\n")

	if len(r.TopSuppliers) > 0 {
		fmt.Fprintf(w, "=== TOP SUPPLIERS BY VARIANCE ===\n")
		for _, g := range r.TopSuppliers {
			fmt.Fprintf(w, "  %-30s %4d orders  %12s\n", g.Name, g.Orders, g.Variance.StringFixed(2))
		}
		fmt.Fprintf(w, "\n")
	}

	if len(r.TopLocations) > 0 {
		fmt.Fprintf(w, "=== TOP LOCATIONS BY VARIANCE ===\n")
		for _, g := range r.TopLocations {
			fmt.Fprintf(w, "  %-30s %4d orders  %12s\n", g.Name, g.Orders, g.Variance.StringFixed(2))
		}
		fmt.Fprintf(w, "\n")
	}

	if len(r.MonthlyTrends) > 0 {
		fmt.Fprintf(w, "=== MONTHLY TREND ===\n")
		for _, t := range r.MonthlyTrends {
			fmt.Fprintf(w, "  %s  %4d orders  %12s\n", t.Month, t.Orders, t.Variance.StringFixed(2))
		}
		fmt.Fprintf(w, "\n")
	}

	if len(r.SignificantOrders) > 0 {
		fmt.Fprintf(w, "=== SIGNIFICANT DISCREPANCIES ===\n")
		for _, o := range r.SignificantOrders {
			fmt.Fprintf(w, "  %-12s %-24s %12s  (mod %d, add %d, rem %d)\n",
				o.Number, o.Supplier, o.Variance.StringFixed(2),
				o.ModifiedCount, o.AddedCount, o.RemovedCount)
		}
	}

	if r.SyncStatus != nil {
		fmt.Fprintf(w, "\n=== DATA FRESHNESS ===\n")
		fmt.Fprintf(w, "  Cached: %d  Stale: %d  Missing: %d\n",
			r.SyncStatus.Cached, r.SyncStatus.Stale, r.SyncStatus.Missing)
	}

	return nil
}

// writeCSV emits the significant-discrepancy shortlist, the view most often
// pulled into spreadsheets.
func writeCSV(r *Report, w io.Writer) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	headers := []string{"Order", "Supplier", "Location", "Variance", "Modified", "Added", "Removed"}
	if err := csvWriter.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, o := range r.SignificantOrders {
		record := []string{
			o.Number,
			o.Supplier,
			o.Location,
			o.Variance.StringFixed(2),
			strconv.Itoa(o.ModifiedCount),
			strconv.Itoa(o.AddedCount),
			strconv.Itoa(o.RemovedCount),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	return nil
}
