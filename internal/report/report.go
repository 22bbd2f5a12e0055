// Package report reduces many reconciliation results into portfolio-level
// views: status tallies, a variance histogram, monthly trends, supplier and
// location rollups, and the price-list violation ledger. Everything here is a
// pure fold over engine output.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"po-reconciliation-service/internal/comparer"
	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/internal/syncer"
)

// VarianceBucket sizes an order's absolute total variance
type VarianceBucket string

const (
	BucketNone      VarianceBucket = "none"
	BucketUnder100  VarianceBucket = "under_100"
	BucketUnder500  VarianceBucket = "under_500"
	BucketUnder1000 VarianceBucket = "under_1000"
	BucketUnder5000 VarianceBucket = "under_5000"
	BucketMajor     VarianceBucket = "major"
)

// Config tunes the report reducers
type Config struct {
	// SignificantVariance is the absolute variance above which an order
	// makes the shortlist.
	SignificantVariance decimal.Decimal `json:"significant_variance"`
	TopGroups           int             `json:"top_groups"`
	MaxSignificant      int             `json:"max_significant"`
}

// DefaultConfig returns the production defaults
func DefaultConfig() *Config {
	return &Config{
		SignificantVariance: decimal.NewFromInt(100),
		TopGroups:           10,
		MaxSignificant:      25,
	}
}

// OrderComparison pairs one order with its reconciliation outcome
type OrderComparison struct {
	Order     models.OrderRecord         `json:"order"`
	Result    *comparer.ComparisonResult `json:"result"`
	SyncState syncer.SyncState           `json:"sync_state"`
}

// GroupVariance is a per-supplier or per-location rollup
type GroupVariance struct {
	Name     string          `json:"name"`
	Orders   int             `json:"orders"`
	Variance decimal.Decimal `json:"variance"`
}

// MonthlyTrend is the variance accumulated over one calendar month
type MonthlyTrend struct {
	Month    string          `json:"month"`
	Orders   int             `json:"orders"`
	Variance decimal.Decimal `json:"variance"`
}

// SignificantOrder is one entry of the large-discrepancy shortlist
type SignificantOrder struct {
	Number        string          `json:"number"`
	Supplier      string          `json:"supplier,omitempty"`
	Location      string          `json:"location,omitempty"`
	Variance      decimal.Decimal `json:"variance"`
	ModifiedCount int             `json:"modified_count"`
	AddedCount    int             `json:"added_count"`
	RemovedCount  int             `json:"removed_count"`
}

// Report is the aggregated view over all reconciled orders
type Report struct {
	GeneratedAt             time.Time              `json:"generated_at"`
	Orders                  int                    `json:"orders"`
	OrdersWithDiscrepancies int                    `json:"orders_with_discrepancies"`
	OrdersSkipped           int                    `json:"orders_skipped"`
	ItemsAdded              int                    `json:"items_added"`
	ItemsRemoved            int                    `json:"items_removed"`
	ItemsModified           int                    `json:"items_modified"`
	ItemsUnchanged          int                    `json:"items_unchanged"`
	UnitCostIncreases       int                    `json:"unit_cost_increases"`
	UnitCostDecreases       int                    `json:"unit_cost_decreases"`
	QtyIncreases            int                    `json:"qty_increases"`
	QtyDecreases            int                    `json:"qty_decreases"`
	PriceListViolations     int                    `json:"price_list_violations"`
	PriceListViolationValue decimal.Decimal        `json:"price_list_violation_value"`
	TotalVariance           decimal.Decimal        `json:"total_variance"`
	VarianceBuckets         map[VarianceBucket]int `json:"variance_buckets"`
	MonthlyTrends           []MonthlyTrend         `json:"monthly_trends"`
	TopSuppliers            []GroupVariance        `json:"top_suppliers"`
	TopLocations            []GroupVariance        `json:"top_locations"`
	SignificantOrders       []SignificantOrder     `json:"significant_orders"`
	SyncStatus              *syncer.StatusReport   `json:"sync_status,omitempty"`
}

// Build folds the comparisons into a report. Input order does not matter;
// every derived list is explicitly sorted.
func Build(items []OrderComparison, config *Config) *Report {
	if config == nil {
		config = DefaultConfig()
	}

	r := &Report{
		GeneratedAt:             time.Now().UTC(),
		Orders:                  len(items),
		TotalVariance:           decimal.Zero,
		PriceListViolationValue: decimal.Zero,
		VarianceBuckets:         make(map[VarianceBucket]int),
	}

	suppliers := make(map[string]*GroupVariance)
	locations := make(map[string]*GroupVariance)
	months := make(map[string]*MonthlyTrend)

	for i := range items {
		item := &items[i]
		summary := item.Result.Summary

		r.ItemsAdded += summary.AddedCount
		r.ItemsRemoved += summary.RemovedCount
		r.ItemsModified += summary.ModifiedCount
		r.ItemsUnchanged += summary.UnchangedCount
		r.TotalVariance = r.TotalVariance.Add(summary.TotalVariance)
		if summary.HasDiscrepancies {
			r.OrdersWithDiscrepancies++
		}

		for j := range item.Result.Comparison {
			row := &item.Result.Comparison[j]
			if row.Variances != nil {
				if row.Variances.HasUnitCostChange {
					if row.Variances.UnitCostDelta.IsPositive() {
						r.UnitCostIncreases++
					} else {
						r.UnitCostDecreases++
					}
				}
				if row.Variances.HasQtyChange {
					if row.Variances.QtyDelta.IsPositive() {
						r.QtyIncreases++
					} else {
						r.QtyDecreases++
					}
				}
			}
			if row.PriceListViolation {
				r.PriceListViolations++
				r.PriceListViolationValue = r.PriceListViolationValue.Add(row.Variances.TotalCostDelta.Abs())
			}
		}

		r.VarianceBuckets[bucketFor(summary.TotalVariance)]++

		accumulateGroup(suppliers, item.Order.Supplier, summary.TotalVariance)
		accumulateGroup(locations, item.Order.Location, summary.TotalVariance)

		if item.Order.OrderedAt != nil {
			month := item.Order.OrderedAt.Format("2006-01")
			trend, ok := months[month]
			if !ok {
				trend = &MonthlyTrend{Month: month, Variance: decimal.Zero}
				months[month] = trend
			}
			trend.Orders++
			trend.Variance = trend.Variance.Add(summary.TotalVariance)
		}

		if summary.TotalVariance.Abs().GreaterThan(config.SignificantVariance) {
			r.SignificantOrders = append(r.SignificantOrders, SignificantOrder{
				Number:        item.Order.Number,
				Supplier:      item.Order.Supplier,
				Location:      item.Order.Location,
				Variance:      summary.TotalVariance,
				ModifiedCount: summary.ModifiedCount,
				AddedCount:    summary.AddedCount,
				RemovedCount:  summary.RemovedCount,
			})
		}
	}

	r.TopSuppliers = topGroups(suppliers, config.TopGroups)
	r.TopLocations = topGroups(locations, config.TopGroups)
	r.MonthlyTrends = sortedTrends(months)

	sort.SliceStable(r.SignificantOrders, func(i, j int) bool {
		return r.SignificantOrders[i].Variance.Abs().GreaterThan(r.SignificantOrders[j].Variance.Abs())
	})
	if len(r.SignificantOrders) > config.MaxSignificant {
		r.SignificantOrders = r.SignificantOrders[:config.MaxSignificant]
	}

	return r
}

func bucketFor(variance decimal.Decimal) VarianceBucket {
	abs := variance.Abs()
	switch {
	case abs.IsZero():
		return BucketNone
	case abs.LessThan(decimal.NewFromInt(100)):
		return BucketUnder100
	case abs.LessThan(decimal.NewFromInt(500)):
		return BucketUnder500
	case abs.LessThan(decimal.NewFromInt(1000)):
		return BucketUnder1000
	case abs.LessThan(decimal.NewFromInt(5000)):
		return BucketUnder5000
	default:
		return BucketMajor
	}
}

func accumulateGroup(groups map[string]*GroupVariance, name string, variance decimal.Decimal) {
	if name == "" {
		return
	}
	g, ok := groups[name]
	if !ok {
		g = &GroupVariance{Name: name, Variance: decimal.Zero}
		groups[name] = g
	}
	g.Orders++
	g.Variance = g.Variance.Add(variance)
}

func topGroups(groups map[string]*GroupVariance, limit int) []GroupVariance {
	out := make([]GroupVariance, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Variance.Abs(), out[j].Variance.Abs()
		if a.Equal(b) {
			return out[i].Name < out[j].Name
		}
		return a.GreaterThan(b)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortedTrends(months map[string]*MonthlyTrend) []MonthlyTrend {
	out := make([]MonthlyTrend, 0, len(months))
	for _, t := range months {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
