// Package comparer is the reconciliation engine: it takes normalized line
// collections from the local system, the external procurement system, and the
// invoice ledger, matches them, classifies each outcome, and aggregates the
// variance. A run is a pure function of its inputs; no state survives between
// calls.
package comparer

import (
	"time"

	"github.com/shopspring/decimal"

	"po-reconciliation-service/internal/matcher"
	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/pkg/errors"
	"po-reconciliation-service/pkg/logger"
)

// LineStatus classifies one comparison row
type LineStatus string

const (
	StatusUnchanged LineStatus = "unchanged"
	StatusModified  LineStatus = "modified"
	StatusAdded     LineStatus = "added"
	StatusRemoved   LineStatus = "removed"
)

// Variances holds the per-field deltas of a matched pair, always computed as
// remote minus local.
type Variances struct {
	QtyDelta           decimal.Decimal `json:"qty_delta"`
	UnitCostDelta      decimal.Decimal `json:"unit_cost_delta"`
	TotalCostDelta     decimal.Decimal `json:"total_cost_delta"`
	HasQtyChange       bool            `json:"has_qty_change"`
	HasUnitCostChange  bool            `json:"has_unit_cost_change"`
	HasTotalCostChange bool            `json:"has_total_cost_change"`
}

// InvoiceAttachment records the invoice line attached to a row and the
// evidence that attached it.
type InvoiceAttachment struct {
	Line   *models.NormalizedLine `json:"line"`
	Score  float64                `json:"score"`
	Method matcher.MatchMethod    `json:"method"`
}

// ComparisonRow is one reconciled outcome. Local and Remote are nil on the
// side a line is missing from; Variances is nil unless both sides matched.
type ComparisonRow struct {
	Status             LineStatus             `json:"status"`
	Local              *models.NormalizedLine `json:"local,omitempty"`
	Remote             *models.NormalizedLine `json:"remote,omitempty"`
	Invoice            *InvoiceAttachment     `json:"invoice,omitempty"`
	Variances          *Variances             `json:"variances,omitempty"`
	MatchScore         float64                `json:"match_score"`
	PriceListViolation bool                   `json:"price_list_violation,omitempty"`
}

// Summary aggregates one comparison run
type Summary struct {
	UnchangedCount   int             `json:"unchanged_count"`
	ModifiedCount    int             `json:"modified_count"`
	AddedCount       int             `json:"added_count"`
	RemovedCount     int             `json:"removed_count"`
	TotalItems       int             `json:"total_items"`
	TotalVariance    decimal.Decimal `json:"total_variance"`
	HasDiscrepancies bool            `json:"has_discrepancies"`
}

// ComparisonResult is the complete output of one reconciliation run
type ComparisonResult struct {
	OrderID      string                    `json:"order_id,omitempty"`
	OrderNumber  string                    `json:"order_number,omitempty"`
	Comparison   []ComparisonRow           `json:"comparison"`
	Summary      Summary                   `json:"summary"`
	LocalTotal   decimal.Decimal           `json:"local_total"`
	RemoteTotal  decimal.Decimal           `json:"remote_total"`
	InvoiceTotal decimal.Decimal           `json:"invoice_total"`
	Invoices     []models.InvoiceRecord    `json:"invoices,omitempty"`
	Anomalies    models.NormalizationStats `json:"anomalies"`
	FetchedAt    time.Time                 `json:"fetched_at"`
}

// EngineConfig holds the classification tolerances. Quantity and unit cost
// use a tight band because they are entered values; total cost gets a looser
// band to absorb rounding in derived amounts.
type EngineConfig struct {
	QtyTolerance       decimal.Decimal `json:"qty_tolerance"`
	UnitCostTolerance  decimal.Decimal `json:"unit_cost_tolerance"`
	TotalCostTolerance decimal.Decimal `json:"total_cost_tolerance"`

	// DefaultPriceList names the generic catalog; unit-cost changes on any
	// other price list count as contract violations.
	DefaultPriceList string `json:"default_price_list"`

	Matching *matcher.MatchingConfig `json:"matching"`
}

// DefaultEngineConfig returns the production configuration
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		QtyTolerance:       decimal.NewFromFloat(0.001),
		UnitCostTolerance:  decimal.NewFromFloat(0.001),
		TotalCostTolerance: decimal.NewFromFloat(0.01),
		DefaultPriceList:   "base_price",
		Matching:           matcher.DefaultMatchingConfig(),
	}
}

// Validate checks the configuration
func (c *EngineConfig) Validate() error {
	if c.QtyTolerance.IsNegative() || c.UnitCostTolerance.IsNegative() || c.TotalCostTolerance.IsNegative() {
		return errors.ConfigurationError(errors.CodeInvalidConfig,
			"engine_tolerances", "tolerances must not be negative", nil)
	}
	if c.Matching != nil {
		return c.Matching.Validate()
	}
	return nil
}

// Engine performs one reconciliation run over normalized lines
type Engine struct {
	config  *EngineConfig
	matcher *matcher.Matcher
	logger  logger.Logger
}

// NewEngine creates an engine. A nil config gets the defaults.
func NewEngine(config *EngineConfig, log logger.Logger) *Engine {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Engine{
		config:  config,
		matcher: matcher.NewMatcher(config.Matching, log),
		logger:  log.WithComponent("comparer"),
	}
}

// Compare reconciles the three line collections. Every local and every remote
// line lands in exactly one row: matched pairs first in local input order,
// then unmatched locals as removed, then unmatched remotes as added. Invoice
// lines are attached in a second pass over all rows and are never reused.
func (e *Engine) Compare(local, remote, invoiceLines []models.NormalizedLine) *ComparisonResult {
	sourceMatches := e.matcher.MatchSources(local, remote)

	remoteByLocal := make(map[int]matcher.SourceMatch, len(sourceMatches))
	for _, m := range sourceMatches {
		remoteByLocal[m.LocalIndex] = m
	}

	rows := make([]ComparisonRow, 0, len(local)+len(remote)-len(sourceMatches))

	for i := range local {
		if m, ok := remoteByLocal[i]; ok {
			rows = append(rows, e.classifyPair(&local[i], &remote[m.RemoteIndex], m.Score))
			continue
		}
		rows = append(rows, ComparisonRow{
			Status: StatusRemoved,
			Local:  &local[i],
		})
	}

	for _, j := range matcher.UnmatchedRemote(sourceMatches, len(remote)) {
		rows = append(rows, ComparisonRow{
			Status: StatusAdded,
			Remote: &remote[j],
		})
	}

	e.attachInvoices(rows, invoiceLines)

	result := &ComparisonResult{
		Comparison:   rows,
		Summary:      e.summarize(rows),
		LocalTotal:   models.SumTotals(local),
		RemoteTotal:  models.SumTotals(remote),
		InvoiceTotal: models.SumTotals(invoiceLines),
	}

	e.logger.WithFields(logger.Fields{
		"rows":           len(rows),
		"matched":        len(sourceMatches),
		"total_variance": result.Summary.TotalVariance.String(),
	}).Debug("Comparison complete")

	return result
}

// classifyPair builds the row for a matched local/remote pair. Only quantity
// and unit cost drive the status; the total-cost delta is reported for
// manually adjusted lines but a derived total alone never flags a line.
func (e *Engine) classifyPair(local, remote *models.NormalizedLine, score float64) ComparisonRow {
	v := &Variances{
		QtyDelta:       remote.Qty.Sub(local.Qty),
		UnitCostDelta:  remote.UnitCost.Sub(local.UnitCost),
		TotalCostDelta: remote.TotalCost.Sub(local.TotalCost),
	}
	v.HasQtyChange = v.QtyDelta.Abs().GreaterThan(e.config.QtyTolerance)
	v.HasUnitCostChange = v.UnitCostDelta.Abs().GreaterThan(e.config.UnitCostTolerance)
	v.HasTotalCostChange = v.TotalCostDelta.Abs().GreaterThan(e.config.TotalCostTolerance)

	status := StatusUnchanged
	if v.HasQtyChange || v.HasUnitCostChange {
		status = StatusModified
	}

	return ComparisonRow{
		Status:             status,
		Local:              local,
		Remote:             remote,
		Variances:          v,
		MatchScore:         score,
		PriceListViolation: e.isPriceListViolation(local, v),
	}
}

// isPriceListViolation reports whether a unit-cost change touched a
// negotiated price list.
func (e *Engine) isPriceListViolation(local *models.NormalizedLine, v *Variances) bool {
	if local == nil || !v.HasUnitCostChange {
		return false
	}
	return local.PriceList != "" && local.PriceList != e.config.DefaultPriceList
}

// attachInvoices runs the second matching pass. Description evidence is
// anchored to the local line when one exists, since that is what was ordered;
// monetary evidence comes from the remote line when one exists, since that is
// what invoices are posted against.
func (e *Engine) attachInvoices(rows []ComparisonRow, invoiceLines []models.NormalizedLine) {
	if len(invoiceLines) == 0 {
		return
	}

	seeds := make([]models.NormalizedLine, len(rows))
	for i := range rows {
		switch {
		case rows[i].Remote != nil:
			seeds[i] = *rows[i].Remote
			if rows[i].Local != nil {
				seeds[i].Description = rows[i].Local.Description
				seeds[i].Code = rows[i].Local.Code
				seeds[i].Source = rows[i].Local.Source
			}
		case rows[i].Local != nil:
			seeds[i] = *rows[i].Local
		}
	}

	for _, m := range e.matcher.MatchInvoices(seeds, invoiceLines) {
		rows[m.LineIndex].Invoice = &InvoiceAttachment{
			Line:   &invoiceLines[m.InvoiceIndex],
			Score:  m.Score,
			Method: m.Method,
		}
	}
}

// summarize tallies the rows into the aggregate. The variance accumulates the
// total-cost delta of modified rows, the full remote total of added rows, and
// the negated local total of removed rows.
func (e *Engine) summarize(rows []ComparisonRow) Summary {
	s := Summary{TotalVariance: decimal.Zero}

	for i := range rows {
		row := &rows[i]
		switch row.Status {
		case StatusUnchanged:
			s.UnchangedCount++
		case StatusModified:
			s.ModifiedCount++
			s.TotalVariance = s.TotalVariance.Add(row.Variances.TotalCostDelta)
		case StatusAdded:
			s.AddedCount++
			s.TotalVariance = s.TotalVariance.Add(row.Remote.TotalCost)
		case StatusRemoved:
			s.RemovedCount++
			s.TotalVariance = s.TotalVariance.Sub(row.Local.TotalCost)
		}
	}

	s.TotalItems = len(rows)
	s.HasDiscrepancies = s.ModifiedCount+s.AddedCount+s.RemovedCount > 0
	return s
}
