// Package models defines the uniform line shape shared by the three data
// sources (local requisition lines, external procurement system lines, and
// posted invoice lines) plus the normalization that converts raw source
// records into it.
//
// Normalization happens exactly once at the boundary so that scoring and
// matching never branch on which source a line came from or whether a field
// was present in the raw payload.
package models

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// LineSource identifies which system a normalized line originated from
type LineSource string

const (
	SourceLocal   LineSource = "local"
	SourceRemote  LineSource = "remote"
	SourceInvoice LineSource = "invoice"
)

// NormalizedLine is one order or invoice line in the uniform shape consumed
// by the matching engine. Lines are immutable inputs; the engine never
// mutates them.
//
// LineNumber is a pointer because several sources omit it entirely and a
// stored zero is not trustworthy either; HasLineNumber folds both cases.
type NormalizedLine struct {
	SourceID       string          `json:"source_id"`
	LineNumber     *int            `json:"line_number,omitempty"`
	Code           string          `json:"code,omitempty"`
	Description    string          `json:"description"`
	Qty            decimal.Decimal `json:"qty"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	CostCode       string          `json:"cost_code,omitempty"`
	PriceList      string          `json:"price_list,omitempty"`
	HasInvoice     bool            `json:"has_invoice,omitempty"`
	InvoiceBalance decimal.Decimal `json:"invoice_balance,omitempty"`
	InvoiceNumber  string          `json:"invoice_number,omitempty"`
	Source         LineSource      `json:"source"`
}

// HasLineNumber reports whether the line carries a usable line number.
// Zero is treated as absent; upstream systems store it for unnumbered lines.
func (l *NormalizedLine) HasLineNumber() bool {
	return l.LineNumber != nil && *l.LineNumber != 0
}

// LineNumberValue returns the line number or 0 when absent
func (l *NormalizedLine) LineNumberValue() int {
	if l.LineNumber == nil {
		return 0
	}
	return *l.LineNumber
}

// ComparisonDescription builds the description used for similarity scoring.
// Local lines are prefixed with their code ("CODE-description") because that
// is how descriptions were transmitted to the external system; other sources
// use the raw description. Always lower-cased and trimmed.
func (l *NormalizedLine) ComparisonDescription() string {
	desc := l.Description
	if l.Source == SourceLocal && l.Code != "" {
		desc = l.Code + "-" + desc
	}
	return strings.ToLower(strings.TrimSpace(desc))
}

// String returns a short representation for logs
func (l *NormalizedLine) String() string {
	return fmt.Sprintf("Line{source: %s, line: %d, desc: %.40q, qty: %s, unit: %s, total: %s}",
		l.Source, l.LineNumberValue(), l.Description, l.Qty.String(), l.UnitCost.String(), l.TotalCost.String())
}

// LocalLineRecord is a raw requisition line as read from the local database
// or a fixture file. Monetary fields are kept as strings so that malformed
// values degrade to safe defaults instead of aborting the whole order.
type LocalLineRecord struct {
	ID          string
	LineNumber  int
	Code        string
	Description string
	Qty         string
	UnitCost    string
	TotalCost   string
	CostCode    string
	PriceList   string
}

// RemoteLineRecord is one purchase-order line in the external procurement
// system's API shape. Field names mirror the upstream payload.
type RemoteLineRecord struct {
	PurchaseOrderLineID string  `json:"PurchaseOrderLineId"`
	PurchaseOrderID     string  `json:"PurchaseOrderId"`
	Line                int     `json:"Line"`
	LineDescription     string  `json:"LineDescription"`
	Quantity            float64 `json:"Quantity"`
	UnitCost            float64 `json:"UnitCost"`
	Amount              float64 `json:"Amount"`
	InvoiceBalance      float64 `json:"InvoiceBalance"`
	CostItemID          string  `json:"CostItemId,omitempty"`
	CostTypeID          string  `json:"CostTypeId,omitempty"`
	JobID               string  `json:"JobId,omitempty"`
	ItemID              string  `json:"ItemId,omitempty"`
}

// InvoiceLineRecord is a raw posted-invoice line from the ledger
type InvoiceLineRecord struct {
	Description   string
	Qty           string
	UnitCost      string
	TotalCost     string
	InvoiceNumber string
	InvoiceID     string
}

// InvoiceRecord is a posted invoice header used for the invoice summary
type InvoiceRecord struct {
	InvoiceID      string          `json:"invoice_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	InvoiceDate    string          `json:"invoice_date,omitempty"`
	Total          decimal.Decimal `json:"total"`
	Status         string          `json:"status,omitempty"`
	ApprovalStatus string          `json:"approval_status,omitempty"`
	VendorName     string          `json:"vendor_name,omitempty"`
}

// NormalizationStats counts soft data anomalies absorbed during
// normalization. Anomalies never abort a run; they are reported so that
// data-quality problems stay visible.
type NormalizationStats struct {
	BadAmounts        int `json:"bad_amounts"`
	EmptyDescriptions int `json:"empty_descriptions"`
}

// HasAnomalies reports whether any anomaly was absorbed
func (s NormalizationStats) HasAnomalies() bool {
	return s.BadAmounts > 0 || s.EmptyDescriptions > 0
}

// Normalizer converts raw source records into NormalizedLines, absorbing
// soft anomalies and counting them.
type Normalizer struct {
	stats NormalizationStats
}

// NewNormalizer creates a fresh normalizer for one reconciliation run
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Stats returns the anomalies absorbed so far
func (n *Normalizer) Stats() NormalizationStats {
	return n.stats
}

// LocalLines normalizes raw requisition lines in input order
func (n *Normalizer) LocalLines(records []LocalLineRecord) []NormalizedLine {
	lines := make([]NormalizedLine, 0, len(records))
	for _, r := range records {
		line := NormalizedLine{
			SourceID:    r.ID,
			Description: n.description(r.Description),
			Qty:         n.amount(r.Qty),
			UnitCost:    n.amount(r.UnitCost),
			TotalCost:   n.amount(r.TotalCost),
			Code:        strings.TrimSpace(r.Code),
			CostCode:    strings.TrimSpace(r.CostCode),
			PriceList:   strings.TrimSpace(r.PriceList),
			Source:      SourceLocal,
		}
		if r.LineNumber != 0 {
			num := r.LineNumber
			line.LineNumber = &num
		}
		lines = append(lines, line)
	}
	return lines
}

// RemoteLines normalizes external-system purchase-order lines in input order
func (n *Normalizer) RemoteLines(records []RemoteLineRecord) []NormalizedLine {
	lines := make([]NormalizedLine, 0, len(records))
	for _, r := range records {
		balance := decimal.NewFromFloat(r.InvoiceBalance)
		line := NormalizedLine{
			SourceID:       r.PurchaseOrderLineID,
			Description:    n.description(r.LineDescription),
			Qty:            decimal.NewFromFloat(r.Quantity),
			UnitCost:       decimal.NewFromFloat(r.UnitCost),
			TotalCost:      decimal.NewFromFloat(r.Amount),
			HasInvoice:     balance.IsPositive(),
			InvoiceBalance: balance,
			Source:         SourceRemote,
		}
		if r.Line != 0 {
			num := r.Line
			line.LineNumber = &num
		}
		lines = append(lines, line)
	}
	return lines
}

// InvoiceLines normalizes posted-invoice lines in input order
func (n *Normalizer) InvoiceLines(records []InvoiceLineRecord) []NormalizedLine {
	lines := make([]NormalizedLine, 0, len(records))
	for _, r := range records {
		lines = append(lines, NormalizedLine{
			SourceID:      r.InvoiceID,
			Description:   n.description(r.Description),
			Qty:           n.amount(r.Qty),
			UnitCost:      n.amount(r.UnitCost),
			TotalCost:     n.amount(r.TotalCost),
			InvoiceNumber: r.InvoiceNumber,
			Source:        SourceInvoice,
		})
	}
	return lines
}

func (n *Normalizer) description(raw string) string {
	desc := strings.TrimSpace(raw)
	if desc == "" {
		n.stats.EmptyDescriptions++
	}
	return desc
}

func (n *Normalizer) amount(raw string) decimal.Decimal {
	d, err := ParseAmount(raw)
	if err != nil {
		n.stats.BadAmounts++
		return decimal.Zero
	}
	return d
}

// ParseAmount parses a monetary value from a string, tolerating currency
// symbols, thousand separators, and surrounding whitespace. An empty string
// parses as zero; anything that still fails after cleaning is an error.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	// Fast path: already a plain decimal
	if d, err := decimal.NewFromString(s); err == nil {
		return d, nil
	}

	// Strip everything except digits, dot, and minus
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, fmt.Errorf("no numeric content in %q", s)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	return d, nil
}

// SumTotals returns the sum of TotalCost over a set of lines
func SumTotals(lines []NormalizedLine) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		total = total.Add(lines[i].TotalCost)
	}
	return total
}
