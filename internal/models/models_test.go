package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"12.34", "12.34", false},
		{"  12.34  ", "12.34", false},
		{"$1,234.56", "1234.56", false},
		{"-45.00", "-45", false},
		{"$ -45.00", "-45", false},
		{"", "0", false},
		{"abc", "", true},
		{"-", "", true},
		{"$", "", true},
	}

	for _, tt := range tests {
		d, err := ParseAmount(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error, got %s", tt.input, d.String())
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): unexpected error: %v", tt.input, err)
			continue
		}
		expected, _ := decimal.NewFromString(tt.expected)
		if !d.Equal(expected) {
			t.Errorf("ParseAmount(%q) = %s, expected %s", tt.input, d.String(), tt.expected)
		}
	}
}

func TestNormalizerLocalLines(t *testing.T) {
	n := NewNormalizer()

	records := []LocalLineRecord{
		{
			ID:          "41",
			LineNumber:  1,
			Code:        "A1",
			Description: "Steel Beam",
			Qty:         "10",
			UnitCost:    "5.00",
			TotalCost:   "50.00",
			PriceList:   "project_alpha",
		},
		{
			ID:          "42",
			Description: "Unnumbered line",
			Qty:         "1",
			UnitCost:    "20",
			TotalCost:   "20",
		},
	}

	lines := n.LocalLines(records)

	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}

	first := lines[0]
	if !first.HasLineNumber() || first.LineNumberValue() != 1 {
		t.Errorf("Expected line number 1, got %d", first.LineNumberValue())
	}
	if first.Source != SourceLocal {
		t.Errorf("Expected local source, got %s", first.Source)
	}
	if !first.Qty.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected qty 10, got %s", first.Qty.String())
	}
	if first.PriceList != "project_alpha" {
		t.Errorf("Expected price list to survive normalization, got %q", first.PriceList)
	}

	second := lines[1]
	if second.HasLineNumber() {
		t.Error("Expected missing line number to normalize as absent")
	}

	if n.Stats().HasAnomalies() {
		t.Errorf("Expected no anomalies, got %+v", n.Stats())
	}
}

func TestNormalizerSoftAnomalies(t *testing.T) {
	n := NewNormalizer()

	records := []LocalLineRecord{
		{ID: "1", Description: "Good line", Qty: "2", UnitCost: "3.50", TotalCost: "7.00"},
		{ID: "2", Description: "", Qty: "not-a-number", UnitCost: "1.00", TotalCost: "1.00"},
	}

	lines := n.LocalLines(records)

	if len(lines) != 2 {
		t.Fatalf("Expected malformed line to be kept, got %d lines", len(lines))
	}

	// Bad qty degrades to zero, the rest of the line is untouched
	if !lines[1].Qty.IsZero() {
		t.Errorf("Expected zero qty for malformed value, got %s", lines[1].Qty.String())
	}
	if !lines[1].UnitCost.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected unit cost to survive, got %s", lines[1].UnitCost.String())
	}

	stats := n.Stats()
	if stats.BadAmounts != 1 {
		t.Errorf("Expected 1 bad amount, got %d", stats.BadAmounts)
	}
	if stats.EmptyDescriptions != 1 {
		t.Errorf("Expected 1 empty description, got %d", stats.EmptyDescriptions)
	}

	// The well-formed line must be unaffected
	if !lines[0].Qty.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected good line untouched, got qty %s", lines[0].Qty.String())
	}
}

func TestNormalizerRemoteLines(t *testing.T) {
	n := NewNormalizer()

	records := []RemoteLineRecord{
		{
			PurchaseOrderLineID: "uuid-1",
			Line:                1,
			LineDescription:     "a1-steel beam",
			Quantity:            10,
			UnitCost:            5.0,
			Amount:              50.0,
			InvoiceBalance:      25.0,
		},
		{
			PurchaseOrderLineID: "uuid-2",
			LineDescription:     "Freight",
			Quantity:            1,
			UnitCost:            20,
			Amount:              20,
		},
	}

	lines := n.RemoteLines(records)

	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}

	if !lines[0].HasInvoice {
		t.Error("Expected positive invoice balance to set HasInvoice")
	}
	if lines[1].HasInvoice {
		t.Error("Expected zero invoice balance to leave HasInvoice unset")
	}
	if lines[0].Code != "" {
		t.Errorf("Remote lines carry no code, got %q", lines[0].Code)
	}
	if lines[1].HasLineNumber() {
		t.Error("Expected zero line number to normalize as absent")
	}
}

func TestComparisonDescription(t *testing.T) {
	local := NormalizedLine{
		Code:        "A1",
		Description: " Steel Beam ",
		Source:      SourceLocal,
	}
	if got := local.ComparisonDescription(); got != "a1-steel beam" {
		t.Errorf("Expected code-prefixed description, got %q", got)
	}

	remote := NormalizedLine{
		Code:        "A1", // remote lines never carry codes, but guard anyway
		Description: "Steel Beam",
		Source:      SourceRemote,
	}
	if got := remote.ComparisonDescription(); got != "steel beam" {
		t.Errorf("Expected raw description for remote source, got %q", got)
	}

	noCode := NormalizedLine{Description: "Steel Beam", Source: SourceLocal}
	if got := noCode.ComparisonDescription(); got != "steel beam" {
		t.Errorf("Expected unprefixed description without code, got %q", got)
	}
}

func TestSumTotals(t *testing.T) {
	lines := []NormalizedLine{
		{TotalCost: decimal.NewFromFloat(50.00)},
		{TotalCost: decimal.NewFromFloat(20.00)},
		{TotalCost: decimal.NewFromFloat(-5.50)},
	}

	total := SumTotals(lines)
	if !total.Equal(decimal.NewFromFloat(64.50)) {
		t.Errorf("Expected 64.50, got %s", total.String())
	}

	if !SumTotals(nil).IsZero() {
		t.Error("Expected zero for empty input")
	}
}
