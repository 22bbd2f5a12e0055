package parsers

import (
	"os"
	"path/filepath"
	"testing"

	"po-reconciliation-service/pkg/errors"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lines.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Unexpected error writing fixture: %v", err)
	}
	return path
}

func TestParseLocalLines(t *testing.T) {
	path := writeTempCSV(t, `id,line_number,code,description,qty,unit_cost,total_cost,price_list
1,1,A1,Steel Beam,10,5.00,50.00,contract_acme
2,,,Freight,1,20.00,20.00,
`)

	lines, stats, err := ParseLocalLines(path, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(lines) != 2 || stats.ParsedRows != 2 {
		t.Fatalf("Expected 2 lines, got %d (stats %+v)", len(lines), stats)
	}
	if lines[0].Code != "A1" || lines[0].PriceList != "contract_acme" {
		t.Errorf("Unexpected first line: %+v", lines[0])
	}
	if lines[1].LineNumber != 0 {
		t.Errorf("Expected missing line number to parse as 0, got %d", lines[1].LineNumber)
	}
}

func TestParseLocalLinesColumnOrderIrrelevant(t *testing.T) {
	path := writeTempCSV(t, `total_cost,description,unit_cost,qty
50.00,Steel Beam,5.00,10
`)

	lines, _, err := ParseLocalLines(path, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if lines[0].Description != "Steel Beam" || lines[0].TotalCost != "50.00" {
		t.Errorf("Unexpected line: %+v", lines[0])
	}
}

func TestParseLocalLinesMissingColumn(t *testing.T) {
	path := writeTempCSV(t, `description,qty,unit_cost
Steel Beam,10,5.00
`)

	_, _, err := ParseLocalLines(path, nil)
	if err == nil {
		t.Fatal("Expected missing column error")
	}
	re, ok := errors.AsReconcilerError(err)
	if !ok || re.Code != errors.CodeMissingColumn {
		t.Errorf("Expected missing_column code, got %v", err)
	}
}

func TestParseRemoteLinesSkipsBadNumbers(t *testing.T) {
	path := writeTempCSV(t, `id,line_number,description,qty,unit_cost,amount,invoice_balance
r1,1,steel beam,10,5.00,50.00,25.00
r2,2,bad row,not-a-number,5.00,50.00,
r3,3,freight,1,20.00,20.00,
`)

	lines, stats, err := ParseRemoteLines(path, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("Expected bad row skipped, got %d lines", len(lines))
	}
	if stats.SkippedRows != 1 || stats.ParsedRows != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if lines[0].InvoiceBalance != 25.00 {
		t.Errorf("Expected invoice balance parsed, got %f", lines[0].InvoiceBalance)
	}
}

func TestParseInvoiceLines(t *testing.T) {
	path := writeTempCSV(t, `description,qty,unit_cost,total_cost,invoice_number

progress claim 1,1,55.00,55.00,INV-77
`)

	lines, stats, err := ParseInvoiceLines(path, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("Expected blank row skipped and 1 line parsed, got %d", len(lines))
	}
	if lines[0].InvoiceNumber != "INV-77" {
		t.Errorf("Unexpected line: %+v", lines[0])
	}
	if stats.TotalRows != 1 {
		t.Errorf("Expected 1 counted row, got %d", stats.TotalRows)
	}
}
