package parsers

import (
	"io"
	"strconv"

	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/pkg/logger"
)

// ParseLocalLines reads local requisition lines from a CSV file. Required
// columns: description, qty, unit_cost, total_cost; line_number, code,
// cost_code, and price_list are optional.
func ParseLocalLines(path string, log logger.Logger) ([]models.LocalLineRecord, *ParseStats, error) {
	f, err := openCSV(path, []string{"description", "qty", "unit_cost", "total_cost"}, log)
	if err != nil {
		return nil, nil, err
	}
	defer f.close()

	stats := &ParseStats{}
	var lines []models.LocalLineRecord

	for {
		record, err := f.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return lines, stats, err
		}
		stats.TotalRows++

		lineNumber, _ := strconv.Atoi(f.field(record, "line_number"))
		lines = append(lines, models.LocalLineRecord{
			ID:          f.field(record, "id"),
			LineNumber:  lineNumber,
			Code:        f.field(record, "code"),
			Description: f.field(record, "description"),
			Qty:         f.field(record, "qty"),
			UnitCost:    f.field(record, "unit_cost"),
			TotalCost:   f.field(record, "total_cost"),
			CostCode:    f.field(record, "cost_code"),
			PriceList:   f.field(record, "price_list"),
		})
		stats.ParsedRows++
	}

	f.logger.WithFields(logger.Fields{
		"file":  path,
		"lines": stats.ParsedRows,
	}).Debug("Parsed local lines")
	return lines, stats, nil
}

// ParseRemoteLines reads a snapshot of external order lines from a CSV file.
// Rows with unparseable numeric fields are skipped and counted rather than
// failing the file.
func ParseRemoteLines(path string, log logger.Logger) ([]models.RemoteLineRecord, *ParseStats, error) {
	f, err := openCSV(path, []string{"description", "qty", "unit_cost", "amount"}, log)
	if err != nil {
		return nil, nil, err
	}
	defer f.close()

	stats := &ParseStats{}
	var lines []models.RemoteLineRecord

	for {
		record, err := f.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return lines, stats, err
		}
		stats.TotalRows++

		qty, qtyErr := parseFloat(f.field(record, "qty"))
		unit, unitErr := parseFloat(f.field(record, "unit_cost"))
		amount, amountErr := parseFloat(f.field(record, "amount"))
		if qtyErr != nil || unitErr != nil || amountErr != nil {
			stats.SkippedRows++
			f.logger.WithFields(logger.Fields{
				"file": path,
				"line": f.line,
			}).Warn("Skipping remote line with unparseable numbers")
			continue
		}

		lineNumber, _ := strconv.Atoi(f.field(record, "line_number"))
		balance, _ := parseFloat(f.field(record, "invoice_balance"))

		lines = append(lines, models.RemoteLineRecord{
			PurchaseOrderLineID: f.field(record, "id"),
			Line:                lineNumber,
			LineDescription:     f.field(record, "description"),
			Quantity:            qty,
			UnitCost:            unit,
			Amount:              amount,
			InvoiceBalance:      balance,
		})
		stats.ParsedRows++
	}

	return lines, stats, nil
}

// ParseInvoiceLines reads invoice lines from a CSV file. Required columns:
// description, qty, unit_cost, total_cost; invoice_number is optional.
func ParseInvoiceLines(path string, log logger.Logger) ([]models.InvoiceLineRecord, *ParseStats, error) {
	f, err := openCSV(path, []string{"description", "qty", "unit_cost", "total_cost"}, log)
	if err != nil {
		return nil, nil, err
	}
	defer f.close()

	stats := &ParseStats{}
	var lines []models.InvoiceLineRecord

	for {
		record, err := f.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return lines, stats, err
		}
		stats.TotalRows++

		lines = append(lines, models.InvoiceLineRecord{
			Description:   f.field(record, "description"),
			Qty:           f.field(record, "qty"),
			UnitCost:      f.field(record, "unit_cost"),
			TotalCost:     f.field(record, "total_cost"),
			InvoiceNumber: f.field(record, "invoice_number"),
			InvoiceID:     f.field(record, "invoice_id"),
		})
		stats.ParsedRows++
	}

	return lines, stats, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
