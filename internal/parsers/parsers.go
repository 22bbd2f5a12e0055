// Package parsers reads line-record CSV files for offline reconciliation
// runs: local requisition lines, remote order line snapshots, and invoice
// lines. Files are header-mapped, so column order does not matter.
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"po-reconciliation-service/pkg/errors"
	"po-reconciliation-service/pkg/logger"
)

// ParseStats counts what happened while reading one file
type ParseStats struct {
	TotalRows   int `json:"total_rows"`
	ParsedRows  int `json:"parsed_rows"`
	SkippedRows int `json:"skipped_rows"`
}

// csvFile is one open, header-mapped CSV file
type csvFile struct {
	path    string
	file    *os.File
	reader  *csv.Reader
	columns map[string]int
	line    int
	logger  logger.Logger
}

// openCSV opens a file and reads its header row. Required columns must all
// be present; extra columns are ignored.
func openCSV(path string, required []string, log logger.Logger) (*csvFile, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, "", "", err)
	}

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	// Short rows are handled per-field; do not fail the whole file on them
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 1, "header", "", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		file.Close()
		return nil, errors.ParseError(errors.CodeMissingColumn, path, 1, strings.Join(missing, ","), "",
			fmt.Errorf("missing required columns"))
	}

	return &csvFile{
		path:    path,
		file:    file,
		reader:  reader,
		columns: columns,
		line:    1,
		logger:  log.WithComponent("parsers"),
	}, nil
}

func (f *csvFile) close() {
	f.file.Close()
}

// next reads one record, skipping blank rows. Returns io.EOF at end of file.
func (f *csvFile) next() ([]string, error) {
	for {
		record, err := f.reader.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		f.line++
		if err != nil {
			return nil, errors.ParseError(errors.CodeInvalidFormat, f.path, f.line, "", "", err)
		}
		if isEmptyRecord(record) {
			continue
		}
		return record, nil
	}
}

// field returns a named column's trimmed value, or "" when the column is
// absent or the row is short.
func (f *csvFile) field(record []string, name string) string {
	idx, ok := f.columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isEmptyRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
