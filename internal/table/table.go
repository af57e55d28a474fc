package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoHeader is returned when the input has no header row
var ErrNoHeader = errors.New("table has no header row")

// Table represents a loaded comma-delimited file as raw string cells
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string

	// Skipped counts rows dropped because they were malformed or wider than the header
	Skipped int
}

// Parse reads a table from an in-memory buffer
func Parse(data []byte, name string) (*Table, error) {
	return Read(bytes.NewReader(data), name)
}

// Read reads a header row followed by data rows. Short rows are padded with
// empty cells; malformed rows and rows wider than the header are skipped.
func Read(r io.Reader, name string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable fields
	reader.LazyQuotes = true    // Allow bare quotes in non-quoted fields
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read headers: %w", err)
	}

	// Clean headers
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	t := &Table{Name: name, Headers: headers}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				t.Skipped++
				continue
			}
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		if len(record) > len(headers) {
			t.Skipped++
			continue
		}
		for len(record) < len(headers) {
			record = append(record, "")
		}
		t.Rows = append(t.Rows, record)
	}

	return t, nil
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the index of the named header, or -1
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns the raw cells of a column
func (t *Table) Column(colIdx int) []string {
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if colIdx < len(row) {
			values[i] = row[colIdx]
		}
	}
	return values
}

// IsMissing reports whether a cell carries no value
func IsMissing(cell string) bool {
	switch strings.TrimSpace(cell) {
	case "", "null", "NULL", "None", "NaN", "nan", "NA", "N/A", "n/a":
		return true
	}
	return false
}
