// Package fetcher reads training tables from local files, HTTP(S) and FTP
// URLs, and members of ZIP archives, in CSV or XLSX format.
package fetcher

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote object.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Table is a header row plus string-valued data rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Index returns the position of column in the header, or -1. Matching
// ignores surrounding whitespace.
func (t *Table) Index(column string) int {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == column {
			return i
		}
	}
	return -1
}

// Value returns the cell at the given row and column index, or "" when the
// row is short.
func (t *Table) Value(row, col int) string {
	if col < 0 || row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// tableFromRecords splits records into a header and data rows.
func tableFromRecords(name string, records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, eris.Errorf("fetcher: table %s has no header row", name)
	}
	return &Table{Name: name, Header: records[0], Rows: records[1:]}, nil
}
