// Package tabular reads spreadsheets and delimited text files into string
// tables and converts them into domain records.
package tabular

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Table is a header plus data rows. Rows may be shorter than the header.
type Table struct {
	Header []string
	Rows   [][]string

	// Display is aligned with Rows and holds the cells as a workbook shows
	// them. It is nil for delimited files, whose text is already the display.
	Display [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of the named column. Surrounding spaces are
// ignored on both sides; an exact match is preferred over a case-insensitive one.
func (t *Table) Index(name string) (int, error) {
	want := strings.TrimSpace(name)
	fold := -1
	for i, h := range t.Header {
		h = strings.TrimSpace(h)
		if h == want {
			return i, nil
		}
		if fold < 0 && strings.EqualFold(h, want) {
			fold = i
		}
	}
	if fold >= 0 {
		return fold, nil
	}
	return -1, fmt.Errorf("%w: %q", ErrMissingColumn, want)
}

// Indexes resolves every name and reports all missing ones at once.
func (t *Table) Indexes(names ...string) ([]int, error) {
	out := make([]int, len(names))
	var missing []string
	for i, n := range names {
		idx, err := t.Index(n)
		if err != nil {
			missing = append(missing, fmt.Sprintf("%q", strings.TrimSpace(n)))
		}
		out[i] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return out, nil
}

// RowValues returns row i as displayed in the source file.
func (t *Table) RowValues(i int) []string {
	if t.Display != nil && i < len(t.Display) {
		return t.Display[i]
	}
	return t.Rows[i]
}

// Cell returns the trimmed value at row, col or "" when the row is short.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// ReadFile reads path according to its extension: xlsx/xlsm through excelize,
// csv/txt/tsv as delimited text.
func ReadFile(path string, opts ...Option) (*Table, error) {
	o := readOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return readXLSX(path, o.sheet)
	case ".csv", ".txt", ".tsv":
		return readDelimitedFile(path, o.delimiter)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
