package tabular

import (
	"fmt"
	"slices"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads one worksheet. Rows hold the raw cell values, so dates come
// back as serial day numbers for model.ParseDate. Display holds the same cells
// as the workbook formats them.
func readXLSX(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if sheet == "" {
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
		}
		sheet = sheets[0]
	} else if !slices.Contains(sheets, sheet) {
		return nil, fmt.Errorf("%w: %q in %s", ErrMissingSheet, sheet, path)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, path, err)
	}

	display, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, path, err)
	}

	var t *Table
	for i, row := range rows {
		if blank(row) {
			continue
		}
		if t == nil {
			t = &Table{Header: row, Display: [][]string{}}
			continue
		}
		t.Rows = append(t.Rows, row)
		if i < len(display) {
			t.Display = append(t.Display, display[i])
		} else {
			t.Display = append(t.Display, row)
		}
	}
	if t == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	return t, nil
}
