package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// dateNumFmt is the built-in short date format.
const dateNumFmt = 14

// sheetData is one worksheet to write. dates, when set, is aligned with rows
// and overrides column dateCol with a date cell for non-zero entries.
type sheetData struct {
	header    []string
	rows      [][]string
	highlight []bool
	dateCol   int
	dates     []time.Time
}

// rowStyles are the style ids of one row: plain cells and date cells.
type rowStyles struct {
	cell int
	date int
}

// writeXLSX writes one sheet. Rows flagged in highlight get the highlight fill
// across every column.
func writeXLSX(path, sheet string, data sheetData) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	fill := excelize.Fill{Type: "pattern", Color: []string{HighlightColor}, Pattern: 1}
	var plain, highlighted rowStyles
	if highlighted.cell, err = f.NewStyle(&excelize.Style{Fill: fill}); err != nil {
		return fmt.Errorf("highlight style: %w", err)
	}
	if plain.date, err = f.NewStyle(&excelize.Style{NumFmt: dateNumFmt}); err != nil {
		return fmt.Errorf("date style: %w", err)
	}
	if highlighted.date, err = f.NewStyle(&excelize.Style{NumFmt: dateNumFmt, Fill: fill}); err != nil {
		return fmt.Errorf("highlight date style: %w", err)
	}

	if err := sw.SetRow("A1", cells(data.header, rowStyles{}, -1, time.Time{})); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range data.rows {
		styles := plain
		if i < len(data.highlight) && data.highlight[i] {
			styles = highlighted
		}
		var date time.Time
		if i < len(data.dates) {
			date = data.dates[i]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells(row, styles, data.dateCol, date)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func cells(values []string, styles rowStyles, dateCol int, date time.Time) []any {
	out := make([]any, len(values))
	for i, v := range values {
		switch {
		case i == dateCol && !date.IsZero():
			out[i] = excelize.Cell{StyleID: styles.date, Value: date}
		case styles.cell != 0:
			out[i] = excelize.Cell{StyleID: styles.cell, Value: v}
		default:
			out[i] = v
		}
	}
	return out
}
