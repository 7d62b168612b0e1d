// Package export writes annotated service events and beneficiary summaries.
package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/sibrol/internal/domain/model"
	"github.com/okian/sibrol/internal/domain/report"
)

// HighlightColor fills rows whose procedure has no mandatory coverage.
const HighlightColor = "FF9999"

// DerivedColumns are appended to the original event columns.
var DerivedColumns = []string{
	"coverage_status",
	"coverage_note",
	"waiting_flag",
	"mapping_status",
	"standard_code",
	"equivalence_grade",
	"mandatory_coverage",
}

// SummaryColumns is the header of the summary export.
var SummaryColumns = []string{"beneficiary_id", "procedure_count", "overall_status", "standard_codes"}

// Format is an output file format.
type Format string

// Supported formats.
const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatOf picks the format from the path extension.
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// WriteOption configures WriteAnnotated.
type WriteOption func(*writeOptions)

type writeOptions struct {
	dateColumn string
}

// WithDateColumn names the original column holding the service start date.
// Events with a valid date get it written back as a date cell in xlsx and as
// ISO text in csv.
func WithDateColumn(name string) WriteOption {
	return func(o *writeOptions) {
		o.dateColumn = strings.TrimSpace(name)
	}
}

// WriteAnnotated writes header plus the derived columns and one row per event.
// In xlsx output, rows without mandatory coverage are highlighted.
func WriteAnnotated(path string, header []string, events []model.ServiceEvent, opts ...WriteOption) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	o := writeOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	cols := make([]string, 0, len(header)+len(DerivedColumns))
	cols = append(cols, header...)
	cols = append(cols, DerivedColumns...)

	data := sheetData{
		header:    cols,
		rows:      make([][]string, len(events)),
		highlight: make([]bool, len(events)),
		dateCol:   columnIndex(header, o.dateColumn),
	}
	if data.dateCol >= 0 {
		data.dates = make([]time.Time, len(events))
	}
	for i := range events {
		ev := &events[i]
		data.rows[i] = annotatedRow(ev, len(header))
		data.highlight[i] = ev.Mapping.MandatoryCoverage == model.MandatoryNo
		if data.dateCol >= 0 && ev.ServiceStartDate.Valid() {
			data.dates[i] = ev.ServiceStartDate.Time()
			data.rows[i][data.dateCol] = ev.ServiceStartDate.String()
		}
	}

	if format == FormatCSV {
		return writeCSV(path, cols, data.rows)
	}
	return writeXLSX(path, "annotated", data)
}

// columnIndex finds name in header, ignoring surrounding spaces and case.
// It returns -1 when name is blank or absent.
func columnIndex(header []string, name string) int {
	if name == "" {
		return -1
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// WriteSummary writes one row per beneficiary summary.
func WriteSummary(path string, summaries []report.Summary) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = []string{s.BeneficiaryID, fmt.Sprint(s.ProcedureCount), s.OverallStatus, s.StandardCodes}
	}

	if format == FormatCSV {
		return writeCSV(path, SummaryColumns, rows)
	}
	return writeXLSX(path, "summary", sheetData{header: SummaryColumns, rows: rows, dateCol: -1})
}

func annotatedRow(ev *model.ServiceEvent, width int) []string {
	row := make([]string, width, width+len(DerivedColumns))
	copy(row, ev.Values)
	return append(row,
		string(ev.Coverage.Status),
		ev.Coverage.Note,
		string(ev.Coverage.WaitingFlag),
		string(ev.Mapping.Status),
		ev.Mapping.StandardCode,
		ev.Mapping.EquivalenceGrade,
		string(ev.Mapping.MandatoryCoverage),
	)
}
