package export_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"github.com/okian/sibrol/internal/adapters/export"
	"github.com/okian/sibrol/internal/adapters/tabular"
	"github.com/okian/sibrol/internal/domain/model"
	"github.com/okian/sibrol/internal/domain/report"
)

func annotatedEvents() ([]string, []model.ServiceEvent) {
	header := []string{"codigoBeneficiario", "dataInicioAtendimento", "codigoProcedimento"}
	return header, []model.ServiceEvent{
		{
			Index:            0,
			BeneficiaryID:    "1",
			ServiceStartDate: model.NewDate(2023, time.June, 1),
			ProcedureCode:    "0301010072",
			Values:           []string{"1", "2023-06-01", "0301010072"},
			Coverage:         model.Coverage{Status: model.StatusActive, Note: "valid contract, within CPT window", WaitingFlag: model.FlagCPT, Rule: "valid_contract"},
			Mapping:          model.Mapping{Status: model.MappingMapped, StandardCode: "10101012", EquivalenceGrade: "1", MandatoryCoverage: model.MandatoryYes},
		},
		{
			Index:         1,
			BeneficiaryID: "2",
			Values:        []string{"2", "", ""},
			Coverage:      model.Coverage{Status: model.StatusInactive, Note: "service start date missing or invalid"},
			Mapping:       model.Mapping{Status: model.MappingEmptyCode, StandardCode: model.NotFound, EquivalenceGrade: model.NotFound, MandatoryCoverage: model.MandatoryNo},
		},
	}
}

func TestFormatOf(t *testing.T) {
	Convey("Given output paths", t, func() {
		f, err := export.FormatOf("out/Result.XLSX")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, export.FormatXLSX)

		f, err = export.FormatOf("out.csv")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, export.FormatCSV)

		_, err = export.FormatOf("out.ods")
		So(errors.Is(err, export.ErrUnsupportedFormat), ShouldBeTrue)
	})
}

func TestWriteAnnotatedXLSX(t *testing.T) {
	Convey("Given annotated events written to a workbook", t, func() {
		header, events := annotatedEvents()
		path := filepath.Join(t.TempDir(), "out.xlsx")
		So(export.WriteAnnotated(path, header, events), ShouldBeNil)

		f, err := excelize.OpenFile(path)
		So(err, ShouldBeNil)
		defer f.Close()
		sheet := f.GetSheetName(0)
		rows, err := f.GetRows(sheet)
		So(err, ShouldBeNil)

		Convey("Then original and derived columns are present", func() {
			So(rows, ShouldHaveLength, 3)
			So(rows[0], ShouldHaveLength, len(header)+len(export.DerivedColumns))
			So(rows[0][3], ShouldEqual, "coverage_status")
			So(rows[1][3], ShouldEqual, "ACTIVE")
			So(rows[1][5], ShouldEqual, "possible CPT")
			So(rows[1][9], ShouldEqual, "yes")
			So(rows[2][7], ShouldEqual, model.NotFound)
		})

		Convey("Then only rows without mandatory coverage are highlighted", func() {
			plain, err := f.GetCellStyle(sheet, "A2")
			So(err, ShouldBeNil)
			So(plain, ShouldEqual, 0)

			id, err := f.GetCellStyle(sheet, "J3")
			So(err, ShouldBeNil)
			style, err := f.GetStyle(id)
			So(err, ShouldBeNil)
			So(style.Fill.Color, ShouldNotBeEmpty)
			So(style.Fill.Color[0], ShouldEndWith, export.HighlightColor)
		})
	})
}

func TestWriteAnnotatedWorkbookRoundTrip(t *testing.T) {
	Convey("Given an events workbook with a real date cell", t, func() {
		dir := t.TempDir()
		in := filepath.Join(dir, "eventos.xlsx")
		wb := excelize.NewFile()
		sheet := wb.GetSheetName(0)
		So(wb.SetSheetRow(sheet, "A1", &[]any{"codigoBeneficiario", "dataInicioAtendimento", "codigoProcedimento"}), ShouldBeNil)
		So(wb.SetSheetRow(sheet, "A2", &[]any{1001, time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), "0301010072"}), ShouldBeNil)
		So(wb.SaveAs(in), ShouldBeNil)
		So(wb.Close(), ShouldBeNil)

		tbl, err := tabular.ReadFile(in)
		So(err, ShouldBeNil)
		events, err := tabular.Events(tbl, tabular.DefaultEventColumns)
		So(err, ShouldBeNil)
		So(events[0].ServiceStartDate, ShouldResemble, model.NewDate(2023, time.June, 1))

		Convey("When the annotated workbook is written", func() {
			out := filepath.Join(dir, "saida.xlsx")
			So(export.WriteAnnotated(out, tbl.Header, events,
				export.WithDateColumn(tabular.DefaultEventColumns.ServiceStartDate)), ShouldBeNil)

			f, err := excelize.OpenFile(out)
			So(err, ShouldBeNil)
			defer f.Close()
			name := f.GetSheetName(0)

			Convey("Then the service date is a date cell", func() {
				id, err := f.GetCellStyle(name, "B2")
				So(err, ShouldBeNil)
				style, err := f.GetStyle(id)
				So(err, ShouldBeNil)
				So(style.NumFmt, ShouldEqual, 14)

				raw, err := f.GetCellValue(name, "B2", excelize.Options{RawCellValue: true})
				So(err, ShouldBeNil)
				So(raw, ShouldEqual, "45078")
			})

			Convey("Then reading it back yields the same date", func() {
				back, err := tabular.ReadFile(out)
				So(err, ShouldBeNil)
				again, err := tabular.Events(back, tabular.DefaultEventColumns)
				So(err, ShouldBeNil)
				So(again[0].ServiceStartDate, ShouldResemble, events[0].ServiceStartDate)
				So(again[0].BeneficiaryID, ShouldEqual, "1001")
			})
		})

		Convey("When the annotated events are written as csv", func() {
			out := filepath.Join(dir, "saida.csv")
			So(export.WriteAnnotated(out, tbl.Header, events,
				export.WithDateColumn("DATAINICIOATENDIMENTO ")), ShouldBeNil)

			data, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			So(lines[1], ShouldStartWith, "1001,2023-06-01,0301010072,")
		})
	})
}

func TestWriteAnnotatedCSV(t *testing.T) {
	Convey("Given annotated events written as csv", t, func() {
		header, events := annotatedEvents()
		path := filepath.Join(t.TempDir(), "out.csv")
		So(export.WriteAnnotated(path, header, events), ShouldBeNil)

		data, err := os.ReadFile(path)
		So(err, ShouldBeNil)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")

		So(lines, ShouldHaveLength, 3)
		So(lines[0], ShouldEqual, strings.Join(append(header, export.DerivedColumns...), ","))
		So(lines[2], ShouldStartWith, "2,,,INACTIVE,service start date missing or invalid,")
	})

	Convey("Given an unsupported output path", t, func() {
		header, events := annotatedEvents()
		err := export.WriteAnnotated(filepath.Join(t.TempDir(), "out.json"), header, events)
		So(errors.Is(err, export.ErrUnsupportedFormat), ShouldBeTrue)
	})
}

func TestWriteSummary(t *testing.T) {
	Convey("Given beneficiary summaries", t, func() {
		summaries := []report.Summary{
			{BeneficiaryID: "1", ProcedureCount: 2, OverallStatus: report.Mixed, StandardCodes: "A (yes), B (no)"},
		}

		Convey("When written to a workbook", func() {
			path := filepath.Join(t.TempDir(), "resumo_beneficiarios.xlsx")
			So(export.WriteSummary(path, summaries), ShouldBeNil)

			f, err := excelize.OpenFile(path)
			So(err, ShouldBeNil)
			defer f.Close()
			rows, err := f.GetRows(f.GetSheetName(0))
			So(err, ShouldBeNil)

			So(rows[0], ShouldResemble, export.SummaryColumns)
			So(rows[1], ShouldResemble, []string{"1", "2", report.Mixed, "A (yes), B (no)"})
		})

		Convey("When written as csv", func() {
			path := filepath.Join(t.TempDir(), "summary.csv")
			So(export.WriteSummary(path, summaries), ShouldBeNil)

			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `1,2,MIXED — review individually,"A (yes), B (no)"`)
		})
	})
}

func TestWriteParquet(t *testing.T) {
	Convey("Given annotated events written as parquet", t, func() {
		_, events := annotatedEvents()
		path := filepath.Join(t.TempDir(), "out.parquet")
		So(export.WriteParquet(path, "run-1", events), ShouldBeNil)

		records, err := parquet.ReadFile[export.AnnotatedRecord](path)

		Convey("Then every event reads back in order", func() {
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 2)
			So(records[0].RunID, ShouldEqual, "run-1")
			So(records[0].Row, ShouldEqual, 1)
			So(records[0].ServiceStartDate, ShouldEqual, "2023-06-01")
			So(records[0].Rule, ShouldEqual, "valid_contract")
			So(records[1].MandatoryCoverage, ShouldEqual, "no")
		})
	})
}

func TestWriteSummaryJSON(t *testing.T) {
	Convey("Given a summary document", t, func() {
		path := filepath.Join(t.TempDir(), "summary.json")
		doc := export.SummaryDocument{
			RunID:         "run-1",
			GeneratedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			Events:        3,
			Beneficiaries: []report.Summary{{BeneficiaryID: "1", ProcedureCount: 3, OverallStatus: "ACTIVE"}},
		}
		So(export.WriteSummaryJSON(path, doc), ShouldBeNil)

		data, err := os.ReadFile(path)
		So(err, ShouldBeNil)
		var got export.SummaryDocument
		So(json.Unmarshal(data, &got), ShouldBeNil)

		So(got.RunID, ShouldEqual, "run-1")
		So(got.Events, ShouldEqual, 3)
		So(got.Beneficiaries[0].ProcedureCount, ShouldEqual, 3)
		So(string(data), ShouldContainSubstring, `"overall_status": "ACTIVE"`)
	})

	Convey("Given an empty summary", t, func() {
		path := filepath.Join(t.TempDir(), "empty.json")
		So(export.WriteSummaryJSON(path, export.SummaryDocument{RunID: "r"}), ShouldBeNil)

		data, err := os.ReadFile(path)
		So(err, ShouldBeNil)
		So(string(data), ShouldContainSubstring, `"beneficiaries": []`)
	})
}
