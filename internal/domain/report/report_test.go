package report_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/okian/sibrol/internal/domain/model"
	"github.com/okian/sibrol/internal/domain/report"
	"github.com/okian/sibrol/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func event(id string, status model.CoverageStatus, code string, mandatory model.MandatoryCoverage) model.ServiceEvent {
	return model.ServiceEvent{
		BeneficiaryID: id,
		ProcedureCode: code,
		Coverage:      model.Coverage{Status: status},
		Mapping:       model.Mapping{Status: model.MappingMapped, StandardCode: code, MandatoryCoverage: mandatory},
	}
}

func TestSummarize(t *testing.T) {
	Convey("Given annotated events of three beneficiaries", t, func() {
		events := []model.ServiceEvent{
			event("B", model.StatusActive, "10101012", model.MandatoryYes),
			event("A", model.StatusActive, "20101015", model.MandatoryNo),
			event("B", model.StatusInactive, model.NotFound, model.MandatoryNo),
			event("C", model.StatusInactive, "30101018", model.MandatoryYes),
			event("A", model.StatusActive, "20101015", model.MandatoryNo),
		}

		got := report.Summarize(events)

		Convey("Then beneficiaries keep their first-appearance order", func() {
			So(got, ShouldHaveLength, 3)
			So(got[0].BeneficiaryID, ShouldEqual, "B")
			So(got[1].BeneficiaryID, ShouldEqual, "A")
			So(got[2].BeneficiaryID, ShouldEqual, "C")
		})

		Convey("Then disagreeing statuses are mixed", func() {
			So(got[0].OverallStatus, ShouldEqual, "MIXED — review individually")
			So(got[1].OverallStatus, ShouldEqual, "ACTIVE")
			So(got[2].OverallStatus, ShouldEqual, "INACTIVE")
		})

		Convey("Then procedures are counted and listed with their coverage", func() {
			So(got[0].ProcedureCount, ShouldEqual, 2)
			So(got[0].StandardCodes, ShouldEqual, "10101012 (yes), not found (no)")
			So(got[1].StandardCodes, ShouldEqual, "20101015 (no), 20101015 (no)")
		})
	})

	Convey("Given no events", t, func() {
		So(report.Summarize(nil), ShouldBeEmpty)
	})
}

func TestNarrate(t *testing.T) {
	Convey("Given annotated events", t, func() {
		var buf bytes.Buffer
		log, err := logger.New(&buf, logger.FormatText)
		So(err, ShouldBeNil)

		report.Narrate(context.Background(), log, []model.ServiceEvent{
			event("B", model.StatusActive, "1", model.MandatoryYes),
			event("A", model.StatusActive, "2", model.MandatoryNo),
			event("B", model.StatusActive, "3", model.MandatoryNo),
		})

		Convey("Then each beneficiary is reported once with all its procedures", func() {
			out := buf.String()
			So(strings.Count(out, "msg=\"beneficiary report\""), ShouldEqual, 2)
			So(strings.Count(out, "msg=procedure"), ShouldEqual, 3)
			So(strings.Index(out, "beneficiary=B"), ShouldBeLessThan, strings.Index(out, "beneficiary=A"))
		})
	})
}
