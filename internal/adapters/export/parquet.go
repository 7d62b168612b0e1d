package export

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/okian/sibrol/internal/domain/model"
)

// AnnotatedRecord is the columnar form of an annotated event.
type AnnotatedRecord struct {
	RunID             string `parquet:"run_id"`
	Row               int32  `parquet:"row"`
	BeneficiaryID     string `parquet:"beneficiary_id"`
	ServiceStartDate  string `parquet:"service_start_date"`
	ProcedureCode     string `parquet:"procedure_code"`
	CoverageStatus    string `parquet:"coverage_status"`
	CoverageNote      string `parquet:"coverage_note"`
	WaitingFlag       string `parquet:"waiting_flag"`
	Rule              string `parquet:"rule"`
	MappingStatus     string `parquet:"mapping_status"`
	StandardCode      string `parquet:"standard_code"`
	EquivalenceGrade  string `parquet:"equivalence_grade"`
	MandatoryCoverage string `parquet:"mandatory_coverage"`
}

// Records converts events to their columnar form.
func Records(runID string, events []model.ServiceEvent) []AnnotatedRecord {
	out := make([]AnnotatedRecord, len(events))
	for i := range events {
		ev := &events[i]
		out[i] = AnnotatedRecord{
			RunID:             runID,
			Row:               int32(ev.Index + 1),
			BeneficiaryID:     ev.BeneficiaryID,
			ServiceStartDate:  ev.ServiceStartDate.String(),
			ProcedureCode:     ev.ProcedureCode,
			CoverageStatus:    string(ev.Coverage.Status),
			CoverageNote:      ev.Coverage.Note,
			WaitingFlag:       string(ev.Coverage.WaitingFlag),
			Rule:              ev.Coverage.Rule,
			MappingStatus:     string(ev.Mapping.Status),
			StandardCode:      ev.Mapping.StandardCode,
			EquivalenceGrade:  ev.Mapping.EquivalenceGrade,
			MandatoryCoverage: string(ev.Mapping.MandatoryCoverage),
		}
	}
	return out
}

// WriteParquet writes the annotated events as a snappy compressed parquet file.
func WriteParquet(path, runID string, events []model.ServiceEvent) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[AnnotatedRecord](file,
		parquet.Compression(&parquet.Snappy),
	)
	if _, err := writer.Write(Records(runID, events)); err != nil {
		file.Close()
		return fmt.Errorf("failed to write parquet records: %w", err)
	}
	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return file.Close()
}
