package tabular

import (
	"fmt"

	"github.com/okian/sibrol/internal/domain/model"
	"github.com/okian/sibrol/internal/domain/terminology"
)

// EventColumns names the columns of the service events file.
type EventColumns struct {
	BeneficiaryID    string `koanf:"beneficiary_id"`
	ServiceStartDate string `koanf:"service_start_date"`
	ProcedureCode    string `koanf:"procedure_code"`
}

// RegistryColumns names the columns of a period registry file.
type RegistryColumns struct {
	BeneficiaryID    string `koanf:"beneficiary_id"`
	ContractingDate  string `koanf:"contracting_date"`
	CancellationDate string `koanf:"cancellation_date"`
	ReactivationDate string `koanf:"reactivation_date"`
}

// MappingColumns names the columns of the procedure mapping sheet.
type MappingColumns struct {
	SourceCode       string `koanf:"source_code"`
	StandardCode     string `koanf:"standard_code"`
	EquivalenceGrade string `koanf:"equivalence_grade"`
}

// Default column names of the files published by the regulator.
var (
	DefaultEventColumns = EventColumns{
		BeneficiaryID:    "codigoBeneficiario",
		ServiceStartDate: "dataInicioAtendimento",
		ProcedureCode:    "codigoProcedimento",
	}
	DefaultRegistryColumns = RegistryColumns{
		BeneficiaryID:    "codigoBeneficiario",
		ContractingDate:  "dataContratacao",
		CancellationDate: "dataCancelamento",
		ReactivationDate: "dataReativacao",
	}
	DefaultMappingColumns = MappingColumns{
		SourceCode:       "Código Sigtap Final",
		StandardCode:     "Código TUSS",
		EquivalenceGrade: "Grau de equivalencia",
	}
)

// Events converts t into service events. The procedure code column may be
// missing, in which case every event has a blank code.
func Events(t *Table, cols EventColumns, layouts ...string) ([]model.ServiceEvent, error) {
	idx, err := t.Indexes(cols.BeneficiaryID, cols.ServiceStartDate)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	procIdx, _ := t.Index(cols.ProcedureCode)

	out := make([]model.ServiceEvent, len(t.Rows))
	for i := range t.Rows {
		out[i] = model.ServiceEvent{
			Index:            i,
			BeneficiaryID:    model.NormalizeID(t.Cell(i, idx[0])),
			ServiceStartDate: model.ParseDate(t.Cell(i, idx[1]), layouts...),
			ProcedureCode:    model.NormalizeID(t.Cell(i, procIdx)),
			Header:           t.Header,
			Values:           padded(t.RowValues(i), len(t.Header)),
		}
	}
	return out, nil
}

// Records converts t into contract records keeping file order. Missing date
// columns leave the corresponding dates absent.
func Records(t *Table, cols RegistryColumns, layouts ...string) ([]model.ContractRecord, error) {
	idIdx, err := t.Index(cols.BeneficiaryID)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	contIdx, _ := t.Index(cols.ContractingDate)
	cancIdx, _ := t.Index(cols.CancellationDate)
	reacIdx, _ := t.Index(cols.ReactivationDate)

	out := make([]model.ContractRecord, len(t.Rows))
	for i := range t.Rows {
		out[i] = model.ContractRecord{
			BeneficiaryID:    model.NormalizeID(t.Cell(i, idIdx)),
			ContractingDate:  model.ParseDate(t.Cell(i, contIdx), layouts...),
			CancellationDate: model.ParseDate(t.Cell(i, cancIdx), layouts...),
			ReactivationDate: model.ParseDate(t.Cell(i, reacIdx), layouts...),
			Line:             i + 1,
		}
	}
	return out, nil
}

// MappingRows converts the mapping sheet. All three columns are required.
func MappingRows(t *Table, cols MappingColumns) ([]terminology.MappingRow, error) {
	idx, err := t.Indexes(cols.SourceCode, cols.StandardCode, cols.EquivalenceGrade)
	if err != nil {
		return nil, fmt.Errorf("mapping: %w", err)
	}
	out := make([]terminology.MappingRow, len(t.Rows))
	for i := range t.Rows {
		out[i] = terminology.MappingRow{
			SourceCode:       t.Cell(i, idx[0]),
			StandardCode:     t.Cell(i, idx[1]),
			EquivalenceGrade: t.Cell(i, idx[2]),
		}
	}
	return out, nil
}

// CoverageRows converts the correlation table, whose columns are positional.
func CoverageRows(t *Table, codeCol, coverageCol int) ([]terminology.CoverageRow, error) {
	for _, c := range []int{codeCol, coverageCol} {
		if c < 0 || c >= len(t.Header) {
			return nil, fmt.Errorf("correlation: %w: position %d of %d", ErrMissingColumn, c, len(t.Header))
		}
	}
	out := make([]terminology.CoverageRow, len(t.Rows))
	for i := range t.Rows {
		out[i] = terminology.CoverageRow{
			StandardCode: t.Cell(i, codeCol),
			Coverage:     t.Cell(i, coverageCol),
		}
	}
	return out, nil
}

func padded(row []string, n int) []string {
	out := make([]string, max(n, len(row)))
	copy(out, row)
	return out
}
