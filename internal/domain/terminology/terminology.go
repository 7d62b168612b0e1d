// Package terminology maps internal procedure codes to the standardized
// terminology and checks whether standardized codes have mandatory coverage.
package terminology

import (
	"strings"

	"github.com/okian/sibrol/internal/domain/model"
	"github.com/okian/sibrol/pkg/metrics"
)

// MappingRow is one row of the procedure mapping reference table.
type MappingRow struct {
	SourceCode       string
	StandardCode     string
	EquivalenceGrade string
}

// Entry is one standardized target of a source code.
type Entry struct {
	StandardCode     string
	EquivalenceGrade string
}

// Mapper looks up the standardized code of a procedure. It is read-only after
// construction and safe for concurrent use.
type Mapper struct {
	entries map[string][]Entry
	metrics *metrics.Manager
}

// MapperOption applies a configuration option to the Mapper.
type MapperOption func(*Mapper)

// WithMapperMetrics sets the metrics manager.
func WithMapperMetrics(m *metrics.Manager) MapperOption {
	return func(mp *Mapper) {
		if m != nil {
			mp.metrics = m
		}
	}
}

// NewMapper indexes rows in order. Rows with a blank source code or a blank
// equivalence grade are ignored.
func NewMapper(rows []MappingRow, opts ...MapperOption) *Mapper {
	m := &Mapper{
		entries: make(map[string][]Entry),
		metrics: metrics.Global(),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, row := range rows {
		src := model.NormalizeID(row.SourceCode)
		grade := strings.TrimSpace(row.EquivalenceGrade)
		if src == "" || grade == "" {
			continue
		}
		m.entries[src] = append(m.entries[src], Entry{
			StandardCode:     model.NormalizeID(row.StandardCode),
			EquivalenceGrade: grade,
		})
	}
	return m
}

// Len returns the number of distinct source codes.
func (m *Mapper) Len() int { return len(m.entries) }

// Map resolves code to its first standardized target. MandatoryCoverage is
// left for the CoverageTable.
func (m *Mapper) Map(code string) model.Mapping {
	code = model.NormalizeID(code)
	var out model.Mapping
	switch entries := m.entries[code]; {
	case code == "":
		out = model.Mapping{Status: model.MappingEmptyCode, StandardCode: model.NotFound, EquivalenceGrade: model.NotFound}
	case len(entries) == 0:
		out = model.Mapping{Status: model.MappingUnmapped, StandardCode: model.NotFound, EquivalenceGrade: model.NotFound}
	default:
		out = model.Mapping{Status: model.MappingMapped, StandardCode: entries[0].StandardCode, EquivalenceGrade: entries[0].EquivalenceGrade}
	}
	m.metrics.RecordMapping(string(out.Status))
	return out
}
