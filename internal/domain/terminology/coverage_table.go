package terminology

import (
	"strings"

	"github.com/okian/sibrol/internal/domain/model"
	"github.com/okian/sibrol/pkg/metrics"
)

// DefaultAffirmative are the table values meaning "mandatory coverage". The
// reference tables are published in Portuguese.
var DefaultAffirmative = []string{"yes", "SIM"}

// CoverageRow is one row of the mandatory coverage reference table.
type CoverageRow struct {
	StandardCode string
	Coverage     string
}

// CoverageTable answers whether a standardized code has mandatory coverage.
type CoverageTable struct {
	values      map[string]string
	affirmative map[string]struct{}
	metrics     *metrics.Manager
}

// TableOption applies a configuration option to the CoverageTable.
type TableOption func(*CoverageTable)

// WithAffirmative replaces the values that count as "yes". Matching is exact.
func WithAffirmative(tokens ...string) TableOption {
	return func(t *CoverageTable) {
		if len(tokens) == 0 {
			return
		}
		t.affirmative = make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			t.affirmative[tok] = struct{}{}
		}
	}
}

// WithTableMetrics sets the metrics manager.
func WithTableMetrics(m *metrics.Manager) TableOption {
	return func(t *CoverageTable) {
		if m != nil {
			t.metrics = m
		}
	}
}

// NewCoverageTable indexes rows. A code listed twice keeps its first value.
func NewCoverageTable(rows []CoverageRow, opts ...TableOption) *CoverageTable {
	t := &CoverageTable{
		values:  make(map[string]string, len(rows)),
		metrics: metrics.Global(),
	}
	WithAffirmative(DefaultAffirmative...)(t)
	for _, opt := range opts {
		opt(t)
	}
	for _, row := range rows {
		code := model.NormalizeID(row.StandardCode)
		if code == "" {
			continue
		}
		if _, dup := t.values[code]; !dup {
			t.values[code] = strings.TrimSpace(row.Coverage)
		}
	}
	return t
}

// Len returns the number of codes in the table.
func (t *CoverageTable) Len() int { return len(t.values) }

// Check returns MandatoryYes only when the table value of standardCode is an
// affirmative token. Misses are MandatoryNo.
func (t *CoverageTable) Check(standardCode string) model.MandatoryCoverage {
	res := model.MandatoryNo
	if v, ok := t.values[model.NormalizeID(standardCode)]; ok {
		if _, yes := t.affirmative[v]; yes {
			res = model.MandatoryYes
		}
	}
	t.metrics.RecordMandatoryCoverage(string(res))
	return res
}

// Classify maps code and checks the mandatory coverage of its standardized code.
func Classify(m *Mapper, t *CoverageTable, code string) model.Mapping {
	out := m.Map(code)
	out.MandatoryCoverage = t.Check(out.StandardCode)
	return out
}
