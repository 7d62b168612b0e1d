package export

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/sibrol/internal/domain/report"
)

// SummaryDocument is the JSON form of a run summary.
type SummaryDocument struct {
	RunID         string           `json:"run_id"`
	GeneratedAt   time.Time        `json:"generated_at"`
	Events        int              `json:"events"`
	Beneficiaries []report.Summary `json:"beneficiaries"`
}

// WriteSummaryJSON writes doc as indented JSON.
func WriteSummaryJSON(path string, doc SummaryDocument) error {
	if doc.Beneficiaries == nil {
		doc.Beneficiaries = []report.Summary{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // report files are meant to be shared
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
