// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/okian/sibrol/internal/domain/model"
	"github.com/okian/sibrol/internal/domain/report"
)

// Annotator defines the dependencies of the annotate endpoint.
type Annotator interface {
	AnnotateEvents(ctx context.Context, events []model.ServiceEvent) ([]report.Summary, error)
	Loaded() bool
}

type annotateEvent struct {
	BeneficiaryID    string `json:"beneficiary_id"`
	ServiceStartDate string `json:"service_start_date"`
	ProcedureCode    string `json:"procedure_code"`
}

type annotateRequest struct {
	Events []annotateEvent `json:"events"`
}

type annotatedEvent struct {
	BeneficiaryID     string `json:"beneficiary_id"`
	ServiceStartDate  string `json:"service_start_date"`
	ProcedureCode     string `json:"procedure_code"`
	CoverageStatus    string `json:"coverage_status"`
	CoverageNote      string `json:"coverage_note"`
	WaitingFlag       string `json:"waiting_flag"`
	MappingStatus     string `json:"mapping_status"`
	StandardCode      string `json:"standard_code"`
	EquivalenceGrade  string `json:"equivalence_grade"`
	MandatoryCoverage string `json:"mandatory_coverage"`
}

type annotateResponse struct {
	Events  []annotatedEvent `json:"events"`
	Summary []report.Summary `json:"summary"`
}

// AnnotateHandler handles annotate requests.
type AnnotateHandler struct {
	deps      Annotator
	layouts   []string
	maxEvents int
}

// NewAnnotateHandler creates a new annotate handler.
func NewAnnotateHandler(deps Annotator, layouts []string, maxEvents int) *AnnotateHandler {
	return &AnnotateHandler{deps: deps, layouts: layouts, maxEvents: maxEvents}
}

// HandleAnnotate handles POST /annotate requests.
func (h *AnnotateHandler) HandleAnnotate(w http.ResponseWriter, r *http.Request) {
	const op = "api.annotate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if !h.deps.Loaded() {
		writeError(w, http.StatusServiceUnavailable, "unavailable",
			WrapKind(op, ErrUnavailable, errors.New("registry, mapping and correlation inputs are not configured")))
		return
	}

	var req annotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if h.maxEvents > 0 && len(req.Events) > h.maxEvents {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, fmt.Errorf("at most %d events per request", h.maxEvents)))
		return
	}

	events := make([]model.ServiceEvent, len(req.Events))
	for i, e := range req.Events {
		events[i] = model.ServiceEvent{
			Index:            i,
			BeneficiaryID:    model.NormalizeID(e.BeneficiaryID),
			ServiceStartDate: model.ParseDate(e.ServiceStartDate, h.layouts...),
			ProcedureCode:    model.NormalizeID(e.ProcedureCode),
		}
	}

	summaries, err := h.deps.AnnotateEvents(r.Context(), events)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
		return
	}

	resp := annotateResponse{
		Events:  make([]annotatedEvent, len(events)),
		Summary: summaries,
	}
	if resp.Summary == nil {
		resp.Summary = []report.Summary{}
	}
	for i := range events {
		ev := &events[i]
		resp.Events[i] = annotatedEvent{
			BeneficiaryID:     ev.BeneficiaryID,
			ServiceStartDate:  ev.ServiceStartDate.String(),
			ProcedureCode:     ev.ProcedureCode,
			CoverageStatus:    string(ev.Coverage.Status),
			CoverageNote:      ev.Coverage.Note,
			WaitingFlag:       string(ev.Coverage.WaitingFlag),
			MappingStatus:     string(ev.Mapping.Status),
			StandardCode:      ev.Mapping.StandardCode,
			EquivalenceGrade:  ev.Mapping.EquivalenceGrade,
			MandatoryCoverage: string(ev.Mapping.MandatoryCoverage),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
