// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/okian/sibrol/internal/domain/coverage"
	"github.com/okian/sibrol/internal/domain/model"
)

// Evaluator defines the dependency of the evaluate endpoint.
type Evaluator interface {
	Evaluate(ctx context.Context, in coverage.Input) coverage.Result
}

// evaluateRequest is the body of POST /evaluate. Blank or unparseable dates
// are absent.
type evaluateRequest struct {
	ContractingDate  string `json:"contracting_date"`
	CancellationDate string `json:"cancellation_date"`
	ReactivationDate string `json:"reactivation_date"`
	ServiceStartDate string `json:"service_start_date"`
}

func (e evaluateRequest) validate() error {
	if strings.TrimSpace(e.ServiceStartDate) == "" {
		return errors.New("missing service_start_date")
	}
	return nil
}

type evaluateResponse struct {
	Status      string `json:"status"`
	Note        string `json:"note"`
	WaitingFlag string `json:"waiting_flag"`
	Rule        string `json:"rule"`
}

// EvaluateHandler handles evaluation requests.
type EvaluateHandler struct {
	deps    Evaluator
	layouts []string
}

// NewEvaluateHandler creates a new evaluate handler.
func NewEvaluateHandler(deps Evaluator, layouts []string) *EvaluateHandler {
	return &EvaluateHandler{deps: deps, layouts: layouts}
}

// HandleEvaluate handles POST /evaluate requests.
func (h *EvaluateHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res := h.deps.Evaluate(r.Context(), coverage.Input{
		Contracting:  model.ParseDate(req.ContractingDate, h.layouts...),
		Cancellation: model.ParseDate(req.CancellationDate, h.layouts...),
		Reactivation: model.ParseDate(req.ReactivationDate, h.layouts...),
		Service:      model.ParseDate(req.ServiceStartDate, h.layouts...),
	})
	writeJSON(w, http.StatusOK, evaluateResponse{
		Status:      string(res.Status),
		Note:        res.Note,
		WaitingFlag: string(res.WaitingFlag),
		Rule:        res.Rule,
	})
}
