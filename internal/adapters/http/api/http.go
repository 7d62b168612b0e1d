// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/okian/sibrol/internal/domain/coverage"
	"github.com/okian/sibrol/internal/domain/model"
	"github.com/okian/sibrol/internal/domain/report"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Evaluate classifies one contract timeline.
	Evaluate(ctx context.Context, in coverage.Input) coverage.Result

	// AnnotateEvents fills coverage and mapping of events in place and
	// returns the per-beneficiary summary.
	AnnotateEvents(ctx context.Context, events []model.ServiceEvent) ([]report.Summary, error)

	// Loaded reports whether the registry and terminology tables are available.
	Loaded() bool
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithDateLayouts sets the layouts request dates are parsed with.
func WithDateLayouts(layouts ...string) Option {
	return func(s *Server) {
		if len(layouts) > 0 {
			s.layouts = layouts
		}
	}
}

// WithMaxEvents caps the number of events of one annotate request.
func WithMaxEvents(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxEvents = n
		}
	}
}

const defaultMaxEvents = 10_000

// Server wires HTTP routes for the audit API.
type Server struct {
	layouts   []string
	maxEvents int

	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	evaluateHandler *EvaluateHandler
	annotateHandler *AnnotateHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{maxEvents: defaultMaxEvents}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.evaluateHandler = NewEvaluateHandler(deps, s.layouts)
	s.annotateHandler = NewAnnotateHandler(deps, s.layouts, s.maxEvents)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/evaluate", MetricsMiddleware(s.evaluateHandler.HandleEvaluate, "evaluate"))
	mux.HandleFunc("/annotate", MetricsMiddleware(s.annotateHandler.HandleAnnotate, "annotate"))
	mux.Handle("/metrics", MetricsHandler())
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
