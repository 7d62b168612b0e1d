package resolver

import (
	"github.com/okian/sibrol/internal/domain/coverage"
	"github.com/okian/sibrol/pkg/logger"
	"github.com/okian/sibrol/pkg/metrics"
)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithEvaluator replaces the default coverage evaluator.
func WithEvaluator(e *coverage.Evaluator) Option {
	return func(r *Resolver) {
		if e != nil {
			r.evaluator = e
		}
	}
}

// WithLogger sets the logger used for narration and lookup failures.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(r *Resolver) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithNarration turns per-record narration on or off.
func WithNarration(enabled bool) Option {
	return func(r *Resolver) {
		r.narrate = enabled
	}
}
