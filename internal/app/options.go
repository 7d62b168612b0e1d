package service

import (
	"time"

	"github.com/okian/sibrol/internal/adapters/tabular"
	"github.com/okian/sibrol/internal/config"
	"github.com/okian/sibrol/internal/domain/coverage"
	"github.com/okian/sibrol/pkg/logger"
	"github.com/okian/sibrol/pkg/metrics"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of evaluation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the evaluation queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the per-run narration set. Zero keeps every key.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithWindows sets the waiting period and CPT lengths in months and the
// reactivation grace in days.
func WithWindows(waitingMonths, cptMonths, graceDays int) Option {
	return func(s *Service) {
		s.evaluator = coverage.NewEvaluator(
			coverage.WithWaitingPeriod(waitingMonths),
			coverage.WithCPTPeriod(cptMonths),
			coverage.WithReactivationGrace(graceDays),
		)
	}
}

// WithDateLayouts replaces the date layouts tried on every input file.
func WithDateLayouts(layouts ...string) Option {
	return func(s *Service) {
		if len(layouts) > 0 {
			s.layouts = layouts
		}
	}
}

// WithEventColumns sets the column names of the events file.
func WithEventColumns(cols tabular.EventColumns) Option {
	return func(s *Service) { s.eventColumns = cols }
}

// WithRegistryColumns sets the column names of the registry files.
func WithRegistryColumns(cols tabular.RegistryColumns) Option {
	return func(s *Service) { s.registryColumns = cols }
}

// WithMappingColumns sets the column names of the mapping sheet.
func WithMappingColumns(cols tabular.MappingColumns) Option {
	return func(s *Service) { s.mappingColumns = cols }
}

// WithMappingSheet selects the worksheet of an xlsx mapping file.
func WithMappingSheet(name string) Option {
	return func(s *Service) { s.mappingSheet = name }
}

// WithCorrelationColumns sets the zero-based positions of the code and
// coverage columns of the correlation table.
func WithCorrelationColumns(code, coverage int) Option {
	return func(s *Service) {
		if code >= 0 && coverage >= 0 {
			s.correlationCode, s.correlationCoverage = code, coverage
		}
	}
}

// WithAffirmative sets the correlation values read as mandatory coverage.
func WithAffirmative(tokens ...string) Option {
	return func(s *Service) {
		if len(tokens) > 0 {
			s.affirmative = tokens
		}
	}
}

// WithRegistryRetry sets how often a registry file read is attempted.
func WithRegistryRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		s.readAttempts, s.readBackoff = attempts, backoff
	}
}

// WithNarration toggles the per-record and per-beneficiary log lines.
func WithNarration(enabled bool) Option {
	return func(s *Service) { s.narrate = enabled }
}

// WithSink stores every annotated run in sink.
func WithSink(sink Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// FromConfig translates cfg into service options.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.EventQueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithWindows(cfg.WaitingPeriodMonths, cfg.CPTMonths, cfg.ReactivationGraceDays),
		WithDateLayouts(cfg.DateLayouts...),
		WithEventColumns(cfg.EventColumns),
		WithRegistryColumns(cfg.RegistryColumns),
		WithMappingColumns(cfg.MappingColumns),
		WithMappingSheet(cfg.MappingSheet),
		WithCorrelationColumns(cfg.CorrelationCodeCol, cfg.CorrelationCoverageCol),
		WithAffirmative(cfg.Affirmative...),
		WithRegistryRetry(cfg.RegistryReadAttempts, cfg.RegistryRetryBackoff),
		WithNarration(cfg.Narrate),
	}
}
