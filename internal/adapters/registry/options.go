package registry

import (
	"time"

	"github.com/okian/sibrol/internal/adapters/tabular"
	"github.com/okian/sibrol/pkg/logger"
	"github.com/okian/sibrol/pkg/metrics"
)

// Option applies a configuration option to the Directory.
type Option func(*Directory)

// WithColumns sets the registry column names.
func WithColumns(cols tabular.RegistryColumns) Option {
	return func(d *Directory) {
		d.columns = cols
	}
}

// WithDateLayouts sets the layouts used to parse registry dates.
func WithDateLayouts(layouts ...string) Option {
	return func(d *Directory) {
		if len(layouts) > 0 {
			d.layouts = layouts
		}
	}
}

// WithExtensions sets the file extensions considered registry files.
func WithExtensions(exts ...string) Option {
	return func(d *Directory) {
		if len(exts) > 0 {
			d.extensions = exts
		}
	}
}

// WithRetry sets how many times a period file is read and the base backoff
// between attempts. The n-th retry waits n*backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(d *Directory) {
		if attempts > 0 {
			d.attempts = attempts
		}
		if backoff >= 0 {
			d.backoff = backoff
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Directory) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(d *Directory) {
		if m != nil {
			d.metrics = m
		}
	}
}
