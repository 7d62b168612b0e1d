// Package registry serves contract records from a directory of period
// registry files whose names carry the period as "MMYYYY".
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/sibrol/internal/adapters/tabular"
	"github.com/okian/sibrol/internal/domain/model"
	"github.com/okian/sibrol/internal/domain/resolver"
	"github.com/okian/sibrol/pkg/logger"
	"github.com/okian/sibrol/pkg/metrics"
)

// Default registry settings.
const (
	defaultAttempts = 3
	defaultBackoff  = 200 * time.Millisecond
)

var _ resolver.RegistrySource = (*Directory)(nil)

// period is one registry file. Records are grouped by beneficiary and keep
// file order. Once done is set, byID and err never change.
type period struct {
	mu    sync.Mutex
	done  atomic.Bool
	path  string
	byID  map[string][]model.ContractRecord
	count int
	err   error
}

// Directory is a read-through cache over a registry directory. Each period
// file is loaded once; a load cut short by the caller's context is not kept,
// so the next caller loads it again. Safe for concurrent use.
type Directory struct {
	dir        string
	files      []string
	extensions []string
	columns    tabular.RegistryColumns
	layouts    []string
	attempts   int
	backoff    time.Duration
	logger     logger.Logger
	metrics    *metrics.Manager

	mu      sync.Mutex
	periods map[string]*period
}

// Open lists the registry files of dir. Files are matched later, on first use
// of their period.
func Open(dir string, opts ...Option) (*Directory, error) {
	d := &Directory{
		dir:        dir,
		extensions: []string{".txt", ".csv", ".tsv", ".xlsx"},
		columns:    tabular.DefaultRegistryColumns,
		attempts:   defaultAttempts,
		backoff:    defaultBackoff,
		logger:     logger.NewNop(),
		metrics:    metrics.Global(),
		periods:    make(map[string]*period),
	}
	for _, opt := range opts {
		opt(d)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrReadDirectory, dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(d.extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			d.files = append(d.files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(d.files)

	d.logger.Info(context.Background(), "registry directory opened",
		logger.String("dir", dir),
		logger.Int("files", len(d.files)),
	)
	return d, nil
}

// Files returns the discovered registry files in name order.
func (d *Directory) Files() []string {
	return slices.Clone(d.files)
}

// FileFor returns the first file whose name contains period.
func (d *Directory) FileFor(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	for _, f := range d.files {
		if strings.Contains(filepath.Base(f), p) {
			return f, true
		}
	}
	return "", false
}

// Records returns the records of beneficiaryID in the registry of period p, in
// file order. An unknown beneficiary yields no records and no error.
func (d *Directory) Records(ctx context.Context, p, beneficiaryID string) ([]model.ContractRecord, error) {
	per, err := d.load(ctx, p)
	if err != nil {
		return nil, err
	}
	return per.byID[model.NormalizeID(beneficiaryID)], nil
}

// Loaded returns the number of period files loaded so far, failed ones included.
func (d *Directory) Loaded() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, per := range d.periods {
		if per.done.Load() {
			n++
		}
	}
	return n
}

func (d *Directory) load(ctx context.Context, p string) (*period, error) {
	path, ok := d.FileFor(p)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPeriodNotFound, p)
	}

	d.mu.Lock()
	per, ok := d.periods[path]
	if !ok {
		per = &period{path: path}
		d.periods[path] = per
	}
	d.mu.Unlock()

	per.mu.Lock()
	defer per.mu.Unlock()
	if per.done.Load() {
		return per, per.err
	}

	start := time.Now()
	err := d.read(ctx, per)
	d.metrics.RecordRegistryLoad(float64(time.Since(start).Milliseconds()))
	if cancelled(err) {
		return nil, err
	}
	per.err = err
	per.done.Store(true)
	if err == nil {
		d.logger.Info(ctx, "registry period loaded",
			logger.String("period", p),
			logger.String("file", path),
			logger.Int("records", per.count),
		)
	}
	return per, err
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (d *Directory) read(ctx context.Context, per *period) error {
	var lastErr error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		if attempt > 1 {
			d.metrics.RecordRegistryRetry()
			d.logger.Warn(ctx, "retrying registry read",
				logger.String("file", per.path),
				logger.Int("attempt", attempt),
				logger.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w %s: %w", ErrLoadPeriod, per.path, ctx.Err())
			case <-time.After(time.Duration(attempt-1) * d.backoff):
			}
		}

		t, err := tabular.ReadFile(per.path)
		if err != nil {
			lastErr = err
			continue
		}
		records, err := tabular.Records(t, d.columns, d.layouts...)
		if err != nil {
			// A malformed header will not fix itself.
			return fmt.Errorf("%w %s: %w", ErrLoadPeriod, per.path, err)
		}

		per.byID = make(map[string][]model.ContractRecord)
		for _, r := range records {
			per.byID[r.BeneficiaryID] = append(per.byID[r.BeneficiaryID], r)
		}
		per.count = len(records)
		return nil
	}
	d.metrics.RecordError("registry", "load_error")
	return fmt.Errorf("%w %s after %d attempts: %w", ErrLoadPeriod, per.path, d.attempts, lastErr)
}
