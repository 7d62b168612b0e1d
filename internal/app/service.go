// Package service wires the audit pipeline: it loads the lookup tables,
// annotates service events on the worker pool and writes the outputs.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/sibrol/internal/adapters/export"
	eventqueue "github.com/okian/sibrol/internal/adapters/mq/queue"
	workerpool "github.com/okian/sibrol/internal/adapters/mq/worker"
	"github.com/okian/sibrol/internal/adapters/registry"
	"github.com/okian/sibrol/internal/adapters/tabular"
	"github.com/okian/sibrol/internal/domain/coverage"
	"github.com/okian/sibrol/internal/domain/dedupe"
	"github.com/okian/sibrol/internal/domain/model"
	"github.com/okian/sibrol/internal/domain/report"
	"github.com/okian/sibrol/internal/domain/resolver"
	"github.com/okian/sibrol/internal/domain/terminology"
	"github.com/okian/sibrol/pkg/logger"
	"github.com/okian/sibrol/pkg/metrics"
)

// Sink receives every annotated run, e.g. a database table.
type Sink interface {
	SaveRun(ctx context.Context, runID string, events []model.ServiceEvent) (int64, error)
}

// Inputs names the lookup tables of an audit.
type Inputs struct {
	RegistryDir     string
	MappingPath     string
	CorrelationPath string
}

// Outputs names the files a run writes. Only Annotated and Summary are
// required; empty optional paths are skipped.
type Outputs struct {
	Annotated   string
	Summary     string
	Parquet     string
	SummaryJSON string
}

// RunResult describes a finished run.
type RunResult struct {
	RunID     string
	Events    int
	Active    int
	Inactive  int
	Stored    int64
	// Failed counts events whose annotation job returned an error.
	Failed int64
	// Narrated counts the distinct beneficiary and service date pairs whose
	// registry records were narrated, capped by the dedupe size.
	Narrated  int64
	Summaries []report.Summary
	Duration  time.Duration
}

// Service runs coverage audits.
type Service struct {
	mu sync.RWMutex

	// Configuration
	workerCount         int
	queueSize           int
	dedupeSize          int
	evaluator           *coverage.Evaluator
	layouts             []string
	eventColumns        tabular.EventColumns
	registryColumns     tabular.RegistryColumns
	mappingColumns      tabular.MappingColumns
	mappingSheet        string
	correlationCode     int
	correlationCoverage int
	affirmative         []string
	readAttempts        int
	readBackoff         time.Duration
	narrate             bool
	sink                Sink

	// Lookup tables, set by Load
	registry *registry.Directory
	resolver *resolver.Resolver
	mapper   *terminology.Mapper
	table    *terminology.CoverageTable

	// State
	runs      int
	lastRun   *RunResult
	annotated int64
	failed    int64

	logger  logger.Logger
	metrics *metrics.Manager
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:         1,
		queueSize:           1024,
		evaluator:           coverage.NewEvaluator(),
		eventColumns:        tabular.DefaultEventColumns,
		registryColumns:     tabular.DefaultRegistryColumns,
		mappingColumns:      tabular.DefaultMappingColumns,
		correlationCoverage: 2,
		affirmative:         terminology.DefaultAffirmative,
		readAttempts:        3,
		readBackoff:         200 * time.Millisecond,
		narrate:             true,
		logger:              logger.NewNop(),
		metrics:             metrics.Global(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the registry directory listing, the mapping sheet and the
// correlation table. It can be called again to swap the tables.
func (s *Service) Load(ctx context.Context, in Inputs) error {
	reg, err := registry.Open(in.RegistryDir,
		registry.WithColumns(s.registryColumns),
		registry.WithDateLayouts(s.layouts...),
		registry.WithRetry(s.readAttempts, s.readBackoff),
		registry.WithLogger(s.logger.Named("registry")),
		registry.WithMetrics(s.metrics),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadInput, err)
	}

	mt, err := tabular.ReadFile(in.MappingPath, tabular.WithSheet(s.mappingSheet))
	if err != nil {
		return fmt.Errorf("%w: mapping %s: %w", ErrLoadInput, in.MappingPath, err)
	}
	mrows, err := tabular.MappingRows(mt, s.mappingColumns)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoadInput, in.MappingPath, err)
	}

	ct, err := tabular.ReadFile(in.CorrelationPath)
	if err != nil {
		return fmt.Errorf("%w: correlation %s: %w", ErrLoadInput, in.CorrelationPath, err)
	}
	crows, err := tabular.CoverageRows(ct, s.correlationCode, s.correlationCoverage)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoadInput, in.CorrelationPath, err)
	}

	mapper := terminology.NewMapper(mrows, terminology.WithMapperMetrics(s.metrics))
	table := terminology.NewCoverageTable(crows,
		terminology.WithAffirmative(s.affirmative...),
		terminology.WithTableMetrics(s.metrics),
	)
	res := resolver.New(reg,
		resolver.WithEvaluator(s.evaluator),
		resolver.WithLogger(s.logger.Named("resolver")),
		resolver.WithMetrics(s.metrics),
		resolver.WithNarration(s.narrate),
	)

	s.mu.Lock()
	s.registry, s.resolver, s.mapper, s.table = reg, res, mapper, table
	s.mu.Unlock()

	s.logger.Info(ctx, "lookup tables loaded",
		logger.Int("registry_files", len(reg.Files())),
		logger.Int("mapped_codes", mapper.Len()),
		logger.Int("correlation_codes", table.Len()),
	)
	return nil
}

// Loaded reports whether Load succeeded.
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolver != nil
}

// ReadEvents reads the events file. The returned header is the original
// column order, kept for export.
func (s *Service) ReadEvents(ctx context.Context, path string) ([]string, []model.ServiceEvent, error) {
	t, err := tabular.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: events %s: %w", ErrLoadInput, path, err)
	}
	events, err := tabular.Events(t, s.eventColumns, s.layouts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrLoadInput, path, err)
	}
	s.metrics.RecordEventsRead(len(events))
	s.logger.Info(ctx, "events read", logger.String("path", path), logger.Int("events", len(events)))
	return t.Header, events, nil
}

// Annotate fills the coverage and mapping fields of every event in place.
// Results do not depend on the worker count. A cancelled ctx stops the run
// between events and its error is returned.
func (s *Service) Annotate(ctx context.Context, events []model.ServiceEvent) error {
	_, err := s.annotate(ctx, events)
	return err
}

// annotateStats is what one annotation pass reports back to Run.
type annotateStats struct {
	processed int64
	failed    int64
	narrated  int64
}

func (s *Service) annotate(ctx context.Context, events []model.ServiceEvent) (annotateStats, error) {
	s.mu.RLock()
	res, mapper, table := s.resolver, s.mapper, s.table
	s.mu.RUnlock()
	if res == nil {
		return annotateStats{}, ErrNotLoaded
	}

	seen := dedupe.NewSet(dedupe.WithMaxSize(s.dedupeSize))
	proc := workerpool.ProcessorFunc(func(ctx context.Context, job eventqueue.Job) error {
		if job.Event == nil {
			return fmt.Errorf("job %d has no event", job.Index)
		}
		job.Event.Coverage = res.Resolve(ctx, *job.Event, seen)
		job.Event.Mapping = terminology.Classify(mapper, table, job.Event.ProcedureCode)
		return nil
	})

	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	pool := workerpool.NewPool(s.workerCount, q, proc,
		workerpool.WithPoolLogger(s.logger),
		workerpool.WithPoolMetrics(s.metrics),
	)
	s.logger.Debug(ctx, "annotation pool started",
		logger.Int("workers", pool.Size()),
		logger.Int("queue_capacity", q.Capacity()),
		logger.Int("events", len(events)),
	)
	pool.Start(ctx)

	for i := range events {
		if !q.Enqueue(ctx, eventqueue.Job{Index: i, Event: &events[i]}) {
			break
		}
	}

	if ctx.Err() != nil {
		pending := q.Len(ctx)
		if err := pool.Shutdown(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn(ctx, "annotation pool shutdown", logger.Error(err))
		}
		pool.Wait()
		s.logger.Warn(ctx, "annotation cancelled",
			logger.Int("pending", pending),
			logger.Int("processed", int(pool.Processed())),
		)
	} else {
		_ = q.Close()
		pool.Wait()
	}

	stats := annotateStats{
		processed: pool.Processed(),
		failed:    pool.Failed(),
		narrated:  seen.Size(),
	}
	s.mu.Lock()
	s.annotated += stats.processed
	s.failed += stats.failed
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("annotate: %w", err)
	}
	if stats.failed > 0 {
		s.logger.Warn(ctx, "annotation jobs failed", logger.Int("failed", int(stats.failed)))
	}
	return stats, nil
}

// Run executes one audit: read, annotate, summarize, then write every
// configured output. Load must have been called.
func (s *Service) Run(ctx context.Context, eventsPath string, out Outputs) (RunResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := s.logger.With(logger.String("run_id", runID))
	log.Info(ctx, "audit started", logger.String("events", eventsPath), logger.Int("workers", s.workerCount))

	header, events, err := s.ReadEvents(ctx, eventsPath)
	if err != nil {
		s.metrics.RecordError("service", "read_events")
		return RunResult{}, err
	}
	annotated, err := s.annotate(ctx, events)
	if err != nil {
		return RunResult{}, err
	}

	summaries := report.Summarize(events)
	s.metrics.UpdateBeneficiaryCount(len(summaries))
	if s.narrate {
		report.Narrate(ctx, log.Named("report"), events)
	}

	if err := s.export(ctx, runID, header, events, summaries, out); err != nil {
		s.metrics.RecordError("service", "export")
		return RunResult{}, err
	}

	result := RunResult{
		RunID:     runID,
		Events:    len(events),
		Failed:    annotated.failed,
		Narrated:  annotated.narrated,
		Summaries: summaries,
	}
	for i := range events {
		if events[i].Coverage.Status == model.StatusActive {
			result.Active++
		} else {
			result.Inactive++
		}
	}

	if s.sink != nil {
		n, err := s.sink.SaveRun(ctx, runID, events)
		if err != nil {
			s.metrics.RecordError("service", "store")
			return RunResult{}, fmt.Errorf("store run %s: %w", runID, err)
		}
		result.Stored = n
		s.metrics.RecordExport("postgres")
	}

	result.Duration = time.Since(start)
	s.metrics.RecordRunDuration(result.Duration.Seconds())

	s.mu.Lock()
	s.runs++
	s.lastRun = &result
	s.mu.Unlock()

	log.Info(ctx, "audit finished",
		logger.Int("events", result.Events),
		logger.Int("active", result.Active),
		logger.Int("inactive", result.Inactive),
		logger.Int("beneficiaries", len(summaries)),
		logger.Duration("took", result.Duration),
	)
	return result, nil
}

func (s *Service) export(ctx context.Context, runID string, header []string, events []model.ServiceEvent, summaries []report.Summary, out Outputs) error {
	if err := export.WriteAnnotated(out.Annotated, header, events,
		export.WithDateColumn(s.eventColumns.ServiceStartDate),
	); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExport, out.Annotated, err)
	}
	s.metrics.RecordExport("annotated")

	if err := export.WriteSummary(out.Summary, summaries); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExport, out.Summary, err)
	}
	s.metrics.RecordExport("summary")

	if out.Parquet != "" {
		if err := export.WriteParquet(out.Parquet, runID, events); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrExport, out.Parquet, err)
		}
		s.metrics.RecordExport("parquet")
	}

	if out.SummaryJSON != "" {
		doc := export.SummaryDocument{
			RunID:         runID,
			GeneratedAt:   time.Now().UTC(),
			Events:        len(events),
			Beneficiaries: summaries,
		}
		if err := export.WriteSummaryJSON(out.SummaryJSON, doc); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrExport, out.SummaryJSON, err)
		}
		s.metrics.RecordExport("summary_json")
	}

	s.logger.Info(ctx, "outputs written",
		logger.String("annotated", out.Annotated),
		logger.String("summary", out.Summary),
	)
	return nil
}

// Evaluate classifies one timeline with the configured windows.
func (s *Service) Evaluate(_ context.Context, in coverage.Input) coverage.Result {
	res := s.evaluator.Evaluate(in)
	s.metrics.RecordEvaluation(string(res.Status), res.Rule, string(res.WaitingFlag))
	return res
}

// AnnotateEvents annotates events already in memory and summarizes them.
func (s *Service) AnnotateEvents(ctx context.Context, events []model.ServiceEvent) ([]report.Summary, error) {
	for i := range events {
		events[i].Index = i
	}
	if err := s.Annotate(ctx, events); err != nil {
		return nil, err
	}
	return report.Summarize(events), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"loaded":      s.resolver != nil,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"runs":        s.runs,
		"annotated":   s.annotated,
		"failed":      s.failed,
	}
	if s.registry != nil {
		stats["registryFiles"] = len(s.registry.Files())
		stats["registryPeriodsLoaded"] = s.registry.Loaded()
		stats["mappedCodes"] = s.mapper.Len()
		stats["correlationCodes"] = s.table.Len()
	}
	if s.lastRun != nil {
		stats["lastRun"] = map[string]interface{}{
			"runId":         s.lastRun.RunID,
			"events":        s.lastRun.Events,
			"active":        s.lastRun.Active,
			"inactive":      s.lastRun.Inactive,
			"beneficiaries": len(s.lastRun.Summaries),
			"failed":        s.lastRun.Failed,
			"narrated":      s.lastRun.Narrated,
			"durationMs":    s.lastRun.Duration.Milliseconds(),
		}
	}
	return stats
}
