// Package resolver finds the contract records of a service event's beneficiary
// in the period registry and derives the event's coverage from them.
package resolver

import (
	"context"
	"errors"

	"github.com/okian/sibrol/internal/domain/coverage"
	"github.com/okian/sibrol/internal/domain/dedupe"
	"github.com/okian/sibrol/internal/domain/model"
	"github.com/okian/sibrol/pkg/logger"
	"github.com/okian/sibrol/pkg/metrics"
)

// Notes for events that never reach the coverage rules.
const (
	NoteMissingServiceDate = "service start date missing or invalid"
	NoteNoRegistryFile     = "no registry file for this period"
	NoteNoRecord           = "no registry record found"
	NoteRegistryUnreadable = "registry file could not be read"
)

// Rule names for the lookup failures, reported next to the coverage rules.
const (
	RuleMissingServiceDate = "missing_service_date"
	RuleNoRegistryFile     = "no_registry_file"
	RuleNoRecord           = "no_record"
	RuleRegistryError      = "registry_error"
)

// Registry lookup outcomes used as metric labels.
const (
	lookupFound    = metrics.LookupFound
	lookupNoFile   = metrics.LookupNoFile
	lookupNoRecord = metrics.LookupNoRecord
	lookupError    = metrics.LookupError
)

// RegistrySource gives access to the period registries.
type RegistrySource interface {
	// Records returns the contract records of beneficiaryID in the registry of
	// period ("MMYYYY"), in registry order. It returns ErrPeriodNotFound when
	// no registry covers the period.
	Records(ctx context.Context, period, beneficiaryID string) ([]model.ContractRecord, error)
}

// Resolver derives the coverage of service events. It is safe for concurrent
// use as long as its RegistrySource is.
type Resolver struct {
	source    RegistrySource
	evaluator *coverage.Evaluator
	logger    logger.Logger
	metrics   *metrics.Manager
	narrate   bool
}

// New creates a Resolver reading contract records from source.
func New(source RegistrySource, opts ...Option) *Resolver {
	r := &Resolver{
		source:    source,
		evaluator: coverage.NewEvaluator(),
		logger:    logger.NewNop(),
		metrics:   metrics.Global(),
		narrate:   true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the coverage of ev. It never fails: lookup problems become an
// INACTIVE coverage with an explanatory note.
//
// When several records match, each one is evaluated in registry order and the
// last evaluation is kept.
//
// Narration is logged once per (beneficiary, service date) pair recorded in
// seen. A nil seen narrates every call.
func (r *Resolver) Resolve(ctx context.Context, ev model.ServiceEvent, seen dedupe.Set) model.Coverage {
	log := r.logger.With(
		logger.String("beneficiary", ev.BeneficiaryID),
		logger.String("service_date", ev.ServiceStartDate.String()),
	)

	if ev.ServiceStartDate.IsZero() {
		log.Warn(ctx, "service start date missing or invalid", logger.Int("row", ev.Index))
		return r.inactive(NoteMissingServiceDate, RuleMissingServiceDate)
	}

	period := ev.ServiceStartDate.Period()
	records, err := r.source.Records(ctx, period, ev.BeneficiaryID)
	switch {
	case errors.Is(err, ErrPeriodNotFound):
		r.metrics.RecordRegistryLookup(lookupNoFile)
		log.Warn(ctx, "no registry file for period", logger.String("period", period))
		return r.inactive(NoteNoRegistryFile, RuleNoRegistryFile)
	case err != nil:
		r.metrics.RecordRegistryLookup(lookupError)
		r.metrics.RecordError("resolver", "registry_read")
		log.Error(ctx, "registry file could not be read", logger.String("period", period), logger.Error(err))
		return r.inactive(NoteRegistryUnreadable, RuleRegistryError)
	case len(records) == 0:
		r.metrics.RecordRegistryLookup(lookupNoRecord)
		log.Debug(ctx, "no registry record found", logger.String("period", period))
		return r.inactive(NoteNoRecord, RuleNoRecord)
	}
	r.metrics.RecordRegistryLookup(lookupFound)

	narrate := r.narrate && (seen == nil || !seen.SeenAndRecord(ctx, dedupe.Key(ev.BeneficiaryID, ev.ServiceStartDate)))

	var res coverage.Result
	for _, rec := range records {
		res = r.evaluator.Evaluate(coverage.Input{
			Contracting:  rec.ContractingDate,
			Cancellation: rec.CancellationDate,
			Reactivation: rec.ReactivationDate,
			Service:      ev.ServiceStartDate,
		})
		if narrate {
			log.Info(ctx, "contract record evaluated",
				logger.Int("registry_line", rec.Line),
				logger.String("contracting_date", rec.ContractingDate.String()),
				logger.String("cancellation_date", rec.CancellationDate.String()),
				logger.String("reactivation_date", rec.ReactivationDate.String()),
				logger.String("status", string(res.Status)),
				logger.String("note", res.Note),
				logger.String("waiting_flag", string(res.WaitingFlag)),
			)
		}
	}

	r.metrics.RecordEvaluation(string(res.Status), res.Rule, string(res.WaitingFlag))
	return model.Coverage{
		Status:      res.Status,
		Note:        res.Note,
		WaitingFlag: res.WaitingFlag,
		Rule:        res.Rule,
	}
}

func (r *Resolver) inactive(note, rule string) model.Coverage {
	r.metrics.RecordEvaluation(string(model.StatusInactive), rule, "")
	return model.Coverage{Status: model.StatusInactive, Note: note, WaitingFlag: model.FlagNone, Rule: rule}
}
