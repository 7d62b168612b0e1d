// Package coverage decides whether a beneficiary was covered on a service date
// and whether the service falls inside a waiting period (carência) or
// pre-existing condition (CPT) window.
//
// Rules are applied in strict priority and the first one that fires wins:
//
//  1. stale reactivation: the cancellation is later than the recorded
//     reactivation and the service began after that cancellation.
//  2. never cancelled nor reactivated: contract started on or before the service.
//  3. reactivated on or before the service. A gap longer than the reactivation
//     grace (30 days) restarts the windows at the reactivation date, otherwise
//     the contract is treated as continuous and windows keep the contracting date.
//  4. contract started on or before the service and the service is not after
//     the cancellation.
//  5. nothing matched: INACTIVE.
//
// A rule whose precondition does not hold falls through to the next one.
package coverage

import (
	"fmt"

	"github.com/okian/sibrol/internal/domain/model"
)

// Default restriction windows.
const (
	defaultWaitingPeriodMonths = 6
	defaultCPTMonths           = 24
	defaultReactivationGrace   = 30
)

// Rule names reported in Result.Rule and used as metric labels.
const (
	RuleStaleReactivation  = "stale_reactivation"
	RuleNoCancellation     = "no_cancellation"
	RuleReactivated        = "reactivated"
	RuleReactivatedInGrace = "reactivated_in_grace"
	RuleValidContract      = "valid_contract"
	RuleDefault            = "default"
)

// Notes attached to results without a window suffix.
const (
	NoteAfterCancellation = "service began after cancellation date"
	NoteNoCondition       = "no condition satisfied"
)

// Note prefixes for the ACTIVE branches.
const (
	prefixNoCancellation     = "no cancellation/reactivation"
	prefixReactivated        = "reactivated"
	prefixReactivatedInGrace = "reactivated within %d days of cancellation"
	prefixValidContract      = "valid contract"
)

// Window suffixes appended to the ACTIVE notes.
const (
	suffixWaitingPeriod = "within waiting period window"
	suffixCPT           = "within CPT window"
	suffixOutside       = "outside waiting period and CPT windows"
)

// Input is the contract timeline plus the service date under evaluation.
type Input struct {
	Contracting  model.Date
	Cancellation model.Date
	Reactivation model.Date
	Service      model.Date
}

// Result is the outcome of one evaluation.
type Result struct {
	Status      model.CoverageStatus
	Note        string
	WaitingFlag model.WaitingFlag
	Rule        string
}

// Active reports whether the result is ACTIVE.
func (r Result) Active() bool { return r.Status == model.StatusActive }

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithWaitingPeriod sets the waiting period length in calendar months.
func WithWaitingPeriod(months int) Option {
	return func(e *Evaluator) {
		if months > 0 {
			e.waitingMonths = months
		}
	}
}

// WithCPTPeriod sets the CPT window length in calendar months.
func WithCPTPeriod(months int) Option {
	return func(e *Evaluator) {
		if months > 0 {
			e.cptMonths = months
		}
	}
}

// WithReactivationGrace sets how many days may separate a cancellation from a
// reactivation while the contract still counts as continuous.
func WithReactivationGrace(days int) Option {
	return func(e *Evaluator) {
		if days >= 0 {
			e.graceDays = days
		}
	}
}

// Evaluator applies the coverage rules. It holds only immutable settings and is
// safe for concurrent use.
type Evaluator struct {
	waitingMonths int
	cptMonths     int
	graceDays     int
}

// NewEvaluator creates an Evaluator with the regulatory defaults
// (6 months waiting period, 2 years CPT, 30 days reactivation grace).
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		waitingMonths: defaultWaitingPeriodMonths,
		cptMonths:     defaultCPTMonths,
		graceDays:     defaultReactivationGrace,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEvaluator = NewEvaluator()

// Evaluate classifies a service date against a contract timeline using the
// default windows. Absent dates are zero model.Date values.
func Evaluate(contracting, cancellation, reactivation, service model.Date) Result {
	return defaultEvaluator.Evaluate(Input{
		Contracting:  contracting,
		Cancellation: cancellation,
		Reactivation: reactivation,
		Service:      service,
	})
}

// Evaluate classifies in. It never fails: inputs that satisfy no rule are INACTIVE.
func (e *Evaluator) Evaluate(in Input) Result {
	if in.Service.IsZero() {
		return inactive(NoteNoCondition, RuleDefault)
	}

	if in.Cancellation.Valid() && in.Reactivation.Valid() &&
		in.Cancellation.After(in.Reactivation) && in.Service.After(in.Cancellation) {
		return inactive(NoteAfterCancellation, RuleStaleReactivation)
	}

	if in.Cancellation.IsZero() && in.Reactivation.IsZero() && startedBy(in.Contracting, in.Service) {
		return e.active(prefixNoCancellation, RuleNoCancellation, in.Contracting, in.Service)
	}

	if in.Reactivation.Valid() && !in.Reactivation.After(in.Service) {
		if in.Cancellation.Valid() && in.Cancellation.Before(in.Reactivation.AddDays(-e.graceDays)) {
			return e.active(prefixReactivated, RuleReactivated, in.Reactivation, in.Service)
		}
		prefix := fmt.Sprintf(prefixReactivatedInGrace, e.graceDays)
		return e.active(prefix, RuleReactivatedInGrace, in.Contracting, in.Service)
	}

	if startedBy(in.Contracting, in.Service) &&
		(in.Cancellation.IsZero() || !in.Service.After(in.Cancellation)) {
		return e.active(prefixValidContract, RuleValidContract, in.Contracting, in.Service)
	}

	return inactive(NoteNoCondition, RuleDefault)
}

// active builds an ACTIVE result whose windows are anchored at anchor. An absent
// anchor cannot place the service inside any window.
func (e *Evaluator) active(prefix, rule string, anchor, service model.Date) Result {
	flag, suffix := model.FlagNone, suffixOutside
	switch {
	case anchor.IsZero():
	case !service.After(anchor.AddMonths(e.waitingMonths)):
		flag, suffix = model.FlagWaitingPeriodOrCPT, suffixWaitingPeriod
	case !service.After(anchor.AddMonths(e.cptMonths)):
		flag, suffix = model.FlagCPT, suffixCPT
	}
	return Result{
		Status:      model.StatusActive,
		Note:        prefix + ", " + suffix,
		WaitingFlag: flag,
		Rule:        rule,
	}
}

func inactive(note, rule string) Result {
	return Result{Status: model.StatusInactive, Note: note, WaitingFlag: model.FlagNone, Rule: rule}
}

// startedBy reports whether a present contracting date is on or before service.
func startedBy(contracting, service model.Date) bool {
	return contracting.Valid() && !contracting.After(service)
}
