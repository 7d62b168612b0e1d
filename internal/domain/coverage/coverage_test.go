package coverage_test

import (
	"testing"
	"time"

	"github.com/okian/sibrol/internal/domain/coverage"
	"github.com/okian/sibrol/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func d(y int, m time.Month, day int) model.Date { return model.NewDate(y, m, day) }

var none model.Date

func TestEvaluateNoCancellation(t *testing.T) {
	Convey("Given a contract that was never cancelled nor reactivated", t, func() {
		contracting := d(2023, time.January, 1)

		Convey("When the service is on the last day of the waiting period", func() {
			r := coverage.Evaluate(contracting, none, none, d(2023, time.July, 1))

			So(r.Status, ShouldEqual, model.StatusActive)
			So(r.WaitingFlag, ShouldEqual, model.FlagWaitingPeriodOrCPT)
			So(r.Rule, ShouldEqual, coverage.RuleNoCancellation)
			So(r.Note, ShouldEqual, "no cancellation/reactivation, within waiting period window")
		})

		Convey("When the service is the day after the waiting period", func() {
			r := coverage.Evaluate(contracting, none, none, d(2023, time.July, 2))

			So(r.WaitingFlag, ShouldEqual, model.FlagCPT)
			So(r.Note, ShouldEqual, "no cancellation/reactivation, within CPT window")
		})

		Convey("When the service is on the last day of the CPT window", func() {
			r := coverage.Evaluate(contracting, none, none, d(2025, time.January, 1))
			So(r.WaitingFlag, ShouldEqual, model.FlagCPT)
		})

		Convey("When the service is past both windows", func() {
			r := coverage.Evaluate(contracting, none, none, d(2025, time.January, 2))

			So(r.Status, ShouldEqual, model.StatusActive)
			So(r.WaitingFlag, ShouldEqual, model.FlagNone)
			So(r.Note, ShouldEqual, "no cancellation/reactivation, outside waiting period and CPT windows")
		})

		Convey("When the service happens on the contracting date", func() {
			r := coverage.Evaluate(contracting, none, none, contracting)
			So(r.Status, ShouldEqual, model.StatusActive)
			So(r.WaitingFlag, ShouldEqual, model.FlagWaitingPeriodOrCPT)
		})

		Convey("When the service predates the contract", func() {
			r := coverage.Evaluate(contracting, none, none, d(2022, time.December, 31))

			So(r.Status, ShouldEqual, model.StatusInactive)
			So(r.Note, ShouldEqual, coverage.NoteNoCondition)
			So(r.Rule, ShouldEqual, coverage.RuleDefault)
		})
	})
}

func TestEvaluateEndOfMonthWindows(t *testing.T) {
	Convey("Given contracts signed on the last day of a month", t, func() {
		Convey("Then Jan 31 plus six months ends on Jul 31", func() {
			c := d(2023, time.January, 31)
			So(coverage.Evaluate(c, none, none, d(2023, time.July, 31)).WaitingFlag, ShouldEqual, model.FlagWaitingPeriodOrCPT)
			So(coverage.Evaluate(c, none, none, d(2023, time.August, 1)).WaitingFlag, ShouldEqual, model.FlagCPT)
		})

		Convey("Then Aug 31 plus six months clamps to the end of February", func() {
			c := d(2023, time.August, 31)
			So(coverage.Evaluate(c, none, none, d(2024, time.February, 29)).WaitingFlag, ShouldEqual, model.FlagWaitingPeriodOrCPT)
			So(coverage.Evaluate(c, none, none, d(2024, time.March, 1)).WaitingFlag, ShouldEqual, model.FlagCPT)
		})

		Convey("Then a leap-day contract ends its CPT window on Feb 28", func() {
			c := d(2020, time.February, 29)
			So(coverage.Evaluate(c, none, none, d(2022, time.February, 28)).WaitingFlag, ShouldEqual, model.FlagCPT)
			So(coverage.Evaluate(c, none, none, d(2022, time.March, 1)).WaitingFlag, ShouldEqual, model.FlagNone)
		})
	})
}

func TestEvaluateReactivation(t *testing.T) {
	Convey("Given a cancelled and later reactivated contract", t, func() {
		contracting := d(2020, time.January, 1)
		cancellation := d(2023, time.January, 1)

		Convey("When reactivation follows the cancellation within the grace period", func() {
			r := coverage.Evaluate(contracting, cancellation, d(2023, time.January, 20), d(2023, time.June, 1))

			So(r.Status, ShouldEqual, model.StatusActive)
			So(r.WaitingFlag, ShouldEqual, model.FlagNone)
			So(r.Rule, ShouldEqual, coverage.RuleReactivatedInGrace)
			So(r.Note, ShouldEqual, "reactivated within 30 days of cancellation, outside waiting period and CPT windows")
		})

		Convey("When the gap is exactly the grace period the contract stays continuous", func() {
			r := coverage.Evaluate(contracting, cancellation, d(2023, time.January, 31), d(2023, time.February, 10))

			So(r.Rule, ShouldEqual, coverage.RuleReactivatedInGrace)
			So(r.WaitingFlag, ShouldEqual, model.FlagNone)
		})

		Convey("When the gap exceeds the grace period the windows restart at reactivation", func() {
			r := coverage.Evaluate(contracting, cancellation, d(2023, time.March, 1), d(2023, time.April, 1))

			So(r.Status, ShouldEqual, model.StatusActive)
			So(r.WaitingFlag, ShouldEqual, model.FlagWaitingPeriodOrCPT)
			So(r.Rule, ShouldEqual, coverage.RuleReactivated)
			So(r.Note, ShouldEqual, "reactivated, within waiting period window")
		})

		Convey("When the service is on the reactivation date", func() {
			react := d(2023, time.March, 1)
			r := coverage.Evaluate(contracting, cancellation, react, react)
			So(r.Rule, ShouldEqual, coverage.RuleReactivated)
		})

		Convey("When the reactivation is later than the service the next rule applies", func() {
			r := coverage.Evaluate(contracting, d(2023, time.July, 1), d(2023, time.August, 1), d(2023, time.June, 1))

			So(r.Status, ShouldEqual, model.StatusActive)
			So(r.Rule, ShouldEqual, coverage.RuleValidContract)
			So(r.Note, ShouldEqual, "valid contract, outside waiting period and CPT windows")
		})

		Convey("When the contracting date is missing the windows cannot apply", func() {
			r := coverage.Evaluate(none, none, d(2023, time.January, 1), d(2023, time.February, 1))

			So(r.Status, ShouldEqual, model.StatusActive)
			So(r.Rule, ShouldEqual, coverage.RuleReactivatedInGrace)
			So(r.WaitingFlag, ShouldEqual, model.FlagNone)
		})
	})
}

func TestEvaluateStaleReactivation(t *testing.T) {
	Convey("Given a cancellation recorded after the last reactivation", t, func() {
		contracting := d(2020, time.January, 1)
		reactivation := d(2023, time.January, 1)
		cancellation := d(2023, time.May, 1)

		Convey("When the service began after the cancellation", func() {
			r := coverage.Evaluate(contracting, cancellation, reactivation, d(2023, time.June, 1))

			So(r.Status, ShouldEqual, model.StatusInactive)
			So(r.Note, ShouldEqual, coverage.NoteAfterCancellation)
			So(r.Rule, ShouldEqual, coverage.RuleStaleReactivation)
			So(r.WaitingFlag, ShouldEqual, model.FlagNone)
		})

		Convey("When the service is on the cancellation date it is still covered", func() {
			r := coverage.Evaluate(contracting, cancellation, reactivation, cancellation)
			So(r.Status, ShouldEqual, model.StatusActive)
		})
	})
}

func TestEvaluateCancelled(t *testing.T) {
	Convey("Given a cancelled contract without reactivation", t, func() {
		contracting := d(2020, time.January, 1)
		cancellation := d(2022, time.January, 1)

		Convey("When the service is before the cancellation", func() {
			r := coverage.Evaluate(contracting, cancellation, none, d(2021, time.June, 1))

			So(r.Status, ShouldEqual, model.StatusActive)
			So(r.Rule, ShouldEqual, coverage.RuleValidContract)
			So(r.WaitingFlag, ShouldEqual, model.FlagCPT)
		})

		Convey("When the service is after the cancellation", func() {
			r := coverage.Evaluate(contracting, cancellation, none, d(2022, time.June, 1))

			So(r.Status, ShouldEqual, model.StatusInactive)
			So(r.Rule, ShouldEqual, coverage.RuleDefault)
		})
	})
}

func TestEvaluateAbsentDates(t *testing.T) {
	Convey("Given absent dates", t, func() {
		Convey("When every date is absent", func() {
			r := coverage.Evaluate(none, none, none, none)
			So(r.Status, ShouldEqual, model.StatusInactive)
			So(r.WaitingFlag, ShouldEqual, model.FlagNone)
		})

		Convey("When only the service date is absent", func() {
			r := coverage.Evaluate(d(2020, time.January, 1), none, none, none)
			So(r.Status, ShouldEqual, model.StatusInactive)
		})

		Convey("When only the service date is present", func() {
			r := coverage.Evaluate(none, none, none, d(2023, time.January, 1))
			So(r.Status, ShouldEqual, model.StatusInactive)
			So(r.Note, ShouldEqual, coverage.NoteNoCondition)
		})
	})
}

func TestEvaluatorOptions(t *testing.T) {
	Convey("Given an evaluator with custom windows", t, func() {
		e := coverage.NewEvaluator(
			coverage.WithWaitingPeriod(3),
			coverage.WithCPTPeriod(12),
			coverage.WithReactivationGrace(90),
		)
		contracting := d(2023, time.January, 1)

		Convey("Then the shorter waiting period ends earlier", func() {
			r := e.Evaluate(coverage.Input{Contracting: contracting, Service: d(2023, time.May, 1)})
			So(r.WaitingFlag, ShouldEqual, model.FlagCPT)
		})

		Convey("Then the shorter CPT window ends earlier", func() {
			r := e.Evaluate(coverage.Input{Contracting: contracting, Service: d(2024, time.January, 2)})
			So(r.WaitingFlag, ShouldEqual, model.FlagNone)
		})

		Convey("Then a longer grace keeps the contract continuous", func() {
			r := e.Evaluate(coverage.Input{
				Contracting:  d(2020, time.January, 1),
				Cancellation: d(2023, time.January, 1),
				Reactivation: d(2023, time.March, 1),
				Service:      d(2023, time.April, 1),
			})
			So(r.Rule, ShouldEqual, coverage.RuleReactivatedInGrace)
			So(r.Note, ShouldStartWith, "reactivated within 90 days of cancellation")
		})

		Convey("Then non-positive windows keep the defaults", func() {
			e := coverage.NewEvaluator(coverage.WithWaitingPeriod(0), coverage.WithCPTPeriod(-1))
			r := e.Evaluate(coverage.Input{Contracting: contracting, Service: d(2023, time.July, 1)})
			So(r.WaitingFlag, ShouldEqual, model.FlagWaitingPeriodOrCPT)
		})
	})
}

func TestEvaluateProperties(t *testing.T) {
	Convey("Given a grid of timelines", t, func() {
		dates := []model.Date{
			none,
			d(2020, time.January, 1),
			d(2022, time.June, 15),
			d(2023, time.January, 1),
			d(2023, time.January, 20),
			d(2023, time.March, 1),
			d(2024, time.February, 29),
		}

		Convey("Then results are deterministic and INACTIVE never carries a flag", func() {
			for _, c := range dates {
				for _, x := range dates {
					for _, r := range dates {
						for _, s := range dates {
							first := coverage.Evaluate(c, x, r, s)
							So(coverage.Evaluate(c, x, r, s), ShouldResemble, first)
							if !first.Active() {
								So(first.WaitingFlag, ShouldEqual, model.FlagNone)
							}
							So(first.Note, ShouldNotBeEmpty)
							So(first.Rule, ShouldNotBeEmpty)
						}
					}
				}
			}
		})
	})
}
