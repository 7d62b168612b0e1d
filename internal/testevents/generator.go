package testevents

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/okian/sibrol/pkg/logger"
)

// ErrInvalidConfig is returned for unusable generator settings.
var ErrInvalidConfig = errors.New("invalid generator config")

// Percentages of the generated population.
const (
	cancelledPercent   = 20
	reactivatedPercent = 40 // of the cancelled
	undatedPercent     = 2
	unmappedEvery      = 5 // every fifth code has no mapping row
	contractYearsBack  = 3
)

// randIntn returns a uniform random int in [0, n) using crypto/rand.
func randIntn(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

func chance(percent int) bool {
	return randIntn(100) < percent
}

// sourceCode and standardCode return the i-th procedure code pair.
func sourceCode(i int) string   { return fmt.Sprintf("03010%05d", i+1) }
func standardCode(i int) string { return fmt.Sprintf("101%05d", i+1) }

func validate(cfg Config) error {
	switch {
	case cfg.Dir == "":
		return fmt.Errorf("%w: dir is required", ErrInvalidConfig)
	case cfg.Beneficiaries < 1, cfg.Events < 0, cfg.Codes < 1:
		return fmt.Errorf("%w: beneficiaries and codes must be positive", ErrInvalidConfig)
	case cfg.Periods < 1 || cfg.Periods > 12:
		return fmt.Errorf("%w: periods must be between 1 and 12", ErrInvalidConfig)
	case cfg.Year < 1900:
		return fmt.Errorf("%w: year %d", ErrInvalidConfig, cfg.Year)
	}
	return nil
}

// Generate writes a synthetic dataset described by cfg.
func Generate(ctx context.Context, cfg Config) (Dataset, Stats, error) {
	start := time.Now()
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if err := validate(cfg); err != nil {
		return Dataset{}, Stats{}, err
	}
	log := logger.Get().Named("testevents")

	first := time.Date(cfg.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := first.AddDate(0, cfg.Periods, 0)

	people := generateTimelines(cfg.Beneficiaries, first, end)
	events, err := generateEvents(ctx, cfg, people, first, end)
	if err != nil {
		return Dataset{}, Stats{}, err
	}
	log.Info(ctx, "generated events", logger.Int("count", len(events)), logger.Int("beneficiaries", len(people)))

	ds, err := write(cfg, people, events, first)
	if err != nil {
		return Dataset{}, Stats{}, err
	}

	stats := Stats{
		Beneficiaries: len(people),
		Events:        len(events),
		RegistryFiles: cfg.Periods,
		MappedCodes:   mappedCodes(cfg.Codes),
		Duration:      time.Since(start),
	}
	for _, ev := range events {
		if ev.service.IsZero() {
			stats.UndatedEvents++
		}
	}
	return ds, stats, nil
}

// generateTimelines draws a contract history per beneficiary. Contracts start
// up to contractYearsBack years before the window and never after it ends.
func generateTimelines(n int, first, end time.Time) []timeline {
	earliest := first.AddDate(-contractYearsBack, 0, 0)
	span := int(end.Sub(earliest).Hours() / 24)

	out := make([]timeline, n)
	for i := range out {
		t := timeline{
			id:          strconv.Itoa(100000 + i),
			contracting: earliest.AddDate(0, 0, randIntn(span)),
		}
		if chance(cancelledPercent) {
			remaining := int(end.Sub(t.contracting).Hours()/24) + 1
			t.cancellation = t.contracting.AddDate(0, 0, 1+randIntn(remaining))
			if chance(reactivatedPercent) {
				t.reactivation = t.cancellation.AddDate(0, 0, 1+randIntn(90))
			}
		}
		out[i] = t
	}
	return out
}

// generateEvents creates cfg.Events events split across cfg.Workers
// goroutines. Row order is stable regardless of worker count.
func generateEvents(ctx context.Context, cfg Config, people []timeline, first, end time.Time) ([]event, error) {
	events := make([]event, cfg.Events)
	if cfg.Events == 0 {
		return events, nil
	}
	days := int(end.Sub(first).Hours() / 24)

	type result struct {
		index int
		err   error
	}
	resultChan := make(chan result, cfg.Events)

	workerCount := min(cfg.Workers, cfg.Events)
	perWorker := cfg.Events / workerCount

	for worker := 0; worker < workerCount; worker++ {
		from := worker * perWorker
		to := from + perWorker
		if worker == workerCount-1 {
			to = cfg.Events // last worker gets the remainder
		}

		go func(from, to int) {
			for i := from; i < to; i++ {
				select {
				case <-ctx.Done():
					resultChan <- result{index: i, err: ctx.Err()}
					return
				default:
					ev := event{
						beneficiary: people[randIntn(len(people))].id,
						code:        sourceCode(randIntn(cfg.Codes)),
					}
					if !chance(undatedPercent) {
						ev.service = first.AddDate(0, 0, randIntn(days))
					}
					events[i] = ev
					resultChan <- result{index: i}
				}
			}
		}(from, to)
	}

	for i := 0; i < cfg.Events; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during event generation: %w", ctx.Err())
		case r := <-resultChan:
			if r.err != nil {
				return nil, fmt.Errorf("failed to generate event %d: %w", r.index, r.err)
			}
		}
	}
	return events, nil
}

func mappedCodes(codes int) int {
	n := 0
	for i := 0; i < codes; i++ {
		if (i+1)%unmappedEvery != 0 {
			n++
		}
	}
	return n
}
