package scheduler

import (
	"context"
	"fmt"
	"time"

	"PairSentinel/internal/model"
	"PairSentinel/internal/notifier"
	"PairSentinel/internal/strategy"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// CycleReport counts the outcome of every pair in one refresh cycle.
type CycleReport struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Processed int           `json:"processed"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`  // a series was unavailable
	Filtered  int           `json:"filtered"` // correlation outside (0, 1]
	Failed    int           `json:"failed"`
}

type outcome int

const (
	outcomeUpdated outcome = iota
	outcomeSkipped
	outcomeFiltered
	outcomeFailed
)

// RunCycle refreshes the metrics of every pair in enumeration order. A
// failure in one pair never stops the others.
func (s *Scheduler) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{ID: uuid.NewString(), StartedAt: s.now()}
	l := s.log.WithField("cycle", report.ID)
	begin := time.Now()

	for _, pair := range s.Pairs {
		if ctx.Err() != nil {
			l.Warnf("cycle cancelled after %d pairs", report.Processed)
			break
		}
		report.Processed++
		res, err := s.processPair(ctx, pair)
		pl := l.WithField("pair", pair.ID())
		switch res {
		case outcomeUpdated:
			report.Updated++
		case outcomeSkipped:
			report.Skipped++
			pl.Debug("skipped: series unavailable")
		case outcomeFiltered:
			report.Filtered++
			pl.Debug("filtered: correlation outside (0, 1]")
		case outcomeFailed:
			report.Failed++
			pl.Warnf("pair failed: %v", err)
		}
	}

	report.Duration = time.Since(begin)
	l.Infof("cycle done in %s: processed=%d updated=%d skipped=%d filtered=%d failed=%d",
		report.Duration.Round(time.Millisecond), report.Processed, report.Updated,
		report.Skipped, report.Filtered, report.Failed)
	return report
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) processPair(ctx context.Context, pair model.Pair) (res outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = outcomeFailed, fmt.Errorf("panic: %v", r)
		}
	}()

	var series1, series2 model.PriceSeries
	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard(func() error { series1 = s.Series.Get(gctx, pair.Symbol1); return nil }))
	g.Go(guard(func() error { series2 = s.Series.Get(gctx, pair.Symbol2); return nil }))
	if err := g.Wait(); err != nil {
		return outcomeFailed, fmt.Errorf("load series: %w", err)
	}
	if len(series1) == 0 || len(series2) == 0 {
		return outcomeSkipped, nil
	}

	var quote1, quote2 *model.LiveQuote
	g, gctx = errgroup.WithContext(ctx)
	g.Go(guard(func() (err error) { quote1, err = s.Quotes.FetchQuote(gctx, pair.Symbol1); return err }))
	g.Go(guard(func() (err error) { quote2, err = s.Quotes.FetchQuote(gctx, pair.Symbol2); return err }))
	if err := g.Wait(); err != nil {
		return outcomeFailed, fmt.Errorf("fetch quotes: %w", err)
	}
	if !quote1.Valid() || !quote2.Valid() {
		return outcomeFailed, fmt.Errorf("fetch quotes: unusable price for %s or %s", pair.Symbol1, pair.Symbol2)
	}

	metrics := strategy.Evaluate(strategy.Input{
		Pair:       pair,
		Series1:    series1,
		Series2:    series2,
		LivePrice1: quote1.Price,
		LivePrice2: quote2.Price,
		Alignment:  s.cfg.Alignment,
		Now:        s.now(),
	})
	if metrics == nil {
		return outcomeFiltered, nil
	}

	if err := s.Store.UpsertMetrics(ctx, metrics); err != nil {
		return outcomeFailed, fmt.Errorf("store metrics: %w", err)
	}
	s.Broadcaster.Publish(notifier.EventMetricsUpdate, metrics)
	return outcomeUpdated, nil
}

// guard turns a panic inside an errgroup goroutine into its error.
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}
}
