package seeder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PairSentinel/internal/collector"
	"PairSentinel/internal/model"
	"PairSentinel/internal/recorder"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrNothingFetched is returned when no instrument of the universe could be loaded.
var ErrNothingFetched = errors.New("no instrument data fetched")

// DefaultConcurrency bounds the upstream fetches running at once within a sector.
const DefaultConcurrency = 4

// Seeder reloads the instrument universe with one year of daily bars.
type Seeder struct {
	Fetcher      collector.Fetcher
	Store        recorder.InstrumentStore
	Sectors      []model.Sector
	LookbackDays int
	Concurrency  int
	Now          func() time.Time
}

// New creates a Seeder with a one year lookback.
func New(fetcher collector.Fetcher, store recorder.InstrumentStore, sectors []model.Sector) *Seeder {
	return &Seeder{
		Fetcher:      fetcher,
		Store:        store,
		Sectors:      sectors,
		LookbackDays: collector.DefaultLookbackDays,
		Concurrency:  DefaultConcurrency,
		Now:          time.Now,
	}
}

// Reseed fetches the universe one sector at a time, with at most Concurrency
// symbols of a sector in flight, and replaces the stored universe with the
// instruments that succeeded. Failed symbols are logged and skipped, as are
// symbols already listed by an earlier sector. The universe is left untouched
// when nothing succeeded.
func (s *Seeder) Reseed(ctx context.Context) error {
	l := log.WithField("component", "seeder")
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	start := now().AddDate(0, 0, -s.LookbackDays)
	begin := time.Now()

	var (
		instruments []model.Instrument
		failed      int
		placed      = make(map[string]bool)
	)
	for _, sector := range s.Sectors {
		var symbols []string
		for _, sym := range sector.Symbols {
			if placed[sym] {
				l.WithField("symbol", sym).Warnf("symbol already seeded, ignoring repeat in %s", sector.Name)
				continue
			}
			placed[sym] = true
			symbols = append(symbols, sym)
		}

		results := make([][]model.OHLCV, len(symbols))
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for i, symbol := range symbols {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				bars, err := s.Fetcher.FetchHistorical(gctx, symbol, start, collector.IntervalDaily)
				if err != nil || len(bars) == 0 {
					mu.Lock()
					failed++
					mu.Unlock()
					l.WithFields(log.Fields{"sector": sector.Name, "symbol": symbol}).
						Warnf("skipping instrument: bars=%d err=%v", len(bars), err)
					return nil
				}
				results[i] = bars
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("reseed %s: %w", sector.Name, err)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("reseed: %w", err)
		}

		for i, bars := range results {
			if bars != nil {
				instruments = append(instruments, model.Instrument{
					Symbol: symbols[i],
					Sector: sector.Name,
					Quotes: bars,
				})
			}
		}
	}

	if len(instruments) == 0 {
		return fmt.Errorf("reseed: %w (%d symbols failed)", ErrNothingFetched, failed)
	}
	if err := s.Store.ReplaceInstruments(ctx, instruments); err != nil {
		return fmt.Errorf("reseed: %w", err)
	}

	l.Infof("reseed complete: %d instruments stored, %d skipped, took %s",
		len(instruments), failed, time.Since(begin).Round(time.Millisecond))
	return nil
}
