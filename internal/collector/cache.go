package collector

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"PairSentinel/internal/model"
	"PairSentinel/internal/recorder"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Cache defaults.
const (
	DefaultFreshness    = 24 * time.Hour
	DefaultThrottle     = time.Second
	DefaultLookbackDays = 365
)

// SeriesCache is a read-through cache of daily close series in front of a
// Fetcher. Upstream fetches are serialized and each one is preceded by the
// throttle delay.
type SeriesCache struct {
	Fetcher      Fetcher
	Store        recorder.SeriesStore
	Freshness    time.Duration
	Throttle     time.Duration
	LookbackDays int
	Calendar     *TradingCalendar // optional; drops non-business days
	Now          func() time.Time

	fetchMu  sync.Mutex
	group    singleflight.Group
	flightMu sync.Mutex
	flights  map[string]*flight
	log      *log.Entry
}

// flight is the shared context of one upstream refresh. It outlives any single
// caller and is cancelled once every caller waiting on it has given up.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewSeriesCache creates a cache with the default freshness, throttle and lookback.
func NewSeriesCache(fetcher Fetcher, store recorder.SeriesStore) *SeriesCache {
	return &SeriesCache{
		Fetcher:      fetcher,
		Store:        store,
		Freshness:    DefaultFreshness,
		Throttle:     DefaultThrottle,
		LookbackDays: DefaultLookbackDays,
		Now:          time.Now,
		log:          log.WithField("component", "series-cache"),
	}
}

func (c *SeriesCache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *SeriesCache) logger() *log.Entry {
	if c.log == nil {
		return log.WithField("component", "series-cache")
	}
	return c.log
}

// Get returns the cached series for symbol when fresh, otherwise fetches and
// stores a new one. Failures are logged and yield an empty series.
func (c *SeriesCache) Get(ctx context.Context, symbol string) model.PriceSeries {
	entry, err := c.Store.FindSeries(ctx, symbol)
	if err != nil {
		c.logger().WithField("symbol", symbol).Warnf("cache read failed, treating as miss: %v", err)
	} else if entry.IsFresh(c.now(), c.Freshness) {
		return entry.Series
	}

	f, ch := c.join(ctx, symbol)
	defer c.leave(symbol, f)
	select {
	case r := <-ch:
		return r.Val.(model.PriceSeries)
	case <-ctx.Done():
		c.logger().WithField("symbol", symbol).Debugf("gave up waiting for refresh: %v", ctx.Err())
		return model.PriceSeries{}
	}
}

// join registers the caller on the symbol's flight, starting one if needed.
func (c *SeriesCache) join(ctx context.Context, symbol string) (*flight, <-chan singleflight.Result) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()
	if c.flights == nil {
		c.flights = make(map[string]*flight)
	}
	f := c.flights[symbol]
	if f == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[symbol] = f
	}
	f.waiters++
	ch := c.group.DoChan(symbol, func() (any, error) {
		defer c.land(symbol, f)
		return c.refresh(f.ctx, symbol), nil
	})
	return f, ch
}

// land retires a flight whose refresh has returned.
func (c *SeriesCache) land(symbol string, f *flight) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()
	if c.flights[symbol] == f {
		delete(c.flights, symbol)
	}
	f.cancel()
}

// leave drops the caller from f. The last caller to leave a flight still in
// progress cancels it, so an abandoned throttle wait or fetch stops early.
func (c *SeriesCache) leave(symbol string, f *flight) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[symbol] == f {
		delete(c.flights, symbol)
		c.group.Forget(symbol)
	}
}

func (c *SeriesCache) refresh(ctx context.Context, symbol string) model.PriceSeries {
	l := c.logger().WithField("symbol", symbol)

	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	if c.Throttle > 0 {
		t := time.NewTimer(c.Throttle)
		select {
		case <-ctx.Done():
			t.Stop()
			l.Warnf("fetch cancelled: %v", ctx.Err())
			return model.PriceSeries{}
		case <-t.C:
		}
	}

	start := c.now().AddDate(0, 0, -c.LookbackDays)
	bars, err := c.Fetcher.FetchHistorical(ctx, symbol, start, IntervalDaily)
	if err != nil {
		l.Errorf("fetch from %s failed: %v", c.Fetcher.Name(), err)
		return model.PriceSeries{}
	}

	series := c.normalize(bars)
	if len(series) == 0 {
		l.Warnf("%s returned no usable data", c.Fetcher.Name())
		return model.PriceSeries{}
	}

	if err := c.Store.UpsertSeries(ctx, symbol, series, c.now()); err != nil {
		l.Errorf("cache write failed: %v", err)
	}
	l.Debugf("cached %d points", len(series))
	return series
}

// normalize sorts bars, keeps the last bar per calendar date and drops
// invalid closes and non-business days.
func (c *SeriesCache) normalize(bars []model.OHLCV) model.PriceSeries {
	sorted := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close < 0 {
			continue
		}
		if c.Calendar != nil && !c.Calendar.IsTradingDay(b.Time) {
			continue
		}
		sorted = append(sorted, b)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	series := make(model.PriceSeries, 0, len(sorted))
	for _, b := range sorted {
		p := model.PricePoint{Date: b.Time, Close: b.Close}
		if n := len(series); n > 0 && sameDay(series[n-1].Date, b.Time) {
			series[n-1] = p
			continue
		}
		series = append(series, p)
	}
	return series
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
