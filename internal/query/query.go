package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"PairSentinel/internal/calculator"
	"PairSentinel/internal/model"
	"PairSentinel/internal/recorder"
	"PairSentinel/internal/strategy"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRange     = errors.New("invalid correlation range")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrInsufficientData = errors.New("insufficient data")
)

// Periods accepted by PairClosePrices, oldest bound first.
const (
	Period1Week   = "1week"
	Period5Weeks  = "5weeks"
	Period6Months = "6months"
	Period1Year   = "1year"
)

// SeriesSource returns the cached daily series of a symbol; empty means unavailable.
type SeriesSource interface {
	Get(ctx context.Context, symbol string) model.PriceSeries
}

// QuoteSource returns live prices.
type QuoteSource interface {
	FetchQuote(ctx context.Context, symbol string) (*model.LiveQuote, error)
}

// Service answers read-side queries over stored metrics and instruments.
// Sectors, Series and Quotes are optional: without Sectors the sector list is
// derived from the stored universe, and the live lookups fail without their source.
type Service struct {
	Metrics  recorder.MetricsStore
	Universe recorder.InstrumentStore
	Sectors  []model.Sector
	Series   SeriesSource
	Quotes   QuoteSource
	Now      func() time.Time
}

// New creates a Service.
func New(metrics recorder.MetricsStore, instruments recorder.InstrumentStore) *Service {
	return &Service{Metrics: metrics, Universe: instruments, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// MetricsByCorrelationRange returns stored metrics with correlation in
// [min, max], optionally restricted to one sector.
func (s *Service) MetricsByCorrelationRange(ctx context.Context, min, max float64, sector string) ([]model.PairMetrics, error) {
	if !(min >= 0 && max <= 1 && min <= max) {
		return nil, fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, min, max)
	}
	metrics, err := s.Metrics.FindMetrics(ctx, recorder.MetricsFilter{
		MinCorrelation: &min,
		MaxCorrelation: &max,
		Sector:         sector,
	})
	if err != nil {
		return nil, fmt.Errorf("find metrics: %w", err)
	}
	if len(metrics) == 0 {
		return nil, fmt.Errorf("%w: no pairs with correlation in [%v, %v]", ErrNotFound, min, max)
	}
	return metrics, nil
}

// pair loads two instruments that must exist and share a sector.
func (s *Service) pair(ctx context.Context, symbol1, symbol2 string) (*model.Instrument, *model.Instrument, error) {
	inst1, err := s.Universe.FindInstrument(ctx, symbol1)
	if err != nil {
		return nil, nil, fmt.Errorf("find instrument %s: %w", symbol1, err)
	}
	inst2, err := s.Universe.FindInstrument(ctx, symbol2)
	if err != nil {
		return nil, nil, fmt.Errorf("find instrument %s: %w", symbol2, err)
	}
	if inst1 == nil || inst2 == nil {
		return nil, nil, fmt.Errorf("%w: %s or %s", ErrNotFound, symbol1, symbol2)
	}
	if inst1.Sector != inst2.Sector {
		return nil, nil, fmt.Errorf("%w: %s and %s are not in the same sector", ErrNotFound, symbol1, symbol2)
	}
	return inst1, inst2, nil
}

// PairRollingStats derives the rolling ratio, z-score and correlation series
// of two instruments of the same sector.
func (s *Service) PairRollingStats(ctx context.Context, symbol1, symbol2 string) (*model.RollingPairStats, error) {
	inst1, inst2, err := s.pair(ctx, symbol1, symbol2)
	if err != nil {
		return nil, err
	}
	stats, ok := strategy.RollingStats(symbol1, symbol2, inst1.Quotes, inst2.Quotes)
	if !ok {
		return nil, fmt.Errorf("%w: no quotes for %s or %s", ErrInsufficientData, symbol1, symbol2)
	}
	return stats, nil
}

// periodStart returns the inclusive lower bound of a trailing window ending at now.
func periodStart(period string, now time.Time) (time.Time, bool) {
	switch period {
	case Period1Week:
		return now.AddDate(0, 0, -7), true
	case Period5Weeks:
		return now.AddDate(0, 0, -35), true
	case Period6Months:
		return now.AddDate(0, -6, 0), true
	case Period1Year:
		return now.AddDate(-1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

// PairClosePrices returns both instruments' closes within a trailing period.
func (s *Service) PairClosePrices(ctx context.Context, symbol1, symbol2, period string) (*model.PairClosePrices, error) {
	now := s.now()
	from, ok := periodStart(period, now)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	inst1, inst2, err := s.pair(ctx, symbol1, symbol2)
	if err != nil {
		return nil, err
	}
	return &model.PairClosePrices{
		Stock1: model.SymbolClosePrices{Symbol: symbol1, ClosePrices: strategy.ClosesBetween(inst1.Quotes, from, now)},
		Stock2: model.SymbolClosePrices{Symbol: symbol2, ClosePrices: strategy.ClosesBetween(inst2.Quotes, from, now)},
	}, nil
}

// PairCorrelation returns the Pearson correlation of two instruments' full
// close histories over their common prefix.
func (s *Service) PairCorrelation(ctx context.Context, symbol1, symbol2 string) (*model.PairCorrelation, error) {
	inst1, inst2, err := s.pair(ctx, symbol1, symbol2)
	if err != nil {
		return nil, err
	}
	if len(inst1.Quotes) < 2 || len(inst2.Quotes) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 quotes per instrument", ErrInsufficientData)
	}
	n := min(len(inst1.Quotes), len(inst2.Quotes))
	closes1 := make([]float64, n)
	closes2 := make([]float64, n)
	for i := 0; i < n; i++ {
		closes1[i] = inst1.Quotes[i].Close
		closes2[i] = inst2.Quotes[i].Close
	}
	return &model.PairCorrelation{
		Stock1:      symbol1,
		Stock2:      symbol2,
		Correlation: calculator.Round4(calculator.Correlation(closes1, closes2)),
	}, nil
}

// Instruments lists the seeded universe, optionally for one sector.
func (s *Service) Instruments(ctx context.Context, sector string) ([]model.Instrument, error) {
	insts, err := s.Universe.ListInstruments(ctx, sector)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	if len(insts) == 0 {
		return nil, fmt.Errorf("%w: no instruments", ErrNotFound)
	}
	return insts, nil
}

// Instrument returns one seeded instrument with its quotes.
func (s *Service) Instrument(ctx context.Context, symbol string) (*model.Instrument, error) {
	inst, err := s.Universe.FindInstrument(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("find instrument %s: %w", symbol, err)
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}
	return inst, nil
}

// SectorNames lists the sectors of the universe in configuration order.
func (s *Service) SectorNames(ctx context.Context) ([]string, error) {
	var names []string
	if len(s.Sectors) > 0 {
		for _, sec := range s.Sectors {
			names = append(names, sec.Name)
		}
		return names, nil
	}
	insts, err := s.Universe.ListInstruments(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	seen := make(map[string]bool)
	for _, inst := range insts {
		if !seen[inst.Sector] {
			seen[inst.Sector] = true
			names = append(names, inst.Sector)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no sectors", ErrNotFound)
	}
	return names, nil
}

// PairsBySector summarizes every intra-sector pair of the stored universe over
// the common prefix of their quote histories, optionally for one sector.
// Instruments without quotes and pairs with a non-finite ratio are left out.
func (s *Service) PairsBySector(ctx context.Context, sector string) ([]model.SectorPair, error) {
	insts, err := s.Universe.ListInstruments(ctx, sector)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}

	var order []string
	groups := make(map[string][]model.Instrument)
	for _, inst := range insts {
		if _, ok := groups[inst.Sector]; !ok {
			order = append(order, inst.Sector)
		}
		groups[inst.Sector] = append(groups[inst.Sector], inst)
	}

	var out []model.SectorPair
	for _, name := range order {
		members := groups[name]
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				if sp, ok := summarizePair(name, members[i], members[j]); ok {
					out = append(out, sp)
				}
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no pairs with quotes", ErrNotFound)
	}
	return out, nil
}

func summarizePair(sector string, inst1, inst2 model.Instrument) (model.SectorPair, bool) {
	n := min(len(inst1.Quotes), len(inst2.Quotes))
	if n == 0 {
		return model.SectorPair{}, false
	}
	closes1 := make([]float64, n)
	closes2 := make([]float64, n)
	ratios := make([]float64, n)
	for i := 0; i < n; i++ {
		closes1[i] = inst1.Quotes[i].Close
		closes2[i] = inst2.Quotes[i].Close
		ratios[i] = closes1[i] / closes2[i]
	}
	mean := calculator.Mean(ratios)
	sd := calculator.StdDevPopulation(ratios, mean)
	if math.IsNaN(mean) || math.IsInf(mean, 0) || math.IsNaN(sd) || math.IsInf(sd, 0) {
		return model.SectorPair{}, false
	}
	return model.SectorPair{
		Sector:      sector,
		Stock1:      inst1.Symbol,
		Stock2:      inst2.Symbol,
		Correlation: calculator.Round4(calculator.Correlation(closes1, closes2)),
		MeanRatio:   calculator.Round4(mean),
		StdDevRatio: calculator.Round4(sd),
	}, true
}

// PairZScores returns only the price-ratio z-score series of a pair.
func (s *Service) PairZScores(ctx context.Context, symbol1, symbol2 string) (*model.PairZScores, error) {
	stats, err := s.PairRollingStats(ctx, symbol1, symbol2)
	if err != nil {
		return nil, err
	}
	return &model.PairZScores{Stock1: symbol1, Stock2: symbol2, ZScores: stats.ZScores}, nil
}

// HistoricalSeries returns the cached daily series of a symbol, fetching it
// when stale.
func (s *Service) HistoricalSeries(ctx context.Context, symbol string) (model.PriceSeries, error) {
	if s.Series == nil {
		return nil, errors.New("historical series source not configured")
	}
	series := s.Series.Get(ctx, symbol)
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no historical data for %s", ErrNotFound, symbol)
	}
	return series, nil
}

// LiveQuote returns the current price of a symbol.
func (s *Service) LiveQuote(ctx context.Context, symbol string) (*model.LiveQuote, error) {
	if s.Quotes == nil {
		return nil, errors.New("quote source not configured")
	}
	q, err := s.Quotes.FetchQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: no real-time data for %s: %v", ErrNotFound, symbol, err)
	}
	if !q.Valid() {
		return nil, fmt.Errorf("%w: no real-time data for %s", ErrNotFound, symbol)
	}
	return q, nil
}
