package query

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"PairSentinel/internal/model"
	"PairSentinel/internal/recorder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func quotes(start time.Time, closes ...float64) []model.OHLCV {
	out := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Close: c}
	}
	return out
}

func newService(t *testing.T) (*Service, *recorder.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := recorder.NewMemoryStore()
	start := now.AddDate(0, 0, -9)
	require.NoError(t, store.ReplaceInstruments(ctx, []model.Instrument{
		{Symbol: "TCS.NS", Sector: "technology", Quotes: quotes(start, 4, 6, 6, 4, 5, 5, 5, 5, 5, 5)},
		{Symbol: "INFY.NS", Sector: "technology", Quotes: quotes(start, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2)},
		{Symbol: "WIPRO.NS", Sector: "technology", Quotes: quotes(start, 1)},
		{Symbol: "TECHM.NS", Sector: "technology"},
		{Symbol: "SBIN.NS", Sector: "publicSectorBanks", Quotes: quotes(start, 1, 2)},
	}))
	for _, m := range []model.PairMetrics{
		{Pair: "TCS.NS-INFY.NS", Sector: "technology", Correlation: 0.95, LSD: math.NaN()},
		{Pair: "ACC.NS-AMBUJACEM.NS", Sector: "cement", Correlation: 0.6},
		{Pair: "SBIN.NS-PNB.NS", Sector: "publicSectorBanks", Correlation: 0.2},
	} {
		m := m
		require.NoError(t, store.UpsertMetrics(ctx, &m))
	}
	s := New(store, store)
	s.Now = func() time.Time { return now }
	return s, store
}

func TestMetricsByCorrelationRange(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	got, err := s.MetricsByCorrelationRange(ctx, 0.5, 1, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, m := range got {
		assert.GreaterOrEqual(t, m.Correlation, 0.5)
	}

	got, err = s.MetricsByCorrelationRange(ctx, 0.5, 1, "cement")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ACC.NS-AMBUJACEM.NS", got[0].Pair)

	_, err = s.MetricsByCorrelationRange(ctx, 0.97, 1, "")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, r := range [][2]float64{{-0.1, 1}, {0, 1.1}, {0.8, 0.2}, {math.NaN(), 1}} {
		_, err = s.MetricsByCorrelationRange(ctx, r[0], r[1], "")
		assert.ErrorIs(t, err, ErrInvalidRange, "range %v", r)
	}
}

func TestPairRollingStats(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	stats, err := s.PairRollingStats(ctx, "TCS.NS", "INFY.NS")
	require.NoError(t, err)
	assert.Equal(t, "TCS.NS", stats.Stock1)
	assert.Len(t, stats.Dates, 10)
	assert.Len(t, stats.PriceRatios, 10)
	assert.Equal(t, 2.5, stats.PriceRatios[len(stats.PriceRatios)-1].PriceRatio)
	assert.Equal(t, 40.0, stats.DetailedStats.CashNeutralPercentage)

	_, err = s.PairRollingStats(ctx, "TCS.NS", "SBIN.NS")
	assert.ErrorIs(t, err, ErrNotFound, "cross-sector pair")

	_, err = s.PairRollingStats(ctx, "TCS.NS", "NOPE.NS")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.PairRollingStats(ctx, "TCS.NS", "TECHM.NS")
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestPairClosePrices(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	got, err := s.PairClosePrices(ctx, "TCS.NS", "INFY.NS", Period1Week)
	require.NoError(t, err)
	assert.Equal(t, "TCS.NS", got.Stock1.Symbol)
	// Quotes run from now-9d to now; the week window keeps now-7d..now.
	assert.Len(t, got.Stock1.ClosePrices, 8)
	assert.Len(t, got.Stock2.ClosePrices, 8)

	got, err = s.PairClosePrices(ctx, "TCS.NS", "INFY.NS", Period1Year)
	require.NoError(t, err)
	assert.Len(t, got.Stock1.ClosePrices, 10)

	_, err = s.PairClosePrices(ctx, "TCS.NS", "INFY.NS", "2days")
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	got, err = s.PairClosePrices(ctx, "TCS.NS", "TECHM.NS", Period5Weeks)
	require.NoError(t, err)
	assert.NotNil(t, got.Stock2.ClosePrices)
	assert.Empty(t, got.Stock2.ClosePrices)
}

func TestPairCorrelation(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	got, err := s.PairCorrelation(ctx, "TCS.NS", "INFY.NS")
	require.NoError(t, err)
	// INFY.NS is flat, so the correlation degenerates to 0.
	assert.Equal(t, 0.0, got.Correlation)

	_, err = s.PairCorrelation(ctx, "TCS.NS", "WIPRO.NS")
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = s.PairCorrelation(ctx, "TCS.NS", "SBIN.NS")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInstruments(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	all, err := s.Instruments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = s.Instruments(ctx, "cement")
	assert.ErrorIs(t, err, ErrNotFound)

	inst, err := s.Instrument(ctx, "SBIN.NS")
	require.NoError(t, err)
	assert.Equal(t, "publicSectorBanks", inst.Sector)

	_, err = s.Instrument(ctx, "NOPE.NS")
	assert.ErrorIs(t, err, ErrNotFound)
}

type stubSeries map[string]model.PriceSeries

func (s stubSeries) Get(_ context.Context, symbol string) model.PriceSeries { return s[symbol] }

type stubQuotes map[string]float64

func (s stubQuotes) FetchQuote(_ context.Context, symbol string) (*model.LiveQuote, error) {
	p, ok := s[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return &model.LiveQuote{Symbol: symbol, Price: p}, nil
}

func TestSectorNames(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	names, err := s.SectorNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"technology", "publicSectorBanks"}, names)

	s.Sectors = []model.Sector{{Name: "cement"}, {Name: "banks"}}
	names, err = s.SectorNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cement", "banks"}, names)

	_, err = New(recorder.NewMemoryStore(), recorder.NewMemoryStore()).SectorNames(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPairsBySector(t *testing.T) {
	s, store := newService(t)
	ctx := context.Background()

	got, err := s.PairsBySector(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 3, "pairs with an instrument lacking quotes are left out")
	assert.Equal(t, "TCS.NS", got[0].Stock1)
	assert.Equal(t, "INFY.NS", got[0].Stock2)
	assert.Equal(t, "technology", got[0].Sector)
	assert.Equal(t, 2.5, got[0].MeanRatio)
	assert.Equal(t, 0.3162, got[0].StdDevRatio)
	assert.Equal(t, 0.0, got[0].Correlation)
	assert.Equal(t, "WIPRO.NS", got[1].Stock2)
	assert.Equal(t, 4.0, got[1].MeanRatio)

	_, err = s.PairsBySector(ctx, "publicSectorBanks")
	assert.ErrorIs(t, err, ErrNotFound)

	start := now.AddDate(0, 0, -2)
	require.NoError(t, store.ReplaceInstruments(ctx, []model.Instrument{
		{Symbol: "ACC.NS", Sector: "cement", Quotes: quotes(start, 1, 2)},
		{Symbol: "AMBUJACEM.NS", Sector: "cement", Quotes: quotes(start, 0, 1)},
	}))
	_, err = s.PairsBySector(ctx, "cement")
	assert.ErrorIs(t, err, ErrNotFound, "a zero close gives a non-finite ratio")
}

func TestPairZScores(t *testing.T) {
	s, _ := newService(t)
	z, err := s.PairZScores(context.Background(), "TCS.NS", "INFY.NS")
	require.NoError(t, err)
	assert.Equal(t, "INFY.NS", z.Stock2)
	require.Len(t, z.ZScores, 10)
	assert.InDelta(t, -1.5811, z.ZScores[0].ZScore, 1e-4)

	_, err = s.PairZScores(context.Background(), "TCS.NS", "SBIN.NS")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLiveLookups(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	_, err := s.HistoricalSeries(ctx, "TCS.NS")
	assert.Error(t, err, "no source configured")
	_, err = s.LiveQuote(ctx, "TCS.NS")
	assert.Error(t, err, "no source configured")

	s.Series = stubSeries{"TCS.NS": {{Date: now, Close: 3900}}}
	s.Quotes = stubQuotes{"TCS.NS": 3912.5, "HALT.NS": 0}

	series, err := s.HistoricalSeries(ctx, "TCS.NS")
	require.NoError(t, err)
	assert.Len(t, series, 1)
	_, err = s.HistoricalSeries(ctx, "NOPE.NS")
	assert.ErrorIs(t, err, ErrNotFound)

	q, err := s.LiveQuote(ctx, "TCS.NS")
	require.NoError(t, err)
	assert.Equal(t, 3912.5, q.Price)
	_, err = s.LiveQuote(ctx, "NOPE.NS")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.LiveQuote(ctx, "HALT.NS")
	assert.ErrorIs(t, err, ErrNotFound)
}
