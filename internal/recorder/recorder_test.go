package recorder

import (
	"context"
	"math"
	"testing"
	"time"

	"PairSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func sampleMetrics(pair, sector string, corr, lsd float64, at time.Time) *model.PairMetrics {
	return &model.PairMetrics{
		Pair:            pair,
		Sector:          sector,
		Correlation:     corr,
		PSD:             12.5,
		LSD:             lsd,
		PPR:             1.2,
		LPR:             1.5,
		LFSD:            3.1,
		TwoSD:           6.2,
		TwoPointSevenSD: 8.37,
		ThreeSD:         9.3,
		MTM:             12.5,
		LastUpdated:     at,
	}
}

// storeFactories lists every Store implementation exercised by the shared tests.
func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"sqlite": func() Store {
			s, err := NewSQLiteStore(":memory:")
			require.NoError(t, err)
			return s
		},
	}
}

func TestMetricsUpsertLastWriterWins(t *testing.T) {
	ctx := context.Background()
	at := time.UnixMilli(1_700_000_000_000)
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			require.NoError(t, s.UpsertMetrics(ctx, sampleMetrics("TCS.NS-INFY.NS", "technology", 0.8, 1.1, at)))
			require.NoError(t, s.UpsertMetrics(ctx, sampleMetrics("TCS.NS-INFY.NS", "technology", 0.9, -0.4, at.Add(time.Minute))))

			got, err := s.FindMetrics(ctx, MetricsFilter{})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, 0.9, got[0].Correlation)
			assert.Equal(t, -0.4, got[0].LSD)
			assert.True(t, got[0].LastUpdated.Equal(at.Add(time.Minute)))
		})
	}
}

func TestMetricsNaNLSDRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			require.NoError(t, s.UpsertMetrics(ctx, sampleMetrics("A-B", "x", 0.5, math.NaN(), time.UnixMilli(0))))
			got, err := s.FindMetrics(ctx, MetricsFilter{})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.True(t, math.IsNaN(got[0].LSD))
		})
	}
}

func TestFindMetricsFilter(t *testing.T) {
	ctx := context.Background()
	at := time.UnixMilli(1_700_000_000_000)
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			require.NoError(t, s.UpsertMetrics(ctx, sampleMetrics("A-B", "banks", 0.3, 0, at)))
			require.NoError(t, s.UpsertMetrics(ctx, sampleMetrics("C-D", "banks", 0.75, 0, at)))
			require.NoError(t, s.UpsertMetrics(ctx, sampleMetrics("E-F", "cement", 0.8, 0, at)))

			got, err := s.FindMetrics(ctx, MetricsFilter{MinCorrelation: ptr(0.7), MaxCorrelation: ptr(1)})
			require.NoError(t, err)
			assert.Len(t, got, 2)

			got, err = s.FindMetrics(ctx, MetricsFilter{MinCorrelation: ptr(0.7), MaxCorrelation: ptr(1), Sector: "banks"})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "C-D", got[0].Pair)

			got, err = s.FindMetrics(ctx, MetricsFilter{MaxCorrelation: ptr(0.1)})
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestSeriesRoundTrip(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	series := model.PriceSeries{
		{Date: day, Close: 100},
		{Date: day.AddDate(0, 0, 1), Close: 101.5},
	}

	factories := storeFactories(t)
	stores := map[string]SeriesStore{}
	for name, open := range factories {
		stores[name] = open()
	}
	b, err := NewBadgerSeriesStore("")
	require.NoError(t, err)
	stores["badger"] = b
	defer func() {
		for _, s := range stores {
			s.(interface{ Close() error }).Close()
		}
	}()

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			missing, err := s.FindSeries(ctx, "TCS.NS")
			require.NoError(t, err)
			assert.Nil(t, missing)

			updated := time.UnixMilli(1_700_000_000_000)
			require.NoError(t, s.UpsertSeries(ctx, "TCS.NS", series, updated))

			got, err := s.FindSeries(ctx, "TCS.NS")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "TCS.NS", got.Symbol)
			assert.True(t, got.LastUpdated.Equal(updated))
			require.Len(t, got.Series, 2)
			assert.Equal(t, 101.5, got.Series[1].Close)
			assert.True(t, got.Series[0].Date.Equal(day))

			// Wholesale replacement.
			require.NoError(t, s.UpsertSeries(ctx, "TCS.NS", series[:1], updated.Add(time.Hour)))
			got, err = s.FindSeries(ctx, "TCS.NS")
			require.NoError(t, err)
			assert.Len(t, got.Series, 1)
		})
	}
}

func TestReplaceInstruments(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			require.NoError(t, s.ReplaceInstruments(ctx, []model.Instrument{
				{Symbol: "OLD.NS", Sector: "old"},
			}))
			require.NoError(t, s.ReplaceInstruments(ctx, []model.Instrument{
				{Symbol: "TCS.NS", Sector: "technology", Quotes: []model.OHLCV{{Time: day, Close: 10}}},
				{Symbol: "INFY.NS", Sector: "technology", Quotes: []model.OHLCV{{Time: day, Close: 20}}},
				{Symbol: "SBIN.NS", Sector: "banks"},
			}))

			old, err := s.FindInstrument(ctx, "OLD.NS")
			require.NoError(t, err)
			assert.Nil(t, old)

			tcs, err := s.FindInstrument(ctx, "TCS.NS")
			require.NoError(t, err)
			require.NotNil(t, tcs)
			assert.Equal(t, "technology", tcs.Sector)
			require.Len(t, tcs.Quotes, 1)
			assert.Equal(t, 10.0, tcs.Quotes[0].Close)

			all, err := s.ListInstruments(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)

			tech, err := s.ListInstruments(ctx, "technology")
			require.NoError(t, err)
			assert.Len(t, tech, 2)
		})
	}
}

func TestRebind(t *testing.T) {
	s := &SQLStore{dialect: DialectPostgres}
	assert.Equal(t, "a = $1 AND b = $2", s.rebind("a = ? AND b = ?"))

	s.dialect = DialectSQLite
	assert.Equal(t, "a = ?", s.rebind("a = ?"))
}
