package recorder

import (
	"context"
	"time"

	"PairSentinel/internal/model"
)

// MetricsFilter selects stored pair metrics. Zero values match everything.
type MetricsFilter struct {
	MinCorrelation *float64
	MaxCorrelation *float64
	Sector         string
}

// Match reports whether m passes the filter.
func (f MetricsFilter) Match(m *model.PairMetrics) bool {
	if f.MinCorrelation != nil && m.Correlation < *f.MinCorrelation {
		return false
	}
	if f.MaxCorrelation != nil && m.Correlation > *f.MaxCorrelation {
		return false
	}
	if f.Sector != "" && m.Sector != f.Sector {
		return false
	}
	return true
}

// MetricsStore persists the latest metrics per pair, keyed by pair id.
type MetricsStore interface {
	UpsertMetrics(ctx context.Context, m *model.PairMetrics) error
	FindMetrics(ctx context.Context, filter MetricsFilter) ([]model.PairMetrics, error)
}

// SeriesStore backs the historical series cache, keyed by symbol.
// FindSeries returns nil, nil when no entry exists.
type SeriesStore interface {
	FindSeries(ctx context.Context, symbol string) (*model.CacheEntry, error)
	UpsertSeries(ctx context.Context, symbol string, series model.PriceSeries, updatedAt time.Time) error
}

// InstrumentStore holds the re-seeded instrument universe.
// FindInstrument returns nil, nil for an unknown symbol.
type InstrumentStore interface {
	ReplaceInstruments(ctx context.Context, instruments []model.Instrument) error
	FindInstrument(ctx context.Context, symbol string) (*model.Instrument, error)
	ListInstruments(ctx context.Context, sector string) ([]model.Instrument, error)
}

// Store bundles every persistence capability of the engine.
type Store interface {
	MetricsStore
	SeriesStore
	InstrumentStore
	Close() error
}
