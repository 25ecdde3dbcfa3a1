package recorder

import (
	"context"
	"slices"
	"sync"
	"time"

	"PairSentinel/internal/model"
)

// MemoryStore keeps everything in process memory. It is used when no database is
// configured and by tests.
type MemoryStore struct {
	mu          sync.RWMutex
	metrics     map[string]model.PairMetrics
	order       []string
	series      map[string]model.CacheEntry
	instruments []model.Instrument
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		metrics: make(map[string]model.PairMetrics),
		series:  make(map[string]model.CacheEntry),
	}
}

func (s *MemoryStore) UpsertMetrics(_ context.Context, m *model.PairMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.metrics[m.Pair]; !ok {
		s.order = append(s.order, m.Pair)
	}
	s.metrics[m.Pair] = *m
	return nil
}

func (s *MemoryStore) FindMetrics(_ context.Context, filter MetricsFilter) ([]model.PairMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PairMetrics, 0, len(s.order))
	for _, id := range s.order {
		m := s.metrics[id]
		if filter.Match(&m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindSeries(_ context.Context, symbol string) (*model.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.series[symbol]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *MemoryStore) UpsertSeries(_ context.Context, symbol string, series model.PriceSeries, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[symbol] = model.CacheEntry{
		Symbol:      symbol,
		Series:      slices.Clone(series),
		LastUpdated: updatedAt,
	}
	return nil
}

func (s *MemoryStore) ReplaceInstruments(_ context.Context, instruments []model.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruments = slices.Clone(instruments)
	return nil
}

func (s *MemoryStore) FindInstrument(_ context.Context, symbol string) (*model.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inst := range s.instruments {
		if inst.Symbol == symbol {
			found := inst
			return &found, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListInstruments(_ context.Context, sector string) ([]model.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Instrument, 0, len(s.instruments))
	for _, inst := range s.instruments {
		if sector == "" || inst.Sector == sector {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
