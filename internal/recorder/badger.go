package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"PairSentinel/internal/model"

	badger "github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"
)

const seriesKeyPrefix = "series/"

// BadgerSeriesStore is an embedded SeriesStore for the historical series cache.
// An empty path opens an in-memory database.
type BadgerSeriesStore struct {
	db *badger.DB
}

// NewBadgerSeriesStore opens the Badger directory at path.
func NewBadgerSeriesStore(path string) (*BadgerSeriesStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	log.Infof("[recorder] badger series store opened: %q", path)
	return &BadgerSeriesStore{db: db}, nil
}

type badgerEntry struct {
	Series      model.PriceSeries `json:"data"`
	LastUpdated int64             `json:"last_updated"`
}

func (s *BadgerSeriesStore) FindSeries(_ context.Context, symbol string) (*model.CacheEntry, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(seriesKeyPrefix + symbol))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read series %s: %w", symbol, err)
	}

	var e badgerEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode series %s: %w", symbol, err)
	}
	return &model.CacheEntry{
		Symbol:      symbol,
		Series:      e.Series,
		LastUpdated: time.UnixMilli(e.LastUpdated),
	}, nil
}

func (s *BadgerSeriesStore) UpsertSeries(_ context.Context, symbol string, series model.PriceSeries, updatedAt time.Time) error {
	raw, err := json.Marshal(badgerEntry{Series: series, LastUpdated: updatedAt.UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode series %s: %w", symbol, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(seriesKeyPrefix+symbol), raw)
	})
	if err != nil {
		return fmt.Errorf("write series %s: %w", symbol, err)
	}
	return nil
}

func (s *BadgerSeriesStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
