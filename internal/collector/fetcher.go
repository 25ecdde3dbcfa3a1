package collector

import (
	"context"
	"time"

	"PairSentinel/internal/model"
)

// IntervalDaily is the bar interval used for every historical fetch.
const IntervalDaily = "1d"

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchHistorical returns bars from start up to now, ascending by time.
	FetchHistorical(ctx context.Context, symbol string, start time.Time, interval string) ([]model.OHLCV, error)
	// FetchQuote returns the latest trade price. Quotes are never cached.
	FetchQuote(ctx context.Context, symbol string) (*model.LiveQuote, error)
	Name() string
}
