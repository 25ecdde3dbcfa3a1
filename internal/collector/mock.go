package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PairSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without explicit bars get a generated series around Price.
type MockFetcher struct {
	Price  float64
	Bars   map[string][]model.OHLCV
	Quotes map[string]float64
	Errors map[string]error

	mu         sync.Mutex
	histCalls  map[string]int
	quoteCalls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchHistorical(_ context.Context, symbol string, start time.Time, _ string) ([]model.OHLCV, error) {
	m.mu.Lock()
	if m.histCalls == nil {
		m.histCalls = make(map[string]int)
	}
	m.histCalls[symbol]++
	m.mu.Unlock()

	if err := m.Errors[symbol]; err != nil {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	days := int(time.Since(start).Hours() / 24)
	return generateMockBars(m.Price, days), nil
}

func (m *MockFetcher) FetchQuote(_ context.Context, symbol string) (*model.LiveQuote, error) {
	m.mu.Lock()
	if m.quoteCalls == nil {
		m.quoteCalls = make(map[string]int)
	}
	m.quoteCalls[symbol]++
	m.mu.Unlock()

	if err := m.Errors[symbol]; err != nil {
		return nil, err
	}
	price, ok := m.Quotes[symbol]
	if !ok {
		if bars := m.Bars[symbol]; len(bars) > 0 {
			price = bars[len(bars)-1].Close
		} else if m.Price > 0 {
			price = m.Price
		} else {
			return nil, fmt.Errorf("mock: no quote for %s", symbol)
		}
	}
	return &model.LiveQuote{Symbol: symbol, Price: price, Timestamp: time.Now().UTC()}, nil
}

// HistoricalCalls returns how many times FetchHistorical ran for symbol.
func (m *MockFetcher) HistoricalCalls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.histCalls[symbol]
}

// QuoteCalls returns how many times FetchQuote ran for symbol.
func (m *MockFetcher) QuoteCalls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quoteCalls[symbol]
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	if basePrice <= 0 || count <= 0 {
		return nil
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   today.AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
