package model

import (
	"math"
	"time"
)

// OHLCV represents a single daily bar.
type OHLCV struct {
	Time   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PricePoint is one closing price of a PriceSeries.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is an ascending, date-unique close series for one instrument.
type PriceSeries []PricePoint

// Closes returns the close prices in series order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, p := range s {
		closes[i] = p.Close
	}
	return closes
}

// CacheEntry wraps a cached series with the time it was fetched.
type CacheEntry struct {
	Symbol      string      `json:"symbol"`
	Series      PriceSeries `json:"data"`
	LastUpdated time.Time   `json:"last_updated"`
}

// IsFresh reports whether the entry is younger than window at now.
func (e *CacheEntry) IsFresh(now time.Time, window time.Duration) bool {
	if e == nil || len(e.Series) == 0 {
		return false
	}
	return now.Sub(e.LastUpdated) < window
}

// LiveQuote is the latest trade price of an instrument.
type LiveQuote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Valid reports whether q carries a usable positive, finite price.
func (q *LiveQuote) Valid() bool {
	return q != nil && q.Price > 0 && !math.IsInf(q.Price, 0)
}

// Sector is an ordered group of instrument symbols.
type Sector struct {
	Name    string   `yaml:"name" json:"name"`
	Symbols []string `yaml:"symbols" json:"symbols"`
}

// Instrument is one member of the seeded universe with its daily history.
type Instrument struct {
	Symbol string  `json:"symbol"`
	Sector string  `json:"sector"`
	Quotes []OHLCV `json:"quotes"`
}
