package model

import "time"

// RatioPoint is one price ratio of a pair at a date.
type RatioPoint struct {
	Date       time.Time `json:"date"`
	PriceRatio float64   `json:"priceRatio"`
}

// ZScorePoint is the z-score of the price ratio at a date.
type ZScorePoint struct {
	Date   time.Time `json:"date"`
	ZScore float64   `json:"zScore"`
}

// CorrelationPoint is the prefix correlation at a date.
type CorrelationPoint struct {
	Date        time.Time `json:"date"`
	Correlation float64   `json:"correlation"`
}

// DetailedStats summarizes a pair's price ratio distribution.
type DetailedStats struct {
	CashNeutralPercentage float64 `json:"cashNeutralPercentage"`
	PRStdDev              float64 `json:"prStdDev"`
	ClosePR               float64 `json:"closePR"`
	MinPR                 float64 `json:"minPR"`
	MaxPR                 float64 `json:"maxPR"`
	MeanPR                float64 `json:"meanPR"`
	SD1                   float64 `json:"SD1"`
	SD2                   float64 `json:"SD2"`
	SD2_7                 float64 `json:"SD2_7"`
	SD3                   float64 `json:"SD3"`
}

// RollingPairStats is the query-time time series view of a pair.
type RollingPairStats struct {
	Stock1            string             `json:"stock1"`
	Stock2            string             `json:"stock2"`
	Dates             []time.Time        `json:"dates"`
	ZScores           []ZScorePoint      `json:"zScores"`
	PriceRatios       []RatioPoint       `json:"priceRatios"`
	CorrelationValues []CorrelationPoint `json:"correlationValues"`
	LastZScore        float64            `json:"lastZScore"`
	LastCorrelation   float64            `json:"lastCorrelation"`
	DetailedStats     DetailedStats      `json:"detailedStats"`
}

// ClosePrice is a dated close of the close-prices query.
type ClosePrice struct {
	Date       time.Time `json:"date"`
	ClosePrice float64   `json:"closePrice"`
}

// SymbolClosePrices holds one instrument's windowed closes.
type SymbolClosePrices struct {
	Symbol      string       `json:"symbol"`
	ClosePrices []ClosePrice `json:"closePrices"`
}

// PairClosePrices is the result of the close-prices query.
type PairClosePrices struct {
	Stock1 SymbolClosePrices `json:"stock1"`
	Stock2 SymbolClosePrices `json:"stock2"`
}

// PairCorrelation is the full-history correlation of two instruments.
type PairCorrelation struct {
	Stock1      string  `json:"stock1"`
	Stock2      string  `json:"stock2"`
	Correlation float64 `json:"correlation"`
}

// SectorPair is the quote-history summary of one intra-sector pair.
type SectorPair struct {
	Sector      string  `json:"sector"`
	Stock1      string  `json:"stock1"`
	Stock2      string  `json:"stock2"`
	Correlation float64 `json:"correlation"`
	MeanRatio   float64 `json:"meanRatio"`
	StdDevRatio float64 `json:"stdDevRatio"`
}

// PairZScores is the z-score series of a pair's price ratio.
type PairZScores struct {
	Stock1  string        `json:"stock1"`
	Stock2  string        `json:"stock2"`
	ZScores []ZScorePoint `json:"zScores"`
}
