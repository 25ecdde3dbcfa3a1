package strategy

import (
	"time"

	"PairSentinel/internal/calculator"
	"PairSentinel/internal/model"
)

// RollingStats derives the ratio, z-score and prefix-correlation series of two
// instruments over their common prefix. Dates come from the first instrument.
// It returns false when either history is empty.
func RollingStats(symbol1, symbol2 string, quotes1, quotes2 []model.OHLCV) (*model.RollingPairStats, bool) {
	n := min(len(quotes1), len(quotes2))
	if n == 0 {
		return nil, false
	}

	prices1 := make([]float64, n)
	prices2 := make([]float64, n)
	dates := make([]time.Time, n)
	for i := 0; i < n; i++ {
		prices1[i] = quotes1[i].Close
		prices2[i] = quotes2[i].Close
		dates[i] = quotes1[i].Time
	}

	ratios := make([]float64, n)
	ratioPoints := make([]model.RatioPoint, n)
	for i := range ratios {
		ratios[i] = prices1[i] / prices2[i]
		ratioPoints[i] = model.RatioPoint{Date: dates[i], PriceRatio: ratios[i]}
	}

	meanPR := calculator.Mean(ratios)
	prStdDev := calculator.StdDevPopulation(ratios, meanPR)

	zScores := make([]model.ZScorePoint, n)
	for i, r := range ratios {
		zScores[i] = model.ZScorePoint{Date: dates[i], ZScore: calculator.ZScore(r, meanPR, prStdDev)}
	}

	correlations := make([]model.CorrelationPoint, 0, n)
	for i, c := range calculator.RollingCorrelation(prices1, prices2) {
		correlations = append(correlations, model.CorrelationPoint{Date: dates[i], Correlation: c})
	}

	minPR, maxPR := calculator.MinMax(ratios)
	r4 := calculator.Round4

	return &model.RollingPairStats{
		Stock1:            symbol1,
		Stock2:            symbol2,
		Dates:             dates,
		ZScores:           zScores,
		PriceRatios:       ratioPoints,
		CorrelationValues: correlations,
		LastZScore:        zScores[n-1].ZScore,
		LastCorrelation:   correlations[n-1].Correlation,
		DetailedStats: model.DetailedStats{
			CashNeutralPercentage: calculator.Round(prices2[n-1]/prices1[n-1]*100, 2),
			PRStdDev:              r4(prStdDev),
			ClosePR:               r4(ratios[n-1]),
			MinPR:                 r4(minPR),
			MaxPR:                 r4(maxPR),
			MeanPR:                r4(meanPR),
			SD1:                   r4(meanPR + prStdDev),
			SD2:                   r4(meanPR + 2*prStdDev),
			SD2_7:                 r4(meanPR + 2.7*prStdDev),
			SD3:                   r4(meanPR + 3*prStdDev),
		},
	}, true
}

// ClosesBetween returns the dated closes within [from, to].
func ClosesBetween(quotes []model.OHLCV, from, to time.Time) []model.ClosePrice {
	out := make([]model.ClosePrice, 0)
	for _, q := range quotes {
		if q.Time.Before(from) || q.Time.After(to) {
			continue
		}
		out = append(out, model.ClosePrice{Date: q.Time, ClosePrice: q.Close})
	}
	return out
}
