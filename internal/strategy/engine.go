package strategy

import (
	"time"

	"PairSentinel/internal/calculator"
	"PairSentinel/internal/model"
)

// Alignment selects how two price series are paired point by point.
type Alignment string

const (
	// AlignIndex pairs the i-th point of each series regardless of date.
	AlignIndex Alignment = "index"
	// AlignDate pairs points sharing a calendar date and drops the rest.
	AlignDate Alignment = "date"
)

// Input carries everything Evaluate needs for one pair.
type Input struct {
	Pair       model.Pair
	Series1    model.PriceSeries
	Series2    model.PriceSeries
	LivePrice1 float64
	LivePrice2 float64
	Alignment  Alignment
	Now        time.Time
}

// Evaluate computes the signal record of a pair, or nil when the pair's
// correlation is outside (0, 1].
func Evaluate(in Input) *model.PairMetrics {
	s1, s2 := in.Series1, in.Series2
	if in.Alignment == AlignDate {
		s1, s2 = AlignByDate(s1, s2)
	}
	closes1 := s1.Closes()
	closes2 := s2.Closes()

	correlation := calculator.Correlation(closes1, closes2)
	if correlation <= 0 || correlation > 1 {
		return nil
	}

	psd := in.LivePrice1 - in.LivePrice2

	// Spread history is keyed on the first series; a missing second close counts as 0.
	spreads := make([]float64, len(closes1))
	for i, c1 := range closes1 {
		c2 := 0.0
		if i < len(closes2) {
			c2 = closes2[i]
		}
		spreads[i] = c1 - c2
	}
	avgPSD := calculator.Mean(spreads)
	stdPSD := calculator.StdDevSample(spreads, avgPSD)

	// stdPSD == 0 leaves lsd non-finite on purpose.
	lsd := (psd - avgPSD) / stdPSD

	ppr := in.LivePrice1 / in.LivePrice2
	lpr := ppr / correlation

	const lfd = 0.0

	return &model.PairMetrics{
		Pair:            in.Pair.ID(),
		Sector:          in.Pair.Sector,
		Correlation:     calculator.Round4(correlation),
		PSD:             calculator.Round4(psd),
		LSD:             calculator.Round4(lsd),
		PPR:             calculator.Round4(ppr),
		LPR:             calculator.Round4(lpr),
		LFD:             calculator.Round4(lfd),
		LFSD:            calculator.Round4(stdPSD),
		TwoSD:           calculator.Round4(2 * stdPSD),
		TwoPointSevenSD: calculator.Round4(2.7 * stdPSD),
		ThreeSD:         calculator.Round4(3 * stdPSD),
		MTM:             calculator.Round4(psd),
		LastUpdated:     in.Now,
	}
}
