package model

import (
	"encoding/json"
	"math"
	"time"
)

// Pair is two instruments of the same sector, in enumeration order.
type Pair struct {
	Sector  string
	Symbol1 string
	Symbol2 string
}

// ID returns the canonical pair identifier.
func (p Pair) ID() string {
	return PairID(p.Symbol1, p.Symbol2)
}

// PairID joins two symbols in the given order.
func PairID(symbol1, symbol2 string) string {
	return symbol1 + "-" + symbol2
}

// PairMetrics is the signal record of one pair.
type PairMetrics struct {
	Pair            string    `json:"pair"`
	Sector          string    `json:"sector"`
	Correlation     float64   `json:"correlation"`
	PSD             float64   `json:"psd"`
	LSD             float64   `json:"lsd"`
	PPR             float64   `json:"ppr"`
	LPR             float64   `json:"lpr"`
	LFD             float64   `json:"lfd"`
	LFSD            float64   `json:"lfsd"`
	TwoSD           float64   `json:"twoSD"`
	TwoPointSevenSD float64   `json:"twoPointSevenSD"`
	ThreeSD         float64   `json:"threeSD"`
	MTM             float64   `json:"mtm"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// pairMetricsJSON is the wire form of PairMetrics. encoding/json rejects NaN
// and infinities, so every numeric field travels as a nullable number.
type pairMetricsJSON struct {
	Pair            string    `json:"pair"`
	Sector          string    `json:"sector"`
	Correlation     *float64  `json:"correlation"`
	PSD             *float64  `json:"psd"`
	LSD             *float64  `json:"lsd"`
	PPR             *float64  `json:"ppr"`
	LPR             *float64  `json:"lpr"`
	LFD             *float64  `json:"lfd"`
	LFSD            *float64  `json:"lfsd"`
	TwoSD           *float64  `json:"twoSD"`
	TwoPointSevenSD *float64  `json:"twoPointSevenSD"`
	ThreeSD         *float64  `json:"threeSD"`
	MTM             *float64  `json:"mtm"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// MarshalJSON writes every non-finite number as null.
func (m PairMetrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(pairMetricsJSON{
		Pair:            m.Pair,
		Sector:          m.Sector,
		Correlation:     finite(m.Correlation),
		PSD:             finite(m.PSD),
		LSD:             finite(m.LSD),
		PPR:             finite(m.PPR),
		LPR:             finite(m.LPR),
		LFD:             finite(m.LFD),
		LFSD:            finite(m.LFSD),
		TwoSD:           finite(m.TwoSD),
		TwoPointSevenSD: finite(m.TwoPointSevenSD),
		ThreeSD:         finite(m.ThreeSD),
		MTM:             finite(m.MTM),
		LastUpdated:     m.LastUpdated,
	})
}

// UnmarshalJSON reads a null or missing number back as NaN.
func (m *PairMetrics) UnmarshalJSON(data []byte) error {
	var in pairMetricsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*m = PairMetrics{
		Pair:            in.Pair,
		Sector:          in.Sector,
		Correlation:     orNaN(in.Correlation),
		PSD:             orNaN(in.PSD),
		LSD:             orNaN(in.LSD),
		PPR:             orNaN(in.PPR),
		LPR:             orNaN(in.LPR),
		LFD:             orNaN(in.LFD),
		LFSD:            orNaN(in.LFSD),
		TwoSD:           orNaN(in.TwoSD),
		TwoPointSevenSD: orNaN(in.TwoPointSevenSD),
		ThreeSD:         orNaN(in.ThreeSD),
		MTM:             orNaN(in.MTM),
		LastUpdated:     in.LastUpdated,
	}
	return nil
}
