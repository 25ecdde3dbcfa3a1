package strategy

import (
	"testing"
	"time"

	"PairSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bars(start time.Time, closes ...float64) []model.OHLCV {
	out := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Close: c}
	}
	return out
}

func TestRollingStats(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q1 := bars(start, 10, 12, 9, 8, 100)
	q2 := bars(start.AddDate(0, 0, 7), 5, 4, 3, 4)

	st, ok := RollingStats("A", "B", q1, q2)
	require.True(t, ok)

	assert.Equal(t, "A", st.Stock1)
	assert.Len(t, st.Dates, 4)
	assert.Equal(t, start, st.Dates[0], "dates follow the first instrument")
	assert.Equal(t, []float64{2, 3, 3, 2}, []float64{
		st.PriceRatios[0].PriceRatio, st.PriceRatios[1].PriceRatio,
		st.PriceRatios[2].PriceRatio, st.PriceRatios[3].PriceRatio,
	})
	require.Len(t, st.CorrelationValues, 4)
	assert.Equal(t, 0.0, st.CorrelationValues[0].Correlation)

	d := st.DetailedStats
	assert.Equal(t, 2.5, d.MeanPR)
	assert.Equal(t, 0.5, d.PRStdDev)
	assert.Equal(t, 2.0, d.MinPR)
	assert.Equal(t, 3.0, d.MaxPR)
	assert.Equal(t, 2.0, d.ClosePR)
	assert.Equal(t, 3.0, d.SD1)
	assert.Equal(t, 3.5, d.SD2)
	assert.Equal(t, 3.85, d.SD2_7)
	assert.Equal(t, 4.0, d.SD3)
	assert.Equal(t, 50.0, d.CashNeutralPercentage)
	assert.Equal(t, -1.0, st.LastZScore)
	assert.Equal(t, st.CorrelationValues[3].Correlation, st.LastCorrelation)
}

func TestRollingStats_Empty(t *testing.T) {
	_, ok := RollingStats("A", "B", nil, bars(time.Now(), 1))
	assert.False(t, ok)
}

func TestClosesBetween(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := bars(start, 1, 2, 3, 4, 5)
	got := ClosesBetween(q, start.AddDate(0, 0, 1), start.AddDate(0, 0, 3))
	require.Len(t, got, 3)
	assert.Equal(t, 2.0, got[0].ClosePrice)
	assert.Equal(t, 4.0, got[2].ClosePrice)
	assert.NotNil(t, ClosesBetween(nil, start, start))
}
