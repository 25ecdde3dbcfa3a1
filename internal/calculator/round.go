package calculator

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round rounds x half away from zero to the given number of decimal places.
// NaN and infinities are returned unchanged.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}

// Round4 rounds to the four places used by every published metric.
func Round4(x float64) float64 {
	return Round(x, 4)
}
