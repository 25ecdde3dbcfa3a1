package calculator

import "math"

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDevPopulation computes the standard deviation of xs around mean, dividing by N.
func StdDevPopulation(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return math.Sqrt(sumSquares(xs, mean) / float64(len(xs)))
}

// StdDevSample computes the standard deviation of xs around mean, dividing by N-1.
// A single point divides zero by zero and yields NaN.
func StdDevSample(xs []float64, mean float64) float64 {
	return math.Sqrt(sumSquares(xs, mean) / float64(len(xs)-1))
}

func sumSquares(xs []float64, mean float64) float64 {
	sum := 0.0
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return sum
}

// Correlation returns the Pearson correlation coefficient of xs and ys.
// It returns 0 for empty or unequal inputs and when either series is constant.
func Correlation(xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return 0
	}

	meanX := Mean(xs)
	meanY := Mean(ys)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	denominator := math.Sqrt(varX * varY)
	if denominator == 0 {
		return 0
	}
	return cov / denominator
}

// ZScore standardizes value, returning 0 when stdDev is zero.
func ZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}

// MinMax returns the smallest and largest element of xs.
func MinMax(xs []float64) (min, max float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	min, max = xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return min, max
}
