package ta

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// PctChange is the fractional move from the first to the last of the trailing
// n values. It is 0 while fewer than n values exist.
func PctChange(vals []float64, n int) float64 {
	if n < 2 || len(vals) < n {
		return 0
	}
	first := vals[len(vals)-n]
	if first == 0 {
		return 0
	}
	return (vals[len(vals)-1] - first) / first
}

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	return stat.Mean(closes[len(closes)-n:], nil)
}

// StdDev is the population standard deviation of the trailing n values.
func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	_, v := stat.PopMeanVariance(vals[len(vals)-n:], nil)
	return math.Sqrt(v)
}

// Returns converts prices into simple period-over-period returns.
func Returns(vals []float64) []float64 {
	if len(vals) < 2 {
		return nil
	}
	out := make([]float64, 0, len(vals)-1)
	for i := 1; i < len(vals); i++ {
		if vals[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (vals[i]-vals[i-1])/vals[i-1])
	}
	return out
}

// Volatility is the sample standard deviation of returns over the series.
func Volatility(vals []float64) float64 {
	r := Returns(vals)
	if len(r) < 2 {
		return 0
	}
	return stat.StdDev(r, nil)
}
