package analytics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopStdDev calculates the population standard deviation (divides by n)
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(data, nil)
	if math.IsNaN(std) {
		return 0
	}
	return std
}

// Slope returns the ordinary least squares slope of data against its index
func Slope(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	x := make([]float64, len(data))
	for i := range x {
		x[i] = float64(i)
	}
	_, beta := stat.LinearRegression(x, data, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0
	}
	return beta
}

// Clamp bounds v to [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v to [0, 1]
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Day truncates t to midnight UTC of its calendar day
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
