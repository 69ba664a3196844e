package model

import (
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"gonum.org/v1/gonum/floats"
)

const (
	// LagDays is the number of lagged daily demands in a feature vector
	LagDays = 7
	// WindowDays is the number of days preceding each training label
	WindowDays = 10
	// FeatureWidth is seven lags plus day-of-week, day-of-month and month
	FeatureWidth = LagDays + 3
)

// DemandScale is the divisor applied to demand features and labels so one
// category model can serve products of different magnitude.
func DemandScale(values []float64) float64 {
	if len(values) == 0 {
		return 1
	}
	if m := floats.Max(values); m > 1 {
		return m
	}
	return 1
}

// Features builds the network input for the day date from its preceding lags
// (oldest first). Demands are divided by scale, calendar fields by their range.
func Features(lags []float64, date time.Time, scale float64) []float64 {
	f := make([]float64, 0, FeatureWidth)
	for _, v := range lags {
		f = append(f, v/scale)
	}
	return append(f,
		float64(date.Weekday())/6,
		float64(date.Day())/31,
		float64(date.Month())/12,
	)
}

// TrainingSet turns a daily series into supervised samples: for every day with
// WindowDays predecessors, the features are the previous LagDays demands and the
// day's calendar fields, and the label is the day's demand.
func TrainingSet(series []domain.DemandObservation, scale float64) ([][]float64, []float64) {
	if len(series) <= WindowDays {
		return nil, nil
	}
	x := make([][]float64, 0, len(series)-WindowDays)
	y := make([]float64, 0, len(series)-WindowDays)
	for i := WindowDays; i < len(series); i++ {
		lags := make([]float64, LagDays)
		for k := 0; k < LagDays; k++ {
			lags[k] = float64(series[i-LagDays+k].Quantity)
		}
		x = append(x, Features(lags, series[i].Date, scale))
		y = append(y, float64(series[i].Quantity)/scale)
	}
	return x, y
}

// WindowCount is the number of training samples a series of length n yields
func WindowCount(n int) int {
	if n <= WindowDays {
		return 0
	}
	return n - WindowDays
}
