package analytics

import (
	"math"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

const (
	// StatisticalConfidenceFloor is the lowest confidence the statistical model reports
	StatisticalConfidenceFloor = 0.3
	recentWindowDays           = 7
	intervalZ95                = 1.96
)

// StatisticalForecaster is a trend plus day-of-week seasonal moving-average model.
// It holds no state and is safe for concurrent use.
type StatisticalForecaster struct{}

// Forecast predicts horizon days starting at from. The returned accuracy equals
// the model's confidence.
func (StatisticalForecaster) Forecast(series []domain.DemandObservation, from time.Time, horizon int) ([]domain.ForecastPoint, float64) {
	values := Quantities(series)
	mean := Mean(values)
	std := PopStdDev(values)
	trend := Slope(values)

	recent := values
	if len(recent) > recentWindowDays {
		recent = recent[len(recent)-recentWindowDays:]
	}
	recentAvg := Mean(recent)

	seasonal := weekdayFactors(series, mean)

	confidence := StatisticalConfidenceFloor
	if mean > 0 {
		confidence = Clamp(1-std/mean, StatisticalConfidenceFloor, 1)
	}
	margin := intervalZ95 * std

	from = Day(from)
	points := make([]domain.ForecastPoint, horizon)
	for i := 0; i < horizon; i++ {
		date := from.AddDate(0, 0, i)
		factor := seasonal[date.Weekday()]
		predicted := math.Max(0, math.Round((recentAvg+trend*float64(i+1))*factor))
		points[i] = domain.ForecastPoint{
			Date:            date,
			PredictedDemand: predicted,
			Confidence:      confidence,
			UpperBound:      predicted + margin,
			LowerBound:      math.Max(0, predicted-margin),
		}
	}

	return points, confidence
}

// weekdayFactors returns the ratio of each weekday's mean demand to the overall
// mean. Weekdays with no history, or a zero overall mean, get a neutral 1.
func weekdayFactors(series []domain.DemandObservation, mean float64) [7]float64 {
	var sums [7]float64
	var counts [7]int
	for _, o := range series {
		sums[o.DayOfWeek] += float64(o.Quantity)
		counts[o.DayOfWeek]++
	}

	var factors [7]float64
	for d := range factors {
		factors[d] = 1
		if counts[d] > 0 && mean > 0 {
			factors[d] = (sums[d] / float64(counts[d])) / mean
		}
	}
	return factors
}
