package analytics

import (
	"math"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// AnomalyParams configures the rolling z-score test
type AnomalyParams struct {
	Window          int
	MinObservations int
	Threshold       float64
	Medium          float64
	High            float64
}

// DefaultAnomalyParams returns a 7-day window with thresholds 2 / 2.5 / 3
func DefaultAnomalyParams() AnomalyParams {
	return AnomalyParams{
		Window:          7,
		MinObservations: 14,
		Threshold:       2,
		Medium:          2.5,
		High:            3,
	}
}

// DetectAnomalies flags days whose demand deviates from the average of the
// preceding window by more than Threshold global standard deviations. Flagged
// days are returned in chronological order. Short series yield no anomalies.
func DetectAnomalies(series []domain.DemandObservation, p AnomalyParams) []domain.AnomalyRecord {
	anomalies := []domain.AnomalyRecord{}
	if p.Window <= 0 || len(series) < p.MinObservations || len(series) <= p.Window {
		return anomalies
	}

	values := Quantities(series)
	std := PopStdDev(values)
	if std == 0 {
		return anomalies
	}

	for i := p.Window; i < len(values); i++ {
		expected := Mean(values[i-p.Window : i])
		z := math.Abs(values[i]-expected) / std
		if z <= p.Threshold {
			continue
		}
		anomalies = append(anomalies, domain.AnomalyRecord{
			Date:           series[i].Date,
			ActualDemand:   values[i],
			ExpectedDemand: expected,
			AnomalyScore:   z,
			Severity:       p.severity(z),
		})
	}
	return anomalies
}

func (p AnomalyParams) severity(z float64) domain.Severity {
	switch {
	case z > p.High:
		return domain.SeverityHigh
	case z > p.Medium:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}
