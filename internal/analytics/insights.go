package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

const (
	lowAccuracyThreshold = 0.7
	excessStockRatio     = 1.5
	recentAnomalyDays    = 7
)

// InsightInput bundles the engine outputs for one product. Nil parts are skipped.
type InsightInput struct {
	ProductID    int64
	Forecast     *domain.ForecastResult
	Optimization *domain.OptimizationResult
	Anomalies    []domain.AnomalyRecord
	Now          time.Time
}

// SynthesizeInsights applies every insight rule and returns the findings ordered
// by priority, CRITICAL first. Rules are independent; all applicable ones fire.
func SynthesizeInsights(in InsightInput) []domain.Insight {
	insights := []domain.Insight{}

	if f := in.Forecast; f != nil && f.Accuracy < lowAccuracyThreshold {
		insights = append(insights, domain.Insight{
			ProductID: in.ProductID,
			Type:      domain.InsightWarning,
			Title:     "Low forecast accuracy",
			Description: fmt.Sprintf("Forecast accuracy is %.0f%% using the %s model; treat predictions with caution until more history is available.",
				f.Accuracy*100, modelLabel(f.ModelType)),
			Priority: domain.PriorityMedium,
		})
	}

	if o := in.Optimization; o != nil {
		if float64(o.CurrentStock) > excessStockRatio*o.OptimalStock {
			savings := o.ExpectedSavings
			insights = append(insights, domain.Insight{
				ProductID: in.ProductID,
				Type:      domain.InsightOptimization,
				Title:     "Excess inventory",
				Description: fmt.Sprintf("Current stock of %d units is well above the optimal %.0f units. Reducing it could save %.2f per month in holding costs.",
					o.CurrentStock, o.OptimalStock, savings),
				Priority: domain.PriorityHigh,
				Savings:  &savings,
			})
		}

		if o.RiskLevel == domain.RiskHigh {
			insights = append(insights, domain.Insight{
				ProductID: in.ProductID,
				Type:      domain.InsightWarning,
				Title:     "Stockout risk",
				Description: fmt.Sprintf("Stock of %d units covers less demand than expected during lead time. Reorder now; reorder point is %.0f units.",
					o.CurrentStock, o.ReorderPoint),
				Priority: domain.PriorityCritical,
			})
		}
	}

	if n := countRecent(in.Anomalies, in.Now, recentAnomalyDays); n > 0 {
		insights = append(insights, domain.Insight{
			ProductID:   in.ProductID,
			Type:        domain.InsightInfo,
			Title:       "Unusual demand detected",
			Description: fmt.Sprintf("%d abnormal demand day(s) in the last %d days.", n, recentAnomalyDays),
			Priority:    domain.PriorityLow,
		})
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Priority.Rank() < insights[j].Priority.Rank()
	})
	return insights
}

func countRecent(anomalies []domain.AnomalyRecord, now time.Time, days int) int {
	cutoff := Day(now).AddDate(0, 0, -(days - 1))
	n := 0
	for _, a := range anomalies {
		if !a.Date.Before(cutoff) {
			n++
		}
	}
	return n
}

func modelLabel(t domain.ModelType) string {
	if t == domain.ModelNeuralNetwork {
		return "neural network"
	}
	return "statistical"
}
