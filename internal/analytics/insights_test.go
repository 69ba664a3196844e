package analytics

import (
	"testing"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeInsights_AllRulesFireInPriorityOrder(t *testing.T) {
	now := date(2025, 5, 20)
	in := InsightInput{
		ProductID: 3,
		Forecast:  &domain.ForecastResult{ProductID: 3, Accuracy: 0.55, ModelType: domain.ModelStatistical},
		Optimization: &domain.OptimizationResult{
			ProductID:       3,
			CurrentStock:    400,
			OptimalStock:    100,
			ReorderPoint:    60,
			ExpectedSavings: 123.45,
			RiskLevel:       domain.RiskHigh,
		},
		Anomalies: []domain.AnomalyRecord{
			{Date: date(2025, 5, 1), Severity: domain.SeverityLow},
			{Date: date(2025, 5, 15), Severity: domain.SeverityHigh},
			{Date: date(2025, 5, 19), Severity: domain.SeverityMedium},
		},
		Now: now,
	}

	insights := SynthesizeInsights(in)

	require.Len(t, insights, 4)
	assert.Equal(t, domain.PriorityCritical, insights[0].Priority)
	assert.Equal(t, "Stockout risk", insights[0].Title)
	assert.Equal(t, domain.PriorityHigh, insights[1].Priority)
	require.NotNil(t, insights[1].Savings)
	assert.InDelta(t, 123.45, *insights[1].Savings, 1e-9)
	assert.Equal(t, domain.PriorityMedium, insights[2].Priority)
	assert.Equal(t, domain.InsightWarning, insights[2].Type)
	assert.Equal(t, domain.PriorityLow, insights[3].Priority)
	assert.Contains(t, insights[3].Description, "2 abnormal")
	for _, i := range insights {
		assert.Equal(t, int64(3), i.ProductID)
	}
}

func TestSynthesizeInsights_NoFindings(t *testing.T) {
	in := InsightInput{
		ProductID:    1,
		Forecast:     &domain.ForecastResult{Accuracy: 0.9},
		Optimization: &domain.OptimizationResult{CurrentStock: 100, OptimalStock: 90, RiskLevel: domain.RiskLow},
		Now:          date(2025, 5, 20),
	}

	insights := SynthesizeInsights(in)
	assert.NotNil(t, insights)
	assert.Empty(t, insights)
}

func TestSynthesizeInsights_SkipsMissingParts(t *testing.T) {
	insights := SynthesizeInsights(InsightInput{ProductID: 1, Now: date(2025, 5, 20)})
	assert.Empty(t, insights)
}

func TestSynthesizeInsights_ExcessWithZeroOptimalStock(t *testing.T) {
	in := InsightInput{
		ProductID:    5,
		Optimization: &domain.OptimizationResult{CurrentStock: 500, OptimalStock: 0, ExpectedSavings: 82.19, RiskLevel: domain.RiskLow},
		Now:          date(2025, 5, 20),
	}

	insights := SynthesizeInsights(in)

	require.Len(t, insights, 1)
	assert.Equal(t, "Excess inventory", insights[0].Title)
	assert.Equal(t, domain.PriorityHigh, insights[0].Priority)
	require.NotNil(t, insights[0].Savings)
	assert.InDelta(t, 82.19, *insights[0].Savings, 1e-9)
}

func TestSynthesizeInsights_RecentAnomalyWindowIsSevenDaysInclusive(t *testing.T) {
	in := InsightInput{
		ProductID: 1,
		Anomalies: []domain.AnomalyRecord{
			{Date: date(2025, 5, 13), Severity: domain.SeverityHigh},
			{Date: date(2025, 5, 14), Severity: domain.SeverityMedium},
			{Date: date(2025, 5, 20), Severity: domain.SeverityLow},
		},
		Now: date(2025, 5, 20).Add(15 * time.Hour),
	}

	insights := SynthesizeInsights(in)

	require.Len(t, insights, 1)
	assert.Contains(t, insights[0].Description, "2 abnormal")
}
