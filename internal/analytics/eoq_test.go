package analytics

import (
	"math"
	"testing"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
)

func constantPredictions(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func price(v float64) *float64 { return &v }

func TestOptimize_ClosedForm(t *testing.T) {
	params := DefaultEOQParams()
	in := OptimizeInput{
		ProductID:    7,
		CurrentStock: 100,
		UnitPrice:    price(20),
		Predictions:  constantPredictions(10, 30),
	}

	got := Optimize(in, params)

	holding := 20 * params.HoldingCostRate
	wantEOQ := math.Sqrt(2 * 10 * 365 * params.OrderingCost / holding)
	assert.InDelta(t, wantEOQ, got.EOQ, 1e-9)
	assert.InDelta(t, 0, got.SafetyStock, 1e-9)
	assert.InDelta(t, 10*params.LeadTimeDays, got.ReorderPoint, 1e-9)
	assert.InDelta(t, wantEOQ, got.OptimalStock, 1e-9)
	assert.InDelta(t, 10, got.AvgDailyDemand, 1e-9)
	assert.Zero(t, got.ExpectedSavings)
	assert.Equal(t, domain.RiskLow, got.RiskLevel)
	assert.Equal(t, int64(7), got.ProductID)
}

func TestOptimize_Savings(t *testing.T) {
	params := DefaultEOQParams()
	in := OptimizeInput{CurrentStock: 1000, UnitPrice: price(20), Predictions: constantPredictions(10, 30)}

	got := Optimize(in, params)

	holding := 20 * params.HoldingCostRate
	want := (1000 - got.OptimalStock) * holding / 365 * 30
	assert.InDelta(t, want, got.ExpectedSavings, 0.01)
}

func TestOptimize_DefaultHoldingCost(t *testing.T) {
	params := DefaultEOQParams()
	got := Optimize(OptimizeInput{CurrentStock: 50, Predictions: constantPredictions(4, 30)}, params)

	want := math.Sqrt(2 * 4 * 365 * params.OrderingCost / params.DefaultHoldingCost)
	assert.InDelta(t, want, got.EOQ, 1e-9)
}

func TestOptimize_HighRiskIsDeterministic(t *testing.T) {
	preds := make([]float64, 30)
	for i := range preds {
		if i%2 == 0 {
			preds[i] = 20
		}
	}
	in := OptimizeInput{CurrentStock: 10, UnitPrice: price(5), Predictions: preds}

	first := Optimize(in, DefaultEOQParams())
	second := Optimize(in, DefaultEOQParams())

	assert.Greater(t, first.StockoutRisk, 0.2)
	assert.Equal(t, domain.RiskHigh, first.RiskLevel)
	assert.Equal(t, first, second)
	assert.Greater(t, first.SafetyStock, 0.0)
}

func TestOptimize_ZeroDemand(t *testing.T) {
	got := Optimize(OptimizeInput{CurrentStock: 40, Predictions: constantPredictions(0, 30)}, DefaultEOQParams())

	assert.Zero(t, got.EOQ)
	assert.Zero(t, got.ReorderPoint)
	assert.Zero(t, got.StockoutRisk)
	assert.Equal(t, domain.RiskLow, got.RiskLevel)
	assert.False(t, math.IsNaN(got.OptimalStock))
	assert.GreaterOrEqual(t, got.ExpectedSavings, 0.0)
}

func TestOptimize_NeverNegative(t *testing.T) {
	cases := []OptimizeInput{
		{CurrentStock: 0, Predictions: nil},
		{CurrentStock: -5, Predictions: constantPredictions(3, 30)},
		{CurrentStock: 500, UnitPrice: price(0), Predictions: []float64{0, 100, 0, 100}},
	}
	for _, in := range cases {
		got := Optimize(in, DefaultEOQParams())
		assert.GreaterOrEqual(t, got.OptimalStock, 0.0)
		assert.GreaterOrEqual(t, got.ReorderPoint, 0.0)
		assert.GreaterOrEqual(t, got.ExpectedSavings, 0.0)
		assert.GreaterOrEqual(t, got.StockoutRisk, 0.0)
		assert.LessOrEqual(t, got.StockoutRisk, 1.0)
	}
}

func TestRiskLevelFor(t *testing.T) {
	assert.Equal(t, domain.RiskLow, RiskLevelFor(0))
	assert.Equal(t, domain.RiskLow, RiskLevelFor(0.1))
	assert.Equal(t, domain.RiskMedium, RiskLevelFor(0.15))
	assert.Equal(t, domain.RiskMedium, RiskLevelFor(0.2))
	assert.Equal(t, domain.RiskHigh, RiskLevelFor(0.21))
}
