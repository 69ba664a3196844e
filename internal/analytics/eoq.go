package analytics

import (
	"math"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	daysPerYear    = 365
	daysPerMonth   = 30
	riskCoverDays  = 7
	riskHighAbove  = 0.2
	riskMediumOver = 0.1
)

// EOQParams are the cost and service parameters of the stock optimizer
type EOQParams struct {
	OrderingCost       float64
	HoldingCostRate    float64
	DefaultHoldingCost float64
	LeadTimeDays       float64
	ServiceLevelZ      float64
}

// DefaultEOQParams returns the documented defaults (95% service level, 7 day lead time)
func DefaultEOQParams() EOQParams {
	return EOQParams{
		OrderingCost:       50,
		HoldingCostRate:    0.25,
		DefaultHoldingCost: 2,
		LeadTimeDays:       7,
		ServiceLevelZ:      1.645,
	}
}

// OptimizeInput is everything the optimizer needs about one product
type OptimizeInput struct {
	ProductID    int64
	CurrentStock int
	UnitPrice    *float64
	Predictions  []float64
}

// HoldingCost returns the yearly cost of holding one unit
func (p EOQParams) HoldingCost(unitPrice *float64) float64 {
	if unitPrice != nil && *unitPrice > 0 {
		return *unitPrice * p.HoldingCostRate
	}
	return p.DefaultHoldingCost
}

// Optimize derives EOQ, safety stock, reorder point, savings and stockout risk
// from a demand forecast. All outputs are non-negative.
func Optimize(in OptimizeInput, p EOQParams) domain.OptimizationResult {
	avgDaily := math.Max(0, Mean(in.Predictions))
	variability := PopStdDev(in.Predictions)
	holding := p.HoldingCost(in.UnitPrice)
	leadTime := math.Max(0, p.LeadTimeDays)

	eoq := 0.0
	annualDemand := avgDaily * daysPerYear
	if annualDemand > 0 && holding > 0 && p.OrderingCost > 0 {
		eoq = math.Sqrt(2 * annualDemand * p.OrderingCost / holding)
	}

	safetyStock := math.Max(0, p.ServiceLevelZ*math.Sqrt(leadTime)*variability)
	reorderPoint := avgDaily*leadTime + safetyStock
	optimalStock := eoq + safetyStock

	currentHolding := monthlyHoldingCost(float64(in.CurrentStock), holding)
	optimizedHolding := monthlyHoldingCost(optimalStock, holding)
	savings := roundMoney(math.Max(0, currentHolding-optimizedHolding))

	risk := StockoutRisk(in.CurrentStock, avgDaily, variability)

	return domain.OptimizationResult{
		ProductID:       in.ProductID,
		CurrentStock:    in.CurrentStock,
		OptimalStock:    optimalStock,
		ReorderPoint:    reorderPoint,
		SafetyStock:     safetyStock,
		EOQ:             eoq,
		AvgDailyDemand:  avgDaily,
		ExpectedSavings: savings,
		StockoutRisk:    risk,
		RiskLevel:       RiskLevelFor(risk),
	}
}

// StockoutRisk estimates the chance of running out within a week.
// Zero demand carries no risk.
func StockoutRisk(currentStock int, avgDaily, variability float64) float64 {
	if avgDaily <= 0 {
		return 0
	}
	coverDays := float64(currentStock) / avgDaily
	return Clamp01((riskCoverDays - coverDays) * (variability / avgDaily) / riskCoverDays)
}

// RiskLevelFor maps a stockout risk to its level
func RiskLevelFor(risk float64) domain.RiskLevel {
	switch {
	case risk > riskHighAbove:
		return domain.RiskHigh
	case risk > riskMediumOver:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func monthlyHoldingCost(stock, holdingCost float64) float64 {
	return math.Max(0, stock) * holdingCost / daysPerYear * daysPerMonth
}

func roundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
