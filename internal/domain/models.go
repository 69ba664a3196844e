package domain

import "time"

// Category groups products that share a forecasting model
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Product is the subset of catalogue data the forecasting engine needs
type Product struct {
	ID           int64     `json:"id" db:"id"`
	SKU          string    `json:"sku" db:"sku"`
	Name         string    `json:"name" db:"name"`
	CategoryID   int64     `json:"category_id" db:"category_id"`
	CurrentStock int       `json:"current_stock" db:"current_stock"`
	UnitPrice    *float64  `json:"unit_price,omitempty" db:"-"`
	Velocity     Velocity  `json:"velocity" db:"velocity"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// HasCategory reports whether the product is attached to a category model
func (p *Product) HasCategory() bool {
	return p != nil && p.CategoryID > 0
}

// Movement is a single stock movement. Outbound movements carry demand.
type Movement struct {
	ProductID int64        `json:"product_id" db:"product_id"`
	Date      time.Time    `json:"date" db:"movement_date"`
	Quantity  int          `json:"quantity" db:"quantity"`
	Type      MovementType `json:"type" db:"movement_type"`
}

// DemandObservation is one calendar day of aggregated outbound demand
type DemandObservation struct {
	Date       time.Time `json:"date"`
	Quantity   int       `json:"quantity"`
	DayOfWeek  int       `json:"day_of_week"`
	DayOfMonth int       `json:"day_of_month"`
	Month      int       `json:"month"`
	IsWeekend  bool      `json:"is_weekend"`
}

// ForecastPoint is the prediction for a single future day
type ForecastPoint struct {
	Date            time.Time `json:"date"`
	PredictedDemand float64   `json:"predicted_demand"`
	Confidence      float64   `json:"confidence"`
	UpperBound      float64   `json:"upper_bound"`
	LowerBound      float64   `json:"lower_bound"`
}

// ForecastResult is the full forecast for a product over the requested horizon
type ForecastResult struct {
	ProductID   int64           `json:"product_id"`
	Predictions []ForecastPoint `json:"predictions"`
	Accuracy    float64         `json:"accuracy"`
	ModelType   ModelType       `json:"model_type"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// PredictedValues returns the predicted demand of every point in order
func (r *ForecastResult) PredictedValues() []float64 {
	values := make([]float64, len(r.Predictions))
	for i, p := range r.Predictions {
		values[i] = p.PredictedDemand
	}
	return values
}

// OptimizationResult holds the stock recommendation derived from a forecast
type OptimizationResult struct {
	ProductID       int64     `json:"product_id"`
	CurrentStock    int       `json:"current_stock"`
	OptimalStock    float64   `json:"optimal_stock"`
	ReorderPoint    float64   `json:"reorder_point"`
	SafetyStock     float64   `json:"safety_stock"`
	EOQ             float64   `json:"eoq"`
	AvgDailyDemand  float64   `json:"avg_daily_demand"`
	ExpectedSavings float64   `json:"expected_savings"`
	StockoutRisk    float64   `json:"stockout_risk"`
	RiskLevel       RiskLevel `json:"risk_level"`
}

// AnomalyRecord is a day whose demand deviates from its recent average
type AnomalyRecord struct {
	Date           time.Time `json:"date"`
	ActualDemand   float64   `json:"actual_demand"`
	ExpectedDemand float64   `json:"expected_demand"`
	AnomalyScore   float64   `json:"anomaly_score"`
	Severity       Severity  `json:"severity"`
}

// Insight is a ranked, human readable finding about a product
type Insight struct {
	ProductID   int64           `json:"product_id"`
	Type        InsightType     `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    InsightPriority `json:"priority"`
	Savings     *float64        `json:"savings,omitempty"`
}
