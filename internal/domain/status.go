package domain

import "strings"

// ModelType identifies which forecaster produced a result
type ModelType string

const (
	ModelStatistical   ModelType = "STATISTICAL"
	ModelNeuralNetwork ModelType = "NEURAL_NETWORK"
)

// RiskLevel classifies stockout exposure
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Severity classifies how far an anomaly deviates
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Velocity classifies how fast a product sells
type Velocity string

const (
	VelocityHigh   Velocity = "HIGH"
	VelocityMedium Velocity = "MEDIUM"
	VelocityLow    Velocity = "LOW"
)

// VelocityPriority lists velocities from fastest to slowest moving
func VelocityPriority() []Velocity {
	return []Velocity{VelocityHigh, VelocityMedium, VelocityLow}
}

// MovementType distinguishes stock entering and leaving
type MovementType string

const (
	MovementInbound    MovementType = "IN"
	MovementOutbound   MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// InsightType is the kind of insight emitted
type InsightType string

const (
	InsightWarning      InsightType = "WARNING"
	InsightOptimization InsightType = "OPTIMIZATION"
	InsightInfo         InsightType = "INFO"
)

// InsightPriority orders insights, CRITICAL first
type InsightPriority string

const (
	PriorityCritical InsightPriority = "CRITICAL"
	PriorityHigh     InsightPriority = "HIGH"
	PriorityMedium   InsightPriority = "MEDIUM"
	PriorityLow      InsightPriority = "LOW"
)

var priorityRanks = map[InsightPriority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// Rank returns the sort rank of a priority. Unknown priorities sort last.
func (p InsightPriority) Rank() int {
	if rank, ok := priorityRanks[p]; ok {
		return rank
	}
	return len(priorityRanks)
}

var velocityCodes = map[string]Velocity{
	"high":   VelocityHigh,
	"medium": VelocityMedium,
	"low":    VelocityLow,
}

// ParseVelocity returns the velocity for a given label (case-insensitive).
func ParseVelocity(label string) (Velocity, bool) {
	v, ok := velocityCodes[strings.ToLower(strings.TrimSpace(label))]

	return v, ok
}

var movementTypeCodes = map[string]MovementType{
	"in":         MovementInbound,
	"inbound":    MovementInbound,
	"out":        MovementOutbound,
	"outbound":   MovementOutbound,
	"adjustment": MovementAdjustment,
}

// ParseMovementType returns the movement type for a given label (case-insensitive).
func ParseMovementType(label string) (MovementType, bool) {
	t, ok := movementTypeCodes[strings.ToLower(strings.TrimSpace(label))]

	return t, ok
}
