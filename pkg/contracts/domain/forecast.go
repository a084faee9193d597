package domain

import "fmt"

// Canonical scenario names
const (
	ScenarioBase        = "Base"
	ScenarioOptimistic  = "Optimistic"
	ScenarioPessimistic = "Pessimistic"
)

// CanonicalScenarioOrder is the fixed output ordering of scenarios
var CanonicalScenarioOrder = []string{ScenarioBase, ScenarioOptimistic, ScenarioPessimistic}

// ScenarioRank returns the position of name in the canonical order, or -1
func ScenarioRank(name string) int {
	for i, s := range CanonicalScenarioOrder {
		if s == name {
			return i
		}
	}
	return -1
}

// Scenario is a named multiplier profile applied to event shocks
type Scenario struct {
	Name       string  `json:"name" yaml:"name" validate:"required,oneof=Base Optimistic Pessimistic"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier" validate:"gte=0"`
	Adjustment float64 `json:"adjustment" yaml:"adjustment"`
}

// DefaultScenarios returns Base 1.0, Optimistic 1.2 (+1pp), Pessimistic 0.5 (-1pp)
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: ScenarioBase, Multiplier: 1.0, Adjustment: 0},
		{Name: ScenarioOptimistic, Multiplier: 1.2, Adjustment: 1.0},
		{Name: ScenarioPessimistic, Multiplier: 0.5, Adjustment: -1.0},
	}
}

// Policy selects how event shocks are combined with the baseline
type Policy string

const (
	// PolicyCumulative accumulates dated shocks year over year
	PolicyCumulative Policy = "cumulative"
	// PolicyRamp adds the ramped matrix column total to each year's baseline
	PolicyRamp Policy = "ramp"
)

// ParsePolicy validates a policy name
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyCumulative, PolicyRamp:
		return p, nil
	case "":
		return PolicyCumulative, nil
	default:
		return "", fmt.Errorf("unknown forecast policy %q", s)
	}
}

// ForecastRecord is one (year, scenario) output row.
// A nil rate means the indicator had no history to project from.
type ForecastRecord struct {
	Year       int      `json:"year"`
	Scenario   string   `json:"scenario"`
	AccessRate *float64 `json:"access_rate"`
	UsageRate  *float64 `json:"usage_rate"`
	LowerCI    *float64 `json:"lower_ci"`
	UpperCI    *float64 `json:"upper_ci"`
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
