package forecast

import (
	"math"

	"fincast/pkg/contracts/domain"
)

// DefaultEpsilon is the floor below which an untagged magnitude is treated as zero noise
const DefaultEpsilon = 1e-4

// Shock is a resolved percentage-point adjustment
type Shock struct {
	// Total is in percentage points
	Total float64
	// Events is the number of matrix rows that contributed
	Events int
	// Scaled reports that untagged cells were multiplied by 100
	Scaled bool
}

// ShockResolver turns impact matrix cells into percentage-point shocks
type ShockResolver struct {
	epsilon float64
}

// NewShockResolver creates a resolver; epsilon <= 0 selects DefaultEpsilon
func NewShockResolver(epsilon float64) *ShockResolver {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &ShockResolver{epsilon: epsilon}
}

// ResolveShock returns the pp shock for indicator from events dated year,
// scaled by the scenario multiplier. Rows without a "(<year>)" suffix and
// missing columns contribute nothing.
func (r *ShockResolver) ResolveShock(year int, m *domain.ImpactMatrix, indicator string, sc domain.Scenario) float64 {
	return r.Resolve(year, m, indicator, sc).Total
}

// Resolve is ResolveShock with contribution details
func (r *ShockResolver) Resolve(year int, m *domain.ImpactMatrix, indicator string, sc domain.Scenario) Shock {
	if m.IsEmpty() {
		return Shock{}
	}
	return r.sum(m, indicator, sc.Multiplier, func(label string) bool {
		eventYear, ok := domain.EventYear(label)
		return ok && eventYear == year
	})
}

// ColumnTotal returns the pp total of indicator over every event, whatever its year
func (r *ShockResolver) ColumnTotal(m *domain.ImpactMatrix, indicator string, sc domain.Scenario) Shock {
	if m.IsEmpty() {
		return Shock{}
	}
	return r.sum(m, indicator, sc.Multiplier, func(string) bool { return true })
}

// sum accumulates matching cells. Tagged cells are converted per cell;
// untagged cells are summed and normalized once, after the multiplier.
func (r *ShockResolver) sum(m *domain.ImpactMatrix, indicator string, multiplier float64, match func(string) bool) Shock {
	var pp, legacy float64
	var hasLegacy bool
	events := 0

	for _, label := range m.Events {
		if !match(label) {
			continue
		}
		cell, ok := m.Get(label, indicator)
		if !ok {
			continue
		}
		events++
		v := cell.Value * multiplier
		switch cell.Unit {
		case domain.UnitPercentagePoints:
			pp += v
		case domain.UnitFraction:
			pp += v * 100
		default:
			legacy += v
			hasLegacy = true
		}
	}

	shock := Shock{Total: pp, Events: events}
	if hasLegacy {
		normalized, scaled := normalizeLegacy(legacy, r.epsilon)
		shock.Total += normalized
		shock.Scaled = scaled
	}
	return shock
}

// normalizeLegacy applies the magnitude-scale heuristic to untagged values:
// anything strictly between epsilon and 1 in absolute value is read as a
// fraction and converted to percentage points. A genuine sub-1pp shock is
// therefore inflated; tag the matrix unit to avoid this.
func normalizeLegacy(v, epsilon float64) (float64, bool) {
	abs := math.Abs(v)
	if abs > epsilon && abs < 1.0 {
		return v * 100, true
	}
	return v, false
}

// UnparseableLabels returns the matrix rows that carry no "(<year>)" suffix
func UnparseableLabels(m *domain.ImpactMatrix) []string {
	if m.IsEmpty() {
		return nil
	}
	var labels []string
	for _, label := range m.Events {
		if _, ok := domain.EventYear(label); !ok {
			labels = append(labels, label)
		}
	}
	return labels
}
