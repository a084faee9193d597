package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fincast/pkg/contracts/domain"
)

var (
	base        = domain.Scenario{Name: domain.ScenarioBase, Multiplier: 1.0}
	optimistic  = domain.Scenario{Name: domain.ScenarioOptimistic, Multiplier: 1.2, Adjustment: 1}
	pessimistic = domain.Scenario{Name: domain.ScenarioPessimistic, Multiplier: 0.5, Adjustment: -1}
)

func matrixOf(cells map[string]map[string]domain.Magnitude) *domain.ImpactMatrix {
	m := domain.NewImpactMatrix()
	for event, row := range cells {
		for ind, mag := range row {
			m.Set(event, ind, mag)
		}
	}
	return m
}

func TestResolveShock(t *testing.T) {
	r := NewShockResolver(0)

	tests := []struct {
		name     string
		matrix   *domain.ImpactMatrix
		year     int
		scenario domain.Scenario
		want     float64
	}{
		{
			name:     "empty matrix",
			matrix:   domain.NewImpactMatrix(),
			year:     2025,
			scenario: optimistic,
			want:     0,
		},
		{
			name:     "nil matrix",
			year:     2025,
			scenario: base,
			want:     0,
		},
		{
			name:     "fraction scaled to pp",
			matrix:   matrixOf(map[string]map[string]domain.Magnitude{"Event A (2025)": {"X": {Value: 0.05}}}),
			year:     2025,
			scenario: base,
			want:     5.0,
		},
		{
			name:     "no leak across years",
			matrix:   matrixOf(map[string]map[string]domain.Magnitude{"Event B (2026)": {"X": {Value: 5.0}}}),
			year:     2025,
			scenario: base,
			want:     0,
		},
		{
			name:     "pp magnitude used as-is",
			matrix:   matrixOf(map[string]map[string]domain.Magnitude{"Event C (2025)": {"X": {Value: 3.0}}}),
			year:     2025,
			scenario: optimistic,
			want:     3.6,
		},
		{
			name: "rows of the same year are summed before scaling",
			matrix: matrixOf(map[string]map[string]domain.Magnitude{
				"Event A (2025)": {"X": {Value: 0.02}},
				"Event D (2025)": {"X": {Value: 0.03}},
			}),
			year:     2025,
			scenario: base,
			want:     5.0,
		},
		{
			name:     "unparseable label contributes nothing",
			matrix:   matrixOf(map[string]map[string]domain.Magnitude{"Launch 2025": {"X": {Value: 4}}}),
			year:     2025,
			scenario: base,
			want:     0,
		},
		{
			name:     "missing column",
			matrix:   matrixOf(map[string]map[string]domain.Magnitude{"Event A (2025)": {"Y": {Value: 4}}}),
			year:     2025,
			scenario: base,
			want:     0,
		},
		{
			name:     "below epsilon is not scaled",
			matrix:   matrixOf(map[string]map[string]domain.Magnitude{"Event A (2025)": {"X": {Value: 0.00005}}}),
			year:     2025,
			scenario: base,
			want:     0.00005,
		},
		{
			name:     "negative fraction",
			matrix:   matrixOf(map[string]map[string]domain.Magnitude{"Event A (2025)": {"X": {Value: -0.04}}}),
			year:     2025,
			scenario: base,
			want:     -4.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ResolveShock(tt.year, tt.matrix, "X", tt.scenario)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestResolveShock_MultiplierBeforeNormalization(t *testing.T) {
	r := NewShockResolver(DefaultEpsilon)

	// 0.9 x 1.2 = 1.08 leaves the fraction band, so no x100
	m := matrixOf(map[string]map[string]domain.Magnitude{"Event A (2025)": {"X": {Value: 0.9}}})
	assert.InDelta(t, 1.08, r.ResolveShock(2025, m, "X", optimistic), 1e-9)
	assert.InDelta(t, 90.0, r.ResolveShock(2025, m, "X", base), 1e-9)

	// 1.5 x 0.5 = 0.75 enters the band and is scaled
	m = matrixOf(map[string]map[string]domain.Magnitude{"Event B (2026)": {"X": {Value: 1.5}}})
	shock := r.Resolve(2026, m, "X", pessimistic)
	assert.InDelta(t, 75.0, shock.Total, 1e-9)
	assert.True(t, shock.Scaled)
	assert.Equal(t, 1, shock.Events)
}

func TestResolveShock_TaggedUnits(t *testing.T) {
	r := NewShockResolver(DefaultEpsilon)

	m := matrixOf(map[string]map[string]domain.Magnitude{
		"Event A (2025)": {"X": {Value: 0.5, Unit: domain.UnitPercentagePoints}},
		"Event B (2025)": {"X": {Value: 0.05, Unit: domain.UnitFraction}},
	})

	shock := r.Resolve(2025, m, "X", base)
	assert.InDelta(t, 5.5, shock.Total, 1e-9, "a genuine 0.5pp shock is kept")
	assert.False(t, shock.Scaled)
	assert.Equal(t, 2, shock.Events)

	mixed := matrixOf(map[string]map[string]domain.Magnitude{
		"Event A (2025)": {"X": {Value: 2, Unit: domain.UnitPercentagePoints}},
		"Event C (2025)": {"X": {Value: 0.03}},
	})
	shock = r.Resolve(2025, mixed, "X", base)
	assert.InDelta(t, 5.0, shock.Total, 1e-9)
	assert.True(t, shock.Scaled)
}

func TestColumnTotal(t *testing.T) {
	r := NewShockResolver(DefaultEpsilon)
	m := matrixOf(map[string]map[string]domain.Magnitude{
		"Event A (2025)": {"X": {Value: 2.0}},
		"Event B (2026)": {"X": {Value: 0.05}},
		"Undated":        {"X": {Value: 1.0}},
	})

	assert.InDelta(t, 3.05, r.ColumnTotal(m, "X", base).Total, 1e-9)
	assert.InDelta(t, 3.66, r.ColumnTotal(m, "X", optimistic).Total, 1e-9)
	assert.Zero(t, r.ColumnTotal(domain.NewImpactMatrix(), "X", base).Total)
}

func TestNormalizeLegacy(t *testing.T) {
	tests := []struct {
		in     float64
		want   float64
		scaled bool
	}{
		{0.05, 5, true},
		{-0.5, -50, true},
		{0.99, 99, true},
		{1.0, 1.0, false},
		{-1.0, -1.0, false},
		{3.2, 3.2, false},
		{0, 0, false},
		{0.0001, 0.0001, false},
	}
	for _, tt := range tests {
		got, scaled := normalizeLegacy(tt.in, DefaultEpsilon)
		assert.InDelta(t, tt.want, got, 1e-9, "input %v", tt.in)
		assert.Equal(t, tt.scaled, scaled, "input %v", tt.in)
	}
}

func TestUnparseableLabels(t *testing.T) {
	m := matrixOf(map[string]map[string]domain.Magnitude{
		"Event A (2025)": {"X": {}},
		"Launch 2025":    {"X": {}},
		"Fayda (soon)":   {"X": {}},
	})
	assert.ElementsMatch(t, []string{"Launch 2025", "Fayda (soon)"}, UnparseableLabels(m))
	assert.Nil(t, UnparseableLabels(nil))
}
