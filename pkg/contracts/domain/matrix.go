package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// MagnitudeUnit tags the scale of an impact magnitude
type MagnitudeUnit int

const (
	// UnitUnknown marks legacy cells whose scale is inferred at resolve time
	UnitUnknown MagnitudeUnit = iota
	// UnitPercentagePoints cells are already in percentage points
	UnitPercentagePoints
	// UnitFraction cells are fractions (0.05 == 5pp)
	UnitFraction
)

// String returns the config spelling of the unit
func (u MagnitudeUnit) String() string {
	switch u {
	case UnitPercentagePoints:
		return "pp"
	case UnitFraction:
		return "fraction"
	default:
		return "auto"
	}
}

// ParseMagnitudeUnit parses "auto", "pp" or "fraction"
func ParseMagnitudeUnit(s string) (MagnitudeUnit, error) {
	switch s {
	case "", "auto":
		return UnitUnknown, nil
	case "pp":
		return UnitPercentagePoints, nil
	case "fraction":
		return UnitFraction, nil
	default:
		return UnitUnknown, fmt.Errorf("unknown magnitude unit %q", s)
	}
}

// Magnitude is one cell of the impact matrix
type Magnitude struct {
	Value float64       `json:"value"`
	Unit  MagnitudeUnit `json:"unit"`
}

// ImpactMatrix is an event-by-indicator table of shock magnitudes.
// Row labels embed the trigger year as "<name> (<year>)".
type ImpactMatrix struct {
	Events     []string                        `json:"events"`
	Indicators []string                        `json:"indicators"`
	Cells      map[string]map[string]Magnitude `json:"cells"`
}

// NewImpactMatrix creates an empty matrix
func NewImpactMatrix() *ImpactMatrix {
	return &ImpactMatrix{Cells: make(map[string]map[string]Magnitude)}
}

// IsEmpty reports whether the matrix has no rows
func (m *ImpactMatrix) IsEmpty() bool {
	return m == nil || len(m.Events) == 0
}

// Set stores a cell, registering the row and column on first use
func (m *ImpactMatrix) Set(event, indicator string, mag Magnitude) {
	if m.Cells == nil {
		m.Cells = make(map[string]map[string]Magnitude)
	}
	row, ok := m.Cells[event]
	if !ok {
		row = make(map[string]Magnitude)
		m.Cells[event] = row
		m.Events = append(m.Events, event)
	}
	if !m.hasIndicator(indicator) {
		m.Indicators = append(m.Indicators, indicator)
	}
	row[indicator] = mag
}

// Get returns the cell at (event, indicator); missing cells are zero
func (m *ImpactMatrix) Get(event, indicator string) (Magnitude, bool) {
	if m == nil {
		return Magnitude{}, false
	}
	row, ok := m.Cells[event]
	if !ok {
		return Magnitude{}, false
	}
	mag, ok := row[indicator]
	return mag, ok
}

// WithUnit returns a copy of the matrix with every cell tagged with unit
func (m *ImpactMatrix) WithUnit(unit MagnitudeUnit) *ImpactMatrix {
	out := NewImpactMatrix()
	if m == nil {
		return out
	}
	for _, event := range m.Events {
		for _, ind := range m.Indicators {
			if mag, ok := m.Get(event, ind); ok {
				out.Set(event, ind, Magnitude{Value: mag.Value, Unit: unit})
			}
		}
	}
	// keep columns that had no cells at all
	for _, ind := range m.Indicators {
		if !out.hasIndicator(ind) {
			out.Indicators = append(out.Indicators, ind)
		}
	}
	return out
}

func (m *ImpactMatrix) hasIndicator(indicator string) bool {
	for _, ind := range m.Indicators {
		if ind == indicator {
			return true
		}
	}
	return false
}

var eventLabelPattern = regexp.MustCompile(`^(.*\S)\s*\((\d+)\)\s*$`)

// EventYear extracts the trigger year from a "<name> (<year>)" label
func EventYear(label string) (int, bool) {
	m := eventLabelPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return year, true
}

// EventLabel builds a row label, leaving names that already carry a year alone
func EventLabel(name string, year int) string {
	if _, ok := EventYear(name); ok || year <= 0 {
		return name
	}
	return fmt.Sprintf("%s (%d)", name, year)
}
