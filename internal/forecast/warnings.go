package forecast

import "fmt"

// WarningKind classifies a recoverable forecasting problem
type WarningKind string

const (
	// WarningEmptyHistory means an indicator had no points to fit
	WarningEmptyHistory WarningKind = "empty_history"
	// WarningUnparseableLabel means a matrix row label carried no year
	WarningUnparseableLabel WarningKind = "unparseable_event_label"
	// WarningAmbiguousScale means the legacy x100 heuristic fired
	WarningAmbiguousScale WarningKind = "ambiguous_magnitude_scale"
	// WarningMissingRamp means a forecast year had no ramp fraction
	WarningMissingRamp WarningKind = "missing_ramp_fraction"
)

// Warning is recorded instead of failing the run
type Warning struct {
	Kind      WarningKind `json:"kind"`
	Indicator string      `json:"indicator,omitempty"`
	Event     string      `json:"event,omitempty"`
	Year      int         `json:"year,omitempty"`
	Scenario  string      `json:"scenario,omitempty"`
	Message   string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// warningSet keeps warnings unique and in first-seen order
type warningSet struct {
	seen  map[Warning]bool
	items []Warning
}

func (s *warningSet) add(w Warning) {
	if s.seen == nil {
		s.seen = make(map[Warning]bool)
	}
	if s.seen[w] {
		return
	}
	s.seen[w] = true
	s.items = append(s.items, w)
}

// CountByKind tallies warnings per kind
func CountByKind(warnings []Warning) map[string]int {
	counts := make(map[string]int)
	for _, w := range warnings {
		counts[string(w.Kind)]++
	}
	return counts
}
