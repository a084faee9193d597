package domain

import (
	"fmt"
	"strings"
	"time"
)

// RecordType classifies a row of the unified dataset
type RecordType string

const (
	RecordTypeObservation RecordType = "observation"
	RecordTypeEvent       RecordType = "event"
	RecordTypeImpactLink  RecordType = "impact_link"
	RecordTypeTarget      RecordType = "target"
)

// ParseRecordType normalizes a raw record_type cell
func ParseRecordType(raw string) (RecordType, error) {
	switch rt := RecordType(strings.ToLower(strings.TrimSpace(raw))); rt {
	case RecordTypeObservation, RecordTypeEvent, RecordTypeImpactLink, RecordTypeTarget:
		return rt, nil
	default:
		return "", fmt.Errorf("unknown record type %q", raw)
	}
}

// Observation is one row of the unified financial-inclusion dataset.
// Only observation and impact_link rows feed the forecast; event rows
// supply the labels of the impact matrix.
type Observation struct {
	RecordID         string     `json:"record_id,omitempty"`
	RecordType       RecordType `json:"record_type" validate:"required,oneof=observation event impact_link target"`
	IndicatorCode    string     `json:"indicator_code,omitempty"`
	Indicator        string     `json:"indicator,omitempty"`
	EventName        string     `json:"event_name,omitempty"`
	Year             int        `json:"year,omitempty"`
	ObservationDate  *time.Time `json:"observation_date,omitempty"`
	Value            float64    `json:"value_numeric,omitempty"`
	HasValue         bool       `json:"has_value"`
	ParentID         string     `json:"parent_id,omitempty"`
	RelatedIndicator string     `json:"related_indicator,omitempty"`
	ImpactMagnitude  float64    `json:"impact_magnitude,omitempty"`
	HasMagnitude     bool       `json:"has_magnitude"`
	Category         string     `json:"category,omitempty"`
	Pillar           string     `json:"pillar,omitempty"`
	Notes            string     `json:"notes,omitempty"`
}

// HasYear reports whether the row carries a usable year
func (o Observation) HasYear() bool {
	return o.Year > 0
}

// DisplayName returns the label used for an event row
func (o Observation) DisplayName() string {
	switch {
	case strings.TrimSpace(o.Indicator) != "":
		return strings.TrimSpace(o.Indicator)
	case strings.TrimSpace(o.EventName) != "":
		return strings.TrimSpace(o.EventName)
	default:
		return strings.TrimSpace(o.ParentID)
	}
}

// YearValue is a single point of a historical series
type YearValue struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}
