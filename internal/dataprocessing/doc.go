// Package dataprocessing reads the pipeline inputs: the unified observation
// table (xlsx or csv) and the event-by-indicator impact matrix.
//
// The observation table is located by header name, not position:
//
//	record_type, indicator_code, year | observation_date, value_numeric
//
// are required; record_id, indicator, event_name, parent_id,
// related_indicator, impact_magnitude, category, pillar and notes are picked
// up when present.
//
// BuildImpactMatrix joins impact_link rows to their parent event rows and
// pivots the summed magnitudes into an ImpactMatrix whose row labels carry
// the event year, e.g. "Telebirr Launch (2021)".
package dataprocessing
