package dataprocessing

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	apperrors "fincast/internal/errors"
	"fincast/pkg/contracts/domain"
)

// ErrEmptyMatrix is returned when no impact_link row joins to an event
var ErrEmptyMatrix = errors.New("no impact links matched an event")

// BuildImpactMatrix pivots impact_link rows against their parent events.
// Events are keyed by record_id and parent_id; the first event seen for a
// key names the row. Cells sum impact_magnitude, non-numeric counting as 0,
// and every (event, indicator) pair is present so the result is dense.
func BuildImpactMatrix(records []domain.Observation) (*domain.ImpactMatrix, error) {
	labels := make(map[string]string)
	for _, r := range records {
		if r.RecordType != domain.RecordTypeEvent {
			continue
		}
		label := domain.EventLabel(r.DisplayName(), r.Year)
		if label == "" {
			continue
		}
		for _, key := range []string{strings.TrimSpace(r.RecordID), strings.TrimSpace(r.ParentID)} {
			if key == "" {
				continue
			}
			if _, seen := labels[key]; !seen {
				labels[key] = label
			}
		}
	}

	sums := make(map[string]map[string]float64)
	indicatorSet := make(map[string]bool)
	for _, r := range records {
		if r.RecordType != domain.RecordTypeImpactLink {
			continue
		}
		label, ok := labels[strings.TrimSpace(r.ParentID)]
		if !ok {
			continue
		}
		column := strings.TrimSpace(r.RelatedIndicator)
		if column == "" {
			column = strings.TrimSpace(r.IndicatorCode)
		}
		if column == "" {
			continue
		}

		row, ok := sums[label]
		if !ok {
			row = make(map[string]float64)
			sums[label] = row
		}
		var magnitude float64
		if r.HasMagnitude {
			magnitude = r.ImpactMagnitude
		}
		row[column] += magnitude
		indicatorSet[column] = true
	}

	if len(sums) == 0 {
		return nil, ErrEmptyMatrix
	}

	events := make([]string, 0, len(sums))
	for label := range sums {
		events = append(events, label)
	}
	sort.Strings(events)

	indicators := make([]string, 0, len(indicatorSet))
	for ind := range indicatorSet {
		indicators = append(indicators, ind)
	}
	sort.Strings(indicators)

	m := domain.NewImpactMatrix()
	for _, event := range events {
		for _, ind := range indicators {
			m.Set(event, ind, domain.Magnitude{Value: sums[event][ind]})
		}
	}
	return m, nil
}

// ReadMatrixCSV reads a matrix whose first column holds event labels and
// whose remaining header cells are indicator codes. Every cell is tagged
// with unit. Blank cells are left unset and read back as zero.
func ReadMatrixCSV(path string, unit domain.MagnitudeUnit) (*domain.ImpactMatrix, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewMissingInputError(path)
		}
		return nil, apperrors.NewStorageError("failed to stat matrix", err).WithContext("path", path)
	}

	rows, err := readCSV(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read impact matrix", err).WithContext("path", path)
	}

	headerRow := -1
	for i, row := range rows {
		if !isBlank(row) {
			headerRow = i
			break
		}
	}
	if headerRow < 0 {
		return nil, apperrors.NewParsingError("impact matrix has no header row", nil).WithContext("path", path)
	}

	header := rows[headerRow]
	indicators := make([]string, len(header))
	for j := 1; j < len(header); j++ {
		indicators[j] = strings.TrimSpace(header[j])
	}

	m := domain.NewImpactMatrix()
	for j := 1; j < len(indicators); j++ {
		if indicators[j] != "" {
			m.Indicators = append(m.Indicators, indicators[j])
		}
	}

	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		label := strings.TrimSpace(strings.TrimPrefix(row[0], utf8BOM))
		if label == "" {
			continue
		}
		if _, exists := m.Cells[label]; !exists {
			m.Cells[label] = make(map[string]domain.Magnitude)
			m.Events = append(m.Events, label)
		}

		for j := 1; j < len(row) && j < len(indicators); j++ {
			if indicators[j] == "" || strings.TrimSpace(row[j]) == "" {
				continue
			}
			v, ok := parseNumber(row[j])
			if !ok {
				return nil, apperrors.NewParsingError(
					fmt.Sprintf("non-numeric cell %q at row %d column %s", row[j], i+1, indicators[j]), nil).
					WithContext("path", path)
			}
			m.Set(label, indicators[j], domain.Magnitude{Value: v, Unit: unit})
		}
	}

	return m, nil
}
