package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"fincast/pkg/contracts/domain"
)

// AccessIndicator and UsageIndicator are the codes used throughout the fixtures
const (
	AccessIndicator = "ACC_OWNERSHIP"
	UsageIndicator  = "ACC_MM_ACCOUNT"
)

// SampleHistory is the Findex account ownership series used in tests
var SampleHistory = []domain.YearValue{
	{Year: 2011, Value: 22},
	{Year: 2014, Value: 22},
	{Year: 2017, Value: 35},
	{Year: 2021, Value: 46},
	{Year: 2024, Value: 50},
}

// Observation builds an observation row with a value
func Observation(code string, year int, value float64) domain.Observation {
	return domain.Observation{
		RecordType:    domain.RecordTypeObservation,
		IndicatorCode: code,
		Year:          year,
		Value:         value,
		HasValue:      true,
	}
}

// SampleObservations returns the access series plus a short usage series
func SampleObservations() []domain.Observation {
	records := make([]domain.Observation, 0, len(SampleHistory)+3)
	for _, p := range SampleHistory {
		records = append(records, Observation(AccessIndicator, p.Year, p.Value))
	}
	records = append(records,
		Observation(UsageIndicator, 2014, 0),
		Observation(UsageIndicator, 2021, 4.7),
		Observation(UsageIndicator, 2024, 9.45),
	)
	return records
}

// SampleMatrix returns a small unit-less matrix with one event per forecast year
func SampleMatrix() *domain.ImpactMatrix {
	m := domain.NewImpactMatrix()
	m.Set("Telebirr Launch (2025)", AccessIndicator, domain.Magnitude{Value: 2.0})
	m.Set("Telebirr Launch (2025)", UsageIndicator, domain.Magnitude{Value: 3.0})
	m.Set("M-Pesa Entry (2026)", AccessIndicator, domain.Magnitude{Value: 0.05})
	m.Set("Interop Switch (2027)", UsageIndicator, domain.Magnitude{Value: 1.5})
	return m
}

// WriteCSVFile writes rows to dir/name and returns the path
func WriteCSVFile(t *testing.T, dir, name string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ObservationRows renders observations as a minimal unified-table CSV
func ObservationRows(records []domain.Observation) [][]string {
	rows := [][]string{{"record_type", "indicator_code", "year", "value_numeric"}}
	for _, r := range records {
		value := ""
		if r.HasValue {
			value = strconv.FormatFloat(r.Value, 'f', -1, 64)
		}
		rows = append(rows, []string{string(r.RecordType), r.IndicatorCode, strconv.Itoa(r.Year), value})
	}
	return rows
}
