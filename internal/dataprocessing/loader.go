package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "fincast/internal/errors"
	"fincast/pkg/contracts/domain"
)

// Column names of the unified observation table
const (
	ColRecordType       = "record_type"
	ColRecordID         = "record_id"
	ColIndicatorCode    = "indicator_code"
	ColIndicator        = "indicator"
	ColEventName        = "event_name"
	ColYear             = "year"
	ColObservationDate  = "observation_date"
	ColValueNumeric     = "value_numeric"
	ColParentID         = "parent_id"
	ColRelatedIndicator = "related_indicator"
	ColImpactMagnitude  = "impact_magnitude"
	ColCategory         = "category"
	ColPillar           = "pillar"
	ColNotes            = "notes"
)

const utf8BOM = "\ufeff"

// dateLayouts are tried in order for observation_date cells.
// "01-02-06" is excelize's rendering of the built-in short date format.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01-02-06",
	"1/2/2006",
	"01/02/2006",
	"2006-01",
}

// LoadResult is the outcome of reading the observation table
type LoadResult struct {
	Records []domain.Observation
	Skipped int
	Sheets  []string
}

// Loader reads observation tables from xlsx or csv files
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "loader"))}
}

type table struct {
	name string
	rows [][]string
}

// Load reads every observation row from path. For workbooks an empty sheet
// name reads every sheet whose header carries a record_type column.
func (l *Loader) Load(path, sheet string) (*LoadResult, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewMissingInputError(path)
		}
		return nil, apperrors.NewStorageError("failed to stat input", err).WithContext("path", path)
	}

	tables, err := readTables(path, sheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read %s", filepath.Base(path)), err).
			WithContext("path", path)
	}

	result := &LoadResult{}
	for _, t := range tables {
		records, skipped, err := l.parseTable(t)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("malformed table %s", t.name), err).
				WithContext("path", path)
		}
		result.Records = append(result.Records, records...)
		result.Skipped += skipped
		result.Sheets = append(result.Sheets, t.name)
	}

	l.logger.Info("Observation table loaded",
		slog.String("path", path),
		slog.Any("sheets", result.Sheets),
		slog.Int("records", len(result.Records)),
		slog.Int("skipped", result.Skipped))

	return result, nil
}

func readTables(path, sheet string) ([]table, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return readWorkbook(path, sheet)
	case ".csv":
		rows, err := readCSV(path)
		if err != nil {
			return nil, err
		}
		return []table{{name: filepath.Base(path), rows: rows}}, nil
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

func readWorkbook(path, sheet string) ([]table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet != "" {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		return []table{{name: sheet, rows: rows}}, nil
	}

	var tables []table
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		if _, header := findHeader(rows); header != nil {
			if _, ok := header[ColRecordType]; ok {
				tables = append(tables, table{name: name, rows: rows})
			}
		}
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no sheet with a %s column", ColRecordType)
	}
	return tables, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader.ReadAll()
}

// findHeader returns the index of the first non-blank row and its column map
func findHeader(rows [][]string) (int, map[string]int) {
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		columns := make(map[string]int, len(row))
		for j, cell := range row {
			name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, utf8BOM)))
			if name == "" {
				continue
			}
			if _, dup := columns[name]; !dup {
				columns[name] = j
			}
		}
		return i, columns
	}
	return -1, nil
}

func (l *Loader) parseTable(t table) ([]domain.Observation, int, error) {
	headerRow, columns := findHeader(t.rows)
	if columns == nil {
		return nil, 0, fmt.Errorf("no header row")
	}

	var missing []string
	for _, col := range []string{ColRecordType, ColIndicatorCode, ColValueNumeric} {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	_, hasYear := columns[ColYear]
	_, hasDate := columns[ColObservationDate]
	if !hasYear && !hasDate {
		missing = append(missing, ColYear+"|"+ColObservationDate)
	}
	if len(missing) > 0 {
		return nil, 0, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}

	get := func(row []string, col string) string {
		idx, ok := columns[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var records []domain.Observation
	skipped := 0
	for i := headerRow + 1; i < len(t.rows); i++ {
		row := t.rows[i]
		if isBlank(row) {
			continue
		}

		rt, err := domain.ParseRecordType(get(row, ColRecordType))
		if err != nil {
			skipped++
			l.logger.Debug("Skipping row",
				slog.String("table", t.name),
				slog.Int("row", i+1),
				slog.String("reason", err.Error()))
			continue
		}

		obs := domain.Observation{
			RecordID:         get(row, ColRecordID),
			RecordType:       rt,
			IndicatorCode:    get(row, ColIndicatorCode),
			Indicator:        get(row, ColIndicator),
			EventName:        get(row, ColEventName),
			ParentID:         get(row, ColParentID),
			RelatedIndicator: get(row, ColRelatedIndicator),
			Category:         get(row, ColCategory),
			Pillar:           get(row, ColPillar),
			Notes:            get(row, ColNotes),
		}
		obs.Value, obs.HasValue = parseNumber(get(row, ColValueNumeric))
		obs.ImpactMagnitude, obs.HasMagnitude = parseNumber(get(row, ColImpactMagnitude))

		obs.ObservationDate = parseDate(get(row, ColObservationDate))
		if year, ok := parseYear(get(row, ColYear)); ok {
			obs.Year = year
		} else if obs.ObservationDate != nil {
			obs.Year = obs.ObservationDate.Year()
		}

		records = append(records, obs)
	}

	return records, skipped, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseNumber accepts plain and thousands-separated numbers; blanks and NaN are absent
func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseYear reads a year cell, which spreadsheets often store as "2024.0"
func parseYear(s string) (int, bool) {
	v, ok := parseNumber(s)
	if !ok || v != math.Trunc(v) || v < 1000 || v > 9999 {
		return 0, false
	}
	return int(v), true
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if year, ok := parseYear(s); ok {
		t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &t
	}
	if serial, ok := parseNumber(s); ok && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return &t
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
