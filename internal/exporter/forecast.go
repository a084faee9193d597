package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"fincast/internal/config"
	apperrors "fincast/internal/errors"
	"fincast/pkg/contracts/domain"
)

// Forecast table columns
const (
	ColYear       = "Year"
	ColScenario   = "Scenario"
	ColAccessRate = "Access_Rate"
	ColUsageRate  = "Usage_Rate"
	ColLowerCI    = "Lower_CI"
	ColUpperCI    = "Upper_CI"

	// colPredictedOwnership is the older name of the access column
	colPredictedOwnership = "Predicted_Ownership"
)

// ForecastSheet is the worksheet name of the xlsx export
const ForecastSheet = "Forecast"

// ForecastHeaders is the column order of the forecast table
var ForecastHeaders = []string{ColYear, ColScenario, ColAccessRate, ColUsageRate, ColLowerCI, ColUpperCI}

// MatrixLabelHeader heads the event column of an exported impact matrix
const MatrixLabelHeader = "event"

// ForecastExporter writes forecast tables and impact matrices
type ForecastExporter struct {
	csvWriter *CSVWriter
	logger    *slog.Logger
}

// NewForecastExporter creates a new exporter
func NewForecastExporter(paths *config.Paths, logger *slog.Logger) *ForecastExporter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "exporter"))
	return &ForecastExporter{
		csvWriter: NewCSVWriter(paths, logger),
		logger:    logger,
	}
}

// WriteForecastTable writes records as a BOM-prefixed CSV. Absent rates
// become empty cells. An empty slice still yields the header row.
func (e *ForecastExporter) WriteForecastTable(filePath string, records []domain.ForecastRecord) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, forecastRow(rec))
	}
	if err := e.csvWriter.WriteSimpleCSV(filePath, ForecastHeaders, rows); err != nil {
		return fmt.Errorf("failed to write forecast table: %w", err)
	}
	return nil
}

func forecastRow(rec domain.ForecastRecord) []string {
	return []string{
		formatInt(rec.Year),
		rec.Scenario,
		formatOptional(rec.AccessRate),
		formatOptional(rec.UsageRate),
		formatOptional(rec.LowerCI),
		formatOptional(rec.UpperCI),
	}
}

// WriteForecastXLSX writes records to a single-sheet workbook
func (e *ForecastExporter) WriteForecastXLSX(filePath string, records []domain.ForecastRecord) error {
	fullPath := e.csvWriter.resolvePath(filePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ForecastSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(ForecastHeaders))
	for i, h := range ForecastHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(ForecastSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(ForecastSheet, "A1", "F1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, rec := range records {
		row := []interface{}{rec.Year, rec.Scenario, cellValue(rec.AccessRate), cellValue(rec.UsageRate),
			cellValue(rec.LowerCI), cellValue(rec.UpperCI)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ForecastSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(ForecastSheet, "A", "F", 14); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("Forecast workbook written",
		slog.String("path", fullPath),
		slog.Int("record_count", len(records)))
	return nil
}

// cellValue leaves absent values as blank cells
func cellValue(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

// WriteMatrixCSV writes the matrix with events as rows, in matrix order.
// Unset cells are written as 0.
func (e *ForecastExporter) WriteMatrixCSV(filePath string, m *domain.ImpactMatrix) error {
	if m == nil {
		m = domain.NewImpactMatrix()
	}

	stream, err := e.csvWriter.CreateStreamWriter(filePath, append([]string{MatrixLabelHeader}, m.Indicators...))
	if err != nil {
		return fmt.Errorf("failed to create matrix file: %w", err)
	}

	for _, event := range m.Events {
		row := make([]string, 0, len(m.Indicators)+1)
		row = append(row, event)
		for _, ind := range m.Indicators {
			cell, _ := m.Get(event, ind)
			row = append(row, formatMagnitude(cell.Value))
		}
		if err := stream.WriteRecord(row); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write matrix row %q: %w", event, err)
		}
	}

	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close matrix file: %w", err)
	}

	e.logger.Info("Impact matrix written",
		slog.String("path", stream.Path()),
		slog.Int("events", len(m.Events)),
		slog.Int("indicators", len(m.Indicators)))
	return nil
}

// ReadForecastTable reads a table written by WriteForecastTable. Columns are
// matched by name; Predicted_Ownership is accepted for Access_Rate.
func ReadForecastTable(filePath string) ([]domain.ForecastRecord, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewMissingInputError(filePath)
		}
		return nil, apperrors.NewStorageError("failed to open forecast table", err).WithContext("path", filePath)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read forecast table", err).WithContext("path", filePath)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError("forecast table has no header row", nil).WithContext("path", filePath)
	}

	columns := make(map[string]int)
	for i, h := range rows[0] {
		name := strings.TrimSpace(strings.TrimPrefix(h, string(utf8BOM)))
		if name == colPredictedOwnership {
			name = ColAccessRate
		}
		columns[name] = i
	}
	for _, required := range []string{ColYear, ColScenario} {
		if _, ok := columns[required]; !ok {
			return nil, apperrors.NewParsingError(fmt.Sprintf("forecast table lacks column %s", required), nil).
				WithContext("path", filePath)
		}
	}

	get := func(row []string, col string) string {
		idx, ok := columns[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	optional := func(row []string, col string, line int) (*float64, error) {
		s := get(row, col)
		if s == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s %q is not a number", line, col, s)
		}
		return &v, nil
	}

	records := make([]domain.ForecastRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		year, err := strconv.Atoi(get(row, ColYear))
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("line %d: invalid year", line), err).
				WithContext("path", filePath)
		}
		rec := domain.ForecastRecord{Year: year, Scenario: get(row, ColScenario)}

		for col, dst := range map[string]**float64{
			ColAccessRate: &rec.AccessRate,
			ColUsageRate:  &rec.UsageRate,
			ColLowerCI:    &rec.LowerCI,
			ColUpperCI:    &rec.UpperCI,
		} {
			v, err := optional(row, col, line)
			if err != nil {
				return nil, apperrors.NewParsingError(err.Error(), nil).WithContext("path", filePath)
			}
			*dst = v
		}
		records = append(records, rec)
	}
	return records, nil
}
