package dataprocessing

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "fincast/internal/errors"
	"fincast/internal/shared/testutil"
	"fincast/pkg/contracts/domain"
)

func newTestLoader() *Loader {
	return NewLoader(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// writeWorkbook saves one sheet per entry, in the given order
func writeWorkbook(t *testing.T, sheets []string, data map[string][][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range data[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), "unified.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoader_LoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteCSVFile(t, dir, "unified.csv", [][]string{
		{"\ufeffrecord_id", "record_type", "indicator_code", "indicator", "year", "value_numeric", "parent_id", "related_indicator", "impact_magnitude"},
		{"REC_1", "observation", "ACC_OWNERSHIP", "Account ownership", "2021", "46", "", "", ""},
		{"REC_2", "observation", "ACC_OWNERSHIP", "Account ownership", "2024.0", "49", "", "", ""},
		{"EVT_1", "event", "", "Telebirr Launch", "2021", "", "", "", ""},
		{"LNK_1", "impact_link", "", "", "", "", "EVT_1", "ACC_MM_ACCOUNT", "0.05"},
		{"", "", "", "", "", "", "", "", ""},
		{"X_1", "forecast", "ACC_OWNERSHIP", "", "2030", "1", "", "", ""},
	})

	result, err := newTestLoader().Load(path, "")
	require.NoError(t, err)

	require.Len(t, result.Records, 4)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []string{"unified.csv"}, result.Sheets)

	first := result.Records[0]
	assert.Equal(t, "REC_1", first.RecordID)
	assert.Equal(t, domain.RecordTypeObservation, first.RecordType)
	assert.Equal(t, 2021, first.Year)
	assert.True(t, first.HasValue)
	assert.Equal(t, 46.0, first.Value)

	assert.Equal(t, 2024, result.Records[1].Year)

	event := result.Records[2]
	assert.Equal(t, domain.RecordTypeEvent, event.RecordType)
	assert.False(t, event.HasValue)
	assert.Equal(t, "Telebirr Launch", event.DisplayName())

	link := result.Records[3]
	assert.Equal(t, "EVT_1", link.ParentID)
	assert.True(t, link.HasMagnitude)
	assert.InDelta(t, 0.05, link.ImpactMagnitude, 1e-12)
}

func TestLoader_YearFromObservationDate(t *testing.T) {
	path := testutil.WriteCSVFile(t, t.TempDir(), "dated.csv", [][]string{
		{"record_type", "indicator_code", "observation_date", "value_numeric"},
		{"observation", "ACC_OWNERSHIP", "2017-12-31", "35"},
		{"observation", "ACC_OWNERSHIP", "not a date", "40"},
	})

	result, err := newTestLoader().Load(path, "")
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	assert.Equal(t, 2017, result.Records[0].Year)
	require.NotNil(t, result.Records[0].ObservationDate)
	assert.Equal(t, time.December, result.Records[0].ObservationDate.Month())

	assert.False(t, result.Records[1].HasYear())
}

func TestLoader_LoadWorkbook(t *testing.T) {
	path := writeWorkbook(t, []string{"README", "data", "impact_links"}, map[string][][]interface{}{
		"README": {
			{"This workbook holds the unified dataset"},
		},
		"data": {
			{"record_type", "indicator_code", "year", "value_numeric", "indicator"},
			{"observation", "ACC_OWNERSHIP", 2014, 22, "Account ownership"},
			{"observation", "ACC_OWNERSHIP", 2017, 35, "Account ownership"},
			{"event", "", 2025, "", "Fayda Rollout"},
		},
		"impact_links": {
			{"record_type", "indicator_code", "year", "value_numeric", "parent_id", "related_indicator", "impact_magnitude"},
			{"impact_link", "", "", "", "EVT_9", "ACC_OWNERSHIP", 4},
		},
	})

	t.Run("all record sheets", func(t *testing.T) {
		result, err := newTestLoader().Load(path, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"data", "impact_links"}, result.Sheets)
		require.Len(t, result.Records, 4)
		assert.Equal(t, 2017, result.Records[1].Year)
		assert.Equal(t, 35.0, result.Records[1].Value)
		assert.Equal(t, domain.RecordTypeImpactLink, result.Records[3].RecordType)
		assert.Equal(t, 4.0, result.Records[3].ImpactMagnitude)
	})

	t.Run("named sheet", func(t *testing.T) {
		result, err := newTestLoader().Load(path, "impact_links")
		require.NoError(t, err)
		assert.Len(t, result.Records, 1)
	})

	t.Run("unknown sheet", func(t *testing.T) {
		_, err := newTestLoader().Load(path, "missing")
		require.Error(t, err)
		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperrors.ErrTypeParsing, appErr.Type)
	})
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()

	missingColumns := testutil.WriteCSVFile(t, dir, "bad.csv", [][]string{
		{"record_type", "value_numeric"},
		{"observation", "1"},
	})

	emptyPath := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(emptyPath, nil, 0644))

	jsonPath := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte("{}"), 0644))

	tests := []struct {
		name     string
		path     string
		wantType apperrors.ErrorType
	}{
		{"missing file", filepath.Join(dir, "nope.xlsx"), apperrors.ErrTypeInputMissing},
		{"missing required columns", missingColumns, apperrors.ErrTypeParsing},
		{"empty file", emptyPath, apperrors.ErrTypeParsing},
		{"unsupported extension", jsonPath, apperrors.ErrTypeParsing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestLoader().Load(tt.path, "")
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantType, appErr.Type)
		})
	}

	_, err := newTestLoader().Load(filepath.Join(dir, "nope.csv"), "")
	assert.True(t, apperrors.IsMissingInput(err))
	assert.True(t, errors.Is(err, apperrors.ErrMissingInput))
}

func TestParseHelpers(t *testing.T) {
	tests := []struct {
		in       string
		wantNum  float64
		wantOK   bool
		wantYear int
		yearOK   bool
	}{
		{"2024", 2024, true, 2024, true},
		{"2024.0", 2024, true, 2024, true},
		{"2024.5", 2024.5, true, 0, false},
		{"1,250", 1250, true, 1250, true},
		{"", 0, false, 0, false},
		{"NaN", 0, false, 0, false},
		{"abc", 0, false, 0, false},
		{"12", 12, true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, ok := parseNumber(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantNum, v)

			y, ok := parseYear(tt.in)
			assert.Equal(t, tt.yearOK, ok)
			assert.Equal(t, tt.wantYear, y)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"2021-05-01", 2021},
		{"2021-05-01 00:00:00", 2021},
		{"05-01-21", 2021},
		{"5/1/2021", 2021},
		{"2021", 2021},
		{"44317", 2021}, // Excel serial for 2021-05-01
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseDate(tt.in)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Year())
		})
	}

	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("someday"))
}
