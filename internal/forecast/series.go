package forecast

import (
	"sort"
	"strings"

	"fincast/pkg/contracts/domain"
)

// Series is one indicator's history, ascending by year with one point per year
type Series []domain.YearValue

// ExtractSeries filters observation rows for indicator. Rows without a year or
// a value are ignored. When a year repeats, the last row in table order wins.
func ExtractSeries(records []domain.Observation, indicator string) Series {
	indicator = strings.TrimSpace(indicator)
	byYear := make(map[int]float64)
	for _, r := range records {
		if r.RecordType != domain.RecordTypeObservation || !r.HasValue || !r.HasYear() {
			continue
		}
		if strings.TrimSpace(r.IndicatorCode) != indicator {
			continue
		}
		byYear[r.Year] = r.Value
	}

	series := make(Series, 0, len(byYear))
	for year, value := range byYear {
		series = append(series, domain.YearValue{Year: year, Value: value})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Year < series[j].Year })
	return series
}

// Len returns the number of points
func (s Series) Len() int { return len(s) }

// Years returns the x values as floats for fitting
func (s Series) Years() []float64 {
	xs := make([]float64, len(s))
	for i, p := range s {
		xs[i] = float64(p.Year)
	}
	return xs
}

// Values returns the y values
func (s Series) Values() []float64 {
	ys := make([]float64, len(s))
	for i, p := range s {
		ys[i] = p.Value
	}
	return ys
}

// ValueAt returns the observed value for year
func (s Series) ValueAt(year int) (float64, bool) {
	i := sort.Search(len(s), func(i int) bool { return s[i].Year >= year })
	if i < len(s) && s[i].Year == year {
		return s[i].Value, true
	}
	return 0, false
}

// Last returns the most recent point
func (s Series) Last() (domain.YearValue, bool) {
	if len(s) == 0 {
		return domain.YearValue{}, false
	}
	return s[len(s)-1], true
}
