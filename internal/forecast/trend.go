package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// z95 is the two-sided 95% normal quantile
const z95 = 1.96

// minPointsForMargin is the smallest series whose residuals give a usable band
const minPointsForMargin = 3

// Trend is a fitted first-degree line value = Slope*year + Intercept
type Trend struct {
	Slope          float64 `json:"slope"`
	Intercept      float64 `json:"intercept"`
	N              int     `json:"n"`
	ResidualStdDev float64 `json:"residual_std_dev"`
	FallbackMargin float64 `json:"fallback_margin"`
}

// FitTrend fits an ordinary least-squares line over every point of s.
// An empty series has no trend. A single point yields a flat line through it.
func FitTrend(s Series, fallbackMargin float64) (Trend, bool) {
	switch len(s) {
	case 0:
		return Trend{}, false
	case 1:
		return Trend{Intercept: s[0].Value, N: 1, FallbackMargin: fallbackMargin}, true
	}

	xs, ys := s.Years(), s.Values()
	// ExtractSeries dedups years, so xs has at least two distinct values
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	residuals := make([]float64, len(s))
	for i := range xs {
		residuals[i] = ys[i] - (intercept + slope*xs[i])
	}

	return Trend{
		Slope:          slope,
		Intercept:      intercept,
		N:              len(s),
		ResidualStdDev: math.Sqrt(stat.PopVariance(residuals, nil)),
		FallbackMargin: fallbackMargin,
	}, true
}

// Predict evaluates the line at year, extrapolating without bounds
func (t Trend) Predict(year int) float64 {
	return t.Slope*float64(year) + t.Intercept
}

// Margin95 is the half-width of the 95% band around a prediction
func (t Trend) Margin95() float64 {
	if t.N < minPointsForMargin {
		return t.FallbackMargin
	}
	return z95 * t.ResidualStdDev
}

// ProjectBaseline fits s and evaluates the line at year
func ProjectBaseline(s Series, year int) (float64, bool) {
	t, ok := FitTrend(s, 0)
	if !ok {
		return 0, false
	}
	return t.Predict(year), true
}
