package impact

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Shape selects how an event's total lift is spread over its rollout
type Shape string

const (
	// ShapeLinear spreads the lift evenly
	ShapeLinear Shape = "linear"
	// ShapeSigmoid is a slow start, fast middle and flat tail (logistic S-curve)
	ShapeSigmoid Shape = "sigmoid"
	// ShapeDecay front-loads the lift and fades out
	ShapeDecay Shape = "decay"
)

// sigmoidSpan is the logistic input range sampled across the rollout
const sigmoidSpan = 6.0

// decayRate is the per-month exponent of the decay shape
const decayRate = 0.5

// Shapes lists the supported shapes
var Shapes = []Shape{ShapeLinear, ShapeSigmoid, ShapeDecay}

// ParseShape validates a shape name
func ParseShape(s string) (Shape, error) {
	shape := Shape(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Shapes {
		if shape == known {
			return shape, nil
		}
	}
	return "", ValidationError{
		Field:   "shape",
		Message: fmt.Sprintf("unknown effect shape %q (want linear, sigmoid or decay)", s),
		Value:   s,
	}
}

// Point is one month of a lag curve
type Point struct {
	Date        time.Time `json:"date"`
	Incremental float64   `json:"incremental_impact"`
	Cumulative  float64   `json:"cumulative_impact"`
}

// Curve is an event's lift distributed month by month
type Curve struct {
	Shape  Shape     `json:"shape"`
	Start  time.Time `json:"start"`
	Total  float64   `json:"total"`
	Points []Point   `json:"points"`
}

// Distribute spreads total over months monthly steps starting at start.
//
// Parameters:
//   - start: month of the first increment
//   - total: full lift reached at the end of the rollout
//   - months: rollout length, at least 1
//   - shape: linear, sigmoid or decay
//
// Returns the curve, whose incremental values sum to total.
func Distribute(start time.Time, total float64, months int, shape Shape) (*Curve, error) {
	if months < 1 {
		return nil, ValidationError{Field: "months", Message: "duration must be at least one month", Value: months}
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, ValidationError{Field: "total", Message: "total impact must be finite", Value: total}
	}

	weights, err := shapeWeights(shape, months)
	if err != nil {
		return nil, err
	}

	increments := make([]float64, months)
	copy(increments, weights)
	floats.Scale(total, increments)
	cumulative := make([]float64, months)
	floats.CumSum(cumulative, increments)

	curve := &Curve{Shape: shape, Start: start, Total: total, Points: make([]Point, months)}
	for i := range increments {
		curve.Points[i] = Point{
			Date:        start.AddDate(0, i, 0),
			Incremental: increments[i],
			Cumulative:  cumulative[i],
		}
	}
	return curve, nil
}

// shapeWeights returns months non-negative weights summing to 1
func shapeWeights(shape Shape, months int) ([]float64, error) {
	w := make([]float64, months)

	switch shape {
	case ShapeLinear:
		for i := range w {
			w[i] = 1
		}

	case ShapeSigmoid:
		// logistic CDF over an evenly spaced grid, differenced with a
		// leading zero so the first month carries the CDF's starting mass
		x := make([]float64, months)
		if months == 1 {
			x[0] = -sigmoidSpan
		} else {
			floats.Span(x, -sigmoidSpan, sigmoidSpan)
		}
		prev := 0.0
		for i, xi := range x {
			cdf := 1 / (1 + math.Exp(-xi))
			w[i] = cdf - prev
			prev = cdf
		}

	case ShapeDecay:
		for i := range w {
			w[i] = math.Exp(-decayRate * float64(i))
		}

	default:
		return nil, ValidationError{Field: "shape", Message: fmt.Sprintf("unknown effect shape %q", shape), Value: string(shape)}
	}

	floats.Scale(1/floats.Sum(w), w)
	return w, nil
}

// CumulativeAt returns the lift realized by t; zero before the first month
func (c *Curve) CumulativeAt(t time.Time) float64 {
	realized := 0.0
	for _, p := range c.Points {
		if p.Date.After(t) {
			break
		}
		realized = p.Cumulative
	}
	return realized
}

// End is the month of the last increment
func (c *Curve) End() time.Time {
	if len(c.Points) == 0 {
		return c.Start
	}
	return c.Points[len(c.Points)-1].Date
}
