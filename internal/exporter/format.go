package exporter

import (
	"strconv"
)

// formatFloat formats a rate with exactly 2 decimal places, so 13.4 reads 13.40
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// formatOptional renders an absent value as an empty cell
func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

// formatMagnitude keeps every significant digit of a matrix cell
func formatMagnitude(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}
