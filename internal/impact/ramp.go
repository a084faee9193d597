package impact

import (
	"fmt"
	"sort"
	"time"

	"fincast/internal/forecast"
)

// RampSourceTable selects the configured year -> fraction table as-is
const RampSourceTable = "table"

// RampSchedule samples a curve at each year end and returns the realized
// share of its total. A zero-total curve yields an all-zero schedule.
func RampSchedule(curve *Curve, years []int) forecast.RampSchedule {
	schedule := make(forecast.RampSchedule, len(years))
	for _, year := range years {
		if curve == nil || curve.Total == 0 {
			schedule[year] = 0
			continue
		}
		yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
		frac := curve.CumulativeAt(yearEnd) / curve.Total
		// float drift from the cumulative sum
		if frac > 1 {
			frac = 1
		}
		if frac < 0 {
			frac = 0
		}
		schedule[year] = frac
	}
	return schedule
}

// ScheduleFor builds the ramp used by the ramp policy. The "table" source
// returns table unchanged; a shape name rolls a unit lift out from January
// after startYear until the end of the last forecast year.
func ScheduleFor(source string, startYear int, years []int, table map[int]float64) (forecast.RampSchedule, error) {
	if source == "" || source == RampSourceTable {
		return forecast.RampSchedule(table), nil
	}

	shape, err := ParseShape(source)
	if err != nil {
		return nil, err
	}
	if len(years) == 0 {
		return forecast.RampSchedule{}, nil
	}

	sorted := append([]int(nil), years...)
	sort.Ints(sorted)
	last := sorted[len(sorted)-1]
	if last <= startYear {
		return nil, ValidationError{
			Field:   "ramp_start",
			Message: fmt.Sprintf("ramp start %d must precede the last forecast year %d", startYear, last),
			Value:   startYear,
		}
	}

	start := time.Date(startYear+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	curve, err := Distribute(start, 1, 12*(last-startYear), shape)
	if err != nil {
		return nil, err
	}
	return RampSchedule(curve, sorted), nil
}
