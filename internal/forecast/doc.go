// Package forecast projects financial-inclusion indicators over a short
// horizon.
//
// A run extracts each indicator's history, fits an OLS trend, and overlays
// event shocks read from the impact matrix, once per scenario. Two policies
// decide how shocks meet the baseline:
//
//   - cumulative: shocks dated in a forecast year, plus the scenario's fixed
//     adjustment, accumulate year over year on top of the trend.
//   - ramp: the whole matrix column is phased in by a year -> fraction
//     schedule, without accumulation.
//
// Matrix cells tagged with a unit are converted exactly. Untagged cells fall
// back to a magnitude heuristic (|x| < 1 means a fraction) that can misread
// a genuine sub-1pp shock; every time it fires a warning is recorded.
//
// Nothing here fails on bad data. Missing history, undated events and
// heuristic scaling all surface as Warnings on the Result.
package forecast
