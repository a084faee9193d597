// Package impact models how an event's lift is realized over time.
//
// Distribute spreads a total impact across monthly steps using one of three
// shapes: linear, sigmoid (adoption S-curve) or decay (a burst that fades).
// RampSchedule turns such a curve into the year -> fraction table consumed by
// the forecast ramp policy.
//
// Example: Telebirr launched in May 2021 with an assumed +20pp lift over 36
// months on a sigmoid curve:
//
//	curve, _ := impact.Distribute(may2021, 20, 36, impact.ShapeSigmoid)
//	realized := curve.CumulativeAt(april2024)
package impact
