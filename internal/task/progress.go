package task

import "math"

// ProgressWindow maps processed/total counters onto a sub-range of the
// 0-100 progress scale. The default window reserves the first 10% for
// setup work and the last 10% for finalization.
type ProgressWindow struct {
	Start int
	End   int
}

// DefaultProgressWindow returns the standard [10, 90] window.
func DefaultProgressWindow() ProgressWindow {
	return ProgressWindow{Start: 10, End: 90}
}

// Percent computes the progress percentage for the given counters,
// rounded to the nearest integer. A zero or negative total returns the
// window start so callers never divide by zero.
func (w ProgressWindow) Percent(processed, total int) int {
	if total <= 0 {
		return w.Start
	}
	if processed < 0 {
		processed = 0
	}
	if processed > total {
		processed = total
	}

	span := float64(w.End - w.Start)
	return w.Start + int(math.Round(float64(processed)/float64(total)*span))
}
