package scheduler

// Overlaps reports whether the half-open intervals [startA, startA+durationA)
// and [startB, startB+durationB) intersect. Intervals that only touch at an
// endpoint do not overlap. Durations are expected to be validated by callers.
func Overlaps(startA, durationA, startB, durationB int) bool {
	endA := startA + durationA
	endB := startB + durationB
	return startA < endB && startB < endA
}
