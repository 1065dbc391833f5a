package statistics

import (
	"golang.org/x/exp/constraints"
)

// SortedMedianInt returns the median of an ascending, non-empty integer
// sequence in its own type. A mean of the two middle values that falls
// half way is rounded away from zero.
func SortedMedianInt[T constraints.Integer](sorted []T) T {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	lo, hi := sorted[n/2-1], sorted[n/2]
	// The difference is exact in uint64 for every integer type.
	diff := uint64(hi) - uint64(lo)
	m := lo + T(diff/2)
	if diff%2 == 1 && m >= 0 {
		m++
	}
	return m
}

// SortedMedianFloat returns the median of an ascending, non-empty
// floating point sequence in its own type.
func SortedMedianFloat[T constraints.Float](sorted []T) T {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return T((float64(sorted[n/2-1]) + float64(sorted[n/2])) / 2)
}
