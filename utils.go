package flowplot

import (
	"math"

	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Float | constraints.Integer
}

func Filter[T any](slice []T, predicate func(T) bool) []T {
	filtered := make([]T, 0, len(slice))
	for _, elem := range slice {
		if predicate(elem) {
			filtered = append(filtered, elem)
		}
	}
	return filtered
}

func Min[T Number](a T, b T) T {
	if a > b {
		return b
	}

	return a
}

func Max[T Number](a T, b T) T {
	if a < b {
		return b
	}

	return a
}

// Returns the smallest and largest finite values. ok is false if there are
// none, e.g. an empty or all-NaN series.
func Extent[T constraints.Float](values []T) (min T, max T, ok bool) {
	for _, v := range values {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}

		if !ok {
			min, max, ok = v, v, true
			continue
		}

		min = Min(min, v)
		max = Max(max, v)
	}

	return min, max, ok
}
