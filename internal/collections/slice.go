// Package collections provides generic collection utilities.
package collections

// Filter returns the elements of s for which keep returns true.
// The input slice is not modified.
func Filter[T any](s []T, keep func(T) bool) []T {
	result := make([]T, 0, len(s))
	for _, v := range s {
		if keep(v) {
			result = append(result, v)
		}
	}
	return result
}
