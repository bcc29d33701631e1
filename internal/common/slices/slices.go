package slices

// Zeros returns a slice of n zero-valued elements.
func Zeros[T any](n int) []T {
	return make([]T, n)
}

// Ones returns a slice of n elements all equal to 1.
func Ones[T int | float64](n int) []T {
	return Fill[T](1, n)
}

// Fill returns a slice of n elements all equal to v.
func Fill[T any](v T, n int) []T {
	rv := make([]T, n)
	for i := range rv {
		rv[i] = v
	}
	return rv
}
