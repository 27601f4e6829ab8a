// Package mathx holds small generic numeric helpers.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	return Max(lo, Min(v, hi))
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// SatAdd returns a+b, saturating at max.
func SatAdd[T constraints.Unsigned](a, b, max T) T {
	if a > max || b > max-a {
		return max
	}
	return a + b
}

// ClampInt8 narrows v to the int8 range.
func ClampInt8(v int) int8 {
	return int8(Clamp(v, -128, 127))
}
