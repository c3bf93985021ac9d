package query

import "math"

// RoundHalfUp rounds x to the given number of decimal digits with ties
// going away from zero (2.005 → 2.01 at two digits, -2.005 → -2.01).
func RoundHalfUp(x float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	if x >= 0 {
		return math.Floor(x*p+0.5) / p
	}
	return math.Ceil(x*p-0.5) / p
}
