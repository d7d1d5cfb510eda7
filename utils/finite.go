package utils

import "math"

// IsFinite は f が NaN でも無限大でもないことを返します。
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
