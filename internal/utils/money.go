package utils

import "math"

// ToMinor converts a major-unit amount (rupees) into minor units (paise),
// rounding to the nearest unit.  Non-positive or non-finite amounts
// convert to zero.
func ToMinor(amount float64) int64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0
	}
	return int64(math.Round(amount * 100))
}

// FromMinor converts minor units back into a major-unit amount.
func FromMinor(minor int64) float64 {
	return float64(minor) / 100
}
