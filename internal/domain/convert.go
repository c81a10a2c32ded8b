package domain

import "math"

const (
	kgToLbExact = 2.2046226218
	// kgToLbDisplay is the factor used for user-facing, rounded values.
	kgToLbDisplay = 2.20462
)

// ConvertWeight converts a weight value between "kg" and "lb".
// Returns v unchanged if from == to or if the units are unrecognised.
func ConvertWeight(v float64, from, to string) float64 {
	if from == to {
		return v
	}
	if from == "kg" && to == "lb" {
		return v * kgToLbExact
	}
	if from == "lb" && to == "kg" {
		return v / kgToLbExact
	}
	return v
}

// KgToLb converts kilograms to pounds rounded to one decimal. NaN and
// infinite input yield 0.
func KgToLb(kg float64) float64 {
	if !finite(kg) {
		return 0
	}
	return Round1(kg * kgToLbDisplay)
}

// LbToKg converts pounds to kilograms rounded to one decimal. NaN and
// infinite input yield 0.
func LbToKg(lb float64) float64 {
	if !finite(lb) {
		return 0
	}
	return Round1(lb / kgToLbDisplay)
}

// DisplayWeight converts a canonical kilogram value into the given display
// unit.
func DisplayWeight(valueKg float64, units string) float64 {
	if units == "lb" {
		return KgToLb(valueKg)
	}
	return valueKg
}

// Round1 rounds half away from zero to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
