package aggregate

import (
	"math"
	"strconv"
)

// Round rounds x to places decimals, half away from zero.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// Ratio divides num by den rounded to places decimals. A zero denominator yields 0.
func Ratio(num, den float64, places int) float64 {
	if den == 0 {
		return 0
	}
	return Round(num/den, places)
}

// Percent returns num/den as a percentage with one decimal, or 0 when den is 0.
func Percent(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return Round(num/den*100, 1)
}

// PercentString formats Percent with exactly one decimal ("0.0" on zero denominator).
func PercentString(num, den float64) string {
	return strconv.FormatFloat(Percent(num, den), 'f', 1, 64)
}

// PPM returns defective parts per million inspected, or 0 when nothing was inspected.
func PPM(defective, inspected float64) float64 {
	if inspected == 0 {
		return 0
	}
	return math.Round(defective / inspected * 1_000_000)
}

// Mean averages values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
