package recommend

import (
	"math"
	"sort"
)

// percentile computes the p-th percentile of values using linear
// interpolation between closest ranks. The input is sorted in place.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) == 1 {
		return values[0]
	}

	sort.Float64s(values)

	rank := (p / 100.0) * float64(len(values)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return values[lower]
	}

	fraction := rank - float64(lower)
	return values[lower] + (values[upper]-values[lower])*fraction
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// coefficientOfVariation is stddev/mean, zero when the mean is zero or
// fewer than two values exist.
func coefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)
	if m == 0 {
		return 0
	}

	sumSq := 0.0
	for _, v := range values {
		diff := v - m
		sumSq += diff * diff
	}
	variance := sumSq / float64(len(values))

	return math.Sqrt(variance) / m
}

func maxValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}
