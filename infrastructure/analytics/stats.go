package analytics

import "sort"

// Mean returns the arithmetic mean, or 0 for an empty input.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// Median returns the median: the middle element for odd counts, the mean of
// the two middle elements for even counts, or 0 for an empty input.
func Median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, data)
	sort.Float64s(sorted)

	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Percentile returns the p-th percentile (0-100) using linear interpolation
// between closest ranks: index = (p/100)*(n-1); integral indexes return the
// element directly, fractional indexes blend the two neighbors by the
// fractional weight. A single-element input returns that element for any p;
// an empty input returns 0.
func Percentile(data []float64, p float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, data)
	sort.Float64s(sorted)

	index := (p / 100) * float64(n-1)
	lo := int(index)
	if float64(lo) == index {
		return sorted[lo]
	}
	hi := lo + 1
	weight := index - float64(lo)
	return sorted[lo]*(1-weight) + sorted[hi]*weight
}

// minOf returns the smallest element; callers guarantee a non-empty input.
func minOf(data []float64) float64 {
	m := data[0]
	for _, v := range data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// maxOf returns the largest element; callers guarantee a non-empty input.
func maxOf(data []float64) float64 {
	m := data[0]
	for _, v := range data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// sumOf returns the sum of all elements.
func sumOf(data []float64) float64 {
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum
}

// ratio returns num/den*100, guarding division by zero.
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}
