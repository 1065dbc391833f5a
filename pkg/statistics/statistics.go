// Package statistics provides the one-dimensional statistics used by the
// filter and collapse engines: median, mean and standard deviation, median
// absolute deviation, and iterative sigma or MAD clipping.
//
// Callers pass sequences that are already free of blank (NaN) values.
package statistics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Median returns the median of values without modifying them. An empty
// sequence has a NaN median.
func Median(values []float64) float64 {
	valuesCopy := make([]float64, len(values))
	copy(valuesCopy, values)
	sort.Float64s(valuesCopy)
	return SortedMedian(valuesCopy)
}

// SortedMedian returns the median of an ascending sequence.
func SortedMedian(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// MeanStd returns the mean and population standard deviation of values.
func MeanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	return stat.PopMeanStdDev(values, nil)
}

// MAD returns the median absolute deviation of values around median.
// scratch must hold at least len(values) elements; it is overwritten.
func MAD(values []float64, median float64, scratch []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	dev := scratch[:len(values)]
	for i, v := range values {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	return SortedMedian(dev)
}
