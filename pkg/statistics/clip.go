package statistics

import (
	"math"
	"sort"
)

// ClipMode selects the center and spread estimators used while clipping.
type ClipMode int

const (
	// SigmaClip uses the mean as center and the standard deviation as spread.
	SigmaClip ClipMode = iota
	// MADClip uses the median as center and the median absolute deviation
	// as spread.
	MADClip
)

// String returns "sigclip" or "madclip".
func (m ClipMode) String() string {
	if m == MADClip {
		return "madclip"
	}
	return "sigclip"
}

// ClipParams configures Clip.
//
// Termination below 1 is a tolerance: clipping stops once the relative
// change of the spread between two iterations falls below it. A value of 1
// or more is the maximum number of clipping iterations.
type ClipParams struct {
	Mode        ClipMode
	Multiple    float64
	Termination float64
}

// ClipResult holds the statistics of the values that survived clipping.
type ClipResult struct {
	Number     int
	Mean       float64
	Median     float64
	Std        float64
	MAD        float64
	Iterations int
}

// Center returns the location estimate of the given mode.
func (r ClipResult) Center(mode ClipMode) float64 {
	if mode == MADClip {
		return r.Median
	}
	return r.Mean
}

// Spread returns the scale estimate of the given mode.
func (r ClipResult) Spread(mode ClipMode) float64 {
	if mode == MADClip {
		return r.MAD
	}
	return r.Std
}

// Bounds returns center -/+ multiple*spread of the final estimate.
func (r ClipResult) Bounds(p ClipParams) (lower, upper float64) {
	c, s := r.Center(p.Mode), r.Spread(p.Mode)
	return c - p.Multiple*s, c + p.Multiple*s
}

// Clip iteratively rejects values outside center -/+ multiple*spread.
// values is sorted in place; NaN elements are dropped first.
func Clip(values []float64, p ClipParams) ClipResult {
	cur := dropNaN(values)
	sort.Float64s(cur)
	scratch := make([]float64, len(cur))

	maxIter := math.MaxInt
	if p.Termination >= 1 {
		maxIter = int(p.Termination)
	}

	res := describe(cur, scratch)
	prevSpread := math.NaN()
	for res.Iterations < maxIter && len(cur) > 1 {
		spread := res.Spread(p.Mode)
		if spread == 0 {
			break
		}
		if p.Termination < 1 && !math.IsNaN(prevSpread) &&
			(prevSpread-spread)/spread < p.Termination {
			break
		}

		lower, upper := res.Bounds(p)
		start := sort.SearchFloat64s(cur, lower)
		end := sort.Search(len(cur), func(i int) bool { return cur[i] > upper })
		if start == 0 && end == len(cur) {
			break
		}

		cur = cur[start:end]
		prevSpread = spread
		iterations := res.Iterations + 1
		res = describe(cur, scratch)
		res.Iterations = iterations
	}
	return res
}

// describe computes every reported statistic of an ascending sequence.
func describe(sorted, scratch []float64) ClipResult {
	r := ClipResult{Number: len(sorted)}
	if len(sorted) == 0 {
		r.Mean, r.Median, r.Std, r.MAD = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return r
	}
	r.Mean, r.Std = MeanStd(sorted)
	r.Median = SortedMedian(sorted)
	r.MAD = MAD(sorted, r.Median, scratch)
	return r
}

// dropNaN compacts the non-NaN values to the front of values.
func dropNaN(values []float64) []float64 {
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			values[n] = v
			n++
		}
	}
	return values[:n]
}
