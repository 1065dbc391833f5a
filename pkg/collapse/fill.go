package collapse

import (
	"log/slog"
	"math"

	"ndarith/internal/ndindex"
	"ndarith/pkg/dataset"
	"ndarith/pkg/morphology"
	"ndarith/pkg/parallel"
	"ndarith/pkg/statistics"
)

// collapseFill implements the fill variant of a clipping statistic.
//
// Outliers are first found per line with plain clipping. Their mask is
// then grown into contiguous regions with binary morphology: the whole
// line for one-dimensional inputs, otherwise every slab perpendicular to
// the collapsed axis. Everything inside a region is blanked and the
// statistic is computed again on what is left.
func collapseFill(in *dataset.Dataset, line ndindex.Line, slab []int, opts Options) []float64 {
	vals := in.Float64s()
	count := line.Count()
	fp := opts.FillParams
	if fp == (FillParams{}) {
		fp = DefaultFillParams()
	}

	lower := make([]float64, count)
	upper := make([]float64, count)
	parallel.Run(count, opts.Threads, func(start, end int) {
		buf := make([]float64, 0, line.Length)
		for o := start; o < end; o++ {
			buf = gatherLine(vals, line, o, buf[:0])
			if len(buf) == 0 {
				lower[o], upper[o] = math.NaN(), math.NaN()
				continue
			}
			lower[o], upper[o] = clip(buf, opts).Bounds(clipParams(opts))
		}
	})

	work := append([]float64(nil), vals...)
	var flagged int
	if in.NDim() == 1 {
		flagged = fillLine(vals, work, lower[0], upper[0], fp, opts.Threads)
	} else {
		flagged = fillSlabs(vals, work, line, slab, lower, upper, fp, opts.Threads)
	}
	logger().Debug("fill blanked outlying regions",
		slog.String("mode", opts.Mode.String()),
		slog.Int("flagged", flagged))

	return reduceLines(work, line, opts)
}

// fillLine handles a one-dimensional input, which is a single line.
func fillLine(vals, work []float64, lower, upper float64, fp FillParams, threads int) int {
	shape := []int{len(vals)}
	mask := make([]uint8, len(vals))
	for i, v := range vals {
		mask[i] = flag(v, lower, upper)
	}
	morphology.ErodeMask(mask, shape, morphology.Params{Connectivity: 1, Threads: threads})
	reconstruct(mask, shape, fp, threads)
	return blank(mask, fp.MaxFraction, func(i int) { work[i] = math.NaN() })
}

// fillSlabs handles every hyperplane at a fixed index along the collapsed
// axis. A slab has the output's shape and element o of slab j belongs to
// line o.
func fillSlabs(vals, work []float64, line ndindex.Line, slab []int, lower, upper []float64, fp FillParams, threads int) int {
	counts := make([]int, line.Length)
	step := line.Step()
	parallel.Run(line.Length, threads, func(start, end int) {
		mask := make([]uint8, line.Count())
		for j := start; j < end; j++ {
			for o := range mask {
				mask[o] = flag(vals[line.Start(o)+j*step], lower[o], upper[o])
			}
			morphology.DilateMask(mask, slab, morphology.Params{Connectivity: 1, Threads: 1})
			reconstruct(mask, slab, fp, 1)
			counts[j] = blank(mask, fp.MaxFraction, func(o int) {
				work[line.Start(o)+j*step] = math.NaN()
			})
		}
	})

	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

// flag classifies one element against its line's bounds. Blank elements
// and lines without bounds stay out of the morphology.
func flag(v, lower, upper float64) uint8 {
	switch {
	case math.IsNaN(v):
		return morphology.Blank
	case math.IsNaN(lower):
		return morphology.Background
	case v < lower || v > upper:
		return morphology.Foreground
	}
	return morphology.Background
}

// reconstruct closes the flagged regions and smooths their outline.
func reconstruct(mask []uint8, shape []int, fp FillParams, threads int) {
	morphology.FillHolesMask(mask, shape, 1)
	if fp.ErodeMargin > 0 {
		morphology.ErodeMask(mask, shape, morphology.Params{Connectivity: 1, Iterations: fp.ErodeMargin, Threads: threads})
	}
	if fp.DilateMargin > 0 {
		morphology.DilateMask(mask, shape, morphology.Params{Connectivity: 1, Iterations: fp.DilateMargin, Threads: threads})
	}
}

// blank calls set for every flagged element of mask, or for every
// non-blank element when the flagged fraction exceeds maxFraction. It
// returns the number of elements set.
func blank(mask []uint8, maxFraction float64, set func(i int)) int {
	flagged, usable := 0, 0
	for _, m := range mask {
		switch m {
		case morphology.Foreground:
			flagged++
			usable++
		case morphology.Background:
			usable++
		}
	}
	if flagged == 0 {
		return 0
	}
	all := float64(flagged)/float64(usable) > maxFraction
	n := 0
	for i, m := range mask {
		if m == morphology.Foreground || (all && m == morphology.Background) {
			set(i)
			n++
		}
	}
	return n
}

func clipParams(opts Options) statistics.ClipParams {
	return statistics.ClipParams{
		Mode:        opts.Mode,
		Multiple:    opts.Multiple,
		Termination: opts.Termination,
	}
}
