// Package filter replaces every element of a dataset by a statistic of the
// rectangular window around it.
//
// Window lengths are given per axis in FITS order. A window of length L
// reaches L/2 elements before the center and L/2 (odd L) or L/2-1 (even L)
// elements after it. Near the edges the window is clipped to the array, so
// edge windows are simply smaller; nothing is padded or wrapped around.
// Blank elements inside a window are ignored and a window without any
// usable element produces a blank.
package filter

import (
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"

	"ndarith/internal/ndindex"
	"ndarith/pkg/dataset"
	"ndarith/pkg/parallel"
	"ndarith/pkg/statistics"
)

// Statistic selects what a filter computes over each window.
type Statistic int

const (
	Median Statistic = iota
	Mean
	SigmaClipMean
	SigmaClipMedian
)

var statisticNames = map[Statistic]string{
	Median:          "median",
	Mean:            "mean",
	SigmaClipMean:   "sigclip-mean",
	SigmaClipMedian: "sigclip-median",
}

func (s Statistic) String() string { return statisticNames[s] }

// Clipped reports whether s needs sigma-clipping parameters.
func (s Statistic) Clipped() bool { return s == SigmaClipMean || s == SigmaClipMedian }

var (
	// ErrWindow is returned when the number of window lengths does not
	// match the input's dimensions or a length is not positive.
	ErrWindow = errors.New("invalid filter window")
	// ErrWindowTooLarge is returned when a window is longer than its axis.
	ErrWindowTooLarge = errors.New("filter window larger than input")
	// ErrClipParam is returned for a non-positive clipping parameter.
	ErrClipParam = errors.New("sigma-clipping parameters must be positive")
)

// Options configures Apply.
type Options struct {
	Statistic Statistic

	// Window holds one length per axis, FITS order (fastest axis first).
	Window []int

	// Multiple and Termination are the sigma-clipping parameters of the
	// clipped statistics; see statistics.ClipParams.
	Multiple    float64
	Termination float64

	// Threads is the number of workers; zero means one per CPU.
	Threads int

	// Quiet suppresses the warning about single-element inputs.
	Quiet bool
}

func logger() *slog.Logger {
	return slog.Default().With(slog.String("component", "filter"))
}

// Halves returns how far a window of the given length reaches before and
// after its center.
func Halves(length int) (before, after int) {
	before = length / 2
	if length%2 == 0 {
		return before, before - 1
	}
	return before, before
}

// OutputType returns the element type Apply produces for input type t.
// Median based filters keep the input type, mean based ones use float64.
func OutputType(s Statistic, t dataset.Type) dataset.Type {
	if s == Median || s == SigmaClipMedian {
		return t
	}
	return dataset.Float64
}

// Apply filters in and returns a new dataset of the same shape.
//
// A single-element input almost always means the operands were given in
// the wrong order; it is returned unchanged after a warning.
func Apply(in *dataset.Dataset, opts Options) (*dataset.Dataset, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.IsScalar() {
		if !opts.Quiet {
			logger().Warn("single-element input to filter, returning it unchanged; check the order of the operands",
				slog.String("filter", opts.Statistic.String()))
		}
		return in, nil
	}

	outType := OutputType(opts.Statistic, in.Type)
	n := in.Size()
	if n == 0 {
		return dataset.New(outType, in.Shape), nil
	}
	window, err := checkWindow(in, opts)
	if err != nil {
		return nil, err
	}

	var out *dataset.Dataset
	if opts.Statistic == Median {
		out = medianFilter(in, window, opts.Threads)
	} else {
		res := run(in.Float64s(), in.Shape, window, opts.Threads, func(buf []float64) float64 {
			return compute(buf, opts)
		})
		out = dataset.FromFloat64s(outType, in.Shape, res)
	}
	out.CopyMetadata(in)
	return out, nil
}

// run evaluates stat over the window of every element of vals. Windows
// without a usable element give blank.
func run[T dataset.Number](vals []T, shape, window []int, threads int, stat func(buf []T) T) []T {
	blank := dataset.Blank[T]()
	ndim := len(shape)
	bufSize := 1
	for _, w := range window {
		bufSize *= w
	}

	res := make([]T, len(vals))
	parallel.Run(len(vals), threads, func(start, end int) {
		coord := make([]int, ndim)
		lo := make([]int, ndim)
		hi := make([]int, ndim)
		cur := make([]int, ndim)
		buf := make([]T, 0, bufSize)
		for i := start; i < end; i++ {
			ndindex.Coord(i, shape, coord)
			for d := 0; d < ndim; d++ {
				before, after := Halves(window[d])
				lo[d] = max(0, coord[d]-before)
				hi[d] = min(shape[d]-1, coord[d]+after)
			}
			buf = gather(vals, blank, shape, lo, hi, cur, buf[:0])
			if len(buf) == 0 {
				res[i] = blank
				continue
			}
			res[i] = stat(buf)
		}
	})
	return res
}

// medianFilter runs the median on the input's own element type, so large
// 64-bit integers keep every digit.
func medianFilter(in *dataset.Dataset, window []int, threads int) *dataset.Dataset {
	switch a := in.Array.(type) {
	case []uint8:
		return dataset.FromSlice(in.Shape, run(a, in.Shape, window, threads, intMedian[uint8]))
	case []int8:
		return dataset.FromSlice(in.Shape, run(a, in.Shape, window, threads, intMedian[int8]))
	case []uint16:
		return dataset.FromSlice(in.Shape, run(a, in.Shape, window, threads, intMedian[uint16]))
	case []int16:
		return dataset.FromSlice(in.Shape, run(a, in.Shape, window, threads, intMedian[int16]))
	case []uint32:
		return dataset.FromSlice(in.Shape, run(a, in.Shape, window, threads, intMedian[uint32]))
	case []int32:
		return dataset.FromSlice(in.Shape, run(a, in.Shape, window, threads, intMedian[int32]))
	case []uint64:
		return dataset.FromSlice(in.Shape, run(a, in.Shape, window, threads, intMedian[uint64]))
	case []int64:
		return dataset.FromSlice(in.Shape, run(a, in.Shape, window, threads, intMedian[int64]))
	case []float32:
		return dataset.FromSlice(in.Shape, run(a, in.Shape, window, threads, floatMedian[float32]))
	case []float64:
		return dataset.FromSlice(in.Shape, run(a, in.Shape, window, threads, floatMedian[float64]))
	}
	panic("filter: unsupported storage " + in.Type.String())
}

func intMedian[T constraints.Integer](buf []T) T {
	slices.Sort(buf)
	return statistics.SortedMedianInt(buf)
}

func floatMedian[T constraints.Float](buf []T) T {
	slices.Sort(buf)
	return statistics.SortedMedianFloat(buf)
}

// checkWindow validates the options against in and returns the window
// lengths in C order.
func checkWindow(in *dataset.Dataset, opts Options) ([]int, error) {
	ndim := in.NDim()
	if len(opts.Window) != ndim {
		return nil, errors.Wrapf(ErrWindow, "%d window lengths given for a %d-dimensional input",
			len(opts.Window), ndim)
	}
	window := make([]int, ndim)
	for axis, w := range opts.Window {
		d := in.Dim(axis + 1)
		if w < 1 {
			return nil, errors.Wrapf(ErrWindow, "length %d along axis %d", w, axis+1)
		}
		if w > in.Shape[d] {
			return nil, errors.Wrapf(ErrWindowTooLarge, "length %d along axis %d of extent %d",
				w, axis+1, in.Shape[d])
		}
		window[d] = w
	}
	if opts.Statistic.Clipped() && (opts.Multiple <= 0 || opts.Termination <= 0) {
		return nil, errors.Wrapf(ErrClipParam, "multiple %g, termination %g", opts.Multiple, opts.Termination)
	}
	return window, nil
}

// gather appends the non-blank values of the box [lo, hi] (inclusive, C
// order) to buf. cur is scratch space of len(shape).
func gather[T dataset.Number](vals []T, blank T, shape, lo, hi, cur []int, buf []T) []T {
	last := len(shape) - 1
	copy(cur, lo)
	for {
		row := ndindex.Offset(cur, shape)
		for off := row; off <= row+hi[last]-lo[last]; off++ {
			if v := vals[off]; !dataset.Missing(v, blank) {
				buf = append(buf, v)
			}
		}

		// Advance every axis but the last like an odometer.
		d := last - 1
		for ; d >= 0; d-- {
			if cur[d] < hi[d] {
				cur[d]++
				break
			}
			cur[d] = lo[d]
		}
		if d < 0 {
			return buf
		}
	}
}

// compute evaluates a float64 statistic over the non-empty buf, which may
// be reordered.
func compute(buf []float64, opts Options) float64 {
	switch opts.Statistic {
	case Mean:
		mean, _ := statistics.MeanStd(buf)
		return mean
	}

	res := statistics.Clip(buf, statistics.ClipParams{
		Mode:        statistics.SigmaClip,
		Multiple:    opts.Multiple,
		Termination: opts.Termination,
	})
	if opts.Statistic == SigmaClipMedian {
		return res.Median
	}
	return res.Mean
}
