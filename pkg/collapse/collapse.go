// Package collapse reduces a dataset along one axis.
//
// Every output element summarizes the line of input elements that runs
// along the collapsed axis through it. Blank elements never contribute; an
// output that received no contribution is blank, except for the number
// statistic which reports zero. The clipping statistics run iterative
// sigma or MAD clipping over each line and can optionally "fill" the
// rejected regions (see fill.go) before recomputing.
package collapse

import (
	"log/slog"
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"ndarith/internal/ndindex"
	"ndarith/pkg/dataset"
	"ndarith/pkg/parallel"
	"ndarith/pkg/statistics"
)

// Statistic is the reduction applied to every line.
type Statistic int

const (
	Sum Statistic = iota
	Mean
	Number
	Min
	Max
	Median
	Std
	ClipNumber
	ClipMean
	ClipMedian
	ClipStd
	ClipMAD
)

var statisticNames = [...]string{
	Sum:        "sum",
	Mean:       "mean",
	Number:     "number",
	Min:        "min",
	Max:        "max",
	Median:     "median",
	Std:        "std",
	ClipNumber: "clip-number",
	ClipMean:   "clip-mean",
	ClipMedian: "clip-median",
	ClipStd:    "clip-std",
	ClipMAD:    "clip-mad",
}

func (s Statistic) String() string {
	if s < Sum || s > ClipMAD {
		return "unknown"
	}
	return statisticNames[s]
}

// Clipped reports whether s is computed by iterative clipping.
func (s Statistic) Clipped() bool { return s >= ClipNumber && s <= ClipMAD }

var (
	// ErrAxis is returned for an axis outside 1..ndim.
	ErrAxis = errors.New("collapse axis out of range")
	// ErrClipParam is returned for non-positive clipping parameters.
	ErrClipParam = errors.New("clipping parameters must be positive")
	// ErrFill is returned when fill is requested for a non-clipping statistic.
	ErrFill = errors.New("fill is only available for clipping statistics")
)

// FillParams tunes the mask reconstruction of the fill variants.
type FillParams struct {
	// ErodeMargin and DilateMargin are the erosion and dilation passes
	// applied after hole filling.
	ErodeMargin  int
	DilateMargin int
	// MaxFraction is the flagged fraction of a line or slab above which the
	// whole line or slab is flagged.
	MaxFraction float64
}

// DefaultFillParams returns the standard fill tuning.
func DefaultFillParams() FillParams {
	return FillParams{ErodeMargin: 1, DilateMargin: 2, MaxFraction: 0.95}
}

// Options configures Collapse.
type Options struct {
	// Axis is the 1-based FITS-order axis to remove.
	Axis      int
	Statistic Statistic

	// Mode, Multiple and Termination configure the clipping statistics.
	Mode        statistics.ClipMode
	Multiple    float64
	Termination float64

	// Fill enables the mask-reconstruction variant of a clipping statistic.
	Fill       bool
	FillParams FillParams

	// Threads is the number of workers; zero means one per CPU.
	Threads int
}

func logger() *slog.Logger {
	return slog.Default().With(slog.String("component", "collapse"))
}

// OutputType returns the element type Collapse produces for input type t.
func OutputType(s Statistic, t dataset.Type) dataset.Type {
	switch s {
	case Number, ClipNumber:
		return dataset.Uint32
	case Min, Max:
		return t
	}
	return dataset.Float64
}

// OutputShape returns the shape after removing the C-order axis dim. A
// collapsed one-dimensional input becomes a single element, or stays
// empty when it had no elements.
func OutputShape(shape []int, dim int) []int {
	out := ndindex.RemoveAxis(shape, dim)
	if len(out) == 0 {
		if ndindex.Size(shape) == 0 {
			return []int{0}
		}
		return []int{1}
	}
	return out
}

// Collapse removes opts.Axis from in by reducing every line along it.
// The WCS, if any, loses the same axis.
func Collapse(in *dataset.Dataset, opts Options) (*dataset.Dataset, error) {
	if err := check(in, opts); err != nil {
		return nil, err
	}
	dim := in.Dim(opts.Axis)
	line := ndindex.AlongAxis(in.Shape, dim)
	outShape := OutputShape(in.Shape, dim)
	outType := OutputType(opts.Statistic, in.Type)

	var out *dataset.Dataset
	switch count := ndindex.Size(outShape); {
	case count == 0:
		out = dataset.New(outType, outShape)
	case opts.Statistic == Min || opts.Statistic == Max:
		out = extremes(in, line, outShape, opts)
	case opts.Fill:
		out = dataset.FromFloat64s(outType, outShape, collapseFill(in, line, outShape, opts))
	default:
		out = dataset.FromFloat64s(outType, outShape, reduceLines(in.Float64s(), line, opts))
	}
	out.Name, out.Unit, out.Comment = in.Name, in.Unit, in.Comment
	if in.WCS != nil && in.WCS.NAxis() == in.NDim() && in.NDim() > 1 {
		w, err := in.WCS.RemoveAxis(opts.Axis)
		if err != nil {
			return nil, errors.Wrap(err, "collapse")
		}
		out.WCS = w
	}
	logger().Debug("collapsed dataset",
		slog.String("statistic", opts.Statistic.String()),
		slog.Int("axis", opts.Axis),
		slog.String("input", in.String()),
		slog.String("output", out.String()))
	return out, nil
}

func check(in *dataset.Dataset, opts Options) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if opts.Axis < 1 || opts.Axis > in.NDim() {
		return errors.Wrapf(ErrAxis, "axis %d for a %d-dimensional input", opts.Axis, in.NDim())
	}
	if opts.Statistic.Clipped() && (opts.Multiple <= 0 || opts.Termination <= 0) {
		return errors.Wrapf(ErrClipParam, "multiple %g, termination %g", opts.Multiple, opts.Termination)
	}
	if opts.Fill && !opts.Statistic.Clipped() {
		return errors.Wrapf(ErrFill, "statistic %s", opts.Statistic)
	}
	return nil
}

// reduceLines computes the statistic of every line of vals in parallel.
func reduceLines(vals []float64, line ndindex.Line, opts Options) []float64 {
	res := make([]float64, line.Count())
	parallel.Run(line.Count(), opts.Threads, func(start, end int) {
		buf := make([]float64, 0, line.Length)
		for o := start; o < end; o++ {
			buf = gatherLine(vals, line, o, buf[:0])
			res[o] = reduce(buf, opts)
		}
	})
	return res
}

// gatherLine appends the non-blank values of line o to buf.
func gatherLine(vals []float64, line ndindex.Line, o int, buf []float64) []float64 {
	off, step := line.Start(o), line.Step()
	for j := 0; j < line.Length; j++ {
		if v := vals[off+j*step]; !math.IsNaN(v) {
			buf = append(buf, v)
		}
	}
	return buf
}

// reduce computes the statistic of the blank-free values in buf, which
// may be reordered.
func reduce(buf []float64, opts Options) float64 {
	if opts.Statistic == Number {
		return float64(len(buf))
	}
	if len(buf) == 0 {
		if opts.Statistic == ClipNumber {
			return 0
		}
		return math.NaN()
	}
	switch opts.Statistic {
	case Sum:
		return floats.Sum(buf)
	case Mean:
		return floats.Sum(buf) / float64(len(buf))
	case Median:
		sort.Float64s(buf)
		return statistics.SortedMedian(buf)
	case Std:
		_, std := statistics.MeanStd(buf)
		return std
	}

	res := clip(buf, opts)
	switch opts.Statistic {
	case ClipNumber:
		return float64(res.Number)
	case ClipMean:
		return res.Mean
	case ClipMedian:
		return res.Median
	case ClipStd:
		return res.Std
	case ClipMAD:
		return res.MAD
	}
	return math.NaN()
}

func clip(buf []float64, opts Options) statistics.ClipResult {
	return statistics.Clip(buf, clipParams(opts))
}
