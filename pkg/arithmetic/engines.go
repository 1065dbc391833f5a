package arithmetic

import (
	"github.com/pkg/errors"

	"ndarith/internal/ndindex"
	"ndarith/pkg/collapse"
	"ndarith/pkg/dataset"
	"ndarith/pkg/filter"
	"ndarith/pkg/morphology"
	"ndarith/pkg/statistics"
)

// filterHandler implements `L1 .. Ln [multiple termination] in filter-*`.
// The dataset is popped first so that its dimensions say how many window
// lengths follow.
func filterHandler(stat filter.Statistic) handler {
	return func(e *evaluation, _ Operator) error {
		in, err := e.pop()
		if err != nil {
			return err
		}
		window := make([]int, in.NDim())
		for i := len(window) - 1; i >= 0; i-- {
			if window[i], err = e.popInt("window length"); err != nil {
				return err
			}
		}
		opts := filter.Options{
			Statistic: stat,
			Window:    window,
			Threads:   e.opts.threads,
			Quiet:     e.opts.quiet,
		}
		if stat.Clipped() {
			if opts.Termination, err = e.popPositive("termination"); err != nil {
				return err
			}
			if opts.Multiple, err = e.popPositive("multiple"); err != nil {
				return err
			}
		}
		out, err := filter.Apply(in, opts)
		if err != nil {
			return err
		}
		e.push(out)
		return nil
	}
}

type morphologyFunc func(in *dataset.Dataset, p morphology.Params) (*dataset.Dataset, error)

var (
	erode          morphologyFunc = morphology.Erode
	dilate         morphologyFunc = morphology.Dilate
	fillHoles      morphologyFunc = morphology.FillHoles
	countNeighbors morphologyFunc = morphology.CountNeighbors
)

// connectedComponents keeps only the label map; the label count is the
// map's maximum.
func connectedComponents(in *dataset.Dataset, p morphology.Params) (*dataset.Dataset, error) {
	labels, _, err := morphology.ConnectedComponents(in, p)
	return labels, err
}

// morphologyHandler implements `in connectivity op`.
func morphologyHandler(fn morphologyFunc) handler {
	return func(e *evaluation, _ Operator) error {
		conn, err := e.popInt("connectivity")
		if err != nil {
			return err
		}
		in, err := e.pop()
		if err != nil {
			return err
		}
		out, err := fn(in, morphology.Params{Connectivity: conn, Threads: e.opts.threads})
		if err != nil {
			return err
		}
		e.push(out)
		return nil
	}
}

// collapseHandler implements `in [multiple termination] axis collapse-*`.
func collapseHandler(stat collapse.Statistic, mode statistics.ClipMode, fill bool) handler {
	return func(e *evaluation, _ Operator) error {
		axis, err := e.popInt("collapse axis")
		if err != nil {
			return err
		}
		opts := collapse.Options{
			Axis:       axis,
			Statistic:  stat,
			Mode:       mode,
			Fill:       fill,
			FillParams: e.opts.fill,
			Threads:    e.opts.threads,
		}
		if stat.Clipped() {
			if opts.Termination, err = e.popPositive("termination"); err != nil {
				return err
			}
			if opts.Multiple, err = e.popPositive("multiple"); err != nil {
				return err
			}
		}
		in, err := e.pop()
		if err != nil {
			return err
		}
		out, err := collapse.Collapse(in, opts)
		if err != nil {
			return err
		}
		e.push(out)
		return nil
	}
}

// stackHandler implements `a b .. k [multiple termination] stat`: the
// statistic of every element position over k same-shaped datasets.
func stackHandler(stat collapse.Statistic, mode statistics.ClipMode) handler {
	return func(e *evaluation, _ Operator) error {
		opts := collapse.Options{Statistic: stat, Mode: mode, Threads: e.opts.threads}
		var err error
		if stat.Clipped() {
			if opts.Termination, err = e.popPositive("termination"); err != nil {
				return err
			}
			if opts.Multiple, err = e.popPositive("multiple"); err != nil {
				return err
			}
		}
		k, err := e.popCount()
		if err != nil {
			return err
		}
		list, err := e.popList(k)
		if err != nil {
			return err
		}
		out, err := stackStatistic(list, opts)
		if err != nil {
			return err
		}
		e.push(out)
		return nil
	}
}

// stackStatistic piles the datasets up along a new slowest axis and
// collapses it.
func stackStatistic(list []*dataset.Dataset, opts collapse.Options) (*dataset.Dataset, error) {
	first := list[0]
	t := first.Type
	for _, d := range list {
		if !d.SameShape(first) {
			return nil, errors.Wrapf(dataset.ErrShapeMismatch, "%s and %s", first, d)
		}
		t = dataset.Promote(t, d.Type)
	}
	parts := make([]*dataset.Dataset, len(list))
	blocks := make([]int, len(list))
	for i, d := range list {
		parts[i], blocks[i] = asType(d, t), d.Size()
	}
	shape := append([]int{len(list)}, first.Shape...)
	opts.Axis = len(shape)
	out, err := collapse.Collapse(joinBlocks(parts, t, shape, blocks, 1), opts)
	if err != nil {
		return nil, err
	}
	out.CopyMetadata(first)
	return out, nil
}

// stitchHandler implements `a b .. k axis stitch`, joining k datasets end
// to end along a FITS axis.
func stitchHandler(e *evaluation, _ Operator) error {
	axis, err := e.popInt("stitch axis")
	if err != nil {
		return err
	}
	k, err := e.popCount()
	if err != nil {
		return err
	}
	list, err := e.popList(k)
	if err != nil {
		return err
	}
	out, err := stitch(list, axis)
	if err != nil {
		return err
	}
	e.push(out)
	return nil
}

func stitch(list []*dataset.Dataset, axis int) (*dataset.Dataset, error) {
	first := list[0]
	ndim := first.NDim()
	if axis < 1 || axis > ndim {
		return nil, errors.Wrapf(ErrBadAxis, "stitch axis %d for %d-dimensional inputs", axis, ndim)
	}
	dim := first.Dim(axis)
	shape := append([]int(nil), first.Shape...)
	shape[dim] = 0
	t := first.Type
	for _, d := range list {
		if d.NDim() != ndim {
			return nil, errors.Wrapf(dataset.ErrShapeMismatch, "cannot stitch %s and %s", first, d)
		}
		for i := range shape {
			if i != dim && d.Shape[i] != first.Shape[i] {
				return nil, errors.Wrapf(dataset.ErrShapeMismatch, "cannot stitch %s and %s along axis %d", first, d, axis)
			}
		}
		shape[dim] += d.Shape[dim]
		t = dataset.Promote(t, d.Type)
	}

	// Every outer index contributes one contiguous block per input.
	line := ndindex.AlongAxis(shape, dim)
	parts := make([]*dataset.Dataset, len(list))
	blocks := make([]int, len(list))
	for i, d := range list {
		parts[i], blocks[i] = asType(d, t), d.Shape[dim]*line.Inner
	}
	out := joinBlocks(parts, t, shape, blocks, line.Outer)
	out.CopyMetadata(first)
	return out, nil
}
