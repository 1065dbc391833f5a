// Package morphology implements binary morphology on uint8 datasets:
// erosion, dilation, hole filling, neighbor counting and connected
// component labeling.
//
// A binary dataset holds 0 for background and any other non-blank value
// for foreground. Blank elements (255) are neither: they keep their value
// and are skipped when inspecting neighbors. Neighbors are chosen by a
// connectivity between 1 and the number of dimensions; connectivity 1
// means face neighbors only and the maximum includes every diagonal.
//
// Every operation comes in two flavors: a Dataset level one that validates
// its input and allocates the output, and a mask level one working on a raw
// []uint8 with a shape, used by the collapse engine's fill mode.
package morphology

import (
	"log/slog"
	"math"

	"github.com/eapache/queue"
	"github.com/pkg/errors"

	"ndarith/internal/ndindex"
	"ndarith/pkg/dataset"
	"ndarith/pkg/parallel"
)

// Mask values.
const (
	Background uint8 = 0
	Foreground uint8 = 1
	Blank      uint8 = math.MaxUint8
)

// ErrNotBinary is returned when the input is not a uint8 dataset.
var ErrNotBinary = errors.New("input must be a binary (uint8) dataset")

// Params configures a morphology operation.
type Params struct {
	// Connectivity selects the neighbors, 1..ndim.
	Connectivity int
	// Iterations is the number of erosion or dilation passes; values below
	// one mean a single pass.
	Iterations int
	// Threads is the number of workers; zero means one per CPU.
	Threads int
}

func logger() *slog.Logger {
	return slog.Default().With(slog.String("component", "morphology"))
}

// validate checks a dataset level input and returns its mask in normalized
// form (0, 1 or Blank).
func validate(in *dataset.Dataset, conn int) ([]uint8, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Type != dataset.Uint8 {
		return nil, errors.Wrapf(ErrNotBinary, "got %s", in.Type)
	}
	if err := checkConnectivity(conn, in.NDim()); err != nil {
		return nil, err
	}
	src := in.Array.([]uint8)
	mask := make([]uint8, len(src))
	for i, v := range src {
		switch v {
		case Background, Blank:
			mask[i] = v
		default:
			mask[i] = Foreground
		}
	}
	return mask, nil
}

// wrap builds the uint8 output dataset for a mask.
func wrap(in *dataset.Dataset, mask []uint8) *dataset.Dataset {
	out := dataset.FromSlice(in.Shape, mask)
	out.CopyMetadata(in)
	return out
}

// Erode returns a copy of in where every foreground element with at least
// one background neighbor has become background, repeated p.Iterations times.
func Erode(in *dataset.Dataset, p Params) (*dataset.Dataset, error) {
	mask, err := validate(in, p.Connectivity)
	if err != nil {
		return nil, err
	}
	ErodeMask(mask, in.Shape, p)
	return wrap(in, mask), nil
}

// Dilate returns a copy of in where every background element with at least
// one foreground neighbor has become foreground, repeated p.Iterations times.
func Dilate(in *dataset.Dataset, p Params) (*dataset.Dataset, error) {
	mask, err := validate(in, p.Connectivity)
	if err != nil {
		return nil, err
	}
	DilateMask(mask, in.Shape, p)
	return wrap(in, mask), nil
}

// FillHoles returns a copy of in where background regions that cannot be
// reached from outside the array are set to foreground.
func FillHoles(in *dataset.Dataset, p Params) (*dataset.Dataset, error) {
	mask, err := validate(in, p.Connectivity)
	if err != nil {
		return nil, err
	}
	FillHolesMask(mask, in.Shape, p.Connectivity)
	return wrap(in, mask), nil
}

// CountNeighbors returns, for every foreground element, the number of its
// neighbors that are also foreground. Background and blank elements get 0.
// The output is uint8 unless the neighborhood is too large for it.
func CountNeighbors(in *dataset.Dataset, p Params) (*dataset.Dataset, error) {
	mask, err := validate(in, p.Connectivity)
	if err != nil {
		return nil, err
	}
	counts := CountNeighborsMask(mask, in.Shape, p)
	var out *dataset.Dataset
	if newNeighborhood(in.Shape, p.Connectivity).size() < int(Blank) {
		small := make([]uint8, len(counts))
		for i, c := range counts {
			small[i] = uint8(c)
		}
		out = dataset.FromSlice(in.Shape, small)
	} else {
		out = dataset.FromSlice(in.Shape, counts)
	}
	out.CopyMetadata(in)
	return out, nil
}

// ConnectedComponents labels every maximal connected set of foreground
// elements with a distinct positive int32; background and blank get 0.
// It returns the label map and the number of labels.
func ConnectedComponents(in *dataset.Dataset, p Params) (*dataset.Dataset, int, error) {
	mask, err := validate(in, p.Connectivity)
	if err != nil {
		return nil, 0, err
	}
	labels, n := LabelMask(mask, in.Shape, p.Connectivity)
	out := dataset.FromSlice(in.Shape, labels)
	out.CopyMetadata(in)
	logger().Debug("labeled connected components",
		slog.Int("labels", n), slog.Int("connectivity", p.Connectivity))
	return out, n, nil
}

// ErodeMask erodes mask in place.
func ErodeMask(mask []uint8, shape []int, p Params) {
	morph(mask, shape, p, Foreground, Background)
}

// DilateMask dilates mask in place.
func DilateMask(mask []uint8, shape []int, p Params) {
	morph(mask, shape, p, Background, Foreground)
}

// morph flips every element equal to from that has a neighbor equal to to.
func morph(mask []uint8, shape []int, p Params, from, to uint8) {
	n := len(mask)
	if n == 0 {
		return
	}
	nb := newNeighborhood(shape, p.Connectivity)
	iterations := p.Iterations
	if iterations < 1 {
		iterations = 1
	}
	prev := make([]uint8, n)
	for it := 0; it < iterations; it++ {
		copy(prev, mask)
		parallel.Run(n, p.Threads, func(start, end int) {
			coord := make([]int, len(shape))
			for i := start; i < end; i++ {
				if prev[i] != from {
					continue
				}
				ndindex.Coord(i, shape, coord)
				nb.each(i, coord, func(j int) bool {
					if prev[j] == to {
						mask[i] = to
						return false
					}
					return true
				})
			}
		})
	}
}

// CountNeighborsMask returns the foreground neighbor count of every
// foreground element of mask.
func CountNeighborsMask(mask []uint8, shape []int, p Params) []uint32 {
	counts := make([]uint32, len(mask))
	if len(mask) == 0 {
		return counts
	}
	nb := newNeighborhood(shape, p.Connectivity)
	parallel.Run(len(mask), p.Threads, func(start, end int) {
		coord := make([]int, len(shape))
		for i := start; i < end; i++ {
			if mask[i] != Foreground {
				continue
			}
			ndindex.Coord(i, shape, coord)
			var c uint32
			nb.each(i, coord, func(j int) bool {
				if mask[j] == Foreground {
					c++
				}
				return true
			})
			counts[i] = c
		}
	})
	return counts
}

// FillHolesMask floods the background from every non-foreground element on
// the array's border and turns the background it cannot reach into
// foreground. Blank elements carry the flood like background but are never
// changed, so a blank frame does not enclose the array.
func FillHolesMask(mask []uint8, shape []int, conn int) {
	if len(mask) == 0 {
		return
	}
	nb := newNeighborhood(shape, conn)
	reached := make([]bool, len(mask))
	coord := make([]int, len(shape))
	q := queue.New()

	for i, v := range mask {
		if v == Foreground {
			continue
		}
		ndindex.Coord(i, shape, coord)
		if nb.onBorder(coord) {
			reached[i] = true
			q.Add(i)
		}
	}
	for q.Length() > 0 {
		u := q.Remove().(int)
		ndindex.Coord(u, shape, coord)
		nb.each(u, coord, func(v int) bool {
			if !reached[v] && mask[v] != Foreground {
				reached[v] = true
				q.Add(v)
			}
			return true
		})
	}

	for i, v := range mask {
		if v == Background && !reached[i] {
			mask[i] = Foreground
		}
	}
}

// LabelMask assigns labels 1..n, in scan order of their first element, to
// the connected foreground regions of mask.
func LabelMask(mask []uint8, shape []int, conn int) ([]int32, int) {
	labels := make([]int32, len(mask))
	if len(mask) == 0 {
		return labels, 0
	}
	nb := newNeighborhood(shape, conn)
	coord := make([]int, len(shape))
	q := queue.New()
	var current int32

	for i0, v := range mask {
		if v != Foreground || labels[i0] != 0 {
			continue
		}
		// BFS to collect component
		current++
		labels[i0] = current
		q.Add(i0)
		for q.Length() > 0 {
			u := q.Remove().(int)
			ndindex.Coord(u, shape, coord)
			nb.each(u, coord, func(v int) bool {
				if mask[v] == Foreground && labels[v] == 0 {
					labels[v] = current
					q.Add(v)
				}
				return true
			})
		}
	}
	return labels, int(current)
}
