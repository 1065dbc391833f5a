package morphology

import (
	"github.com/pkg/errors"

	"ndarith/internal/ndindex"
)

// ErrConnectivity is returned for a connectivity outside 1..ndim.
var ErrConnectivity = errors.New("connectivity out of range")

// neighborhood enumerates the in-bounds neighbors of an element for one
// shape and connectivity.
type neighborhood struct {
	shape   []int
	offsets [][]int // coordinate deltas, one per neighbor
	deltas  []int   // the same deltas as flat offsets
}

// checkConnectivity validates conn against the number of dimensions.
func checkConnectivity(conn, ndim int) error {
	if conn < 1 || conn > ndim {
		return errors.Wrapf(ErrConnectivity, "connectivity %d for %d-dimensional input (must be 1 to %d)",
			conn, ndim, ndim)
	}
	return nil
}

// newNeighborhood builds the neighbor set: every offset in {-1,0,1}^n
// except the origin whose number of non-zero components is at most conn.
func newNeighborhood(shape []int, conn int) *neighborhood {
	ndim := len(shape)
	strides := ndindex.Strides(shape)
	nb := &neighborhood{shape: shape}

	d := make([]int, ndim)
	for i := range d {
		d[i] = -1
	}
	for {
		nonZero, flat := 0, 0
		for i, v := range d {
			if v != 0 {
				nonZero++
			}
			flat += v * strides[i]
		}
		if nonZero > 0 && nonZero <= conn {
			nb.offsets = append(nb.offsets, append([]int(nil), d...))
			nb.deltas = append(nb.deltas, flat)
		}

		// Advance d like an odometer over {-1, 0, 1}.
		i := ndim - 1
		for ; i >= 0; i-- {
			if d[i] < 1 {
				d[i]++
				break
			}
			d[i] = -1
		}
		if i < 0 {
			break
		}
	}
	return nb
}

// size is the number of neighbors of an interior element.
func (nb *neighborhood) size() int { return len(nb.offsets) }

// each calls fn with the flat offset of every in-bounds neighbor of the
// element at off, whose coordinate is coord. Iteration stops when fn
// returns false.
func (nb *neighborhood) each(off int, coord []int, fn func(n int) bool) {
	for k, d := range nb.offsets {
		inside := true
		for i, v := range d {
			c := coord[i] + v
			if c < 0 || c >= nb.shape[i] {
				inside = false
				break
			}
		}
		if inside && !fn(off+nb.deltas[k]) {
			return
		}
	}
}

// onBorder reports whether coord touches the edge of the array.
func (nb *neighborhood) onBorder(coord []int) bool {
	for i, c := range coord {
		if c == 0 || c == nb.shape[i]-1 {
			return true
		}
	}
	return false
}
