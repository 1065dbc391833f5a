// Package ndindex converts between flat row-major offsets and
// multi-dimensional coordinates. Shapes are in C order: the first
// entry is the slowest varying axis.
package ndindex

// Size returns the number of elements described by shape. An empty shape
// has no elements.
func Size(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// Strides returns the row-major stride of every axis.
func Strides(shape []int) []int {
	strides := make([]int, len(shape))
	step := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = step
		step *= shape[i]
	}
	return strides
}

// Offset returns the flat offset of coord.
func Offset(coord, shape []int) int {
	off := 0
	for i := range shape {
		off = off*shape[i] + coord[i]
	}
	return off
}

// Coord writes the coordinate of off into coord and returns it.
// coord must have len(shape) elements.
func Coord(off int, shape, coord []int) []int {
	for i := len(shape) - 1; i >= 0; i-- {
		coord[i] = off % shape[i]
		off /= shape[i]
	}
	return coord
}

// InBounds reports whether coord lies inside shape.
func InBounds(coord, shape []int) bool {
	for i, c := range coord {
		if c < 0 || c >= shape[i] {
			return false
		}
	}
	return true
}

// Line describes every line of elements parallel to one axis. Line o
// starts at Start(o) and its j-th element is at Start(o)+j*Step.
type Line struct {
	Outer  int // product of extents before the axis
	Length int // extent of the axis
	Inner  int // product of extents after the axis; also the step
}

// AlongAxis returns the line layout for the C-order axis dim.
func AlongAxis(shape []int, dim int) Line {
	l := Line{Outer: 1, Length: shape[dim], Inner: 1}
	for i := 0; i < dim; i++ {
		l.Outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		l.Inner *= shape[i]
	}
	return l
}

// Count is the number of lines.
func (l Line) Count() int { return l.Outer * l.Inner }

// Start returns the flat offset of the first element of line o.
func (l Line) Start(o int) int {
	return (o/l.Inner)*l.Length*l.Inner + o%l.Inner
}

// Step is the flat distance between consecutive elements of a line.
func (l Line) Step() int { return l.Inner }

// RemoveAxis returns a copy of shape without the C-order axis dim.
func RemoveAxis(shape []int, dim int) []int {
	out := make([]int, 0, len(shape)-1)
	out = append(out, shape[:dim]...)
	return append(out, shape[dim+1:]...)
}
