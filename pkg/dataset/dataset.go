// Package dataset defines the N-dimensional typed numeric array that every
// engine in ndarith consumes and produces.
//
// Storage is a flat, row-major Go slice whose element type matches the
// Dataset's Type tag. Shape is in C order (slowest axis first), while
// user-facing axis numbers are 1-based in FITS order, so axis 1 is the
// fastest varying one. Every type has a blank sentinel marking missing
// elements: NaN for floats, the minimum value for signed integers and the
// maximum value for unsigned integers.
package dataset

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"ndarith/internal/ndindex"
)

// ErrShapeMismatch is returned when a dataset's storage does not match its
// shape, or when two datasets that must agree in shape do not.
var ErrShapeMismatch = errors.New("shape mismatch")

// Dataset is an N-dimensional numeric array.
type Dataset struct {
	// Type is the element type tag; Array is a slice of the matching Go type.
	Type Type

	// Shape holds the extent of every axis, slowest first.
	Shape []int

	// Array is one of []uint8, []int8, []uint16, []int16, []uint32, []int32,
	// []uint64, []int64, []float32 or []float64.
	Array any

	// Name, Unit and Comment are descriptive metadata carried to outputs.
	Name    string
	Unit    string
	Comment string

	// WCS is the optional world coordinate system of the array.
	WCS *WCS
}

// New allocates a zero-filled dataset.
func New(t Type, shape []int) *Dataset {
	d := &Dataset{Type: t, Shape: append([]int(nil), shape...)}
	d.Array = makeArray(t, ndindex.Size(shape))
	return d
}

// FromSlice wraps vals (without copying) in a dataset of the given shape.
// The element type decides the type tag.
func FromSlice[T Number](shape []int, vals []T) *Dataset {
	d := &Dataset{Shape: append([]int(nil), shape...), Array: vals}
	switch any(vals).(type) {
	case []uint8:
		d.Type = Uint8
	case []int8:
		d.Type = Int8
	case []uint16:
		d.Type = Uint16
	case []int16:
		d.Type = Int16
	case []uint32:
		d.Type = Uint32
	case []int32:
		d.Type = Int32
	case []uint64:
		d.Type = Uint64
	case []int64:
		d.Type = Int64
	case []float32:
		d.Type = Float32
	case []float64:
		d.Type = Float64
	default:
		panic(fmt.Sprintf("dataset: unsupported element type %T", vals))
	}
	return d
}

// FromFloat64s builds a dataset of type t from float64 values. NaN becomes
// the blank value of t and integer types are rounded and clamped.
func FromFloat64s(t Type, shape []int, vals []float64) *Dataset {
	d := New(t, shape)
	d.SetFloat64s(vals)
	return d
}

// Scalar returns a one-element, one-dimensional dataset holding v.
func Scalar(t Type, v float64) *Dataset {
	return FromFloat64s(t, []int{1}, []float64{v})
}

// Values returns the typed storage of d when its element type is T.
func Values[T Number](d *Dataset) ([]T, bool) {
	v, ok := d.Array.([]T)
	return v, ok
}

// Size returns the number of elements.
func (d *Dataset) Size() int { return ndindex.Size(d.Shape) }

// NDim returns the number of axes.
func (d *Dataset) NDim() int { return len(d.Shape) }

// IsScalar reports whether d holds exactly one element.
func (d *Dataset) IsScalar() bool { return d.Size() == 1 }

// Dim converts a 1-based FITS-order axis number to a C-order index into Shape.
func (d *Dataset) Dim(axis int) int { return len(d.Shape) - axis }

// Validate checks that the storage agrees with Type and Shape.
func (d *Dataset) Validate() error {
	if !d.Type.Valid() {
		return errors.Wrapf(ErrUnknownType, "type tag %d", int(d.Type))
	}
	for _, s := range d.Shape {
		if s < 0 {
			return errors.Wrapf(ErrShapeMismatch, "negative extent in %v", d.Shape)
		}
	}
	n, ok := arrayLen(d.Array, d.Type)
	if !ok {
		return errors.Wrapf(ErrShapeMismatch, "%T storage for %s dataset", d.Array, d.Type)
	}
	if n != d.Size() {
		return errors.Wrapf(ErrShapeMismatch, "%d elements stored for shape %v", n, d.Shape)
	}
	return nil
}

// Copy returns a deep copy of d, metadata included.
func (d *Dataset) Copy() *Dataset {
	c := *d
	c.Shape = append([]int(nil), d.Shape...)
	c.Array = copyArray(d.Array)
	if d.WCS != nil {
		c.WCS = d.WCS.Copy()
	}
	return &c
}

// CopyMetadata copies Name, Unit, Comment and WCS from src.
func (d *Dataset) CopyMetadata(src *Dataset) {
	d.Name, d.Unit, d.Comment = src.Name, src.Unit, src.Comment
	if src.WCS != nil {
		d.WCS = src.WCS.Copy()
	}
}

// Float64s returns the elements converted to float64 with blanks as NaN.
func (d *Dataset) Float64s() []float64 {
	out := make([]float64, d.Size())
	switch a := d.Array.(type) {
	case []uint8:
		intsToFloat64s(a, math.MaxUint8, out)
	case []int8:
		intsToFloat64s(a, math.MinInt8, out)
	case []uint16:
		intsToFloat64s(a, math.MaxUint16, out)
	case []int16:
		intsToFloat64s(a, math.MinInt16, out)
	case []uint32:
		intsToFloat64s(a, math.MaxUint32, out)
	case []int32:
		intsToFloat64s(a, math.MinInt32, out)
	case []uint64:
		intsToFloat64s(a, math.MaxUint64, out)
	case []int64:
		intsToFloat64s(a, math.MinInt64, out)
	case []float32:
		floatsToFloat64s(a, out)
	case []float64:
		copy(out, a)
	}
	return out
}

// SetFloat64s overwrites every element from vals, which must have Size()
// elements.
func (d *Dataset) SetFloat64s(vals []float64) {
	switch a := d.Array.(type) {
	case []uint8:
		float64sToInts(vals, a, math.MaxUint8, 0, math.MaxUint8-1)
	case []int8:
		float64sToInts(vals, a, math.MinInt8, math.MinInt8+1, math.MaxInt8)
	case []uint16:
		float64sToInts(vals, a, math.MaxUint16, 0, math.MaxUint16-1)
	case []int16:
		float64sToInts(vals, a, math.MinInt16, math.MinInt16+1, math.MaxInt16)
	case []uint32:
		float64sToInts(vals, a, math.MaxUint32, 0, math.MaxUint32-1)
	case []int32:
		float64sToInts(vals, a, math.MinInt32, math.MinInt32+1, math.MaxInt32)
	case []uint64:
		float64sToInts(vals, a, math.MaxUint64, 0, math.MaxUint64-1)
	case []int64:
		float64sToInts(vals, a, math.MinInt64, math.MinInt64+1, math.MaxInt64)
	case []float32:
		float64sToFloats(vals, a)
	case []float64:
		copy(a, vals)
	}
}

// Float64 returns element i as a float64, NaN when blank.
func (d *Dataset) Float64(i int) float64 {
	switch a := d.Array.(type) {
	case []uint8:
		return blankToNaN(a[i], math.MaxUint8)
	case []int8:
		return blankToNaN(a[i], math.MinInt8)
	case []uint16:
		return blankToNaN(a[i], math.MaxUint16)
	case []int16:
		return blankToNaN(a[i], math.MinInt16)
	case []uint32:
		return blankToNaN(a[i], math.MaxUint32)
	case []int32:
		return blankToNaN(a[i], math.MinInt32)
	case []uint64:
		return blankToNaN(a[i], math.MaxUint64)
	case []int64:
		return blankToNaN(a[i], math.MinInt64)
	case []float32:
		return float64(a[i])
	case []float64:
		return a[i]
	}
	return math.NaN()
}

// IsBlank reports whether element i holds the blank sentinel.
func (d *Dataset) IsBlank(i int) bool { return math.IsNaN(d.Float64(i)) }

// HasBlank reports whether any element is blank.
func (d *Dataset) HasBlank() bool {
	for i, n := 0, d.Size(); i < n; i++ {
		if d.IsBlank(i) {
			return true
		}
	}
	return false
}

// Convert returns a copy of d with element type t. Converting to the same
// type still copies. Integer to integer conversions are exact where the
// value fits and saturate otherwise.
func (d *Dataset) Convert(t Type) *Dataset {
	if t == d.Type {
		return d.Copy()
	}
	var out *Dataset
	if d.Type.IsInteger() && t.IsInteger() {
		out = &Dataset{Type: t, Shape: append([]int(nil), d.Shape...), Array: integerArray(d.Array, t)}
	} else {
		out = FromFloat64s(t, d.Shape, d.Float64s())
	}
	out.CopyMetadata(d)
	return out
}

// SameShape reports whether d and o have identical shapes.
func (d *Dataset) SameShape(o *Dataset) bool {
	if len(d.Shape) != len(o.Shape) {
		return false
	}
	for i := range d.Shape {
		if d.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

// String gives a short description like "float64[3x4]".
func (d *Dataset) String() string {
	s := d.Type.String() + "["
	for i := len(d.Shape) - 1; i >= 0; i-- {
		s += fmt.Sprint(d.Shape[i])
		if i > 0 {
			s += "x"
		}
	}
	return s + "]"
}

func blankToNaN[T Number](v, blank T) float64 {
	if v == blank {
		return math.NaN()
	}
	return float64(v)
}

func makeArray(t Type, n int) any {
	switch t {
	case Uint8:
		return make([]uint8, n)
	case Int8:
		return make([]int8, n)
	case Uint16:
		return make([]uint16, n)
	case Int16:
		return make([]int16, n)
	case Uint32:
		return make([]uint32, n)
	case Int32:
		return make([]int32, n)
	case Uint64:
		return make([]uint64, n)
	case Int64:
		return make([]int64, n)
	case Float32:
		return make([]float32, n)
	case Float64:
		return make([]float64, n)
	}
	panic(fmt.Sprintf("dataset: unknown type tag %d", int(t)))
}

func cloneSlice[T Number](a []T) []T { return append([]T(nil), a...) }

func copyArray(a any) any {
	switch v := a.(type) {
	case []uint8:
		return cloneSlice(v)
	case []int8:
		return cloneSlice(v)
	case []uint16:
		return cloneSlice(v)
	case []int16:
		return cloneSlice(v)
	case []uint32:
		return cloneSlice(v)
	case []int32:
		return cloneSlice(v)
	case []uint64:
		return cloneSlice(v)
	case []int64:
		return cloneSlice(v)
	case []float32:
		return cloneSlice(v)
	case []float64:
		return cloneSlice(v)
	}
	return nil
}

func arrayLen(a any, t Type) (int, bool) {
	switch v := a.(type) {
	case []uint8:
		return len(v), t == Uint8
	case []int8:
		return len(v), t == Int8
	case []uint16:
		return len(v), t == Uint16
	case []int16:
		return len(v), t == Int16
	case []uint32:
		return len(v), t == Uint32
	case []int32:
		return len(v), t == Int32
	case []uint64:
		return len(v), t == Uint64
	case []int64:
		return len(v), t == Int64
	case []float32:
		return len(v), t == Float32
	case []float64:
		return len(v), t == Float64
	}
	return 0, false
}
