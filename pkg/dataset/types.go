package dataset

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Number is the set of Go element types a Dataset can hold.
type Number interface {
	constraints.Integer | constraints.Float
}

// Type is the numeric type tag of a Dataset.
type Type int

const (
	Uint8 Type = iota
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Uint64
	Int64
	Float32
	Float64
)

// typeInfo holds the per-type constants. lo and hi bound the type's range;
// for integers the blank is lo when signed and hi when unsigned.
type typeInfo struct {
	name   string
	size   int
	float  bool
	signed bool
	lo, hi float64
}

var types = [...]typeInfo{
	Uint8:   {"uint8", 1, false, false, 0, math.MaxUint8},
	Int8:    {"int8", 1, false, true, math.MinInt8, math.MaxInt8},
	Uint16:  {"uint16", 2, false, false, 0, math.MaxUint16},
	Int16:   {"int16", 2, false, true, math.MinInt16, math.MaxInt16},
	Uint32:  {"uint32", 4, false, false, 0, math.MaxUint32},
	Int32:   {"int32", 4, false, true, math.MinInt32, math.MaxInt32},
	Uint64:  {"uint64", 8, false, false, 0, math.MaxUint64},
	Int64:   {"int64", 8, false, true, math.MinInt64, math.MaxInt64},
	Float32: {"float32", 4, true, true, -math.MaxFloat32, math.MaxFloat32},
	Float64: {"float64", 8, true, true, -math.MaxFloat64, math.MaxFloat64},
}

// ErrUnknownType is returned when a type name or tag is not recognized.
var ErrUnknownType = errors.New("unknown numeric type")

// Valid reports whether t is one of the ten known tags.
func (t Type) Valid() bool { return t >= Uint8 && t <= Float64 }

// String returns the lower-case name of the type, e.g. "uint8".
func (t Type) String() string {
	if !t.Valid() {
		return "unknown"
	}
	return types[t].name
}

// Size returns the element width in bytes.
func (t Type) Size() int { return types[t].size }

// IsFloat reports whether t is a floating point type.
func (t Type) IsFloat() bool { return types[t].float }

// IsInteger reports whether t is an integer type.
func (t Type) IsInteger() bool { return !types[t].float }

// IsSigned reports whether t can hold negative values.
func (t Type) IsSigned() bool { return types[t].signed }

// ParseType resolves a type name such as "float32".
func ParseType(name string) (Type, error) {
	name = strings.ToLower(name)
	for i, info := range types {
		if info.name == name {
			return Type(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownType, "%q", name)
}

// Promote returns the type able to hold the result of combining a and b
// element-wise. Types are ordered by the table above, so the later one wins.
func Promote(a, b Type) Type {
	if a > b {
		return a
	}
	return b
}

// SmallestInteger returns the narrowest integer type that holds v.
func SmallestInteger(v int64) Type {
	// The blank value of each type is excluded from its usable range.
	switch {
	case v >= 0 && v < math.MaxUint8:
		return Uint8
	case v > math.MinInt8 && v <= math.MaxInt8:
		return Int8
	case v >= 0 && v < math.MaxUint16:
		return Uint16
	case v > math.MinInt16 && v <= math.MaxInt16:
		return Int16
	case v >= 0 && v < math.MaxUint32:
		return Uint32
	case v > math.MinInt32 && v <= math.MaxInt32:
		return Int32
	default:
		return Int64
	}
}

// BlankFloat returns the blank value of t as a float64. For floating
// types it is NaN.
func BlankFloat(t Type) float64 {
	switch {
	case t.IsFloat():
		return math.NaN()
	case t.IsSigned():
		return types[t].lo
	default:
		return types[t].hi
	}
}

func intsToFloat64s[T constraints.Integer](src []T, blank T, dst []float64) {
	for i, v := range src {
		if v == blank {
			dst[i] = math.NaN()
		} else {
			dst[i] = float64(v)
		}
	}
}

func floatsToFloat64s[T constraints.Float](src []T, dst []float64) {
	for i, v := range src {
		dst[i] = float64(v)
	}
}

func float64sToInts[T constraints.Integer](src []float64, dst []T, blank, lo, hi T) {
	for i, v := range src {
		dst[i] = roundInto(v, blank, lo, hi)
	}
}

func float64sToFloats[T constraints.Float](src []float64, dst []T) {
	for i, v := range src {
		dst[i] = T(v)
	}
}

// roundInto converts v to the integer type T, mapping NaN to blank and
// clamping to [lo, hi].
func roundInto[T constraints.Integer](v float64, blank, lo, hi T) T {
	switch {
	case math.IsNaN(v):
		return blank
	case v <= float64(lo):
		return lo
	case v >= float64(hi):
		return hi
	}
	return T(math.Round(v))
}
