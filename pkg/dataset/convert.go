package dataset

import (
	"math"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Blank returns the blank value of the element type T.
func Blank[T Number]() T {
	var v any
	switch any(*new(T)).(type) {
	case uint8:
		v = uint8(math.MaxUint8)
	case int8:
		v = int8(math.MinInt8)
	case uint16:
		v = uint16(math.MaxUint16)
	case int16:
		v = int16(math.MinInt16)
	case uint32:
		v = uint32(math.MaxUint32)
	case int32:
		v = int32(math.MinInt32)
	case uint64:
		v = uint64(math.MaxUint64)
	case int64:
		v = int64(math.MinInt64)
	case float32:
		v = float32(math.NaN())
	default:
		v = math.NaN()
	}
	return v.(T)
}

// Missing reports whether v is blank, given the blank value of its type.
func Missing[T Number](v, blank T) bool {
	return v == blank || math.IsNaN(float64(v))
}

// intRange returns the usable range of the integer type D, which leaves
// out the blank value.
func intRange[D constraints.Integer]() (lo, hi D) {
	bits := 8 * unsafe.Sizeof(D(0))
	if D(0)-1 > 0 {
		return 0, ^D(0) - 1
	}
	hi = D(1)<<(bits-1) - 1
	return -hi, hi
}

// convertInts copies src into a new slice of D without a float64 round
// trip. Blanks stay blank and out-of-range values saturate.
func convertInts[S, D constraints.Integer](src []S) []D {
	sBlank, dBlank := Blank[S](), Blank[D]()
	lo, hi := intRange[D]()
	dst := make([]D, len(src))
	for i, v := range src {
		switch {
		case v == sBlank:
			dst[i] = dBlank
		case v < 0:
			if lo == 0 || int64(v) < int64(lo) {
				dst[i] = lo
			} else {
				dst[i] = D(v)
			}
		case uint64(v) > uint64(hi):
			dst[i] = hi
		default:
			dst[i] = D(v)
		}
	}
	return dst
}

func convertIntsTo[S constraints.Integer](src []S, t Type) any {
	switch t {
	case Uint8:
		return convertInts[S, uint8](src)
	case Int8:
		return convertInts[S, int8](src)
	case Uint16:
		return convertInts[S, uint16](src)
	case Int16:
		return convertInts[S, int16](src)
	case Uint32:
		return convertInts[S, uint32](src)
	case Int32:
		return convertInts[S, int32](src)
	case Uint64:
		return convertInts[S, uint64](src)
	case Int64:
		return convertInts[S, int64](src)
	}
	return nil
}

// integerArray converts the storage of an integer dataset to the integer
// type t.
func integerArray(a any, t Type) any {
	switch v := a.(type) {
	case []uint8:
		return convertIntsTo(v, t)
	case []int8:
		return convertIntsTo(v, t)
	case []uint16:
		return convertIntsTo(v, t)
	case []int16:
		return convertIntsTo(v, t)
	case []uint32:
		return convertIntsTo(v, t)
	case []int32:
		return convertIntsTo(v, t)
	case []uint64:
		return convertIntsTo(v, t)
	case []int64:
		return convertIntsTo(v, t)
	}
	return nil
}
