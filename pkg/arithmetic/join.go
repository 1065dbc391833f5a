package arithmetic

import (
	"ndarith/pkg/dataset"
)

// joinBlocks concatenates the storage of parts, which all have type t, as
// outer rounds of one block per part. blocks[i] is the element count of
// part i in each round.
func joinBlocks(parts []*dataset.Dataset, t dataset.Type, shape, blocks []int, outer int) *dataset.Dataset {
	switch t {
	case dataset.Uint8:
		return dataset.FromSlice(shape, appendBlocks[uint8](parts, blocks, outer))
	case dataset.Int8:
		return dataset.FromSlice(shape, appendBlocks[int8](parts, blocks, outer))
	case dataset.Uint16:
		return dataset.FromSlice(shape, appendBlocks[uint16](parts, blocks, outer))
	case dataset.Int16:
		return dataset.FromSlice(shape, appendBlocks[int16](parts, blocks, outer))
	case dataset.Uint32:
		return dataset.FromSlice(shape, appendBlocks[uint32](parts, blocks, outer))
	case dataset.Int32:
		return dataset.FromSlice(shape, appendBlocks[int32](parts, blocks, outer))
	case dataset.Uint64:
		return dataset.FromSlice(shape, appendBlocks[uint64](parts, blocks, outer))
	case dataset.Int64:
		return dataset.FromSlice(shape, appendBlocks[int64](parts, blocks, outer))
	case dataset.Float32:
		return dataset.FromSlice(shape, appendBlocks[float32](parts, blocks, outer))
	}
	return dataset.FromSlice(shape, appendBlocks[float64](parts, blocks, outer))
}

func appendBlocks[T dataset.Number](parts []*dataset.Dataset, blocks []int, outer int) []T {
	n := 0
	vals := make([][]T, len(parts))
	for i, d := range parts {
		vals[i], _ = dataset.Values[T](d)
		n += len(vals[i])
	}
	res := make([]T, 0, n)
	for o := 0; o < outer; o++ {
		for i, b := range blocks {
			res = append(res, vals[i][o*b:(o+1)*b]...)
		}
	}
	return res
}

// asType returns d itself when it already has type t.
func asType(d *dataset.Dataset, t dataset.Type) *dataset.Dataset {
	if d.Type == t {
		return d
	}
	return d.Convert(t)
}
