package collapse

import (
	"ndarith/internal/ndindex"
	"ndarith/pkg/dataset"
	"ndarith/pkg/parallel"
)

// extremes computes Min or Max on the input's own element type. Lines
// without a usable element give blank.
func extremes(in *dataset.Dataset, line ndindex.Line, outShape []int, opts Options) *dataset.Dataset {
	want := opts.Statistic == Max
	switch a := in.Array.(type) {
	case []uint8:
		return dataset.FromSlice(outShape, extremeLines(a, line, want, opts.Threads))
	case []int8:
		return dataset.FromSlice(outShape, extremeLines(a, line, want, opts.Threads))
	case []uint16:
		return dataset.FromSlice(outShape, extremeLines(a, line, want, opts.Threads))
	case []int16:
		return dataset.FromSlice(outShape, extremeLines(a, line, want, opts.Threads))
	case []uint32:
		return dataset.FromSlice(outShape, extremeLines(a, line, want, opts.Threads))
	case []int32:
		return dataset.FromSlice(outShape, extremeLines(a, line, want, opts.Threads))
	case []uint64:
		return dataset.FromSlice(outShape, extremeLines(a, line, want, opts.Threads))
	case []int64:
		return dataset.FromSlice(outShape, extremeLines(a, line, want, opts.Threads))
	case []float32:
		return dataset.FromSlice(outShape, extremeLines(a, line, want, opts.Threads))
	case []float64:
		return dataset.FromSlice(outShape, extremeLines(a, line, want, opts.Threads))
	}
	panic("collapse: unsupported storage " + in.Type.String())
}

func extremeLines[T dataset.Number](vals []T, line ndindex.Line, wantMax bool, threads int) []T {
	blank := dataset.Blank[T]()
	res := make([]T, line.Count())
	parallel.Run(line.Count(), threads, func(start, end int) {
		step := line.Step()
		for o := start; o < end; o++ {
			best, found := blank, false
			off := line.Start(o)
			for j := 0; j < line.Length; j++ {
				v := vals[off+j*step]
				if dataset.Missing(v, blank) {
					continue
				}
				if !found || (wantMax && v > best) || (!wantMax && v < best) {
					best, found = v, true
				}
			}
			res[o] = best
		}
	})
	return res
}
