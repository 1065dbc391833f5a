package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndarith/pkg/dataset"
	"ndarith/pkg/statistics"
)

func TestHalves(t *testing.T) {
	for length := 1; length <= 10; length++ {
		before, after := Halves(length)
		assert.Equal(t, length/2, before)
		if length%2 == 0 {
			assert.Equal(t, length/2-1, after)
		} else {
			assert.Equal(t, length/2, after)
		}
		assert.Equal(t, length, before+after+1)
	}
}

// TestMedianEdges runs a window of 3 over a short sequence: edge windows
// hold only the two available elements.
func TestMedianEdges(t *testing.T) {
	in := dataset.FromSlice([]int{5}, []float64{1, 2, 3, 4, 5})
	out, err := Apply(in, Options{Statistic: Median, Window: []int{3}})
	require.NoError(t, err)
	assert.Equal(t, dataset.Float64, out.Type)
	assert.Equal(t, []float64{1.5, 2, 3, 4, 4.5}, out.Array)
}

// TestEvenWindow checks the asymmetric reach of an even window: two before
// the center and one after.
func TestEvenWindow(t *testing.T) {
	in := dataset.FromSlice([]int{6}, []float64{0, 10, 20, 30, 40, 50})
	out, err := Apply(in, Options{Statistic: Mean, Window: []int{4}})
	require.NoError(t, err)
	want := []float64{
		5,  // 0,10
		10, // 0,10,20
		15, // 0..30
		25, // 10..40
		35, // 20..50
		40, // 30,40,50
	}
	assert.Equal(t, want, out.Array)
}

// TestInteriorMatchesWindowStatistics compares interior elements of a 2-D
// filter with the statistics of exactly window-size input elements.
func TestInteriorMatchesWindowStatistics(t *testing.T) {
	const nx, ny = 7, 6
	vals := make([]float64, nx*ny)
	for i := range vals {
		vals[i] = float64((i * 37) % 23)
	}
	in := dataset.FromSlice([]int{ny, nx}, vals)

	// Window of 3 along x (axis 1) and 5 along y (axis 2).
	mean, err := Apply(in, Options{Statistic: Mean, Window: []int{3, 5}, Threads: 4})
	require.NoError(t, err)
	median, err := Apply(in, Options{Statistic: Median, Window: []int{3, 5}, Threads: 2})
	require.NoError(t, err)

	for y := 2; y < ny-2; y++ {
		for x := 1; x < nx-1; x++ {
			var window []float64
			for wy := y - 2; wy <= y+2; wy++ {
				for wx := x - 1; wx <= x+1; wx++ {
					window = append(window, vals[wy*nx+wx])
				}
			}
			require.Len(t, window, 15)
			m, _ := statistics.MeanStd(window)
			assert.InDelta(t, m, mean.Array.([]float64)[y*nx+x], 1e-12)
			assert.Equal(t, statistics.Median(window), median.Array.([]float64)[y*nx+x])
		}
	}
}

// TestEdgeWindowsStayInBounds uses a ramp: any read past the edge or any
// wraparound would change the corner values.
func TestEdgeWindowsStayInBounds(t *testing.T) {
	in := dataset.FromSlice([]int{3, 3}, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	out, err := Apply(in, Options{Statistic: Mean, Window: []int{3, 3}})
	require.NoError(t, err)
	got := out.Array.([]float64)
	assert.Equal(t, 3.0, got[0]) // 1,2,4,5
	assert.Equal(t, 7.0, got[8]) // 5,6,8,9
	assert.Equal(t, 5.0, got[4])
}

func TestOutputTypes(t *testing.T) {
	in := dataset.FromSlice([]int{4}, []int16{1, 2, 3, 4})
	med, err := Apply(in, Options{Statistic: Median, Window: []int{3}})
	require.NoError(t, err)
	assert.Equal(t, dataset.Int16, med.Type)

	mean, err := Apply(in, Options{Statistic: Mean, Window: []int{3}})
	require.NoError(t, err)
	assert.Equal(t, dataset.Float64, mean.Type)

	clipMed, err := Apply(in, Options{Statistic: SigmaClipMedian, Window: []int{3}, Multiple: 3, Termination: 0.2})
	require.NoError(t, err)
	assert.Equal(t, dataset.Int16, clipMed.Type)
}

// TestMedianKeepsLargeIntegers uses values above 2^53, which float64
// cannot tell apart.
func TestMedianKeepsLargeIntegers(t *testing.T) {
	const b = 1 << 53
	in := dataset.FromSlice([]int{5}, []int64{b + 1, b + 3, b + 5, math.MinInt64, b + 7})
	out, err := Apply(in, Options{Statistic: Median, Window: []int{3}})
	require.NoError(t, err)
	assert.Equal(t, []int64{b + 2, b + 3, b + 4, b + 6, b + 7}, out.Array)

	unsigned := dataset.FromSlice([]int{3}, []uint64{math.MaxUint64, math.MaxUint64, b + 1})
	out, err = Apply(unsigned, Options{Statistic: Median, Window: []int{2}})
	require.NoError(t, err)
	assert.Equal(t, []uint64{math.MaxUint64, math.MaxUint64, b + 1}, out.Array)
}

func TestBlankHandling(t *testing.T) {
	nan := math.NaN()
	in := dataset.FromSlice([]int{5}, []float64{nan, nan, nan, 4, 6})
	out, err := Apply(in, Options{Statistic: Mean, Window: []int{3}})
	require.NoError(t, err)
	got := out.Array.([]float64)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, 4.0, got[2])
	assert.Equal(t, 5.0, got[3])
}

func TestSigmaClipMeanRejectsSpike(t *testing.T) {
	vals := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 1000, 10, 10, 10, 10, 10, 10, 10, 10, 10}
	in := dataset.FromSlice([]int{len(vals)}, vals)
	plain, err := Apply(in, Options{Statistic: Mean, Window: []int{15}})
	require.NoError(t, err)
	clipped, err := Apply(in, Options{Statistic: SigmaClipMean, Window: []int{15}, Multiple: 3, Termination: 0.2})
	require.NoError(t, err)
	assert.Greater(t, plain.Array.([]float64)[9], 10.0)
	assert.Equal(t, 10.0, clipped.Array.([]float64)[9])
}

func TestSingleElementPassesThrough(t *testing.T) {
	in := dataset.Scalar(dataset.Uint8, 3)
	out, err := Apply(in, Options{Statistic: Median, Window: []int{5, 5}, Quiet: true})
	require.NoError(t, err)
	assert.Same(t, in, out)
}

func TestWindowErrors(t *testing.T) {
	in := dataset.New(dataset.Float32, []int{4, 5})
	_, err := Apply(in, Options{Statistic: Median, Window: []int{3}})
	assert.ErrorIs(t, err, ErrWindow)
	_, err = Apply(in, Options{Statistic: Median, Window: []int{6, 3}})
	assert.ErrorIs(t, err, ErrWindowTooLarge)
	_, err = Apply(in, Options{Statistic: Median, Window: []int{5, 0}})
	assert.ErrorIs(t, err, ErrWindow)
	_, err = Apply(in, Options{Statistic: SigmaClipMean, Window: []int{3, 3}})
	assert.ErrorIs(t, err, ErrClipParam)
}

func TestEmptyInput(t *testing.T) {
	in := dataset.New(dataset.Int32, []int{0, 4})
	out, err := Apply(in, Options{Statistic: Mean, Window: []int{3, 3}})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Size())
	assert.Equal(t, []int{0, 4}, out.Shape)
	assert.Equal(t, dataset.Float64, out.Type)
}

// TestAllocationsDoNotGrowWithSize checks that the window scratch space is
// allocated once per worker rather than once per element.
func TestAllocationsDoNotGrowWithSize(t *testing.T) {
	allocs := func(n int) float64 {
		in := dataset.FromSlice([]int{n, n}, make([]float64, n*n))
		return testing.AllocsPerRun(5, func() {
			_, _ = Apply(in, Options{Statistic: Median, Window: []int{3, 3}, Threads: 1})
		})
	}
	assert.Equal(t, allocs(4), allocs(64))
}

func BenchmarkMedian2D(b *testing.B) {
	vals := make([]float64, 256*256)
	for i := range vals {
		vals[i] = float64(i % 101)
	}
	in := dataset.FromSlice([]int{256, 256}, vals)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Apply(in, Options{Statistic: Median, Window: []int{5, 5}})
	}
}
