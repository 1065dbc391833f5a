package morphology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndarith/pkg/dataset"
)

// image builds a 2-D uint8 dataset from rows of 0/1 values.
func image(rows ...[]uint8) *dataset.Dataset {
	var flat []uint8
	for _, r := range rows {
		flat = append(flat, r...)
	}
	return dataset.FromSlice([]int{len(rows), len(rows[0])}, flat)
}

func pixels(t *testing.T, d *dataset.Dataset) []uint8 {
	t.Helper()
	v, ok := dataset.Values[uint8](d)
	require.True(t, ok, "expected uint8 output, got %s", d.Type)
	return v
}

func TestNeighborhoodSizes(t *testing.T) {
	cases := []struct {
		shape []int
		conn  int
		want  int
	}{
		{[]int{5}, 1, 2},
		{[]int{5, 5}, 1, 4},
		{[]int{5, 5}, 2, 8},
		{[]int{5, 5, 5}, 1, 6},
		{[]int{5, 5, 5}, 2, 18},
		{[]int{5, 5, 5}, 3, 26},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, newNeighborhood(c.shape, c.conn).size(), "shape %v conn %d", c.shape, c.conn)
	}
}

// TestConnectedComponentsDiagonal checks that two diagonally adjacent
// cells are separate with face connectivity and joined with full
// connectivity.
func TestConnectedComponentsDiagonal(t *testing.T) {
	in := image(
		[]uint8{1, 0, 0, 0, 0},
		[]uint8{0, 1, 0, 0, 1},
		[]uint8{0, 0, 0, 0, 1},
	)
	_, n, err := ConnectedComponents(in, Params{Connectivity: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	labels, n, err := ConnectedComponents(in, Params{Connectivity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	l := labels.Array.([]int32)
	assert.Equal(t, l[0], l[6])
	assert.Equal(t, l[9], l[14])
	assert.NotEqual(t, l[0], l[9])
	assert.Equal(t, int32(0), l[1])
}

// TestConnectedComponentsPartition verifies that two elements share a label
// exactly when they are connected, regardless of where they sit.
func TestConnectedComponentsPartition(t *testing.T) {
	in := image(
		[]uint8{1, 1, 0, 1},
		[]uint8{0, 1, 0, 1},
		[]uint8{1, 0, 0, 1},
		[]uint8{1, 1, 0, 0},
	)
	labels, n, err := ConnectedComponents(in, Params{Connectivity: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	l := labels.Array.([]int32)
	groups := [][]int{{0, 1, 5}, {3, 7, 11}, {8, 12, 13}}
	for _, g := range groups {
		for _, i := range g {
			assert.Equal(t, l[g[0]], l[i])
		}
	}
	assert.Len(t, map[int32]bool{l[0]: true, l[3]: true, l[8]: true}, 3)
}

func TestErode(t *testing.T) {
	in := image(
		[]uint8{0, 0, 0, 0, 0},
		[]uint8{0, 1, 1, 1, 0},
		[]uint8{0, 1, 1, 1, 0},
		[]uint8{0, 1, 1, 1, 0},
		[]uint8{0, 0, 0, 0, 0},
	)
	out, err := Erode(in, Params{Connectivity: 1})
	require.NoError(t, err)
	want := make([]uint8, 25)
	want[12] = 1
	assert.Equal(t, want, pixels(t, out))
}

func TestDilate(t *testing.T) {
	in := image(
		[]uint8{0, 0, 0},
		[]uint8{0, 1, 0},
		[]uint8{0, 0, 0},
	)
	out, err := Dilate(in, Params{Connectivity: 1})
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 1, 0, 1, 1, 1, 0, 1, 0}, pixels(t, out))

	out, err = Dilate(in, Params{Connectivity: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 1, 1, 1, 1, 1, 1, 1, 1}, pixels(t, out))
}

func TestDilateIterations(t *testing.T) {
	in := dataset.FromSlice([]int{7}, []uint8{0, 0, 0, 1, 0, 0, 0})
	out, err := Dilate(in, Params{Connectivity: 1, Iterations: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 1, 1, 1, 1, 1, 0}, pixels(t, out))
}

// TestOpening checks that erosion followed by dilation removes isolated
// specks while restoring a block wider than the neighborhood.
func TestOpening(t *testing.T) {
	rows := make([][]uint8, 9)
	for y := range rows {
		rows[y] = make([]uint8, 9)
	}
	for y := 3; y < 8; y++ {
		for x := 3; x < 8; x++ {
			rows[y][x] = 1
		}
	}
	rows[0][0] = 1 // speck
	rows[1][6] = 1 // speck
	in := image(rows...)

	p := Params{Connectivity: 2, Threads: 3}
	eroded, err := Erode(in, p)
	require.NoError(t, err)
	opened, err := Dilate(eroded, p)
	require.NoError(t, err)

	got := pixels(t, opened)
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			want := uint8(0)
			if y >= 3 && y < 8 && x >= 3 && x < 8 {
				want = 1
			}
			assert.Equal(t, want, got[y*9+x], "pixel (%d,%d)", x, y)
		}
	}
}

func TestFillHoles(t *testing.T) {
	in := image(
		[]uint8{0, 0, 0, 0, 0, 0},
		[]uint8{0, 1, 1, 1, 1, 0},
		[]uint8{0, 1, 0, 0, 1, 0},
		[]uint8{0, 1, 1, 1, 1, 0},
		[]uint8{0, 0, 0, 0, 0, 0},
	)
	out, err := FillHoles(in, Params{Connectivity: 1})
	require.NoError(t, err)
	got := pixels(t, out)
	assert.Equal(t, uint8(1), got[2*6+2])
	assert.Equal(t, uint8(1), got[2*6+3])
	assert.Equal(t, uint8(0), got[0])
}

// TestFillHolesDiagonalLeak checks that a diagonal gap lets the outside
// background in only when diagonal steps are allowed.
func TestFillHolesDiagonalLeak(t *testing.T) {
	in := image(
		[]uint8{0, 0, 0, 0},
		[]uint8{0, 1, 1, 0},
		[]uint8{1, 0, 1, 0},
		[]uint8{0, 1, 1, 0},
	)
	out, err := FillHoles(in, Params{Connectivity: 1})
	require.NoError(t, err)
	assert.Equal(t, uint8(1), pixels(t, out)[9])

	out, err = FillHoles(in, Params{Connectivity: 2})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), pixels(t, out)[9])
}

func TestFillHolesOneDimensional(t *testing.T) {
	mask := []uint8{0, 1, 0, 0, 1, 0}
	FillHolesMask(mask, []int{6}, 1)
	assert.Equal(t, []uint8{0, 1, 1, 1, 1, 0}, mask)
}

// TestFillHolesBlankFrame checks that a blank frame carries the outside
// background instead of enclosing the whole image.
func TestFillHolesBlankFrame(t *testing.T) {
	const B = Blank
	in := image(
		[]uint8{B, B, B, B, B, B},
		[]uint8{B, 0, 1, 1, 1, B},
		[]uint8{B, 0, 1, 0, 1, B},
		[]uint8{B, 0, 1, 1, 1, B},
		[]uint8{B, B, B, B, B, B},
	)
	out, err := FillHoles(in, Params{Connectivity: 1})
	require.NoError(t, err)
	got := pixels(t, out)
	assert.Equal(t, uint8(1), got[2*6+3])
	assert.Equal(t, uint8(0), got[1*6+1])
	assert.Equal(t, uint8(0), got[2*6+1])
	assert.Equal(t, B, got[0])
}

func TestFillHolesBlankElements(t *testing.T) {
	mask := []uint8{Blank, 0, 1, 0, 1, Blank, 0}
	FillHolesMask(mask, []int{7}, 1)
	assert.Equal(t, []uint8{Blank, 0, 1, 1, 1, Blank, 0}, mask)

	// An enclosed blank is kept and lets no background through.
	mask = []uint8{0, 1, Blank, 0, 1, 0}
	FillHolesMask(mask, []int{6}, 1)
	assert.Equal(t, []uint8{0, 1, Blank, 1, 1, 0}, mask)
}

func TestCountNeighbors(t *testing.T) {
	in := image(
		[]uint8{1, 1, 0},
		[]uint8{1, 1, 0},
		[]uint8{0, 0, 1},
	)
	out, err := CountNeighbors(in, Params{Connectivity: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint8{3, 3, 0, 3, 4, 0, 0, 0, 1}, pixels(t, out))

	out, err = CountNeighbors(in, Params{Connectivity: 1})
	require.NoError(t, err)
	assert.Equal(t, []uint8{2, 2, 0, 2, 2, 0, 0, 0, 0}, pixels(t, out))
}

func TestBlankIsIgnored(t *testing.T) {
	in := dataset.FromSlice([]int{3}, []uint8{1, Blank, 1})
	out, err := Erode(in, Params{Connectivity: 1})
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, Blank, 1}, pixels(t, out))
}

func TestRejectsBadInput(t *testing.T) {
	in := image([]uint8{1, 0}, []uint8{0, 1})
	_, err := Erode(in, Params{Connectivity: 3})
	assert.ErrorIs(t, err, ErrConnectivity)
	_, err = Dilate(in, Params{Connectivity: 0})
	assert.ErrorIs(t, err, ErrConnectivity)

	_, _, err = ConnectedComponents(dataset.FromSlice([]int{2}, []float32{1, 0}), Params{Connectivity: 1})
	assert.ErrorIs(t, err, ErrNotBinary)

	bad := dataset.FromSlice([]int{2, 2}, []uint8{1, 0, 1})
	_, err = FillHoles(bad, Params{Connectivity: 1})
	assert.ErrorIs(t, err, dataset.ErrShapeMismatch)
}

func TestEmptyInput(t *testing.T) {
	in := dataset.New(dataset.Uint8, []int{0, 3})
	p := Params{Connectivity: 1}

	out, err := Erode(in, p)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Size())

	out, err = FillHoles(in, p)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Size())

	out, n, err := ConnectedComponents(in, p)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, out.Size())

	out, err = CountNeighbors(in, p)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Size())
}

func BenchmarkConnectedComponents(b *testing.B) {
	const n = 512
	mask := make([]uint8, n*n)
	for i := range mask {
		if (i*7919)%5 < 2 {
			mask[i] = 1
		}
	}
	in := dataset.FromSlice([]int{n, n}, mask)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = ConnectedComponents(in, Params{Connectivity: 2})
	}
}
