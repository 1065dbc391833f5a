package ndindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetCoordRoundTrip(t *testing.T) {
	shape := []int{3, 4, 5}
	coord := make([]int, 3)
	for off := 0; off < Size(shape); off++ {
		Coord(off, shape, coord)
		require.True(t, InBounds(coord, shape))
		require.Equal(t, off, Offset(coord, shape))
	}
}

func TestStrides(t *testing.T) {
	assert.Equal(t, []int{20, 5, 1}, Strides([]int{3, 4, 5}))
	assert.Equal(t, []int{1}, Strides([]int{7}))
}

func TestSize(t *testing.T) {
	assert.Equal(t, 0, Size(nil))
	assert.Equal(t, 0, Size([]int{3, 0}))
	assert.Equal(t, 6, Size([]int{2, 3}))
}

func TestAlongAxis(t *testing.T) {
	// 2x3 array, lines along the fastest axis are the rows.
	l := AlongAxis([]int{2, 3}, 1)
	assert.Equal(t, 2, l.Count())
	assert.Equal(t, 0, l.Start(0))
	assert.Equal(t, 3, l.Start(1))
	assert.Equal(t, 1, l.Step())

	// Lines along the slowest axis are the columns.
	l = AlongAxis([]int{2, 3}, 0)
	assert.Equal(t, 3, l.Count())
	assert.Equal(t, 2, l.Start(2))
	assert.Equal(t, 3, l.Step())
}

func TestRemoveAxis(t *testing.T) {
	shape := []int{2, 3, 4}
	assert.Equal(t, []int{2, 4}, RemoveAxis(shape, 1))
	assert.Equal(t, []int{2, 3, 4}, shape)
}
