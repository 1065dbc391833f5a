package dataio

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndarith/pkg/dataset"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func writePNG(t *testing.T, path string, w, h int, gray func(x, y int) uint16) {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: gray(x, y)})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestLoadTextInfersShape(t *testing.T) {
	dir := t.TempDir()

	table := filepath.Join(dir, "table.txt")
	writeFile(t, table, "# a comment line\n1 2 3\n4 nan 6\n")
	d, err := Load(table)
	require.NoError(t, err)
	assert.Equal(t, dataset.Float64, d.Type)
	assert.Equal(t, []int{2, 3}, d.Shape)
	assert.Equal(t, "table", d.Name)
	assert.True(t, d.IsBlank(4))
	assert.Equal(t, 6.0, d.Float64(5))

	column := filepath.Join(dir, "column.dat")
	writeFile(t, column, "5\n\n7\nblank\n")
	d, err = Load(column)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, d.Shape)
	assert.True(t, d.IsBlank(2))
}

func TestLoadTextHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.txt")
	writeFile(t, path, "# type: int16\n# shape: 2 3 2\n# name: flux\n# unit: counts\n"+
		"1 2\n3 4\n5 6\n7 8\n9 10\n11 nan\n")

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dataset.Int16, d.Type)
	assert.Equal(t, []int{2, 3, 2}, d.Shape)
	assert.Equal(t, "flux", d.Name)
	assert.Equal(t, "counts", d.Unit)
	vals, ok := dataset.Values[int16](d)
	require.True(t, ok)
	assert.Equal(t, []int16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, math.MinInt16}, vals)
}

func TestLoadTextErrors(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"ragged.txt":    "1 2\n3\n",
		"word.txt":      "1 two\n",
		"count.txt":     "# shape: 4\n1 2 3\n",
		"type.txt":      "# type: complex\n1\n",
		"extent.txt":    "# shape: -1\n",
		"notnumber.txt": "# shape: x\n",
	} {
		path := filepath.Join(dir, name)
		writeFile(t, path, body)
		_, err := Load(path)
		assert.Error(t, err, name)
	}

	_, err := Load(filepath.Join(dir, "absent.txt"))
	assert.Error(t, err)

	writeFile(t, filepath.Join(dir, "data.bin"), "1")
	_, err = Load(filepath.Join(dir, "data.bin"))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestTextRoundTrip(t *testing.T) {
	in := dataset.FromSlice([]int{2, 2, 3}, []float32{1.5, 2, 3, 4, float32(math.NaN()), 6, 7, 8, 9, 10, 11, 0.25})
	in.Name, in.Unit, in.Comment = "cube", "Jy", "test data"
	path := filepath.Join(t.TempDir(), "out", "cube.txt")
	require.NoError(t, Save(in, path, true))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in.Type, out.Type)
	assert.Equal(t, in.Shape, out.Shape)
	assert.Equal(t, "cube", out.Name)
	assert.Equal(t, "Jy", out.Unit)
	assert.Equal(t, "test data", out.Comment)
	for i := 0; i < in.Size(); i++ {
		if in.IsBlank(i) {
			assert.True(t, out.IsBlank(i), i)
			continue
		}
		assert.Equal(t, in.Float64(i), out.Float64(i), i)
	}
}

func TestTextWithoutMetadata(t *testing.T) {
	in := dataset.FromSlice([]int{3}, []uint8{1, 255, 3})
	in.Name = "hidden"
	path := filepath.Join(t.TempDir(), "vec.txt")
	require.NoError(t, Save(in, path, false))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# type: uint8\n# shape: 3\n1\nnan\n3\n", string(body))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "vec", out.Name)
	assert.True(t, out.IsBlank(1))
}

func TestCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.csv")
	writeFile(t, path, "# name: flux\n1,2, 3\n4 ,nan,6\n")

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, d.Shape)
	assert.Equal(t, "flux", d.Name)
	assert.Equal(t, 3.0, d.Float64(2))
	assert.Equal(t, 4.0, d.Float64(3))
	assert.True(t, d.IsBlank(4))

	out := filepath.Join(dir, "copy.csv")
	require.NoError(t, Save(d, out, false))
	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "# type: float64\n# shape: 3 2\n1,2,3\n4,nan,6\n", string(body))

	writeFile(t, path, "1,,3\n")
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramp.png")
	writePNG(t, path, 3, 2, func(x, y int) uint16 { return uint16(x * 65535 / 2) })

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dataset.Float64, d.Type)
	assert.Equal(t, []int{2, 3}, d.Shape)
	assert.InDelta(t, 0.0, d.Float64(0), 1e-4)
	assert.InDelta(t, 0.5, d.Float64(1), 1e-4)
	assert.InDelta(t, 1.0, d.Float64(5), 1e-4)
}

func TestLoadImageDirectory(t *testing.T) {
	dir := t.TempDir()
	// Numeric order, not lexical order.
	writePNG(t, filepath.Join(dir, "slice10.png"), 2, 2, func(x, y int) uint16 { return 65535 })
	writePNG(t, filepath.Join(dir, "slice2.png"), 2, 2, func(x, y int) uint16 { return 0 })
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored\n")

	d, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2}, d.Shape)
	assert.Equal(t, 0.0, d.Float64(0))
	assert.Equal(t, 1.0, d.Float64(7))

	writePNG(t, filepath.Join(dir, "slice11.png"), 3, 2, func(x, y int) uint16 { return 0 })
	_, err = Load(dir)
	assert.ErrorIs(t, err, ErrFormat)

	_, err = Load(t.TempDir())
	assert.ErrorIs(t, err, ErrFormat)
}

func TestSaveImageScalesRange(t *testing.T) {
	in := dataset.FromSlice([]int{2, 2}, []float64{-1, 1, math.NaN(), 0})
	path := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, Save(in, path, false))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, out.Shape)
	assert.InDelta(t, 0.0, out.Float64(0), 1e-4)
	assert.InDelta(t, 1.0, out.Float64(1), 1e-4)
	assert.InDelta(t, 0.0, out.Float64(2), 1e-4)
	assert.InDelta(t, 0.5, out.Float64(3), 1e-4)
}

func TestSaveCubeAsSequence(t *testing.T) {
	vals := make([]float64, 3*2*2)
	for i := range vals {
		vals[i] = float64(i)
	}
	dir := t.TempDir()
	require.NoError(t, Save(dataset.FromSlice([]int{3, 2, 2}, vals), filepath.Join(dir, "cube.jpg"), false))

	for _, name := range []string{"cube_001.jpg", "cube_002.jpg", "cube_003.jpg"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	d, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 2}, d.Shape)

	err = Save(dataset.New(dataset.Float64, []int{1, 1, 1, 1}), filepath.Join(dir, "hyper.png"), false)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestNumberedPath(t *testing.T) {
	assert.Equal(t, "out.txt", NumberedPath("out.txt", 0))
	assert.Equal(t, "out-2.txt", NumberedPath("out.txt", 1))
	assert.Equal(t, "dir/img-3.png", NumberedPath("dir/img.png", 2))
}
