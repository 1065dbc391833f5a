package dataio

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"ndarith/pkg/dataset"
)

const jpegQuality = 90

// decodeImage opens and decodes a PNG or JPEG file.
func decodeImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}
	defer file.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		img, err = png.Decode(file)
	default:
		img, err = jpeg.Decode(file)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return img, nil
}

// grayValues converts img to its luminance in [0, 1], row by row.
func grayValues(img image.Image, dst []float64) {
	bounds := img.Bounds()
	width := bounds.Dx()
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < width; x++ {
			g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			dst[y*width+x] = float64(g.Y) / 65535.0
		}
	}
}

func loadImage(path string) (*dataset.Dataset, error) {
	img, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	vals := make([]float64, b.Dx()*b.Dy())
	grayValues(img, vals)
	return dataset.FromFloat64s(dataset.Float64, []int{b.Dy(), b.Dx()}, vals), nil
}

// loadStack reads every image in dir into one cube, the slowest axis
// following the numbers in the file names.
func loadStack(dir string) (*dataset.Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if f, err := formatOf(e.Name()); err == nil && (f == formatPNG || f == formatJPEG) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(ErrFormat, "no images in %s", dir)
	}
	sort.SliceStable(files, func(i, j int) bool {
		return extractNumber(files[i]) < extractNumber(files[j])
	})

	var (
		width, height int
		vals          []float64
	)
	for i, path := range files {
		img, err := decodeImage(path)
		if err != nil {
			return nil, err
		}
		b := img.Bounds()
		if i == 0 {
			width, height = b.Dx(), b.Dy()
			vals = make([]float64, len(files)*width*height)
		} else if b.Dx() != width || b.Dy() != height {
			return nil, errors.Wrapf(ErrFormat, "%s is %dx%d, expected %dx%d", path, b.Dx(), b.Dy(), width, height)
		}
		grayValues(img, vals[i*width*height:(i+1)*width*height])
	}
	return dataset.FromFloat64s(dataset.Float64, []int{len(files), height, width}, vals), nil
}

// extractNumber returns the digits of a file name as a number, or 0.
func extractNumber(filename string) int {
	var digits strings.Builder
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if n, err := strconv.Atoi(digits.String()); err == nil {
		return n
	}
	return 0
}

// toImage scales vals linearly from their range onto 16-bit gray. Blank
// elements become black.
func toImage(vals []float64, width, height int) *image.Gray16 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if !math.IsNaN(v) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	scale := 0.0
	if hi > lo {
		scale = 65535.0 / (hi - lo)
	}

	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := vals[y*width+x]
			if math.IsNaN(v) {
				continue
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round((v - lo) * scale))})
		}
	}
	return img
}

func encodeImage(img image.Image, path string, f format) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "save")
	}
	if f == formatPNG {
		err = png.Encode(file, img)
	} else {
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		file.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return errors.Wrap(file.Close(), "save")
}

// saveImages writes one- and two-dimensional datasets as a single image
// and three-dimensional ones as name_001.ext, name_002.ext and so on.
func saveImages(d *dataset.Dataset, path string, f format) error {
	vals := d.Float64s()
	switch d.NDim() {
	case 1:
		return encodeImage(toImage(vals, d.Shape[0], 1), path, f)
	case 2:
		return encodeImage(toImage(vals, d.Shape[1], d.Shape[0]), path, f)
	case 3:
		height, width := d.Shape[1], d.Shape[2]
		ext := filepath.Ext(path)
		base := strings.TrimSuffix(path, ext)
		for i := 0; i < d.Shape[0]; i++ {
			slice := vals[i*width*height : (i+1)*width*height]
			name := fmt.Sprintf("%s_%03d%s", base, i+1, ext)
			if err := encodeImage(toImage(slice, width, height), name, f); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.Wrapf(ErrFormat, "cannot write %d dimensions as images", d.NDim())
}
