// Package dataio reads and writes datasets for the command line.
//
// Supported formats, chosen by file extension:
//
//	.txt .dat        whitespace separated text tables with "# key: value" headers
//	.csv             the same tables with comma separated values
//	.png .jpg .jpeg  grayscale images, read as float64 in [0, 1]
//	directory        every image inside, stacked in numeric file name order
//
// Three-dimensional datasets written to an image path become one image per
// slice along the slowest axis.
package dataio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"ndarith/pkg/dataset"
)

// ErrFormat is returned for unsupported extensions and malformed files.
var ErrFormat = errors.New("unsupported or malformed file")

func logger() *slog.Logger {
	return slog.Default().With(slog.String("component", "dataio"))
}

type format int

const (
	formatText format = iota
	formatCSV
	formatPNG
	formatJPEG
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".dat":
		return formatText, nil
	case ".csv":
		return formatCSV, nil
	case ".png":
		return formatPNG, nil
	case ".jpg", ".jpeg":
		return formatJPEG, nil
	}
	return 0, errors.Wrapf(ErrFormat, "unknown extension of %s", path)
}

// Load reads the dataset stored at path. The dataset is named after the
// file unless the file names it.
func Load(path string) (*dataset.Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}

	var d *dataset.Dataset
	if info.IsDir() {
		d, err = loadStack(path)
	} else {
		var f format
		if f, err = formatOf(path); err != nil {
			return nil, err
		}
		switch f {
		case formatText:
			d, err = loadText(path, "")
		case formatCSV:
			d, err = loadText(path, ",")
		default:
			d, err = loadImage(path)
		}
	}
	if err != nil {
		return nil, err
	}
	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	logger().Debug("loaded dataset", slog.String("path", path), slog.String("dataset", d.String()))
	return d, nil
}

// Save writes d to path. Name, unit and comment are written only when
// metadata is set and the format can hold them.
func Save(d *dataset.Dataset, path string, metadata bool) error {
	if err := d.Validate(); err != nil {
		return err
	}
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "save")
		}
	}
	switch f {
	case formatText:
		err = saveText(d, path, metadata, " ")
	case formatCSV:
		err = saveText(d, path, metadata, ",")
	default:
		err = saveImages(d, path, f)
	}
	if err != nil {
		return err
	}
	logger().Debug("saved dataset", slog.String("path", path), slog.String("dataset", d.String()))
	return nil
}

// NumberedPath returns the path of the i-th (0-based) output: path itself
// for the first, then name-2.ext, name-3.ext and so on.
func NumberedPath(path string, i int) string {
	if i == 0 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), i+1, ext)
}
