package dataio

import (
	"bufio"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"ndarith/pkg/dataset"
)

// loadText parses a text table. Header lines look like "# key: value"
// with the keys type, shape (FITS order), name, unit and comment. Without
// a shape header a single column is one-dimensional and several columns
// make one row per line. "nan" and "blank" mark blank elements. Values
// are separated by sep, or by white space when sep is empty.
func loadText(path, sep string) (*dataset.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}
	defer file.Close()

	d := &dataset.Dataset{Type: dataset.Float64}
	var (
		shape []int
		vals  []float64
		rows  int
		cols  = -1
	)
	scanner := bufio.NewScanner(file)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if shape, err = parseHeader(d, line, shape); err != nil {
				return nil, errors.Wrapf(err, "%s:%d", path, lineNo)
			}
			continue
		}

		fields := splitFields(line, sep)
		if cols >= 0 && len(fields) != cols && shape == nil {
			return nil, errors.Wrapf(ErrFormat, "%s:%d: %d columns, expected %d", path, lineNo, len(fields), cols)
		}
		cols = len(fields)
		rows++
		for _, f := range fields {
			v, err := parseValue(f)
			if err != nil {
				return nil, errors.Wrapf(ErrFormat, "%s:%d: %v", path, lineNo, err)
			}
			vals = append(vals, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "load")
	}

	switch {
	case shape != nil:
	case cols <= 1:
		shape = []int{len(vals)}
	default:
		shape = []int{rows, cols}
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	if n != len(vals) {
		return nil, errors.Wrapf(ErrFormat, "%s: %d values for shape %v", path, len(vals), shape)
	}

	out := dataset.FromFloat64s(d.Type, shape, vals)
	out.Name, out.Unit, out.Comment = d.Name, d.Unit, d.Comment
	return out, nil
}

func parseHeader(d *dataset.Dataset, line string, shape []int) ([]int, error) {
	key, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "#")), ":")
	if !ok {
		return shape, nil
	}
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "type":
		t, err := dataset.ParseType(value)
		if err != nil {
			return nil, err
		}
		d.Type = t
	case "shape":
		fields := strings.Fields(value)
		shape = make([]int, len(fields))
		for i, f := range fields {
			s, err := strconv.Atoi(f)
			if err != nil || s < 0 {
				return nil, errors.Wrapf(ErrFormat, "bad extent %q", f)
			}
			// Extents are listed fastest axis first.
			shape[len(fields)-1-i] = s
		}
	case "name":
		d.Name = value
	case "unit":
		d.Unit = value
	case "comment":
		d.Comment = value
	}
	return shape, nil
}

func splitFields(line, sep string) []string {
	if sep == "" {
		return strings.Fields(line)
	}
	fields := strings.Split(line, sep)
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

func parseValue(f string) (float64, error) {
	if strings.EqualFold(f, "blank") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(f, 64)
}

// saveText writes d as rows along its fastest axis.
func saveText(d *dataset.Dataset, path string, metadata bool, sep string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "save")
	}
	w := bufio.NewWriter(file)

	w.WriteString("# type: " + d.Type.String() + "\n")
	w.WriteString("# shape:")
	for i := len(d.Shape) - 1; i >= 0; i-- {
		w.WriteString(" " + strconv.Itoa(d.Shape[i]))
	}
	w.WriteString("\n")
	if metadata {
		for _, kv := range [][2]string{{"name", d.Name}, {"unit", d.Unit}, {"comment", d.Comment}} {
			if kv[1] != "" {
				w.WriteString("# " + kv[0] + ": " + kv[1] + "\n")
			}
		}
	}

	cols := 1
	if len(d.Shape) > 1 {
		cols = d.Shape[len(d.Shape)-1]
	}
	vals := d.Float64s()
	for i, v := range vals {
		w.WriteString(formatValue(v, d.Type))
		if (i+1)%cols == 0 {
			w.WriteString("\n")
		} else {
			w.WriteString(sep)
		}
	}

	if err := w.Flush(); err != nil {
		file.Close()
		return errors.Wrap(err, "save")
	}
	return errors.Wrap(file.Close(), "save")
}

func formatValue(v float64, t dataset.Type) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case t.IsInteger():
		return strconv.FormatFloat(v, 'f', -1, 64)
	case t == dataset.Float32:
		return strconv.FormatFloat(v, 'g', -1, 32)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
