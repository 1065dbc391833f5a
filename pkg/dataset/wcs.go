package dataset

import "github.com/pkg/errors"

// WCS is a linear world coordinate system. All per-axis slices are in FITS
// order (index 0 describes axis 1) and PC is an NAxis x NAxis matrix.
type WCS struct {
	CRPIX []float64
	CRVAL []float64
	CDELT []float64
	CTYPE []string
	CUNIT []string
	PC    [][]float64
}

// NewLinearWCS returns an identity WCS with naxis axes: reference pixel 1,
// reference value 0, unit increments.
func NewLinearWCS(naxis int) *WCS {
	w := &WCS{
		CRPIX: make([]float64, naxis),
		CRVAL: make([]float64, naxis),
		CDELT: make([]float64, naxis),
		CTYPE: make([]string, naxis),
		CUNIT: make([]string, naxis),
		PC:    make([][]float64, naxis),
	}
	for i := 0; i < naxis; i++ {
		w.CRPIX[i] = 1
		w.CDELT[i] = 1
		w.PC[i] = make([]float64, naxis)
		w.PC[i][i] = 1
	}
	return w
}

// NAxis returns the number of axes described.
func (w *WCS) NAxis() int { return len(w.CRPIX) }

// Copy returns a deep copy.
func (w *WCS) Copy() *WCS {
	c := &WCS{
		CRPIX: append([]float64(nil), w.CRPIX...),
		CRVAL: append([]float64(nil), w.CRVAL...),
		CDELT: append([]float64(nil), w.CDELT...),
		CTYPE: append([]string(nil), w.CTYPE...),
		CUNIT: append([]string(nil), w.CUNIT...),
		PC:    make([][]float64, len(w.PC)),
	}
	for i, row := range w.PC {
		c.PC[i] = append([]float64(nil), row...)
	}
	return c
}

// World converts a 1-based FITS-order pixel coordinate to world coordinates.
func (w *WCS) World(pixel []float64) []float64 {
	n := w.NAxis()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var s float64
		for j := 0; j < n; j++ {
			s += w.PC[i][j] * (pixel[j] - w.CRPIX[j])
		}
		out[i] = w.CRVAL[i] + w.CDELT[i]*s
	}
	return out
}

// RemoveAxis returns a WCS without the 1-based FITS axis: its row and
// column leave the PC matrix and its entries leave every per-axis slice.
// World coordinates of the kept axes are unchanged for pixels lying on the
// reference plane of the removed axis.
func (w *WCS) RemoveAxis(axis int) (*WCS, error) {
	n := w.NAxis()
	if axis < 1 || axis > n {
		return nil, errors.Errorf("wcs: axis %d out of range 1..%d", axis, n)
	}
	k := axis - 1
	keep := func(s []float64) []float64 {
		out := make([]float64, 0, n-1)
		out = append(out, s[:k]...)
		return append(out, s[k+1:]...)
	}
	keepStr := func(s []string) []string {
		out := make([]string, 0, n-1)
		out = append(out, s[:k]...)
		return append(out, s[k+1:]...)
	}
	r := &WCS{
		CRPIX: keep(w.CRPIX),
		CRVAL: keep(w.CRVAL),
		CDELT: keep(w.CDELT),
		CTYPE: keepStr(w.CTYPE),
		CUNIT: keepStr(w.CUNIT),
	}
	for i := 0; i < n; i++ {
		if i == k {
			continue
		}
		r.PC = append(r.PC, keep(w.PC[i]))
	}
	return r, nil
}
