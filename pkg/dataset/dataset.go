package dataset

import (
	"math"

	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/jones"
)

// PolMode selects how many correlations each grid cell carries. The mode
// is fixed when the Dataset is built.
type PolMode int

const (
	// PolFull stores all four correlations (xx, xy, yx, yy) per cell.
	PolFull PolMode = iota
	// PolDual stores the two diagonal correlations (xx, yy) per cell.
	PolDual
	// PolSingle stores a single correlation per cell.
	PolSingle
)

// String returns the conventional name of the mode.
func (m PolMode) String() string {
	switch m {
	case PolFull:
		return "full"
	case PolDual:
		return "dual"
	case PolSingle:
		return "single"
	}
	return "unknown"
}

// NCorrelations returns the number of correlations a cell of this mode
// reads from or writes to the flat array layout. Dual cells live in the
// same 4-correlation physical layout as full cells.
func (m PolMode) NCorrelations() int {
	if m == PolSingle {
		return 1
	}
	return 4
}

// Dataset is the mutable visibility grid: one polarization-typed cell per
// (channel, baseline, time). Cells left at their zero value represent
// flagged or missing baselines; see Pack for the elision rule.
type Dataset struct {
	meta  *Metadata
	mode  PolMode
	ntime int

	// Exactly one backing store is non-nil, selected by mode.
	full   []jones.Matrix
	dual   []jones.Diagonal
	single []complex128
}

// New creates a zeroed Dataset over meta with the given polarization mode
// and ntime time steps (use 1 for a single integration).
func New(meta *Metadata, mode PolMode, ntime int) *Dataset {
	if ntime < 1 {
		ntime = 1
	}
	d := &Dataset{meta: meta, mode: mode, ntime: ntime}
	n := meta.NChannels() * meta.NBaselines() * ntime
	switch mode {
	case PolFull:
		d.full = make([]jones.Matrix, n)
	case PolDual:
		d.dual = make([]jones.Diagonal, n)
	case PolSingle:
		d.single = make([]complex128, n)
	}
	return d
}

// Meta returns the dataset's metadata.
func (d *Dataset) Meta() *Metadata { return d.meta }

// Mode returns the polarization mode fixed at construction.
func (d *Dataset) Mode() PolMode { return d.mode }

// NTime returns the number of time steps.
func (d *Dataset) NTime() int { return d.ntime }

func (d *Dataset) index(ch, bl, t int) int {
	return (ch*d.meta.NBaselines()+bl)*d.ntime + t
}

// Matrix returns the cell at (ch, bl, t) promoted to a general Jones
// matrix regardless of mode. Single-correlation cells promote as a scalar
// times the identity pattern with only xx populated.
func (d *Dataset) Matrix(ch, bl, t int) jones.Matrix {
	i := d.index(ch, bl, t)
	switch d.mode {
	case PolFull:
		return d.full[i]
	case PolDual:
		return d.dual[i].Full()
	default:
		return jones.Matrix{XX: d.single[i]}
	}
}

// SetMatrix stores v into the cell at (ch, bl, t), demoting to the
// dataset's mode: dual keeps the diagonal, single keeps xx. Demotion is
// lossy by construction, matching the mode chosen when the data was read.
func (d *Dataset) SetMatrix(ch, bl, t int, v jones.Matrix) {
	i := d.index(ch, bl, t)
	switch d.mode {
	case PolFull:
		d.full[i] = v
	case PolDual:
		d.dual[i] = v.Diag()
	default:
		d.single[i] = v.XX
	}
}

// Diagonal returns the diagonal view of the cell at (ch, bl, t).
func (d *Dataset) Diagonal(ch, bl, t int) jones.Diagonal {
	i := d.index(ch, bl, t)
	switch d.mode {
	case PolFull:
		return d.full[i].Diag()
	case PolDual:
		return d.dual[i]
	default:
		return jones.Diagonal{XX: d.single[i]}
	}
}

// SetDiagonal stores a diagonal value into the cell at (ch, bl, t).
func (d *Dataset) SetDiagonal(ch, bl, t int, v jones.Diagonal) {
	i := d.index(ch, bl, t)
	switch d.mode {
	case PolFull:
		d.full[i] = v.Full()
	case PolDual:
		d.dual[i] = v
	default:
		d.single[i] = v.XX
	}
}

// Flagged reports whether the cell at (ch, bl, t) is at its zero default,
// which is how elided (flagged or missing) baselines are represented.
func (d *Dataset) Flagged(ch, bl, t int) bool {
	i := d.index(ch, bl, t)
	switch d.mode {
	case PolFull:
		return d.full[i].IsZero()
	case PolDual:
		return d.dual[i].IsZero()
	default:
		return d.single[i] == 0
	}
}

// Clear resets the cell at (ch, bl, t) to its zero default.
func (d *Dataset) Clear(ch, bl, t int) {
	i := d.index(ch, bl, t)
	switch d.mode {
	case PolFull:
		d.full[i] = jones.Matrix{}
	case PolDual:
		d.dual[i] = jones.Diagonal{}
	default:
		d.single[i] = 0
	}
}

// Clone returns a deep copy of the dataset sharing the same (immutable)
// metadata.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{meta: d.meta, mode: d.mode, ntime: d.ntime}
	switch d.mode {
	case PolFull:
		out.full = append([]jones.Matrix(nil), d.full...)
	case PolDual:
		out.dual = append([]jones.Diagonal(nil), d.dual...)
	default:
		out.single = append([]complex128(nil), d.single...)
	}
	return out
}

// Norm returns the Frobenius norm of the whole grid, treating each cell
// as its promoted matrix.
func (d *Dataset) Norm() float64 {
	var sum float64
	for ch := range d.meta.NChannels() {
		for bl := range d.meta.NBaselines() {
			for t := range d.ntime {
				n := d.Matrix(ch, bl, t).Norm()
				sum += n * n
			}
		}
	}
	return math.Sqrt(sum)
}

// CheckSameShape fails with ErrCodeShapeMismatch unless other spans the
// same channels, baselines, time steps, and polarization mode.
func (d *Dataset) CheckSameShape(other *Dataset) error {
	switch {
	case d.mode != other.mode:
		return errors.New(errors.ErrCodeShapeMismatch, "polarization modes differ: %s vs %s", d.mode, other.mode)
	case d.meta.NChannels() != other.meta.NChannels():
		return errors.New(errors.ErrCodeShapeMismatch, "channel counts differ: %d vs %d", d.meta.NChannels(), other.meta.NChannels())
	case d.meta.NBaselines() != other.meta.NBaselines():
		return errors.New(errors.ErrCodeShapeMismatch, "baseline counts differ: %d vs %d", d.meta.NBaselines(), other.meta.NBaselines())
	case d.ntime != other.ntime:
		return errors.New(errors.ErrCodeShapeMismatch, "time counts differ: %d vs %d", d.ntime, other.ntime)
	}
	return nil
}
