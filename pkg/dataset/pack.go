package dataset

import (
	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/jones"
)

// The flat array layout used by table I/O is
// [polarization][channel][baseline][time], polarization slowest. Full and
// dual modes share the 4-correlation physical layout with planes ordered
// xx, xy, yx, yy; dual reads and writes only planes 0 (xx) and 3 (yy).
// Single mode uses a 1-correlation layout. When ntime is 1 the time axis
// is a degenerate dimension of the same flat slice.

const (
	planeXX = 0
	planeXY = 1
	planeYX = 2
	planeYY = 3
)

// ArrayLen returns the expected flat-array length for meta under the
// given mode and time count.
func ArrayLen(meta *Metadata, mode PolMode, ntime int) int {
	if ntime < 1 {
		ntime = 1
	}
	return mode.NCorrelations() * meta.NChannels() * meta.NBaselines() * ntime
}

// Pack builds a Dataset from a flat complex array as stored by the
// measurement-set collaborator.
//
// Dual-mode cells whose two diagonal entries are both exactly zero are
// elided: the grid cell is left at its zero default, which downstream
// code reads as a flagged/missing baseline. Elided cells are not
// round-trip-safe through Unpack; this is documented data loss matching
// the flagging convention of the external tables, not a bug.
func Pack(meta *Metadata, mode PolMode, data []complex128, ntime int) (*Dataset, error) {
	if ntime < 1 {
		ntime = 1
	}
	if want := ArrayLen(meta, mode, ntime); len(data) != want {
		return nil, errors.New(errors.ErrCodeShapeMismatch,
			"flat array has %d entries, %s-mode grid of %d channels × %d baselines × %d times needs %d",
			len(data), mode, meta.NChannels(), meta.NBaselines(), ntime, want)
	}

	d := New(meta, mode, ntime)
	nch, nbl := meta.NChannels(), meta.NBaselines()
	at := func(p, ch, bl, t int) complex128 {
		return data[((p*nch+ch)*nbl+bl)*ntime+t]
	}

	for ch := range nch {
		for bl := range nbl {
			for t := range ntime {
				switch mode {
				case PolFull:
					d.full[d.index(ch, bl, t)] = jones.Matrix{
						XX: at(planeXX, ch, bl, t),
						XY: at(planeXY, ch, bl, t),
						YX: at(planeYX, ch, bl, t),
						YY: at(planeYY, ch, bl, t),
					}
				case PolDual:
					xx := at(planeXX, ch, bl, t)
					yy := at(planeYY, ch, bl, t)
					if xx == 0 && yy == 0 {
						continue // elide flagged baseline
					}
					d.dual[d.index(ch, bl, t)].XX = xx
					d.dual[d.index(ch, bl, t)].YY = yy
				case PolSingle:
					d.single[d.index(ch, bl, t)] = at(0, ch, bl, t)
				}
			}
		}
	}
	return d, nil
}

// Unpack writes the dataset back into dst, which must have the layout and
// length of the original packed array. Only the entries implied by the
// mode are written: full writes all four planes, dual writes planes 0 and
// 3 leaving whatever off-diagonal data dst already holds untouched, and
// single writes its one plane. Entries elided by the Pack zero-skip rule
// come back as zeros.
func (d *Dataset) Unpack(dst []complex128) error {
	want := ArrayLen(d.meta, d.mode, d.ntime)
	if len(dst) != want {
		return errors.New(errors.ErrCodeShapeMismatch,
			"destination array has %d entries, want %d", len(dst), want)
	}
	nch, nbl := d.meta.NChannels(), d.meta.NBaselines()
	set := func(p, ch, bl, t int, v complex128) {
		dst[((p*nch+ch)*nbl+bl)*d.ntime+t] = v
	}

	for ch := range nch {
		for bl := range nbl {
			for t := range d.ntime {
				i := d.index(ch, bl, t)
				switch d.mode {
				case PolFull:
					m := d.full[i]
					set(planeXX, ch, bl, t, m.XX)
					set(planeXY, ch, bl, t, m.XY)
					set(planeYX, ch, bl, t, m.YX)
					set(planeYY, ch, bl, t, m.YY)
				case PolDual:
					set(planeXX, ch, bl, t, d.dual[i].XX)
					set(planeYY, ch, bl, t, d.dual[i].YY)
				case PolSingle:
					set(0, ch, bl, t, d.single[i])
				}
			}
		}
	}
	return nil
}

// UnpackNew allocates a fresh flat array and unpacks into it.
func (d *Dataset) UnpackNew() []complex128 {
	out := make([]complex128, ArrayLen(d.meta, d.mode, d.ntime))
	// Length always matches by construction.
	_ = d.Unpack(out)
	return out
}
