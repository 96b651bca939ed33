package calibrate

import (
	"github.com/Hallflower20/ttcal/pkg/dataset"
	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/jones"
)

// Apply removes the calibration from d in place: each visibility between
// antennas p and q becomes g_p⁻¹ · V · g_q⁻ᴴ.
//
// Visibilities in flagged (non-converged) solution channels are cleared
// rather than corrected, propagating the unreliability downstream as
// ordinary flags. Visibilities touching an antenna whose gain is exactly
// singular are cleared the same way; singularity is a per-element
// condition, never fatal to the run.
func Apply(cal *Calibration, d *dataset.Dataset) error {
	return transform(cal, d, func(gp, gq, v jones.Matrix) (jones.Matrix, error) {
		pinv, err := gp.Inv()
		if err != nil {
			return jones.Matrix{}, err
		}
		qinv, err := gq.Inv()
		if err != nil {
			return jones.Matrix{}, err
		}
		return pinv.Mul(v).Mul(qinv.Adjoint()), nil
	}, true)
}

// Corrupt imposes the calibration onto d in place: each visibility
// becomes g_p · V · g_qᴴ. This is the forward direction used to turn a
// predicted model into what the instrument would have measured, which
// peeling subtracts from the residual.
func Corrupt(cal *Calibration, d *dataset.Dataset) error {
	return transform(cal, d, func(gp, gq, v jones.Matrix) (jones.Matrix, error) {
		return gp.Mul(v).Mul(gq.Adjoint()), nil
	}, false)
}

func transform(cal *Calibration, d *dataset.Dataset, f func(gp, gq, v jones.Matrix) (jones.Matrix, error), clearFlagged bool) error {
	meta := d.Meta()
	if cal.NAntennas() != meta.NAntennas() {
		return errors.New(errors.ErrCodeShapeMismatch,
			"calibration has %d antennas, dataset has %d", cal.NAntennas(), meta.NAntennas())
	}
	if cal.NChannels() != 1 && cal.NChannels() != meta.NChannels() {
		return errors.New(errors.ErrCodeShapeMismatch,
			"calibration has %d channels, dataset has %d", cal.NChannels(), meta.NChannels())
	}

	for ch := range meta.NChannels() {
		sol := cal.solutionChannel(ch)
		flagged := cal.Flagged(sol)
		for bl := range meta.NBaselines() {
			base := meta.Baseline(bl)
			gp := cal.Gain(sol, base.Ant1)
			gq := cal.Gain(sol, base.Ant2)
			for t := range d.NTime() {
				if d.Flagged(ch, bl, t) {
					continue
				}
				if flagged && clearFlagged {
					d.Clear(ch, bl, t)
					continue
				}
				out, err := f(gp, gq, d.Matrix(ch, bl, t))
				if err != nil {
					if errors.Is(err, errors.ErrCodeSingularMatrix) {
						d.Clear(ch, bl, t)
						continue
					}
					return err
				}
				d.SetMatrix(ch, bl, t, out)
			}
		}
	}
	return nil
}
