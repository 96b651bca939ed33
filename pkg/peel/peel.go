// Package peel removes modeled sky directions from visibility data one at
// a time, solving for a separate calibration toward each direction.
//
// The four CLI variants map onto two independent switches carried in the
// solver options: peel (per-channel, diagonal), shave (wideband,
// diagonal), zest (per-channel, full polarization), and prune (wideband,
// full polarization).
//
// Directions are processed strictly in catalog order and strictly
// sequentially: each direction's subtraction changes the residual the
// next direction's solve reads. Peeling order matters for convergence —
// stronger sources first — but enforcing it is the catalog's job.
package peel

import (
	"context"
	"time"

	"github.com/Hallflower20/ttcal/pkg/beam"
	"github.com/Hallflower20/ttcal/pkg/calibrate"
	"github.com/Hallflower20/ttcal/pkg/dataset"
	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/observability"
	"github.com/Hallflower20/ttcal/pkg/predict"
	"github.com/Hallflower20/ttcal/pkg/skymodel"
)

// Options extends the solver options with the outer-pass count.
type Options struct {
	calibrate.Options
	PeelIter int // number of passes over the full direction list
}

// DefaultPeelIter is the default number of outer passes.
const DefaultPeelIter = 3

// WithDefaults fills unset knobs with defaults.
func (o Options) WithDefaults() Options {
	o.Options = o.Options.WithDefaults()
	if o.PeelIter == 0 {
		o.PeelIter = DefaultPeelIter
	}
	return o
}

// Progress receives per-direction notifications during a peel run. Any
// field may be nil.
type Progress struct {
	// Direction is called before each direction's solve with the current
	// pass (0-based) and the direction's catalog name.
	Direction func(pass int, name string)
}

// Run peels every source direction out of data, mutating data in place
// into the final residual. It returns one calibration per direction, in
// catalog order, each carrying the direction's name.
//
// Each pass, for each direction: the direction's previously-subtracted
// model is added back into the residual (so the direction is solved
// against the best current estimate of its own contribution), the solver
// runs with the residual as observed data and the direction's predicted
// visibilities as the model, the new calibration is imposed on the
// prediction, and the corrupted prediction is subtracted back out. Extra
// passes refine the nonlinear interaction between directions; the first
// pass's early directions are solved against data still contaminated by
// the later ones.
func Run(ctx context.Context, data *dataset.Dataset, sources []skymodel.Source, bm beam.Model, opts Options, prog Progress) ([]*calibrate.Calibration, error) {
	opts = opts.WithDefaults()
	if err := errors.ValidatePeelIter(opts.PeelIter); err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidCatalog, "peeling needs at least one source direction")
	}

	meta := data.Meta()

	// Capture which cells were flagged on entry. Flags must survive the
	// whole run: add-back and subtraction skip these cells, so a baseline
	// that arrived flagged leaves flagged. The mask is captured once
	// because subtraction can legitimately drive an unflagged residual
	// cell to exact zero, and such a cell must still receive later
	// add-backs.
	mask := flagMask(data)

	// Predict each direction once; geometry and spectra do not change
	// between passes. The per-direction model is corrupted into a scratch
	// copy each time it is added back or subtracted.
	models := make([]*dataset.Dataset, len(sources))
	for i, src := range sources {
		m, err := predict.Visibilities(meta, data.Mode(), data.NTime(), []skymodel.Source{src}, bm)
		if err != nil {
			return nil, err
		}
		models[i] = m
	}

	cals := make([]*calibrate.Calibration, len(sources))

	for pass := range opts.PeelIter {
		for i, src := range sources {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if prog.Direction != nil {
				prog.Direction(pass, src.Name)
			}
			observability.Peel().OnDirectionStart(ctx, pass, src.Name)
			dirStart := time.Now()

			// On later passes the direction's own contribution was removed
			// by the previous pass; restore it with the calibration that
			// removed it so the solve sees the full signal again.
			if cals[i] != nil {
				restored := models[i].Clone()
				if err := calibrate.Corrupt(cals[i], restored); err != nil {
					return nil, err
				}
				addInto(data, restored, 1, mask)
			}

			cal, err := calibrate.Solve(ctx, data, models[i], opts.Options)
			if err != nil {
				return nil, err
			}
			cal.Name = src.Name

			// Subtract the direction's calibrated model from the residual.
			// Subtraction always uses the same calibration that any later
			// add-back will use, so the residual never double-counts.
			removed := models[i].Clone()
			if err := calibrate.Corrupt(cal, removed); err != nil {
				return nil, err
			}
			addInto(data, removed, -1, mask)

			cals[i] = cal
			observability.Peel().OnDirectionComplete(ctx, pass, src.Name, cal.NFlagged(), time.Since(dirStart))
		}
	}
	return cals, nil
}

// flagMask records which cells of d are flagged, indexed like the grid.
func flagMask(d *dataset.Dataset) [][][]bool {
	meta := d.Meta()
	mask := make([][][]bool, meta.NChannels())
	for ch := range mask {
		mask[ch] = make([][]bool, meta.NBaselines())
		for bl := range mask[ch] {
			mask[ch][bl] = make([]bool, d.NTime())
			for t := range mask[ch][bl] {
				mask[ch][bl][t] = d.Flagged(ch, bl, t)
			}
		}
	}
	return mask
}

// addInto accumulates sign·src into dst cell by cell, skipping cells the
// mask marks as flagged. Shapes are equal by construction (both derive
// from the same metadata).
func addInto(dst, src *dataset.Dataset, sign float64, mask [][][]bool) {
	meta := dst.Meta()
	s := complex(sign, 0)
	for ch := range meta.NChannels() {
		for bl := range meta.NBaselines() {
			for t := range dst.NTime() {
				if mask[ch][bl][t] {
					continue
				}
				v := dst.Matrix(ch, bl, t).Add(src.Matrix(ch, bl, t).Scale(s))
				dst.SetMatrix(ch, bl, t, v)
			}
		}
	}
}
