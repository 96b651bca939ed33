// Package predict implements the forward model: given observation
// metadata, a beam, and sky-model sources, it computes the model
// visibilities each baseline would measure.
//
// For a component with direction cosines (l, m, n) relative to the phase
// center and apparent flux F (the catalog flux carried through the beam
// by the Hermitian congruence transform), the contribution to baseline
// (u, v, w) at wavelength λ is
//
//	F · exp(2πi·(u·l + v·m + w·(n−1))/λ)
//
// and components sum, so a composite source predicts exactly the sum of
// its constituents.
package predict

import (
	"math"
	"math/cmplx"

	"github.com/Hallflower20/ttcal/pkg/beam"
	"github.com/Hallflower20/ttcal/pkg/dataset"
	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/jones"
	"github.com/Hallflower20/ttcal/pkg/skymodel"
)

// Visibilities predicts the model visibilities for the given sources into
// a fresh dataset of the requested polarization mode. Passing a single
// source predicts that direction alone, which is how the peeling
// orchestrator uses it.
func Visibilities(meta *dataset.Metadata, mode dataset.PolMode, ntime int, sources []skymodel.Source, bm beam.Model) (*dataset.Dataset, error) {
	if bm == nil {
		return nil, errors.New(errors.ErrCodeInvalidBeam, "predict needs a beam model")
	}
	d := dataset.New(meta, mode, ntime)
	for _, src := range sources {
		for _, comp := range src.Components {
			addComponent(d, comp, bm)
		}
	}
	return d, nil
}

func addComponent(d *dataset.Dataset, comp skymodel.Component, bm beam.Model) {
	meta := d.Meta()
	l, m, n := DirectionCosines(meta.PhaseCenter(), comp.Direction)
	az, el := localAzEl(l, m, n)

	for ch := range meta.NChannels() {
		freq := meta.Frequency(ch)
		flux := comp.Spectrum.At(freq).HermitianFlux()
		// Carry the flux through the beam with the congruence transform so
		// the apparent flux stays exactly Hermitian.
		apparent := jones.Congruence(bm.Jones(freq, az, el), flux)
		if apparent.IsZero() {
			continue // below the horizon or beam null
		}
		wavelength := dataset.SpeedOfLight / freq
		for bl := range meta.NBaselines() {
			uvw := meta.UVW(bl)
			phase := 2 * math.Pi * (uvw[0]*l + uvw[1]*m + uvw[2]*(n-1)) / wavelength
			fringe := cmplx.Exp(complex(0, phase))
			contrib := apparent.Full().Scale(fringe)
			for t := range d.NTime() {
				d.SetMatrix(ch, bl, t, d.Matrix(ch, bl, t).Add(contrib))
			}
		}
	}
}

// DirectionCosines returns the (l, m, n) coordinates of dir relative to
// the phase center: l toward increasing right ascension, m toward the
// north celestial pole, n toward the phase center (n = 1 exactly at the
// center).
func DirectionCosines(center, dir dataset.Direction) (l, m, n float64) {
	dra := dir.RA - center.RA
	l = math.Cos(dir.Dec) * math.Sin(dra)
	m = math.Sin(dir.Dec)*math.Cos(center.Dec) - math.Cos(dir.Dec)*math.Sin(center.Dec)*math.Cos(dra)
	n = math.Sin(dir.Dec)*math.Sin(center.Dec) + math.Cos(dir.Dec)*math.Cos(center.Dec)*math.Cos(dra)
	return l, m, n
}

// localAzEl converts direction cosines into the azimuth and elevation
// fed to the beam, treating the phase center as the local zenith. This is
// the drift-scan approximation: for a zenith-pointing array the phase
// center tracks the zenith, so the angular separation from the phase
// center is the zenith angle.
func localAzEl(l, m, n float64) (az, el float64) {
	if n > 1 {
		n = 1
	}
	el = math.Pi/2 - math.Acos(n)
	az = math.Atan2(l, m)
	return az, el
}
