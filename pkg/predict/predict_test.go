package predict

import (
	"math"
	"testing"

	"github.com/Hallflower20/ttcal/pkg/beam"
	"github.com/Hallflower20/ttcal/pkg/dataset"
	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/skymodel"
)

func testMeta(t *testing.T, nant, nch int) *dataset.Metadata {
	t.Helper()
	antennas := make([]dataset.Antenna, nant)
	for i := range antennas {
		antennas[i] = dataset.Antenna{Position: [3]float64{float64(i) * 100, 0, 0}}
	}
	var baselines []dataset.Baseline
	var uvw [][3]float64
	for i := 0; i < nant; i++ {
		for j := i; j < nant; j++ {
			baselines = append(baselines, dataset.Baseline{Ant1: i, Ant2: j})
			uvw = append(uvw, [3]float64{float64(j-i) * 100, float64(j-i) * 10 * float64(i+1), 0})
		}
	}
	frequencies := make([]float64, nch)
	for i := range frequencies {
		frequencies[i] = 45e6 + float64(i)*24e3
	}
	meta, err := dataset.NewMetadata(antennas, baselines, uvw, frequencies,
		dataset.Direction{RA: 1.0, Dec: 0.5}, nil)
	if err != nil {
		t.Fatalf("NewMetadata() error = %v", err)
	}
	return meta
}

func TestDirectionCosinesAtCenter(t *testing.T) {
	center := dataset.Direction{RA: 1.0, Dec: 0.5}
	l, m, n := DirectionCosines(center, center)
	if math.Abs(l) > 1e-15 || math.Abs(m) > 1e-15 || math.Abs(n-1) > 1e-15 {
		t.Errorf("cosines at center = (%v, %v, %v), want (0, 0, 1)", l, m, n)
	}
}

func TestDirectionCosinesUnitNorm(t *testing.T) {
	center := dataset.Direction{RA: 1.0, Dec: 0.5}
	dirs := []dataset.Direction{
		{RA: 1.2, Dec: 0.4},
		{RA: 0.3, Dec: -0.8},
		{RA: 5.0, Dec: 1.2},
	}
	for _, dir := range dirs {
		l, m, n := DirectionCosines(center, dir)
		if norm := l*l + m*m + n*n; math.Abs(norm-1) > 1e-12 {
			t.Errorf("cosines of %+v have norm %v, want 1", dir, norm)
		}
	}
}

func TestDirectionCosinesNorth(t *testing.T) {
	// A source due north of the phase center has l = 0, m > 0.
	center := dataset.Direction{RA: 1.0, Dec: 0.5}
	l, m, _ := DirectionCosines(center, dataset.Direction{RA: 1.0, Dec: 0.6})
	if math.Abs(l) > 1e-15 {
		t.Errorf("l = %v, want 0", l)
	}
	if m <= 0 {
		t.Errorf("m = %v, want positive", m)
	}
}

func TestVisibilitiesCenteredSource(t *testing.T) {
	meta := testMeta(t, 3, 2)

	// A 10 Jy unpolarized source exactly at the phase center through a
	// constant beam: every baseline sees 10 Jy on both diagonals, zero
	// phase, at every channel.
	src := skymodel.Source{
		Name: "center",
		Components: []skymodel.Component{{
			Direction: meta.PhaseCenter(),
			Spectrum:  skymodel.Spectrum{Flux: skymodel.Stokes{I: 10}, RefFreq: 45e6},
		}},
	}

	d, err := Visibilities(meta, dataset.PolFull, 1, []skymodel.Source{src}, beam.Constant{})
	if err != nil {
		t.Fatalf("Visibilities() error = %v", err)
	}

	for ch := 0; ch < meta.NChannels(); ch++ {
		for bl := 0; bl < meta.NBaselines(); bl++ {
			v := d.Matrix(ch, bl, 0)
			if math.Abs(real(v.XX)-10) > 1e-9 || math.Abs(imag(v.XX)) > 1e-9 {
				t.Errorf("ch %d bl %d xx = %v, want 10", ch, bl, v.XX)
			}
			if math.Abs(real(v.YY)-10) > 1e-9 {
				t.Errorf("ch %d bl %d yy = %v, want 10", ch, bl, v.YY)
			}
			if v.XY != 0 || v.YX != 0 {
				t.Errorf("ch %d bl %d off-diagonal = (%v, %v), want zero", ch, bl, v.XY, v.YX)
			}
		}
	}
}

func TestVisibilitiesOffsetSourceHasUnitAmplitude(t *testing.T) {
	meta := testMeta(t, 3, 1)

	src := skymodel.Source{
		Name: "offset",
		Components: []skymodel.Component{{
			Direction: dataset.Direction{RA: 1.01, Dec: 0.52},
			Spectrum:  skymodel.Spectrum{Flux: skymodel.Stokes{I: 1}, RefFreq: 45e6},
		}},
	}

	d, err := Visibilities(meta, dataset.PolFull, 1, []skymodel.Source{src}, beam.Constant{})
	if err != nil {
		t.Fatalf("Visibilities() error = %v", err)
	}

	// The fringe rotates the phase but preserves the per-baseline
	// amplitude of a point source.
	for bl := 0; bl < meta.NBaselines(); bl++ {
		v := d.Matrix(0, bl, 0)
		amp := math.Hypot(real(v.XX), imag(v.XX))
		if math.Abs(amp-1) > 1e-9 {
			t.Errorf("bl %d |xx| = %v, want 1", bl, amp)
		}
	}

	// Autocorrelations (zero-length baselines) see zero phase.
	v := d.Matrix(0, 0, 0)
	if math.Abs(imag(v.XX)) > 1e-9 {
		t.Errorf("auto baseline phase = %v, want 0", imag(v.XX))
	}
}

func TestVisibilitiesComponentsSum(t *testing.T) {
	meta := testMeta(t, 2, 1)

	a := skymodel.Component{
		Direction: dataset.Direction{RA: 1.01, Dec: 0.5},
		Spectrum:  skymodel.Spectrum{Flux: skymodel.Stokes{I: 2}, RefFreq: 45e6},
	}
	b := skymodel.Component{
		Direction: dataset.Direction{RA: 0.99, Dec: 0.51},
		Spectrum:  skymodel.Spectrum{Flux: skymodel.Stokes{I: 3}, RefFreq: 45e6},
	}

	composite, err := Visibilities(meta, dataset.PolFull, 1,
		[]skymodel.Source{{Name: "d", Components: []skymodel.Component{a, b}}}, beam.Constant{})
	if err != nil {
		t.Fatalf("Visibilities() error = %v", err)
	}

	sepA, _ := Visibilities(meta, dataset.PolFull, 1,
		[]skymodel.Source{{Name: "a", Components: []skymodel.Component{a}}}, beam.Constant{})
	sepB, _ := Visibilities(meta, dataset.PolFull, 1,
		[]skymodel.Source{{Name: "b", Components: []skymodel.Component{b}}}, beam.Constant{})

	for bl := 0; bl < meta.NBaselines(); bl++ {
		want := sepA.Matrix(0, bl, 0).Add(sepB.Matrix(0, bl, 0))
		if got := composite.Matrix(0, bl, 0); !got.ApproxEqual(want, 1e-9) {
			t.Errorf("bl %d composite = %+v, want %+v", bl, got, want)
		}
	}
}

func TestVisibilitiesBelowHorizonSkipped(t *testing.T) {
	meta := testMeta(t, 2, 1)

	// Antipodal direction: below the horizon for any zenith-tracking beam.
	src := skymodel.Source{
		Name: "set",
		Components: []skymodel.Component{{
			Direction: dataset.Direction{RA: 1.0 + math.Pi, Dec: -0.5},
			Spectrum:  skymodel.Spectrum{Flux: skymodel.Stokes{I: 100}, RefFreq: 45e6},
		}},
	}

	d, err := Visibilities(meta, dataset.PolFull, 1, []skymodel.Source{src}, beam.Sine{Power: 1.6})
	if err != nil {
		t.Fatalf("Visibilities() error = %v", err)
	}
	if n := d.Norm(); n != 0 {
		t.Errorf("below-horizon prediction norm = %v, want 0", n)
	}
}

func TestVisibilitiesNeedsBeam(t *testing.T) {
	meta := testMeta(t, 2, 1)
	_, err := Visibilities(meta, dataset.PolFull, 1, nil, nil)
	if !errors.Is(err, errors.ErrCodeInvalidBeam) {
		t.Errorf("Visibilities(nil beam) error = %v, want %v", err, errors.ErrCodeInvalidBeam)
	}
}
