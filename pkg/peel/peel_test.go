package peel

import (
	"context"
	"math"
	"testing"

	"github.com/Hallflower20/ttcal/pkg/beam"
	"github.com/Hallflower20/ttcal/pkg/calibrate"
	"github.com/Hallflower20/ttcal/pkg/dataset"
	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/jones"
	"github.com/Hallflower20/ttcal/pkg/predict"
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
			uvw = append(uvw, [3]float64{float64(j-i) * 100, float64(j-i) * 30, 0})
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

func pointSource(name string, ra, dec, flux float64) skymodel.Source {
	return skymodel.Source{
		Name: name,
		Components: []skymodel.Component{{
			Direction: dataset.Direction{RA: ra, Dec: dec},
			Spectrum:  skymodel.Spectrum{Flux: skymodel.Stokes{I: flux}, RefFreq: 45e6},
		}},
	}
}

func TestRunSingleDirectionExact(t *testing.T) {
	meta := testMeta(t, 5, 2)
	src := pointSource("center", 1.0, 0.5, 10)

	data, err := predict.Visibilities(meta, dataset.PolFull, 1, []skymodel.Source{src}, beam.Constant{})
	if err != nil {
		t.Fatalf("Visibilities() error = %v", err)
	}

	cals, err := Run(context.Background(), data, []skymodel.Source{src}, beam.Constant{},
		Options{PeelIter: 2}, Progress{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(cals) != 1 {
		t.Fatalf("Run() returned %d calibrations, want 1", len(cals))
	}

	cal := cals[0]
	if cal.Name != "center" {
		t.Errorf("calibration name = %q, want %q", cal.Name, "center")
	}
	for ch := 0; ch < cal.NChannels(); ch++ {
		if cal.Flagged(ch) {
			t.Errorf("channel %d flagged on consistent data", ch)
		}
		for a := 0; a < cal.NAntennas(); a++ {
			if got := cal.DiagGain(ch, a); !got.ApproxEqual(jones.DiagIdentity(), 1e-9) {
				t.Errorf("gain (%d, %d) = %+v, want identity", ch, a, got)
			}
		}
	}

	// The source's own prediction subtracts itself.
	if n := data.Norm(); n > 1e-6 {
		t.Errorf("residual norm = %v, want ~0", n)
	}
}

func TestRunTwoDirections(t *testing.T) {
	meta := testMeta(t, 7, 1)
	sources := []skymodel.Source{
		pointSource("bright", 1.05, 0.55, 10),
		pointSource("faint", 0.93, 0.44, 5),
	}

	data, err := predict.Visibilities(meta, dataset.PolFull, 1, sources, beam.Constant{})
	if err != nil {
		t.Fatalf("Visibilities() error = %v", err)
	}
	before := data.Norm()

	cals, err := Run(context.Background(), data, sources, beam.Constant{},
		Options{PeelIter: 30, Options: calibrate.Options{MaxIter: 100, Tolerance: 1e-14}}, Progress{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(cals) != 2 {
		t.Fatalf("Run() returned %d calibrations, want 2", len(cals))
	}
	if cals[0].Name != "bright" || cals[1].Name != "faint" {
		t.Errorf("calibration names = %q, %q", cals[0].Name, cals[1].Name)
	}

	// Repeated passes converge geometrically: the residual ends up below
	// sqrt(machine epsilon) relative to the original signal.
	limit := math.Sqrt(2.220446049250313e-16) * before
	if after := data.Norm(); after > limit {
		t.Errorf("residual norm = %v, want <= %v", after, limit)
	}
}

func TestRunPreservesFlags(t *testing.T) {
	meta := testMeta(t, 5, 1)
	src := pointSource("center", 1.0, 0.5, 10)

	data, err := predict.Visibilities(meta, dataset.PolFull, 1, []skymodel.Source{src}, beam.Constant{})
	if err != nil {
		t.Fatalf("Visibilities() error = %v", err)
	}

	// Flag one cross baseline before peeling.
	var flaggedBl int
	for bl := 0; bl < meta.NBaselines(); bl++ {
		if !meta.Baseline(bl).IsAuto() {
			flaggedBl = bl
			break
		}
	}
	data.Clear(0, flaggedBl, 0)

	if _, err := Run(context.Background(), data, []skymodel.Source{src}, beam.Constant{},
		Options{PeelIter: 2}, Progress{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// The add-back must not have resurrected the flagged cell.
	if !data.Flagged(0, flaggedBl, 0) {
		t.Errorf("flagged baseline %d was written during peeling", flaggedBl)
	}
}

func TestRunProgressCallback(t *testing.T) {
	meta := testMeta(t, 5, 1)
	sources := []skymodel.Source{
		pointSource("a", 1.02, 0.52, 10),
		pointSource("b", 0.98, 0.48, 8),
	}

	data, err := predict.Visibilities(meta, dataset.PolFull, 1, sources, beam.Constant{})
	if err != nil {
		t.Fatalf("Visibilities() error = %v", err)
	}

	type call struct {
		pass int
		name string
	}
	var calls []call
	prog := Progress{Direction: func(pass int, name string) {
		calls = append(calls, call{pass, name})
	}}

	if _, err := Run(context.Background(), data, sources, beam.Constant{},
		Options{PeelIter: 2}, prog); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []call{{0, "a"}, {0, "b"}, {1, "a"}, {1, "b"}}
	if len(calls) != len(want) {
		t.Fatalf("progress called %d times, want %d", len(calls), len(want))
	}
	for i, c := range calls {
		if c != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, c, want[i])
		}
	}
}

func TestRunValidation(t *testing.T) {
	meta := testMeta(t, 3, 1)
	data := dataset.New(meta, dataset.PolFull, 1)
	src := pointSource("x", 1.0, 0.5, 1)

	_, err := Run(context.Background(), data, nil, beam.Constant{}, Options{}, Progress{})
	if !errors.Is(err, errors.ErrCodeInvalidCatalog) {
		t.Errorf("no sources error = %v, want %v", err, errors.ErrCodeInvalidCatalog)
	}

	_, err = Run(context.Background(), data, []skymodel.Source{src}, beam.Constant{},
		Options{PeelIter: -1}, Progress{})
	if !errors.Is(err, errors.ErrCodeInvalidOptions) {
		t.Errorf("bad peeliter error = %v, want %v", err, errors.ErrCodeInvalidOptions)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	meta := testMeta(t, 3, 1)
	data := dataset.New(meta, dataset.PolFull, 1)
	src := pointSource("x", 1.02, 0.52, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Run(ctx, data, []skymodel.Source{src}, beam.Constant{}, Options{}, Progress{}); err == nil {
		t.Error("Run() with cancelled context expected error")
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{}.WithDefaults()
	if o.PeelIter != DefaultPeelIter {
		t.Errorf("PeelIter = %d, want %d", o.PeelIter, DefaultPeelIter)
	}
	if o.MaxIter != calibrate.DefaultMaxIter {
		t.Errorf("MaxIter = %d, want %d", o.MaxIter, calibrate.DefaultMaxIter)
	}

	o = Options{PeelIter: 7}.WithDefaults()
	if o.PeelIter != 7 {
		t.Errorf("explicit PeelIter overwritten: %d", o.PeelIter)
	}
}
