package calibrate

import (
	"testing"

	"github.com/Hallflower20/ttcal/pkg/dataset"
	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/jones"
)

func TestCorruptApplyRoundTrip(t *testing.T) {
	meta := testMeta(t, 4, 2)
	orig := pointSourceModel(meta, dataset.PolFull)
	cal := testGains(meta, false)

	d := orig.Clone()
	if err := Corrupt(cal, d); err != nil {
		t.Fatalf("Corrupt() error = %v", err)
	}
	if err := Apply(cal, d); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	for ch := 0; ch < meta.NChannels(); ch++ {
		for bl := 0; bl < meta.NBaselines(); bl++ {
			want := orig.Matrix(ch, bl, 0)
			if got := d.Matrix(ch, bl, 0); !got.ApproxEqual(want, 1e-9) {
				t.Errorf("ch %d bl %d = %+v, want %+v", ch, bl, got, want)
			}
		}
	}
}

func TestCorruptChangesUnflaggedCells(t *testing.T) {
	meta := testMeta(t, 3, 1)
	d := pointSourceModel(meta, dataset.PolFull)
	cal := testGains(meta, false)

	before := d.Clone()
	if err := Corrupt(cal, d); err != nil {
		t.Fatalf("Corrupt() error = %v", err)
	}

	changed := false
	for bl := 0; bl < meta.NBaselines(); bl++ {
		if meta.Baseline(bl).IsAuto() {
			// Autocorrelations were left flagged and must stay untouched.
			if !d.Flagged(0, bl, 0) {
				t.Errorf("flagged auto baseline %d was written", bl)
			}
			continue
		}
		if !d.Matrix(0, bl, 0).ApproxEqual(before.Matrix(0, bl, 0), 1e-12) {
			changed = true
		}
	}
	if !changed {
		t.Error("Corrupt() with non-identity gains left the data unchanged")
	}
}

func TestApplyClearsFlaggedChannels(t *testing.T) {
	meta := testMeta(t, 3, 2)
	d := pointSourceModel(meta, dataset.PolFull)
	cal := NewCalibration(meta.NAntennas(), meta.Frequencies(), false)
	cal.SetFlagged(1, true)

	if err := Apply(cal, d); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	for bl := 0; bl < meta.NBaselines(); bl++ {
		if meta.Baseline(bl).IsAuto() {
			continue
		}
		if d.Flagged(0, bl, 0) {
			t.Errorf("channel 0 baseline %d cleared", bl)
		}
		if !d.Flagged(1, bl, 0) {
			t.Errorf("flagged channel 1 baseline %d not cleared", bl)
		}
	}
}

func TestCorruptKeepsFlaggedChannelData(t *testing.T) {
	// Corrupting with a non-converged solution is still well-defined, so
	// peeling can impose whatever gains were recorded. Only Apply clears.
	meta := testMeta(t, 3, 1)
	d := pointSourceModel(meta, dataset.PolFull)
	cal := NewCalibration(meta.NAntennas(), meta.Frequencies(), false)
	cal.SetFlagged(0, true)

	if err := Corrupt(cal, d); err != nil {
		t.Fatalf("Corrupt() error = %v", err)
	}
	for bl := 0; bl < meta.NBaselines(); bl++ {
		if meta.Baseline(bl).IsAuto() {
			continue
		}
		if d.Flagged(0, bl, 0) {
			t.Errorf("Corrupt() cleared baseline %d of a flagged channel", bl)
		}
	}
}

func TestApplyClearsSingularGains(t *testing.T) {
	meta := testMeta(t, 3, 1)
	d := pointSourceModel(meta, dataset.PolFull)
	cal := NewCalibration(meta.NAntennas(), meta.Frequencies(), false)
	// Antenna 0's gain is singular; every baseline touching it is lost,
	// the rest survive.
	cal.SetDiagGain(0, 0, jones.DiagZero())

	if err := Apply(cal, d); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	for bl := 0; bl < meta.NBaselines(); bl++ {
		base := meta.Baseline(bl)
		if base.IsAuto() {
			continue
		}
		touches := base.Ant1 == 0 || base.Ant2 == 0
		if touches && !d.Flagged(0, bl, 0) {
			t.Errorf("baseline %d touching the singular antenna not cleared", bl)
		}
		if !touches && d.Flagged(0, bl, 0) {
			t.Errorf("baseline %d cleared despite healthy gains", bl)
		}
	}
}

func TestApplyWidebandCalibration(t *testing.T) {
	// A single-channel (collapsed) calibration applies to every data
	// channel.
	meta := testMeta(t, 3, 4)
	orig := pointSourceModel(meta, dataset.PolFull)

	cal := NewCalibration(meta.NAntennas(), []float64{46e6}, false)
	for a := 0; a < cal.NAntennas(); a++ {
		cal.SetDiagGain(0, a, jones.Diagonal{XX: 2, YY: 2})
	}

	d := orig.Clone()
	if err := Corrupt(cal, d); err != nil {
		t.Fatalf("Corrupt() error = %v", err)
	}
	for ch := 0; ch < meta.NChannels(); ch++ {
		for bl := 0; bl < meta.NBaselines(); bl++ {
			if meta.Baseline(bl).IsAuto() {
				continue
			}
			want := orig.Matrix(ch, bl, 0).Scale(4)
			if got := d.Matrix(ch, bl, 0); !got.ApproxEqual(want, 1e-9) {
				t.Errorf("ch %d bl %d = %+v, want %+v", ch, bl, got, want)
			}
		}
	}
}

func TestApplyShapeMismatch(t *testing.T) {
	meta := testMeta(t, 3, 2)
	d := pointSourceModel(meta, dataset.PolFull)

	wrongAnt := NewCalibration(5, meta.Frequencies(), false)
	if err := Apply(wrongAnt, d); !errors.Is(err, errors.ErrCodeShapeMismatch) {
		t.Errorf("antenna mismatch error = %v", err)
	}

	wrongCh := NewCalibration(meta.NAntennas(), []float64{1e6, 2e6, 3e6}, false)
	if err := Apply(wrongCh, d); !errors.Is(err, errors.ErrCodeShapeMismatch) {
		t.Errorf("channel mismatch error = %v", err)
	}
}
