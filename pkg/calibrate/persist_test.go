package calibrate

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/jones"
)

func TestPersistRoundTrip(t *testing.T) {
	meta := testMeta(t, 4, 3)

	diag := testGains(meta, false)
	diag.Name = "Cyg A"
	diag.RunID = "run-1"
	diag.SetFlagged(2, true)

	full := NewCalibration(meta.NAntennas(), meta.Frequencies(), true)
	full.RunID = "run-2"
	full.SetGain(0, 1, jones.Matrix{XX: 1 + 1i, XY: 0.1, YX: -0.2i, YY: 0.9})

	var buf bytes.Buffer
	if err := WriteJSON([]*Calibration{diag, full}, &buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	back, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if len(back) != 2 {
		t.Fatalf("ReadJSON() returned %d calibrations, want 2", len(back))
	}

	got := back[0]
	if got.Name != "Cyg A" || got.RunID != "run-1" || got.FullPol {
		t.Errorf("header = %q/%q/full=%v", got.Name, got.RunID, got.FullPol)
	}
	if got.NChannels() != 3 || got.NAntennas() != 4 {
		t.Fatalf("shape = %d channels × %d antennas", got.NChannels(), got.NAntennas())
	}
	if !got.Flagged(2) || got.Flagged(0) {
		t.Errorf("flags did not survive: %v %v", got.Flagged(0), got.Flagged(2))
	}
	for ch := 0; ch < 3; ch++ {
		if got.Frequency(ch) != diag.Frequency(ch) {
			t.Errorf("channel %d frequency = %v, want %v", ch, got.Frequency(ch), diag.Frequency(ch))
		}
		for a := 0; a < 4; a++ {
			if got.DiagGain(ch, a) != diag.DiagGain(ch, a) {
				t.Errorf("gain (%d, %d) = %+v, want %+v", ch, a, got.DiagGain(ch, a), diag.DiagGain(ch, a))
			}
		}
	}

	gotFull := back[1]
	if !gotFull.FullPol {
		t.Fatal("full-pol flag lost")
	}
	if g := gotFull.Gain(0, 1); g != (jones.Matrix{XX: 1 + 1i, XY: 0.1, YX: -0.2i, YY: 0.9}) {
		t.Errorf("full gain = %+v", g)
	}
	if g := gotFull.Gain(1, 0); g != jones.Identity() {
		t.Errorf("untouched gain = %+v, want identity", g)
	}
}

func TestPersistFileRoundTrip(t *testing.T) {
	meta := testMeta(t, 3, 2)
	cal := testGains(meta, false)
	path := filepath.Join(t.TempDir(), "calibration.json")

	if err := WriteFile(path, []*Calibration{cal}); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(back) != 1 || back[0].NAntennas() != 3 {
		t.Fatalf("ReadFile() = %d calibrations", len(back))
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("ReadFile() error = %v, want %v", err, errors.ErrCodeFileNotFound)
	}
}

func TestReadJSONRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code errors.Code
	}{
		{
			name: "not json",
			in:   "{",
			code: errors.ErrCodeUnreadableFile,
		},
		{
			name: "flag count mismatch",
			in: `{"calibrations":[{"run_id":"x","full_pol":false,
				"frequencies":[1e6,2e6],"flagged":[false],
				"gains":[[[[1,0],[1,0]]],[[[1,0],[1,0]]]]}]}`,
			code: errors.ErrCodeShapeMismatch,
		},
		{
			name: "wrong element arity",
			in: `{"calibrations":[{"run_id":"x","full_pol":true,
				"frequencies":[1e6],"flagged":[false],
				"gains":[[[[1,0],[1,0]]]]}]}`,
			code: errors.ErrCodeShapeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.in))
			if !errors.Is(err, tt.code) {
				t.Errorf("ReadJSON() error = %v, want code %v", err, tt.code)
			}
		})
	}
}
