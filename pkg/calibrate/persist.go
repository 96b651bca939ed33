package calibrate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/jones"
)

// The JSON calibration file carries one entry per solved direction (a
// single unnamed entry for direction-independent solves). Complex numbers
// are stored as [real, imaginary] pairs.

type calFile struct {
	Calibrations []calEntry `json:"calibrations"`
}

type calEntry struct {
	Name        string    `json:"name,omitempty"`
	RunID       string    `json:"run_id"`
	FullPol     bool      `json:"full_pol"`
	Frequencies []float64 `json:"frequencies"`
	Flagged     []bool    `json:"flagged"`
	Gains       [][][]cpx `json:"gains"` // [channel][antenna][elements]
}

type cpx [2]float64

func toCpx(z complex128) cpx { return cpx{real(z), imag(z)} }

func (c cpx) complex() complex128 { return complex(c[0], c[1]) }

// WriteJSON encodes the calibrations to w. The format round-trips through
// [ReadJSON].
func WriteJSON(cals []*Calibration, w io.Writer) error {
	out := calFile{Calibrations: make([]calEntry, len(cals))}
	for i, cal := range cals {
		entry := calEntry{
			Name:        cal.Name,
			RunID:       cal.RunID,
			FullPol:     cal.FullPol,
			Frequencies: cal.freqs,
			Flagged:     cal.flagged,
			Gains:       make([][][]cpx, cal.NChannels()),
		}
		for ch := range cal.NChannels() {
			entry.Gains[ch] = make([][]cpx, cal.NAntennas())
			for a := range cal.NAntennas() {
				if cal.FullPol {
					g := cal.full[ch][a]
					entry.Gains[ch][a] = []cpx{toCpx(g.XX), toCpx(g.XY), toCpx(g.YX), toCpx(g.YY)}
				} else {
					g := cal.diag[ch][a]
					entry.Gains[ch][a] = []cpx{toCpx(g.XX), toCpx(g.YY)}
				}
			}
		}
		out.Calibrations[i] = entry
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteFile writes the calibrations to a JSON file at path.
func WriteFile(path string, cals []*Calibration) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnwritableFile, err, "create %s", path)
	}
	defer f.Close()
	return WriteJSON(cals, f)
}

// ReadJSON decodes calibrations from r.
func ReadJSON(r io.Reader) ([]*Calibration, error) {
	var in calFile
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableFile, err, "decode calibration file")
	}
	cals := make([]*Calibration, len(in.Calibrations))
	for i, entry := range in.Calibrations {
		cal, err := entry.toCalibration()
		if err != nil {
			return nil, err
		}
		cals[i] = cal
	}
	return cals, nil
}

// ReadFile reads calibrations from the JSON file at path.
func ReadFile(path string) ([]*Calibration, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "calibration file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeUnreadableFile, err, "calibration file %s", path)
	}
	defer f.Close()
	return ReadJSON(f)
}

func (entry calEntry) toCalibration() (*Calibration, error) {
	nchan := len(entry.Frequencies)
	if len(entry.Gains) != nchan || len(entry.Flagged) != nchan {
		return nil, errors.New(errors.ErrCodeShapeMismatch,
			"calibration %q has %d frequencies but %d gain channels and %d flags",
			entry.Name, nchan, len(entry.Gains), len(entry.Flagged))
	}
	nant := 0
	if nchan > 0 {
		nant = len(entry.Gains[0])
	}
	cal := NewCalibration(nant, entry.Frequencies, entry.FullPol)
	cal.Name = entry.Name
	cal.RunID = entry.RunID
	copy(cal.flagged, entry.Flagged)

	want := 2
	if entry.FullPol {
		want = 4
	}
	for ch := range nchan {
		if len(entry.Gains[ch]) != nant {
			return nil, errors.New(errors.ErrCodeShapeMismatch,
				"calibration %q channel %d has %d antennas, want %d", entry.Name, ch, len(entry.Gains[ch]), nant)
		}
		for a := range nant {
			g := entry.Gains[ch][a]
			if len(g) != want {
				return nil, errors.New(errors.ErrCodeShapeMismatch,
					"calibration %q channel %d antenna %d has %d gain elements, want %d", entry.Name, ch, a, len(g), want)
			}
			if entry.FullPol {
				cal.full[ch][a] = jones.Matrix{
					XX: g[0].complex(), XY: g[1].complex(),
					YX: g[2].complex(), YY: g[3].complex(),
				}
			} else {
				cal.diag[ch][a] = jones.Diagonal{XX: g[0].complex(), YY: g[1].complex()}
			}
		}
	}
	return cal, nil
}
