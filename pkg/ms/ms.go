// Package ms is the measurement-set boundary: it hands the core a flat
// complex array per named column plus a metadata bundle, and accepts the
// same shape back.
//
// The on-disk representation is a single JSON table file. Real casacore
// measurement sets live behind the same column vocabulary (DATA,
// MODEL_DATA, CORRECTED_DATA, FLAG, UVW, antenna positions, spectral
// window frequencies, field phase center); the core never sees anything
// but the flat array and the metadata.
//
// I/O failures here are fatal to the whole invocation and carry the
// offending path or column name.
package ms

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Hallflower20/ttcal/pkg/dataset"
	"github.com/Hallflower20/ttcal/pkg/errors"
)

// Standard column names.
const (
	ColData          = "DATA"
	ColModelData     = "MODEL_DATA"
	ColCorrectedData = "CORRECTED_DATA"
)

type cpx [2]float64

type tableAntenna struct {
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
}

// tableFile mirrors the JSON layout. Visibility columns are flat arrays
// in [polarization][channel][baseline][time] order; the optional flag
// column is [channel][baseline][time].
type tableFile struct {
	Antennas    []tableAntenna   `json:"antennas"`
	Baselines   [][2]int         `json:"baselines"`
	UVW         [][3]float64     `json:"uvw"`
	Frequencies []float64        `json:"frequencies"`
	PhaseRA     float64          `json:"phase_ra"`
	PhaseDec    float64          `json:"phase_dec"`
	NPol        int              `json:"npol"`
	NTime       int              `json:"ntime"`
	Columns     map[string][]cpx `json:"columns"`
	Flags       []bool           `json:"flags,omitempty"`
}

// Table is an open measurement-set table. Writes accumulate in memory
// until Flush.
type Table struct {
	path string
	file tableFile
}

// Open reads the table at path.
func Open(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "measurement set %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeUnreadableFile, err, "measurement set %s", path)
	}
	t := &Table{path: path}
	if err := json.Unmarshal(data, &t.file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableFile, err, "parse measurement set %s", path)
	}
	if t.file.Columns == nil {
		t.file.Columns = make(map[string][]cpx)
	}
	if t.file.NTime < 1 {
		t.file.NTime = 1
	}
	if t.file.NPol != 1 && t.file.NPol != 4 {
		return nil, errors.New(errors.ErrCodeUnreadableFile,
			"measurement set %s has %d polarizations, want 1 or 4", path, t.file.NPol)
	}
	return t, nil
}

// Create makes a new empty table at path over the given metadata.
func Create(path string, meta *dataset.Metadata, npol, ntime int) (*Table, error) {
	if npol != 1 && npol != 4 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "npol must be 1 or 4, got %d", npol)
	}
	if ntime < 1 {
		ntime = 1
	}
	t := &Table{
		path: path,
		file: tableFile{
			NPol:        npol,
			NTime:       ntime,
			PhaseRA:     meta.PhaseCenter().RA,
			PhaseDec:    meta.PhaseCenter().Dec,
			Frequencies: meta.Frequencies(),
			Columns:     make(map[string][]cpx),
		},
	}
	for i := range meta.NAntennas() {
		a := meta.Antenna(i)
		t.file.Antennas = append(t.file.Antennas, tableAntenna{Name: a.Name, Position: a.Position})
	}
	for i := range meta.NBaselines() {
		b := meta.Baseline(i)
		t.file.Baselines = append(t.file.Baselines, [2]int{b.Ant1, b.Ant2})
		t.file.UVW = append(t.file.UVW, meta.UVW(i))
	}
	if err := t.Flush(); err != nil {
		return nil, err
	}
	return t, nil
}

// Path returns the table's file path.
func (t *Table) Path() string { return t.path }

// NPol returns the physical polarization count (4 or 1).
func (t *Table) NPol() int { return t.file.NPol }

// NTime returns the number of time steps.
func (t *Table) NTime() int { return t.file.NTime }

// columnLen is the expected flat length for a visibility column.
func (t *Table) columnLen() int {
	return t.file.NPol * len(t.file.Frequencies) * len(t.file.Baselines) * t.file.NTime
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.file.Columns[name]
	return ok
}

// ReadColumn returns the named visibility column as a flat complex array.
// Entries covered by the flag column are zeroed, which the pack transform
// reads as elided baselines.
func (t *Table) ReadColumn(name string) ([]complex128, error) {
	if err := errors.ValidateColumnName(name); err != nil {
		return nil, err
	}
	raw, ok := t.file.Columns[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeColumnNotFound, "measurement set %s has no column %s", t.path, name)
	}
	if len(raw) != t.columnLen() {
		return nil, errors.New(errors.ErrCodeShapeMismatch,
			"column %s has %d entries, table shape needs %d", name, len(raw), t.columnLen())
	}
	out := make([]complex128, len(raw))
	for i, c := range raw {
		out[i] = complex(c[0], c[1])
	}
	t.applyFlags(out)
	return out, nil
}

// applyFlags zeroes every polarization of each flagged (channel,
// baseline, time) cell.
func (t *Table) applyFlags(data []complex128) {
	if len(t.file.Flags) == 0 {
		return
	}
	cell := len(t.file.Frequencies) * len(t.file.Baselines) * t.file.NTime
	for i, flagged := range t.file.Flags {
		if !flagged || i >= cell {
			continue
		}
		for p := range t.file.NPol {
			data[p*cell+i] = 0
		}
	}
}

// WriteColumn stores data under the named column, creating it if absent.
// The write is buffered until Flush.
func (t *Table) WriteColumn(name string, data []complex128) error {
	if err := errors.ValidateColumnName(name); err != nil {
		return err
	}
	if len(data) != t.columnLen() {
		return errors.New(errors.ErrCodeShapeMismatch,
			"column %s write has %d entries, table shape needs %d", name, len(data), t.columnLen())
	}
	raw := make([]cpx, len(data))
	for i, z := range data {
		raw[i] = cpx{real(z), imag(z)}
	}
	t.file.Columns[name] = raw
	return nil
}

// SetFlags replaces the per-cell flag column. The mask is indexed
// [channel][baseline][time], matching the visibility layout with the
// polarization axis dropped.
func (t *Table) SetFlags(flags []bool) error {
	want := len(t.file.Frequencies) * len(t.file.Baselines) * t.file.NTime
	if len(flags) != want {
		return errors.New(errors.ErrCodeShapeMismatch, "flag column has %d entries, want %d", len(flags), want)
	}
	t.file.Flags = append([]bool(nil), flags...)
	return nil
}

// Metadata builds the immutable metadata bundle for this table, attaching
// the given beam reference (which may be nil).
func (t *Table) Metadata(beam dataset.BeamFunc) (*dataset.Metadata, error) {
	antennas := make([]dataset.Antenna, len(t.file.Antennas))
	for i, a := range t.file.Antennas {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("ant%d", i)
		}
		antennas[i] = dataset.Antenna{Name: name, Position: a.Position}
	}
	baselines := make([]dataset.Baseline, len(t.file.Baselines))
	for i, b := range t.file.Baselines {
		baselines[i] = dataset.Baseline{Ant1: b[0], Ant2: b[1]}
	}
	center := dataset.Direction{RA: t.file.PhaseRA, Dec: t.file.PhaseDec}
	meta, err := dataset.NewMetadata(antennas, baselines, t.file.UVW, t.file.Frequencies, center, beam)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableFile, err, "measurement set %s metadata", t.path)
	}
	return meta, nil
}

// Flush writes the table back to disk.
func (t *Table) Flush() error {
	f, err := os.Create(t.path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnwritableFile, err, "write measurement set %s", t.path)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	if err := enc.Encode(t.file); err != nil {
		return errors.Wrap(errors.ErrCodeUnwritableFile, err, "encode measurement set %s", t.path)
	}
	return nil
}
