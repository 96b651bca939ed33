package dataset

import (
	"math"

	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/jones"
)

// SpeedOfLight is the vacuum speed of light in m/s, used to convert
// baseline lengths from meters to wavelengths.
const SpeedOfLight = 299792458.0

// Antenna is one element of the array, with its position in a Cartesian
// frame (meters).
type Antenna struct {
	Name     string
	Position [3]float64
}

// Baseline is an unordered pair of antenna indices. Self-baselines
// (Ant1 == Ant2) are valid and carry autocorrelations. Constructors
// normalize so Ant1 <= Ant2.
type Baseline struct {
	Ant1, Ant2 int
}

// IsAuto reports whether the baseline is an antenna's correlation with
// itself.
func (b Baseline) IsAuto() bool { return b.Ant1 == b.Ant2 }

// Direction is a J2000 sky direction in radians.
type Direction struct {
	RA, Dec float64
}

// BeamFunc evaluates the primary beam response at a frequency (Hz),
// azimuth, and elevation (radians). The concrete models live in the beam
// package; Metadata only holds the opaque function.
type BeamFunc func(freq, az, el float64) jones.Matrix

// Metadata carries the per-observation description of the array: the
// ordered antenna list, the ordered baseline list (including
// self-baselines), the channel frequencies, per-baseline UVW coordinates
// in meters, the phase center, and the beam reference. It is immutable
// once constructed; every Dataset derived from one measurement set shares
// the same Metadata value.
type Metadata struct {
	antennas    []Antenna
	baselines   []Baseline
	uvw         [][3]float64
	frequencies []float64
	phaseCenter Direction
	beam        BeamFunc
}

// NewMetadata validates and assembles observation metadata. The uvw slice
// is per-baseline in meters and must match the baseline list in length;
// frequencies are per-channel in Hz and must be positive.
func NewMetadata(antennas []Antenna, baselines []Baseline, uvw [][3]float64, frequencies []float64, phaseCenter Direction, beam BeamFunc) (*Metadata, error) {
	if len(antennas) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "metadata needs at least one antenna")
	}
	if len(baselines) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "metadata needs at least one baseline")
	}
	if len(uvw) != len(baselines) {
		return nil, errors.New(errors.ErrCodeShapeMismatch, "got %d uvw rows for %d baselines", len(uvw), len(baselines))
	}
	if len(frequencies) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "metadata needs at least one frequency channel")
	}
	for i, f := range frequencies {
		if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "channel %d frequency must be positive and finite, got %v", i, f)
		}
	}
	bls := make([]Baseline, len(baselines))
	for i, bl := range baselines {
		if bl.Ant1 < 0 || bl.Ant1 >= len(antennas) || bl.Ant2 < 0 || bl.Ant2 >= len(antennas) {
			return nil, errors.New(errors.ErrCodeIndexRange, "baseline %d references antenna outside 0..%d", i, len(antennas)-1)
		}
		if bl.Ant1 > bl.Ant2 {
			bl.Ant1, bl.Ant2 = bl.Ant2, bl.Ant1
		}
		bls[i] = bl
	}

	m := &Metadata{
		antennas:    append([]Antenna(nil), antennas...),
		baselines:   bls,
		uvw:         append([][3]float64(nil), uvw...),
		frequencies: append([]float64(nil), frequencies...),
		phaseCenter: phaseCenter,
		beam:        beam,
	}
	return m, nil
}

// NAntennas returns the number of antennas.
func (m *Metadata) NAntennas() int { return len(m.antennas) }

// NBaselines returns the number of baselines.
func (m *Metadata) NBaselines() int { return len(m.baselines) }

// NChannels returns the number of frequency channels.
func (m *Metadata) NChannels() int { return len(m.frequencies) }

// Antenna returns the antenna at index i.
func (m *Metadata) Antenna(i int) Antenna { return m.antennas[i] }

// Baseline returns the baseline at index i.
func (m *Metadata) Baseline(i int) Baseline { return m.baselines[i] }

// UVW returns the (u, v, w) coordinates of baseline i in meters.
func (m *Metadata) UVW(i int) [3]float64 { return m.uvw[i] }

// Frequency returns the frequency of channel i in Hz.
func (m *Metadata) Frequency(i int) float64 { return m.frequencies[i] }

// Frequencies returns a copy of the channel frequency list.
func (m *Metadata) Frequencies() []float64 {
	return append([]float64(nil), m.frequencies...)
}

// PhaseCenter returns the phase-center direction.
func (m *Metadata) PhaseCenter() Direction { return m.phaseCenter }

// Beam returns the beam reference, which may be nil when no beam model
// was attached.
func (m *Metadata) Beam() BeamFunc { return m.beam }

// BaselineLength returns the length of baseline i in wavelengths at the
// frequency of channel ch. Used for minuvw filtering.
func (m *Metadata) BaselineLength(i, ch int) float64 {
	u, v, w := m.uvw[i][0], m.uvw[i][1], m.uvw[i][2]
	meters := math.Sqrt(u*u + v*v + w*w)
	return meters * m.frequencies[ch] / SpeedOfLight
}
