package calibrate

import (
	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/jones"
)

// Options carries the numeric knobs and mode switches shared by every
// calibration entry point. The four peeling variants are expressed here
// as the two independent booleans rather than separate code paths.
type Options struct {
	MaxIter   int     // iteration budget per channel solve
	Tolerance float64 // relative-change stopping threshold
	MinUVW    float64 // exclude baselines shorter than this, in wavelengths
	FullPol   bool    // solve general Jones matrices instead of diagonal gains
	Collapse  bool    // treat all channels as one wideband solve
}

// Default knob values, matching the CLI defaults.
const (
	DefaultMaxIter   = 20
	DefaultTolerance = 1e-3
)

// WithDefaults fills unset numeric knobs with the defaults.
func (o Options) WithDefaults() Options {
	if o.MaxIter == 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	return o
}

// Validate rejects knob values a solve cannot run with.
func (o Options) Validate() error {
	return errors.ValidateSolveKnobs(o.MaxIter, o.Tolerance, o.MinUVW)
}

// Calibration is one gain solution: a Jones (or diagonal) matrix per
// antenna per frequency channel, with a per-channel converged flag. A
// collapsed wideband solve has a single channel entry. For peeling there
// is one Calibration per sky direction, distinguished by Name.
type Calibration struct {
	Name    string // sky direction name, empty for direction-independent solves
	RunID   string // identifier of the solver run that produced this
	FullPol bool

	freqs   []float64          // representative frequency per solution channel
	full    [][]jones.Matrix   // [channel][antenna], when FullPol
	diag    [][]jones.Diagonal // [channel][antenna], otherwise
	flagged []bool             // per channel, true = not converged
}

// NewCalibration allocates an identity calibration for nant antennas over
// the given solution-channel frequencies.
func NewCalibration(nant int, freqs []float64, fullPol bool) *Calibration {
	c := &Calibration{
		FullPol: fullPol,
		freqs:   append([]float64(nil), freqs...),
		flagged: make([]bool, len(freqs)),
	}
	if fullPol {
		c.full = make([][]jones.Matrix, len(freqs))
		for ch := range c.full {
			c.full[ch] = make([]jones.Matrix, nant)
			for a := range c.full[ch] {
				c.full[ch][a] = jones.Identity()
			}
		}
	} else {
		c.diag = make([][]jones.Diagonal, len(freqs))
		for ch := range c.diag {
			c.diag[ch] = make([]jones.Diagonal, nant)
			for a := range c.diag[ch] {
				c.diag[ch][a] = jones.DiagIdentity()
			}
		}
	}
	return c
}

// NChannels returns the number of solution channels (1 for a collapsed
// wideband solve).
func (c *Calibration) NChannels() int { return len(c.freqs) }

// NAntennas returns the number of antennas.
func (c *Calibration) NAntennas() int {
	if c.FullPol {
		if len(c.full) == 0 {
			return 0
		}
		return len(c.full[0])
	}
	if len(c.diag) == 0 {
		return 0
	}
	return len(c.diag[0])
}

// Frequency returns the representative frequency of solution channel ch.
func (c *Calibration) Frequency(ch int) float64 { return c.freqs[ch] }

// Gain returns the gain of antenna ant in solution channel ch, promoted
// to the general shape.
func (c *Calibration) Gain(ch, ant int) jones.Matrix {
	if c.FullPol {
		return c.full[ch][ant]
	}
	return c.diag[ch][ant].Full()
}

// DiagGain returns the diagonal gain of antenna ant in channel ch. For a
// full-polarization calibration this drops the off-diagonal terms.
func (c *Calibration) DiagGain(ch, ant int) jones.Diagonal {
	if c.FullPol {
		return c.full[ch][ant].Diag()
	}
	return c.diag[ch][ant]
}

// SetGain stores g for antenna ant in channel ch, demoting to the
// diagonal shape when the calibration is not full-polarization.
func (c *Calibration) SetGain(ch, ant int, g jones.Matrix) {
	if c.FullPol {
		c.full[ch][ant] = g
		return
	}
	c.diag[ch][ant] = g.Diag()
}

// SetDiagGain stores a diagonal gain for antenna ant in channel ch.
func (c *Calibration) SetDiagGain(ch, ant int, g jones.Diagonal) {
	if c.FullPol {
		c.full[ch][ant] = g.Full()
		return
	}
	c.diag[ch][ant] = g
}

// Flagged reports whether solution channel ch failed to converge.
func (c *Calibration) Flagged(ch int) bool { return c.flagged[ch] }

// SetFlagged marks solution channel ch as converged or not.
func (c *Calibration) SetFlagged(ch int, v bool) { c.flagged[ch] = v }

// NFlagged returns the number of non-converged solution channels.
func (c *Calibration) NFlagged() int {
	n := 0
	for _, f := range c.flagged {
		if f {
			n++
		}
	}
	return n
}

// solutionChannel maps a data channel index to the calibration channel
// holding its gains: identity per-channel, constant 0 when collapsed.
func (c *Calibration) solutionChannel(dataCh int) int {
	if len(c.freqs) == 1 {
		return 0
	}
	return dataCh
}
