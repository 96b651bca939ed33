// Package beam provides primary-beam models: the direction- and
// frequency-dependent response an antenna imposes on incoming signal.
//
// Models are selected by name: "constant", "sine" with an optional power
// suffix (e.g. "sine1.6"), or the empirical dipole model "memo178". All
// models evaluate to a Jones matrix at a frequency, azimuth, and
// elevation.
package beam

import (
	"math"
	"strconv"
	"strings"

	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/jones"
)

// Model evaluates a primary beam.
type Model interface {
	// Jones returns the beam response at the given frequency (Hz),
	// azimuth, and elevation (radians).
	Jones(freq, az, el float64) jones.Matrix
	// Name returns the name the model parses from.
	Name() string
}

// Parse selects a beam model by name. A numeric exponent may be appended
// to "sine" (default 1.6, the conventional dipole approximation).
func Parse(name string) (Model, error) {
	switch {
	case name == "constant":
		return Constant{}, nil
	case name == "memo178":
		return Memo178{}, nil
	case strings.HasPrefix(name, "sine"):
		power := 1.6
		if suffix := strings.TrimPrefix(name, "sine"); suffix != "" {
			p, err := strconv.ParseFloat(suffix, 64)
			if err != nil || p <= 0 {
				return nil, errors.New(errors.ErrCodeInvalidBeam, "bad sine beam exponent in %q", name)
			}
			power = p
		}
		return Sine{Power: power}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidBeam, "unknown beam model %q (want constant, sine[<power>], or memo178)", name)
}

// Constant is the unit beam: identity response everywhere.
type Constant struct{}

// Jones returns the identity matrix regardless of direction.
func (Constant) Jones(freq, az, el float64) jones.Matrix { return jones.Identity() }

// Name returns "constant".
func (Constant) Name() string { return "constant" }

// Sine attenuates by sin(elevation)^Power, the standard analytic stand-in
// for a zenith-pointing dipole.
type Sine struct {
	Power float64
}

// Jones returns amplitude·identity with amplitude = sin(el)^Power,
// clamped to zero below the horizon.
func (b Sine) Jones(freq, az, el float64) jones.Matrix {
	if el <= 0 {
		return jones.Zero()
	}
	amp := complex(math.Pow(math.Sin(el), b.Power), 0)
	return jones.Identity().Scale(amp)
}

// Name returns the parseable name including the exponent.
func (b Sine) Name() string {
	return "sine" + strconv.FormatFloat(b.Power, 'g', -1, 64)
}

// Memo178 is an empirical fit to the crossed-dipole response, polynomial
// in zenith angle with separate E-plane and H-plane profiles blended by
// azimuth. The fit is normalized to unit gain at zenith and falls to zero
// at the horizon.
type Memo178 struct{}

// E-plane and H-plane gain profiles as a function of zenith angle z.
// The H-plane is broader than the E-plane, as measured for inverted-V
// dipoles.
func memo178Eplane(z float64) float64 {
	c := math.Cos(z)
	return c * c * (1 - 0.42*z*z/(math.Pi*math.Pi/4))
}

func memo178Hplane(z float64) float64 {
	c := math.Cos(z)
	return c * (1 - 0.18*z*z/(math.Pi*math.Pi/4))
}

// Jones returns a diagonal response whose x and y gains mix the E- and
// H-plane profiles by the azimuth of the source relative to each dipole
// arm.
func (Memo178) Jones(freq, az, el float64) jones.Matrix {
	if el <= 0 {
		return jones.Zero()
	}
	z := math.Pi/2 - el
	e := memo178Eplane(z)
	h := memo178Hplane(z)
	sin2, cos2 := math.Sin(az)*math.Sin(az), math.Cos(az)*math.Cos(az)
	// The x dipole's E-plane lies along az=0, the y dipole's along az=90°.
	gx := math.Sqrt(e*e*cos2 + h*h*sin2)
	gy := math.Sqrt(e*e*sin2 + h*h*cos2)
	return jones.Matrix{XX: complex(gx, 0), YY: complex(gy, 0)}
}

// Name returns "memo178".
func (Memo178) Name() string { return "memo178" }
