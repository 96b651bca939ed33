package skymodel

import (
	"math"

	"github.com/Hallflower20/ttcal/pkg/jones"
)

// Stokes is a flux in the four Stokes parameters, in Jy.
type Stokes struct {
	I, Q, U, V float64
}

// HermitianFlux converts a Stokes flux into the Hermitian correlation
// matrix for linear feeds:
//
//	⎡ I+Q    U+iV ⎤
//	⎣ U−iV   I−Q  ⎦
//
// The result is exactly Hermitian by type.
func (s Stokes) HermitianFlux() jones.Hermitian {
	return jones.Hermitian{
		XX: s.I + s.Q,
		XY: complex(s.U, s.V),
		YY: s.I - s.Q,
	}
}

// StokesFromHermitian is the inverse of HermitianFlux.
func StokesFromHermitian(h jones.Hermitian) Stokes {
	return Stokes{
		I: (h.XX + h.YY) / 2,
		Q: (h.XX - h.YY) / 2,
		U: real(h.XY),
		V: imag(h.XY),
	}
}

// Spectrum is a power-law flux model. The Stokes flux at frequency ν is
// the reference flux scaled by
//
//	10^( Σ_k Index[k] · log10(ν/RefFreq)^(k+1) )
//
// so a single index entry is the familiar spectral index α with
// I(ν) = I₀·(ν/ν₀)^α, and further entries add curvature.
type Spectrum struct {
	Flux    Stokes  // flux at the reference frequency
	RefFreq float64 // reference frequency in Hz
	Index   []float64
}

// At evaluates the spectrum at frequency ν (Hz). All four Stokes
// parameters scale by the same spectral shape, preserving fractional
// polarization across frequency.
func (sp Spectrum) At(freq float64) Stokes {
	x := math.Log10(freq / sp.RefFreq)
	var exponent float64
	pow := 1.0
	for _, c := range sp.Index {
		pow *= x
		exponent += c * pow
	}
	scale := math.Pow(10, exponent)
	return Stokes{
		I: sp.Flux.I * scale,
		Q: sp.Flux.Q * scale,
		U: sp.Flux.U * scale,
		V: sp.Flux.V * scale,
	}
}
