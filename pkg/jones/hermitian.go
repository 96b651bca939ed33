package jones

import (
	"math"
	"math/cmplx"
	"math/rand"
)

// Hermitian is a self-adjoint 2×2 matrix:
//
//	⎡ XX        XY ⎤
//	⎣ conj(XY)  YY ⎦
//
// with XX and YY stored as real numbers and the yx element implied.
// It represents source or visibility flux in Stokes-equivalent form.
// Because the redundant conjugate element is never stored, arithmetic
// between Hermitian values cannot break self-adjointness, no matter how
// the floating-point rounding falls.
type Hermitian struct {
	XX float64
	XY complex128
	YY float64
}

// HermIdentity returns the identity embedded in the Hermitian shape.
func HermIdentity() Hermitian {
	return Hermitian{XX: 1, YY: 1}
}

// HermZero returns the zero Hermitian matrix.
func HermZero() Hermitian {
	return Hermitian{}
}

// HermRand returns a random Hermitian matrix with unit-normal elements.
func HermRand(rng *rand.Rand) Hermitian {
	return Hermitian{XX: rng.NormFloat64(), XY: randComplex(rng), YY: rng.NormFloat64()}
}

// Add returns a + b, which stays Hermitian.
func (a Hermitian) Add(b Hermitian) Hermitian {
	return Hermitian{a.XX + b.XX, a.XY + b.XY, a.YY + b.YY}
}

// Sub returns a − b, which stays Hermitian.
func (a Hermitian) Sub(b Hermitian) Hermitian {
	return Hermitian{a.XX - b.XX, a.XY - b.XY, a.YY - b.YY}
}

// Mul returns the product a·b promoted to the general shape: the product
// of two Hermitian matrices is not Hermitian in general.
func (a Hermitian) Mul(b Hermitian) Matrix {
	return a.Full().Mul(b.Full())
}

// MulMatrix returns the product a·b with a general right factor.
func (a Hermitian) MulMatrix(b Matrix) Matrix {
	return a.Full().Mul(b)
}

// ScaleReal returns s·a for a real scalar, which stays Hermitian.
func (a Hermitian) ScaleReal(s float64) Hermitian {
	return Hermitian{s * a.XX, complex(s, 0) * a.XY, s * a.YY}
}

// Det returns the determinant xx·yy − |xy|², which is exactly real.
func (a Hermitian) Det() float64 {
	return a.XX*a.YY - normSq(a.XY)
}

// Trace returns xx + yy.
func (a Hermitian) Trace() float64 {
	return a.XX + a.YY
}

// Norm returns the Frobenius norm of a, counting the implied yx element.
func (a Hermitian) Norm() float64 {
	return math.Sqrt(a.XX*a.XX + 2*normSq(a.XY) + a.YY*a.YY)
}

// IsZero reports whether every element of a is exactly zero.
func (a Hermitian) IsZero() bool {
	return a == Hermitian{}
}

// Full promotes a to the general shape with yx = conj(xy).
func (a Hermitian) Full() Matrix {
	return Matrix{
		XX: complex(a.XX, 0),
		XY: a.XY,
		YX: cmplx.Conj(a.XY),
		YY: complex(a.YY, 0),
	}
}

// MakeHermitian forces a general matrix into the Hermitian shape by
// keeping the real parts of the diagonal and averaging xy with conj(yx).
// This is an explicit, documented approximation: for inputs that are not
// already Hermitian, the discarded imaginary diagonal parts and half the
// off-diagonal asymmetry are lost.
func MakeHermitian(m Matrix) Hermitian {
	return Hermitian{
		XX: real(m.XX),
		XY: (m.XY + cmplx.Conj(m.YX)) / 2,
		YY: real(m.YY),
	}
}

// Congruence computes the congruence transform j·k·jᴴ of a Hermitian k by
// a general j, returning a Hermitian result. The diagonal entries are
// accumulated as real-valued sums, never by taking the real part of a
// complex product after the fact, so the result is exactly Hermitian by
// construction. This is the operation that carries flux terms through
// beam and gain application without losing self-adjointness.
func Congruence(j Matrix, k Hermitian) Hermitian {
	// Writing k = [[a, b], [conj(b), c]] with real a, c:
	//   (j·k·jᴴ)₁₁ = a|j₁₁|² + c|j₁₂|² + 2·Re(j₁₁·b·conj(j₁₂))
	//   (j·k·jᴴ)₂₂ = a|j₂₁|² + c|j₂₂|² + 2·Re(j₂₁·b·conj(j₂₂))
	//   (j·k·jᴴ)₁₂ = a·j₁₁·conj(j₂₁) + conj(b)·j₁₂·conj(j₂₁) +
	//                b·j₁₁·conj(j₂₂) + c·j₁₂·conj(j₂₂)
	a, b, c := k.XX, k.XY, k.YY
	xx := a*normSq(j.XX) + c*normSq(j.XY) + 2*real(j.XX*b*cmplx.Conj(j.XY))
	yy := a*normSq(j.YX) + c*normSq(j.YY) + 2*real(j.YX*b*cmplx.Conj(j.YY))
	xy := complex(a, 0)*j.XX*cmplx.Conj(j.YX) +
		cmplx.Conj(b)*j.XY*cmplx.Conj(j.YX) +
		b*j.XX*cmplx.Conj(j.YY) +
		complex(c, 0)*j.XY*cmplx.Conj(j.YY)
	return Hermitian{XX: xx, XY: xy, YY: yy}
}
