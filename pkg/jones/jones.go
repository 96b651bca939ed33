package jones

import (
	"math"
	"math/cmplx"
	"math/rand"

	"github.com/Hallflower20/ttcal/pkg/errors"
)

// Matrix is a general 2×2 complex matrix:
//
//	⎡ XX  XY ⎤
//	⎣ YX  YY ⎦
//
// It represents an antenna's polarized response or a general calibration
// term. Matrices form a ring under Add, Sub, and Mul, and are invertible
// whenever Det is nonzero.
type Matrix struct {
	XX, XY, YX, YY complex128
}

// Identity returns the 2×2 identity matrix.
func Identity() Matrix {
	return Matrix{XX: 1, YY: 1}
}

// Zero returns the 2×2 zero matrix.
func Zero() Matrix {
	return Matrix{}
}

// Rand returns a matrix whose elements are drawn from the unit normal
// distribution (independent real and imaginary parts). The generator is
// injected so callers control determinism.
func Rand(rng *rand.Rand) Matrix {
	return Matrix{
		XX: randComplex(rng),
		XY: randComplex(rng),
		YX: randComplex(rng),
		YY: randComplex(rng),
	}
}

func randComplex(rng *rand.Rand) complex128 {
	return complex(rng.NormFloat64(), rng.NormFloat64())
}

// Add returns a + b.
func (a Matrix) Add(b Matrix) Matrix {
	return Matrix{a.XX + b.XX, a.XY + b.XY, a.YX + b.YX, a.YY + b.YY}
}

// Sub returns a − b.
func (a Matrix) Sub(b Matrix) Matrix {
	return Matrix{a.XX - b.XX, a.XY - b.XY, a.YX - b.YX, a.YY - b.YY}
}

// Mul returns the matrix product a·b.
func (a Matrix) Mul(b Matrix) Matrix {
	return Matrix{
		XX: a.XX*b.XX + a.XY*b.YX,
		XY: a.XX*b.XY + a.XY*b.YY,
		YX: a.YX*b.XX + a.YY*b.YX,
		YY: a.YX*b.XY + a.YY*b.YY,
	}
}

// Scale returns s·a.
func (a Matrix) Scale(s complex128) Matrix {
	return Matrix{s * a.XX, s * a.XY, s * a.YX, s * a.YY}
}

// Det returns the determinant xx·yy − xy·yx.
func (a Matrix) Det() complex128 {
	return a.XX*a.YY - a.XY*a.YX
}

// Inv returns the inverse of a. It fails with ErrCodeSingularMatrix when
// the determinant is exactly zero. Callers must treat this as a
// per-element failure (skip or flag the element), never as fatal to the
// whole run.
func (a Matrix) Inv() (Matrix, error) {
	d := a.Det()
	if d == 0 {
		return Matrix{}, errors.New(errors.ErrCodeSingularMatrix, "jones matrix is singular")
	}
	return Matrix{
		XX: a.YY / d,
		XY: -a.XY / d,
		YX: -a.YX / d,
		YY: a.XX / d,
	}, nil
}

// Conj returns the element-wise complex conjugate.
func (a Matrix) Conj() Matrix {
	return Matrix{cmplx.Conj(a.XX), cmplx.Conj(a.XY), cmplx.Conj(a.YX), cmplx.Conj(a.YY)}
}

// Transpose returns the transpose of a.
func (a Matrix) Transpose() Matrix {
	return Matrix{a.XX, a.YX, a.XY, a.YY}
}

// Adjoint returns the conjugate transpose aᴴ.
func (a Matrix) Adjoint() Matrix {
	return Matrix{cmplx.Conj(a.XX), cmplx.Conj(a.YX), cmplx.Conj(a.XY), cmplx.Conj(a.YY)}
}

// Kron returns the 4×4 Kronecker product a ⊗ b in row-major order.
func (a Matrix) Kron(b Matrix) [4][4]complex128 {
	blocks := [2][2]complex128{{a.XX, a.XY}, {a.YX, a.YY}}
	elems := [2][2]complex128{{b.XX, b.XY}, {b.YX, b.YY}}
	var out [4][4]complex128
	for bi := range 2 {
		for bj := range 2 {
			for i := range 2 {
				for j := range 2 {
					out[2*bi+i][2*bj+j] = blocks[bi][bj] * elems[i][j]
				}
			}
		}
	}
	return out
}

// Norm returns the Frobenius norm of a.
func (a Matrix) Norm() float64 {
	return math.Sqrt(normSq(a.XX) + normSq(a.XY) + normSq(a.YX) + normSq(a.YY))
}

func normSq(z complex128) float64 {
	return real(z)*real(z) + imag(z)*imag(z)
}

// At returns the element at linear index i in 1..4, column-major:
// 1 → xx, 2 → yx, 3 → xy, 4 → yy. Indices outside 1..4 fail with
// ErrCodeIndexRange.
func (a Matrix) At(i int) (complex128, error) {
	switch i {
	case 1:
		return a.XX, nil
	case 2:
		return a.YX, nil
	case 3:
		return a.XY, nil
	case 4:
		return a.YY, nil
	}
	return 0, errors.New(errors.ErrCodeIndexRange, "jones matrix index %d outside 1..4", i)
}

// IsZero reports whether every element of a is exactly zero.
func (a Matrix) IsZero() bool {
	return a == Matrix{}
}

// ApproxEqual reports whether a and b agree element-wise within tol.
func (a Matrix) ApproxEqual(b Matrix, tol float64) bool {
	return a.Sub(b).Norm() <= tol
}

// Diag returns the diagonal projection of a, discarding the off-diagonal
// elements. This direction of conversion is lossy.
func (a Matrix) Diag() Diagonal {
	return Diagonal{XX: a.XX, YY: a.YY}
}
