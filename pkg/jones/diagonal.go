package jones

import (
	"math"
	"math/cmplx"
	"math/rand"

	"github.com/Hallflower20/ttcal/pkg/errors"
)

// Diagonal is a 2×2 complex matrix with implicitly-zero off-diagonal
// elements:
//
//	⎡ XX   0 ⎤
//	⎣  0  YY ⎦
//
// It represents a diagonal-only antenna gain. Diagonal is closed under
// Add, Sub, and Mul with other Diagonal values, and promotes to a general
// [Matrix] when multiplied against one.
type Diagonal struct {
	XX, YY complex128
}

// DiagIdentity returns the identity embedded in the diagonal shape.
func DiagIdentity() Diagonal {
	return Diagonal{XX: 1, YY: 1}
}

// DiagZero returns the zero diagonal matrix.
func DiagZero() Diagonal {
	return Diagonal{}
}

// DiagRand returns a diagonal matrix with unit-normal random elements.
func DiagRand(rng *rand.Rand) Diagonal {
	return Diagonal{XX: randComplex(rng), YY: randComplex(rng)}
}

// Add returns a + b.
func (a Diagonal) Add(b Diagonal) Diagonal {
	return Diagonal{a.XX + b.XX, a.YY + b.YY}
}

// Sub returns a − b.
func (a Diagonal) Sub(b Diagonal) Diagonal {
	return Diagonal{a.XX - b.XX, a.YY - b.YY}
}

// Mul returns the product a·b, which stays diagonal.
func (a Diagonal) Mul(b Diagonal) Diagonal {
	return Diagonal{a.XX * b.XX, a.YY * b.YY}
}

// MulMatrix returns the product a·b, promoted to the general shape.
func (a Diagonal) MulMatrix(b Matrix) Matrix {
	return Matrix{
		XX: a.XX * b.XX,
		XY: a.XX * b.XY,
		YX: a.YY * b.YX,
		YY: a.YY * b.YY,
	}
}

// Scale returns s·a.
func (a Diagonal) Scale(s complex128) Diagonal {
	return Diagonal{s * a.XX, s * a.YY}
}

// Det returns the determinant xx·yy.
func (a Diagonal) Det() complex128 {
	return a.XX * a.YY
}

// Inv returns the inverse of a, failing with ErrCodeSingularMatrix when
// either diagonal element is exactly zero.
func (a Diagonal) Inv() (Diagonal, error) {
	if a.XX == 0 || a.YY == 0 {
		return Diagonal{}, errors.New(errors.ErrCodeSingularMatrix, "diagonal jones matrix is singular")
	}
	return Diagonal{XX: 1 / a.XX, YY: 1 / a.YY}, nil
}

// Conj returns the element-wise complex conjugate.
func (a Diagonal) Conj() Diagonal {
	return Diagonal{cmplx.Conj(a.XX), cmplx.Conj(a.YY)}
}

// Adjoint returns the conjugate transpose, which for a diagonal matrix is
// the same as Conj.
func (a Diagonal) Adjoint() Diagonal {
	return a.Conj()
}

// Norm returns the Frobenius norm of a.
func (a Diagonal) Norm() float64 {
	return math.Sqrt(normSq(a.XX) + normSq(a.YY))
}

// At returns the element at linear index i in 1..4, column-major, with
// the off-diagonal indices (2 and 3) reading as exact zero.
func (a Diagonal) At(i int) (complex128, error) {
	switch i {
	case 1:
		return a.XX, nil
	case 2, 3:
		return 0, nil
	case 4:
		return a.YY, nil
	}
	return 0, errors.New(errors.ErrCodeIndexRange, "jones matrix index %d outside 1..4", i)
}

// IsZero reports whether both elements are exactly zero.
func (a Diagonal) IsZero() bool {
	return a == Diagonal{}
}

// ApproxEqual reports whether a and b agree element-wise within tol.
func (a Diagonal) ApproxEqual(b Diagonal, tol float64) bool {
	return a.Sub(b).Norm() <= tol
}

// Full promotes a to the general shape with exact zero off-diagonals.
func (a Diagonal) Full() Matrix {
	return Matrix{XX: a.XX, YY: a.YY}
}
