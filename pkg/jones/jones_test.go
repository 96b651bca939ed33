package jones

import (
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/Hallflower20/ttcal/pkg/errors"
)

const tol = 1e-12

func TestIdentityMul(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := Rand(rng)

	if got := Identity().Mul(a); !got.ApproxEqual(a, tol) {
		t.Errorf("I·a = %+v, want %+v", got, a)
	}
	if got := a.Mul(Identity()); !got.ApproxEqual(a, tol) {
		t.Errorf("a·I = %+v, want %+v", got, a)
	}
}

func TestInvRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 10; i++ {
		a := Rand(rng)
		inv, err := a.Inv()
		if err != nil {
			t.Fatalf("Inv() error = %v", err)
		}
		if got := a.Mul(inv); !got.ApproxEqual(Identity(), 1e-10) {
			t.Errorf("a·inv(a) = %+v, want identity", got)
		}
		if got := inv.Mul(a); !got.ApproxEqual(Identity(), 1e-10) {
			t.Errorf("inv(a)·a = %+v, want identity", got)
		}
	}
}

func TestInvSingular(t *testing.T) {
	_, err := Zero().Inv()
	if err == nil {
		t.Fatal("Inv() of zero matrix expected error, got nil")
	}
	if !errors.Is(err, errors.ErrCodeSingularMatrix) {
		t.Errorf("Inv() error code = %v, want %v", err, errors.ErrCodeSingularMatrix)
	}

	// Rank-one matrix: nonzero but singular.
	_, err = (Matrix{XX: 1, XY: 2, YX: 2, YY: 4}).Inv()
	if err == nil {
		t.Error("Inv() of rank-one matrix expected error, got nil")
	}
}

func TestDiagonalInvSingular(t *testing.T) {
	tests := []struct {
		name    string
		d       Diagonal
		wantErr bool
	}{
		{name: "invertible", d: Diagonal{XX: 2, YY: 3i}, wantErr: false},
		{name: "xx zero", d: Diagonal{YY: 1}, wantErr: true},
		{name: "yy zero", d: Diagonal{XX: 1}, wantErr: true},
		{name: "both zero", d: DiagZero(), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := tt.d.Inv()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Inv() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Inv() error = %v", err)
			}
			if got := tt.d.Mul(inv); !got.ApproxEqual(DiagIdentity(), tol) {
				t.Errorf("d·inv(d) = %+v, want identity", got)
			}
		})
	}
}

func TestAt(t *testing.T) {
	a := Matrix{XX: 1, YX: 2, XY: 3, YY: 4}

	// Column-major: index 2 is yx, index 3 is xy.
	for i := 1; i <= 4; i++ {
		got, err := a.At(i)
		if err != nil {
			t.Fatalf("At(%d) error = %v", i, err)
		}
		if got != complex(float64(i), 0) {
			t.Errorf("At(%d) = %v, want %v", i, got, complex(float64(i), 0))
		}
	}

	for _, i := range []int{0, 5, -1} {
		if _, err := a.At(i); !errors.Is(err, errors.ErrCodeIndexRange) {
			t.Errorf("At(%d) error = %v, want %v", i, err, errors.ErrCodeIndexRange)
		}
	}
}

func TestDiagonalAt(t *testing.T) {
	d := Diagonal{XX: 1, YY: 4}
	want := []complex128{1, 0, 0, 4}
	for i := 1; i <= 4; i++ {
		got, err := d.At(i)
		if err != nil {
			t.Fatalf("At(%d) error = %v", i, err)
		}
		if got != want[i-1] {
			t.Errorf("At(%d) = %v, want %v", i, got, want[i-1])
		}
	}
	if _, err := d.At(5); !errors.Is(err, errors.ErrCodeIndexRange) {
		t.Errorf("At(5) error = %v, want %v", err, errors.ErrCodeIndexRange)
	}
}

func TestDiagonalPromotion(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	d := DiagRand(rng)
	m := Rand(rng)

	want := d.Full().Mul(m)
	if got := d.MulMatrix(m); !got.ApproxEqual(want, tol) {
		t.Errorf("diag·matrix = %+v, want %+v", got, want)
	}
}

func TestHermitianMulPromotes(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	a := HermRand(rng)
	b := HermRand(rng)

	want := a.Full().Mul(b.Full())
	if got := a.Mul(b); !got.ApproxEqual(want, tol) {
		t.Errorf("herm·herm = %+v, want %+v", got, want)
	}
}

func TestCongruence(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 20; i++ {
		j := Rand(rng)
		k := HermRand(rng)

		got := Congruence(j, k)

		// Against the general-shape product j·k·jᴴ.
		want := j.Mul(k.Full()).Mul(j.Adjoint())
		if !got.Full().ApproxEqual(want, 1e-10) {
			t.Errorf("Congruence = %+v, want %+v", got.Full(), want)
		}
	}
}

func TestCongruenceIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	k := HermRand(rng)
	if got := Congruence(Identity(), k); got != k {
		t.Errorf("Congruence(I, k) = %+v, want %+v", got, k)
	}
}

func TestMakeHermitian(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
		want Hermitian
	}{
		{
			name: "already hermitian",
			m:    Matrix{XX: 2, XY: 1 + 1i, YX: 1 - 1i, YY: 3},
			want: Hermitian{XX: 2, XY: 1 + 1i, YY: 3},
		},
		{
			name: "imaginary diagonal discarded",
			m:    Matrix{XX: 2 + 5i, YY: 3 - 7i},
			want: Hermitian{XX: 2, YY: 3},
		},
		{
			name: "off-diagonal averaged",
			m:    Matrix{XY: 2 + 2i, YX: 0},
			want: Hermitian{XY: 1 + 1i},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MakeHermitian(tt.m); got != tt.want {
				t.Errorf("MakeHermitian() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHermitianFull(t *testing.T) {
	h := Hermitian{XX: 2, XY: 1 + 3i, YY: 5}
	m := h.Full()
	if m.YX != cmplx.Conj(m.XY) {
		t.Errorf("Full() yx = %v, want conj(xy) = %v", m.YX, cmplx.Conj(m.XY))
	}
	if m.XX != 2 || m.YY != 5 {
		t.Errorf("Full() diagonal = (%v, %v), want (2, 5)", m.XX, m.YY)
	}
}

func TestKron(t *testing.T) {
	a := Matrix{XX: 1, XY: 2, YX: 3, YY: 4}
	b := Identity()

	got := a.Kron(b)
	want := [4][4]complex128{
		{1, 0, 2, 0},
		{0, 1, 0, 2},
		{3, 0, 4, 0},
		{0, 3, 0, 4},
	}
	if got != want {
		t.Errorf("Kron = %v, want %v", got, want)
	}
}

func TestDet(t *testing.T) {
	a := Matrix{XX: 1, XY: 2, YX: 3, YY: 4}
	if got := a.Det(); got != -2 {
		t.Errorf("Det() = %v, want -2", got)
	}

	h := Hermitian{XX: 2, XY: 1 + 1i, YY: 3}
	if got := h.Det(); got != 4 {
		t.Errorf("hermitian Det() = %v, want 4", got)
	}
}

func TestNorm(t *testing.T) {
	if got := Identity().Norm(); !approx(got, 1.4142135623730951) {
		t.Errorf("Norm(I) = %v, want sqrt(2)", got)
	}
	// The implied yx element counts toward the Hermitian norm.
	h := Hermitian{XY: 1}
	if got := h.Norm(); !approx(got, 1.4142135623730951) {
		t.Errorf("hermitian Norm = %v, want sqrt(2)", got)
	}
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-12 && d > -1e-12
}
