// Package jones implements a closed algebra over 2×2 complex Jones matrices.
//
// Three concrete shapes share the algebra but not the storage:
//
//   - [Matrix] is a general 2×2 complex matrix, used for full-polarization
//     antenna gains and general calibration terms.
//   - [Diagonal] stores only the xx and yy elements, used for unpolarized
//     antenna gains. The off-diagonal elements are implicitly zero.
//   - [Hermitian] stores a real xx, a complex xy, and a real yy; the yx
//     element is implicitly conj(xy). It represents source and visibility
//     flux, which is self-adjoint by physics.
//
// The reduced-storage shapes are not an optimization: because Hermitian
// never stores the redundant conjugate element, no sequence of Hermitian
// operations can drift away from exact self-adjointness through rounding.
// The congruence transform [Congruence] computes J·K·Jᴴ with real-valued
// sums on the diagonal for the same reason.
//
// Mixed-shape products promote to [Matrix]: diagonal×general, Hermitian×
// general, and Hermitian×Hermitian are all general (the product of two
// Hermitian matrices is not Hermitian in general).
//
// All types have value semantics. Operations never mutate their receiver.
package jones
