package calibrate

import (
	"context"
	"math"
	"math/cmplx"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Hallflower20/ttcal/pkg/dataset"
	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/jones"
	"github.com/Hallflower20/ttcal/pkg/observability"
)

// Solve estimates one gain per antenna per frequency channel (or one per
// antenna overall when opts.Collapse is set) reconciling obs with model.
//
// Channels are solved independently on a worker pool sized to the
// available cores; each worker writes only its own channel's slot in the
// output, so the parallel section needs no locking. Channels whose model
// is entirely zero after minuvw filtering are flagged without iterating.
func Solve(ctx context.Context, obs, model *dataset.Dataset, opts Options) (*Calibration, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := obs.CheckSameShape(model); err != nil {
		return nil, errors.Wrap(errors.ErrCodeShapeMismatch, err, "observed and model datasets disagree")
	}

	meta := obs.Meta()
	cal := newSolveCalibration(meta, opts)
	cal.RunID = uuid.NewString()

	njobs := cal.NChannels()
	workers := min(runtime.GOMAXPROCS(0), njobs)
	jobs := make(chan int)
	started := time.Now()
	observability.Solver().OnSolveStart(ctx, njobs)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ch := range jobs {
				if ctx.Err() != nil {
					continue
				}
				chStart := time.Now()
				iters := solveChannel(obs, model, cal, ch, opts)
				observability.Solver().OnChannelComplete(ctx, ch, iters, !cal.Flagged(ch), time.Since(chStart))
			}
		}()
	}
	for ch := range njobs {
		jobs <- ch
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		observability.Solver().OnSolveComplete(ctx, cal.NFlagged(), time.Since(started), err)
		return nil, err
	}
	observability.Solver().OnSolveComplete(ctx, cal.NFlagged(), time.Since(started), nil)
	return cal, nil
}

// newSolveCalibration sizes the output for opts: per-channel frequencies,
// or the band-mean frequency for a collapsed solve.
func newSolveCalibration(meta *dataset.Metadata, opts Options) *Calibration {
	if !opts.Collapse {
		return NewCalibration(meta.NAntennas(), meta.Frequencies(), opts.FullPol)
	}
	var mean float64
	for ch := range meta.NChannels() {
		mean += meta.Frequency(ch)
	}
	mean /= float64(meta.NChannels())
	return NewCalibration(meta.NAntennas(), []float64{mean}, opts.FullPol)
}

// visEntry is one usable baseline measurement: observed and model
// visibilities between antennas p and q (p < q, autocorrelations
// excluded).
type visEntry struct {
	p, q int
	v, m jones.Matrix
}

// gatherEntries collects the usable measurements for solution channel ch:
// cross-correlations whose baseline passes the minuvw cut and whose
// observed and model cells are not flagged. A collapsed solve gathers
// every data channel into the single solution channel.
func gatherEntries(obs, model *dataset.Dataset, ch int, opts Options) []visEntry {
	meta := obs.Meta()
	channels := []int{ch}
	if opts.Collapse {
		channels = make([]int, meta.NChannels())
		for i := range channels {
			channels[i] = i
		}
	}

	var entries []visEntry
	for _, dataCh := range channels {
		for bl := range meta.NBaselines() {
			base := meta.Baseline(bl)
			if base.IsAuto() {
				continue
			}
			if opts.MinUVW > 0 && meta.BaselineLength(bl, dataCh) < opts.MinUVW {
				continue
			}
			for t := range obs.NTime() {
				if obs.Flagged(dataCh, bl, t) || model.Flagged(dataCh, bl, t) {
					continue
				}
				entries = append(entries, visEntry{
					p: base.Ant1,
					q: base.Ant2,
					v: obs.Matrix(dataCh, bl, t),
					m: model.Matrix(dataCh, bl, t),
				})
			}
		}
	}
	return entries
}

// solveChannel runs the fixed-point iteration for one solution channel
// and stores the result (gains plus converged flag) into cal. It returns
// the number of iterations taken.
func solveChannel(obs, model *dataset.Dataset, cal *Calibration, ch int, opts Options) int {
	entries := gatherEntries(obs, model, ch, opts)
	if len(entries) == 0 {
		cal.SetFlagged(ch, true)
		return 0
	}
	modelEmpty := true
	for _, e := range entries {
		if !e.m.IsZero() {
			modelEmpty = false
			break
		}
	}
	if modelEmpty {
		// Nothing to solve against; the channel cannot converge.
		cal.SetFlagged(ch, true)
		return 0
	}

	nant := cal.NAntennas()
	if opts.FullPol {
		gains, iters, converged := solveFull(entries, nant, opts)
		for a := range nant {
			cal.SetGain(ch, a, gains[a])
		}
		cal.SetFlagged(ch, !converged)
		return iters
	}
	gains, iters, converged := solveDiagonal(entries, nant, opts)
	for a := range nant {
		cal.SetDiagGain(ch, a, gains[a])
	}
	cal.SetFlagged(ch, !converged)
	return iters
}

// solveFull iterates the alternating per-antenna least-squares update for
// general Jones gains. For each antenna p, with z_q = m_pq·g_qᴴ built
// from the current estimates, the update is the closed-form row solve
//
//	g_p ← (Σ_q v_pq·z_qᴴ) · (Σ_q z_q·z_qᴴ)⁻¹
//
// followed by averaging with the previous estimate, which damps the
// odd/even oscillation of the bare iteration.
func solveFull(entries []visEntry, nant int, opts Options) ([]jones.Matrix, int, bool) {
	gains := make([]jones.Matrix, nant)
	for a := range gains {
		gains[a] = jones.Identity()
	}
	next := make([]jones.Matrix, nant)

	for iter := 0; iter < opts.MaxIter; iter++ {
		for p := range nant {
			var num, den jones.Matrix
			seen := false
			for _, e := range entries {
				v, m, q, ok := orient(e, p)
				if !ok {
					continue
				}
				z := m.Mul(gains[q].Adjoint())
				num = num.Add(v.Mul(z.Adjoint()))
				den = den.Add(z.Mul(z.Adjoint()))
				seen = true
			}
			if !seen {
				next[p] = gains[p]
				continue
			}
			inv, err := den.Inv()
			if err != nil {
				// Singular normal matrix for this antenna; keep the
				// previous estimate and let the change norm decide.
				next[p] = gains[p]
				continue
			}
			update := num.Mul(inv)
			next[p] = update.Add(gains[p]).Scale(0.5)
		}

		delta := relativeChangeFull(gains, next)
		copy(gains, next)
		if delta <= opts.Tolerance {
			return gains, iter + 1, true
		}
	}
	return gains, opts.MaxIter, false
}

// orient returns the visibility and model as seen from antenna p, i.e.
// v_pq and m_pq with p in the row position, using the conjugate transpose
// for the reversed baseline. ok is false when p is not on the baseline.
func orient(e visEntry, p int) (v, m jones.Matrix, q int, ok bool) {
	switch p {
	case e.p:
		return e.v, e.m, e.q, true
	case e.q:
		return e.v.Adjoint(), e.m.Adjoint(), e.p, true
	}
	return jones.Matrix{}, jones.Matrix{}, 0, false
}

func relativeChangeFull(prev, next []jones.Matrix) float64 {
	var diff, norm float64
	for a := range next {
		d := next[a].Sub(prev[a]).Norm()
		n := next[a].Norm()
		diff += d * d
		norm += n * n
	}
	if norm == 0 {
		return 0
	}
	return math.Sqrt(diff / norm)
}

// solveDiagonal is the same fixed point restricted to per-correlation
// scalar gains, solved independently for xx and yy.
func solveDiagonal(entries []visEntry, nant int, opts Options) ([]jones.Diagonal, int, bool) {
	gains := make([]jones.Diagonal, nant)
	for a := range gains {
		gains[a] = jones.DiagIdentity()
	}
	next := make([]jones.Diagonal, nant)

	for iter := 0; iter < opts.MaxIter; iter++ {
		for p := range nant {
			var numXX, numYY complex128
			var denXX, denYY float64
			seen := false
			for _, e := range entries {
				v, m, q, ok := orient(e, p)
				if !ok {
					continue
				}
				zXX := m.XX * cmplx.Conj(gains[q].XX)
				zYY := m.YY * cmplx.Conj(gains[q].YY)
				numXX += v.XX * cmplx.Conj(zXX)
				numYY += v.YY * cmplx.Conj(zYY)
				denXX += absSq(zXX)
				denYY += absSq(zYY)
				seen = true
			}
			if !seen {
				next[p] = gains[p]
				continue
			}
			g := gains[p]
			if denXX > 0 {
				g.XX = (numXX/complex(denXX, 0) + gains[p].XX) / 2
			}
			if denYY > 0 {
				g.YY = (numYY/complex(denYY, 0) + gains[p].YY) / 2
			}
			next[p] = g
		}

		delta := relativeChangeDiag(gains, next)
		copy(gains, next)
		if delta <= opts.Tolerance {
			return gains, iter + 1, true
		}
	}
	return gains, opts.MaxIter, false
}

func relativeChangeDiag(prev, next []jones.Diagonal) float64 {
	var diff, norm float64
	for a := range next {
		d := next[a].Sub(prev[a]).Norm()
		n := next[a].Norm()
		diff += d * d
		norm += n * n
	}
	if norm == 0 {
		return 0
	}
	return math.Sqrt(diff / norm)
}

func absSq(z complex128) float64 {
	return real(z)*real(z) + imag(z)*imag(z)
}
