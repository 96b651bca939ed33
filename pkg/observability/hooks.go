// Package observability provides hooks for instrumenting long-running
// calibration work.
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the solver packages dependency-free from observability backends
//   - Allows different backends without touching the numeric code
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSolverHooks(&mySolverHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Solver().OnChannelComplete(ctx, ch, iterations, converged, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Solver Hooks
// =============================================================================

// SolverHooks receives events from per-channel calibration solves.
type SolverHooks interface {
	// OnSolveStart fires once per Solve call with the number of solution
	// channels about to run.
	OnSolveStart(ctx context.Context, channels int)

	// OnChannelComplete fires as each solution channel finishes.
	OnChannelComplete(ctx context.Context, channel, iterations int, converged bool, duration time.Duration)

	// OnSolveComplete fires when the whole solve finishes.
	OnSolveComplete(ctx context.Context, flagged int, duration time.Duration, err error)
}

// =============================================================================
// Peel Hooks
// =============================================================================

// PeelHooks receives events from the peeling orchestrator.
type PeelHooks interface {
	// OnDirectionStart fires before each direction's solve.
	OnDirectionStart(ctx context.Context, pass int, direction string)

	// OnDirectionComplete fires after each direction has been subtracted.
	OnDirectionComplete(ctx context.Context, pass int, direction string, flagged int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSolverHooks is a no-op implementation of SolverHooks.
type NoopSolverHooks struct{}

func (NoopSolverHooks) OnSolveStart(context.Context, int)                                {}
func (NoopSolverHooks) OnChannelComplete(context.Context, int, int, bool, time.Duration) {}
func (NoopSolverHooks) OnSolveComplete(context.Context, int, time.Duration, error)       {}

// NoopPeelHooks is a no-op implementation of PeelHooks.
type NoopPeelHooks struct{}

func (NoopPeelHooks) OnDirectionStart(context.Context, int, string)                        {}
func (NoopPeelHooks) OnDirectionComplete(context.Context, int, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	solverHooks SolverHooks = NoopSolverHooks{}
	peelHooks   PeelHooks   = NoopPeelHooks{}
	hooksMu     sync.RWMutex
)

// SetSolverHooks registers custom solver hooks.
// This should be called once at application startup before any solves.
func SetSolverHooks(h SolverHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		solverHooks = h
	}
}

// SetPeelHooks registers custom peel hooks.
// This should be called once at application startup before any peeling.
func SetPeelHooks(h PeelHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		peelHooks = h
	}
}

// Solver returns the registered solver hooks.
func Solver() SolverHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return solverHooks
}

// Peel returns the registered peel hooks.
func Peel() PeelHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return peelHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	solverHooks = NoopSolverHooks{}
	peelHooks = NoopPeelHooks{}
}
