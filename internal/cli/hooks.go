package cli

import (
	"context"
	"time"

	"github.com/Hallflower20/ttcal/pkg/observability"
)

// logSolverHooks forwards solver events to the context logger at debug
// level. Per-channel events are debug-only so that a -v run shows the
// convergence behavior of every channel without flooding the default
// output.
type logSolverHooks struct{}

func (logSolverHooks) OnSolveStart(ctx context.Context, channels int) {
	loggerFromContext(ctx).Debug("solve started", "channels", channels)
}

func (logSolverHooks) OnChannelComplete(ctx context.Context, channel, iterations int, converged bool, duration time.Duration) {
	loggerFromContext(ctx).Debug("channel solved",
		"channel", channel,
		"iterations", iterations,
		"converged", converged,
		"duration", duration,
	)
}

func (logSolverHooks) OnSolveComplete(ctx context.Context, flagged int, duration time.Duration, err error) {
	l := loggerFromContext(ctx)
	if err != nil {
		l.Debug("solve aborted", "error", err, "duration", duration)
		return
	}
	l.Debug("solve finished", "flagged", flagged, "duration", duration)
}

// logPeelHooks forwards peeling events to the context logger.
type logPeelHooks struct{}

func (logPeelHooks) OnDirectionStart(ctx context.Context, pass int, direction string) {
	loggerFromContext(ctx).Debug("peeling direction", "pass", pass, "direction", direction)
}

func (logPeelHooks) OnDirectionComplete(ctx context.Context, pass int, direction string, flagged int, duration time.Duration) {
	loggerFromContext(ctx).Debug("direction peeled",
		"pass", pass,
		"direction", direction,
		"flagged", flagged,
		"duration", duration,
	)
}

// registerHooks installs the logging hook implementations. Called once
// from Execute before any command runs.
func registerHooks() {
	observability.SetSolverHooks(logSolverHooks{})
	observability.SetPeelHooks(logPeelHooks{})
}
