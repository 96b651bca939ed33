// Package calibrate estimates per-antenna Jones matrices that reconcile
// observed visibilities with a sky model.
//
// The solver runs independently per frequency channel (or once across all
// channels for a collapsed wideband solve) and iterates an alternating
// per-antenna least-squares update until the relative change between
// successive gain vectors drops below the tolerance or the iteration
// budget runs out. Channels that exhaust the budget are returned with
// their solutions intact but flagged as not converged; consumers must not
// trust flagged solutions.
//
// Channel solves share no mutable state and execute on a worker pool.
//
// The package also applies calibrations to data ([Apply] removes gains,
// [Corrupt] imposes them) and persists them to JSON files.
package calibrate
