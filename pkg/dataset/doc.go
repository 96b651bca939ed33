// Package dataset models an interferometer visibility dataset: a grid
// indexed by (frequency channel, baseline, time) of Jones-matrix-valued
// cells, together with the immutable observation metadata (antennas,
// baselines, channel frequencies, UVW coordinates, phase center, beam
// reference) the solvers need.
//
// The polarization mode of a [Dataset] is fixed at construction:
//
//   - [PolFull] cells are general 2×2 Jones matrices (four correlations).
//   - [PolDual] cells are diagonal matrices (xx and yy correlations).
//   - [PolSingle] cells are a single complex correlation.
//
// The cell grid is mutable in place; the solver and the peeling
// orchestrator update visibilities, models, and residuals through it.
// [Metadata] is immutable once built from the external measurement set.
//
// The package also implements the bidirectional transform between the
// structured grid and the flat complex array layout used by table I/O
// ([Pack] / [Dataset.Unpack]).
package dataset
