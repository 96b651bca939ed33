package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Hallflower20/ttcal/pkg/beam"
	"github.com/Hallflower20/ttcal/pkg/calibrate"
	"github.com/Hallflower20/ttcal/pkg/dataset"
	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/history"
	"github.com/Hallflower20/ttcal/pkg/ms"
	"github.com/Hallflower20/ttcal/pkg/skymodel"
)

// solveOpts holds the command-line flags shared by the solve-style
// commands (gaincal, polcal, and the peeling variants).
type solveOpts struct {
	input      string  // measurement-set path
	sky        string  // sky-model catalog path
	output     string  // calibration output file
	beamName   string  // beam model selection
	dataColumn string  // column to read visibilities from
	maxiter    int     // iteration budget per channel
	tolerance  float64 // relative-change stopping threshold
	minuvw     float64 // minimum baseline length in wavelengths
}

func (o *solveOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.input, "input", "i", "", "measurement set to calibrate (required)")
	cmd.Flags().StringVarP(&o.sky, "sky", "s", "", "sky-model catalog (required)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "calibration.json", "calibration output file")
	cmd.Flags().StringVar(&o.beamName, "beam", "sine", "beam model (constant, sine[<power>], memo178)")
	cmd.Flags().StringVar(&o.dataColumn, "data-column", ms.ColData, "column to read visibilities from")
	cmd.Flags().IntVar(&o.maxiter, "maxiter", calibrate.DefaultMaxIter, "maximum solver iterations per channel")
	cmd.Flags().Float64Var(&o.tolerance, "tolerance", calibrate.DefaultTolerance, "relative-change convergence tolerance")
	cmd.Flags().Float64Var(&o.minuvw, "minuvw", 0.0, "exclude baselines shorter than this many wavelengths")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("sky")
}

func (o *solveOpts) solverOptions(fullPol bool) calibrate.Options {
	return calibrate.Options{
		MaxIter:   o.maxiter,
		Tolerance: o.tolerance,
		MinUVW:    o.minuvw,
		FullPol:   fullPol,
	}
}

// observation bundles everything a solve needs from the external
// collaborators.
type observation struct {
	table *ms.Table
	beam  beam.Model
	meta  *dataset.Metadata
	data  *dataset.Dataset
	raw   []complex128 // the flat column as read, for in-place write-back
}

// loadObservation opens the measurement set, builds metadata with the
// selected beam attached, and packs the requested column into a dataset
// of the mode implied by fullPol and the table's polarization count.
func loadObservation(path, column, beamName string, fullPol bool) (*observation, error) {
	bm, err := beam.Parse(beamName)
	if err != nil {
		return nil, err
	}
	table, err := ms.Open(path)
	if err != nil {
		return nil, err
	}
	meta, err := table.Metadata(bm.Jones)
	if err != nil {
		return nil, err
	}

	mode, err := polMode(table, fullPol)
	if err != nil {
		return nil, err
	}
	raw, err := table.ReadColumn(column)
	if err != nil {
		return nil, err
	}
	data, err := dataset.Pack(meta, mode, raw, table.NTime())
	if err != nil {
		return nil, err
	}
	return &observation{table: table, beam: bm, meta: meta, data: data, raw: raw}, nil
}

func polMode(table *ms.Table, fullPol bool) (dataset.PolMode, error) {
	switch {
	case fullPol && table.NPol() != 4:
		return 0, errors.New(errors.ErrCodeUnsupported,
			"full-polarization solve needs a 4-correlation measurement set, %s has %d", table.Path(), table.NPol())
	case fullPol:
		return dataset.PolFull, nil
	case table.NPol() == 4:
		return dataset.PolDual, nil
	default:
		return dataset.PolSingle, nil
	}
}

// newGaincalCmd creates the gaincal command: a per-channel solve for
// diagonal antenna gains.
func newGaincalCmd() *cobra.Command {
	return newSolveCmd("gaincal", "Solve for diagonal antenna gains per channel", false)
}

// newPolcalCmd creates the polcal command: a per-channel solve for full
// Jones matrices, capturing polarization leakage.
func newPolcalCmd() *cobra.Command {
	return newSolveCmd("polcal", "Solve for full-polarization Jones matrices per channel", true)
}

func newSolveCmd(name, short string, fullPol bool) *cobra.Command {
	var opts solveOpts
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runSolve(c.Context(), &opts, fullPol)
		},
	}
	opts.register(cmd)
	return cmd
}

func runSolve(ctx context.Context, opts *solveOpts, fullPol bool) error {
	logger := loggerFromContext(ctx)
	started := time.Now()

	obs, err := loadObservation(opts.input, opts.dataColumn, opts.beamName, fullPol)
	if err != nil {
		return err
	}
	logger.Debugf("loaded %s: %d antennas, %d baselines, %d channels",
		opts.input, obs.meta.NAntennas(), obs.meta.NBaselines(), obs.meta.NChannels())

	sources, err := skymodel.Load(opts.sky)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	model, err := predictModel(ctx, obs, sources, opts.sky)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Predicted %d sources", len(sources)))

	spin := newSpinner(ctx, fmt.Sprintf("solving %d channels", obs.meta.NChannels()))
	spin.Start()
	prog = newProgress(logger)
	cal, err := calibrate.Solve(ctx, obs.data, model, opts.solverOptions(fullPol))
	spin.Stop()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Solved %d channels", obs.meta.NChannels()))

	if err := calibrate.WriteFile(opts.output, []*calibrate.Calibration{cal}); err != nil {
		return err
	}

	finished := time.Now()
	recordRun(ctx, history.Record{
		RunID:      cal.RunID,
		Command:    cmdLabel(fullPol),
		Input:      opts.input,
		SkyModel:   opts.sky,
		Beam:       opts.beamName,
		Output:     opts.output,
		Flagged:    cal.NFlagged(),
		Duration:   finished.Sub(started).Seconds(),
		StartedAt:  started,
		FinishedAt: finished,
	})

	printConvergence(cmdLabel(fullPol), cal.NChannels(), cal.NFlagged())
	printFile(opts.output)
	return nil
}

func cmdLabel(fullPol bool) string {
	if fullPol {
		return "polcal"
	}
	return "gaincal"
}
