package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Hallflower20/ttcal/pkg/calibrate"
	"github.com/Hallflower20/ttcal/pkg/history"
	"github.com/Hallflower20/ttcal/pkg/ms"
	"github.com/Hallflower20/ttcal/pkg/peel"
	"github.com/Hallflower20/ttcal/pkg/skymodel"
)

// peelVariant describes one of the four peeling commands. The variants
// differ only in the two solver switches; the orchestration is shared.
type peelVariant struct {
	name     string
	short    string
	fullPol  bool // solve full Jones matrices instead of diagonal gains
	collapse bool // one wideband solve instead of one per channel
}

var peelVariants = []peelVariant{
	{"peel", "Peel sources with per-channel diagonal gains", false, false},
	{"shave", "Peel sources with a wideband diagonal-gain solve", false, true},
	{"zest", "Peel sources with per-channel full-polarization solves", true, false},
	{"prune", "Peel sources with a wideband full-polarization solve", true, true},
}

// peelOpts extends the shared solve flags with the peeling knobs.
type peelOpts struct {
	solveOpts
	peeliter  int    // outer passes over the direction list
	outColumn string // column receiving the final residual
}

func newPeelCmd(v peelVariant) *cobra.Command {
	var opts peelOpts
	cmd := &cobra.Command{
		Use:   v.name,
		Short: v.short,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runPeel(c.Context(), &opts, v)
		},
	}
	opts.register(cmd)
	cmd.Flags().IntVar(&opts.peeliter, "peeliter", peel.DefaultPeelIter, "number of passes over the direction list")
	cmd.Flags().StringVar(&opts.outColumn, "corrected-column", ms.ColCorrectedData, "column to write the residual to")
	return cmd
}

func runPeel(ctx context.Context, opts *peelOpts, v peelVariant) error {
	logger := loggerFromContext(ctx)
	started := time.Now()

	obs, err := loadObservation(opts.input, opts.dataColumn, opts.beamName, v.fullPol)
	if err != nil {
		return err
	}
	sources, err := skymodel.Load(opts.sky)
	if err != nil {
		return err
	}
	logger.Debugf("peeling %d directions over %d passes", len(sources), opts.peeliter)

	solver := opts.solverOptions(v.fullPol)
	solver.Collapse = v.collapse

	spin := newSpinner(ctx, fmt.Sprintf("%s: %d directions", v.name, len(sources)))
	spin.Start()
	prog := newProgress(logger)
	cals, err := peel.Run(ctx, obs.data, sources, obs.beam, peel.Options{
		Options:  solver,
		PeelIter: opts.peeliter,
	}, peel.Progress{
		Direction: func(pass int, name string) {
			spin.SetMessage(fmt.Sprintf("pass %d/%d: %s", pass+1, opts.peeliter, name))
		},
	})
	spin.Stop()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Peeled %d directions", len(sources)))

	// The mutated dataset is now the residual; write it back. Unpacking
	// into the array as read keeps untouched correlations intact.
	if err := obs.data.Unpack(obs.raw); err != nil {
		return err
	}
	if err := obs.table.WriteColumn(opts.outColumn, obs.raw); err != nil {
		return err
	}
	if err := obs.table.Flush(); err != nil {
		return err
	}
	if err := calibrate.WriteFile(opts.output, cals); err != nil {
		return err
	}

	finished := time.Now()
	flagged := 0
	runID := ""
	for _, cal := range cals {
		flagged += cal.NFlagged()
		runID = cal.RunID
	}
	recordRun(ctx, history.Record{
		RunID:      runID,
		Command:    v.name,
		Input:      opts.input,
		SkyModel:   opts.sky,
		Beam:       opts.beamName,
		Output:     opts.output,
		Flagged:    flagged,
		Duration:   finished.Sub(started).Seconds(),
		StartedAt:  started,
		FinishedAt: finished,
	})

	for _, cal := range cals {
		printConvergence(cal.Name, cal.NChannels(), cal.NFlagged())
	}
	printDetail("residual written to %s", opts.outColumn)
	printFile(opts.output)
	return nil
}
