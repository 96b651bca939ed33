package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Hallflower20/ttcal/pkg/calibrate"
	"github.com/Hallflower20/ttcal/pkg/dataset"
	"github.com/Hallflower20/ttcal/pkg/errors"
	"github.com/Hallflower20/ttcal/pkg/ms"
)

// applyOpts holds the command-line flags for applycal.
type applyOpts struct {
	input       string // measurement-set path
	calibration string // calibration file to apply
	direction   string // select one entry of a peeling calibration set
	dataColumn  string // column to read
	outColumn   string // column to write corrected data to
}

// newApplycalCmd creates the applycal command, which applies a stored
// calibration to a data column and writes the corrected visibilities
// back. Visibilities in channels whose solve did not converge come back
// flagged (zeroed).
func newApplycalCmd() *cobra.Command {
	var opts applyOpts
	cmd := &cobra.Command{
		Use:   "applycal",
		Short: "Apply a stored calibration to a data column",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runApply(c.Context(), &opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "measurement set to correct (required)")
	cmd.Flags().StringVarP(&opts.calibration, "calibration", "c", "", "calibration file (required)")
	cmd.Flags().StringVar(&opts.direction, "direction", "", "direction name to select from a peeling calibration set")
	cmd.Flags().StringVar(&opts.dataColumn, "data-column", ms.ColData, "column to read visibilities from")
	cmd.Flags().StringVar(&opts.outColumn, "corrected-column", ms.ColCorrectedData, "column to write corrected visibilities to")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("calibration")
	return cmd
}

func runApply(ctx context.Context, opts *applyOpts) error {
	logger := loggerFromContext(ctx)

	cals, err := calibrate.ReadFile(opts.calibration)
	if err != nil {
		return err
	}
	cal, err := selectCalibration(cals, opts.direction)
	if err != nil {
		return err
	}

	table, err := ms.Open(opts.input)
	if err != nil {
		return err
	}
	meta, err := table.Metadata(nil)
	if err != nil {
		return err
	}
	mode, err := polMode(table, cal.FullPol)
	if err != nil {
		return err
	}
	raw, err := table.ReadColumn(opts.dataColumn)
	if err != nil {
		return err
	}
	data, err := dataset.Pack(meta, mode, raw, table.NTime())
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	if err := calibrate.Apply(cal, data); err != nil {
		return err
	}
	prog.done("Applied calibration")

	// Unpack into the array as read so dual-mode corrections leave the
	// off-diagonal correlations untouched.
	if err := data.Unpack(raw); err != nil {
		return err
	}
	if err := table.WriteColumn(opts.outColumn, raw); err != nil {
		return err
	}
	if err := table.Flush(); err != nil {
		return err
	}

	if n := cal.NFlagged(); n > 0 {
		printWarning("%d channels were flagged and their visibilities cleared", n)
	}
	printSuccess("wrote corrected visibilities to %s", opts.outColumn)
	printFile(opts.input)
	return nil
}

// selectCalibration picks the named direction's entry, or the single
// entry of a direction-independent file when no name is given.
func selectCalibration(cals []*calibrate.Calibration, direction string) (*calibrate.Calibration, error) {
	if direction == "" {
		if len(cals) != 1 {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"calibration file has %d directions; pick one with --direction", len(cals))
		}
		return cals[0], nil
	}
	for _, cal := range cals {
		if cal.Name == direction {
			return cal, nil
		}
	}
	return nil, errors.New(errors.ErrCodeSourceNotFound, "calibration file has no direction %q", direction)
}
