package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Hallflower20/ttcal/pkg/history"
)

// newHistoryCmd creates the history command, which lists recent
// calibration runs or looks one up by run ID.
func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recent calibration runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			store, err := history.NewStore("")
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return showRun(store, args[0])
			}
			return listRuns(store, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to show")
	return cmd
}

func showRun(store *history.Store, runID string) error {
	rec, ok, err := store.Find(runID)
	if err != nil {
		return err
	}
	if !ok {
		printWarning("no run %s in %s", runID, store.Path())
		return nil
	}
	printKeyValue("run", rec.RunID)
	printKeyValue("command", rec.Command)
	printKeyValue("input", rec.Input)
	printKeyValue("sky model", rec.SkyModel)
	printKeyValue("beam", rec.Beam)
	printKeyValue("output", rec.Output)
	printKeyValue("flagged", fmt.Sprintf("%d", rec.Flagged))
	printKeyValue("duration", fmt.Sprintf("%.1fs", rec.Duration))
	printKeyValue("started", rec.StartedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func listRuns(store *history.Store, limit int) error {
	records, err := store.List()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		printDetail("no recorded runs in %s", store.Path())
		return nil
	}
	// Newest first.
	start := 0
	if limit > 0 && len(records) > limit {
		start = len(records) - limit
	}
	for i := len(records) - 1; i >= start; i-- {
		rec := records[i]
		fmt.Println(
			StyleDim.Render(rec.StartedAt.Format("2006-01-02 15:04")) + " " +
				StyleValue.Render(rec.Command) + " " +
				rec.Input + " " +
				StyleDim.Render(fmt.Sprintf("(%d flagged, %.1fs, %s)", rec.Flagged, rec.Duration, rec.RunID)))
	}
	return nil
}
