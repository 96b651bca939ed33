package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package during initialization with
// values injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the ttcal CLI and returns an error if any command fails.
//
// The function sets up the root command with all subcommands (gaincal,
// polcal, applycal, and the four peeling variants), configures logging
// based on the --verbose flag, and executes the command tree.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// The logger is attached to the context and accessible to all commands
// via loggerFromContext.
func Execute(ctx context.Context) error {
	var verbose bool

	registerHooks()

	root := &cobra.Command{
		Use:          "ttcal",
		Short:        "ttcal calibrates radio-interferometer visibility data",
		Long:         `ttcal solves for direction-independent and direction-dependent calibrations of radio-interferometer visibility data against a sky model, applies them, and peels modeled sources out of the data.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("ttcal %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "directory for cached model predictions (empty disables caching)")

	root.AddCommand(newGaincalCmd())
	root.AddCommand(newPolcalCmd())
	root.AddCommand(newApplycalCmd())
	root.AddCommand(newHistoryCmd())
	for _, v := range peelVariants {
		root.AddCommand(newPeelCmd(v))
	}

	return root.ExecuteContext(ctx)
}
