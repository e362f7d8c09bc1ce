// Package cli provides the command-line interface for astroreport.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ComicStans-dev/astro-session-reporter/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "astroreport",
		Short: "Correlate imaging session logs into a guiding quality report",
		Long: `Astroreport reads the files an imaging session leaves behind - image
headers, autoguider logs and acquisition logs - and correlates them onto
a single UTC timeline.

It reports:
  - Per-exposure guiding RMS (RA, Dec, combined) and star-loss counts
  - Session-wide guiding statistics
  - Orphaned records that fall outside every exposure window
  - Guiding restarts, duplicate records and timestamp problems

Every source declares its own timestamp dialect; astroreport normalizes
them so records from different programs line up.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
