package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/config"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate an astroreport configuration file without running the pipeline.

Checks:
  - YAML syntax
  - Required fields (at least one exposure source)
  - Timestamp layout chains and UTC offset
  - Report unit and pixel scale consistency
  - Webhook endpoint URLs
  - Source file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Printf("Validating %s...\n", configPath)

	// Load and validate config
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// Report what we found
	fmt.Printf("\nConfiguration valid!\n")
	fmt.Printf("  Image sources:       %d pattern(s)\n", len(cfg.Sources.Image))
	fmt.Printf("  Guide sources:       %d pattern(s)\n", len(cfg.Sources.Guide))
	fmt.Printf("  Acquisition sources: %d pattern(s)\n", len(cfg.Sources.Acquisition))
	fmt.Printf("  Report unit:         %s\n", cfg.ReportUnit)
	if cfg.PixelScaleArcsec > 0 {
		fmt.Printf("  Pixel scale:         %.2f arcsec/px\n", cfg.PixelScaleArcsec)
	}
	if offset, ok := cfg.Timestamps.Offset(); ok {
		fmt.Printf("  UTC offset:          %s\n", offset)
	} else {
		fmt.Printf("  UTC offset:          unknown (zone-less timestamps downgraded)\n")
	}
	if len(cfg.Webhooks) > 0 {
		fmt.Printf("  Webhooks:            %d\n", len(cfg.Webhooks))
	}

	// Check if sources exist (warnings only)
	patterns := make([]string, 0, len(cfg.Sources.Image)+len(cfg.Sources.Guide)+len(cfg.Sources.Acquisition))
	patterns = append(patterns, cfg.Sources.Image...)
	patterns = append(patterns, cfg.Sources.Guide...)
	patterns = append(patterns, cfg.Sources.Acquisition...)

	files, err := parser.ExpandGlobs(patterns)
	if err != nil {
		fmt.Printf("\nWarning: Error expanding source patterns: %v\n", err)
	} else if len(files) == 0 {
		fmt.Printf("\nWarning: No files match source patterns\n")
	} else {
		fmt.Printf("\nFiles matched: %d\n", len(files))
		for _, f := range files {
			fmt.Printf("  - %s\n", f)
		}
	}

	return nil
}
