package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/detector"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/parser"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/timestamp"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <file-or-glob>...",
		Short: "Classify session files by source kind",
		Long: `Classify files as image headers, guide logs or acquisition logs.

Samples lines from each file and matches them against the known source
signatures. FITS images are recognized by their header magic.

Optionally generates a starter config file with --write-config: detected
files are grouped under the matching source section.

Example:
  astroreport detect ./session/*
  astroreport detect --sample 500 big_guide_log.txt
  astroreport detect -w astro.yaml ./session/*`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", 100, "Number of lines to sample per file")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	files, err := parser.ExpandGlobs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matched: %v", args)
	}

	d := detector.New(detector.WithSampleSize(opts.SampleSize))

	results := make([]*detector.Result, 0, len(files))
	for _, file := range files {
		res, err := d.Detect(ctx, file)
		if err != nil {
			return fmt.Errorf("detecting %s: %w", file, err)
		}
		results = append(results, res)
	}

	if opts.WriteConfig != "" {
		if err := writeStarterConfig(results, opts.WriteConfig); err != nil {
			return err
		}
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(results)
	default:
		return outputDetectText(results)
	}
}

func outputDetectText(results []*detector.Result) error {
	fmt.Println("=== Source Detection ===")
	fmt.Println()

	candidates := timestamp.DefaultCandidates()
	for _, res := range results {
		if res.Kind == "" {
			fmt.Printf("%-50s  unrecognized (%d lines sampled)\n", res.Path, res.SampledLines)
			continue
		}
		fmt.Printf("%-50s  %s (%d matching lines)\n", res.Path, res.Name, res.MatchCount)
		for _, layout := range candidates[res.Kind] {
			fmt.Printf("%-50s    layout: %s\n", "", layout)
		}
	}
	fmt.Println()

	return nil
}

// detectJSON is one file's classification in JSON output.
type detectJSON struct {
	Path         string   `json:"path"`
	Kind         string   `json:"kind,omitempty"`
	Name         string   `json:"name,omitempty"`
	MatchCount   int      `json:"match_count"`
	SampledLines int      `json:"sampled_lines"`
	Layouts      []string `json:"layouts,omitempty"`
}

func outputDetectJSON(results []*detector.Result) error {
	candidates := timestamp.DefaultCandidates()
	out := make([]detectJSON, 0, len(results))
	for _, res := range results {
		out = append(out, detectJSON{
			Path:         res.Path,
			Kind:         string(res.Kind),
			Name:         res.Name,
			MatchCount:   res.MatchCount,
			SampledLines: res.SampledLines,
			Layouts:      candidates[res.Kind],
		})
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// writeStarterConfig generates a config file grouping the detected files
// under their source sections.
func writeStarterConfig(results []*detector.Result, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	byKind := make(map[timestamp.SourceKind][]string)
	for _, res := range results {
		if res.Kind == "" {
			continue
		}
		path := res.Path
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		byKind[res.Kind] = append(byKind[res.Kind], path)
	}

	if len(byKind) == 0 {
		return fmt.Errorf("cannot generate config: no sources recognized")
	}

	content := generateStarterConfig(byKind)

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Wrote starter config to: %s\n\n", configPath)
	return nil
}

// generateStarterConfig creates a YAML config template.
func generateStarterConfig(byKind map[timestamp.SourceKind][]string) string {
	section := func(kind timestamp.SourceKind) string {
		files := byKind[kind]
		if len(files) == 0 {
			return "  # " + string(kind) + ": []\n"
		}
		s := "  " + string(kind) + ":\n"
		for _, f := range files {
			s += "    - " + f + "\n"
		}
		return s
	}

	return `# Astroreport configuration
# Generated by: astroreport detect

sources:
` + section(timestamp.SourceImage) +
		section(timestamp.SourceGuide) +
		section(timestamp.SourceAcquisition) + `
timestamps:
  # UTC offset of zone-less timestamps in your logs (e.g. "-07:00").
  utc_offset: "+00:00"

# Session-boundary threshold: gap_multiplier x typical guide interval.
gap_multiplier: 5

# Guide camera scale, needed to report in arcseconds.
# pixel_scale_arcsec: 6.45
# report_unit: arcsec
`
}
