package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/config"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/engine"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/output"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// ReportOptions holds command-line options for the report command.
type ReportOptions struct {
	Output    string
	UTCOffset string
	Verbose   bool
	Quiet     bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "report <config-file>",
		Short: "Correlate session files and report guiding quality",
		Long: `Run the full pipeline over the sources named in the configuration file.

Reads image headers, guide logs and acquisition logs, normalizes their
timestamps onto one UTC timeline, windows every record into its exposure
and reports per-exposure and session-wide guiding statistics.

Exit codes:
  0 - Report produced, nothing to flag
  1 - Report produced with issues (orphans, skips, parse failures)
  2 - Configuration or runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args, opts)
		},
	}

	// Flags
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json|csv)")
	cmd.Flags().StringVar(&opts.UTCOffset, "utc-offset", "", "Override the configured UTC offset (e.g. -07:00)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show per-record diagnostics, not just summaries")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", "on_issues", "When to fire webhook (on_issues|always|never)")

	return cmd
}

func runReport(cmd *cobra.Command, args []string, opts *ReportOptions) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI offset override re-runs validation to parse it
	if opts.UTCOffset != "" {
		cfg.Timestamps.UTCOffset = opts.UTCOffset
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid utc-offset %q: %w", opts.UTCOffset, err)
		}
	}

	// Run the pipeline
	res, err := engine.New(cfg, engine.WithVerbose(opts.Verbose)).Run(ctx)
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	// Assemble and render the report
	report := output.NewReport(res, configPath, cfg.ReportUnit)

	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}
	if err := formatter.Format(ctx, report, os.Stdout); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Deliver webhooks (failures logged but never fail the run)
	deliverWebhooks(ctx, cfg, opts, report)

	// Set exit code based on results
	if report.HasIssues() {
		ExitCode = 1
	}

	return nil
}

// deliverWebhooks sends the report to every configured endpoint.
// Failures are logged to stderr but don't fail the run.
func deliverWebhooks(ctx context.Context, cfg *config.Config, opts *ReportOptions, report *output.Report) {
	hooks := collectWebhooks(cfg, opts)
	if len(hooks) == 0 {
		return
	}

	for _, d := range webhook.NewClient().DeliverAll(ctx, report, hooks) {
		switch {
		case d.Skipped:
		case d.Success():
			fmt.Fprintf(os.Stderr, "Webhook %s: sent (%d, %s)\n", d.Endpoint, d.StatusCode, d.Duration)
		default:
			fmt.Fprintf(os.Stderr, "Webhook %s: failed (%v)\n", d.Endpoint, d.Error)
		}
	}
}

// collectWebhooks merges config file webhooks with the CLI webhook.
func collectWebhooks(cfg *config.Config, opts *ReportOptions) []config.WebhookConfig {
	hooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	hooks = append(hooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnIssues
		}

		hooks = append(hooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return hooks
}
