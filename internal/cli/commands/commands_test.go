package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/config"
)

func TestNewReportCommand(t *testing.T) {
	cmd := NewReportCommand()

	if cmd.Use != "report <config-file>" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	// Check flags exist
	flags := []string{"output", "utc-offset", "verbose", "quiet", "webhook-url", "webhook-token", "webhook-trigger"}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestNewDetectCommand(t *testing.T) {
	cmd := NewDetectCommand()

	if cmd.Use != "detect <file-or-glob>..." {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}
	for _, flag := range []string{"output", "sample", "write-config"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	if cmd.Use != "validate <config-file>" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}
	if !strings.Contains(cmd.Long, "Validate") {
		t.Error("Missing description in Long")
	}
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand()

	if cmd.Use != "version" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}
}

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	configPath := filepath.Join(dir, "astro.yaml")
	content := `sources:
  acquisition:
    - ` + filepath.Join(dir, "Autorun_Log*.txt") + `
  guide:
    - ` + filepath.Join(dir, "PHD2_GuideLog*.txt") + `
timestamps:
  utc_offset: "+00:00"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return configPath
}

func TestRunValidateSuccess(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	cmd := NewValidateCommand()
	cmd.SetArgs([]string{configPath})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Errorf("validate failed: %v", err)
	}
}

func TestRunValidateMissingConfig(t *testing.T) {
	cmd := NewValidateCommand()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.yaml")})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestRunReport(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	guideLog := `Guiding Begins at 2025-04-16 20:59:55
1,15.000,"Mount",0.011,0.020,0.300,0.400
2,20.000,"Mount",0.012,0.021,0.300,0.400
`
	acqLog := `2025/04/16 20:59:50 Exposure 300.0s image 1#
Light_Test_300.0s_0001.fits
`
	if err := os.WriteFile(filepath.Join(dir, "PHD2_GuideLog_1.txt"), []byte(guideLog), 0o644); err != nil {
		t.Fatalf("writing guide log: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Autorun_Log_1.txt"), []byte(acqLog), 0o644); err != nil {
		t.Fatalf("writing acquisition log: %v", err)
	}

	ExitCode = 0
	cmd := NewReportCommand()
	cmd.SetArgs([]string{configPath, "-q"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0 for a clean run", ExitCode)
	}
}

func TestRunReportUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)
	if err := os.WriteFile(filepath.Join(dir, "Autorun_Log_1.txt"),
		[]byte("2025/04/16 20:59:50 Exposure 300.0s image 1#\n"), 0o644); err != nil {
		t.Fatalf("writing acquisition log: %v", err)
	}

	cmd := NewReportCommand()
	cmd.SetArgs([]string{configPath, "-o", "yaml"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("expected error for unknown output format")
	}
}

func TestCollectWebhooks(t *testing.T) {
	t.Run("config only", func(t *testing.T) {
		cfg := &config.Config{
			Webhooks: []config.WebhookConfig{
				{Name: "slack", URL: "https://slack.example.com/webhook"},
				{Name: "pagerduty", URL: "https://pagerduty.example.com/webhook"},
			},
		}
		hooks := collectWebhooks(cfg, &ReportOptions{})
		if len(hooks) != 2 {
			t.Errorf("got %d webhooks, want 2", len(hooks))
		}
	})

	t.Run("cli webhook appended", func(t *testing.T) {
		cfg := &config.Config{}
		opts := &ReportOptions{
			WebhookURL:     "https://hooks.example.com/astro",
			WebhookTrigger: "always",
		}
		hooks := collectWebhooks(cfg, opts)
		if len(hooks) != 1 {
			t.Fatalf("got %d webhooks, want 1", len(hooks))
		}
		if hooks[0].Name != "cli" || hooks[0].Trigger != config.WebhookTriggerAlways {
			t.Errorf("cli webhook = %+v", hooks[0])
		}
	})

	t.Run("empty", func(t *testing.T) {
		if hooks := collectWebhooks(&config.Config{}, &ReportOptions{}); len(hooks) != 0 {
			t.Errorf("got %d webhooks, want 0", len(hooks))
		}
	})
}
