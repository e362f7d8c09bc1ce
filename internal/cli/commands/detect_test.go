package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunDetectGuideLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "PHD2_GuideLog.txt")
	content := `PHD2 version 2.6.13
Guiding Begins at 2025-04-16 20:59:55
1,15.000,"Mount",0.011,0.020,0.300,0.400
`
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cmd := NewDetectCommand()
	cmd.SetArgs([]string{logPath})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("detect failed: %v", err)
	}
}

func TestRunDetectMissingFile(t *testing.T) {
	cmd := NewDetectCommand()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.log")})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteStarterConfig(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "Autorun_Log.txt")
	if err := os.WriteFile(logPath,
		[]byte("2025/04/16 20:59:50 Exposure 300.0s image 1#\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	configPath := filepath.Join(dir, "astro.yaml")
	cmd := NewDetectCommand()
	cmd.SetArgs([]string{"-w", configPath, logPath})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("reading written config: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "acquisition:") {
		t.Error("config missing acquisition section")
	}
	if !strings.Contains(content, "Autorun_Log.txt") {
		t.Error("config missing detected file")
	}

	// Refuses to overwrite.
	cmd = NewDetectCommand()
	cmd.SetArgs([]string{"-w", configPath, logPath})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("expected error when config file exists")
	}
}
