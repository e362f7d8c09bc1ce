package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/correlate"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/engine"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/session"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/stats"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/timestamp"
)

func tv(t *testing.T, s string) timestamp.TimeValue {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parsing %q: %v", s, err)
	}
	return timestamp.New(parsed, timestamp.PrecisionSecond)
}

func createTestReport(t *testing.T) *Report {
	t.Helper()
	return &Report{
		Summary: Summary{
			ExposureCount:        2,
			ExposuresWithGuiding: 1,
			OrphanCount:          1,
		},
		Exposures: []stats.ExposureStats{
			{
				ExposureID:  "light_0001.fits",
				WindowStart: tv(t, "2025-04-16T21:00:00Z"),
				WindowEnd:   tv(t, "2025-04-16T21:05:00Z"),
				Summary: stats.Summary{
					SampleCount:   120,
					StarLossCount: 2,
					HasData:       true,
					RMSRA:         0.312,
					RMSDec:        0.418,
					RMSTotal:      0.522,
					Combined:      true,
					Unit:          session.UnitPixel,
				},
				FirstGuide: tv(t, "2025-04-16T21:00:02Z"),
				LastGuide:  tv(t, "2025-04-16T21:04:58Z"),
			},
			{ExposureID: "light_0002.fits"},
		},
		Session: stats.SessionStats{
			Summary: stats.Summary{
				SampleCount: 120,
				HasData:     true,
				RMSRA:       0.312,
				RMSDec:      0.418,
				RMSTotal:    0.522,
				Combined:    true,
				Unit:        session.UnitPixel,
			},
		},
		Orphans: []correlate.Orphan{
			{
				Kind:            correlate.KindGuideFrame,
				Time:            tv(t, "2025-04-16T20:55:00Z"),
				NearestExposure: "light_0001.fits",
				Distance:        5 * time.Minute,
			},
		},
		Metadata: Metadata{
			RunID:       "test-run",
			ReportUnit:  "pixel",
			GeneratedAt: time.Date(2025, 4, 16, 22, 0, 0, 0, time.UTC),
		},
	}
}

func TestTextFormatterName(t *testing.T) {
	if got := NewTextFormatter(FormatOptions{}).Name(); got != "text" {
		t.Errorf("Name() = %q, want text", got)
	}
}

func TestTextFormatterFull(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextFormatter(FormatOptions{}).Format(context.Background(), createTestReport(t), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Imaging Session Report",
		"light_0001.fits",
		"Guide frames: 120 (2 star-lost)",
		"RA 0.312",
		"Total 0.522",
		"No guiding data",
		"Orphaned records: 1",
		"2 exposures, 1 with guiding, 1 orphans",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestTextFormatterQuiet(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextFormatter(FormatOptions{Quiet: true}).Format(context.Background(), createTestReport(t), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()

	if lines := strings.Count(out, "\n"); lines != 1 {
		t.Errorf("quiet output = %d lines, want 1", lines)
	}
	if !strings.Contains(out, "2 exposures") {
		t.Errorf("quiet output missing summary: %q", out)
	}
}

func TestTextFormatterVerboseOrphans(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextFormatter(FormatOptions{Verbose: true}).Format(context.Background(), createTestReport(t), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(buf.String(), "nearest exposure light_0001.fits") {
		t.Error("verbose output missing orphan detail")
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONFormatter(FormatOptions{}).Format(context.Background(), createTestReport(t), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Summary.ExposureCount != 2 {
		t.Errorf("ExposureCount = %d, want 2", decoded.Summary.ExposureCount)
	}
	if len(decoded.Exposures) != 2 {
		t.Errorf("len(Exposures) = %d, want 2", len(decoded.Exposures))
	}
}

func TestJSONFormatterQuiet(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONFormatter(FormatOptions{Quiet: true}).Format(context.Background(), createTestReport(t), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var decoded Summary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("quiet output is not a bare summary: %v", err)
	}
	if decoded.OrphanCount != 1 {
		t.Errorf("OrphanCount = %d, want 1", decoded.OrphanCount)
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVFormatter(FormatOptions{}).Format(context.Background(), createTestReport(t), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	// header + 2 exposures + session footer
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4", len(rows))
	}
	if rows[0][0] != "exposure_id" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "light_0001.fits" || rows[1][5] != "0.312" {
		t.Errorf("exposure row = %v", rows[1])
	}
	if rows[1][1] != "2025-04-16T21:00:00Z" {
		t.Errorf("window_start = %q", rows[1][1])
	}

	// No-data exposure: RMS cells empty, not zero.
	if rows[2][5] != "" || rows[2][7] != "" {
		t.Errorf("no-data row must have empty RMS cells, got %v", rows[2])
	}

	if rows[3][0] != "SESSION" {
		t.Errorf("footer row = %v", rows[3])
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "text", want: "text"},
		{format: "", want: "text"},
		{format: "json", want: "json"},
		{format: "csv", want: "csv"},
		{format: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		f, err := NewFormatter(tt.format, FormatOptions{})
		if (err != nil) != tt.wantErr {
			t.Errorf("NewFormatter(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && f.Name() != tt.want {
			t.Errorf("NewFormatter(%q).Name() = %q, want %q", tt.format, f.Name(), tt.want)
		}
	}
}

func TestNewReport(t *testing.T) {
	res := &engine.RunResult{
		Exposures: []stats.ExposureStats{
			{ExposureID: "a.fits", Summary: stats.Summary{HasData: true}},
			{ExposureID: "b.fits"},
		},
		Correlation: &correlate.Result{
			Orphans: []correlate.Orphan{{Kind: correlate.KindGuideEvent}},
		},
		Diagnostics: engine.Diagnostics{
			ParseFailures: map[timestamp.SourceKind]int{
				timestamp.SourceGuide:       2,
				timestamp.SourceAcquisition: 1,
			},
		},
		Metadata: engine.Metadata{
			StartTime: time.Date(2025, 4, 16, 22, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2025, 4, 16, 22, 0, 3, 0, time.UTC),
		},
	}

	report := NewReport(res, "astro.yaml", "pixel")

	if report.Metadata.RunID == "" {
		t.Error("RunID not assigned")
	}
	if report.Summary.ExposureCount != 2 || report.Summary.ExposuresWithGuiding != 1 {
		t.Errorf("Summary = %+v", report.Summary)
	}
	if report.Summary.ParseFailures != 3 {
		t.Errorf("ParseFailures = %d, want 3", report.Summary.ParseFailures)
	}
	if report.Metadata.Duration != 3*time.Second {
		t.Errorf("Duration = %v, want 3s", report.Metadata.Duration)
	}
	if !report.HasIssues() {
		t.Error("HasIssues() = false with orphans and parse failures")
	}
}
