package detector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/timestamp"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestDetector_GuideLog(t *testing.T) {
	content := `PHD2 version 2.6.13, Log version 2.5
Guiding Begins at 2025-01-25 20:17:44
1,0.576,"Mount",-0.057,0.104,-0.097,0.071,0,0
2,2.612,"Mount",0.031,-0.080,0.052,-0.064,0,0
`
	path := writeFixture(t, "guide.txt", content)

	res, err := New().Detect(context.Background(), path)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if res.Kind != timestamp.SourceGuide {
		t.Errorf("Kind = %s, want guide", res.Kind)
	}
	if res.MatchCount != 4 {
		t.Errorf("MatchCount = %d, want 4", res.MatchCount)
	}
}

func TestDetector_AcquisitionLog(t *testing.T) {
	content := `Log enabled at 2025/01/25 20:28:50
2025/01/25 20:29:07 Exposure 300.0s image 1#
`
	path := writeFixture(t, "autorun.txt", content)

	res, err := New().Detect(context.Background(), path)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if res.Kind != timestamp.SourceAcquisition {
		t.Errorf("Kind = %s, want acquisition", res.Kind)
	}
}

func TestDetector_FITSMagic(t *testing.T) {
	content := "SIMPLE  =                    T" + strings.Repeat(" ", 2850)
	path := writeFixture(t, "light.fits", content)

	res, err := New().Detect(context.Background(), path)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if res.Kind != timestamp.SourceImage {
		t.Errorf("Kind = %s, want image", res.Kind)
	}
}

func TestDetector_Unrecognized(t *testing.T) {
	path := writeFixture(t, "notes.txt", "random operator notes\nnothing structured here\n")

	res, err := New().Detect(context.Background(), path)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if res.Kind != "" {
		t.Errorf("Kind = %s, want empty for unrecognized content", res.Kind)
	}
	if res.SampledLines != 2 {
		t.Errorf("SampledLines = %d, want 2", res.SampledLines)
	}
}

func TestDetector_SampleSizeLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 500; i++ {
		b.WriteString("filler line\n")
	}
	path := writeFixture(t, "big.txt", b.String())

	res, err := New(WithSampleSize(10)).Detect(context.Background(), path)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if res.SampledLines != 10 {
		t.Errorf("SampledLines = %d, want 10", res.SampledLines)
	}
}

func TestDetector_MissingFile(t *testing.T) {
	if _, err := New().Detect(context.Background(), filepath.Join(t.TempDir(), "gone")); err == nil {
		t.Error("Detect(missing) = nil error, want error")
	}
}
