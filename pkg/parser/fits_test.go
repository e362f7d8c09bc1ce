package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// buildFITSHeader assembles a minimal primary header: 80-byte cards
// padded into 2880-byte blocks.
func buildFITSHeader(t *testing.T, cards []string) []byte {
	t.Helper()
	var b strings.Builder
	for _, card := range cards {
		if len(card) > 80 {
			t.Fatalf("card longer than 80 bytes: %q", card)
		}
		b.WriteString(card)
		b.WriteString(strings.Repeat(" ", 80-len(card)))
	}
	for b.Len()%2880 != 0 {
		b.WriteString(" ")
	}
	return []byte(b.String())
}

func writeFITS(t *testing.T, name string, cards []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buildFITSHeader(t, cards), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestReadImageHeader(t *testing.T) {
	path := writeFITS(t, "light_0001.fits", []string{
		"SIMPLE  =                    T / conforms to FITS standard",
		"BITPIX  =                   16",
		"DATE-OBS= '2025-01-25T20:29:07.470867'",
		"EXPTIME =                300.0 / exposure seconds",
		"OBJECT  = 'LDN 1625'",
		"COMMENT this card is carried nowhere",
		"END",
	})

	hdr, err := ReadImageHeader(path)
	if err != nil {
		t.Fatalf("ReadImageHeader() error = %v", err)
	}

	if hdr.DateObs != "2025-01-25T20:29:07.470867" {
		t.Errorf("DateObs = %q, want the raw DATE-OBS value", hdr.DateObs)
	}
	if hdr.ExposureSeconds != 300.0 {
		t.Errorf("ExposureSeconds = %v, want 300", hdr.ExposureSeconds)
	}

	if v, ok := hdr.Cards.Get("OBJECT"); !ok || v != "LDN 1625" {
		t.Errorf("Cards[OBJECT] = (%q, %v), want LDN 1625", v, ok)
	}
	if v, ok := hdr.Cards.Get("BITPIX"); !ok || v != "16" {
		t.Errorf("Cards[BITPIX] = (%q, %v), want 16", v, ok)
	}
	if _, ok := hdr.Cards.Get("COMMENT"); ok {
		t.Error("COMMENT cards must not appear as header fields")
	}

	// Declaration order carried through.
	if hdr.Cards[0].Key != "SIMPLE" || hdr.Cards[2].Key != "DATE-OBS" {
		t.Errorf("card order = %v, want file order", hdr.Cards)
	}
}

func TestReadImageHeader_ExposureFallbackKey(t *testing.T) {
	path := writeFITS(t, "x.fits", []string{
		"SIMPLE  =                    T",
		"EXPOSURE=                 60.5",
		"END",
	})

	hdr, err := ReadImageHeader(path)
	if err != nil {
		t.Fatalf("ReadImageHeader() error = %v", err)
	}
	if hdr.ExposureSeconds != 60.5 {
		t.Errorf("ExposureSeconds = %v, want 60.5 via EXPOSURE", hdr.ExposureSeconds)
	}
}

func TestReadImageHeader_NotFITS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not_fits.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("junk", 1000)), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := ReadImageHeader(path); err == nil {
		t.Error("ReadImageHeader(non-FITS) = nil error, want error")
	}
}

func TestReadImageHeader_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.fits")
	if err := os.WriteFile(path, []byte("SIMPLE  =  T"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := ReadImageHeader(path); err == nil {
		t.Error("ReadImageHeader(truncated) = nil error, want error")
	}
}

func TestParseCard_QuotedStrings(t *testing.T) {
	tests := []struct {
		name    string
		card    string
		wantKey string
		wantVal string
		wantOK  bool
	}{
		{"escaped quote", "OBSERVER= 'O''Neill'", "OBSERVER", "O'Neill", true},
		{"value with comment", "GAIN    =                  252 / e-/ADU", "GAIN", "252", true},
		{"no value indicator", "HISTORY stacked by tool", "", "", false},
		{"blank card", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := tt.card + strings.Repeat(" ", 80-len(tt.card))
			key, val, ok := parseCard(card)
			if ok != tt.wantOK {
				t.Fatalf("parseCard() ok = %v, want %v", ok, tt.wantOK)
			}
			if key != tt.wantKey || val != tt.wantVal {
				t.Errorf("parseCard() = (%q, %q), want (%q, %q)", key, val, tt.wantKey, tt.wantVal)
			}
		})
	}
}

func TestExpandGlobs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt", "c.log"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}

	files, err := ExpandGlobs([]string{filepath.Join(dir, "*.txt"), filepath.Join(dir, "a.txt")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("ExpandGlobs() = %d files, want 2 (deduplicated)", len(files))
	}
	if filepath.Base(files[0]) != "a.txt" || filepath.Base(files[1]) != "b.txt" {
		t.Errorf("ExpandGlobs() order = %v, want sorted", files)
	}

	// Plain paths pass through as literals; empty wildcards do not.
	files, err = ExpandGlobs([]string{filepath.Join(dir, "absent.txt")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(files) != 1 {
		t.Errorf("ExpandGlobs(absent) = %d files, want the literal path", len(files))
	}

	files, err = ExpandGlobs([]string{filepath.Join(dir, "absent_*.txt")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(files) != 0 {
		t.Errorf("ExpandGlobs(absent wildcard) = %v, want no files", files)
	}
}
