// Package detector classifies session files by source kind so a session
// directory can be reported on without hand-labeling every file.
package detector

import (
	"bufio"
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/timestamp"
)

// Signature pairs a source kind with the line patterns that identify it.
type Signature struct {
	Kind     timestamp.SourceKind
	Name     string
	patterns []*regexp.Regexp
}

// DefaultSignatures returns the built-in source signatures.
func DefaultSignatures() []*Signature {
	return []*Signature{
		{
			Kind: timestamp.SourceGuide,
			Name: "guide log",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`Guiding Begins at \d{4}-\d{2}-\d{2}`),
				regexp.MustCompile(`^\d+,[\d.]+,"Mount",`),
				regexp.MustCompile(`^PHD2 version`),
			},
		},
		{
			Kind: timestamp.SourceAcquisition,
			Name: "acquisition log",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}\s+Exposure\s+[\d.]+s`),
				regexp.MustCompile(`\[Autorun\|(?:Begin|End)\]`),
				regexp.MustCompile(`Log enabled at \d{4}/\d{2}/\d{2}`),
			},
		},
	}
}

// Result is the classification of one file.
type Result struct {
	Path string

	// Kind is empty when no signature matched.
	Kind timestamp.SourceKind
	Name string

	// MatchCount is the number of sampled lines that matched the
	// winning signature. FITS files always report 1.
	MatchCount int

	// SampledLines is how many lines were examined.
	SampledLines int
}

// Detector samples files and matches them against source signatures.
type Detector struct {
	signatures []*Signature
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a Detector with the default signatures.
func New(opts ...Option) *Detector {
	d := &Detector{
		signatures: DefaultSignatures(),
		sampleSize: 100,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect classifies one file. FITS files are recognized by their magic
// card; text files by sampled-line signature matches.
func (d *Detector) Detect(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, err
	}
	defer f.Close()

	magic := make([]byte, 8)
	n, _ := f.Read(magic)
	if n >= 7 && strings.HasPrefix(string(magic[:n]), "SIMPLE ") {
		return &Result{
			Path:       path,
			Kind:       timestamp.SourceImage,
			Name:       "FITS image",
			MatchCount: 1,
		}, nil
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}

	res := &Result{Path: path}
	counts := make(map[timestamp.SourceKind]int)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() && res.SampledLines < d.sampleSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := scanner.Text()
		res.SampledLines++

		for _, sig := range d.signatures {
			for _, pat := range sig.patterns {
				if pat.MatchString(line) {
					counts[sig.Kind]++
					break
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for _, sig := range d.signatures {
		if counts[sig.Kind] > res.MatchCount {
			res.MatchCount = counts[sig.Kind]
			res.Kind = sig.Kind
			res.Name = sig.Name
		}
	}
	return res, nil
}
