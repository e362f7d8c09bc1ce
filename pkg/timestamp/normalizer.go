package timestamp

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseError reports that no layout candidate for a source kind matched
// a raw timestamp. The record is skipped; the run continues.
type ParseError struct {
	// Raw is the original timestamp text.
	Raw string

	// Kind is the source stream the text came from.
	Kind SourceKind
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("no %s timestamp layout matched %q", e.Kind, e.Raw)
}

// DefaultCandidates returns the built-in layout chains per source kind,
// most specific first. Image headers use ISO 8601 (DATE-OBS style), guide
// logs use dash-separated local time, acquisition logs use slash-separated
// local time. Configuration may replace any chain.
func DefaultCandidates() map[SourceKind][]string {
	return map[SourceKind][]string{
		SourceImage: {
			"2006-01-02T15:04:05.999999999Z07:00",
			"2006-01-02T15:04:05.999999999",
			"2006-01-02T15:04:05Z",
			"2006-01-02T15:04:05",
		},
		SourceGuide: {
			"2006-01-02 15:04:05.999",
			"2006-01-02 15:04:05",
			"2006/01/02 15:04:05",
		},
		SourceAcquisition: {
			"2006/01/02 15:04:05",
			"2006-01-02 15:04:05",
		},
	}
}

// Normalizer converts raw textual timestamps into TimeValues. For each
// source kind it tries layout candidates in order; the first layout that
// consumes the whole text wins. Zone-less text is interpreted using the
// configured UTC offset.
type Normalizer struct {
	candidates map[SourceKind][]string

	// offset is subtracted from zone-less local times to reach UTC.
	offset time.Duration

	// offsetKnown distinguishes a configured zero offset from no
	// configuration at all; the latter downgrades precision.
	offsetKnown bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithCandidates replaces the layout chain for a source kind.
func WithCandidates(kind SourceKind, layouts []string) Option {
	return func(n *Normalizer) {
		if len(layouts) > 0 {
			n.candidates[kind] = layouts
		}
	}
}

// WithUTCOffset declares the UTC offset of zone-less timestamps.
func WithUTCOffset(offset time.Duration) Option {
	return func(n *Normalizer) {
		n.offset = offset
		n.offsetKnown = true
	}
}

// NewNormalizer creates a Normalizer with the default layout chains.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{candidates: DefaultCandidates()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Parse converts raw text from the given source kind into a TimeValue.
// Returns a *ParseError when no candidate layout matches.
func (n *Normalizer) Parse(raw string, kind SourceKind) (TimeValue, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return TimeValue{}, &ParseError{Raw: raw, Kind: kind}
	}

	for _, layout := range n.candidates[kind] {
		t, err := time.Parse(layout, text)
		if err != nil {
			continue
		}

		prec := PrecisionSecond
		if hasFraction(text) {
			prec = PrecisionSubSecond
		}

		if !layoutHasZone(layout) {
			t = t.Add(-n.offset)
			if !n.offsetKnown && prec == PrecisionSecond {
				prec = PrecisionUnknownOffset
			}
		}

		return New(t, prec), nil
	}

	return TimeValue{}, &ParseError{Raw: raw, Kind: kind}
}

// ParseRelative interprets raw as fractional seconds elapsed since anchor.
// Guide logs timestamp their data lines this way, relative to the
// "Guiding Begins" line.
func (n *Normalizer) ParseRelative(raw string, anchor TimeValue) (TimeValue, error) {
	if anchor.IsZero() {
		return TimeValue{}, &ParseError{Raw: raw, Kind: SourceGuide}
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return TimeValue{}, &ParseError{Raw: raw, Kind: SourceGuide}
	}

	v := anchor.Add(time.Duration(seconds * float64(time.Second)))
	if seconds != float64(int64(seconds)) {
		return New(v.Time(), PrecisionSubSecond), nil
	}
	return v, nil
}

// hasFraction reports whether the text carries a fractional-seconds part:
// a dot followed by a digit anywhere after the time's first colon. Zone
// offsets never carry a dot, so scanning past them is safe.
func hasFraction(text string) bool {
	i := strings.IndexByte(text, ':')
	if i < 0 {
		return false
	}
	for j := i + 1; j+1 < len(text); j++ {
		if text[j] == '.' && text[j+1] >= '0' && text[j+1] <= '9' {
			return true
		}
	}
	return false
}

// layoutHasZone reports whether a Go time layout carries zone information.
func layoutHasZone(layout string) bool {
	return strings.Contains(layout, "Z07") ||
		strings.Contains(layout, "-07") ||
		strings.Contains(layout, "MST") ||
		strings.HasSuffix(layout, "Z")
}
