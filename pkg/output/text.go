package output

import (
	"context"
	"fmt"
	"io"
	"time"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	fmt.Fprintf(w, "astroreport: %d exposures, %d with guiding, %d orphans, %d parse failures\n",
		report.Summary.ExposureCount,
		report.Summary.ExposuresWithGuiding,
		report.Summary.OrphanCount,
		report.Summary.ParseFailures)
	return nil
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintln(w, "=== Imaging Session Report ===")
	fmt.Fprintln(w)

	for i := range report.Exposures {
		f.formatExposure(i, report, w)
	}

	f.formatSession(report, w)

	if len(report.Orphans) > 0 {
		fmt.Fprintf(w, "Orphaned records: %d\n", len(report.Orphans))
		if f.opts.Verbose {
			for _, o := range report.Orphans {
				fmt.Fprintf(w, "  - %s at %s (nearest exposure %s, %s away)\n",
					o.Kind, o.Time, o.NearestExposure, o.Distance)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d exposures, %d with guiding, %d orphans, %d skipped, %d parse failures\n",
		report.Summary.ExposureCount,
		report.Summary.ExposuresWithGuiding,
		report.Summary.OrphanCount,
		report.Summary.SkippedRecords,
		report.Summary.ParseFailures)

	if f.opts.Verbose {
		f.formatDiagnostics(report, w)
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(time.Millisecond))
	}

	return nil
}

func (f *TextFormatter) formatExposure(i int, report *Report, w io.Writer) {
	st := &report.Exposures[i]
	fmt.Fprintf(w, "[%d] %s\n", i+1, st.ExposureID)

	if !st.HasData {
		fmt.Fprintln(w, "  No guiding data")
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "  Guide frames: %d", st.SampleCount)
	if st.StarLossCount > 0 {
		fmt.Fprintf(w, " (%d star-lost)", st.StarLossCount)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  RMS: RA %.3f  Dec %.3f", st.RMSRA, st.RMSDec)
	if st.Combined {
		fmt.Fprintf(w, "  Total %.3f", st.RMSTotal)
	}
	fmt.Fprintf(w, " %s\n", st.Unit)

	if st.UnitMismatch > 0 {
		fmt.Fprintf(w, "  WARNING: %d frames excluded (unit mismatch), combined RMS skipped\n", st.UnitMismatch)
	}

	if f.opts.Verbose {
		fmt.Fprintf(w, "  Guiding from %s to %s\n", st.FirstGuide, st.LastGuide)
	}

	fmt.Fprintln(w)
}

func (f *TextFormatter) formatSession(report *Report, w io.Writer) {
	s := &report.Session
	if !s.HasData {
		fmt.Fprintln(w, "Session: no guiding data")
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "Session: %d frames", s.SampleCount)
	if s.StarLossCount > 0 {
		fmt.Fprintf(w, " (%d star-lost)", s.StarLossCount)
	}
	fmt.Fprintf(w, ", RMS RA %.3f  Dec %.3f", s.RMSRA, s.RMSDec)
	if s.Combined {
		fmt.Fprintf(w, "  Total %.3f", s.RMSTotal)
	}
	fmt.Fprintf(w, " %s\n", s.Unit)
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatDiagnostics(report *Report, w io.Writer) {
	d := &report.Diagnostics

	if len(d.GuideBoundaries) > 0 {
		fmt.Fprintf(w, "Guide stream boundaries: %d (typical interval %s, max gap %s)\n",
			len(d.GuideBoundaries), d.TypicalGuideInterval, d.MaxGuideGap)
	}
	if len(d.OverlapResolutions) > 0 {
		for _, res := range d.OverlapResolutions {
			fmt.Fprintf(w, "Overlap: %s truncated at %s in favor of %s\n",
				res.Truncated, res.End, res.Winner)
		}
	}
	if d.DroppedDuplicates > 0 {
		fmt.Fprintf(w, "Dropped duplicates: %d\n", d.DroppedDuplicates)
	}
	if d.NearDuplicates > 0 {
		fmt.Fprintf(w, "Near duplicates (kept): %d\n", d.NearDuplicates)
	}
	for _, frame := range d.InvalidFrames {
		fmt.Fprintf(w, "Invalid frame: %s\n", frame)
	}
	for _, file := range d.SkippedFiles {
		fmt.Fprintf(w, "Skipped file: %s\n", file)
	}
}
