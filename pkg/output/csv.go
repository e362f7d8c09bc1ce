package output

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// CSVFormatter renders the per-exposure table as CSV, one row per
// exposure plus a session-wide footer row.
type CSVFormatter struct {
	opts FormatOptions
}

// NewCSVFormatter creates a new CSV formatter with the given options.
func NewCSVFormatter(opts FormatOptions) *CSVFormatter {
	return &CSVFormatter{opts: opts}
}

// Name returns the format name.
func (f *CSVFormatter) Name() string {
	return "csv"
}

var csvHeader = []string{
	"exposure_id", "window_start", "window_end",
	"sample_count", "star_loss_count",
	"rms_ra", "rms_dec", "rms_total", "unit",
	"first_guide", "last_guide",
}

// Format renders the report as CSV.
func (f *CSVFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for i := range report.Exposures {
		st := &report.Exposures[i]
		row := []string{
			st.ExposureID,
			formatGuideTime(st.WindowStart.Time()),
			formatGuideTime(st.WindowEnd.Time()),
			strconv.Itoa(st.SampleCount),
			strconv.Itoa(st.StarLossCount),
			formatRMS(st.RMSRA, st.HasData),
			formatRMS(st.RMSDec, st.HasData),
			formatRMS(st.RMSTotal, st.HasData && st.Combined),
			string(st.Unit),
			formatGuideTime(st.FirstGuide.Time()),
			formatGuideTime(st.LastGuide.Time()),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	s := &report.Session
	row := []string{
		"SESSION",
		"", "",
		strconv.Itoa(s.SampleCount),
		strconv.Itoa(s.StarLossCount),
		formatRMS(s.RMSRA, s.HasData),
		formatRMS(s.RMSDec, s.HasData),
		formatRMS(s.RMSTotal, s.HasData && s.Combined),
		string(s.Unit),
		"", "",
	}
	if err := cw.Write(row); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// formatRMS renders an RMS value, empty when there is no data behind it.
// An empty cell and "0.000" mean different things.
func formatRMS(v float64, valid bool) string {
	if !valid {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func formatGuideTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
