// Package output provides report assembly and formatting for pipeline
// results.
package output

import (
	"time"

	"github.com/google/uuid"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/correlate"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/engine"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/stats"
)

// Report is the complete session report.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Exposures are the per-exposure aggregates, in timeline order.
	Exposures []stats.ExposureStats `json:"exposures"`

	// Session is the run-wide aggregate.
	Session stats.SessionStats `json:"session"`

	// Orphans are records that fell outside every exposure window.
	Orphans []correlate.Orphan `json:"orphans,omitempty"`

	// Diagnostics carries everything that went sideways during the run.
	Diagnostics engine.Diagnostics `json:"diagnostics"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics over the whole run.
type Summary struct {
	// ExposureCount is the number of exposures on the timeline.
	ExposureCount int `json:"exposure_count"`

	// ExposuresWithGuiding counts exposures that saw guide frames.
	ExposuresWithGuiding int `json:"exposures_with_guiding"`

	// OrphanCount is the number of records outside every window.
	OrphanCount int `json:"orphan_count"`

	// SkippedRecords counts records without a usable timestamp.
	SkippedRecords int `json:"skipped_records"`

	// ParseFailures is the total unparseable-record count across
	// source kinds.
	ParseFailures int `json:"parse_failures"`
}

// Metadata provides context about the run that produced the report.
type Metadata struct {
	// RunID uniquely identifies this report.
	RunID string `json:"run_id"`

	// ConfigFile is the path to the configuration file used.
	ConfigFile string `json:"config_file,omitempty"`

	// ReportUnit is the unit guiding statistics are reported in.
	ReportUnit string `json:"report_unit"`

	// Source files read, per kind.
	ImageFiles       []string `json:"image_files,omitempty"`
	GuideFiles       []string `json:"guide_files,omitempty"`
	AcquisitionFiles []string `json:"acquisition_files,omitempty"`

	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time `json:"generated_at"`

	// Duration is how long the pipeline run took.
	Duration time.Duration `json:"duration"`
}

// NewReport assembles a Report from pipeline results.
func NewReport(res *engine.RunResult, configFile, reportUnit string) *Report {
	report := &Report{
		Exposures:   res.Exposures,
		Session:     res.Session,
		Orphans:     res.Correlation.Orphans,
		Diagnostics: res.Diagnostics,
		Metadata: Metadata{
			RunID:            uuid.NewString(),
			ConfigFile:       configFile,
			ReportUnit:       reportUnit,
			ImageFiles:       res.Metadata.ImageFiles,
			GuideFiles:       res.Metadata.GuideFiles,
			AcquisitionFiles: res.Metadata.AcquisitionFiles,
			GeneratedAt:      res.Metadata.EndTime,
			Duration:         res.Metadata.EndTime.Sub(res.Metadata.StartTime),
		},
	}

	report.Summary = Summary{
		ExposureCount:  len(res.Exposures),
		OrphanCount:    len(res.Correlation.Orphans),
		SkippedRecords: res.Diagnostics.SkippedRecords,
	}
	for _, st := range res.Exposures {
		if st.HasData {
			report.Summary.ExposuresWithGuiding++
		}
	}
	for _, n := range res.Diagnostics.ParseFailures {
		report.Summary.ParseFailures += n
	}

	return report
}

// HasIssues returns true if the report contains anything an operator
// should look at.
func (r *Report) HasIssues() bool {
	return r.Summary.OrphanCount > 0 ||
		r.Summary.SkippedRecords > 0 ||
		r.Summary.ParseFailures > 0 ||
		len(r.Diagnostics.InvalidFrames) > 0 ||
		len(r.Diagnostics.SkippedFiles) > 0 ||
		r.Diagnostics.NearDuplicates > 0 ||
		r.Diagnostics.UnitMismatches > 0
}
