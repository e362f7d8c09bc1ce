// Package stats folds associated guide frames into per-exposure and
// session-wide guiding quality metrics.
package stats

import (
	"math"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/correlate"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/session"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/timestamp"
)

// Options configures aggregation.
type Options struct {
	// Compatible reports whether two error units may contribute to the
	// same RMS. Nil means only identical units are compatible.
	Compatible func(a, b session.Unit) bool
}

func (o Options) compatible(a, b session.Unit) bool {
	if o.Compatible != nil {
		return o.Compatible(a, b)
	}
	return a == b
}

// Summary holds RMS guiding metrics over one set of guide frames.
// HasData distinguishes "guiding off or unavailable" from "guiding
// perfect": when false every RMS field is meaningless, not zero.
type Summary struct {
	// SampleCount is the number of frames contributing to RMS.
	// Star-lost frames are excluded from the denominator.
	SampleCount int `json:"sample_count"`

	// StarLossCount is the number of frames flagged star-lost.
	StarLossCount int `json:"star_loss_count"`

	HasData bool `json:"has_data"`

	RMSRA  float64 `json:"rms_ra"`
	RMSDec float64 `json:"rms_dec"`

	// RMSTotal is sqrt(mean(RA^2) + mean(Dec^2)); valid only when
	// Combined is true.
	RMSTotal float64 `json:"rms_total"`
	Combined bool    `json:"combined"`

	// Unit is the unit of the reported RMS values.
	Unit session.Unit `json:"unit,omitempty"`

	// UnitMismatch counts frames excluded because their unit was
	// incompatible with the exposure's reference unit. Nonzero means
	// combination was skipped rather than units silently mixed.
	UnitMismatch int `json:"unit_mismatch,omitempty"`
}

// ExposureStats is the per-exposure aggregate, computed once after
// correlation is final.
type ExposureStats struct {
	ExposureID string `json:"exposure_id"`

	// WindowStart and WindowEnd are the resolved exposure window bounds,
	// filled in by the pipeline from the timeline.
	WindowStart timestamp.TimeValue `json:"window_start"`
	WindowEnd   timestamp.TimeValue `json:"window_end"`

	Summary

	// FirstGuide and LastGuide bound the guide frames seen inside the
	// window, star-lost frames included.
	FirstGuide timestamp.TimeValue `json:"first_guide"`
	LastGuide  timestamp.TimeValue `json:"last_guide"`
}

// SessionStats aggregates over all guide frames of the run combined,
// independent of exposure boundaries.
type SessionStats struct {
	Summary
}

// ComputeExposure folds one exposure's associated guide frames.
func ComputeExposure(assoc correlate.Association, opts Options) ExposureStats {
	st := ExposureStats{ExposureID: assoc.ExposureID}
	st.Summary = foldFrames(assoc.GuideFrames, opts)

	for _, gf := range assoc.GuideFrames {
		if st.FirstGuide.IsZero() || gf.Time.Before(st.FirstGuide) {
			st.FirstGuide = gf.Time
		}
		if st.LastGuide.IsZero() || st.LastGuide.Before(gf.Time) {
			st.LastGuide = gf.Time
		}
	}
	return st
}

// ComputeSession folds the full guide stream into session-wide metrics.
func ComputeSession(frames []session.GuideFrame, opts Options) SessionStats {
	return SessionStats{Summary: foldFrames(frames, opts)}
}

// foldFrames computes RMS over the frames where the star-loss flag is
// false. The first tracked frame's unit is the reference; incompatible
// frames are excluded and counted instead of being mixed in.
func foldFrames(frames []session.GuideFrame, opts Options) Summary {
	var s Summary
	var sumRA2, sumDec2 float64
	unitSet := false

	for _, gf := range frames {
		if gf.StarLost {
			s.StarLossCount++
			continue
		}

		if !unitSet {
			s.Unit = gf.Unit
			unitSet = true
		} else if !opts.compatible(s.Unit, gf.Unit) {
			s.UnitMismatch++
			continue
		}

		sumRA2 += gf.RAError * gf.RAError
		sumDec2 += gf.DecError * gf.DecError
		s.SampleCount++
	}

	if s.SampleCount == 0 {
		// No data: distinguishable from a zero-valued RMS.
		s.Unit = ""
		return s
	}

	n := float64(s.SampleCount)
	s.HasData = true
	s.RMSRA = math.Sqrt(sumRA2 / n)
	s.RMSDec = math.Sqrt(sumDec2 / n)

	if s.UnitMismatch == 0 {
		s.RMSTotal = math.Sqrt(sumRA2/n + sumDec2/n)
		s.Combined = true
	}
	return s
}
