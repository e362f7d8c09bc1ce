// Package correlate assigns guide frames and discrete events to the
// exposure windows they fall inside.
package correlate

import (
	"time"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/session"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/timestamp"
)

// RecordKind names the record stream an orphan came from.
type RecordKind string

const (
	KindGuideFrame       RecordKind = "guide_frame"
	KindGuideEvent       RecordKind = "guide_event"
	KindAcquisitionEvent RecordKind = "acquisition_event"
)

// Association collects every record windowed into one exposure. Record
// order within each list follows the merged stream order.
type Association struct {
	ExposureID string `json:"exposure_id"`

	GuideFrames       []session.GuideFrame       `json:"guide_frames,omitempty"`
	GuideEvents       []session.GuideEvent       `json:"guide_events,omitempty"`
	AcquisitionEvents []session.AcquisitionEvent `json:"acquisition_events,omitempty"`
}

// Orphan is a record whose timestamp fell outside every exposure window.
// Orphans are retained for diagnostics, never discarded.
type Orphan struct {
	Kind RecordKind          `json:"kind"`
	Time timestamp.TimeValue `json:"time"`

	// NearestExposure and Distance locate the record relative to the
	// closest window boundary.
	NearestExposure string        `json:"nearest_exposure"`
	Distance        time.Duration `json:"distance"`
}

// Result is the correlation output: one association per exposure in
// timeline order, plus orphans and per-record skip counts.
type Result struct {
	Associations []Association `json:"associations"`
	Orphans      []Orphan      `json:"orphans,omitempty"`

	// Skipped counts records without a usable timestamp.
	Skipped int `json:"skipped,omitempty"`
}

// Correlator windows records against a resolved timeline. Each record is
// assigned at most once; assignment depends only on the input order, so
// identical inputs correlate identically.
type Correlator struct {
	timeline *session.Timeline
}

// New creates a Correlator over the given timeline.
func New(tl *session.Timeline) *Correlator {
	return &Correlator{timeline: tl}
}

// Associate windows every record into its exposure. Records whose
// timestamp falls in dead time become orphans; records with no timestamp
// are skipped and counted.
func (c *Correlator) Associate(frames []session.GuideFrame, guideEvents []session.GuideEvent, acqEvents []session.AcquisitionEvent) *Result {
	res := &Result{
		Associations: make([]Association, c.timeline.Len()),
	}
	for i, f := range c.timeline.Frames() {
		res.Associations[i].ExposureID = f.ID
	}

	for _, gf := range frames {
		idx, ok := c.locate(gf.Time, KindGuideFrame, res)
		if ok {
			res.Associations[idx].GuideFrames = append(res.Associations[idx].GuideFrames, gf)
		}
	}
	for _, ev := range guideEvents {
		idx, ok := c.locate(ev.Time, KindGuideEvent, res)
		if ok {
			res.Associations[idx].GuideEvents = append(res.Associations[idx].GuideEvents, ev)
		}
	}
	for _, ev := range acqEvents {
		idx, ok := c.locate(ev.Time, KindAcquisitionEvent, res)
		if ok {
			res.Associations[idx].AcquisitionEvents = append(res.Associations[idx].AcquisitionEvents, ev)
		}
	}

	return res
}

// locate finds the containing exposure or records the miss.
func (c *Correlator) locate(t timestamp.TimeValue, kind RecordKind, res *Result) (int, bool) {
	if t.IsZero() {
		res.Skipped++
		return 0, false
	}

	idx, ok := c.timeline.Locate(t)
	if ok {
		return idx, true
	}

	nearest, dist := c.timeline.Nearest(t)
	res.Orphans = append(res.Orphans, Orphan{
		Kind:            kind,
		Time:            t,
		NearestExposure: nearest,
		Distance:        dist,
	})
	return 0, false
}
