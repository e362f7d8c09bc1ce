package session

import (
	"errors"
	"sort"
	"time"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/timestamp"
)

// ErrNoExposures is returned when a timeline is built from zero frames.
// Without at least one exposure window, correlation is undefined.
var ErrNoExposures = errors.New("no exposures to build a timeline from")

// OverlapResolution records that two declared exposure windows overlapped
// and how the conflict was resolved: the later-declared exposure keeps the
// overlapping region and the earlier window is truncated.
type OverlapResolution struct {
	// Truncated is the exposure whose window was shortened.
	Truncated string `json:"truncated"`

	// Winner is the exposure that kept the overlapping region.
	Winner string `json:"winner"`

	// End is the truncated window's new upper bound.
	End timestamp.TimeValue `json:"end"`
}

// Timeline is the ordered exposure sequence with resolved, non-overlapping
// windows. It is the windowing reference for correlation.
type Timeline struct {
	frames      []ImageFrame
	ends        []timestamp.TimeValue // resolved window upper bounds
	resolutions []OverlapResolution
}

// NewTimeline builds a timeline from the full exposure list. Frames are
// ordered by start time (declaration order kept on ties); overlapping
// windows are resolved in favor of the later-declared exposure.
func NewTimeline(frames []ImageFrame) (*Timeline, error) {
	if len(frames) == 0 {
		return nil, ErrNoExposures
	}

	ordered := make([]ImageFrame, len(frames))
	copy(ordered, frames)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start.Before(ordered[j].Start)
	})

	tl := &Timeline{
		frames: ordered,
		ends:   make([]timestamp.TimeValue, len(ordered)),
	}

	for i := range ordered {
		end := ordered[i].End()
		if i+1 < len(ordered) {
			next := ordered[i+1].Start
			if next.Before(end) {
				end = next
				tl.resolutions = append(tl.resolutions, OverlapResolution{
					Truncated: ordered[i].ID,
					Winner:    ordered[i+1].ID,
					End:       end,
				})
			}
		}
		tl.ends[i] = end
	}

	return tl, nil
}

// Frames returns the ordered exposure sequence.
func (tl *Timeline) Frames() []ImageFrame {
	return tl.frames
}

// Len returns the number of exposures.
func (tl *Timeline) Len() int {
	return len(tl.frames)
}

// WindowEnd returns the resolved upper bound of exposure i's window,
// which may be earlier than the frame's natural end after overlap
// resolution.
func (tl *Timeline) WindowEnd(i int) timestamp.TimeValue {
	return tl.ends[i]
}

// Resolutions returns the overlap resolutions applied during construction.
func (tl *Timeline) Resolutions() []OverlapResolution {
	return tl.resolutions
}

// Locate returns the index of the exposure whose window contains t, or
// false when t falls before the first exposure, after the last, or in a
// gap between windows.
//
// Windows are half-open [start, end). A timestamp exactly equal to a
// window's upper bound belongs to the next exposure when that window
// starts there; otherwise it belongs to the current exposure (closed at
// the end, so the final guide frame of the last exposure is not dropped).
func (tl *Timeline) Locate(t timestamp.TimeValue) (int, bool) {
	// First frame whose start is after t; the candidate is the one before.
	i := sort.Search(len(tl.frames), func(i int) bool {
		return t.Before(tl.frames[i].Start)
	})
	if i == 0 {
		return 0, false // before the first exposure
	}

	cand := i - 1
	// A timestamp on a boundary shared with the next window already
	// landed on that window in the search above, so equality here means
	// nothing starts at t and the candidate is closed at the end.
	if t.Compare(tl.ends[cand]) <= 0 {
		return cand, true
	}
	return 0, false // in a gap or past the last window
}

// Nearest returns the exposure closest to t and t's distance to that
// exposure's window boundary. Used for orphan diagnostics; distance is 0
// only when t is contained in a window.
func (tl *Timeline) Nearest(t timestamp.TimeValue) (string, time.Duration) {
	if idx, ok := tl.Locate(t); ok {
		return tl.frames[idx].ID, 0
	}

	i := sort.Search(len(tl.frames), func(i int) bool {
		return t.Before(tl.frames[i].Start)
	})

	if i == 0 {
		return tl.frames[0].ID, tl.frames[0].Start.Sub(t)
	}
	if i == len(tl.frames) {
		return tl.frames[i-1].ID, t.Sub(tl.ends[i-1])
	}

	// In a gap: pick the closer of the previous window's end and the
	// next window's start.
	before := t.Sub(tl.ends[i-1])
	after := tl.frames[i].Start.Sub(t)
	if before <= after {
		return tl.frames[i-1].ID, before
	}
	return tl.frames[i].ID, after
}
