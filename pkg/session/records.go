// Package session defines the typed records of an imaging session and the
// exposure timeline built from them.
package session

import (
	"fmt"
	"time"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/timestamp"
)

// Unit tags the axis errors carried by guide frames.
type Unit string

const (
	UnitArcsec Unit = "arcsec"
	UnitPixel  Unit = "pixel"
)

// HeaderField is one key/value pair carried through without interpretation.
type HeaderField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Header is an order-preserving opaque mapping attached to records. The
// core never types its values further.
type Header []HeaderField

// Get returns the first value for key and whether it was present.
func (h Header) Get(key string) (string, bool) {
	for _, f := range h {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Set appends a field, keeping declaration order.
func (h Header) Set(key, value string) Header {
	return append(h, HeaderField{Key: key, Value: value})
}

// ImageFrame is one camera exposure. Its window is the half-open interval
// [Start, Start+Duration).
type ImageFrame struct {
	// ID identifies the exposure: the image filename when known,
	// otherwise a sequence-derived identifier.
	ID string `json:"id"`

	// Seq is the declared sequence number, 0 when the source had none.
	Seq int `json:"seq"`

	Start    timestamp.TimeValue `json:"start"`
	Duration time.Duration       `json:"duration"`

	// Header carries the source header fields, uninterpreted.
	Header Header `json:"header,omitempty"`
}

// End returns the natural upper bound of the exposure window.
func (f *ImageFrame) End() timestamp.TimeValue {
	return f.Start.Add(f.Duration)
}

// When returns the exposure start for merge ordering.
func (f ImageFrame) When() timestamp.TimeValue { return f.Start }

// Validate reports a RecordShapeError for frames the correlator cannot
// window against.
func (f *ImageFrame) Validate() error {
	if f.Start.IsZero() {
		return &RecordShapeError{Record: f.ID, Reason: "missing exposure start timestamp"}
	}
	if f.Duration <= 0 {
		return &RecordShapeError{Record: f.ID, Reason: fmt.Sprintf("non-positive exposure duration %v", f.Duration)}
	}
	return nil
}

// GuideFrame is one periodic correction sample from the autoguider.
type GuideFrame struct {
	Time timestamp.TimeValue `json:"time"`

	// RAError and DecError are signed tracking errors in Unit.
	RAError  float64 `json:"ra_error"`
	DecError float64 `json:"dec_error"`
	Unit     Unit    `json:"unit"`

	// StarLost marks a dropped frame; it still counts toward star-loss
	// totals but is excluded from RMS.
	StarLost bool `json:"star_lost,omitempty"`

	// SNR is the guide-star signal-to-noise ratio, 0 when the log
	// carried none.
	SNR float64 `json:"snr,omitempty"`
}

// When returns the frame timestamp for merge ordering.
func (g GuideFrame) When() timestamp.TimeValue { return g.Time }

// GuideEventKind enumerates discrete guiding events.
type GuideEventKind string

const (
	GuideSettleBegin GuideEventKind = "settle_begin"
	GuideSettleDone  GuideEventKind = "settle_done"
	GuideStarLost    GuideEventKind = "star_lost"
	GuideDither      GuideEventKind = "dither"
	GuideCalibration GuideEventKind = "calibration"
	GuideOther       GuideEventKind = "other"
)

// GuideEvent is a discrete event from the guiding log.
type GuideEvent struct {
	Time   timestamp.TimeValue `json:"time"`
	Kind   GuideEventKind      `json:"kind"`
	Detail string              `json:"detail,omitempty"`
}

// When returns the event timestamp for merge ordering.
func (e GuideEvent) When() timestamp.TimeValue { return e.Time }

// AcquisitionEventKind enumerates acquisition-software events.
type AcquisitionEventKind string

const (
	AcqAutofocusStart  AcquisitionEventKind = "autofocus_start"
	AcqAutofocusResult AcquisitionEventKind = "autofocus_result"
	AcqPlateSolve      AcquisitionEventKind = "plate_solve"
	AcqMeridianFlip    AcquisitionEventKind = "meridian_flip"
	AcqOther           AcquisitionEventKind = "other"
)

// AcquisitionEvent is a discrete event from the acquisition log
// (autofocus, plate solve, meridian flip and so on).
type AcquisitionEvent struct {
	Time timestamp.TimeValue  `json:"time"`
	Kind AcquisitionEventKind `json:"kind"`

	// Fields carries the event payload (HFR, temperature, focuser
	// position...), uninterpreted.
	Fields Header `json:"fields,omitempty"`
}

// When returns the event timestamp for merge ordering.
func (e AcquisitionEvent) When() timestamp.TimeValue { return e.Time }

// RecordShapeError reports a record with a required field missing or out
// of domain. The record is skipped; the run continues.
type RecordShapeError struct {
	Record string
	Reason string
}

// Error implements the error interface.
func (e *RecordShapeError) Error() string {
	if e.Record == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Record, e.Reason)
}
