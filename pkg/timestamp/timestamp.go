// Package timestamp normalizes heterogeneous session timestamps into a
// single comparable UTC timeline.
package timestamp

import (
	"encoding/json"
	"time"
)

// Precision records how much the source format actually told us about
// an instant. It never affects ordering between distinct instants, only
// how ties and zone-less text are interpreted.
type Precision int

const (
	// PrecisionSecond means the source carried whole seconds only.
	PrecisionSecond Precision = iota

	// PrecisionSubSecond means the source carried a fractional-seconds part.
	PrecisionSubSecond

	// PrecisionUnknownOffset means the source carried no zone information
	// and no UTC offset was configured; the instant was assumed UTC.
	PrecisionUnknownOffset
)

// String returns the precision name used in diagnostics and reports.
func (p Precision) String() string {
	switch p {
	case PrecisionSecond:
		return "second"
	case PrecisionSubSecond:
		return "sub-second"
	case PrecisionUnknownOffset:
		return "unknown-offset"
	default:
		return "invalid"
	}
}

// SourceKind identifies which record stream a raw timestamp came from.
// Each kind has its own ordered list of layout candidates.
type SourceKind string

const (
	SourceImage       SourceKind = "image"
	SourceGuide       SourceKind = "guide"
	SourceAcquisition SourceKind = "acquisition"
)

// TimeValue is an absolute UTC instant with its source precision.
// The zero TimeValue is "no timestamp" and compares before everything.
// Values are immutable once constructed.
type TimeValue struct {
	t    time.Time
	prec Precision
}

// New creates a TimeValue, normalizing the instant to UTC.
func New(t time.Time, prec Precision) TimeValue {
	return TimeValue{t: t.UTC(), prec: prec}
}

// Time returns the underlying UTC instant.
func (v TimeValue) Time() time.Time {
	return v.t
}

// Precision returns the source precision tag.
func (v TimeValue) Precision() Precision {
	return v.prec
}

// IsZero reports whether this is the "no timestamp" value.
func (v TimeValue) IsZero() bool {
	return v.t.IsZero()
}

// Before reports whether v is strictly earlier than o.
func (v TimeValue) Before(o TimeValue) bool {
	return v.t.Before(o.t)
}

// Equal reports whether v and o name the same instant, regardless of precision.
func (v TimeValue) Equal(o TimeValue) bool {
	return v.t.Equal(o.t)
}

// Compare returns -1, 0, or +1 ordering v against o. Ties between equal
// instants are allowed; callers that need a total order break them by
// stream arrival order via a stable sort.
func (v TimeValue) Compare(o TimeValue) int {
	return v.t.Compare(o.t)
}

// Sub returns the duration v - o.
func (v TimeValue) Sub(o TimeValue) time.Duration {
	return v.t.Sub(o.t)
}

// Add returns a new TimeValue offset by d, keeping the precision tag.
func (v TimeValue) Add(d time.Duration) TimeValue {
	return TimeValue{t: v.t.Add(d), prec: v.prec}
}

// String renders the instant in RFC 3339 form with nanoseconds when present.
func (v TimeValue) String() string {
	if v.IsZero() {
		return ""
	}
	return v.t.Format(time.RFC3339Nano)
}

// MarshalJSON encodes the instant as an RFC 3339 string for report output.
func (v TimeValue) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + v.t.Format(time.RFC3339Nano) + `"`), nil
}

// UnmarshalJSON decodes an RFC 3339 string or null. Sub-second text is
// tagged PrecisionSubSecond, whole seconds PrecisionSecond.
func (v *TimeValue) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*v = TimeValue{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return err
	}

	prec := PrecisionSecond
	if t.Nanosecond() != 0 {
		prec = PrecisionSubSecond
	}
	*v = New(t, prec)
	return nil
}
