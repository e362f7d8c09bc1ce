// Package merge combines same-kind record lists from multiple log files
// into one chronologically ordered stream with session-boundary markers.
package merge

import (
	"sort"
	"time"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/timestamp"
)

// DefaultGapMultiplier flags a session boundary when the gap between
// consecutive records exceeds this multiple of the stream's typical
// inter-record interval.
const DefaultGapMultiplier = 5.0

// Record is anything carrying a normalized timestamp.
type Record interface {
	When() timestamp.TimeValue
}

// Boundary marks a temporal gap between consecutive records that exceeds
// the configured threshold, typically a guiding restart or a long pause.
// The stream is not split; boundaries are diagnostic markers.
type Boundary struct {
	// Index is the position of the record after the gap.
	Index int `json:"index"`

	Before timestamp.TimeValue `json:"before"`
	After  timestamp.TimeValue `json:"after"`
	Gap    time.Duration       `json:"gap"`
}

// Options configures a merge.
type Options struct {
	// GapMultiplier scales the typical inter-record interval into the
	// session-boundary threshold. Zero means DefaultGapMultiplier.
	GapMultiplier float64
}

// Result is one merged, sorted stream plus its diagnostics.
type Result[T Record] struct {
	// Records is the full chronologically ordered stream. Stable sort:
	// records with equal timestamps keep their arrival order.
	Records []T

	// Boundaries marks detected session boundaries.
	Boundaries []Boundary

	// TypicalInterval is the median inter-record gap observed this run.
	TypicalInterval time.Duration

	// MaxGap is the largest inter-record gap observed.
	MaxGap time.Duration

	// DroppedDuplicates counts exact timestamp+payload duplicates removed
	// (the same capture present in two files).
	DroppedDuplicates int

	// NearDuplicates counts records sharing a timestamp with a different
	// payload. They are kept and surfaced as a warning.
	NearDuplicates int
}

// Merge concatenates per-file record lists, stable-sorts them by
// timestamp, drops exact duplicates and detects session boundaries.
// same reports whether two records with equal timestamps carry the same
// payload; duplicates are only ever compared at equal timestamps.
func Merge[T Record](lists [][]T, same func(a, b T) bool, opts Options) *Result[T] {
	multiplier := opts.GapMultiplier
	if multiplier <= 0 {
		multiplier = DefaultGapMultiplier
	}

	total := 0
	for _, l := range lists {
		total += len(l)
	}

	all := make([]T, 0, total)
	for _, l := range lists {
		all = append(all, l...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].When().Before(all[j].When())
	})

	res := &Result[T]{}
	res.Records = dedupe(all, same, res)
	res.detectBoundaries(multiplier)
	return res
}

// dedupe removes exact duplicates from a sorted stream and counts
// near-duplicates. Only neighbors within the same timestamp tie group
// are compared.
func dedupe[T Record](sorted []T, same func(a, b T) bool, res *Result[T]) []T {
	if len(sorted) == 0 {
		return sorted
	}

	out := sorted[:0]
	for i, rec := range sorted {
		if i == 0 {
			out = append(out, rec)
			continue
		}

		dup := false
		near := false
		// Compare against every kept record sharing this timestamp.
		for j := len(out) - 1; j >= 0 && out[j].When().Equal(rec.When()); j-- {
			if same(out[j], rec) {
				dup = true
				break
			}
			near = true
		}

		if dup {
			res.DroppedDuplicates++
			continue
		}
		if near {
			res.NearDuplicates++
		}
		out = append(out, rec)
	}
	return out
}

// detectBoundaries computes the typical inter-record interval and flags
// gaps exceeding multiplier x typical.
func (r *Result[T]) detectBoundaries(multiplier float64) {
	if len(r.Records) < 2 {
		return
	}

	gaps := make([]time.Duration, 0, len(r.Records)-1)
	for i := 1; i < len(r.Records); i++ {
		gap := r.Records[i].When().Sub(r.Records[i-1].When())
		gaps = append(gaps, gap)
		if gap > r.MaxGap {
			r.MaxGap = gap
		}
	}

	r.TypicalInterval = median(gaps)
	if r.TypicalInterval <= 0 {
		return
	}

	threshold := time.Duration(multiplier * float64(r.TypicalInterval))
	for i, gap := range gaps {
		if gap > threshold {
			r.Boundaries = append(r.Boundaries, Boundary{
				Index:  i + 1,
				Before: r.Records[i].When(),
				After:  r.Records[i+1].When(),
				Gap:    gap,
			})
		}
	}
}

// median returns the middle value of the gaps, averaging the two middle
// values for even counts. The input slice is sorted in place.
func median(gaps []time.Duration) time.Duration {
	if len(gaps) == 0 {
		return 0
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	mid := len(gaps) / 2
	if len(gaps)%2 == 1 {
		return gaps[mid]
	}
	return (gaps[mid-1] + gaps[mid]) / 2
}
