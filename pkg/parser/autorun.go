package parser

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/session"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/timestamp"
)

// AcquisitionLog is the parse result of one acquisition (autorun) log.
type AcquisitionLog struct {
	// Path is the source file.
	Path string

	// Exposures are the declared exposure windows, used as the
	// ImageFrame fallback when no image headers are available. The
	// filename line following an exposure line supplies the ID.
	Exposures []session.ImageFrame

	// Events are the discrete acquisition events, in file order.
	Events []session.AcquisitionEvent

	// ParseFailures counts lines whose timestamp no layout matched.
	ParseFailures int
}

const acqTimePat = `(\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2})`

var (
	exposurePat = regexp.MustCompile(`^` + acqTimePat + `\s+Exposure\s+([\d.]+)s\s+image\s+(\d+)#`)
	filenamePat = regexp.MustCompile(`(?i)^(\S.*\.fits?)$`)
)

// acqEventPats maps acquisition log lines to event kinds. The second
// capture group, when present, becomes the event payload detail.
var acqEventPats = []struct {
	pat  *regexp.Regexp
	kind session.AcquisitionEventKind
	name string
}{
	{regexp.MustCompile(acqTimePat + `\s+.*?\[AutoFocus\|Begin\]\s*(.*)`), session.AcqAutofocusStart, "autofocus_begin"},
	{regexp.MustCompile(acqTimePat + `\s+Auto focus succeeded, the focused position is (\d+)`), session.AcqAutofocusResult, "autofocus_succeeded"},
	{regexp.MustCompile(acqTimePat + `\s+.*?\[AutoFocus\|End\]\s*(Auto focus failed.*)`), session.AcqAutofocusResult, "autofocus_failed"},
	{regexp.MustCompile(acqTimePat + `\s+Solve succeeded:\s*(.*)`), session.AcqPlateSolve, "plate_solve_succeeded"},
	{regexp.MustCompile(acqTimePat + `\s+(Plate Solve.*)`), session.AcqPlateSolve, "plate_solve"},
	{regexp.MustCompile(acqTimePat + `\s+.*?\[Meridian Flip\|Begin\]\s*(.*)`), session.AcqMeridianFlip, "meridian_flip_begin"},
	{regexp.MustCompile(acqTimePat + `\s+(Meridian Flip \d+# Start)`), session.AcqMeridianFlip, "meridian_flip_start"},
	{regexp.MustCompile(acqTimePat + `\s+.*?\[Meridian Flip\|End\]\s*(.*)`), session.AcqMeridianFlip, "meridian_flip_end"},
	{regexp.MustCompile(acqTimePat + `\s+.*?\[AutoCenter\|(?:Begin|End)\]\s*(.*)`), session.AcqOther, "auto_center"},
	{regexp.MustCompile(acqTimePat + `\s+(Mount slews to target position.*)`), session.AcqOther, "mount_slew"},
	{regexp.MustCompile(acqTimePat + `\s+((?:Start|Stop) Tracking)`), session.AcqOther, "tracking"},
	{regexp.MustCompile(acqTimePat + `\s+.*?\[Guide\]\s*(.*)`), session.AcqOther, "guide"},
}

// ParseAcquisitionLog reads one acquisition log into exposure records and
// discrete events.
func ParseAcquisitionLog(path string, n *timestamp.Normalizer) (*AcquisitionLog, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fmt.Errorf("opening acquisition log %s: %w", path, err)
	}
	defer f.Close()

	log := &AcquisitionLog{Path: path}
	var pending *session.ImageFrame // exposure awaiting its filename line

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if m := exposurePat.FindStringSubmatch(line); m != nil {
			frame, err := log.newExposure(m, n)
			if err != nil {
				log.ParseFailures++
				continue
			}
			log.Exposures = append(log.Exposures, frame)
			pending = &log.Exposures[len(log.Exposures)-1]
			continue
		}

		if pending != nil {
			if m := filenamePat.FindStringSubmatch(line); m != nil {
				pending.ID = m[1]
				pending = nil
				continue
			}
		}

		if ev, ok, bad := parseAcquisitionEvent(line, n); ok {
			log.Events = append(log.Events, ev)
		} else if bad {
			log.ParseFailures++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading acquisition log %s: %w", path, err)
	}

	return log, nil
}

// newExposure builds the ImageFrame for an exposure line. The ID is a
// sequence placeholder until a filename line replaces it.
func (l *AcquisitionLog) newExposure(m []string, n *timestamp.Normalizer) (session.ImageFrame, error) {
	start, err := n.Parse(m[1], timestamp.SourceAcquisition)
	if err != nil {
		return session.ImageFrame{}, err
	}

	seconds, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return session.ImageFrame{}, err
	}

	seq, err := strconv.Atoi(m[3])
	if err != nil {
		return session.ImageFrame{}, err
	}

	return session.ImageFrame{
		ID:       fmt.Sprintf("image_%04d", seq),
		Seq:      seq,
		Start:    start,
		Duration: time.Duration(seconds * float64(time.Second)),
	}, nil
}

// parseAcquisitionEvent matches a line against the known event patterns.
// Returns (_, false, true) when a pattern matched but the timestamp did not
// parse.
func parseAcquisitionEvent(line string, n *timestamp.Normalizer) (session.AcquisitionEvent, bool, bool) {
	for _, p := range acqEventPats {
		m := p.pat.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		tv, err := n.Parse(m[1], timestamp.SourceAcquisition)
		if err != nil {
			return session.AcquisitionEvent{}, false, true
		}

		fields := session.Header{}.Set("event", p.name)
		if len(m) > 2 && m[2] != "" {
			fields = fields.Set("detail", m[2])
		}

		return session.AcquisitionEvent{Time: tv, Kind: p.kind, Fields: fields}, true, false
	}
	return session.AcquisitionEvent{}, false, false
}

// SameAcquisitionEvent reports whether two events are the same capture.
func SameAcquisitionEvent(a, b session.AcquisitionEvent) bool {
	if !a.Time.Equal(b.Time) || a.Kind != b.Kind || len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i] != b.Fields[i] {
			return false
		}
	}
	return true
}
