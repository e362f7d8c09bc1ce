// Package parser reads raw session files (guide logs, acquisition logs,
// image headers) into typed records with normalized timestamps. Records
// that cannot be parsed are skipped and counted; a bad line never aborts
// a file.
package parser

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/session"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/timestamp"
)

// GuideLog is the parse result of one guide log file.
type GuideLog struct {
	// Path is the source file.
	Path string

	// Frames are the periodic correction samples, in file order.
	// Star-lost lines also contribute a flagged frame so per-exposure
	// loss counts survive aggregation.
	Frames []session.GuideFrame

	// Events are the discrete guiding events, in file order.
	Events []session.GuideEvent

	// ParseFailures counts lines whose timestamp no layout matched.
	ParseFailures int
}

var (
	guideBeginsPat = regexp.MustCompile(`Guiding Begins at (\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`)

	// Event lines open with an absolute timestamp: two space-separated
	// date and time tokens.
	guideEventTimePat = regexp.MustCompile(`^(\S+ \S+)`)
)

// guideEventMarkers maps log phrases to event kinds, checked in order.
var guideEventMarkers = []struct {
	marker string
	kind   session.GuideEventKind
}{
	{"Guide star lost", session.GuideStarLost},
	{"Settle Done", session.GuideSettleDone},
	{"Settling complete", session.GuideSettleDone},
	{"Guide Settle", session.GuideSettleBegin},
	{"Settling started", session.GuideSettleBegin},
	{"DITHER", session.GuideDither},
	{"Dither", session.GuideDither},
	{"Calibration", session.GuideCalibration},
}

// ParseGuideLog reads one guide log. Data lines are timestamped in
// seconds relative to the most recent "Guiding Begins" anchor; a file may
// contain several guiding sessions and therefore several anchors. Frames
// seen before any anchor cannot be placed on the timeline and are counted
// as parse failures.
func ParseGuideLog(path string, n *timestamp.Normalizer) (*GuideLog, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fmt.Errorf("opening guide log %s: %w", path, err)
	}
	defer f.Close()

	log := &GuideLog{Path: path}
	var anchor timestamp.TimeValue

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if m := guideBeginsPat.FindStringSubmatch(line); m != nil {
			tv, err := n.Parse(m[1], timestamp.SourceGuide)
			if err != nil {
				log.ParseFailures++
				continue
			}
			anchor = tv
			continue
		}

		if frame, ok, bad := parseGuideDataLine(line, anchor, n); ok {
			log.Frames = append(log.Frames, frame)
			continue
		} else if bad {
			log.ParseFailures++
			continue
		}

		if kind, ok := classifyGuideEvent(line); ok {
			tv, ok := guideEventTime(line, n)
			if !ok {
				log.ParseFailures++
				continue
			}
			log.Events = append(log.Events, session.GuideEvent{
				Time:   tv,
				Kind:   kind,
				Detail: line,
			})
			if kind == session.GuideStarLost {
				log.Frames = append(log.Frames, session.GuideFrame{
					Time:     tv,
					Unit:     session.UnitPixel,
					StarLost: true,
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading guide log %s: %w", path, err)
	}

	return log, nil
}

// parseGuideDataLine handles frame rows of the form
//
//	42,0.576,"Mount",-0.057,0.104,-0.097,0.071,...[,StarMass,SNR,ErrorCode]
//
// Columns 5 and 6 are the raw RA/Dec distances in pixels. Returns
// (frame, true, false) on success, (_, false, true) for a data line that
// could not be placed, and (_, false, false) for a non-data line.
func parseGuideDataLine(line string, anchor timestamp.TimeValue, n *timestamp.Normalizer) (session.GuideFrame, bool, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < 7 || fields[2] != `"Mount"` {
		return session.GuideFrame{}, false, false
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return session.GuideFrame{}, false, false
	}

	tv, err := n.ParseRelative(fields[1], anchor)
	if err != nil {
		return session.GuideFrame{}, false, true
	}

	ra, errRA := strconv.ParseFloat(fields[5], 64)
	dec, errDec := strconv.ParseFloat(fields[6], 64)
	if errRA != nil || errDec != nil {
		return session.GuideFrame{}, false, true
	}

	frame := session.GuideFrame{
		Time:     tv,
		RAError:  ra,
		DecError: dec,
		Unit:     session.UnitPixel,
	}

	// SNR rides in column 17 when the log carries the full field set.
	if len(fields) >= 17 {
		if snr, err := strconv.ParseFloat(fields[16], 64); err == nil {
			frame.SNR = snr
		}
	}

	return frame, true, false
}

// classifyGuideEvent matches a line against the known event phrases.
func classifyGuideEvent(line string) (session.GuideEventKind, bool) {
	for _, m := range guideEventMarkers {
		if strings.Contains(line, m.marker) {
			return m.kind, true
		}
	}
	return "", false
}

// guideEventTime extracts the leading absolute timestamp of an event line.
func guideEventTime(line string, n *timestamp.Normalizer) (timestamp.TimeValue, bool) {
	m := guideEventTimePat.FindStringSubmatch(line)
	if m == nil {
		return timestamp.TimeValue{}, false
	}
	tv, err := n.Parse(m[1], timestamp.SourceGuide)
	if err != nil {
		return timestamp.TimeValue{}, false
	}
	return tv, true
}

// SameGuideFrame reports whether two frames are the same capture, used
// to drop exact duplicates when overlapping log files are merged.
func SameGuideFrame(a, b session.GuideFrame) bool {
	return a == b
}

// SameGuideEvent reports whether two guide events are the same capture.
func SameGuideEvent(a, b session.GuideEvent) bool {
	return a == b
}
