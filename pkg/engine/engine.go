// Package engine wires the pipeline together: parse the configured
// sources, merge the per-file streams, build the exposure timeline,
// correlate and aggregate.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/config"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/correlate"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/merge"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/parser"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/session"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/stats"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/timestamp"
)

// Engine runs the full correlation pipeline for one configuration.
type Engine struct {
	cfg  *config.Config
	norm *timestamp.Normalizer

	verbose bool
}

// Option configures engine behavior.
type Option func(*Engine)

// WithVerbose enables verbose diagnostics collection.
func WithVerbose(v bool) Option {
	return func(e *Engine) {
		e.verbose = v
	}
}

// New creates an engine from a validated configuration.
func New(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:  cfg,
		norm: cfg.Timestamps.Normalizer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Diagnostics aggregates everything that went sideways during a run.
// Nothing here aborts the pipeline; a run with a populated Diagnostics
// still produced a report.
type Diagnostics struct {
	// ParseFailures counts unparseable records per source kind.
	ParseFailures map[timestamp.SourceKind]int `json:"parse_failures,omitempty"`

	// SkippedRecords counts records dropped for having no usable
	// timestamp.
	SkippedRecords int `json:"skipped_records,omitempty"`

	// InvalidFrames lists exposures rejected by shape validation.
	InvalidFrames []string `json:"invalid_frames,omitempty"`

	// SkippedFiles lists source files dropped because they could not be
	// read or parsed at all. The run continues with the rest.
	SkippedFiles []string `json:"skipped_files,omitempty"`

	// DroppedDuplicates and NearDuplicates come from the merge stage,
	// summed across streams.
	DroppedDuplicates int `json:"dropped_duplicates,omitempty"`
	NearDuplicates    int `json:"near_duplicates,omitempty"`

	// GuideBoundaries marks detected guiding restarts or long pauses.
	GuideBoundaries []merge.Boundary `json:"guide_boundaries,omitempty"`

	// TypicalGuideInterval and MaxGuideGap describe the guide stream
	// cadence observed this run.
	TypicalGuideInterval time.Duration `json:"typical_guide_interval,omitempty"`
	MaxGuideGap          time.Duration `json:"max_guide_gap,omitempty"`

	// OverlapResolutions records truncated exposure windows.
	OverlapResolutions []session.OverlapResolution `json:"overlap_resolutions,omitempty"`

	// UnitMismatches counts guide frames excluded from RMS because
	// their unit was incompatible with the exposure's reference unit.
	UnitMismatches int `json:"unit_mismatches,omitempty"`
}

// Metadata provides context about a pipeline run.
type Metadata struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// Sources lists every file that was read, per kind.
	ImageFiles       []string `json:"image_files,omitempty"`
	GuideFiles       []string `json:"guide_files,omitempty"`
	AcquisitionFiles []string `json:"acquisition_files,omitempty"`
}

// RunResult is the complete pipeline output.
type RunResult struct {
	// Exposures are the per-exposure aggregates, in timeline order.
	Exposures []stats.ExposureStats `json:"exposures"`

	// Session is the run-wide aggregate over every guide frame.
	Session stats.SessionStats `json:"session"`

	// Correlation keeps the full association detail, orphans included.
	Correlation *correlate.Result `json:"correlation"`

	// Timeline is the resolved exposure sequence the run correlated
	// against.
	Timeline *session.Timeline `json:"-"`

	Diagnostics Diagnostics `json:"diagnostics"`
	Metadata    Metadata    `json:"metadata"`
}

// HasIssues reports whether the run produced anything an operator should
// look at: orphans, skips, parse failures, near-duplicates or unit
// mismatches.
func (r *RunResult) HasIssues() bool {
	d := &r.Diagnostics
	for _, n := range d.ParseFailures {
		if n > 0 {
			return true
		}
	}
	return len(r.Correlation.Orphans) > 0 ||
		d.SkippedRecords > 0 ||
		len(d.InvalidFrames) > 0 ||
		len(d.SkippedFiles) > 0 ||
		d.NearDuplicates > 0 ||
		d.UnitMismatches > 0
}

// Run executes the pipeline: expand sources, parse each file, merge the
// streams, build the timeline, correlate and aggregate. Parsing runs one
// goroutine per file; everything downstream of the merge is sequential
// and deterministic.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{
		Diagnostics: Diagnostics{
			ParseFailures: make(map[timestamp.SourceKind]int),
		},
		Metadata: Metadata{StartTime: time.Now()},
	}

	imageFiles, err := parser.ExpandGlobs(e.cfg.Sources.Image)
	if err != nil {
		return nil, fmt.Errorf("expanding image sources: %w", err)
	}
	guideFiles, err := parser.ExpandGlobs(e.cfg.Sources.Guide)
	if err != nil {
		return nil, fmt.Errorf("expanding guide sources: %w", err)
	}
	acqFiles, err := parser.ExpandGlobs(e.cfg.Sources.Acquisition)
	if err != nil {
		return nil, fmt.Errorf("expanding acquisition sources: %w", err)
	}
	res.Metadata.ImageFiles = imageFiles
	res.Metadata.GuideFiles = guideFiles
	res.Metadata.AcquisitionFiles = acqFiles

	headers, guideLogs, acqLogs, err := e.parseAll(ctx, imageFiles, guideFiles, acqFiles, res)
	if err != nil {
		return nil, err
	}

	exposures := e.collectExposures(headers, acqLogs, res)
	guideFrames, guideEvents := e.mergeGuideStreams(guideLogs, res)
	acqEvents := e.mergeAcquisitionEvents(acqLogs, res)

	if e.cfg.ReportUnit == "arcsec" && e.cfg.PixelScaleArcsec > 0 {
		convertToArcsec(guideFrames, e.cfg.PixelScaleArcsec)
	}

	tl, err := session.NewTimeline(exposures)
	if err != nil {
		return nil, fmt.Errorf("building exposure timeline: %w", err)
	}
	res.Timeline = tl
	res.Diagnostics.OverlapResolutions = tl.Resolutions()

	corr := correlate.New(tl).Associate(guideFrames, guideEvents, acqEvents)
	res.Correlation = corr
	res.Diagnostics.SkippedRecords += corr.Skipped

	opts := stats.Options{Compatible: e.cfg.Compatible}
	res.Exposures = make([]stats.ExposureStats, 0, len(corr.Associations))
	for i, assoc := range corr.Associations {
		st := stats.ComputeExposure(assoc, opts)
		st.WindowStart = tl.Frames()[i].Start
		st.WindowEnd = tl.WindowEnd(i)
		res.Diagnostics.UnitMismatches += st.UnitMismatch
		res.Exposures = append(res.Exposures, st)
	}
	res.Session = stats.ComputeSession(guideFrames, opts)

	res.Metadata.EndTime = time.Now()
	return res, nil
}

// parseAll reads every source file, one goroutine per file. Results land
// in per-file slots, so no locking is needed. An unreadable or malformed
// file is skipped with a diagnostic; the run fails only on cancellation
// (the no-exposures case is caught downstream by the timeline).
func (e *Engine) parseAll(ctx context.Context, imageFiles, guideFiles, acqFiles []string, res *RunResult) ([]*parser.ImageHeader, []*parser.GuideLog, []*parser.AcquisitionLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}

	headers := make([]*parser.ImageHeader, len(imageFiles))
	guideLogs := make([]*parser.GuideLog, len(guideFiles))
	acqLogs := make([]*parser.AcquisitionLog, len(acqFiles))
	errs := make([]error, len(imageFiles)+len(guideFiles)+len(acqFiles))

	var wg sync.WaitGroup
	for i, path := range imageFiles {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			headers[i], errs[i] = parser.ReadImageHeader(path)
		}(i, path)
	}
	for i, path := range guideFiles {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			guideLogs[i], errs[len(imageFiles)+i] = parser.ParseGuideLog(path, e.norm)
		}(i, path)
	}
	for i, path := range acqFiles {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			acqLogs[i], errs[len(imageFiles)+len(guideFiles)+i] = parser.ParseAcquisitionLog(path, e.norm)
		}(i, path)
	}
	wg.Wait()

	skip := func(kind timestamp.SourceKind, path string, err error) {
		res.Diagnostics.ParseFailures[kind]++
		res.Diagnostics.SkippedFiles = append(res.Diagnostics.SkippedFiles,
			fmt.Sprintf("%s: %v", filepath.Base(path), err))
	}

	keptHeaders := headers[:0]
	for i, h := range headers {
		if errs[i] != nil {
			skip(timestamp.SourceImage, imageFiles[i], errs[i])
			continue
		}
		keptHeaders = append(keptHeaders, h)
	}

	keptGuide := guideLogs[:0]
	for i, log := range guideLogs {
		if errs[len(imageFiles)+i] != nil {
			skip(timestamp.SourceGuide, guideFiles[i], errs[len(imageFiles)+i])
			continue
		}
		keptGuide = append(keptGuide, log)
	}

	keptAcq := acqLogs[:0]
	for i, log := range acqLogs {
		if errs[len(imageFiles)+len(guideFiles)+i] != nil {
			skip(timestamp.SourceAcquisition, acqFiles[i], errs[len(imageFiles)+len(guideFiles)+i])
			continue
		}
		keptAcq = append(keptAcq, log)
	}

	return keptHeaders, keptGuide, keptAcq, nil
}

// collectExposures builds the exposure list. Image headers are the
// primary source; when no image files are configured or readable, the
// exposure declarations from the acquisition logs serve as fallback.
func (e *Engine) collectExposures(headers []*parser.ImageHeader, acqLogs []*parser.AcquisitionLog, res *RunResult) []session.ImageFrame {
	var frames []session.ImageFrame

	for _, h := range headers {
		frame, err := e.frameFromHeader(h)
		if err != nil {
			res.Diagnostics.ParseFailures[timestamp.SourceImage]++
			res.Diagnostics.InvalidFrames = append(res.Diagnostics.InvalidFrames,
				fmt.Sprintf("%s: %v", filepath.Base(h.Path), err))
			continue
		}
		frames = append(frames, frame)
	}

	if len(frames) == 0 {
		lists := make([][]session.ImageFrame, 0, len(acqLogs))
		for _, log := range acqLogs {
			lists = append(lists, log.Exposures)
		}
		merged := merge.Merge(lists, sameImageFrame, merge.Options{GapMultiplier: e.cfg.GapMultiplier})
		res.Diagnostics.DroppedDuplicates += merged.DroppedDuplicates
		res.Diagnostics.NearDuplicates += merged.NearDuplicates

		for _, f := range merged.Records {
			if err := f.Validate(); err != nil {
				res.Diagnostics.InvalidFrames = append(res.Diagnostics.InvalidFrames, err.Error())
				continue
			}
			frames = append(frames, f)
		}
	}

	return frames
}

// frameFromHeader converts one FITS header into an exposure record.
func (e *Engine) frameFromHeader(h *parser.ImageHeader) (session.ImageFrame, error) {
	start, err := e.norm.Parse(h.DateObs, timestamp.SourceImage)
	if err != nil {
		return session.ImageFrame{}, fmt.Errorf("parsing DATE-OBS: %w", err)
	}

	frame := session.ImageFrame{
		ID:       filepath.Base(h.Path),
		Start:    start,
		Duration: time.Duration(h.ExposureSeconds * float64(time.Second)),
		Header:   h.Cards,
	}
	if err := frame.Validate(); err != nil {
		return session.ImageFrame{}, err
	}
	return frame, nil
}

func (e *Engine) mergeGuideStreams(logs []*parser.GuideLog, res *RunResult) ([]session.GuideFrame, []session.GuideEvent) {
	frameLists := make([][]session.GuideFrame, 0, len(logs))
	eventLists := make([][]session.GuideEvent, 0, len(logs))
	for _, log := range logs {
		frameLists = append(frameLists, log.Frames)
		eventLists = append(eventLists, log.Events)
		res.Diagnostics.ParseFailures[timestamp.SourceGuide] += log.ParseFailures
	}

	opts := merge.Options{GapMultiplier: e.cfg.GapMultiplier}

	frames := merge.Merge(frameLists, parser.SameGuideFrame, opts)
	res.Diagnostics.DroppedDuplicates += frames.DroppedDuplicates
	res.Diagnostics.NearDuplicates += frames.NearDuplicates
	res.Diagnostics.GuideBoundaries = frames.Boundaries
	res.Diagnostics.TypicalGuideInterval = frames.TypicalInterval
	res.Diagnostics.MaxGuideGap = frames.MaxGap

	events := merge.Merge(eventLists, parser.SameGuideEvent, opts)
	res.Diagnostics.DroppedDuplicates += events.DroppedDuplicates
	res.Diagnostics.NearDuplicates += events.NearDuplicates

	return frames.Records, events.Records
}

func (e *Engine) mergeAcquisitionEvents(logs []*parser.AcquisitionLog, res *RunResult) []session.AcquisitionEvent {
	lists := make([][]session.AcquisitionEvent, 0, len(logs))
	for _, log := range logs {
		lists = append(lists, log.Events)
		res.Diagnostics.ParseFailures[timestamp.SourceAcquisition] += log.ParseFailures
	}

	merged := merge.Merge(lists, parser.SameAcquisitionEvent, merge.Options{GapMultiplier: e.cfg.GapMultiplier})
	res.Diagnostics.DroppedDuplicates += merged.DroppedDuplicates
	res.Diagnostics.NearDuplicates += merged.NearDuplicates
	return merged.Records
}

// sameImageFrame reports whether two exposure records at the same start
// time are the same declaration.
func sameImageFrame(a, b session.ImageFrame) bool {
	return a.ID == b.ID && a.Seq == b.Seq && a.Duration == b.Duration
}

// convertToArcsec rescales pixel-unit guide errors in place. Frames
// already in arcseconds are untouched.
func convertToArcsec(frames []session.GuideFrame, scale float64) {
	for i := range frames {
		if frames[i].Unit != session.UnitPixel {
			continue
		}
		frames[i].RAError *= scale
		frames[i].DecError *= scale
		frames[i].Unit = session.UnitArcsec
	}
}
