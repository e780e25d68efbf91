// Package pipeline sequences detection, stabilization, area-of-interest
// tracking, enhancement and crop extraction for each frame, and gates
// frames so that at most one is analyzed at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"barcode-tracker/internal/config"
	"barcode-tracker/internal/correct"
	"barcode-tracker/internal/crop"
	"barcode-tracker/internal/decode"
	"barcode-tracker/internal/detect"
	"barcode-tracker/internal/enhance"
	"barcode-tracker/internal/frame"
	"barcode-tracker/internal/monitoring"
	"barcode-tracker/internal/roi"
	"barcode-tracker/pkg/geometry"
)

// Output is one crop ready for decoding.
type Output struct {
	crop.Crop
	Scale   float64  `json:"scale"`
	Applied []string `json:"applied,omitempty"` // enhancement steps that ran
	Angle   float64  `json:"angle"`             // skew removed, degrees
}

// Result is the outcome of analyzing one frame.
type Result struct {
	Detections     []detect.Candidate `json:"detections"`
	Crops          []Output           `json:"crops"`
	Strategy       Strategy           `json:"strategy"`
	Level          enhance.Level      `json:"-"`
	Window         geometry.Box       `json:"window"` // area the detector analyzed
	ROIState       roi.Phase          `json:"roi_state"`
	Enhanced       bool               `json:"enhanced"`
	ProcessingTime time.Duration      `json:"processing_time"`

	// Set by Submit when a decoder is configured.
	Decoded *decode.Result `json:"decoded,omitempty"`
	Source  *Output        `json:"-"`

	Err error `json:"-"`
}

// Pipeline is the per-session orchestrator. Process and the read accessors
// are safe for concurrent use; Submit additionally enforces single flight.
type Pipeline struct {
	mu      sync.Mutex
	opts    Options
	session *Session

	decoder decode.Decoder
	now     func() time.Time

	busy         atomic.Bool
	lastAccepted atomic.Int64 // unix nanos of the last accepted frame
	dropped      atomic.Int64
}

// New creates a pipeline. dec may be nil, in which case Submit delivers
// results without decoding and callers report outcomes via RecordOutcome.
func New(opts Options, dec decode.Decoder) *Pipeline {
	return &Pipeline{
		opts:    opts,
		session: NewSession(opts),
		decoder: dec,
		now:     time.Now,
	}
}

// Options returns the current options.
func (p *Pipeline) Options() Options {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts
}

// SetOptions swaps configuration, keeping tracks and counters.
func (p *Pipeline) SetOptions(opts Options) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts = opts
	p.session.configure(opts)
}

// ApplySettings is SetOptions(FromSettings(s)), suitable as a config
// watcher callback.
func (p *Pipeline) ApplySettings(s *config.Settings) {
	p.SetOptions(FromSettings(s))
	monitoring.Logf("pipeline: settings applied (session %s)", p.SessionID())
}

// SessionID returns the current session identity.
func (p *Pipeline) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.ID.String()
}

// Process analyzes one frame synchronously. Internal failures, including
// panics from native code, come back as an empty Result with Err set.
func (p *Pipeline) Process(f *frame.Frame) *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.process(f)
}

func (p *Pipeline) process(f *frame.Frame) (res *Result) {
	start := p.now()
	strategy := StrategyFast
	defer func() {
		if r := recover(); r != nil {
			res = p.failed(strategy, fmt.Errorf("pipeline: panic: %v", r))
		}
	}()

	if f == nil || f.Lum == nil || f.Width <= 0 || f.Height <= 0 {
		return p.failed(strategy, fmt.Errorf("%w: nil or empty frame", frame.ErrInvalidFrame))
	}

	s := p.session
	level := enhance.LevelNone
	if p.opts.AdaptiveStrategy {
		level = s.Escalator.Level()
		strategy = StrategyFor(level, p.opts.MultiScale)
	}
	plan := p.opts.Enhance.PlanFor(level)

	window := p.window(f, plan)
	cands := detect.DetectInWindow(f.Lum, window, p.opts.Detect)

	var dets []detect.Candidate
	if p.opts.StabilizerEnabled {
		dets = s.Stabilizer.Update(cands)
	} else {
		dets = detect.Rank(cands)
	}

	phase := roi.Idle
	if p.opts.ROIEnabled {
		// Fed from raw detections: coasting stabilizer tracks are not sightings.
		var best *geometry.Box
		if len(cands) > 0 {
			b := cands[0].Box
			best = &b
		}
		phase = s.ROI.Update(best, f.Width, f.Height).Phase
	}

	crops := p.opts.Crop.Build(f.Lum, dets)
	outputs, err := p.refine(crops, plan, strategy)
	if err != nil {
		return p.failed(strategy, err)
	}

	return &Result{
		Detections:     dets,
		Crops:          outputs,
		Strategy:       strategy,
		Level:          level,
		Window:         window,
		ROIState:       phase,
		Enhanced:       strategy != StrategyFast || anyApplied(outputs),
		ProcessingTime: p.now().Sub(start),
	}
}

// window picks the region the detector analyzes: the tracked area of
// interest when one is active, otherwise the masked frame, narrowed to the
// escalation crop when the level asks for one.
func (p *Pipeline) window(f *frame.Frame, plan enhance.Plan) geometry.Box {
	base := p.opts.Window.Box(f.Width, f.Height)
	if p.opts.ROIEnabled && !p.session.ROI.ShouldFullScan() {
		if cur, ok := p.session.ROI.Current(); ok {
			if w := cur.Intersect(base); !w.Empty() {
				return w
			}
		}
	}
	if plan.CropRatio > 0 {
		c := enhance.CenterCropBox(base.Width(), base.Height(), plan.CropRatio)
		return c.Offset(base.Left, base.Top)
	}
	return base
}

// refine enhances and deskews each crop according to the plan, and adds
// rescaled copies under StrategyMultiScale.
func (p *Pipeline) refine(crops []crop.Crop, plan enhance.Plan, strategy Strategy) ([]Output, error) {
	outputs := make([]Output, 0, len(crops))
	deskew := p.opts.RotationCorrection && plan.Level == enhance.LevelFull

	for _, c := range crops {
		out := Output{Crop: c, Scale: 1}

		cropPlan := plan
		if cropPlan.Empty() && p.opts.QualityBoost && enhance.Assess(c.Image).NeedsEnhancement() {
			cropPlan = p.opts.Enhance.PlanFor(enhance.LevelContrast)
		}
		if !cropPlan.Empty() {
			er, err := enhance.Apply(c.Image, cropPlan, p.opts.Enhance)
			if err != nil {
				return nil, fmt.Errorf("failed to enhance crop %d: %w", c.SourceIndex, err)
			}
			out.Image = er.Image
			out.Applied = er.Applied
		}

		if deskew {
			cr, err := correct.AutoCorrect(out.Image, geometry.Box{}, p.opts.Correct)
			if err != nil {
				return nil, fmt.Errorf("failed to correct crop %d: %w", c.SourceIndex, err)
			}
			if cr.Corrected {
				out.Image = cr.Image
				out.Angle = cr.Angle
				out.Applied = append(out.Applied, "deskew")
			}
		}
		outputs = append(outputs, out)

		if strategy != StrategyMultiScale {
			continue
		}
		scaled, err := enhance.MultiScale(out.Image, p.opts.MultiScaleFactors)
		if err != nil {
			return nil, fmt.Errorf("failed to rescale crop %d: %w", c.SourceIndex, err)
		}
		for i, img := range scaled {
			extra := out
			extra.Image = img
			extra.Scale = p.opts.MultiScaleFactors[i]
			outputs = append(outputs, extra)
		}
	}
	return outputs, nil
}

func anyApplied(outputs []Output) bool {
	for _, o := range outputs {
		if len(o.Applied) > 0 {
			return true
		}
	}
	return false
}

func (p *Pipeline) failed(strategy Strategy, err error) *Result {
	monitoring.Logf("pipeline: frame failed: %v", err)
	return &Result{Strategy: strategy, ROIState: p.session.ROI.Phase(), Err: err}
}

// RecordOutcome feeds one scan result back: success resets the failure
// streak, failure advances escalation.
func (p *Pipeline) RecordOutcome(success bool, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(p.session, success, elapsed)
}

// recordFor records an outcome against the session that produced it. It is
// discarded when Reset has started a new session since.
func (p *Pipeline) recordFor(s *Session, success bool, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s != p.session {
		monitoring.Logf("pipeline: outcome for session %s discarded after reset", s.ID)
		return
	}
	p.record(s, success, elapsed)
}

func (p *Pipeline) record(s *Session, success bool, elapsed time.Duration) {
	before := s.Escalator.Level()
	after := s.Escalator.Record(success)
	s.stats.record(success, elapsed)
	if before != after {
		monitoring.Logf("pipeline: escalation %s -> %s (%d failures)", before, after, s.Escalator.State().Failures)
	}
}

// Submit runs one frame through the gate. It returns false without doing
// any work when another frame is in flight or the previous accepted frame
// was less than MinInterval ago. Accepted frames are analyzed on the
// calling goroutine; decoding, if configured, continues on its own
// goroutine, which records the outcome, releases the gate and then calls
// onResult. onResult may be nil.
func (p *Pipeline) Submit(ctx context.Context, plane frame.Plane, onResult func(*Result)) bool {
	if !p.busy.CompareAndSwap(false, true) {
		p.dropped.Add(1)
		return false
	}

	now := p.now()
	last := p.lastAccepted.Load()
	if last != 0 && now.Sub(time.Unix(0, last)) < p.Options().MinInterval {
		p.busy.Store(false)
		p.dropped.Add(1)
		return false
	}
	p.lastAccepted.Store(now.UnixNano())

	p.mu.Lock()
	session := p.session
	p.mu.Unlock()

	var res *Result
	f, err := frame.Extract(plane)
	if err != nil {
		p.mu.Lock()
		res = p.failed(StrategyFast, err)
		p.mu.Unlock()
	} else {
		res = p.Process(f)
	}

	if p.decoder == nil || res.Err != nil {
		p.busy.Store(false)
		if onResult != nil {
			onResult(res)
		}
		return true
	}

	go func() {
		start := p.now()
		decoded, src, err := DecodeFirst(ctx, p.decoder, res.Crops)
		switch {
		case err == nil:
			res.Decoded = &decoded
			res.Source = src
		case !errors.Is(err, decode.ErrNotFound):
			monitoring.Logf("pipeline: decode failed: %v", err)
		}
		p.recordFor(session, err == nil, res.ProcessingTime+p.now().Sub(start))
		p.busy.Store(false)
		if onResult != nil {
			onResult(res)
		}
	}()
	return true
}

// DecodeFirst feeds outputs to dec in order until one decodes.
func DecodeFirst(ctx context.Context, dec decode.Decoder, outputs []Output) (decode.Result, *Output, error) {
	for i := range outputs {
		res, err := dec.Decode(ctx, outputs[i].Image)
		if err == nil {
			return res, &outputs[i], nil
		}
		if !errors.Is(err, decode.ErrNotFound) {
			return decode.Result{}, nil, err
		}
	}
	return decode.Result{}, nil, decode.ErrNotFound
}

// Busy reports whether a frame is in flight.
func (p *Pipeline) Busy() bool { return p.busy.Load() }

// ShouldFullScan reports whether the next frame needs a full-frame scan.
func (p *Pipeline) ShouldFullScan() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.opts.ROIEnabled || p.session.ROI.ShouldFullScan()
}

// StableROI returns the area of interest averaged over recent sightings, or
// false when nothing is being tracked.
func (p *Pipeline) StableROI() (geometry.Box, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.ROI.StableROI()
}

// Strategy returns the strategy the next frame would use.
func (p *Pipeline) Strategy() Strategy {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.opts.AdaptiveStrategy {
		return StrategyFast
	}
	return StrategyFor(p.session.Escalator.Level(), p.opts.MultiScale)
}

// Stats returns a telemetry snapshot.
func (p *Pipeline) Stats() Stats {
	strategy := p.Strategy()

	p.mu.Lock()
	defer p.mu.Unlock()
	st := Stats{
		SessionID:     p.session.ID.String(),
		Strategy:      strategy,
		ROIState:      p.session.ROI.Phase(),
		DroppedFrames: p.dropped.Load(),
	}
	p.session.stats.fill(&st)
	return st
}

// Reset starts a new session: tracks, area of interest, failure streak and
// statistics are discarded. A frame still in flight keeps the gate until its
// decode finishes, and its outcome is not counted in the new session.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = NewSession(p.opts)
	p.lastAccepted.Store(0)
	p.dropped.Store(0)
}
