// Package click_manager runs the full precision click: capture, locate,
// human-like approach, click, then hand-off and audit.
package click_manager

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"path/filepath"
	"time"

	"webomatic/internal/database"
	"webomatic/internal/grid"
	imageInternal "webomatic/internal/image"
	"webomatic/internal/intent"
	"webomatic/internal/interrupt"
	"webomatic/internal/locator"
	"webomatic/internal/logger"
	"webomatic/internal/metrics"
	"webomatic/internal/replay"
	"webomatic/internal/screenshot"
	"webomatic/internal/trajectory"
)

// PositionFunc returns the current pointer position
type PositionFunc func() (int, int, error)

// Options holds the collaborators of a PrecisionClicker. Interrupts,
// Database and Metrics are optional.
type Options struct {
	Capturer    screenshot.Capturer
	Locator     *locator.Locator
	Synthesizer *trajectory.Synthesizer
	Replayer    *replay.Replayer
	Position    PositionFunc
	Interrupts  *interrupt.InterruptManager
	Database    *database.DatabaseManager
	Metrics     *metrics.Metrics

	IntentPath string
	PreClick   trajectory.Range
	// Cells to grow the zone by when the target is not found; 0 disables the retry
	ExpandCells int
	// When set, zone crops of every lookup are saved here
	DebugDir string
	Rand     *rand.Rand
}

// PrecisionClicker clicks named targets on screen
type PrecisionClicker struct {
	opts   Options
	rng    *rand.Rand
	logger *logger.LoggerManager
}

// NewPrecisionClicker creates a clicker
func NewPrecisionClicker(opts Options, loggerManager *logger.LoggerManager) *PrecisionClicker {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &PrecisionClicker{opts: opts, rng: rng, logger: loggerManager}
}

// Locate captures a frame and finds target in it, retrying once in an
// expanded zone when configured.
func (m *PrecisionClicker) Locate(target string) (locator.MatchResult, screenshot.Frame, error) {
	start := time.Now()
	frame, err := m.opts.Capturer.Capture(image.Rectangle{})
	if err != nil {
		return locator.MatchResult{}, frame, err
	}

	res, err := m.opts.Locator.Locate(target, frame)
	var nf *locator.NotFoundError
	if errors.As(err, &nf) && m.opts.ExpandCells > 0 {
		t, _ := m.opts.Locator.Target(target)
		wider := grid.ExpandZone(nf.Zone, m.opts.ExpandCells, m.opts.Locator.GridFor(frame.Width))
		m.logger.Info("%s not found in %s (best %.3f), retrying in %s", target, nf.Zone, nf.Confidence, wider)
		res, err = m.opts.Locator.LocateIn(t, wider, frame)
	}

	m.observeLookup(target, res, err, time.Since(start))
	m.saveDebugCrop(target, frame)
	return res, frame, err
}

// Click locates target, moves there along a synthesized trajectory and
// clicks. The abort hotkey stops the approach between segments.
func (m *PrecisionClicker) Click(ctx context.Context, target string) (locator.MatchResult, error) {
	res, frame, err := m.Locate(target)
	if err != nil {
		m.audit(target, res, frame, false, false, err)
		return res, err
	}
	m.logger.Info("located %s at (%d, %d) with confidence %.3f", target, res.CenterX, res.CenterY, res.Confidence)

	if err := m.MoveAndClick(ctx, res.CenterX, res.CenterY); err != nil {
		m.audit(target, res, frame, true, false, err)
		return res, err
	}

	if m.opts.IntentPath != "" {
		if err := intent.Write(m.opts.IntentPath, intent.Executed(res)); err != nil {
			m.logger.LogError(err, "write intent")
		}
	}
	m.audit(target, res, frame, true, true, nil)
	m.logger.Info("precision click executed on %s", target)
	return res, nil
}

// MoveAndClick approaches (x, y) from the current pointer position and clicks
func (m *PrecisionClicker) MoveAndClick(ctx context.Context, x, y int) error {
	cx, cy, err := m.opts.Position()
	if err != nil {
		return fmt.Errorf("%w: read pointer position: %v", replay.ErrDriver, err)
	}
	plan := m.opts.Synthesizer.Synthesize(trajectory.Pt(float64(cx), float64(cy)), trajectory.Pt(float64(x), float64(y)))
	m.logger.Debug("moving (%d, %d) -> (%d, %d): %d bursts, %d pauses, %v",
		cx, cy, x, y, plan.Bursts(), plan.Pauses(), plan.TotalDuration())

	if m.opts.Interrupts != nil {
		var done context.CancelFunc
		ctx, done = m.opts.Interrupts.WithAbort(ctx)
		defer done()
	}

	start := time.Now()
	err = m.opts.Replayer.ReplayAndClick(ctx, plan, m.opts.PreClick.Pick(m.rng))
	m.observeReplay(err, time.Since(start))
	return err
}

func (m *PrecisionClicker) observeLookup(target string, res locator.MatchResult, err error, took time.Duration) {
	if m.opts.Metrics == nil {
		return
	}
	var nf *locator.NotFoundError
	switch {
	case err == nil:
		m.opts.Metrics.ObserveLookup(target, metrics.OutcomeFound, res.Confidence, took)
	case errors.As(err, &nf):
		m.opts.Metrics.ObserveLookup(target, metrics.OutcomeNotFound, nf.Confidence, took)
	default:
		m.opts.Metrics.ObserveLookup(target, metrics.OutcomeError, 0, took)
	}
}

func (m *PrecisionClicker) observeReplay(err error, took time.Duration) {
	if m.opts.Metrics == nil {
		return
	}
	switch {
	case err == nil:
		m.opts.Metrics.ObserveReplay(metrics.OutcomeOK, took)
	case errors.Is(err, context.Canceled):
		m.opts.Metrics.ObserveReplay(metrics.OutcomeAborted, took)
	default:
		m.opts.Metrics.ObserveReplay(metrics.OutcomeError, took)
	}
}

func (m *PrecisionClicker) audit(target string, res locator.MatchResult, frame screenshot.Frame, found, clicked bool, err error) {
	if m.opts.Database == nil || !m.opts.Database.Enabled() {
		return
	}
	m.opts.Database.SaveMatchAuditAsync(m.auditRecord(target, res, frame, found, clicked, err))
}

// auditRecord describes one lookup. Zone is the zone actually searched last,
// which differs from the configured one after an expanded retry.
func (m *PrecisionClicker) auditRecord(target string, res locator.MatchResult, frame screenshot.Frame, found, clicked bool, err error) database.MatchAudit {
	a := database.MatchAudit{
		Target:     target,
		CenterX:    res.CenterX,
		CenterY:    res.CenterY,
		Confidence: res.Confidence,
		Found:      found,
		Clicked:    clicked,
	}
	if t, ok := m.opts.Locator.Target(target); ok {
		a.Zone = t.Zone.String()
	}
	if found {
		a.Zone = res.Zone.String()
	}
	var nf *locator.NotFoundError
	if errors.As(err, &nf) {
		a.Zone = nf.Zone.String()
		a.Confidence = nf.Confidence
	}
	if err != nil {
		a.Error = err.Error()
	}
	if frame.Image != nil {
		if crop, cerr := m.opts.Locator.ZoneImage(target, frame); cerr == nil {
			a.ZoneImage, _ = imageInternal.ImageToBytes(crop)
		}
	}
	return a
}

func (m *PrecisionClicker) saveDebugCrop(target string, frame screenshot.Frame) {
	if m.opts.DebugDir == "" || frame.Image == nil {
		return
	}
	crop, err := m.opts.Locator.ZoneImage(target, frame)
	if err != nil {
		return
	}
	name := fmt.Sprintf("zone_%s_%s.png", target, time.Now().Format("20060102_150405.000"))
	if err := imageInternal.SaveImage(crop, filepath.Join(m.opts.DebugDir, name)); err != nil {
		m.logger.LogError(err, "save zone crop")
	}
}
