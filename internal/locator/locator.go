// Package locator resolves a named target to screen coordinates: it maps
// the target's grid zone onto a captured frame, crops it and matches the
// target's reference image inside the crop.
package locator

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"

	"webomatic/internal/grid"
	imageInternal "webomatic/internal/image"
	"webomatic/internal/logger"
	"webomatic/internal/matcher"
	"webomatic/internal/screenshot"
)

var (
	// ErrUnknownTarget is returned for a target name that is not configured
	ErrUnknownTarget = errors.New("unknown target")

	// ErrMissingReferenceImage is returned when a target's reference image cannot be loaded
	ErrMissingReferenceImage = errors.New("missing reference image")

	// ErrTargetNotFound is returned when the best match scores below the target threshold
	ErrTargetNotFound = errors.New("target not found")
)

// Target is a named UI element: where to look and what it looks like
type Target struct {
	Name               string
	Zone               grid.Zone
	ReferenceImagePath string
	Threshold          float64
}

// MatchResult is a successful lookup in absolute screen coordinates
type MatchResult struct {
	Target         string    `json:"target"`
	CenterX        int       `json:"center_x"`
	CenterY        int       `json:"center_y"`
	Confidence     float64   `json:"confidence"`
	Zone           grid.Zone `json:"-"`
	ZoneRect       grid.Rect `json:"zone_rect"`
	TemplateWidth  int       `json:"template_width"`
	TemplateHeight int       `json:"template_height"`
}

// NotFoundError carries the best score seen so callers can decide whether to
// retry in a wider zone. It unwraps to ErrTargetNotFound.
type NotFoundError struct {
	Target     string
	Zone       grid.Zone
	Confidence float64
	Threshold  float64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %s in %s (best %.3f < %.2f)", ErrTargetNotFound, e.Target, e.Zone, e.Confidence, e.Threshold)
}

func (e *NotFoundError) Unwrap() error {
	return ErrTargetNotFound
}

// ImageLoader loads reference images
type ImageLoader interface {
	Load(path string) (image.Image, error)
}

// Locator holds the target table and the reference grid. It keeps no state
// derived from frames, so one Locator serves frames of any size.
type Locator struct {
	targets        map[string]Target
	grid           grid.Config
	referenceWidth int
	loader         ImageLoader
	logger         *logger.LoggerManager
}

// New creates a locator. referenceWidth is the frame width the grid was calibrated on.
func New(targets []Target, gridCfg grid.Config, referenceWidth int, loader ImageLoader, log *logger.LoggerManager) *Locator {
	m := make(map[string]Target, len(targets))
	for _, t := range targets {
		if t.Threshold <= 0 {
			t.Threshold = matcher.DefaultThreshold
		}
		t.Name = NormalizeName(t.Name)
		m[t.Name] = t
	}
	return &Locator{
		targets:        m,
		grid:           gridCfg,
		referenceWidth: referenceWidth,
		loader:         loader,
		logger:         log,
	}
}

// NormalizeName folds a target name to the form targets are keyed by.
// Config keys arrive lower-cased, so lookups are case-insensitive.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Target looks up a configured target
func (l *Locator) Target(name string) (Target, bool) {
	t, ok := l.targets[NormalizeName(name)]
	return t, ok
}

// Targets returns the configured target names, sorted
func (l *Locator) Targets() []string {
	names := make([]string, 0, len(l.targets))
	for name := range l.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GridFor returns the grid rescaled to a frame of the given width
func (l *Locator) GridFor(frameWidth int) grid.Config {
	return grid.Rescale(l.grid, frameWidth, l.referenceWidth)
}

// Locate finds the named target in frame
func (l *Locator) Locate(name string, frame screenshot.Frame) (MatchResult, error) {
	t, ok := l.targets[NormalizeName(name)]
	if !ok {
		return MatchResult{}, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
	return l.LocateIn(t, t.Zone, frame)
}

// LocateIn matches t inside zone instead of the target's own zone. Callers
// use it with grid.ExpandZone to retry after a NotFoundError.
func (l *Locator) LocateIn(t Target, zone grid.Zone, frame screenshot.Frame) (MatchResult, error) {
	cfg := l.GridFor(frame.Width)

	rect, err := grid.ZoneToRect(zone, cfg)
	if err != nil {
		return MatchResult{}, fmt.Errorf("target %s: %w", t.Name, err)
	}

	crop, clamped := imageInternal.CropClamped(frame.Image, rect.Rectangle())
	if clamped {
		l.logger.Info("zone %s of %s clamped from %v to %v", zone, t.Name, rect.Rectangle(), crop.Bounds())
	}
	if crop.Bounds().Empty() {
		return MatchResult{}, &NotFoundError{Target: t.Name, Zone: zone, Threshold: t.Threshold}
	}

	ref, err := l.loader.Load(t.ReferenceImagePath)
	if err != nil {
		return MatchResult{}, fmt.Errorf("%w: %s: %v", ErrMissingReferenceImage, t.ReferenceImagePath, err)
	}

	m, ok, err := matcher.FindBestMatch(matcher.NewGray(crop), matcher.NewGray(ref), t.Threshold)
	if err != nil {
		return MatchResult{}, fmt.Errorf("target %s in %s: %w", t.Name, zone, err)
	}
	l.logger.Debug("target %s: best %.3f at (%d, %d) in %s (scale %.3f)", t.Name, m.Confidence, m.CenterX, m.CenterY, zone, cfg.Scale)
	if !ok {
		return MatchResult{}, &NotFoundError{Target: t.Name, Zone: zone, Confidence: m.Confidence, Threshold: t.Threshold}
	}

	return MatchResult{
		Target:         t.Name,
		CenterX:        m.CenterX,
		CenterY:        m.CenterY,
		Confidence:     m.Confidence,
		Zone:           zone,
		ZoneRect:       rect,
		TemplateWidth:  m.TemplateWidth,
		TemplateHeight: m.TemplateHeight,
	}, nil
}

// ZoneImage returns the crop of frame covered by the target's zone, for
// audits and debugging.
func (l *Locator) ZoneImage(name string, frame screenshot.Frame) (image.Image, error) {
	t, ok := l.targets[NormalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
	rect, err := grid.ZoneToRect(t.Zone, l.GridFor(frame.Width))
	if err != nil {
		return nil, err
	}
	crop, _ := imageInternal.CropClamped(frame.Image, rect.Rectangle())
	return crop, nil
}
