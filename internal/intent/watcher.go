package intent

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"webomatic/internal/logger"
	"webomatic/internal/metrics"
)

// DefaultPollInterval is how often the intent file is re-read
const DefaultPollInterval = 2 * time.Second

// ClickFunc performs the click for a safe intent
type ClickFunc func(ctx context.Context, x, y int) error

// Watcher executes safe intents as they appear in a file. Each record is
// handled once, keyed by its timestamp.
type Watcher struct {
	path     string
	interval time.Duration
	click    ClickFunc
	logger   *logger.LoggerManager
	metrics  *metrics.Metrics

	lastTimestamp string
}

// NewWatcher creates a watcher on path. interval <= 0 selects DefaultPollInterval.
func NewWatcher(path string, interval time.Duration, click ClickFunc, log *logger.LoggerManager) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{path: path, interval: interval, click: click, logger: log}
}

// WithMetrics counts handled intents on m
func (w *Watcher) WithMetrics(m *metrics.Metrics) *Watcher {
	w.metrics = m
	return w
}

// Run polls until ctx is cancelled. File change notifications trigger an
// extra check between polls when the platform supports them.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching for click intents in %s", w.path)

	var events <-chan fsnotify.Event
	if fw, err := fsnotify.NewWatcher(); err != nil {
		w.logger.Warn("file notifications unavailable, polling only: %v", err)
	} else {
		defer fw.Close()
		if err := fw.Add(filepath.Dir(w.path)); err != nil {
			w.logger.Warn("cannot watch %s, polling only: %v", filepath.Dir(w.path), err)
		} else {
			events = fw.Events
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("intent watcher stopped")
			return nil
		case <-ticker.C:
			w.Check(ctx)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == filepath.Clean(w.path) && ev.Has(fsnotify.Create|fsnotify.Write) {
				w.Check(ctx)
			}
		}
	}
}

// Check reads the file once and executes its record if it is new and safe.
// It reports whether a click was executed.
func (w *Watcher) Check(ctx context.Context) bool {
	rec, err := Read(w.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.LogError(err, "error reading intent")
		}
		return false
	}
	if rec.Timestamp == w.lastTimestamp {
		return false
	}
	w.lastTimestamp = rec.Timestamp

	if rec.SafetyStatus == SafetyExecuted {
		w.logger.Debug("intent %q was already executed", rec.Intent)
		w.observe(metrics.OutcomeSkipped)
		return false
	}

	x, y, err := rec.Center()
	if err != nil {
		w.logger.Warn("intent %q: no valid coordinates found", rec.Intent)
		w.observe(metrics.OutcomeError)
		return false
	}
	w.logger.Info("intent %q: target (%d, %d), safety %s", rec.Intent, x, y, rec.SafetyStatus)

	if !rec.Safe() {
		w.logger.Info("intent %q requires manual confirmation, not clicking", rec.Intent)
		w.observe(metrics.OutcomeSkipped)
		return false
	}

	if err := w.click(ctx, x, y); err != nil {
		w.logger.LogError(err, "intent click failed")
		if errors.Is(err, context.Canceled) {
			w.observe(metrics.OutcomeAborted)
		} else {
			w.observe(metrics.OutcomeError)
		}
		return false
	}
	w.logger.Info("click executed at (%d, %d)", x, y)
	w.observe(metrics.OutcomeOK)
	return true
}

func (w *Watcher) observe(outcome string) {
	if w.metrics != nil {
		w.metrics.ObserveIntent(outcome)
	}
}
