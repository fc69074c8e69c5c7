// Package interrupt turns global hotkeys into a trigger signal and an abort
// signal for running replays.
package interrupt

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"webomatic/internal/config"
	"webomatic/internal/logger"
)

// InterruptManager owns the hotkey hook and its signal channels
type InterruptManager struct {
	abortChan   chan struct{}
	triggerChan chan struct{}
	isRunning   atomic.Bool
	keys        config.HotkeysConfig
	logger      *logger.LoggerManager

	mu      sync.Mutex
	cancels map[int]context.CancelFunc
	nextID  int
}

// NewInterruptManager creates a manager for the configured keys
func NewInterruptManager(keys config.HotkeysConfig, loggerManager *logger.LoggerManager) *InterruptManager {
	return &InterruptManager{
		abortChan:   make(chan struct{}, 1),
		triggerChan: make(chan struct{}, 1),
		keys:        keys,
		logger:      loggerManager,
		cancels:     make(map[int]context.CancelFunc),
	}
}

// StartMonitoring installs the keyboard hook in the background
func (im *InterruptManager) StartMonitoring() {
	im.logger.Info("hotkeys: %s triggers, %s aborts", im.keys.Trigger, im.keys.Abort)
	go im.monitorHotkeys()
}

// AbortChan fires when the abort key is pressed during a run
func (im *InterruptManager) AbortChan() <-chan struct{} {
	return im.abortChan
}

// TriggerChan fires when the trigger combination is pressed
func (im *InterruptManager) TriggerChan() <-chan struct{} {
	return im.triggerChan
}

// SetRunning marks whether a replay is in progress
func (im *InterruptManager) SetRunning(running bool) {
	im.isRunning.Store(running)
}

// IsRunning reports whether a replay is in progress
func (im *InterruptManager) IsRunning() bool {
	return im.isRunning.Load()
}

// WithAbort returns a context cancelled when the abort key is pressed. The
// manager counts as running until the returned cancel is called.
func (im *InterruptManager) WithAbort(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	im.mu.Lock()
	id := im.nextID
	im.nextID++
	im.cancels[id] = cancel
	im.mu.Unlock()
	im.SetRunning(true)

	return ctx, func() {
		im.mu.Lock()
		delete(im.cancels, id)
		idle := len(im.cancels) == 0
		im.mu.Unlock()
		if idle {
			im.SetRunning(false)
		}
		cancel()
	}
}

// abort is called by the platform hook when the abort key goes down
func (im *InterruptManager) abort() {
	if !im.IsRunning() {
		return
	}
	im.logger.Info("abort hotkey pressed")

	im.mu.Lock()
	for _, cancel := range im.cancels {
		cancel()
	}
	im.mu.Unlock()

	select {
	case im.abortChan <- struct{}{}:
	default:
	}
}

// trigger is called by the platform hook when the trigger combination goes down
func (im *InterruptManager) trigger() {
	select {
	case im.triggerChan <- struct{}{}:
	default:
	}
}

// parseCombo splits "shift+enter" into lower-case key names
func parseCombo(combo string) []string {
	var keys []string
	for _, k := range strings.Split(combo, "+") {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
