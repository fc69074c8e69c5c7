//go:build !windows

package interrupt

import (
	hook "github.com/robotn/gohook"
)

// monitorHotkeys registers the hotkeys with gohook and blocks until the hook ends
func (im *InterruptManager) monitorHotkeys() {
	abortKey := im.keys.Abort
	if abortKey == "" {
		abortKey = "q"
	}
	hook.Register(hook.KeyDown, []string{abortKey}, func(e hook.Event) {
		im.abort()
	})

	if trigger := parseCombo(im.keys.Trigger); len(trigger) > 0 {
		hook.Register(hook.KeyDown, trigger, func(e hook.Event) {
			im.trigger()
		})
	}

	s := hook.Start()
	<-hook.Process(s)
	im.logger.Info("hotkey hook stopped")
}
