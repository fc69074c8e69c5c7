//go:build windows

package interrupt

import (
	"github.com/moutend/go-hook/pkg/keyboard"
	"github.com/moutend/go-hook/pkg/types"
)

var vkCodes = map[string]types.VKCode{
	"q":        types.VK_Q,
	"capslock": types.VK_CAPITAL,
	"enter":    types.VK_RETURN,
	"esc":      types.VK_ESCAPE,
	"space":    types.VK_SPACE,
}

func isShift(code types.VKCode) bool {
	return code == types.VK_LSHIFT || code == types.VK_RSHIFT || code == types.VK_SHIFT
}

// monitorHotkeys reads the low level keyboard hook until it is uninstalled
func (im *InterruptManager) monitorHotkeys() {
	abortKey, ok := vkCodes[im.keys.Abort]
	if !ok {
		abortKey = types.VK_Q
	}

	triggerKeys := parseCombo(im.keys.Trigger)
	needShift := false
	triggerKey := types.VK_RETURN
	for _, k := range triggerKeys {
		if k == "shift" {
			needShift = true
		} else if code, ok := vkCodes[k]; ok {
			triggerKey = code
		}
	}

	eventChan := make(chan types.KeyboardEvent, 100)
	if err := keyboard.Install(nil, eventChan); err != nil {
		im.logger.LogError(err, "install keyboard hook")
		return
	}
	defer keyboard.Uninstall()

	shiftPressed := false
	for event := range eventChan {
		if isShift(event.VKCode) {
			shiftPressed = event.Message == types.WM_KEYDOWN
			continue
		}
		if event.Message != types.WM_KEYDOWN {
			continue
		}
		if event.VKCode == triggerKey && (!needShift || shiftPressed) {
			im.trigger()
		}
		if event.VKCode == abortKey || event.VKCode == types.VK_CAPITAL {
			im.abort()
		}
	}
}
