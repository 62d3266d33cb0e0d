package platform

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/glacier/engine/core"
)

var keyMap = map[glfw.Key]core.KeyCode{
	glfw.KeyBackspace: core.KEY_BACKSPACE,
	glfw.KeyTab:       core.KEY_TAB,
	glfw.KeyEnter:     core.KEY_ENTER,
	glfw.KeyLeftShift: core.KEY_SHIFT,
	glfw.KeyEscape:    core.KEY_ESCAPE,
	glfw.KeySpace:     core.KEY_SPACE,
	glfw.KeyLeft:      core.KEY_LEFT,
	glfw.KeyUp:        core.KEY_UP,
	glfw.KeyRight:     core.KEY_RIGHT,
	glfw.KeyDown:      core.KEY_DOWN,
	glfw.KeyA:         core.KEY_A,
	glfw.KeyD:         core.KEY_D,
	glfw.KeyS:         core.KEY_S,
	glfw.KeyW:         core.KEY_W,
}

// translateKey maps a glfw key to the engine key code. Keys the engine does
// not know about are dropped.
func translateKey(key glfw.Key) (core.KeyCode, bool) {
	if key == glfw.KeyRightShift {
		return core.KEY_SHIFT, true
	}
	code, ok := keyMap[key]
	return code, ok
}
