package scene

import (
	"testing"

	"github.com/spaghettifunk/glacier/engine/core"
)

func TestUserControl(t *testing.T) {
	c := NewUserControl()
	steps := []struct {
		key    core.KeyCode
		state  core.KeyState
		dx, dy float32
	}{
		{core.KEY_LEFT, core.KeyPressed, -1, 0},
		{core.KEY_UP, core.KeyPressed, -1, 1},
		{core.KEY_LEFT, core.KeyReleased, 0, 1},
		{core.KEY_RIGHT, core.KeyPressed, 1, 1},
		{core.KEY_DOWN, core.KeyPressed, 1, -1},
		{core.KEY_W, core.KeyPressed, 1, -1},
		{core.KEY_DOWN, core.KeyReleased, 1, 0},
	}
	for i, s := range steps {
		c.ProcessKeyboardEvent(s.key, s.state)
		if c.Dx() != s.dx || c.Dy() != s.dy {
			t.Errorf("step %d: got (%f, %f), want (%f, %f)", i, c.Dx(), c.Dy(), s.dx, s.dy)
		}
	}
}
