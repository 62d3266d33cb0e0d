package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/glacier/engine/core"
)

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		key  glfw.Key
		want core.KeyCode
		ok   bool
	}{
		{glfw.KeyEscape, core.KEY_ESCAPE, true},
		{glfw.KeyLeft, core.KEY_LEFT, true},
		{glfw.KeyDown, core.KEY_DOWN, true},
		{glfw.KeyRightShift, core.KEY_SHIFT, true},
		{glfw.KeyW, core.KEY_W, true},
		{glfw.KeyF12, 0, false},
	}
	for _, tt := range tests {
		got, ok := translateKey(tt.key)
		if ok != tt.ok || got != tt.want {
			t.Errorf("key %d: got (%d, %v), want (%d, %v)", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCallbacksQueueEvents(t *testing.T) {
	p := &Platform{}
	p.keyCallback(nil, glfw.KeyUp, 0, glfw.Press, 0)
	p.keyCallback(nil, glfw.KeyUp, 0, glfw.Repeat, 0)
	p.keyCallback(nil, glfw.KeyUp, 0, glfw.Release, 0)
	p.keyCallback(nil, glfw.KeyF12, 0, glfw.Press, 0)
	p.focusCallback(nil, false)
	p.framebufferSizeCallback(nil, 640, 480)

	want := []Event{
		{Kind: EventKey, Key: core.KEY_UP, State: core.KeyPressed},
		{Kind: EventKey, Key: core.KEY_UP, State: core.KeyReleased},
		{Kind: EventFocusLost},
		{Kind: EventResized, Width: 640, Height: 480},
	}
	if len(p.pending) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(p.pending), p.pending)
	}
	for i := range want {
		if p.pending[i] != want[i] {
			t.Errorf("event %d: got %+v, want %+v", i, p.pending[i], want[i])
		}
	}
}
