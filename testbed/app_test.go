package testbed

import (
	"testing"

	"github.com/spaghettifunk/glacier/engine/core"
)

func TestTestAppTracksEvents(t *testing.T) {
	a := NewTestApp()
	a.OnWindowStateEvent(core.WindowStateEvent{Kind: core.WindowFocusGained})
	if !a.Focused() {
		t.Error("focus not tracked")
	}
	a.OnWindowStateEvent(core.WindowStateEvent{Kind: core.WindowFocusLost})
	if a.Focused() {
		t.Error("focus loss not tracked")
	}

	a.OnRenderCycleEvent(core.RenderingFrame())
	a.OnRenderCycleEvent(core.RenderingFrame())
	a.OnRenderCycleEvent(core.RecreatingSurface(2))
	if a.Frames() != 2 || a.aspectRatio != 2 {
		t.Errorf("frames %d aspect %f", a.Frames(), a.aspectRatio)
	}

	a.OnWindowCustomEvent("textures/terrain.png")
	a.OnWindowCustomEvent("textures/terrain.png")
	if a.changedAssets["textures/terrain.png"] != 2 {
		t.Errorf("asset changes %v", a.changedAssets)
	}
}
