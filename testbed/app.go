// Package testbed is the application driving the stock scene from main.
package testbed

import (
	"github.com/spaghettifunk/glacier/engine"
	"github.com/spaghettifunk/glacier/engine/core"
)

// AssetChanged is the custom message posted when a watched asset changes.
// It carries the path relative to the asset directory.
type AssetChanged string

// TestApp logs what the engine reports and counts frames.
type TestApp struct {
	focused       bool
	frames        uint64
	aspectRatio   float32
	changedAssets map[AssetChanged]int
}

var _ engine.Application[AssetChanged] = (*TestApp)(nil)

func NewTestApp() *TestApp {
	return &TestApp{
		changedAssets: make(map[AssetChanged]int),
	}
}

func (a *TestApp) OnWindowStateEvent(event core.WindowStateEvent) {
	switch event.Kind {
	case core.WindowStarting:
		core.LogInfo("testbed started")
	case core.WindowFocusGained:
		a.focused = true
	case core.WindowFocusLost:
		a.focused = false
	case core.WindowClosing:
		core.LogInfo("testbed closing after %d frames", a.frames)
	case core.WindowKey:
		core.LogDebug("key %d %s", event.Key, event.State)
	}
}

func (a *TestApp) OnWindowCustomEvent(message AssetChanged) {
	a.changedAssets[message]++
	// Static resources are loaded once; a restart picks the change up.
	core.LogInfo("asset %s changed, restart to apply", message)
}

func (a *TestApp) OnRenderCycleEvent(event core.RenderCycleEvent) {
	switch event.Kind {
	case core.RenderRenderingFrame:
		a.frames++
	case core.RenderRecreatingSurface:
		a.aspectRatio = event.AspectRatio
		core.LogDebug("recreating surface, aspect ratio %.3f", event.AspectRatio)
	}
}

func (a *TestApp) Focused() bool {
	return a.focused
}

func (a *TestApp) Frames() uint64 {
	return a.frames
}
