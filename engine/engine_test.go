package engine

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spaghettifunk/glacier/engine/containers"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/platform"
	"github.com/spaghettifunk/glacier/engine/renderer/vulkan"
	"github.com/spaghettifunk/glacier/engine/resource"
)

type fakeRenderer struct {
	recreates  int
	frames     int
	teardowns  int
	frameErrs  []error
	recreateFn func() error
}

func (r *fakeRenderer) recreateSurface() error {
	r.recreates++
	if r.recreateFn != nil {
		return r.recreateFn()
	}
	return nil
}

func (r *fakeRenderer) renderFrame() error {
	r.frames++
	if len(r.frameErrs) == 0 {
		return nil
	}
	err := r.frameErrs[0]
	r.frameErrs = r.frameErrs[1:]
	return err
}

func (r *fakeRenderer) teardown() {
	r.teardowns++
}

type fakeApp struct {
	window []core.WindowStateEvent
	render []core.RenderCycleEvent
	custom []string
}

func (a *fakeApp) OnWindowStateEvent(event core.WindowStateEvent) {
	a.window = append(a.window, event)
}

func (a *fakeApp) OnWindowCustomEvent(message string) {
	a.custom = append(a.custom, message)
}

func (a *fakeApp) OnRenderCycleEvent(event core.RenderCycleEvent) {
	a.render = append(a.render, event)
}

func (a *fakeApp) renderKinds() []core.RenderCycleKind {
	kinds := make([]core.RenderCycleKind, len(a.render))
	for i, e := range a.render {
		kinds[i] = e.Kind
	}
	return kinds
}

type fakeScene struct {
	updates  int
	lastStep uint64
	lastDx   float32
	lastDy   float32
}

func (s *fakeScene) ResourceBearer() resource.RawResourceBearer { return nil }

func (s *fakeScene) RecordCommands(*vulkan.CommandBuffer, *vulkan.Registry, int) error { return nil }

func (s *fakeScene) Update(ms uint64, dx, dy float32) {
	s.updates++
	s.lastStep, s.lastDx, s.lastDy = ms, dx, dy
}

func (s *fakeScene) PrepareFrameRender(*vulkan.VkContext, int, *vulkan.Registry) error { return nil }

type fixedTimer uint64

func (t fixedTimer) PullTimeStepMillis() uint64 { return uint64(t) }

func newTestLoop(t *testing.T) (*frameLoop[string], *fakeApp, *fakeScene, *fakeRenderer) {
	t.Helper()
	if err := core.MetricsInitialize(); err != nil {
		t.Fatal(err)
	}
	app, s, r := &fakeApp{}, &fakeScene{}, &fakeRenderer{}
	return newFrameLoop[string](app, s, r, fixedTimer(16), Size{Width: 800, Height: 600}), app, s, r
}

func TestResizeToSameSizeIsNoop(t *testing.T) {
	loop, app, _, r := newTestLoop(t)
	loop.handleWindowEvent(platform.Event{Kind: platform.EventResized, Width: 800, Height: 600})
	if r.recreates != 0 || len(app.render) != 0 {
		t.Errorf("expected no recreation, got %d recreates and events %v", r.recreates, app.render)
	}
}

func TestResizeRecreatesSurface(t *testing.T) {
	loop, app, _, r := newTestLoop(t)
	loop.handleWindowEvent(platform.Event{Kind: platform.EventResized, Width: 1024, Height: 768})
	if r.recreates != 1 {
		t.Fatalf("expected one recreation, got %d", r.recreates)
	}
	if len(app.render) != 1 || app.render[0].Kind != core.RenderRecreatingSurface {
		t.Fatalf("expected a recreating surface event, got %v", app.render)
	}
	if got := app.render[0].AspectRatio; got != float32(1024)/float32(768) {
		t.Errorf("aspect ratio %f", got)
	}
	if loop.lastKnownSize != (Size{Width: 1024, Height: 768}) {
		t.Errorf("last known size %+v", loop.lastKnownSize)
	}
}

func TestMinimizedWindowSkipsRendering(t *testing.T) {
	loop, _, _, r := newTestLoop(t)
	loop.handleWindowEvent(platform.Event{Kind: platform.EventResized, Width: 0, Height: 0})
	loop.mainEventsCleared()
	loop.redrawIfRequested()
	if r.recreates != 0 || r.frames != 0 {
		t.Fatalf("minimized window: %d recreates, %d frames", r.recreates, r.frames)
	}
	loop.handleWindowEvent(platform.Event{Kind: platform.EventResized, Width: 800, Height: 600})
	if r.recreates != 1 {
		t.Errorf("restoring the window must recreate the surface, got %d", r.recreates)
	}
}

func TestOutOfDateTriggersRecreation(t *testing.T) {
	loop, app, _, r := newTestLoop(t)
	r.frameErrs = []error{core.ErrSwapchainOutOfDate}

	loop.mainEventsCleared()
	loop.redrawIfRequested()
	if r.recreates != 1 || loop.exiting {
		t.Fatalf("expected recovery by recreation, got %d recreates, exiting %v", r.recreates, loop.exiting)
	}
	want := []core.RenderCycleKind{core.RenderPrepareUpdate, core.RenderRenderingFrame, core.RenderRecreatingSurface}
	got := app.renderKinds()
	if len(got) != len(want) {
		t.Fatalf("events %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d is %d, want %d", i, got[i], want[i])
		}
	}
	if app.render[2].AspectRatio != float32(800)/float32(600) {
		t.Errorf("recreation must use the last known size, aspect %f", app.render[2].AspectRatio)
	}

	loop.mainEventsCleared()
	loop.redrawIfRequested()
	if r.frames != 2 || r.recreates != 1 {
		t.Errorf("next frame: %d frames, %d recreates", r.frames, r.recreates)
	}
}

func TestFatalErrorTearsDownOnce(t *testing.T) {
	loop, _, _, r := newTestLoop(t)
	boom := core.OpFailed("device lost")
	r.frameErrs = []error{boom}

	loop.mainEventsCleared()
	loop.redrawIfRequested()
	if !loop.exiting || !errors.Is(loop.exitErr, boom) {
		t.Fatalf("expected exit with %v, got exiting %v err %v", boom, loop.exiting, loop.exitErr)
	}
	loop.handleCommand(core.RequestClose[string]())
	loop.redrawIfRequested()
	if r.teardowns != 1 || r.frames != 1 {
		t.Errorf("expected one teardown and no further frames, got %d teardowns %d frames", r.teardowns, r.frames)
	}
}

func TestFailedRecreationIsFatal(t *testing.T) {
	loop, _, _, r := newTestLoop(t)
	r.recreateFn = func() error { return core.OpFailed("no surface") }
	loop.handleWindowEvent(platform.Event{Kind: platform.EventResized, Width: 640, Height: 480})
	if !loop.exiting || loop.exitErr == nil || r.teardowns != 1 {
		t.Errorf("expected fatal exit, got exiting %v err %v teardowns %d", loop.exiting, loop.exitErr, r.teardowns)
	}
}

func TestKeysDriveControlAndEscapeExits(t *testing.T) {
	loop, app, s, r := newTestLoop(t)
	loop.handleWindowEvent(platform.Event{Kind: platform.EventKey, Key: core.KEY_RIGHT, State: core.KeyPressed})
	loop.mainEventsCleared()
	if s.updates != 1 || s.lastStep != 16 || s.lastDx != 1 || s.lastDy != 0 {
		t.Errorf("scene update got step %d dx %f dy %f", s.lastStep, s.lastDx, s.lastDy)
	}
	if len(app.window) != 1 || app.window[0] != core.KeyEvent(core.KEY_RIGHT, core.KeyPressed) {
		t.Errorf("key event not forwarded: %v", app.window)
	}

	loop.handleWindowEvent(platform.Event{Kind: platform.EventKey, Key: core.KEY_ESCAPE, State: core.KeyPressed})
	if !loop.exiting || loop.exitErr != nil || r.teardowns != 1 {
		t.Errorf("escape must exit cleanly, got exiting %v err %v teardowns %d", loop.exiting, loop.exitErr, r.teardowns)
	}
}

func TestWindowStateEvents(t *testing.T) {
	loop, app, _, r := newTestLoop(t)
	loop.handleWindowEvent(platform.Event{Kind: platform.EventFocusLost})
	loop.handleWindowEvent(platform.Event{Kind: platform.EventFocusGained})
	loop.handleWindowEvent(platform.Event{Kind: platform.EventCloseRequested})

	want := []core.WindowStateKind{core.WindowFocusLost, core.WindowFocusGained, core.WindowClosing}
	if len(app.window) != len(want) {
		t.Fatalf("events %v", app.window)
	}
	for i := range want {
		if app.window[i].Kind != want[i] {
			t.Errorf("event %d is %s", i, app.window[i])
		}
	}
	if !loop.exiting || r.teardowns != 1 {
		t.Error("close request must tear down and exit")
	}
}

func TestCommands(t *testing.T) {
	loop, app, _, r := newTestLoop(t)
	loop.handleCommand(core.CustomCommand("reload"))
	if len(app.custom) != 1 || app.custom[0] != "reload" {
		t.Errorf("custom message not delivered: %v", app.custom)
	}
	loop.handleCommand(core.RequestRedraw[string]())
	loop.redrawIfRequested()
	if r.frames != 1 {
		t.Errorf("redraw request must render a frame, got %d", r.frames)
	}
	loop.handleCommand(core.RequestClose[string]())
	if !loop.exiting || r.teardowns != 1 {
		t.Error("close command must tear down and exit")
	}
}

func TestMessageProxy(t *testing.T) {
	var stopped atomic.Bool
	queue := containers.NewRingQueue[core.WindowCommand[int]](2)
	proxy := &MessageProxy[int]{queue: queue, stopped: &stopped}

	if err := proxy.SendCustom(7); err != nil {
		t.Fatal(err)
	}
	if err := proxy.RequestRedraw(); err != nil {
		t.Fatal(err)
	}
	if err := proxy.RequestClose(); !errors.Is(err, containers.ErrQueueFull) {
		t.Errorf("expected a full queue, got %v", err)
	}
	cmds := queue.Drain()
	if len(cmds) != 2 || cmds[0].Kind != core.CommandCustom || cmds[0].Custom != 7 || cmds[1].Kind != core.CommandRequestRedraw {
		t.Errorf("unexpected commands %+v", cmds)
	}

	stopped.Store(true)
	if err := proxy.RequestClose(); !errors.Is(err, core.ErrEngineStopped) {
		t.Errorf("expected ErrEngineStopped, got %v", err)
	}
}

type fakePump struct {
	polls   int
	waits   int
	timeout time.Duration
}

func (p *fakePump) PumpMessages() []platform.Event {
	p.polls++
	return nil
}

func (p *fakePump) WaitMessages(timeout time.Duration) []platform.Event {
	p.waits++
	p.timeout = timeout
	return nil
}

func TestMinimizedWindowWaitsForEvents(t *testing.T) {
	loop, _, _, _ := newTestLoop(t)
	p := &fakePump{}
	loop.pump(p)
	if p.polls != 1 || p.waits != 0 {
		t.Fatalf("visible window: %d polls, %d waits", p.polls, p.waits)
	}

	loop.handleWindowEvent(platform.Event{Kind: platform.EventResized, Width: 0, Height: 0})
	loop.pump(p)
	if p.polls != 1 || p.waits != 1 {
		t.Fatalf("minimized window: %d polls, %d waits", p.polls, p.waits)
	}
	if p.timeout <= 0 {
		t.Errorf("minimized wait must be bounded, got %v", p.timeout)
	}

	loop.handleWindowEvent(platform.Event{Kind: platform.EventResized, Width: 800, Height: 600})
	loop.pump(p)
	if p.polls != 2 {
		t.Errorf("restored window must poll again, got %d polls", p.polls)
	}
}
