package engine

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/glacier/engine/config"
	"github.com/spaghettifunk/glacier/engine/containers"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/platform"
	"github.com/spaghettifunk/glacier/engine/renderer/vulkan"
	"github.com/spaghettifunk/glacier/engine/scene"
)

// Application receives the events of a running engine. All calls happen on
// the loop thread.
type Application[M any] interface {
	core.WindowEventHandler[M]
	core.RenderEventHandler
}

type Size struct {
	Width  uint32
	Height uint32
}

func (s Size) AspectRatio() float32 {
	if s.Height == 0 {
		return 0
	}
	return float32(s.Width) / float32(s.Height)
}

// needsRecreate reports whether a resize to next invalidates the swapchain.
func needsRecreate(lastKnown, next Size) bool {
	return lastKnown != next
}

type timeStepSource interface {
	PullTimeStepMillis() uint64
}

type Engine[M any] struct {
	cfg      *config.Config
	queue    *containers.RingQueue[core.WindowCommand[M]]
	stopped  atomic.Bool
	platform *platform.Platform
}

func New[M any](cfg *config.Config) (*Engine[M], error) {
	p, err := platform.New()
	if err != nil {
		return nil, err
	}
	return &Engine[M]{
		cfg:      cfg,
		queue:    containers.NewRingQueue[core.WindowCommand[M]](commandQueueSize),
		platform: p,
	}, nil
}

// NewMessageProxy returns a handle for posting commands to the loop. Sends
// fail with core.ErrEngineStopped once Run has returned.
func (e *Engine[M]) NewMessageProxy() *MessageProxy[M] {
	return &MessageProxy[M]{queue: e.queue, stopped: &e.stopped}
}

// Run opens the window, loads the scene and drives frames until the window
// closes or a fatal error occurs. It must be called from the main goroutine.
func (e *Engine[M]) Run(app Application[M], s scene.Scene) error {
	defer e.stopped.Store(true)

	if err := core.InputInitialize(); err != nil {
		return err
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}
	if err := e.platform.Startup(e.cfg.App.Title, e.cfg.App.Width, e.cfg.App.Height); err != nil {
		return err
	}
	defer e.platform.Shutdown()

	in, err := newInternals(e.platform, vulkan.ContextConfig{
		AppName:    e.cfg.App.Title,
		Validation: e.cfg.Render.Validation,
	}, s)
	if err != nil {
		return err
	}

	width, height := e.platform.FramebufferSize()
	loop := newFrameLoop(app, s, in, core.NewTimer(), Size{Width: width, Height: height})
	app.OnWindowStateEvent(core.WindowStateEvent{Kind: core.WindowStarting})

	for !loop.exiting {
		for _, event := range loop.pump(e.platform) {
			loop.handleWindowEvent(event)
			if loop.exiting {
				break
			}
		}
		if loop.exiting {
			break
		}
		for _, cmd := range e.queue.Drain() {
			loop.handleCommand(cmd)
			if loop.exiting {
				break
			}
		}
		if loop.exiting {
			break
		}
		loop.mainEventsCleared()
		loop.redrawIfRequested()
	}
	return loop.exitErr
}

// frameLoop holds the event handling state of a running engine. It does not
// touch the window, which keeps it usable without one.
type frameLoop[M any] struct {
	app             Application[M]
	scene           scene.Scene
	renderer        frameRenderer
	timer           timeStepSource
	control         *scene.UserControl
	lastKnownSize   Size
	lastPresent     time.Time
	redrawRequested bool
	exiting         bool
	exitErr         error
}

func newFrameLoop[M any](app Application[M], s scene.Scene, r frameRenderer, timer timeStepSource, size Size) *frameLoop[M] {
	return &frameLoop[M]{
		app:           app,
		scene:         s,
		renderer:      r,
		timer:         timer,
		control:       scene.NewUserControl(),
		lastKnownSize: size,
		lastPresent:   time.Now(),
	}
}

// exit tears the renderer down once. A nil err is a clean shutdown.
func (l *frameLoop[M]) exit(err error) {
	if l.exiting {
		return
	}
	l.exiting = true
	l.exitErr = err
	l.renderer.teardown()
}

func (l *frameLoop[M]) fail(err error) {
	core.LogError("fatal: %s", err)
	l.exit(err)
}

// minimized windows have nothing to present to.
func (l *frameLoop[M]) minimized() bool {
	return l.lastKnownSize.Width == 0 || l.lastKnownSize.Height == 0
}

// minimizedWait bounds how long a minimized window blocks on the window
// system, so queued window commands still get drained.
const minimizedWait = 100 * time.Millisecond

type messagePump interface {
	PumpMessages() []platform.Event
	WaitMessages(timeout time.Duration) []platform.Event
}

// pump polls while rendering and blocks while minimized.
func (l *frameLoop[M]) pump(p messagePump) []platform.Event {
	if l.minimized() {
		return p.WaitMessages(minimizedWait)
	}
	return p.PumpMessages()
}

func (l *frameLoop[M]) handleWindowEvent(event platform.Event) {
	switch event.Kind {
	case platform.EventCloseRequested:
		l.app.OnWindowStateEvent(core.WindowStateEvent{Kind: core.WindowClosing})
		l.exit(nil)
	case platform.EventFocusGained:
		l.app.OnWindowStateEvent(core.WindowStateEvent{Kind: core.WindowFocusGained})
	case platform.EventFocusLost:
		l.app.OnWindowStateEvent(core.WindowStateEvent{Kind: core.WindowFocusLost})
	case platform.EventKey:
		if event.Key == core.KEY_ESCAPE && event.State == core.KeyPressed {
			l.exit(nil)
			return
		}
		core.InputProcessKey(event.Key, event.State)
		l.control.ProcessKeyboardEvent(event.Key, event.State)
		l.app.OnWindowStateEvent(core.KeyEvent(event.Key, event.State))
	case platform.EventResized:
		next := Size{Width: event.Width, Height: event.Height}
		if !needsRecreate(l.lastKnownSize, next) {
			return
		}
		l.lastKnownSize = next
		if l.minimized() {
			core.LogDebug("window minimized, rendering paused")
			return
		}
		l.recreate()
	}
}

func (l *frameLoop[M]) handleCommand(cmd core.WindowCommand[M]) {
	switch cmd.Kind {
	case core.CommandRequestClose:
		l.exit(nil)
	case core.CommandRequestRedraw:
		l.redrawRequested = true
	case core.CommandCustom:
		l.app.OnWindowCustomEvent(cmd.Custom)
	}
}

func (l *frameLoop[M]) recreate() {
	l.app.OnRenderCycleEvent(core.RecreatingSurface(l.lastKnownSize.AspectRatio()))
	if err := l.renderer.recreateSurface(); err != nil {
		l.fail(err)
	}
}

func (l *frameLoop[M]) mainEventsCleared() {
	ms := l.timer.PullTimeStepMillis()
	l.app.OnRenderCycleEvent(core.PrepareUpdate(ms))
	l.scene.Update(ms, l.control.Dx(), l.control.Dy())
	core.InputUpdate()
	l.redrawRequested = true
}

func (l *frameLoop[M]) redrawIfRequested() {
	if !l.redrawRequested || l.exiting || l.minimized() {
		return
	}
	l.redrawRequested = false

	l.app.OnRenderCycleEvent(core.RenderingFrame())
	err := l.renderer.renderFrame()
	switch {
	case errors.Is(err, core.ErrSwapchainOutOfDate):
		l.recreate()
	case err != nil:
		l.fail(err)
	default:
		now := time.Now()
		if core.MetricsUpdate(float64(now.Sub(l.lastPresent).Microseconds()) / 1000.0) {
			fps, frameTime := core.MetricsFrame()
			core.LogDebug("%.0f fps, %.2f ms/frame", fps, frameTime)
		}
		l.lastPresent = now
	}
}
