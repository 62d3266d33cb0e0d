package platform

import (
	"runtime"
	"time"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type EventKind int

const (
	EventResized EventKind = iota
	EventKey
	EventFocusGained
	EventFocusLost
	EventCloseRequested
)

// Event is a window event as seen by the frame loop. Width and Height are
// set for EventResized, Key and State for EventKey.
type Event struct {
	Kind   EventKind
	Width  uint32
	Height uint32
	Key    core.KeyCode
	State  core.KeyState
}

type Platform struct {
	Window  *glfw.Window
	pending []Event
}

func New() (*Platform, error) {
	return &Platform{
		Window: nil,
	}, nil
}

func (p *Platform) Startup(applicationName string, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return core.Compatibility("glfw reports no Vulkan loader on this system")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFocusCallback(p.focusCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.Show()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages polls the window system and returns the events queued by the
// callbacks since the last call.
func (p *Platform) PumpMessages() []Event {
	glfw.PollEvents()
	events := p.pending
	p.pending = nil
	return events
}

// WaitMessages blocks until the window system has events or timeout passes,
// then returns them like PumpMessages.
func (p *Platform) WaitMessages(timeout time.Duration) []Event {
	glfw.WaitEventsTimeout(timeout.Seconds())
	events := p.pending
	p.pending = nil
	return events
}

func (p *Platform) InstanceProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surfacePtr, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, core.Wrap(core.KindOpFailed, err, "failed to create window surface")
	}
	return vk.SurfaceFromPointer(surfacePtr), nil
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	width, height := p.Window.GetFramebufferSize()
	return uint32(width), uint32(height)
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	code, ok := translateKey(key)
	if !ok {
		return
	}
	state := core.KeyReleased
	if action == glfw.Press {
		state = core.KeyPressed
	}
	p.pending = append(p.pending, Event{Kind: EventKey, Key: code, State: state})
}

func (p *Platform) focusCallback(w *glfw.Window, focused bool) {
	if focused {
		p.pending = append(p.pending, Event{Kind: EventFocusGained})
		return
	}
	p.pending = append(p.pending, Event{Kind: EventFocusLost})
}

func (p *Platform) closeCallback(w *glfw.Window) {
	// The loop decides when the window actually goes away.
	w.SetShouldClose(false)
	p.pending = append(p.pending, Event{Kind: EventCloseRequested})
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.pending = append(p.pending, Event{Kind: EventResized, Width: uint32(width), Height: uint32(height)})
}
