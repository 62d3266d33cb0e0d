package core

import "fmt"

// Window state events are forwarded to the application as they happen.
type WindowStateKind int

const (
	WindowStarting WindowStateKind = iota
	WindowFocusGained
	WindowFocusLost
	WindowClosing
	WindowKey
)

type WindowStateEvent struct {
	Kind WindowStateKind
	// Only set for WindowKey.
	Key   KeyCode
	State KeyState
}

func KeyEvent(key KeyCode, state KeyState) WindowStateEvent {
	return WindowStateEvent{Kind: WindowKey, Key: key, State: state}
}

func (e WindowStateEvent) String() string {
	switch e.Kind {
	case WindowStarting:
		return "Starting"
	case WindowFocusGained:
		return "FocusGained"
	case WindowFocusLost:
		return "FocusLost"
	case WindowClosing:
		return "Closing"
	case WindowKey:
		return fmt.Sprintf("Key(%d, %s)", e.Key, e.State)
	default:
		return "Unknown"
	}
}

// Render cycle events tell the application where the frame loop is.
type RenderCycleKind int

const (
	RenderPrepareUpdate RenderCycleKind = iota
	RenderRenderingFrame
	RenderRecreatingSurface
)

type RenderCycleEvent struct {
	Kind RenderCycleKind
	// Set for RenderPrepareUpdate.
	TimeStepMillis uint64
	// Set for RenderRecreatingSurface, width / height of the new surface.
	AspectRatio float32
}

func PrepareUpdate(ms uint64) RenderCycleEvent {
	return RenderCycleEvent{Kind: RenderPrepareUpdate, TimeStepMillis: ms}
}

func RenderingFrame() RenderCycleEvent {
	return RenderCycleEvent{Kind: RenderRenderingFrame}
}

func RecreatingSurface(aspect float32) RenderCycleEvent {
	return RenderCycleEvent{Kind: RenderRecreatingSurface, AspectRatio: aspect}
}

// User commands are posted to the loop through a message proxy, possibly from
// another goroutine.
type CommandKind int

const (
	CommandCustom CommandKind = iota
	CommandRequestRedraw
	CommandRequestClose
)

type WindowCommand[M any] struct {
	Kind   CommandKind
	Custom M
}

func CustomCommand[M any](m M) WindowCommand[M] {
	return WindowCommand[M]{Kind: CommandCustom, Custom: m}
}

func RequestRedraw[M any]() WindowCommand[M] {
	return WindowCommand[M]{Kind: CommandRequestRedraw}
}

func RequestClose[M any]() WindowCommand[M] {
	return WindowCommand[M]{Kind: CommandRequestClose}
}

type WindowEventHandler[M any] interface {
	OnWindowStateEvent(event WindowStateEvent)
	OnWindowCustomEvent(message M)
}

type RenderEventHandler interface {
	OnRenderCycleEvent(event RenderCycleEvent)
}
