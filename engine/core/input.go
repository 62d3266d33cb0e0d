package core

import "sync"

// Key code definitions
type KeyCode uint16

const (
	KEY_BACKSPACE KeyCode = 0x08
	KEY_TAB       KeyCode = 0x09
	KEY_ENTER     KeyCode = 0x0D
	KEY_SHIFT     KeyCode = 0x10
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_LEFT      KeyCode = 0x25
	KEY_UP        KeyCode = 0x26
	KEY_RIGHT     KeyCode = 0x27
	KEY_DOWN      KeyCode = 0x28
	KEY_A         KeyCode = 0x41
	KEY_D         KeyCode = 0x44
	KEY_S         KeyCode = 0x53
	KEY_W         KeyCode = 0x57
	KEYS_MAX_KEYS KeyCode = 0xFF
)

type KeyState int

const (
	KeyReleased KeyState = iota
	KeyPressed
)

func (s KeyState) String() string {
	if s == KeyPressed {
		return "Pressed"
	}
	return "Released"
}

// Keyboard state structure
type KeyboardState struct {
	Keys [256]bool
}

// Input state structure that holds current and previous keyboard states
type InputState struct {
	mutex            sync.RWMutex
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
}

var onceInput sync.Once
var inputState *InputState = nil

func InputInitialize() error {
	onceInput.Do(func() {
		inputState = &InputState{}
	})
	LogInfo("Input subsystem initialized.")
	return nil
}

// InputUpdate copies current states to previous states. Call once per frame.
func InputUpdate() {
	if inputState == nil {
		return
	}
	inputState.mutex.Lock()
	inputState.KeyboardPrevious = inputState.KeyboardCurrent
	inputState.mutex.Unlock()
}

func InputIsKeyDown(key KeyCode) bool {
	if inputState == nil {
		return false
	}
	inputState.mutex.RLock()
	defer inputState.mutex.RUnlock()
	return inputState.KeyboardCurrent.Keys[key&0xFF]
}

func InputWasKeyDown(key KeyCode) bool {
	if inputState == nil {
		return false
	}
	inputState.mutex.RLock()
	defer inputState.mutex.RUnlock()
	return inputState.KeyboardPrevious.Keys[key&0xFF]
}

// InputProcessKey records a key transition. Returns true if the state changed.
func InputProcessKey(key KeyCode, state KeyState) bool {
	if inputState == nil {
		return false
	}
	pressed := state == KeyPressed
	inputState.mutex.Lock()
	defer inputState.mutex.Unlock()
	if inputState.KeyboardCurrent.Keys[key&0xFF] == pressed {
		return false
	}
	inputState.KeyboardCurrent.Keys[key&0xFF] = pressed
	return true
}
