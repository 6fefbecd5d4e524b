package core

import "fmt"

type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next tick.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Keyboard key pressed. Data is a *KeyEvent.
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02

	// Keyboard key released. Data is a *KeyEvent.
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03

	// Window framebuffer resized. Data is a *SystemEvent.
	EVENT_CODE_RESIZED SystemEventCode = 0x04

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type KeyEvent struct {
	KeyCode  Key
	AltDown  bool
	CtrlDown bool
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

// Key codes forwarded from the platform layer. Only the keys the runtime
// itself reacts to are named; everything else passes through untouched.
type Key int

const (
	KEY_ESCAPE Key = 256
	KEY_ENTER  Key = 257
	KEY_SPACE  Key = 32
	KEY_P      Key = 80
	KEY_V      Key = 86
)

type OnEventCallback func(context EventContext)

type eventSystem struct {
	registered map[SystemEventCode][]OnEventCallback
}

var state *eventSystem

func EventSystemInitialize() bool {
	if state != nil {
		return false
	}
	state = &eventSystem{
		registered: make(map[SystemEventCode][]OnEventCallback),
	}
	return true
}

func EventSystemShutdown() error {
	if state == nil {
		return fmt.Errorf("event system is not initialized")
	}
	state = nil
	return nil
}

// EventRegister subscribes the callback to the given code. Callbacks fire in
// registration order, synchronously on the firing goroutine, which keeps the
// frame loop single-threaded.
func EventRegister(code SystemEventCode, callback OnEventCallback) error {
	if state == nil {
		return fmt.Errorf("event system is not initialized")
	}
	state.registered[code] = append(state.registered[code], callback)
	return nil
}

func EventFire(context EventContext) {
	if state == nil {
		return
	}
	for _, cb := range state.registered[context.Type] {
		cb(context)
	}
}
