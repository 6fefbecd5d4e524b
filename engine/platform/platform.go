package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/magma/engine/config"
	"github.com/spaghettifunk/magma/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the application window. Resize and mode-switch notifications
// arrive on glfw callbacks and are latched into edge-triggered request flags
// that the frame orchestrator consumes once per tick.
type Platform struct {
	Window *glfw.Window

	saveName string
	state    config.WindowState

	resizeRequest     bool
	switchModeRequest bool
}

func New(saveName string) *Platform {
	return &Platform{
		saveName: saveName,
		state:    config.DefaultWindowState(),
	}
}

func (p *Platform) SaveName() string {
	return p.saveName
}

// Startup initializes glfw and creates the window from the given persisted
// state. A nil state uses defaults.
func (p *Platform) Startup(applicationName string, state *config.WindowState) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	if state != nil {
		p.state = *state
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.
	glfw.WindowHint(glfw.Resizable, boolHint(p.state.Resizable))
	glfw.WindowHint(glfw.Decorated, boolHint(p.state.Decorated))
	glfw.WindowHint(glfw.Floating, boolHint(p.state.Floating))
	glfw.WindowHint(glfw.Maximized, boolHint(p.state.Maximized))

	var monitor *glfw.Monitor
	width, height := p.state.Width, p.state.Height
	if p.state.Fullscreen {
		monitor = p.monitor()
		mode := monitor.GetVideoMode()
		width, height = mode.Width, mode.Height
	}

	window, err := glfw.CreateWindow(width, height, applicationName, monitor, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)

	if !p.state.Fullscreen {
		p.Window.SetPos(p.state.X, p.state.Y)
	}
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

func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

func (p *Platform) CloseRequest() bool {
	return p.Window != nil && p.Window.ShouldClose()
}

func (p *Platform) Iconified() bool {
	return p.Window != nil && p.Window.GetAttrib(glfw.Iconified) == glfw.True
}

// TakeResizeRequest reports and clears the latched resize flag.
func (p *Platform) TakeResizeRequest() bool {
	r := p.resizeRequest
	p.resizeRequest = false
	return r
}

// TakeSwitchModeRequest reports and clears the latched mode-switch flag.
func (p *Platform) TakeSwitchModeRequest() bool {
	r := p.switchModeRequest
	p.switchModeRequest = false
	return r
}

// RequestSwitchMode asks the orchestrator to toggle fullscreen on its next
// tick.
func (p *Platform) RequestSwitchMode() {
	p.switchModeRequest = true
}

func (p *Platform) Fullscreen() bool {
	return p.Window != nil && p.Window.GetMonitor() != nil
}

// GetState captures the live window placement for persistence. Position and
// size are only refreshed while windowed, so a fullscreen save restores the
// last windowed placement.
func (p *Platform) GetState() config.WindowState {
	state := p.state
	state.Fullscreen = p.Fullscreen()

	if p.Window != nil && !state.Fullscreen {
		state.X, state.Y = p.Window.GetPos()
		state.Width, state.Height = p.Window.GetSize()
		state.Maximized = p.Window.GetAttrib(glfw.Maximized) == glfw.True
	}

	p.state = state
	return state
}

// SwitchMode applies the given state, toggling between fullscreen and
// windowed. Called only from the orchestrator's rebuild path, after the
// device is idle.
func (p *Platform) SwitchMode(state *config.WindowState) error {
	if p.Window == nil {
		return fmt.Errorf("window does not exist")
	}

	if state != nil {
		p.state = *state
	}

	if p.state.Fullscreen {
		monitor := p.monitor()
		mode := monitor.GetVideoMode()
		p.Window.SetMonitor(monitor, 0, 0, mode.Width, mode.Height, mode.RefreshRate)
	} else {
		p.Window.SetMonitor(nil, p.state.X, p.state.Y, p.state.Width, p.state.Height, 0)
	}

	core.LogDebug("window mode switch, fullscreen=%t", p.state.Fullscreen)
	return nil
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	if p.Window == nil {
		return 0, 0
	}
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func (p *Platform) AspectRatio() float32 {
	w, h := p.FramebufferSize()
	if h == 0 {
		return 0
	}
	return float32(w) / float32(h)
}

func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateWindowSurface(instance interface{}) (uintptr, error) {
	return p.Window.CreateWindowSurface(instance, nil)
}

func (p *Platform) monitor() *glfw.Monitor {
	monitors := glfw.GetMonitors()
	if p.state.Monitor >= 0 && p.state.Monitor < len(monitors) {
		return monitors[p.state.Monitor]
	}
	return glfw.GetPrimaryMonitor()
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	event := &core.KeyEvent{
		KeyCode:  core.Key(key),
		AltDown:  mods&glfw.ModAlt != 0,
		CtrlDown: mods&glfw.ModControl != 0,
	}

	switch action {
	case glfw.Press:
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Data: event})
	case glfw.Release:
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_KEY_RELEASED, Data: event})
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.resizeRequest = true
	core.EventFire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: uint32(width), WindowHeight: uint32(height)},
	})
}

func boolHint(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}
