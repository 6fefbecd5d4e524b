package engine

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/magma/engine/assets"
	"github.com/spaghettifunk/magma/engine/config"
	"github.com/spaghettifunk/magma/engine/core"
	"github.com/spaghettifunk/magma/engine/gui"
	"github.com/spaghettifunk/magma/engine/platform"
	"github.com/spaghettifunk/magma/engine/renderer/vulkan"
)

// AppConfig carries what the application supplies before Setup.
type AppConfig struct {
	Name string
	// SaveName keys the persisted window placement. Defaults to "default".
	SaveName string
	// ConfigPath and WindowStatePath locate the persisted records.
	ConfigPath      string
	WindowStatePath string
	Debug           bool

	// GUI shader pair, required when the overlay is enabled.
	GuiVertexShader   []byte
	GuiFragmentShader []byte
}

// App ties the platform window, the renderer and the frame loop together and
// owns the persisted run and window records.
type App struct {
	Name string

	Config *config.Config
	Loop   *FrameLoop
	Run    *core.RunTime

	platform *platform.Platform
	renderer *vulkan.Renderer
	gui      *gui.GUI
	watcher  *assets.ShaderWatcher

	appConfig AppConfig
	lastSave  time.Time

	// OnCreate builds the application's pipelines and resources against
	// the current target. It runs after Setup and again after every full
	// window rebuild.
	OnCreate func(app *App) error
	// OnDestroy tears the application's resources down before the target
	// goes away.
	OnDestroy func(app *App)
	// OnUpdate runs every frame with the scaled delta.
	OnUpdate func(app *App, delta time.Duration) error
	// OnShaderReload runs when watched shader files change, before the
	// target reload that rebuilds the pipelines. Only CPU-side state should
	// change here.
	OnShaderReload func(app *App, paths []string) error
	// OnProcess records extra work into the frame's primary command buffer,
	// inside the shading pass and after the registered pipelines ran.
	OnProcess func(app *App, commandBuffer *vulkan.VulkanCommandBuffer) error
}

func NewApp(appConfig AppConfig) *App {
	if appConfig.SaveName == "" {
		appConfig.SaveName = "default"
	}
	if appConfig.ConfigPath == "" {
		appConfig.ConfigPath = "config.toml"
	}
	if appConfig.WindowStatePath == "" {
		appConfig.WindowStatePath = "window.toml"
	}
	return &App{
		Name:      appConfig.Name,
		Config:    config.DefaultConfig(),
		Loop:      NewFrameLoop(),
		Run:       core.NewRunTime(),
		appConfig: appConfig,
	}
}

func (app *App) Platform() *platform.Platform   { return app.platform }
func (app *App) Renderer() *vulkan.Renderer     { return app.renderer }
func (app *App) GUI() *gui.GUI                  { return app.gui }
func (app *App) Target() *vulkan.Target         { return app.renderer.Target }
func (app *App) Watcher() *assets.ShaderWatcher { return app.watcher }
func (app *App) Block() *vulkan.RenderBlock     { return app.renderer.Block }
func (app *App) ShadingPass() *vulkan.ShadingPass {
	return app.renderer.Target.ShadingPass
}

// Setup loads the persisted records, applies the command line, opens the
// window, brings the renderer up and wires the frame loop.
func (app *App) Setup(args []string) error {
	if app.Config.AutoLoad {
		app.Config.Load(app.appConfig.ConfigPath)
	}
	if err := app.Config.ApplyCommandLine(args); err != nil {
		return err
	}

	app.Run.Paused = app.Config.Paused
	app.Run.Speed = app.Config.Speed
	app.Run.UseFixedDelta = app.Config.FixedDelta
	app.Run.FixedDelta = app.Config.Delta

	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize event system")
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	windowState := config.DefaultWindowState()
	if app.Config.AutoLoad {
		if saved, found := config.LoadWindowState(app.appConfig.WindowStatePath, app.appConfig.SaveName); found {
			windowState = *saved
		}
	}

	app.platform = platform.New(app.appConfig.SaveName)
	if err := app.platform.Startup(app.Name, &windowState); err != nil {
		return err
	}

	renderer, err := vulkan.RendererCreate(app.platform, vulkan.RendererConfig{
		ApplicationName: app.Name,
		Debug:           app.appConfig.Debug,
		PhysicalDevice:  app.Config.PhysicalDevice,
		VSync:           app.Config.VSync,
	})
	if err != nil {
		return err
	}
	app.renderer = renderer

	if err := app.createGui(); err != nil {
		return err
	}
	if err := app.registerShadingCommand(); err != nil {
		return err
	}

	if watcher, err := assets.NewShaderWatcher(); err != nil {
		core.LogWarn("shader watcher unavailable: %s", err)
	} else {
		app.watcher = watcher
	}

	app.registerKeyHandling()

	if app.OnCreate != nil {
		if err := app.OnCreate(app); err != nil {
			return err
		}
	}

	app.wireLoop()
	app.Run.Reset()
	app.lastSave = time.Now()
	return nil
}

// Start runs the frame loop until shutdown.
func (app *App) Start() error {
	core.LogInfo("%s starting", app.Name)
	return app.Loop.Run()
}

func (app *App) createGui() error {
	if !app.Config.Gui {
		return nil
	}
	if len(app.appConfig.GuiVertexShader) == 0 || len(app.appConfig.GuiFragmentShader) == 0 {
		core.LogWarn("gui enabled but no overlay shaders were provided")
		return nil
	}
	overlay, err := gui.New(app.renderer.Context(), app.ShadingPass(),
		app.appConfig.GuiVertexShader, app.appConfig.GuiFragmentShader)
	if err != nil {
		return err
	}
	app.gui = overlay
	return nil
}

// registerShadingCommand records the shading pass into every frame's
// primary command buffer. The command survives target rebuilds because the
// render block outlives the swapchain.
func (app *App) registerShadingCommand() error {
	_, err := app.renderer.Block.AddCommand(app.renderer.Context(), "shading",
		func(commandBuffer *vulkan.VulkanCommandBuffer) error {
			target := app.renderer.Target
			pass := target.ShadingPass

			pass.Begin(commandBuffer, target.CurrentFramebuffer(), target.Width(), target.Height())
			if err := pass.Process(commandBuffer); err != nil {
				return err
			}
			if app.OnProcess != nil {
				if err := app.OnProcess(app, commandBuffer); err != nil {
					return err
				}
			}
			pass.End(commandBuffer)
			return nil
		})
	return err
}

func (app *App) registerKeyHandling() {
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, func(context core.EventContext) {
		keyEvent, ok := context.Data.(*core.KeyEvent)
		if !ok {
			return
		}
		switch keyEvent.KeyCode {
		case core.KEY_ESCAPE:
			app.Loop.Shutdown()
		case core.KEY_ENTER:
			if keyEvent.AltDown {
				app.platform.RequestSwitchMode()
			}
		case core.KEY_SPACE:
			if keyEvent.CtrlDown && app.gui != nil {
				app.gui.Toggle()
			}
		case core.KEY_V:
			vsync := !app.renderer.Target.VSync()
			app.Config.VSync = vsync
			app.renderer.Target.SetVSync(vsync)
		case core.KEY_P:
			app.Run.Paused = !app.Run.Paused
		}
	})

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, func(context core.EventContext) {
		app.Loop.Shutdown()
	})
}

func (app *App) wireLoop() {
	app.Loop.AddRun(app.stepWindow)
	app.Loop.AddRun(app.stepUpdate)
	app.Loop.AddRun(app.stepRender)
	app.Loop.AddRun(app.stepAutoSave)

	app.Loop.AddRunEnd(func() {
		app.teardown()
	})
}

// stepWindow pumps the message queue and services close, resize and mode
// switch requests.
func (app *App) stepWindow() error {
	app.platform.PumpMessages()

	if app.platform.CloseRequest() {
		app.Loop.Shutdown()
		return nil
	}

	if app.platform.TakeSwitchModeRequest() {
		return app.handleWindow(true)
	}
	if app.platform.TakeResizeRequest() {
		app.renderer.Target.RequestResize()
	}
	return nil
}

func (app *App) stepUpdate() error {
	delta := app.Run.Step()
	core.MetricsUpdate(delta.Seconds())

	if app.watcher != nil {
		if changed := app.watcher.DrainChanges(); len(changed) > 0 {
			if err := app.reloadShaders(changed); err != nil {
				return err
			}
		}
	}

	if app.OnUpdate != nil {
		return app.OnUpdate(app, delta)
	}
	return nil
}

func (app *App) stepRender() error {
	if app.platform.Iconified() {
		// No surface to draw to; avoid spinning.
		time.Sleep(50 * time.Millisecond)
		return nil
	}

	requests := app.renderer.Target.TakeRequests()
	if requests.Reload {
		// Configuration changed (v-sync, shaders); everything built
		// against the target goes down and comes back up.
		if err := app.handleWindow(false); err != nil {
			return err
		}
	} else if requests.Resize {
		if err := app.renderer.RebuildTarget(); err != nil {
			if err == core.ErrTargetRebuilding {
				return nil
			}
			return err
		}
	}

	if err := app.renderer.DrawFrame(); err != nil {
		if err == core.ErrTargetRebuilding {
			return nil
		}
		return err
	}
	core.MetricsFrame()
	return nil
}

func (app *App) stepAutoSave() error {
	if !app.Config.AutoSave || app.Config.SaveInterval <= 0 {
		return nil
	}
	if time.Since(app.lastSave) < app.Config.SaveInterval {
		return nil
	}
	app.lastSave = time.Now()
	app.save()
	return nil
}

func (app *App) save() {
	app.Config.Paused = app.Run.Paused
	app.Config.Speed = app.Run.Speed
	if err := app.Config.Save(app.appConfig.ConfigPath); err != nil {
		core.LogWarn("failed to save config: %s", err)
	}
	if app.Config.SaveWindow {
		if err := config.SaveWindowState(app.appConfig.WindowStatePath, app.appConfig.SaveName, app.platform.GetState()); err != nil {
			core.LogWarn("failed to save window state: %s", err)
		}
	}
}

// handleWindow performs the full window rebuild. Everything that depends on
// the target is torn down in reverse creation order, the window changes
// mode, and the stack comes back up through the same hooks that built it.
func (app *App) handleWindow(switchMode bool) error {
	app.renderer.WaitIdle()

	if app.OnDestroy != nil {
		app.OnDestroy(app)
	}
	if app.gui != nil {
		app.gui.Destroy(app.renderer.Context())
		app.gui = nil
	}

	if switchMode {
		state := app.platform.GetState()
		if app.Config.SaveWindow {
			config.SaveWindowState(app.appConfig.WindowStatePath, app.appConfig.SaveName, state)
		}
		state.Fullscreen = !state.Fullscreen
		if err := app.platform.SwitchMode(&state); err != nil {
			return err
		}
	}

	if err := app.renderer.RecreateTarget(); err != nil {
		if err == core.ErrTargetRebuilding {
			// Minimized; the pending reload retries once a surface is back.
			return nil
		}
		return err
	}

	if err := app.createGui(); err != nil {
		return err
	}
	if app.OnCreate != nil {
		return app.OnCreate(app)
	}
	return nil
}

// reloadShaders notes the changed files and raises a target reload, so the
// render step rebuilds everything through the same path a v-sync toggle
// takes. OnCreate then picks the new SPIR-V up from disk.
func (app *App) reloadShaders(paths []string) error {
	core.LogInfo("reloading %d shader(s)", len(paths))
	if app.OnShaderReload != nil {
		if err := app.OnShaderReload(app, paths); err != nil {
			return err
		}
	}
	app.renderer.Target.RequestReload()
	return nil
}

func (app *App) teardown() {
	app.save()

	if app.watcher != nil {
		app.watcher.Close()
		app.watcher = nil
	}
	if app.renderer != nil {
		app.renderer.WaitIdle()
	}
	if app.OnDestroy != nil {
		app.OnDestroy(app)
	}
	if app.gui != nil {
		app.gui.Destroy(app.renderer.Context())
		app.gui = nil
	}
	if app.renderer != nil {
		app.renderer.Shutdown()
		app.renderer = nil
	}
	if app.platform != nil {
		app.platform.Shutdown()
		app.platform = nil
	}
	core.EventSystemShutdown()
	core.LogInfo("%s stopped", app.Name)
}
