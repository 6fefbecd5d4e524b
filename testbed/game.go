package testbed

import (
	"path/filepath"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/magma/engine"
	"github.com/spaghettifunk/magma/engine/assets"
	"github.com/spaghettifunk/magma/engine/core"
	"github.com/spaghettifunk/magma/engine/renderer/vulkan"
)

const shaderDir = "assets/shaders"

// Game is the demo application: a single triangle pipeline on the shading
// pass, with hot reload of its shaders.
type Game struct {
	app *engine.App

	pipeline   *vulkan.GraphicsPipeline
	vertexPath string
	fragPath   string

	metricsClock *core.Clock
}

func New() (*engine.App, error) {
	game := &Game{
		vertexPath:   filepath.Join(shaderDir, "triangle.vert.spv"),
		fragPath:     filepath.Join(shaderDir, "triangle.frag.spv"),
		metricsClock: core.NewClock(),
	}

	guiVert, err := assets.LoadShader(filepath.Join(shaderDir, "gui.vert.spv"))
	if err != nil {
		core.LogWarn("gui shaders unavailable: %s", err)
	}
	guiFrag, _ := assets.LoadShader(filepath.Join(shaderDir, "gui.frag.spv"))

	app := engine.NewApp(engine.AppConfig{
		Name:              "Magma Testbed",
		SaveName:          "testbed",
		GuiVertexShader:   guiVert,
		GuiFragmentShader: guiFrag,
	})
	game.app = app

	app.OnCreate = game.create
	app.OnDestroy = game.destroy
	app.OnUpdate = game.update

	return app, nil
}

func (game *Game) create(app *engine.App) error {
	if err := game.createPipeline(app); err != nil {
		return err
	}

	if watcher := app.Watcher(); watcher != nil {
		if err := watcher.Watch(shaderDir); err != nil {
			core.LogWarn("cannot watch %s: %s", shaderDir, err)
		}
	}

	game.metricsClock.Start()
	return nil
}

func (game *Game) createPipeline(app *engine.App) error {
	vertexCode, err := assets.LoadShader(game.vertexPath)
	if err != nil {
		return err
	}
	fragCode, err := assets.LoadShader(game.fragPath)
	if err != nil {
		return err
	}

	layout := vulkan.NewPipelineLayout()

	pipeline := vulkan.NewGraphicsPipeline(layout)
	if err := pipeline.AddShader(vertexCode, vk.ShaderStageVertexBit); err != nil {
		return err
	}
	if err := pipeline.AddShader(fragCode, vk.ShaderStageFragmentBit); err != nil {
		return err
	}
	pipeline.SetDepthTestAndWrite(true, true)
	pipeline.SetProcessCallback(func(commandBuffer *vulkan.VulkanCommandBuffer) error {
		// The triangle's positions live in the vertex shader.
		vk.CmdDraw(commandBuffer.Handle, 3, 1, 0, 0)
		return nil
	})

	app.ShadingPass().AddPipeline(pipeline)
	if err := pipeline.Create(app.Renderer().Context()); err != nil {
		app.ShadingPass().RemovePipeline(pipeline)
		return err
	}
	game.pipeline = pipeline
	return nil
}

func (game *Game) destroy(app *engine.App) {
	if game.pipeline == nil {
		return
	}
	context := app.Renderer().Context()
	app.ShadingPass().RemovePipeline(game.pipeline)
	game.pipeline.Destroy(context)
	game.pipeline.Layout().Destroy(context)
	game.pipeline = nil
}

func (game *Game) update(app *engine.App, delta time.Duration) error {
	game.metricsClock.Update()
	if game.metricsClock.Elapsed() >= 5*time.Second {
		fps, frameMs := core.MetricsFrame()
		core.LogDebug("fps %.1f, frame %.2fms", fps, frameMs)
		game.metricsClock.Start()
	}
	return nil
}
