package gui

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/magma/engine/core"
	"github.com/spaghettifunk/magma/engine/renderer/vulkan"
)

// GUI renders the overlay through its own alpha blended pipeline, registered
// last with the shading pass so it draws on top of the scene.
type GUI struct {
	pipeline *vulkan.GraphicsPipeline
	pass     *vulkan.ShadingPass

	visible bool
	onDraw  func(commandBuffer *vulkan.VulkanCommandBuffer) error
}

// New builds the overlay pipeline from its shader pair and registers it with
// the pass.
func New(context *vulkan.VulkanContext, pass *vulkan.ShadingPass, vertexShader, fragmentShader []byte) (*GUI, error) {
	layout := vulkan.NewPipelineLayout()
	layout.AddPushConstantRange(vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		Offset:     0,
		Size:       16, // scale and translate
	})

	pipeline := vulkan.NewGraphicsPipeline(layout)
	if err := pipeline.AddShader(vertexShader, vk.ShaderStageVertexBit); err != nil {
		return nil, err
	}
	if err := pipeline.AddShader(fragmentShader, vk.ShaderStageFragmentBit); err != nil {
		return nil, err
	}
	pipeline.AddColorBlendAttachment()
	pipeline.SetDepthTestAndWrite(false, false)
	pipeline.SetRasterization(vk.PolygonModeFill, vk.CullModeFlags(vk.CullModeNone), vk.FrontFaceCounterClockwise)

	gui := &GUI{
		pipeline: pipeline,
		pass:     pass,
		visible:  true,
	}
	pipeline.SetProcessCallback(gui.record)

	pass.AddPipeline(pipeline)
	if err := pipeline.Create(context); err != nil {
		pass.RemovePipeline(pipeline)
		return nil, err
	}

	core.LogInfo("gui overlay created")
	return gui, nil
}

func (gui *GUI) Destroy(context *vulkan.VulkanContext) {
	if gui.pipeline == nil {
		return
	}
	gui.pass.RemovePipeline(gui.pipeline)
	gui.pipeline.Destroy(context)
	gui.pipeline.Layout().Destroy(context)
	gui.pipeline = nil
}

func (gui *GUI) Visible() bool { return gui.visible }

// SetVisible toggles overlay drawing without touching the pipeline.
func (gui *GUI) SetVisible(visible bool) {
	gui.visible = visible
	if gui.pipeline != nil {
		gui.pipeline.SetActive(visible)
	}
}

func (gui *GUI) Toggle() {
	gui.SetVisible(!gui.visible)
}

func (gui *GUI) record(commandBuffer *vulkan.VulkanCommandBuffer) error {
	// Overlay geometry is fed by the application's draw callback.
	if gui.onDraw != nil {
		return gui.onDraw(commandBuffer)
	}
	return nil
}

// SetDrawCallback installs the overlay recording callback.
func (gui *GUI) SetDrawCallback(fn func(commandBuffer *vulkan.VulkanCommandBuffer) error) {
	gui.onDraw = fn
}
