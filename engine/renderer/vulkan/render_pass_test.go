package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestShadingPassPipelineRegistry(t *testing.T) {
	pass := NewShadingPass(vk.FormatB8g8r8a8Unorm, vk.FormatD32Sfloat)

	first := NewGraphicsPipeline(createdLayout())
	second := NewGraphicsPipeline(createdLayout())

	pass.AddPipeline(first)
	pass.AddPipeline(second)
	assert.Len(t, pass.Pipelines(), 2)
	assert.Equal(t, first.ID, pass.Pipelines()[0].ID)

	pass.RemovePipeline(first)
	assert.Len(t, pass.Pipelines(), 1)
	assert.Equal(t, second.ID, pass.Pipelines()[0].ID)

	// Removing twice is harmless.
	pass.RemovePipeline(first)
	assert.Len(t, pass.Pipelines(), 1)
}

func TestShadingPassApplyTargetSize(t *testing.T) {
	pass := NewShadingPass(vk.FormatB8g8r8a8Unorm, vk.FormatD32Sfloat)

	tracking := NewGraphicsPipeline(createdLayout())
	pass.AddPipeline(tracking)

	fixed := NewGraphicsPipeline(createdLayout())
	fixed.SetViewportAndScissor(vk.Viewport{Width: 64, Height: 64, MaxDepth: 1}, vk.Rect2D{Extent: vk.Extent2D{Width: 64, Height: 64}})
	pass.AddPipeline(fixed)

	pass.ApplyTargetSize(1024, 768)

	assert.Equal(t, float32(1024), tracking.Viewport().Width)
	assert.Equal(t, float32(64), fixed.Viewport().Width)

	// A pipeline registered after the pass already has an extent starts
	// sized for it.
	late := NewGraphicsPipeline(createdLayout())
	pass.AddPipeline(late)
	assert.Equal(t, float32(1024), late.Viewport().Width)
}

func TestShadingPassProcessRespectsActivity(t *testing.T) {
	pass := NewShadingPass(vk.FormatB8g8r8a8Unorm, vk.FormatD32Sfloat)

	var order []string
	add := func(name string, active bool) {
		pipeline := NewGraphicsPipeline(createdLayout())
		pipeline.SetAutoBind(false)
		pipeline.SetActive(active)
		pipeline.SetProcessCallback(func(commandBuffer *VulkanCommandBuffer) error {
			order = append(order, name)
			return nil
		})
		pass.AddPipeline(pipeline)
	}
	add("a", true)
	add("b", false)
	add("c", true)

	assert.NoError(t, pass.Process(&VulkanCommandBuffer{}))
	assert.Equal(t, []string{"a", "c"}, order)
}

func TestShadingPassDefaults(t *testing.T) {
	pass := NewShadingPass(vk.FormatB8g8r8a8Unorm, vk.FormatD32Sfloat)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, pass.ClearColor)
	assert.Equal(t, float32(1), pass.ClearDepth)
}
