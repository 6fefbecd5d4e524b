package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeViewportScissorInput(t *testing.T) {
	viewport, scissor := computeViewportScissor(SizeInput, NormalizedRect{}, 1280, 720)

	assert.Equal(t, float32(0), viewport.X)
	assert.Equal(t, float32(0), viewport.Y)
	assert.Equal(t, float32(1280), viewport.Width)
	assert.Equal(t, float32(720), viewport.Height)
	assert.Equal(t, uint32(1280), scissor.Extent.Width)
	assert.Equal(t, uint32(720), scissor.Extent.Height)
}

func TestComputeViewportScissorRelative(t *testing.T) {
	rect := NormalizedRect{X: 0.5, Y: 0, Width: 0.5, Height: 1}
	viewport, scissor := computeViewportScissor(SizeRelative, rect, 800, 600)

	assert.Equal(t, float32(400), viewport.X)
	assert.Equal(t, float32(400), viewport.Width)
	assert.Equal(t, float32(600), viewport.Height)
	assert.Equal(t, int32(400), scissor.Offset.X)
	assert.Equal(t, uint32(400), scissor.Extent.Width)
	assert.Equal(t, uint32(600), scissor.Extent.Height)
}

func TestApplyTargetSizePolicies(t *testing.T) {
	pipeline := NewGraphicsPipeline(createdLayout())

	// A fresh pipeline follows the target extent.
	assert.Equal(t, SizeInput, pipeline.SizingPolicy())
	pipeline.ApplyTargetSize(1920, 1080)
	assert.Equal(t, float32(1920), pipeline.Viewport().Width)
	assert.Equal(t, float32(1080), pipeline.Viewport().Height)
	assert.Equal(t, uint32(1920), pipeline.Scissor().Extent.Width)
	assert.Equal(t, uint32(1080), pipeline.Scissor().Extent.Height)

	// Absolute sizing ignores the target extent.
	explicit := vk.Viewport{X: 10, Y: 10, Width: 100, Height: 100, MaxDepth: 1}
	pipeline.SetViewportAndScissor(explicit, vk.Rect2D{Extent: vk.Extent2D{Width: 100, Height: 100}})
	assert.Equal(t, SizeAbsolute, pipeline.SizingPolicy())
	pipeline.ApplyTargetSize(2560, 1440)
	assert.Equal(t, explicit, pipeline.Viewport())

	pipeline.SetRelativeRect(NormalizedRect{Width: 0.25, Height: 0.25})
	assert.Equal(t, SizeRelative, pipeline.SizingPolicy())
	pipeline.ApplyTargetSize(1920, 1080)
	assert.Equal(t, float32(480), pipeline.Viewport().Width)
	assert.Equal(t, float32(270), pipeline.Viewport().Height)
}

func TestSetLineWidthAutoFlag(t *testing.T) {
	pipeline := NewGraphicsPipeline(createdLayout())
	assert.False(t, pipeline.autoLineWidth)

	pipeline.SetLineWidth(2.5)
	assert.True(t, pipeline.autoLineWidth)

	pipeline.SetLineWidth(1.0)
	assert.False(t, pipeline.autoLineWidth)
}

func TestGraphicsPipelineCopyTo(t *testing.T) {
	source := NewGraphicsPipeline(createdLayout())
	source.SetInputTopology(vk.PrimitiveTopologyLineList, true)
	source.SetRasterization(vk.PolygonModeLine, vk.CullModeFlags(vk.CullModeNone), vk.FrontFaceClockwise)
	source.SetLineWidth(3)
	source.SetDepthTestAndWrite(true, false)
	source.AddColorBlendAttachment()
	source.SetRelativeRect(NormalizedRect{Width: 0.5, Height: 0.5})
	require.NoError(t, source.AddShader(make([]byte, 8), vk.ShaderStageVertexBit))

	target := NewGraphicsPipeline(createdLayout())
	targetID := target.ID
	source.CopyTo(target)

	assert.Equal(t, targetID, target.ID)
	assert.Equal(t, vk.PrimitiveTopologyLineList, target.topology)
	assert.True(t, target.primitiveRestartEnable)
	assert.Equal(t, vk.PolygonModeLine, target.polygonMode)
	assert.Equal(t, float32(3), target.lineWidth)
	assert.True(t, target.autoLineWidth)
	assert.True(t, target.depthTestEnable)
	assert.False(t, target.depthWriteEnable)
	assert.Len(t, target.colorBlendAttachments, 1)
	assert.Equal(t, SizeRelative, target.sizing)
	// Shader stages are not part of the copied configuration.
	assert.Empty(t, target.stages)
	assert.False(t, target.Created())

	// CopyFrom mirrors CopyTo.
	other := NewGraphicsPipeline(createdLayout())
	other.CopyFrom(source)
	assert.Equal(t, vk.PrimitiveTopologyLineList, other.topology)
}

func TestAddShaderRejectsBadCode(t *testing.T) {
	pipeline := NewGraphicsPipeline(createdLayout())

	assert.Error(t, pipeline.AddShader(nil, vk.ShaderStageVertexBit))
	assert.Error(t, pipeline.AddShader(make([]byte, 6), vk.ShaderStageVertexBit))
	assert.NoError(t, pipeline.AddShader(make([]byte, 8), vk.ShaderStageVertexBit))
}

func TestGraphicsPipelineCreateRequiresStages(t *testing.T) {
	pipeline := NewGraphicsPipeline(createdLayout())
	assert.Error(t, pipeline.Create(nil))
}
