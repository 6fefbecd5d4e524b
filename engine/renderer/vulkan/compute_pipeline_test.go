package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePipelineSetShaderStage(t *testing.T) {
	pipeline := NewComputePipeline(createdLayout())

	vertex := NewShaderStage(vk.ShaderStageVertexBit)
	require.NoError(t, vertex.AddCode(make([]byte, 8)))
	assert.Error(t, pipeline.SetShaderStage(vertex))

	empty := NewShaderStage(vk.ShaderStageComputeBit)
	assert.Error(t, pipeline.SetShaderStage(empty))

	compute := NewShaderStage(vk.ShaderStageComputeBit)
	require.NoError(t, compute.AddCode(make([]byte, 8)))
	assert.NoError(t, pipeline.SetShaderStage(compute))
	assert.Equal(t, compute, pipeline.stage)
}

func TestComputePipelineSetShader(t *testing.T) {
	pipeline := NewComputePipeline(createdLayout())

	assert.Error(t, pipeline.SetShader(make([]byte, 6)))
	assert.Nil(t, pipeline.stage)

	require.NoError(t, pipeline.SetShader(make([]byte, 8)))
	require.NotNil(t, pipeline.stage)
	assert.Equal(t, vk.ShaderStageComputeBit, pipeline.stage.Stage())
	assert.Equal(t, vk.PipelineBindPointCompute, pipeline.bindPoint())
}

func TestComputePipelineCreateRequiresStage(t *testing.T) {
	pipeline := NewComputePipeline(createdLayout())
	assert.Error(t, pipeline.Create(nil))
	assert.False(t, pipeline.Created())
}
