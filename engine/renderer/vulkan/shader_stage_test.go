package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestShaderStageAddCode(t *testing.T) {
	stage := NewShaderStage(vk.ShaderStageVertexBit)
	assert.False(t, stage.HasCode())

	assert.Error(t, stage.AddCode(nil))
	assert.Error(t, stage.AddCode([]byte{1, 2, 3}))

	code := []byte{0x03, 0x02, 0x23, 0x07}
	assert.NoError(t, stage.AddCode(code))
	assert.True(t, stage.HasCode())

	// The stage keeps its own copy.
	code[0] = 0xff
	assert.Equal(t, byte(0x03), stage.code[0])
}

func TestShaderStageEntrypoint(t *testing.T) {
	stage := NewShaderStage(vk.ShaderStageFragmentBit)
	assert.Equal(t, "main", stage.entrypoint)

	stage.SetEntrypoint("")
	assert.Equal(t, "main", stage.entrypoint)

	stage.SetEntrypoint("shade")
	assert.Equal(t, "shade", stage.entrypoint)
}

func TestStageCreateInfoSpecialization(t *testing.T) {
	stage := NewShaderStage(vk.ShaderStageFragmentBit)
	assert.NoError(t, stage.AddCode(make([]byte, 8)))

	info := stage.stageCreateInfo()
	assert.Empty(t, info.PSpecializationInfo)

	stage.SetSpecialization([]vk.SpecializationMapEntry{{ConstantID: 0, Offset: 0, Size: 4}}, []byte{1, 0, 0, 0})
	info = stage.stageCreateInfo()
	assert.Len(t, info.PSpecializationInfo, 1)
	assert.Equal(t, uint64(4), info.PSpecializationInfo[0].DataSize)
	assert.Equal(t, uint32(1), info.PSpecializationInfo[0].MapEntryCount)
}

func TestSliceUint32(t *testing.T) {
	words := sliceUint32([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00})
	assert.Equal(t, []uint32{0x07230203, 0x00010000}, words)
}
