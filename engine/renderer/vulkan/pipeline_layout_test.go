package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestValidatePushConstantRanges(t *testing.T) {
	vertex := vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	fragment := vk.ShaderStageFlags(vk.ShaderStageFragmentBit)

	tests := []struct {
		name    string
		ranges  []vk.PushConstantRange
		wantErr bool
	}{
		{
			name: "single range",
			ranges: []vk.PushConstantRange{
				{StageFlags: vertex, Offset: 0, Size: 64},
			},
		},
		{
			name: "disjoint ranges same stage",
			ranges: []vk.PushConstantRange{
				{StageFlags: vertex, Offset: 0, Size: 16},
				{StageFlags: vertex, Offset: 16, Size: 16},
			},
		},
		{
			name: "overlapping ranges different stages",
			ranges: []vk.PushConstantRange{
				{StageFlags: vertex, Offset: 0, Size: 32},
				{StageFlags: fragment, Offset: 16, Size: 32},
			},
		},
		{
			name: "overlapping ranges shared stage",
			ranges: []vk.PushConstantRange{
				{StageFlags: vertex, Offset: 0, Size: 32},
				{StageFlags: vertex, Offset: 16, Size: 32},
			},
			wantErr: true,
		},
		{
			name: "zero size",
			ranges: []vk.PushConstantRange{
				{StageFlags: vertex, Offset: 0, Size: 0},
			},
			wantErr: true,
		},
		{
			name: "unaligned offset",
			ranges: []vk.PushConstantRange{
				{StageFlags: vertex, Offset: 2, Size: 16},
			},
			wantErr: true,
		},
		{
			name: "unaligned size",
			ranges: []vk.PushConstantRange{
				{StageFlags: vertex, Offset: 0, Size: 10},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePushConstantRanges(tt.ranges)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPushConstantRangeCoverage(t *testing.T) {
	vertex := vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	fragment := vk.ShaderStageFlags(vk.ShaderStageFragmentBit)

	layout := NewPipelineLayout()
	layout.AddPushConstantRange(vk.PushConstantRange{StageFlags: vertex, Offset: 0, Size: 64})

	assert.True(t, layout.rangeCovers(vertex, 0, 64))
	assert.True(t, layout.rangeCovers(vertex, 16, 16))
	assert.False(t, layout.rangeCovers(vertex, 32, 64))
	assert.False(t, layout.rangeCovers(fragment, 0, 16))
}

func TestPipelineLayoutSetOrder(t *testing.T) {
	layout := NewPipelineLayout()
	assert.Equal(t, 0, layout.DescriptorSetLayoutCount())

	layout.AddDescriptorSetLayout(vk.NullDescriptorSetLayout)
	layout.AddDescriptorSetLayout(vk.NullDescriptorSetLayout)
	assert.Equal(t, 2, layout.DescriptorSetLayoutCount())
}

func TestPipelineLayoutCreateRejectsOverlap(t *testing.T) {
	vertex := vk.ShaderStageFlags(vk.ShaderStageVertexBit)

	layout := NewPipelineLayout()
	layout.AddPushConstantRange(vk.PushConstantRange{StageFlags: vertex, Offset: 0, Size: 32})
	layout.AddPushConstantRange(vk.PushConstantRange{StageFlags: vertex, Offset: 16, Size: 32})

	assert.Error(t, layout.Create(nil))
	assert.False(t, layout.Created())
}
