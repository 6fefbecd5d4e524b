package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/magma/engine/core"
)

// PipelineLayout collects descriptor set layouts and push constant ranges in
// declaration order and owns the resulting VkPipelineLayout.
type PipelineLayout struct {
	ID     core.Identifier
	Handle vk.PipelineLayout

	created bool

	descriptorSetLayouts []vk.DescriptorSetLayout
	pushConstantRanges   []vk.PushConstantRange
}

func NewPipelineLayout() *PipelineLayout {
	return &PipelineLayout{
		ID: core.NewIdentifier(),
	}
}

// AddDescriptorSetLayout appends a set layout. The append order defines the
// set index used at bind time.
func (layout *PipelineLayout) AddDescriptorSetLayout(setLayout vk.DescriptorSetLayout) {
	layout.descriptorSetLayouts = append(layout.descriptorSetLayouts, setLayout)
}

func (layout *PipelineLayout) AddPushConstantRange(r vk.PushConstantRange) {
	layout.pushConstantRanges = append(layout.pushConstantRanges, r)
}

func (layout *PipelineLayout) DescriptorSetLayoutCount() int {
	return len(layout.descriptorSetLayouts)
}

func (layout *PipelineLayout) Created() bool {
	return layout.created
}

func (layout *PipelineLayout) Create(context *VulkanContext) error {
	if layout.Created() {
		return fmt.Errorf("pipeline layout already created")
	}
	if err := validatePushConstantRanges(layout.pushConstantRanges); err != nil {
		return err
	}
	if limit := context.Device.Properties.Limits.MaxBoundDescriptorSets; uint32(len(layout.descriptorSetLayouts)) > limit {
		return fmt.Errorf("%d descriptor set layouts exceed the device limit of %d", len(layout.descriptorSetLayouts), limit)
	}

	createInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(layout.descriptorSetLayouts)),
		PSetLayouts:            layout.descriptorSetLayouts,
		PushConstantRangeCount: uint32(len(layout.pushConstantRanges)),
		PPushConstantRanges:    layout.pushConstantRanges,
	}

	if err := lockPool.SafeCall(PipelineManagement, func() error {
		if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &layout.Handle); res != vk.Success {
			return errVulkan("vkCreatePipelineLayout", res)
		}
		return nil
	}); err != nil {
		return err
	}
	layout.created = true
	return nil
}

func (layout *PipelineLayout) Destroy(context *VulkanContext) {
	if !layout.Created() {
		return
	}
	if layout.Handle != vk.NullPipelineLayout {
		lockPool.SafeCall(PipelineManagement, func() error {
			vk.DestroyPipelineLayout(context.Device.LogicalDevice, layout.Handle, context.Allocator)
			return nil
		})
		layout.Handle = vk.NullPipelineLayout
	}
	layout.created = false
	layout.descriptorSetLayouts = nil
	layout.pushConstantRanges = nil
}

// BindDescriptorSets binds sets starting at firstSet, with optional dynamic
// offsets, against this layout.
func (layout *PipelineLayout) BindDescriptorSets(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint,
	firstSet uint32, descriptorSets []vk.DescriptorSet, dynamicOffsets []uint32) {
	vk.CmdBindDescriptorSets(commandBuffer.Handle, bindPoint, layout.Handle,
		firstSet, uint32(len(descriptorSets)), descriptorSets,
		uint32(len(dynamicOffsets)), dynamicOffsets)
}

// PushConstants records an update of the range starting at offset for every
// stage flag declared for that range.
func (layout *PipelineLayout) PushConstants(commandBuffer *VulkanCommandBuffer, stageFlags vk.ShaderStageFlags,
	offset uint32, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("push constant data is empty")
	}
	if !layout.rangeCovers(stageFlags, offset, uint32(len(data))) {
		return fmt.Errorf("push constant update [%d..%d) not covered by a declared range", offset, offset+uint32(len(data)))
	}
	vk.CmdPushConstants(commandBuffer.Handle, layout.Handle, stageFlags, offset, uint32(len(data)), sliceBytePointer(data))
	return nil
}

func (layout *PipelineLayout) rangeCovers(stageFlags vk.ShaderStageFlags, offset, size uint32) bool {
	for _, r := range layout.pushConstantRanges {
		if r.StageFlags&stageFlags == stageFlags && offset >= r.Offset && offset+size <= r.Offset+r.Size {
			return true
		}
	}
	return false
}

// validatePushConstantRanges rejects ranges that overlap for a shared stage.
// Offsets and sizes must be multiples of four per the Vulkan alignment rules.
func validatePushConstantRanges(ranges []vk.PushConstantRange) error {
	for i, r := range ranges {
		if r.Size == 0 {
			return fmt.Errorf("push constant range %d has zero size", i)
		}
		if r.Offset%4 != 0 || r.Size%4 != 0 {
			return fmt.Errorf("push constant range %d is not 4-byte aligned (offset %d, size %d)", i, r.Offset, r.Size)
		}
		for j := 0; j < i; j++ {
			other := ranges[j]
			if r.StageFlags&other.StageFlags == 0 {
				continue
			}
			if r.Offset < other.Offset+other.Size && other.Offset < r.Offset+r.Size {
				return fmt.Errorf("push constant ranges %d and %d overlap for a shared stage", j, i)
			}
		}
	}
	return nil
}
