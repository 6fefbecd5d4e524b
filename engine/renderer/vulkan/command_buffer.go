package vulkan

import (
	vk "github.com/goki/vulkan"
)

type CommandBufferState int

const (
	CommandBufferStateReady CommandBufferState = iota
	CommandBufferStateRecording
	CommandBufferStateInRenderPass
	CommandBufferStateRecordingEnded
	CommandBufferStateSubmitted
	CommandBufferStateNotAllocated
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	State  CommandBufferState
}

func CommandBufferAllocate(context *VulkanContext, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	commandBuffer := &VulkanCommandBuffer{
		State: CommandBufferStateNotAllocated,
	}

	level := vk.CommandBufferLevelPrimary
	if !isPrimary {
		level = vk.CommandBufferLevelSecondary
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              level,
		CommandBufferCount: 1,
	}

	if err := lockPool.SafeCall(CommandBufferManagement, func() error {
		handles := make([]vk.CommandBuffer, 1)
		if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
			return errVulkan("vkAllocateCommandBuffers", res)
		}
		commandBuffer.Handle = handles[0]
		return nil
	}); err != nil {
		return nil, err
	}

	commandBuffer.State = CommandBufferStateReady
	return commandBuffer, nil
}

func (commandBuffer *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	if commandBuffer.Handle != nil {
		lockPool.SafeCall(CommandBufferManagement, func() error {
			vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{commandBuffer.Handle})
			return nil
		})
		commandBuffer.Handle = nil
	}
	commandBuffer.State = CommandBufferStateNotAllocated
}

func (commandBuffer *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	return lockPool.SafeCall(CommandBufferManagement, func() error {
		if res := vk.BeginCommandBuffer(commandBuffer.Handle, &beginInfo); res != vk.Success {
			return errVulkan("vkBeginCommandBuffer", res)
		}
		commandBuffer.State = CommandBufferStateRecording
		return nil
	})
}

func (commandBuffer *VulkanCommandBuffer) End() error {
	return lockPool.SafeCall(CommandBufferManagement, func() error {
		if res := vk.EndCommandBuffer(commandBuffer.Handle); res != vk.Success {
			return errVulkan("vkEndCommandBuffer", res)
		}
		commandBuffer.State = CommandBufferStateRecordingEnded
		return nil
	})
}
