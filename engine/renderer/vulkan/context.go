package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	// Shared across every pipeline created against this context.
	PipelineCache vk.PipelineCache
}

// WaitIdle drains all in-flight GPU work. Must precede any target teardown.
func (vc *VulkanContext) WaitIdle() error {
	var err error
	if e := lockPool.SafeCall(DeviceManagement, func() error {
		if result := vk.DeviceWaitIdle(vc.Device.LogicalDevice); !VulkanResultIsSuccess(result) {
			return errVulkan("vkDeviceWaitIdle", result)
		}
		return nil
	}); e != nil {
		err = e
	}
	return err
}
