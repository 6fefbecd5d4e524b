package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/magma/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func FenceCreate(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		IsSignaled: createSignaled,
	}
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	if err := lockPool.SafeCall(SynchronizationManagement, func() error {
		if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &fence.Handle); res != vk.Success {
			return errVulkan("vkCreateFence", res)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return fence, nil
}

func (fence *VulkanFence) Destroy(context *VulkanContext) {
	if fence.Handle != vk.NullFence {
		lockPool.SafeCall(SynchronizationManagement, func() error {
			vk.DestroyFence(context.Device.LogicalDevice, fence.Handle, context.Allocator)
			return nil
		})
		fence.Handle = vk.NullFence
	}
	fence.IsSignaled = false
}

// Wait blocks until the fence is signaled or timeoutNs elapses.
func (fence *VulkanFence) Wait(context *VulkanContext, timeoutNs uint64) bool {
	if fence.IsSignaled {
		return true
	}

	var result vk.Result
	lockPool.SafeCall(SynchronizationManagement, func() error {
		result = vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{fence.Handle}, vk.True, timeoutNs)
		return nil
	})

	switch result {
	case vk.Success:
		fence.IsSignaled = true
		return true
	case vk.Timeout:
		core.LogWarn("fence wait timed out")
	case vk.ErrorDeviceLost:
		core.LogError("fence wait failed: %s", VulkanResultString(vk.ErrorDeviceLost))
	default:
		core.LogError("fence wait failed: %s", VulkanResultString(result))
	}
	return false
}

func (fence *VulkanFence) Reset(context *VulkanContext) error {
	if !fence.IsSignaled {
		return nil
	}
	return lockPool.SafeCall(SynchronizationManagement, func() error {
		if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{fence.Handle}); res != vk.Success {
			return errVulkan("vkResetFences", res)
		}
		fence.IsSignaled = false
		return nil
	})
}
