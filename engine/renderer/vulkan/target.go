package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/magma/engine/core"
)

// Target owns the swapchain, its attachments and the per-frame
// synchronization objects, and drives acquire, submit and present. A target
// can be rebuilt in place after a resize or v-sync change; its shading pass
// survives the rebuild so registered pipelines stay valid.
type Target struct {
	Swapchain vk.Swapchain

	ImageFormat vk.SurfaceFormat
	ShadingPass *ShadingPass

	images       []vk.Image
	views        []vk.ImageView
	depth        *VulkanImage
	framebuffers []vk.Framebuffer

	width  uint32
	height uint32

	MaxFramesInFlight uint32
	currentFrame      uint32
	imageIndex        uint32

	imageAvailableSemaphores []vk.Semaphore
	queueCompleteSemaphores  []vk.Semaphore
	inFlightFences           []*VulkanFence
	imagesInFlight           []*VulkanFence

	vsync bool

	reloadRequested bool
	resizeRequested bool
}

// TargetRequests is the once-per-tick snapshot of the target's rebuild
// flags. Reload means the present configuration changed (v-sync, shaders);
// Resize means the swapchain went stale against the surface.
type TargetRequests struct {
	Reload bool
	Resize bool
}

// Any reports whether the snapshot demands a rebuild.
func (requests TargetRequests) Any() bool {
	return requests.Reload || requests.Resize
}

func NewTarget(vsync bool) *Target {
	return &Target{
		MaxFramesInFlight: 2,
		vsync:             vsync,
	}
}

func (target *Target) Width() uint32      { return target.width }
func (target *Target) Height() uint32     { return target.height }
func (target *Target) FrameIndex() uint32 { return target.currentFrame }
func (target *Target) ImageIndex() uint32 { return target.imageIndex }
func (target *Target) ImageCount() uint32 { return uint32(len(target.images)) }
func (target *Target) VSync() bool        { return target.vsync }

// SetVSync switches the present mode. The change takes effect on the next
// rebuild, which is requested here.
func (target *Target) SetVSync(enabled bool) {
	if target.vsync == enabled {
		return
	}
	target.vsync = enabled
	target.reloadRequested = true
}

// RequestReload flags the target for a rebuild because its configuration
// changed.
func (target *Target) RequestReload() {
	target.reloadRequested = true
}

// RequestResize flags the target for a rebuild against the surface's new
// extent.
func (target *Target) RequestResize() {
	target.resizeRequested = true
}

// TakeRequests reports and clears both request flags. Edge triggered so one
// request produces exactly one rebuild.
func (target *Target) TakeRequests() TargetRequests {
	requests := TargetRequests{
		Reload: target.reloadRequested,
		Resize: target.resizeRequested,
	}
	target.reloadRequested = false
	target.resizeRequested = false
	return requests
}

func (target *Target) Create(context *VulkanContext, width, height uint32) error {
	if err := target.createSwapchain(context, width, height); err != nil {
		return err
	}

	if target.ShadingPass == nil {
		target.ShadingPass = NewShadingPass(target.ImageFormat.Format, context.Device.DepthFormat)
		if err := target.ShadingPass.Create(context); err != nil {
			return err
		}
	}

	if err := target.createFramebuffers(context); err != nil {
		return err
	}
	if err := target.createSyncObjects(context); err != nil {
		return err
	}

	target.ShadingPass.ApplyTargetSize(target.width, target.height)
	core.LogInfo("target created (%dx%d, %d images, v-sync %t)", target.width, target.height, len(target.images), target.vsync)
	return nil
}

// Rebuild tears down everything that depends on the swapchain and recreates
// it for the new extent. The shading pass and its pipelines are kept, their
// viewports resized through the dynamic state. The caller must have waited
// for the device to go idle.
func (target *Target) Rebuild(context *VulkanContext, width, height uint32) error {
	target.destroySwapchainResources(context)
	if err := target.createSwapchain(context, width, height); err != nil {
		return err
	}
	if err := target.createFramebuffers(context); err != nil {
		return err
	}

	target.imagesInFlight = make([]*VulkanFence, len(target.images))
	target.ShadingPass.ApplyTargetSize(target.width, target.height)
	core.LogInfo("target rebuilt (%dx%d)", target.width, target.height)
	return nil
}

func (target *Target) Destroy(context *VulkanContext) {
	target.destroySyncObjects(context)
	target.destroySwapchainResources(context)
	if target.ShadingPass != nil {
		target.ShadingPass.Destroy(context)
		target.ShadingPass = nil
	}
}

func (target *Target) createSwapchain(context *VulkanContext, width, height uint32) error {
	device := context.Device
	if err := DeviceQuerySwapchainSupport(device.PhysicalDevice, context.Surface, &device.SwapchainSupport); err != nil {
		return err
	}
	support := device.SwapchainSupport

	// Prefer the common BGRA unorm format with an sRGB colorspace.
	target.ImageFormat = support.Formats[0]
	for _, format := range support.Formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			target.ImageFormat = format
			break
		}
	}

	presentMode := target.choosePresentMode(support.PresentModes)

	extent := vk.Extent2D{Width: width, Height: height}
	support.Capabilities.Deref()
	if support.Capabilities.CurrentExtent.Width != math.MaxUint32 {
		extent = support.Capabilities.CurrentExtent
	}
	extent.Width = Clamp(extent.Width, support.Capabilities.MinImageExtent.Width, support.Capabilities.MaxImageExtent.Width)
	extent.Height = Clamp(extent.Height, support.Capabilities.MinImageExtent.Height, support.Capabilities.MaxImageExtent.Height)
	if extent.Width == 0 || extent.Height == 0 {
		return fmt.Errorf("target extent is zero")
	}

	imageCount := support.Capabilities.MinImageCount + 1
	if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      target.ImageFormat.Format,
		ImageColorSpace:  target.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}

	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(device.GraphicsQueueIndex),
			uint32(device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	if err := lockPool.SafeCall(SwapchainManagement, func() error {
		if res := vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &target.Swapchain); res != vk.Success {
			return errVulkan("vkCreateSwapchainKHR", res)
		}
		return nil
	}); err != nil {
		return err
	}

	target.width = extent.Width
	target.height = extent.Height
	context.FramebufferWidth = extent.Width
	context.FramebufferHeight = extent.Height

	var actualImageCount uint32
	if res := vk.GetSwapchainImages(device.LogicalDevice, target.Swapchain, &actualImageCount, nil); res != vk.Success {
		return errVulkan("vkGetSwapchainImagesKHR", res)
	}
	target.images = make([]vk.Image, actualImageCount)
	if res := vk.GetSwapchainImages(device.LogicalDevice, target.Swapchain, &actualImageCount, target.images); res != vk.Success {
		return errVulkan("vkGetSwapchainImagesKHR", res)
	}

	target.views = make([]vk.ImageView, len(target.images))
	for i, image := range target.images {
		viewCreateInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   target.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		if err := lockPool.SafeCall(ImageManagement, func() error {
			if res := vk.CreateImageView(device.LogicalDevice, &viewCreateInfo, context.Allocator, &target.views[i]); res != vk.Success {
				return errVulkan("vkCreateImageView", res)
			}
			return nil
		}); err != nil {
			return err
		}
	}

	depth, err := ImageCreate(context, target.width, target.height, device.DepthFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true, vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		return err
	}
	target.depth = depth
	return nil
}

// choosePresentMode maps the v-sync switch to a present mode. With v-sync on
// FIFO is used, which every driver provides. With v-sync off mailbox is
// preferred and immediate is the fallback.
func (target *Target) choosePresentMode(available []vk.PresentMode) vk.PresentMode {
	if target.vsync {
		return vk.PresentModeFifo
	}
	fallback := vk.PresentModeFifo
	for _, mode := range available {
		if mode == vk.PresentModeMailbox {
			return mode
		}
		if mode == vk.PresentModeImmediate {
			fallback = mode
		}
	}
	return fallback
}

func (target *Target) createFramebuffers(context *VulkanContext) error {
	target.framebuffers = make([]vk.Framebuffer, len(target.views))
	for i, view := range target.views {
		attachments := []vk.ImageView{view, target.depth.View}
		framebufferCreateInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      target.ShadingPass.Handle,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           target.width,
			Height:          target.height,
			Layers:          1,
		}
		if err := lockPool.SafeCall(RenderpassManagement, func() error {
			if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, context.Allocator, &target.framebuffers[i]); res != vk.Success {
				return errVulkan("vkCreateFramebuffer", res)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func (target *Target) createSyncObjects(context *VulkanContext) error {
	target.imageAvailableSemaphores = make([]vk.Semaphore, target.MaxFramesInFlight)
	target.queueCompleteSemaphores = make([]vk.Semaphore, target.MaxFramesInFlight)
	target.inFlightFences = make([]*VulkanFence, target.MaxFramesInFlight)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := uint32(0); i < target.MaxFramesInFlight; i++ {
		if err := lockPool.SafeCall(SynchronizationManagement, func() error {
			if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &target.imageAvailableSemaphores[i]); res != vk.Success {
				return errVulkan("vkCreateSemaphore", res)
			}
			if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &target.queueCompleteSemaphores[i]); res != vk.Success {
				return errVulkan("vkCreateSemaphore", res)
			}
			return nil
		}); err != nil {
			return err
		}

		// Created signaled so the first frame does not wait forever.
		fence, err := FenceCreate(context, true)
		if err != nil {
			return err
		}
		target.inFlightFences[i] = fence
	}

	target.imagesInFlight = make([]*VulkanFence, len(target.images))
	target.currentFrame = 0
	target.imageIndex = 0
	return nil
}

func (target *Target) destroySyncObjects(context *VulkanContext) {
	for _, semaphore := range target.imageAvailableSemaphores {
		lockPool.SafeCall(SynchronizationManagement, func() error {
			vk.DestroySemaphore(context.Device.LogicalDevice, semaphore, context.Allocator)
			return nil
		})
	}
	for _, semaphore := range target.queueCompleteSemaphores {
		lockPool.SafeCall(SynchronizationManagement, func() error {
			vk.DestroySemaphore(context.Device.LogicalDevice, semaphore, context.Allocator)
			return nil
		})
	}
	for _, fence := range target.inFlightFences {
		if fence != nil {
			fence.Destroy(context)
		}
	}
	target.imageAvailableSemaphores = nil
	target.queueCompleteSemaphores = nil
	target.inFlightFences = nil
	target.imagesInFlight = nil
}

func (target *Target) destroySwapchainResources(context *VulkanContext) {
	for _, framebuffer := range target.framebuffers {
		lockPool.SafeCall(RenderpassManagement, func() error {
			vk.DestroyFramebuffer(context.Device.LogicalDevice, framebuffer, context.Allocator)
			return nil
		})
	}
	target.framebuffers = nil

	if target.depth != nil {
		target.depth.Destroy(context)
		target.depth = nil
	}

	for _, view := range target.views {
		lockPool.SafeCall(ImageManagement, func() error {
			vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
			return nil
		})
	}
	target.views = nil
	target.images = nil

	if target.Swapchain != vk.NullSwapchain {
		lockPool.SafeCall(SwapchainManagement, func() error {
			vk.DestroySwapchain(context.Device.LogicalDevice, target.Swapchain, context.Allocator)
			return nil
		})
		target.Swapchain = vk.NullSwapchain
	}
}

// CurrentFramebuffer returns the framebuffer of the last acquired image.
func (target *Target) CurrentFramebuffer() vk.Framebuffer {
	return target.framebuffers[target.imageIndex]
}

// AcquireNextFrame waits for the current frame's fence and acquires the next
// swapchain image. A stale swapchain requests a rebuild and returns
// ErrTargetRebuilding.
func (target *Target) AcquireNextFrame(context *VulkanContext, timeoutNs uint64) error {
	frame := target.currentFrame
	if !target.inFlightFences[frame].Wait(context, timeoutNs) {
		return fmt.Errorf("frame fence wait failed")
	}

	var result vk.Result
	lockPool.SafeCall(SwapchainManagement, func() error {
		result = vk.AcquireNextImage(context.Device.LogicalDevice, target.Swapchain, timeoutNs,
			target.imageAvailableSemaphores[frame], vk.NullFence, &target.imageIndex)
		return nil
	})

	switch result {
	case vk.ErrorOutOfDate:
		target.resizeRequested = true
		return core.ErrTargetRebuilding
	case vk.Suboptimal:
		// Usable this frame, but schedule a rebuild.
		target.resizeRequested = true
	default:
		if result != vk.Success {
			return errVulkan("vkAcquireNextImageKHR", result)
		}
	}
	return nil
}

// EndFrame submits the recorded buffers for the acquired image and presents
// it, then advances to the next frame in flight.
func (target *Target) EndFrame(context *VulkanContext, commandBuffers []vk.CommandBuffer) error {
	frame := target.currentFrame

	// Wait for the previous frame that used this image.
	if target.imagesInFlight[target.imageIndex] != nil {
		target.imagesInFlight[target.imageIndex].Wait(context, math.MaxUint64)
	}
	target.imagesInFlight[target.imageIndex] = target.inFlightFences[frame]

	if err := target.inFlightFences[frame].Reset(context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   uint32(len(commandBuffers)),
		PCommandBuffers:      commandBuffers,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{target.imageAvailableSemaphores[frame]},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{target.queueCompleteSemaphores[frame]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	}

	if err := lockPool.SafeCall(QueueManagement, func() error {
		if res := vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, target.inFlightFences[frame].Handle); res != vk.Success {
			return errVulkan("vkQueueSubmit", res)
		}
		return nil
	}); err != nil {
		return err
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{target.queueCompleteSemaphores[frame]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{target.Swapchain},
		PImageIndices:      []uint32{target.imageIndex},
	}

	var result vk.Result
	lockPool.SafeCall(QueueManagement, func() error {
		result = vk.QueuePresent(context.Device.PresentQueue, &presentInfo)
		return nil
	})
	switch result {
	case vk.ErrorOutOfDate, vk.Suboptimal:
		target.resizeRequested = true
	default:
		if result != vk.Success {
			return errVulkan("vkQueuePresentKHR", result)
		}
	}

	target.currentFrame = (target.currentFrame + 1) % target.MaxFramesInFlight
	return nil
}
