package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
}

// ImageCreate creates a 2D image, binds device memory for it and optionally
// creates a view. Used for the depth attachment of the shading target.
func ImageCreate(context *VulkanContext, width, height uint32, format vk.Format, tiling vk.ImageTiling,
	usage vk.ImageUsageFlags, memoryFlags vk.MemoryPropertyFlags, createView bool, viewAspect vk.ImageAspectFlags) (*VulkanImage, error) {

	image := &VulkanImage{
		Width:  width,
		Height: height,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	if err := lockPool.SafeCall(ImageManagement, func() error {
		if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &image.Handle); res != vk.Success {
			return errVulkan("vkCreateImage", res)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	memoryRequirements := vk.MemoryRequirements{}
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType, err := findMemoryIndex(context, memoryRequirements.MemoryTypeBits, memoryFlags)
	if err != nil {
		image.Destroy(context)
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	if err := lockPool.SafeCall(ImageManagement, func() error {
		if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &image.Memory); res != vk.Success {
			return errVulkan("vkAllocateMemory", res)
		}
		if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
			return errVulkan("vkBindImageMemory", res)
		}
		return nil
	}); err != nil {
		image.Destroy(context)
		return nil, err
	}

	if createView {
		if err := image.viewCreate(context, format, viewAspect); err != nil {
			image.Destroy(context)
			return nil, err
		}
	}
	return image, nil
}

func (image *VulkanImage) viewCreate(context *VulkanContext, format vk.Format, aspectFlags vk.ImageAspectFlags) error {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	return lockPool.SafeCall(ImageManagement, func() error {
		if res := vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &image.View); res != vk.Success {
			return errVulkan("vkCreateImageView", res)
		}
		return nil
	})
}

func (image *VulkanImage) Destroy(context *VulkanContext) {
	lockPool.SafeCall(ImageManagement, func() error {
		if image.View != vk.NullImageView {
			vk.DestroyImageView(context.Device.LogicalDevice, image.View, context.Allocator)
			image.View = vk.NullImageView
		}
		if image.Memory != vk.NullDeviceMemory {
			vk.FreeMemory(context.Device.LogicalDevice, image.Memory, context.Allocator)
			image.Memory = vk.NullDeviceMemory
		}
		if image.Handle != vk.NullImage {
			vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
			image.Handle = vk.NullImage
		}
		return nil
	})
}

func findMemoryIndex(context *VulkanContext, typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (int32, error) {
	memoryProperties := context.Device.Memory
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 &&
			memoryProperties.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return int32(i), nil
		}
	}
	return -1, fmt.Errorf("unable to find suitable memory type")
}
