package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/magma/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice   vk.PhysicalDevice
	LogicalDevice    vk.Device
	SwapchainSupport VulkanSwapchainSupportInfo

	GraphicsQueueIndex int32
	PresentQueueIndex  int32
	ComputeQueueIndex  int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	ComputeQueue  vk.Queue

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
}

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

type vulkanQueueFamilyInfo struct {
	graphicsFamilyIndex int32
	presentFamilyIndex  int32
	computeFamilyIndex  int32
}

// DeviceCreate selects a physical device and builds the logical device plus
// its queues. preferredIndex pins the selection to the N-th enumerated device
// supporting the surface; a negative index picks the first suitable one.
func DeviceCreate(context *VulkanContext, preferredIndex int) error {
	if err := selectPhysicalDevice(context, preferredIndex); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	device := context.Device

	// Do not create additional queues for shared indices.
	indices := []uint32{uint32(device.GraphicsQueueIndex)}
	if device.PresentQueueIndex != device.GraphicsQueueIndex {
		indices = append(indices, uint32(device.PresentQueueIndex))
	}
	if device.ComputeQueueIndex != device.GraphicsQueueIndex && device.ComputeQueueIndex != device.PresentQueueIndex {
		indices = append(indices, uint32(device.ComputeQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, family := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{}
	deviceFeatures.FillModeNonSolid = vk.True // wireframe pipelines
	deviceFeatures.WideLines = vk.True        // dynamic line width

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if deviceSupportsExtension(device.PhysicalDevice, "VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	if err := lockPool.SafeCall(DeviceManagement, func() error {
		if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device.LogicalDevice); res != vk.Success {
			return errVulkan("vkCreateDevice", res)
		}
		return nil
	}); err != nil {
		return err
	}
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.GraphicsQueueIndex), 0, &device.GraphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.PresentQueueIndex), 0, &device.PresentQueue)
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.ComputeQueueIndex), 0, &device.ComputeQueue)
	core.LogInfo("Queues obtained.")

	if !deviceDetectDepthFormat(device) {
		device.DepthFormat = vk.FormatUndefined
		return fmt.Errorf("failed to find a supported depth format")
	}

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device

	device.GraphicsQueue = nil
	device.PresentQueue = nil
	device.ComputeQueue = nil

	core.LogInfo("Destroying logical device...")
	if device.LogicalDevice != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	device.PhysicalDevice = nil
	device.SwapchainSupport = VulkanSwapchainSupportInfo{}
	device.GraphicsQueueIndex = -1
	device.PresentQueueIndex = -1
	device.ComputeQueueIndex = -1
}

// DeviceQuerySwapchainSupport refreshes surface capabilities, formats and
// present modes. Called on device selection and again before every target
// (re)creation since capabilities change with window size.
func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return errVulkan("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res)
	}
	supportInfo.Capabilities.Deref()

	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &supportInfo.FormatCount, nil); res != vk.Success {
		return errVulkan("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	if supportInfo.FormatCount != 0 {
		supportInfo.Formats = make([]vk.SurfaceFormat, supportInfo.FormatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &supportInfo.FormatCount, supportInfo.Formats); res != vk.Success {
			return errVulkan("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &supportInfo.PresentModeCount, nil); res != vk.Success {
		return errVulkan("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
	}
	if supportInfo.PresentModeCount != 0 {
		supportInfo.PresentModes = make([]vk.PresentMode, supportInfo.PresentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &supportInfo.PresentModeCount, supportInfo.PresentModes); res != vk.Success {
			return errVulkan("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
		}
	}
	return nil
}

func deviceDetectDepthFormat(device *VulkanDevice) bool {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureDepthStencilAttachmentBit
	for _, candidate := range candidates {
		properties := vk.FormatProperties{}
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if vk.FormatFeatureFlagBits(properties.LinearTilingFeatures)&flags == flags ||
			vk.FormatFeatureFlagBits(properties.OptimalTilingFeatures)&flags == flags {
			device.DepthFormat = candidate
			return true
		}
	}
	return false
}

func selectPhysicalDevice(context *VulkanContext, preferredIndex int) error {
	var physicalDeviceCount uint32 = 0
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return errVulkan("vkEnumeratePhysicalDevices", res)
	}
	if physicalDeviceCount == 0 {
		return fmt.Errorf("no devices which support Vulkan were found")
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return errVulkan("vkEnumeratePhysicalDevices", res)
	}

	if preferredIndex >= int(physicalDeviceCount) {
		core.LogWarn("physical device index %d out of range (%d available), falling back to auto selection",
			preferredIndex, physicalDeviceCount)
		preferredIndex = -1
	}

	for i, candidate := range physicalDevices {
		if preferredIndex >= 0 && i != preferredIndex {
			continue
		}

		properties := vk.PhysicalDeviceProperties{}
		vk.GetPhysicalDeviceProperties(candidate, &properties)
		properties.Deref()

		features := vk.PhysicalDeviceFeatures{}
		vk.GetPhysicalDeviceFeatures(candidate, &features)
		features.Deref()

		memory := vk.PhysicalDeviceMemoryProperties{}
		vk.GetPhysicalDeviceMemoryProperties(candidate, &memory)
		memory.Deref()

		queueInfo, ok := queryQueueFamilies(candidate, context.Surface)
		if !ok {
			core.LogInfo("device %d is missing required queue families, skipping", i)
			continue
		}

		if !deviceSupportsExtension(candidate, vk.KhrSwapchainExtensionName) {
			core.LogInfo("device %d does not support swapchains, skipping", i)
			continue
		}

		support := &context.Device.SwapchainSupport
		if err := DeviceQuerySwapchainSupport(candidate, context.Surface, support); err != nil {
			continue
		}
		if support.FormatCount < 1 || support.PresentModeCount < 1 {
			core.LogInfo("required swapchain support not present, skipping device %d", i)
			continue
		}

		core.LogInfo("Selected device: '%s' (index %d).", string(properties.DeviceName[:]), i)
		core.LogInfo(
			"Vulkan API version: %d.%d.%d",
			vk.Version.Major(vk.Version(properties.ApiVersion)),
			vk.Version.Minor(vk.Version(properties.ApiVersion)),
			vk.Version.Patch(vk.Version(properties.ApiVersion)),
		)

		context.Device.PhysicalDevice = candidate
		context.Device.GraphicsQueueIndex = queueInfo.graphicsFamilyIndex
		context.Device.PresentQueueIndex = queueInfo.presentFamilyIndex
		context.Device.ComputeQueueIndex = queueInfo.computeFamilyIndex
		context.Device.Properties = properties
		context.Device.Features = features
		context.Device.Memory = memory
		return nil
	}

	return fmt.Errorf("no physical device meets the requirements")
}

func queryQueueFamilies(device vk.PhysicalDevice, surface vk.Surface) (vulkanQueueFamilyInfo, bool) {
	info := vulkanQueueFamilyInfo{
		graphicsFamilyIndex: -1,
		presentFamilyIndex:  -1,
		computeFamilyIndex:  -1,
	}

	var queueFamilyCount uint32 = 0
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := range queueFamilies {
		queueFamilies[i].Deref()

		if info.graphicsFamilyIndex < 0 && queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			info.graphicsFamilyIndex = int32(i)
		}
		if info.computeFamilyIndex < 0 && queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			info.computeFamilyIndex = int32(i)
		}

		var supportsPresent vk.Bool32 = vk.False
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			continue
		}
		if info.presentFamilyIndex < 0 && supportsPresent == vk.True {
			info.presentFamilyIndex = int32(i)
		}
	}

	ok := info.graphicsFamilyIndex >= 0 && info.presentFamilyIndex >= 0 && info.computeFamilyIndex >= 0
	return info, ok
}

func deviceSupportsExtension(device vk.PhysicalDevice, name string) bool {
	var count uint32 = 0
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		end := FindFirstZeroInByteArray(available[i].ExtensionName[:])
		if string(available[i].ExtensionName[:end]) == name {
			return true
		}
	}
	return false
}

func FindFirstZeroInByteArray(arr []byte) int {
	for i, b := range arr {
		if b == 0 {
			return i
		}
	}
	return len(arr)
}
