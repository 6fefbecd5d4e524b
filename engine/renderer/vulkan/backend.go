package vulkan

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/magma/engine/core"
	"github.com/spaghettifunk/magma/engine/platform"
)

const defaultFenceTimeoutNs uint64 = math.MaxUint64

// Renderer owns the Vulkan context, the presentation target and the render
// block, and exposes the per-frame drive points the application loop uses.
type Renderer struct {
	context  *VulkanContext
	platform *platform.Platform

	Target *Target
	Block  *RenderBlock

	debug bool
}

type RendererConfig struct {
	ApplicationName string
	Debug           bool
	// PhysicalDevice pins device selection to an enumeration index. A
	// negative value selects automatically.
	PhysicalDevice int
	VSync          bool
	FrameCount     uint32
}

func RendererCreate(p *platform.Platform, config RendererConfig) (*Renderer, error) {
	renderer := &Renderer{
		platform: p,
		debug:    config.Debug,
		context: &VulkanContext{
			Device: &VulkanDevice{
				GraphicsQueueIndex: -1,
				PresentQueueIndex:  -1,
				ComputeQueueIndex:  -1,
			},
		},
	}

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize Vulkan: %w", err)
	}

	if err := renderer.createInstance(config.ApplicationName); err != nil {
		return nil, err
	}
	if renderer.debug {
		renderer.setupDebugMessenger()
	}

	surface, err := p.CreateWindowSurface(renderer.context.Instance)
	if err != nil {
		return nil, err
	}
	renderer.context.Surface = vk.SurfaceFromPointer(surface)

	if err := DeviceCreate(renderer.context, config.PhysicalDevice); err != nil {
		return nil, err
	}

	if err := renderer.createPipelineCache(); err != nil {
		return nil, err
	}

	width, height := p.FramebufferSize()
	renderer.Target = NewTarget(config.VSync)
	if err := renderer.Target.Create(renderer.context, uint32(width), uint32(height)); err != nil {
		return nil, err
	}

	frameCount := config.FrameCount
	if frameCount == 0 {
		frameCount = renderer.Target.MaxFramesInFlight
	}
	block, err := RenderBlockCreate(renderer.context, frameCount)
	if err != nil {
		return nil, err
	}
	renderer.Block = block

	return renderer, nil
}

func (renderer *Renderer) Context() *VulkanContext { return renderer.context }

func (renderer *Renderer) Shutdown() {
	renderer.WaitIdle()

	if renderer.Block != nil {
		renderer.Block.Destroy(renderer.context)
		renderer.Block = nil
	}
	if renderer.Target != nil {
		renderer.Target.Destroy(renderer.context)
		renderer.Target = nil
	}

	if renderer.context.PipelineCache != vk.NullPipelineCache {
		vk.DestroyPipelineCache(renderer.context.Device.LogicalDevice, renderer.context.PipelineCache, renderer.context.Allocator)
		renderer.context.PipelineCache = vk.NullPipelineCache
	}

	DeviceDestroy(renderer.context)

	if renderer.context.Surface != vk.NullSurface {
		vk.DestroySurface(renderer.context.Instance, renderer.context.Surface, renderer.context.Allocator)
		renderer.context.Surface = vk.NullSurface
	}
	if renderer.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(renderer.context.Instance, renderer.context.debugMessenger, renderer.context.Allocator)
		renderer.context.debugMessenger = vk.NullDebugReportCallback
	}
	if renderer.context.Instance != nil {
		vk.DestroyInstance(renderer.context.Instance, renderer.context.Allocator)
		renderer.context.Instance = nil
	}
	core.LogInfo("renderer shut down")
}

func (renderer *Renderer) WaitIdle() {
	if renderer.context.Device != nil && renderer.context.Device.LogicalDevice != nil {
		if err := renderer.context.WaitIdle(); err != nil {
			core.LogError(err.Error())
		}
	}
}

// DrawFrame acquires an image, re-records the block's commands for the
// current frame and submits them. Returns ErrTargetRebuilding when the
// target went stale; the caller rebuilds and retries next iteration.
func (renderer *Renderer) DrawFrame() error {
	if err := renderer.Target.AcquireNextFrame(renderer.context, defaultFenceTimeoutNs); err != nil {
		return err
	}
	frame := renderer.Target.FrameIndex()
	if err := renderer.Block.Process(frame); err != nil {
		return err
	}
	return renderer.Target.EndFrame(renderer.context, renderer.Block.CommandBuffers(frame))
}

// RebuildTarget waits for the device and recreates the swapchain resources
// for the platform's current framebuffer size. The shading pass and its
// pipelines survive; used for plain resizes.
func (renderer *Renderer) RebuildTarget() error {
	renderer.WaitIdle()
	width, height := renderer.platform.FramebufferSize()
	if width == 0 || height == 0 {
		// Minimized; keep the rebuild pending.
		renderer.Target.RequestResize()
		return core.ErrTargetRebuilding
	}
	return renderer.Target.Rebuild(renderer.context, uint32(width), uint32(height))
}

// RecreateTarget destroys the target completely, shading pass included, and
// builds it again. The caller tears down everything registered with the pass
// first and recreates it afterwards.
func (renderer *Renderer) RecreateTarget() error {
	renderer.WaitIdle()
	width, height := renderer.platform.FramebufferSize()
	if width == 0 || height == 0 {
		// Minimized; keep the recreate pending.
		renderer.Target.RequestReload()
		return core.ErrTargetRebuilding
	}
	renderer.Target.Destroy(renderer.context)
	return renderer.Target.Create(renderer.context, uint32(width), uint32(height))
}

func (renderer *Renderer) createInstance(applicationName string) error {
	applicationInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(applicationName),
		PEngineName:        VulkanSafeString("Magma Engine"),
		EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
	}

	extensions := renderer.platform.GetRequiredExtensionNames()
	var layers []string
	if renderer.debug {
		extensions = append(extensions, "VK_EXT_debug_report")
		layers = append(layers, "VK_LAYER_KHRONOS_validation")
		core.LogInfo("validation layers enabled")
	}

	instanceCreateInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        applicationInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     VulkanSafeStrings(layers),
	}

	return lockPool.SafeCall(InstanceManagement, func() error {
		if res := vk.CreateInstance(&instanceCreateInfo, renderer.context.Allocator, &renderer.context.Instance); res != vk.Success {
			return errVulkan("vkCreateInstance", res)
		}
		if err := vk.InitInstance(renderer.context.Instance); err != nil {
			return err
		}
		return nil
	})
}

func (renderer *Renderer) setupDebugMessenger() {
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var callback vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(renderer.context.Instance, &debugCreateInfo, renderer.context.Allocator, &callback); res != vk.Success {
		core.LogWarn("failed to create debug callback: %s", VulkanResultString(res))
		return
	}
	renderer.context.debugMessenger = callback
}

func (renderer *Renderer) createPipelineCache() error {
	cacheCreateInfo := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	return lockPool.SafeCall(PipelineManagement, func() error {
		if res := vk.CreatePipelineCache(renderer.context.Device.LogicalDevice, &cacheCreateInfo, renderer.context.Allocator, &renderer.context.PipelineCache); res != vk.Success {
			return errVulkan("vkCreatePipelineCache", res)
		}
		return nil
	})
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
