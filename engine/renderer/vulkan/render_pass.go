package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/magma/engine/core"
)

// ShadingPass owns the VkRenderPass the frame renders through and the set of
// graphics pipelines processed inside it. Pipelines are processed in the
// order they were added.
type ShadingPass struct {
	Handle vk.RenderPass

	colorFormat vk.Format
	depthFormat vk.Format

	ClearColor [4]float32
	ClearDepth float32

	targetWidth  uint32
	targetHeight uint32

	pipelines []*GraphicsPipeline
}

func NewShadingPass(colorFormat, depthFormat vk.Format) *ShadingPass {
	return &ShadingPass{
		colorFormat: colorFormat,
		depthFormat: depthFormat,
		ClearColor:  [4]float32{0.0, 0.0, 0.0, 1.0},
		ClearDepth:  1.0,
	}
}

func (shadingPass *ShadingPass) Create(context *VulkanContext) error {
	colorAttachment := vk.AttachmentDescription{
		Format:         shadingPass.colorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	colorAttachmentReference := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}

	depthAttachment := vk.AttachmentDescription{
		Format:         shadingPass.depthFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	depthAttachmentReference := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vk.AttachmentReference{colorAttachmentReference},
		PDepthStencilAttachment: &depthAttachmentReference,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	renderPassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 2,
		PAttachments:    []vk.AttachmentDescription{colorAttachment, depthAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	return lockPool.SafeCall(RenderpassManagement, func() error {
		if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderPassCreateInfo, context.Allocator, &shadingPass.Handle); res != vk.Success {
			return errVulkan("vkCreateRenderPass", res)
		}
		return nil
	})
}

func (shadingPass *ShadingPass) Destroy(context *VulkanContext) {
	for _, pipeline := range shadingPass.pipelines {
		pipeline.Destroy(context)
	}
	if shadingPass.Handle != vk.NullRenderPass {
		lockPool.SafeCall(RenderpassManagement, func() error {
			vk.DestroyRenderPass(context.Device.LogicalDevice, shadingPass.Handle, context.Allocator)
			return nil
		})
		shadingPass.Handle = vk.NullRenderPass
	}
}

// AddPipeline registers a pipeline with the pass, associates it with subpass
// zero and sizes it for the current target extent.
func (shadingPass *ShadingPass) AddPipeline(pipeline *GraphicsPipeline) {
	pipeline.SetRenderPass(shadingPass.Handle, 0)
	if shadingPass.targetWidth > 0 && shadingPass.targetHeight > 0 {
		pipeline.ApplyTargetSize(shadingPass.targetWidth, shadingPass.targetHeight)
	}
	shadingPass.pipelines = append(shadingPass.pipelines, pipeline)
}

func (shadingPass *ShadingPass) RemovePipeline(pipeline *GraphicsPipeline) {
	for i, candidate := range shadingPass.pipelines {
		if candidate.ID == pipeline.ID {
			shadingPass.pipelines = append(shadingPass.pipelines[:i], shadingPass.pipelines[i+1:]...)
			return
		}
	}
	core.LogWarn("pipeline %s not registered with shading pass", pipeline.ID.String())
}

func (shadingPass *ShadingPass) Pipelines() []*GraphicsPipeline {
	return shadingPass.pipelines
}

// ApplyTargetSize updates every registered pipeline's viewport for the new
// target extent. The extent is remembered so pipelines registered later start
// correctly sized.
func (shadingPass *ShadingPass) ApplyTargetSize(width, height uint32) {
	shadingPass.targetWidth = width
	shadingPass.targetHeight = height
	for _, pipeline := range shadingPass.pipelines {
		pipeline.ApplyTargetSize(width, height)
	}
}

// Begin records the pass begin with the configured clear values.
func (shadingPass *ShadingPass) Begin(commandBuffer *VulkanCommandBuffer, framebuffer vk.Framebuffer, width, height uint32) {
	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(shadingPass.ClearColor[:])
	clearValues[1].SetDepthStencil(shadingPass.ClearDepth, 0)

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  shadingPass.Handle,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: 2,
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = CommandBufferStateInRenderPass
}

func (shadingPass *ShadingPass) End(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = CommandBufferStateRecording
}

// Process runs every registered pipeline inside an already begun pass.
func (shadingPass *ShadingPass) Process(commandBuffer *VulkanCommandBuffer) error {
	for _, pipeline := range shadingPass.pipelines {
		if err := pipeline.Process(commandBuffer); err != nil {
			return err
		}
	}
	return nil
}
