package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// SizePolicy controls how a graphics pipeline derives its viewport and
// scissor from the shading target.
type SizePolicy int

const (
	// SizeInput follows the target extent, covering it fully. The default.
	SizeInput SizePolicy = iota
	// SizeAbsolute keeps whatever viewport and scissor the caller set.
	SizeAbsolute
	// SizeRelative scales a normalized rectangle by the target extent.
	SizeRelative
)

// NormalizedRect is a viewport rectangle in [0,1] target coordinates.
type NormalizedRect struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
}

// GraphicsPipeline accumulates fixed-function state and shader stages, then
// bakes them into a VkPipeline against a render pass. Viewport and scissor
// are dynamic states so the same pipeline survives target resizes.
type GraphicsPipeline struct {
	*Pipeline

	renderPass vk.RenderPass
	subpass    uint32

	stages []*ShaderStage

	vertexBindings   []vk.VertexInputBindingDescription
	vertexAttributes []vk.VertexInputAttributeDescription

	topology               vk.PrimitiveTopology
	primitiveRestartEnable bool

	polygonMode vk.PolygonMode
	cullMode    vk.CullModeFlags
	frontFace   vk.FrontFace

	lineWidth     float32
	autoLineWidth bool

	colorBlendAttachments []vk.PipelineColorBlendAttachmentState

	depthTestEnable  bool
	depthWriteEnable bool
	depthCompareOp   vk.CompareOp

	sampleCount vk.SampleCountFlagBits

	sizing       SizePolicy
	viewport     vk.Viewport
	scissor      vk.Rect2D
	relativeRect NormalizedRect
}

func NewGraphicsPipeline(layout *PipelineLayout) *GraphicsPipeline {
	graphicsPipeline := &GraphicsPipeline{
		topology:       vk.PrimitiveTopologyTriangleList,
		polygonMode:    vk.PolygonModeFill,
		cullMode:       vk.CullModeFlags(vk.CullModeBackBit),
		frontFace:      vk.FrontFaceCounterClockwise,
		lineWidth:      1.0,
		depthCompareOp: vk.CompareOpLessOrEqual,
		sampleCount:    vk.SampleCount1Bit,
		sizing:         SizeInput,
		relativeRect:   NormalizedRect{Width: 1, Height: 1},
	}
	graphicsPipeline.Pipeline = newPipeline(layout, graphicsPipeline)
	return graphicsPipeline
}

func (graphicsPipeline *GraphicsPipeline) bindPoint() vk.PipelineBindPoint {
	return vk.PipelineBindPointGraphics
}

// SetRenderPass associates the pipeline with the pass and subpass it will be
// created against. Must be set before Create.
func (graphicsPipeline *GraphicsPipeline) SetRenderPass(renderPass vk.RenderPass, subpass uint32) {
	graphicsPipeline.renderPass = renderPass
	graphicsPipeline.subpass = subpass
}

func (graphicsPipeline *GraphicsPipeline) AddShaderStage(stage *ShaderStage) error {
	if !stage.HasCode() {
		return fmt.Errorf("shader stage has no code")
	}
	graphicsPipeline.stages = append(graphicsPipeline.stages, stage)
	return nil
}

// AddShader is a convenience building a stage from a SPIR-V blob.
func (graphicsPipeline *GraphicsPipeline) AddShader(code []byte, stage vk.ShaderStageFlagBits) error {
	shaderStage := NewShaderStage(stage)
	if err := shaderStage.AddCode(code); err != nil {
		return err
	}
	return graphicsPipeline.AddShaderStage(shaderStage)
}

func (graphicsPipeline *GraphicsPipeline) ClearShaderStages() {
	graphicsPipeline.stages = nil
}

func (graphicsPipeline *GraphicsPipeline) SetVertexInputBinding(binding vk.VertexInputBindingDescription) {
	graphicsPipeline.SetVertexInputBindings([]vk.VertexInputBindingDescription{binding})
}

func (graphicsPipeline *GraphicsPipeline) SetVertexInputBindings(bindings []vk.VertexInputBindingDescription) {
	graphicsPipeline.vertexBindings = bindings
}

func (graphicsPipeline *GraphicsPipeline) SetVertexInputAttributes(attributes []vk.VertexInputAttributeDescription) {
	graphicsPipeline.vertexAttributes = attributes
}

func (graphicsPipeline *GraphicsPipeline) SetInputTopology(topology vk.PrimitiveTopology, primitiveRestart bool) {
	graphicsPipeline.topology = topology
	graphicsPipeline.primitiveRestartEnable = primitiveRestart
}

func (graphicsPipeline *GraphicsPipeline) SetRasterization(polygonMode vk.PolygonMode, cullMode vk.CullModeFlags, frontFace vk.FrontFace) {
	graphicsPipeline.polygonMode = polygonMode
	graphicsPipeline.cullMode = cullMode
	graphicsPipeline.frontFace = frontFace
}

// SetLineWidth enables a non-default line width. Widths other than 1.0 add
// the dynamic line width state so it can be set while recording.
func (graphicsPipeline *GraphicsPipeline) SetLineWidth(width float32) {
	graphicsPipeline.lineWidth = width
	graphicsPipeline.autoLineWidth = width != 1.0
}

func (graphicsPipeline *GraphicsPipeline) SetDepthTestAndWrite(testEnable, writeEnable bool) {
	graphicsPipeline.depthTestEnable = testEnable
	graphicsPipeline.depthWriteEnable = writeEnable
}

func (graphicsPipeline *GraphicsPipeline) SetDepthCompareOp(op vk.CompareOp) {
	graphicsPipeline.depthCompareOp = op
}

func (graphicsPipeline *GraphicsPipeline) SetSampleCount(count vk.SampleCountFlagBits) {
	graphicsPipeline.sampleCount = count
}

func (graphicsPipeline *GraphicsPipeline) AddColorBlendAttachmentState(state vk.PipelineColorBlendAttachmentState) {
	graphicsPipeline.colorBlendAttachments = append(graphicsPipeline.colorBlendAttachments, state)
}

// AddColorBlendAttachment appends the standard alpha blending attachment.
func (graphicsPipeline *GraphicsPipeline) AddColorBlendAttachment() {
	graphicsPipeline.AddColorBlendAttachmentState(vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(
			vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	})
}

func (graphicsPipeline *GraphicsPipeline) SizingPolicy() SizePolicy { return graphicsPipeline.sizing }

func (graphicsPipeline *GraphicsPipeline) SetSizingPolicy(policy SizePolicy) {
	graphicsPipeline.sizing = policy
}

// SetViewportAndScissor fixes the viewport and scissor and switches the
// pipeline to absolute sizing, so target resizes leave them alone.
func (graphicsPipeline *GraphicsPipeline) SetViewportAndScissor(viewport vk.Viewport, scissor vk.Rect2D) {
	graphicsPipeline.viewport = viewport
	graphicsPipeline.scissor = scissor
	graphicsPipeline.sizing = SizeAbsolute
}

// SetRelativeRect switches to relative sizing against the given normalized
// rectangle.
func (graphicsPipeline *GraphicsPipeline) SetRelativeRect(rect NormalizedRect) {
	graphicsPipeline.relativeRect = rect
	graphicsPipeline.sizing = SizeRelative
}

// ApplyTargetSize recomputes the viewport and scissor for the current sizing
// policy. Called by the owning render pass whenever the target extent
// changes.
func (graphicsPipeline *GraphicsPipeline) ApplyTargetSize(width, height uint32) {
	if graphicsPipeline.sizing == SizeAbsolute {
		return
	}
	graphicsPipeline.viewport, graphicsPipeline.scissor = computeViewportScissor(
		graphicsPipeline.sizing, graphicsPipeline.relativeRect, width, height)
}

// computeViewportScissor resolves the viewport and scissor for a sizing
// policy and target extent.
func computeViewportScissor(policy SizePolicy, rect NormalizedRect, width, height uint32) (vk.Viewport, vk.Rect2D) {
	switch policy {
	case SizeRelative:
		x := rect.X * float32(width)
		y := rect.Y * float32(height)
		w := rect.Width * float32(width)
		h := rect.Height * float32(height)
		viewport := vk.Viewport{X: x, Y: y, Width: w, Height: h, MinDepth: 0, MaxDepth: 1}
		scissor := vk.Rect2D{
			Offset: vk.Offset2D{X: int32(x), Y: int32(y)},
			Extent: vk.Extent2D{Width: uint32(w), Height: uint32(h)},
		}
		return viewport, scissor
	default:
		viewport := vk.Viewport{Width: float32(width), Height: float32(height), MinDepth: 0, MaxDepth: 1}
		scissor := vk.Rect2D{Extent: vk.Extent2D{Width: width, Height: height}}
		return viewport, scissor
	}
}

func (graphicsPipeline *GraphicsPipeline) Viewport() vk.Viewport { return graphicsPipeline.viewport }
func (graphicsPipeline *GraphicsPipeline) Scissor() vk.Rect2D    { return graphicsPipeline.scissor }

// prepare records the dynamic states before the process callback runs.
func (graphicsPipeline *GraphicsPipeline) prepare(commandBuffer *VulkanCommandBuffer) {
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{graphicsPipeline.viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{graphicsPipeline.scissor})
	if graphicsPipeline.autoLineWidth {
		vk.CmdSetLineWidth(commandBuffer.Handle, graphicsPipeline.lineWidth)
	}
}

// CopyTo transfers the fixed-function configuration onto another pipeline.
// Shader stages, the render pass association and the destination's handles
// and identity stay untouched.
func (graphicsPipeline *GraphicsPipeline) CopyTo(target *GraphicsPipeline) {
	target.vertexBindings = append([]vk.VertexInputBindingDescription(nil), graphicsPipeline.vertexBindings...)
	target.vertexAttributes = append([]vk.VertexInputAttributeDescription(nil), graphicsPipeline.vertexAttributes...)
	target.topology = graphicsPipeline.topology
	target.primitiveRestartEnable = graphicsPipeline.primitiveRestartEnable
	target.polygonMode = graphicsPipeline.polygonMode
	target.cullMode = graphicsPipeline.cullMode
	target.frontFace = graphicsPipeline.frontFace
	target.lineWidth = graphicsPipeline.lineWidth
	target.autoLineWidth = graphicsPipeline.autoLineWidth
	target.colorBlendAttachments = append([]vk.PipelineColorBlendAttachmentState(nil), graphicsPipeline.colorBlendAttachments...)
	target.depthTestEnable = graphicsPipeline.depthTestEnable
	target.depthWriteEnable = graphicsPipeline.depthWriteEnable
	target.depthCompareOp = graphicsPipeline.depthCompareOp
	target.sampleCount = graphicsPipeline.sampleCount
	target.sizing = graphicsPipeline.sizing
	target.viewport = graphicsPipeline.viewport
	target.scissor = graphicsPipeline.scissor
	target.relativeRect = graphicsPipeline.relativeRect
}

func (graphicsPipeline *GraphicsPipeline) CopyFrom(source *GraphicsPipeline) {
	source.CopyTo(graphicsPipeline)
}

func (graphicsPipeline *GraphicsPipeline) createHandle(context *VulkanContext) error {
	if graphicsPipeline.renderPass == vk.NullRenderPass {
		return fmt.Errorf("graphics pipeline has no render pass")
	}
	if len(graphicsPipeline.stages) == 0 {
		return fmt.Errorf("graphics pipeline has no shader stages")
	}

	for _, stage := range graphicsPipeline.stages {
		if err := stage.createModule(context); err != nil {
			graphicsPipeline.destroyModules(context)
			return err
		}
	}
	defer graphicsPipeline.destroyModules(context)

	stageCreateInfos := make([]vk.PipelineShaderStageCreateInfo, len(graphicsPipeline.stages))
	for i, stage := range graphicsPipeline.stages {
		stageCreateInfos[i] = stage.stageCreateInfo()
	}

	vertexInputState := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(graphicsPipeline.vertexBindings)),
		PVertexBindingDescriptions:      graphicsPipeline.vertexBindings,
		VertexAttributeDescriptionCount: uint32(len(graphicsPipeline.vertexAttributes)),
		PVertexAttributeDescriptions:    graphicsPipeline.vertexAttributes,
	}

	inputAssemblyState := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: graphicsPipeline.topology,
	}
	if graphicsPipeline.primitiveRestartEnable {
		inputAssemblyState.PrimitiveRestartEnable = vk.True
	}

	// Counts only; the actual rectangles are dynamic state.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizationState := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: graphicsPipeline.polygonMode,
		LineWidth:   graphicsPipeline.lineWidth,
		CullMode:    graphicsPipeline.cullMode,
		FrontFace:   graphicsPipeline.frontFace,
	}

	multisampleState := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: graphicsPipeline.sampleCount,
		MinSampleShading:     1.0,
	}

	depthStencilState := vk.PipelineDepthStencilStateCreateInfo{
		SType:          vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthCompareOp: graphicsPipeline.depthCompareOp,
		MaxDepthBounds: 1.0,
	}
	if graphicsPipeline.depthTestEnable {
		depthStencilState.DepthTestEnable = vk.True
	}
	if graphicsPipeline.depthWriteEnable {
		depthStencilState.DepthWriteEnable = vk.True
	}

	blendAttachments := graphicsPipeline.colorBlendAttachments
	if len(blendAttachments) == 0 {
		// The pass always has one color attachment to write to.
		blendAttachments = []vk.PipelineColorBlendAttachmentState{{
			ColorWriteMask: vk.ColorComponentFlags(
				vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
		}}
	}
	colorBlendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	if graphicsPipeline.autoLineWidth {
		dynamicStates = append(dynamicStates, vk.DynamicStateLineWidth)
	}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stageCreateInfos)),
		PStages:             stageCreateInfos,
		PVertexInputState:   &vertexInputState,
		PInputAssemblyState: &inputAssemblyState,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizationState,
		PMultisampleState:   &multisampleState,
		PDepthStencilState:  &depthStencilState,
		PColorBlendState:    &colorBlendState,
		PDynamicState:       &dynamicState,
		Layout:              graphicsPipeline.layout.Handle,
		RenderPass:          graphicsPipeline.renderPass,
		Subpass:             graphicsPipeline.subpass,
		BasePipelineIndex:   -1,
	}

	return lockPool.SafeCall(PipelineManagement, func() error {
		handles := make([]vk.Pipeline, 1)
		if res := vk.CreateGraphicsPipelines(context.Device.LogicalDevice, context.PipelineCache,
			1, []vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, context.Allocator, handles); res != vk.Success {
			return errVulkan("vkCreateGraphicsPipelines", res)
		}
		graphicsPipeline.setHandle(handles[0])
		return nil
	})
}

func (graphicsPipeline *GraphicsPipeline) destroyModules(context *VulkanContext) {
	for _, stage := range graphicsPipeline.stages {
		stage.destroyModule(context)
	}
}
