package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/magma/engine/core"
)

// pipelineVariant is implemented by the graphics and compute pipelines. The
// base Pipeline drives the shared lifecycle and delegates the bind-point
// specific pieces here.
type pipelineVariant interface {
	// createHandle builds the VkPipeline and stores it through setHandle.
	createHandle(context *VulkanContext) error
	// bindPoint reports where the pipeline binds on a command buffer.
	bindPoint() vk.PipelineBindPoint
	// prepare records variant specific dynamic state right after binding.
	prepare(commandBuffer *VulkanCommandBuffer)
}

// Pipeline is the shared lifecycle of graphics and compute pipelines. A
// pipeline is created against a layout, can be recreated after its handle is
// dropped, and tracks whether a render pass should bind and process it.
type Pipeline struct {
	ID core.Identifier

	layout  *PipelineLayout
	handle  vk.Pipeline
	variant pipelineVariant
	created bool

	// active pipelines are processed by their render pass, inactive ones
	// are skipped but keep their handle.
	active bool
	// autoBind pipelines bind themselves at the start of processing.
	autoBind bool

	onProcess func(commandBuffer *VulkanCommandBuffer) error
}

func newPipeline(layout *PipelineLayout, variant pipelineVariant) *Pipeline {
	return &Pipeline{
		ID:       core.NewIdentifier(),
		layout:   layout,
		variant:  variant,
		active:   true,
		autoBind: true,
	}
}

func (pipeline *Pipeline) Layout() *PipelineLayout { return pipeline.layout }
func (pipeline *Pipeline) Handle() vk.Pipeline     { return pipeline.handle }
func (pipeline *Pipeline) Created() bool           { return pipeline.created }

func (pipeline *Pipeline) Active() bool         { return pipeline.active }
func (pipeline *Pipeline) SetActive(state bool) { pipeline.active = state }
func (pipeline *Pipeline) ToggleActive()        { pipeline.active = !pipeline.active }

func (pipeline *Pipeline) AutoBind() bool         { return pipeline.autoBind }
func (pipeline *Pipeline) SetAutoBind(state bool) { pipeline.autoBind = state }

// SetProcessCallback installs the per-frame recording callback invoked after
// the pipeline is bound.
func (pipeline *Pipeline) SetProcessCallback(fn func(commandBuffer *VulkanCommandBuffer) error) {
	pipeline.onProcess = fn
}

// Create builds the driver handle. The layout must exist first; a layout that
// was never created is created here so callers can treat the pipeline as the
// single entry point.
func (pipeline *Pipeline) Create(context *VulkanContext) error {
	if pipeline.Created() {
		return fmt.Errorf("pipeline already created")
	}
	if pipeline.layout == nil {
		return fmt.Errorf("pipeline has no layout")
	}
	if !pipeline.layout.Created() {
		if err := pipeline.layout.Create(context); err != nil {
			return err
		}
	}
	if err := pipeline.variant.createHandle(context); err != nil {
		return err
	}
	pipeline.created = true
	return nil
}

func (pipeline *Pipeline) setHandle(handle vk.Pipeline) {
	pipeline.handle = handle
}

// Destroy drops the driver handle but keeps the configuration, so Create can
// rebuild the same pipeline after a target rebuild. The layout is shared and
// stays alive.
func (pipeline *Pipeline) Destroy(context *VulkanContext) {
	if !pipeline.Created() {
		return
	}
	if pipeline.handle != vk.NullPipeline {
		lockPool.SafeCall(PipelineManagement, func() error {
			vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.handle, context.Allocator)
			return nil
		})
		pipeline.handle = vk.NullPipeline
	}
	pipeline.created = false
}

// Bind records the bind command for this pipeline's bind point.
func (pipeline *Pipeline) Bind(commandBuffer *VulkanCommandBuffer) {
	vk.CmdBindPipeline(commandBuffer.Handle, pipeline.variant.bindPoint(), pipeline.handle)
}

// Process is invoked by the owning render pass each frame. Inactive pipelines
// are skipped. With autoBind set the pipeline binds itself before running the
// callback.
func (pipeline *Pipeline) Process(commandBuffer *VulkanCommandBuffer) error {
	if !pipeline.active {
		return nil
	}
	if pipeline.autoBind {
		pipeline.Bind(commandBuffer)
		pipeline.variant.prepare(commandBuffer)
	}
	if pipeline.onProcess != nil {
		return pipeline.onProcess(commandBuffer)
	}
	return nil
}
