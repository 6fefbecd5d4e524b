package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// ComputePipeline bakes a single compute shader stage against a layout.
type ComputePipeline struct {
	*Pipeline

	stage *ShaderStage
}

func NewComputePipeline(layout *PipelineLayout) *ComputePipeline {
	computePipeline := &ComputePipeline{}
	computePipeline.Pipeline = newPipeline(layout, computePipeline)
	return computePipeline
}

func (computePipeline *ComputePipeline) bindPoint() vk.PipelineBindPoint {
	return vk.PipelineBindPointCompute
}

func (computePipeline *ComputePipeline) prepare(commandBuffer *VulkanCommandBuffer) {}

// SetShaderStage installs the compute stage. A stage flagged for anything
// other than compute is rejected.
func (computePipeline *ComputePipeline) SetShaderStage(stage *ShaderStage) error {
	if stage.Stage() != vk.ShaderStageComputeBit {
		return fmt.Errorf("compute pipeline requires a compute shader stage")
	}
	if !stage.HasCode() {
		return fmt.Errorf("shader stage has no code")
	}
	computePipeline.stage = stage
	return nil
}

// SetShader is a convenience building the stage from a SPIR-V blob.
func (computePipeline *ComputePipeline) SetShader(code []byte) error {
	stage := NewShaderStage(vk.ShaderStageComputeBit)
	if err := stage.AddCode(code); err != nil {
		return err
	}
	return computePipeline.SetShaderStage(stage)
}

func (computePipeline *ComputePipeline) createHandle(context *VulkanContext) error {
	if computePipeline.stage == nil {
		return fmt.Errorf("compute pipeline has no shader stage")
	}
	if err := computePipeline.stage.createModule(context); err != nil {
		return err
	}
	defer computePipeline.stage.destroyModule(context)

	pipelineCreateInfo := vk.ComputePipelineCreateInfo{
		SType:             vk.StructureTypeComputePipelineCreateInfo,
		Stage:             computePipeline.stage.stageCreateInfo(),
		Layout:            computePipeline.layout.Handle,
		BasePipelineIndex: -1,
	}

	return lockPool.SafeCall(PipelineManagement, func() error {
		handles := make([]vk.Pipeline, 1)
		if res := vk.CreateComputePipelines(context.Device.LogicalDevice, context.PipelineCache,
			1, []vk.ComputePipelineCreateInfo{pipelineCreateInfo}, context.Allocator, handles); res != vk.Success {
			return errVulkan("vkCreateComputePipelines", res)
		}
		computePipeline.setHandle(handles[0])
		return nil
	})
}
