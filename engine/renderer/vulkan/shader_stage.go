package vulkan

import (
	"fmt"
	"os"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// ShaderStage owns one SPIR-V blob destined for a single pipeline stage.
// The module handle is created on demand right before pipeline creation and
// destroyed together with the pipeline that consumed it.
type ShaderStage struct {
	stage      vk.ShaderStageFlagBits
	code       []byte
	entrypoint string

	specializationEntries []vk.SpecializationMapEntry
	specializationData    []byte

	module vk.ShaderModule
}

func NewShaderStage(stage vk.ShaderStageFlagBits) *ShaderStage {
	return &ShaderStage{
		stage:      stage,
		entrypoint: "main",
	}
}

func (shaderStage *ShaderStage) Stage() vk.ShaderStageFlagBits { return shaderStage.stage }

func (shaderStage *ShaderStage) SetEntrypoint(name string) {
	if name != "" {
		shaderStage.entrypoint = name
	}
}

// AddCode stores the SPIR-V blob. The byte length must be a multiple of four.
func (shaderStage *ShaderStage) AddCode(code []byte) error {
	if len(code) == 0 || len(code)%4 != 0 {
		return fmt.Errorf("shader code size %d is not a multiple of 4", len(code))
	}
	shaderStage.code = make([]byte, len(code))
	copy(shaderStage.code, code)
	return nil
}

// AddCodeFromFile reads a SPIR-V blob from disk.
func (shaderStage *ShaderStage) AddCodeFromFile(path string) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read shader %s: %w", path, err)
	}
	return shaderStage.AddCode(code)
}

func (shaderStage *ShaderStage) HasCode() bool { return len(shaderStage.code) > 0 }

// SetSpecialization attaches specialization constants resolved at pipeline
// creation time.
func (shaderStage *ShaderStage) SetSpecialization(entries []vk.SpecializationMapEntry, data []byte) {
	shaderStage.specializationEntries = entries
	shaderStage.specializationData = data
}

func (shaderStage *ShaderStage) createModule(context *VulkanContext) error {
	if !shaderStage.HasCode() {
		return fmt.Errorf("shader stage has no code")
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(shaderStage.code)),
		PCode:    sliceUint32(shaderStage.code),
	}
	return lockPool.SafeCall(ShaderManagement, func() error {
		if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &shaderStage.module); res != vk.Success {
			return errVulkan("vkCreateShaderModule", res)
		}
		return nil
	})
}

func (shaderStage *ShaderStage) destroyModule(context *VulkanContext) {
	if shaderStage.module != vk.NullShaderModule {
		lockPool.SafeCall(ShaderManagement, func() error {
			vk.DestroyShaderModule(context.Device.LogicalDevice, shaderStage.module, context.Allocator)
			return nil
		})
		shaderStage.module = vk.NullShaderModule
	}
}

func (shaderStage *ShaderStage) stageCreateInfo() vk.PipelineShaderStageCreateInfo {
	createInfo := vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  shaderStage.stage,
		Module: shaderStage.module,
		PName:  VulkanSafeString(shaderStage.entrypoint),
	}
	if len(shaderStage.specializationEntries) > 0 && len(shaderStage.specializationData) > 0 {
		createInfo.PSpecializationInfo = []vk.SpecializationInfo{{
			MapEntryCount: uint32(len(shaderStage.specializationEntries)),
			PMapEntries:   shaderStage.specializationEntries,
			DataSize:      uint64(len(shaderStage.specializationData)),
			PData:         unsafe.Pointer(&shaderStage.specializationData[0]),
		}}
	}
	return createInfo
}
