package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/resource"
)

// SpirvMagic is the first word of every SPIR-V module.
const SpirvMagic uint32 = 0x07230203

const shaderEntryPoint = "main"

func shaderStageFlag(stage resource.ShaderStage) (vk.ShaderStageFlagBits, error) {
	switch stage {
	case resource.ShaderStageVertex:
		return vk.ShaderStageVertexBit, nil
	case resource.ShaderStageFragment:
		return vk.ShaderStageFragmentBit, nil
	default:
		return 0, core.UserError("unknown shader stage %d", stage)
	}
}

// checkSpirv rejects code that cannot be a SPIR-V module.
func checkSpirv(words []uint32) error {
	if len(words) < 5 {
		return core.UserError("shader code is %d words, a SPIR-V header alone is 5", len(words))
	}
	if words[0] != SpirvMagic {
		return core.UserError("shader code starts with 0x%08x, not the SPIR-V magic", words[0])
	}
	return nil
}

// ShaderModule is a compiled shader and the stage it was declared for.
type ShaderModule struct {
	Module vk.ShaderModule
	Stage  resource.ShaderStage
}

func NewShaderModule(ctx *VkContext, data *resource.ShaderCreationData) (*ShaderModule, error) {
	if _, err := shaderStageFlag(data.Stage); err != nil {
		return nil, err
	}
	if err := checkSpirv(data.Data); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	createInfo := shaderModuleCreateInfo(data.Data)
	var module vk.ShaderModule
	if err := check(vk.CreateShaderModule(ctx.Device.Logical, &createInfo, nil, &module), "vkCreateShaderModule"); err != nil {
		return nil, err
	}
	return &ShaderModule{Module: module, Stage: data.Stage}, nil
}

// shaderModuleCreateInfo sizes the module in bytes, the code itself is words.
func shaderModuleCreateInfo(words []uint32) vk.ShaderModuleCreateInfo {
	return vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(words) * 4),
		PCode:    words,
	}
}

// stageInfo describes the module as a pipeline stage bound at stage.
func (s *ShaderModule) stageInfo(stage vk.ShaderStageFlagBits) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: s.Module,
		PName:  VulkanSafeString(shaderEntryPoint),
	}
}

func (s *ShaderModule) Kind() resource.Kind {
	return resource.KindShader
}

func (s *ShaderModule) Release(ctx *VkContext) {
	if s.Module != vk.NullShaderModule {
		vk.DestroyShaderModule(ctx.Device.Logical, s.Module, nil)
		s.Module = vk.NullShaderModule
	}
}
