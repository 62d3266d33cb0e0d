package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/resource"
)

const (
	uboBinding     = 0
	samplerBinding = 1
)

// descriptorSetLayoutBindings is the one layout pipelines bind: a uniform
// buffer at binding 0 and a combined image sampler for the fragment stage at
// binding 1.
func descriptorSetLayoutBindings(usage resource.UboUsage) ([]vk.DescriptorSetLayoutBinding, error) {
	var uboStages vk.ShaderStageFlags
	switch usage {
	case resource.VertexShaderRead:
		uboStages = vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	case resource.VertexAndFragmentShaderRead:
		uboStages = vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	default:
		return nil, core.UserError("unknown ubo usage %d", usage)
	}
	return []vk.DescriptorSetLayoutBinding{
		{
			Binding:         uboBinding,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      uboStages,
		},
		{
			Binding:         samplerBinding,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}, nil
}

type DescriptorSetLayoutWrapper struct {
	Layout vk.DescriptorSetLayout
}

func NewDescriptorSetLayout(ctx *VkContext, data *resource.DescriptorSetLayoutCreationData) (*DescriptorSetLayoutWrapper, error) {
	bindings, err := descriptorSetLayoutBindings(data.UboUsage)
	if err != nil {
		return nil, err
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if err := check(vk.CreateDescriptorSetLayout(ctx.Device.Logical, &layoutInfo, nil, &layout), "vkCreateDescriptorSetLayout"); err != nil {
		return nil, err
	}
	return &DescriptorSetLayoutWrapper{Layout: layout}, nil
}

func (d *DescriptorSetLayoutWrapper) Kind() resource.Kind {
	return resource.KindDescriptorSetLayout
}

func (d *DescriptorSetLayoutWrapper) Release(ctx *VkContext) {
	if d.Layout != nil {
		vk.DestroyDescriptorSetLayout(ctx.Device.Logical, d.Layout, nil)
		d.Layout = nil
	}
}

// PipelineLayoutWrapper binds one descriptor set layout and no push
// constants.
type PipelineLayoutWrapper struct {
	Layout vk.PipelineLayout
}

func NewPipelineLayout(ctx *VkContext, reg *resource.Registry[*VkContext], data *resource.PipelineLayoutCreationData) (*PipelineLayoutWrapper, error) {
	setLayout, err := resource.MustGet[*DescriptorSetLayoutWrapper](reg, resource.ForResource(data.DescriptorSetLayoutIndex))
	if err != nil {
		return nil, err
	}
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{setLayout.Layout},
		PushConstantRangeCount: 0,
		PPushConstantRanges:    nil,
	}
	var layout vk.PipelineLayout
	if err := check(vk.CreatePipelineLayout(ctx.Device.Logical, &pipelineLayoutCreateInfo, nil, &layout), "vkCreatePipelineLayout"); err != nil {
		return nil, err
	}
	return &PipelineLayoutWrapper{Layout: layout}, nil
}

func (p *PipelineLayoutWrapper) Kind() resource.Kind {
	return resource.KindPipelineLayout
}

func (p *PipelineLayoutWrapper) Release(ctx *VkContext) {
	if p.Layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(ctx.Device.Logical, p.Layout, nil)
		p.Layout = vk.NullPipelineLayout
	}
}
