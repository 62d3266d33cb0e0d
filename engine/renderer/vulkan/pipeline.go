package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/model"
	"github.com/spaghettifunk/glacier/engine/resource"
)

// vertexAttributes matches model.StaticVertex: position, normal and texture
// coordinate at locations 0, 1 and 2.
func vertexAttributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 24},
	}
}

func vertexStride(declared uint32) uint32 {
	if declared == 0 {
		return model.VertexSizeBytes
	}
	return declared
}

// pipelineInputs are the registry items a pipeline is built from. None of
// them is owned by the pipeline.
type pipelineInputs struct {
	renderpass     *RenderpassWrapper
	setLayout      *DescriptorSetLayoutWrapper
	pipelineLayout *PipelineLayoutWrapper
	vertexShader   *ShaderModule
	fragmentShader *ShaderModule
	vbo            *BufferWrapper
	texture        *ImageWrapper
}

func resolvePipelineInputs(reg *resource.Registry[*VkContext], data *resource.PipelineCreationData) (*pipelineInputs, error) {
	var in pipelineInputs
	var err error
	renderpassHandle := resource.WithMinorVariation(data.RenderpassIndex, uint16(data.SwapchainImageIndex))
	if in.renderpass, err = resource.MustGet[*RenderpassWrapper](reg, renderpassHandle); err != nil {
		return nil, err
	}
	if in.setLayout, err = resource.MustGet[*DescriptorSetLayoutWrapper](reg, resource.ForResource(data.DescriptorSetLayoutIndex)); err != nil {
		return nil, err
	}
	if in.pipelineLayout, err = resource.MustGet[*PipelineLayoutWrapper](reg, resource.ForResource(data.PipelineLayoutIndex)); err != nil {
		return nil, err
	}
	// The vertex shader slot is looked up with the vbo index. Scenes keep the
	// two equal.
	if in.vertexShader, err = resource.MustGet[*ShaderModule](reg, resource.ForResource(data.VboIndex)); err != nil {
		return nil, err
	}
	if in.fragmentShader, err = resource.MustGet[*ShaderModule](reg, resource.ForResource(data.FragmentShaderIndex)); err != nil {
		return nil, err
	}
	if in.vbo, err = resource.MustGet[*BufferWrapper](reg, resource.ForResource(data.VboIndex)); err != nil {
		return nil, err
	}
	if in.texture, err = resource.MustGet[*ImageWrapper](reg, resource.ForResource(data.TextureIndex)); err != nil {
		return nil, err
	}
	if in.vertexShader.Stage != resource.ShaderStageVertex {
		core.LogWarn("Shader %d is bound as vertex stage but was declared as %d.", data.VboIndex, in.vertexShader.Stage)
	}
	return &in, nil
}

// PipelineWrapper is a graphics pipeline plus the per pipeline state it
// draws with: uniform buffer, sampler and a descriptor set pointing at the
// texture.
type PipelineWrapper struct {
	Pipeline       vk.Pipeline
	Vbo            vk.Buffer
	VertexCount    uint32
	Ubo            *BufferWrapper
	TextureView    vk.ImageView
	Sampler        vk.Sampler
	DescriptorPool vk.DescriptorPool
	DescriptorSet  vk.DescriptorSet
	usesSwapchain  bool
	complexID      uint64
}

func NewPipelineWrapper(ctx *VkContext, reg *resource.Registry[*VkContext], id uint32, data *resource.PipelineCreationData) (*PipelineWrapper, error) {
	complexID, err := data.EncodeComplexPipelineID(id)
	if err != nil {
		return nil, err
	}
	in, err := resolvePipelineInputs(reg, data)
	if err != nil {
		return nil, err
	}

	p := &PipelineWrapper{
		Vbo:           in.vbo.Buffer,
		VertexCount:   uint32(in.vbo.ElementCount),
		TextureView:   in.texture.View,
		usesSwapchain: in.renderpass.UsesSwapchain(),
		complexID:     complexID,
	}
	// Release tolerates a partly built wrapper.
	fail := func(err error) (*PipelineWrapper, error) {
		p.Release(ctx)
		return nil, err
	}

	if p.Ubo, err = NewUniformBuffer(ctx, data.UboSizeBytes); err != nil {
		return fail(err)
	}
	if p.Sampler, err = createSampler(ctx.Device.Logical); err != nil {
		return fail(err)
	}
	if p.DescriptorPool, err = createDescriptorPool(ctx.Device.Logical); err != nil {
		return fail(err)
	}
	if p.DescriptorSet, err = allocateDescriptorSet(ctx.Device.Logical, p.DescriptorPool, in.setLayout.Layout); err != nil {
		return fail(err)
	}
	p.writeDescriptorSet(ctx.Device.Logical)
	if p.Pipeline, err = createGraphicsPipeline(ctx.Device.Logical, in, vertexStride(data.VboStrideBytes)); err != nil {
		return fail(err)
	}
	core.LogDebug("Graphics pipeline %d created for renderpass %d.", id, data.RenderpassIndex)
	return p, nil
}

func createSampler(device vk.Device) (vk.Sampler, error) {
	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	var sampler vk.Sampler
	if err := check(vk.CreateSampler(device, &samplerCreateInfo, nil, &sampler), "vkCreateSampler"); err != nil {
		return vk.NullSampler, err
	}
	return sampler, nil
}

// createDescriptorPool makes room for exactly one set holding one uniform
// buffer and one combined image sampler.
func createDescriptorPool(device vk.Device) (vk.DescriptorPool, error) {
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: 2,
		PPoolSizes: []vk.DescriptorPoolSize{
			{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1},
			{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 1},
		},
	}
	var pool vk.DescriptorPool
	if err := check(vk.CreateDescriptorPool(device, &poolInfo, nil, &pool), "vkCreateDescriptorPool"); err != nil {
		return nil, err
	}
	return pool, nil
}

func allocateDescriptorSet(device vk.Device, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	if err := check(vk.AllocateDescriptorSets(device, &allocInfo, &set), "vkAllocateDescriptorSets"); err != nil {
		return nil, err
	}
	return set, nil
}

func (p *PipelineWrapper) writeDescriptorSet(device vk.Device) {
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          p.DescriptorSet,
			DstBinding:      uboBinding,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: p.Ubo.Buffer,
				Offset: 0,
				Range:  vk.DeviceSize(p.Ubo.SizeBytes),
			}},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          p.DescriptorSet,
			DstBinding:      samplerBinding,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo: []vk.DescriptorImageInfo{{
				Sampler:     p.Sampler,
				ImageView:   p.TextureView,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}},
		},
	}
	vk.UpdateDescriptorSets(device, uint32(len(writes)), writes, 0, nil)
}

func createGraphicsPipeline(device vk.Device, in *pipelineInputs, stride uint32) (vk.Pipeline, error) {
	extent := in.renderpass.Extent

	stages := []vk.PipelineShaderStageCreateInfo{
		in.vertexShader.stageInfo(vk.ShaderStageVertexBit),
		in.fragmentShader.stageInfo(vk.ShaderStageFragmentBit),
	}

	// Vertex input
	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    stride,
		InputRate: vk.VertexInputRateVertex,
	}
	attributes := vertexAttributes()
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}
	vertexInputInfo.Deref()

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}
	inputAssembly.Deref()

	// Viewport state, fixed to the renderpass extent.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			X:        0,
			Y:        0,
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0,
			MaxDepth: 1,
		}},
		ScissorCount: 1,
		PScissors: []vk.Rect2D{{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		}},
	}
	viewportState.Deref()

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	rasterizerCreateInfo.Deref()

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}
	multisamplingCreateInfo.Deref()

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.True,
		DepthWriteEnable:      vk.True,
		DepthCompareOp:        vk.CompareOpLessOrEqual,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
	}
	depthStencil.Deref()

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colorBlendAttachmentState.Deref()

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}
	colorBlendStateCreateInfo.Deref()

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		Layout:              in.pipelineLayout.Layout,
		RenderPass:          in.renderpass.Renderpass,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}
	pipelineCreateInfo.Deref()

	pipelines := make([]vk.Pipeline, 1)
	if err := check(vk.CreateGraphicsPipelines(device, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, nil, pipelines), "vkCreateGraphicsPipelines"); err != nil {
		return vk.NullPipeline, err
	}
	return pipelines[0], nil
}

// UpdateUniformBuffer overwrites the start of the uniform buffer with data.
func (p *PipelineWrapper) UpdateUniformBuffer(ctx *VkContext, data []byte) error {
	return p.Ubo.Update(ctx, 0, data)
}

// RecordCommands binds the pipeline, its vertex buffer and descriptor set
// and draws every vertex once. It must run inside the renderpass the
// pipeline was built for.
func (p *PipelineWrapper) RecordCommands(cb *CommandBuffer, layout *PipelineLayoutWrapper) {
	vk.CmdBindPipeline(cb.Handle, vk.PipelineBindPointGraphics, p.Pipeline)
	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{p.Vbo}, []vk.DeviceSize{0})
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, layout.Layout, 0, 1,
		[]vk.DescriptorSet{p.DescriptorSet}, 0, nil)
	vk.CmdDraw(cb.Handle, p.VertexCount, 1, 0, 0)
}

func (p *PipelineWrapper) ComplexID() uint64 {
	return p.complexID
}

func (p *PipelineWrapper) Kind() resource.Kind {
	return resource.KindPipeline
}

func (p *PipelineWrapper) UsesSwapchain() bool {
	return p.usesSwapchain
}

// Release destroys the pipeline, the uniform buffer, the descriptor pool
// (and with it the set) and the sampler, in that order.
func (p *PipelineWrapper) Release(ctx *VkContext) {
	device := ctx.Device.Logical
	if p.Pipeline != vk.NullPipeline {
		vk.DestroyPipeline(device, p.Pipeline, nil)
		p.Pipeline = vk.NullPipeline
	}
	if p.Ubo != nil {
		p.Ubo.Release(ctx)
		p.Ubo = nil
	}
	if p.DescriptorPool != nil {
		vk.DestroyDescriptorPool(device, p.DescriptorPool, nil)
		p.DescriptorPool = nil
		p.DescriptorSet = nil
	}
	if p.Sampler != vk.NullSampler {
		vk.DestroySampler(device, p.Sampler, nil)
		p.Sampler = vk.NullSampler
	}
}
