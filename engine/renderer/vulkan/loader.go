package vulkan

import (
	"github.com/spaghettifunk/glacier/engine/resource"
)

// Registry is the resource registry of a Vulkan context.
type Registry = resource.Registry[*VkContext]

// ResourceLoader builds registry items on a context.
type ResourceLoader struct {
	ctx *VkContext
}

var _ resource.Builder[*VkContext] = (*ResourceLoader)(nil)

func NewResourceLoader(ctx *VkContext) *ResourceLoader {
	return &ResourceLoader{ctx: ctx}
}

func (l *ResourceLoader) Loader() *VkContext {
	return l.ctx
}

func (l *ResourceLoader) BuildModel(_ *Registry, data *resource.VboCreationData) (resource.Resource[*VkContext], error) {
	return NewVertexBuffer(l.ctx, data)
}

func (l *ResourceLoader) BuildTexture(_ *Registry, data *resource.TextureCreationData) (resource.Resource[*VkContext], error) {
	return NewImageWrapper(l.ctx, data)
}

func (l *ResourceLoader) BuildShader(_ *Registry, data *resource.ShaderCreationData) (resource.Resource[*VkContext], error) {
	return NewShaderModule(l.ctx, data)
}

func (l *ResourceLoader) BuildOffscreenFramebuffer(_ *Registry, data *resource.OffscreenFramebufferData) (resource.Resource[*VkContext], error) {
	return NewOffscreenFramebuffer(l.ctx, data)
}

func (l *ResourceLoader) BuildRenderpass(reg *Registry, id uint32, data *resource.RenderpassCreationData) (resource.Resource[*VkContext], error) {
	return NewRenderpassWrapper(l.ctx, reg, id, data)
}

func (l *ResourceLoader) BuildDescriptorSetLayout(_ *Registry, data *resource.DescriptorSetLayoutCreationData) (resource.Resource[*VkContext], error) {
	return NewDescriptorSetLayout(l.ctx, data)
}

func (l *ResourceLoader) BuildPipelineLayout(reg *Registry, data *resource.PipelineLayoutCreationData) (resource.Resource[*VkContext], error) {
	return NewPipelineLayout(l.ctx, reg, data)
}

func (l *ResourceLoader) BuildPipeline(reg *Registry, id uint32, data *resource.PipelineCreationData) (resource.Resource[*VkContext], error) {
	return NewPipelineWrapper(l.ctx, reg, id, data)
}
