package resource

import (
	"fmt"

	"github.com/spaghettifunk/glacier/engine/core"
)

// RawResourceBearer enumerates the ids an application owns per resource kind
// and hands out the descriptor for each.
type RawResourceBearer interface {
	ModelResourceIDs() []uint32
	TextureResourceIDs() []uint32
	ShaderResourceIDs() []uint32
	OffscreenFramebufferResourceIDs() []uint32
	RenderpassResourceIDs() []uint32
	DescriptorSetLayoutResourceIDs() []uint32
	PipelineLayoutResourceIDs() []uint32
	PipelineResourceIDs() []uint32

	RawModelData(id uint32) (*VboCreationData, error)
	RawTextureData(id uint32) (*TextureCreationData, error)
	RawShaderData(id uint32) (*ShaderCreationData, error)
	RawOffscreenFramebufferData(id uint32) (*OffscreenFramebufferData, error)
	RawRenderpassData(id uint32, swapchainImageIndex int) (*RenderpassCreationData, error)
	RawDescriptorSetLayoutData(id uint32) (*DescriptorSetLayoutCreationData, error)
	RawPipelineLayoutData(id uint32) (*PipelineLayoutCreationData, error)
	RawPipelineData(id uint32, swapchainImageIndex int) (*PipelineCreationData, error)
}

// Builder turns descriptors into live resources. Builders may look up
// resources that were registered earlier.
type Builder[L any] interface {
	Loader() L
	BuildModel(reg *Registry[L], data *VboCreationData) (Resource[L], error)
	BuildTexture(reg *Registry[L], data *TextureCreationData) (Resource[L], error)
	BuildShader(reg *Registry[L], data *ShaderCreationData) (Resource[L], error)
	BuildOffscreenFramebuffer(reg *Registry[L], data *OffscreenFramebufferData) (Resource[L], error)
	BuildRenderpass(reg *Registry[L], id uint32, data *RenderpassCreationData) (Resource[L], error)
	BuildDescriptorSetLayout(reg *Registry[L], data *DescriptorSetLayoutCreationData) (Resource[L], error)
	BuildPipelineLayout(reg *Registry[L], data *PipelineLayoutCreationData) (Resource[L], error)
	BuildPipeline(reg *Registry[L], id uint32, data *PipelineCreationData) (Resource[L], error)
}

// exists reports whether anything lives at h in any table of the given kind.
func exists[L any](reg *Registry[L], kind Kind, h Handle) bool {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()
	for key, t := range reg.tables {
		if t.kind != kind || key.variation != h.Variation() || key.tag != h.Tag() {
			continue
		}
		if t.get(h.TableIndex()) != nil {
			return true
		}
	}
	return false
}

// LoadStaticResources builds everything whose validity does not depend on the
// swapchain: buffers, textures, shaders, offscreen framebuffers, descriptor
// set layouts and pipeline layouts.
func LoadStaticResources[L any](reg *Registry[L], b Builder[L], bearer RawResourceBearer) error {
	steps := []struct {
		what  string
		ids   []uint32
		build func(id uint32) (Resource[L], error)
	}{
		{"model", bearer.ModelResourceIDs(), func(id uint32) (Resource[L], error) {
			data, err := bearer.RawModelData(id)
			if err != nil {
				return nil, err
			}
			return b.BuildModel(reg, data)
		}},
		{"texture", bearer.TextureResourceIDs(), func(id uint32) (Resource[L], error) {
			data, err := bearer.RawTextureData(id)
			if err != nil {
				return nil, err
			}
			return b.BuildTexture(reg, data)
		}},
		{"shader", bearer.ShaderResourceIDs(), func(id uint32) (Resource[L], error) {
			data, err := bearer.RawShaderData(id)
			if err != nil {
				return nil, err
			}
			return b.BuildShader(reg, data)
		}},
		{"offscreen framebuffer", bearer.OffscreenFramebufferResourceIDs(), func(id uint32) (Resource[L], error) {
			data, err := bearer.RawOffscreenFramebufferData(id)
			if err != nil {
				return nil, err
			}
			return b.BuildOffscreenFramebuffer(reg, data)
		}},
		{"descriptor set layout", bearer.DescriptorSetLayoutResourceIDs(), func(id uint32) (Resource[L], error) {
			data, err := bearer.RawDescriptorSetLayoutData(id)
			if err != nil {
				return nil, err
			}
			return b.BuildDescriptorSetLayout(reg, data)
		}},
		{"pipeline layout", bearer.PipelineLayoutResourceIDs(), func(id uint32) (Resource[L], error) {
			data, err := bearer.RawPipelineLayoutData(id)
			if err != nil {
				return nil, err
			}
			return b.BuildPipelineLayout(reg, data)
		}},
	}

	for _, step := range steps {
		for _, id := range step.ids {
			item, err := step.build(id)
			if err != nil {
				return fmt.Errorf("failed to build %s %d: %w", step.what, id, err)
			}
			if err := reg.pushErased(ForResource(id), item); err != nil {
				item.Release(b.Loader())
				return err
			}
		}
		core.LogDebug("loaded %d %s resources", len(step.ids), step.what)
	}
	return nil
}

// LoadDynamicResources builds one renderpass and one pipeline per swapchain
// image for every id the bearer lists. Slots that are already filled are
// kept, so offscreen renderpasses and their pipelines survive a rebuild.
func LoadDynamicResources[L any](reg *Registry[L], b Builder[L], bearer RawResourceBearer, swapchainImageCount int) error {
	for _, id := range bearer.RenderpassResourceIDs() {
		for i := 0; i < swapchainImageCount; i++ {
			h := WithMinorVariation(id, uint16(i))
			if exists(reg, KindRenderpass, h) {
				continue
			}
			data, err := bearer.RawRenderpassData(id, i)
			if err != nil {
				return fmt.Errorf("failed to describe renderpass %d/%d: %w", id, i, err)
			}
			item, err := b.BuildRenderpass(reg, id, data)
			if err != nil {
				return fmt.Errorf("failed to build renderpass %d/%d: %w", id, i, err)
			}
			if err := reg.pushErased(h, item); err != nil {
				item.Release(b.Loader())
				return err
			}
		}
	}
	for _, id := range bearer.PipelineResourceIDs() {
		for i := 0; i < swapchainImageCount; i++ {
			h := WithMinorVariation(id, uint16(i))
			if exists(reg, KindPipeline, h) {
				continue
			}
			data, err := bearer.RawPipelineData(id, i)
			if err != nil {
				return fmt.Errorf("failed to describe pipeline %d/%d: %w", id, i, err)
			}
			item, err := b.BuildPipeline(reg, id, data)
			if err != nil {
				return fmt.Errorf("failed to build pipeline %d/%d: %w", id, i, err)
			}
			if err := reg.pushErased(h, item); err != nil {
				item.Release(b.Loader())
				return err
			}
		}
	}
	return nil
}
