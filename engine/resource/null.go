package resource

import (
	"fmt"
	"sync"
)

// NullLoader is a Builder that creates placeholder resources without a
// device. It checks dependencies through the registry the way a real loader
// does and records every build and release in order.
type NullLoader struct {
	mutex    sync.Mutex
	width    uint32
	height   uint32
	built    []string
	released []string
}

var _ Builder[*NullLoader] = (*NullLoader)(nil)

// NewNullLoader pretends the swapchain is width by height.
func NewNullLoader(width, height uint32) *NullLoader {
	return &NullLoader{width: width, height: height}
}

func (n *NullLoader) Loader() *NullLoader { return n }

// Built lists the names of the resources built so far.
func (n *NullLoader) Built() []string {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return append([]string(nil), n.built...)
}

// Released lists the names of the resources released so far.
func (n *NullLoader) Released() []string {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return append([]string(nil), n.released...)
}

func (n *NullLoader) recordBuild(name string) {
	n.mutex.Lock()
	n.built = append(n.built, name)
	n.mutex.Unlock()
}

func (n *NullLoader) recordRelease(name string) {
	n.mutex.Lock()
	n.released = append(n.released, name)
	n.mutex.Unlock()
}

type nullItem struct {
	Name      string
	kind      Kind
	swapchain bool
}

func (i *nullItem) Kind() Kind          { return i.kind }
func (i *nullItem) UsesSwapchain() bool { return i.swapchain }
func (i *nullItem) Release(n *NullLoader) {
	n.recordRelease(i.Name)
}

// One type per kind, since the registry keeps a table per type.
type (
	NullBuffer              struct{ nullItem }
	NullImage               struct{ nullItem }
	NullShader              struct{ nullItem }
	NullFramebuffer         struct{ nullItem }
	NullRenderpass          struct{ nullItem }
	NullDescriptorSetLayout struct{ nullItem }
	NullPipelineLayout      struct{ nullItem }
	NullPipeline            struct{ nullItem }
)

func (n *NullLoader) BuildModel(_ *Registry[*NullLoader], data *VboCreationData) (Resource[*NullLoader], error) {
	item := &NullBuffer{nullItem{Name: fmt.Sprintf("vbo(%d)", data.VertexCount), kind: KindBuffer}}
	n.recordBuild(item.Name)
	return item, nil
}

func (n *NullLoader) BuildTexture(_ *Registry[*NullLoader], data *TextureCreationData) (Resource[*NullLoader], error) {
	item := &NullImage{nullItem{Name: fmt.Sprintf("texture %dx%d", data.Width, data.Height), kind: KindImage}}
	n.recordBuild(item.Name)
	return item, nil
}

func (n *NullLoader) BuildShader(_ *Registry[*NullLoader], data *ShaderCreationData) (Resource[*NullLoader], error) {
	item := &NullShader{nullItem{Name: fmt.Sprintf("shader(%d)", data.Stage), kind: KindShader}}
	n.recordBuild(item.Name)
	return item, nil
}

func (n *NullLoader) BuildOffscreenFramebuffer(_ *Registry[*NullLoader], data *OffscreenFramebufferData) (Resource[*NullLoader], error) {
	item := &NullFramebuffer{nullItem{Name: fmt.Sprintf("framebuffer %dx%d", data.Width, data.Height), kind: KindFramebuffer}}
	n.recordBuild(item.Name)
	return item, nil
}

func (n *NullLoader) BuildRenderpass(reg *Registry[*NullLoader], id uint32, data *RenderpassCreationData) (Resource[*NullLoader], error) {
	if data.Target.Kind == OffscreenImageWithDepth {
		if _, err := MustGet[*NullFramebuffer](reg, ForResource(data.Target.FramebufferIndex)); err != nil {
			return nil, err
		}
	}
	complexID, err := data.EncodeComplexRenderpassID(id, n.width, n.height)
	if err != nil {
		return nil, err
	}
	item := &NullRenderpass{nullItem{
		Name:      fmt.Sprintf("renderpass %d/%d", id, data.SwapchainImageIndex),
		kind:      KindRenderpass,
		swapchain: IDUsesSwapchain(complexID),
	}}
	n.recordBuild(item.Name)
	return item, nil
}

func (n *NullLoader) BuildDescriptorSetLayout(_ *Registry[*NullLoader], data *DescriptorSetLayoutCreationData) (Resource[*NullLoader], error) {
	item := &NullDescriptorSetLayout{nullItem{Name: "set layout", kind: KindDescriptorSetLayout}}
	n.recordBuild(item.Name)
	return item, nil
}

func (n *NullLoader) BuildPipelineLayout(reg *Registry[*NullLoader], data *PipelineLayoutCreationData) (Resource[*NullLoader], error) {
	if _, err := MustGet[*NullDescriptorSetLayout](reg, ForResource(data.DescriptorSetLayoutIndex)); err != nil {
		return nil, err
	}
	item := &NullPipelineLayout{nullItem{Name: "pipeline layout", kind: KindPipelineLayout}}
	n.recordBuild(item.Name)
	return item, nil
}

func (n *NullLoader) BuildPipeline(reg *Registry[*NullLoader], id uint32, data *PipelineCreationData) (Resource[*NullLoader], error) {
	rp, err := MustGet[*NullRenderpass](reg, WithMinorVariation(data.RenderpassIndex, uint16(data.SwapchainImageIndex)))
	if err != nil {
		return nil, err
	}
	if _, err := MustGet[*NullPipelineLayout](reg, ForResource(data.PipelineLayoutIndex)); err != nil {
		return nil, err
	}
	item := &NullPipeline{nullItem{
		Name:      fmt.Sprintf("pipeline %d/%d", id, data.SwapchainImageIndex),
		kind:      KindPipeline,
		swapchain: rp.UsesSwapchain(),
	}}
	n.recordBuild(item.Name)
	return item, nil
}
