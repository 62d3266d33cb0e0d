package scene

import (
	"sync"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/glacier/engine/assets"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/model"
	"github.com/spaghettifunk/glacier/engine/renderer/vulkan"
	"github.com/spaghettifunk/glacier/engine/resource"
	"github.com/spaghettifunk/glacier/engine/systems"
)

const (
	vboIndexScene                uint32 = 0
	textureIndexTerrain          uint32 = 0
	shaderIndexVertex            uint32 = 0
	shaderIndexFragment          uint32 = 1
	renderpassIndexMain          uint32 = 0
	descriptorSetLayoutIndexMain uint32 = 0
	pipelineLayoutIndexMain      uint32 = 0
	pipelineIndexMain            uint32 = 0
)

var (
	stockClearColor       = [4]float32{0.0, 0.3, 0.0, 1.0}
	stockClearDepth       = float32(1.0)
	stockUboSizeBytes int = int(unsafe.Sizeof(stockUbo{}))
)

type stockUbo struct {
	mvp mgl32.Mat4
}

func (u *stockUbo) bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), unsafe.Sizeof(*u))
}

// StockAssets names the files of the stock scene, relative to the asset
// directory.
type StockAssets struct {
	Model          string
	Texture        string
	VertexShader   string
	FragmentShader string
}

var DefaultStockAssets = StockAssets{
	Model:          "models/Cubes.dae",
	Texture:        "textures/terrain.png",
	VertexShader:   "shaders/stock.vert.spv",
	FragmentShader: "shaders/stock.frag.spv",
}

// StockResourceBearer draws one textured model straight to the swapchain.
type StockResourceBearer struct {
	model          *model.Model
	texture        *resource.TextureCreationData
	vertexShader   *resource.ShaderCreationData
	fragmentShader *resource.ShaderCreationData
}

func NewStockResourceBearer(m *model.Model, texture *resource.TextureCreationData, vertexShader, fragmentShader *resource.ShaderCreationData) *StockResourceBearer {
	return &StockResourceBearer{
		model:          m,
		texture:        texture,
		vertexShader:   vertexShader,
		fragmentShader: fragmentShader,
	}
}

// LoadStockResourceBearer decodes the stock scene files in parallel. The
// first model of the model file is the one drawn.
func LoadStockResourceBearer(am *assets.AssetManager, js *systems.JobSystem, files StockAssets) (*StockResourceBearer, error) {
	b := &StockResourceBearer{}
	var mutex sync.Mutex
	tasks := []systems.JobTask{
		{Name: files.Model, Run: func() error {
			models, err := am.LoadModels(files.Model)
			if err != nil {
				return err
			}
			if len(models) == 0 {
				return core.UserError("%s contains no models", files.Model)
			}
			mutex.Lock()
			b.model = models[0]
			mutex.Unlock()
			return nil
		}},
		{Name: files.Texture, Run: func() error {
			texture, err := am.LoadTexture(files.Texture)
			if err != nil {
				return err
			}
			mutex.Lock()
			b.texture = texture
			mutex.Unlock()
			return nil
		}},
		{Name: files.VertexShader, Run: func() error {
			shader, err := am.LoadShader(files.VertexShader)
			if err != nil {
				return err
			}
			if shader.Stage != resource.ShaderStageVertex {
				return core.UserError("%s is not a vertex shader", files.VertexShader)
			}
			mutex.Lock()
			b.vertexShader = shader
			mutex.Unlock()
			return nil
		}},
		{Name: files.FragmentShader, Run: func() error {
			shader, err := am.LoadShader(files.FragmentShader)
			if err != nil {
				return err
			}
			if shader.Stage != resource.ShaderStageFragment {
				return core.UserError("%s is not a fragment shader", files.FragmentShader)
			}
			mutex.Lock()
			b.fragmentShader = shader
			mutex.Unlock()
			return nil
		}},
	}
	if err := js.RunAll(tasks); err != nil {
		return nil, err
	}
	core.LogInfo("stock scene loaded: model %s with %d vertices, texture %dx%d",
		b.model.Name, len(b.model.Vertices), b.texture.Width, b.texture.Height)
	return b, nil
}

func (b *StockResourceBearer) ModelResourceIDs() []uint32 {
	return []uint32{vboIndexScene}
}

func (b *StockResourceBearer) TextureResourceIDs() []uint32 {
	return []uint32{textureIndexTerrain}
}

func (b *StockResourceBearer) ShaderResourceIDs() []uint32 {
	return []uint32{shaderIndexVertex, shaderIndexFragment}
}

func (b *StockResourceBearer) OffscreenFramebufferResourceIDs() []uint32 {
	return nil
}

func (b *StockResourceBearer) RenderpassResourceIDs() []uint32 {
	return []uint32{renderpassIndexMain}
}

func (b *StockResourceBearer) DescriptorSetLayoutResourceIDs() []uint32 {
	return []uint32{descriptorSetLayoutIndexMain}
}

func (b *StockResourceBearer) PipelineLayoutResourceIDs() []uint32 {
	return []uint32{pipelineLayoutIndexMain}
}

func (b *StockResourceBearer) PipelineResourceIDs() []uint32 {
	return []uint32{pipelineIndexMain}
}

func (b *StockResourceBearer) RawModelData(id uint32) (*resource.VboCreationData, error) {
	if id != vboIndexScene {
		return nil, core.MissingResource("stock scene has no model %d", id)
	}
	return &resource.VboCreationData{
		VertexData:  b.model.Vertices,
		VertexCount: len(b.model.Vertices),
		Usage:       resource.InitialiseOnceVertexBuffer,
	}, nil
}

func (b *StockResourceBearer) RawTextureData(id uint32) (*resource.TextureCreationData, error) {
	if id != textureIndexTerrain {
		return nil, core.MissingResource("stock scene has no texture %d", id)
	}
	return b.texture, nil
}

func (b *StockResourceBearer) RawShaderData(id uint32) (*resource.ShaderCreationData, error) {
	switch id {
	case shaderIndexVertex:
		return b.vertexShader, nil
	case shaderIndexFragment:
		return b.fragmentShader, nil
	default:
		return nil, core.MissingResource("stock scene has no shader %d", id)
	}
}

func (b *StockResourceBearer) RawOffscreenFramebufferData(id uint32) (*resource.OffscreenFramebufferData, error) {
	return nil, core.MissingResource("stock scene has no offscreen framebuffer %d", id)
}

func (b *StockResourceBearer) RawRenderpassData(id uint32, swapchainImageIndex int) (*resource.RenderpassCreationData, error) {
	if id != renderpassIndexMain {
		return nil, core.MissingResource("stock scene has no renderpass %d", id)
	}
	return &resource.RenderpassCreationData{
		Target:              resource.SwapchainTarget(),
		SwapchainImageIndex: swapchainImageIndex,
	}, nil
}

func (b *StockResourceBearer) RawDescriptorSetLayoutData(id uint32) (*resource.DescriptorSetLayoutCreationData, error) {
	if id != descriptorSetLayoutIndexMain {
		return nil, core.MissingResource("stock scene has no descriptor set layout %d", id)
	}
	return &resource.DescriptorSetLayoutCreationData{UboUsage: resource.VertexShaderRead}, nil
}

func (b *StockResourceBearer) RawPipelineLayoutData(id uint32) (*resource.PipelineLayoutCreationData, error) {
	if id != pipelineLayoutIndexMain {
		return nil, core.MissingResource("stock scene has no pipeline layout %d", id)
	}
	return &resource.PipelineLayoutCreationData{DescriptorSetLayoutIndex: descriptorSetLayoutIndexMain}, nil
}

func (b *StockResourceBearer) RawPipelineData(id uint32, swapchainImageIndex int) (*resource.PipelineCreationData, error) {
	if id != pipelineIndexMain {
		return nil, core.MissingResource("stock scene has no pipeline %d", id)
	}
	return &resource.PipelineCreationData{
		PipelineLayoutIndex:      pipelineLayoutIndexMain,
		RenderpassIndex:          renderpassIndexMain,
		DescriptorSetLayoutIndex: descriptorSetLayoutIndexMain,
		VertexShaderIndex:        shaderIndexVertex,
		FragmentShaderIndex:      shaderIndexFragment,
		VboIndex:                 vboIndexScene,
		TextureIndex:             textureIndexTerrain,
		VboStrideBytes:           model.VertexSizeBytes,
		UboSizeBytes:             stockUboSizeBytes,
		SwapchainImageIndex:      swapchainImageIndex,
	}, nil
}

// StockScene spins the stock model in front of a player camera.
type StockScene struct {
	bearer    *StockResourceBearer
	totalTime float64
	camera    *PlayerCamera
	ubo       stockUbo
}

func NewStockScene(bearer *StockResourceBearer) *StockScene {
	return &StockScene{
		bearer: bearer,
		camera: NewPlayerCamera(0.0, 1.5, -5.0, 0.0),
		ubo:    stockUbo{mvp: mgl32.Ident4()},
	}
}

func (s *StockScene) ResourceBearer() resource.RawResourceBearer {
	return s.bearer
}

func (s *StockScene) RecordCommands(cb *vulkan.CommandBuffer, reg *vulkan.Registry, imageIndex int) error {
	renderpass, err := resource.MustGet[*vulkan.RenderpassWrapper](reg, resource.WithMinorVariation(renderpassIndexMain, uint16(imageIndex)))
	if err != nil {
		return err
	}
	pipeline, err := resource.MustGet[*vulkan.PipelineWrapper](reg, resource.WithMinorVariation(pipelineIndexMain, uint16(imageIndex)))
	if err != nil {
		return err
	}
	layout, err := resource.MustGet[*vulkan.PipelineLayoutWrapper](reg, resource.ForResource(pipelineLayoutIndexMain))
	if err != nil {
		return err
	}

	if err := cb.Begin(); err != nil {
		return err
	}
	renderpass.Begin(cb, stockClearColor, stockClearDepth)
	pipeline.RecordCommands(cb, layout)
	renderpass.End(cb)
	return cb.End()
}

func (s *StockScene) Update(timeStepMillis uint64, controlDx, controlDy float32) {
	s.totalTime += float64(timeStepMillis) * 0.001
	s.camera.Update(timeStepMillis, controlDx, controlDy)

	modelMatrix := mgl32.HomogRotate3DY(float32(s.totalTime))
	s.ubo.mvp = s.camera.ProjectionMatrix().Mul4(s.camera.ViewMatrix()).Mul4(modelMatrix)
}

// MVP is the matrix the next frame will upload.
func (s *StockScene) MVP() mgl32.Mat4 {
	return s.ubo.mvp
}

func (s *StockScene) PrepareFrameRender(ctx *vulkan.VkContext, imageIndex int, reg *vulkan.Registry) error {
	pipeline, err := resource.MustGet[*vulkan.PipelineWrapper](reg, resource.WithMinorVariation(pipelineIndexMain, uint16(imageIndex)))
	if err != nil {
		return err
	}
	return pipeline.UpdateUniformBuffer(ctx, s.ubo.bytes())
}
