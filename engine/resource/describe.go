package resource

import (
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/model"
)

// BufferUsage decides the memory a buffer lives in and how it is filled.
type BufferUsage int

const (
	// Device-local where possible, filled once, through staging if needed.
	InitialiseOnceVertexBuffer BufferUsage = iota
	// Host-accessible and rewritten every frame.
	UniformBuffer
)

// VboCreationData describes a vertex buffer.
type VboCreationData struct {
	VertexData  []model.StaticVertex
	VertexCount int
	DrawIndexed bool
	IndexData   []uint16
	Usage       BufferUsage
}

type TexturePixelFormat int

const (
	PixelFormatNone TexturePixelFormat = iota
	PixelFormatRgba
	PixelFormatUnorm16
)

func (f TexturePixelFormat) String() string {
	switch f {
	case PixelFormatNone:
		return "None"
	case PixelFormatRgba:
		return "Rgba"
	case PixelFormatUnorm16:
		return "Unorm16"
	default:
		return "Unknown"
	}
}

type ImageUsage int

const (
	TextureSampleOnly ImageUsage = iota
	DepthBuffer
	OffscreenRenderSampleColorWriteDepth
	Skybox
)

func (u ImageUsage) String() string {
	switch u {
	case TextureSampleOnly:
		return "TextureSampleOnly"
	case DepthBuffer:
		return "DepthBuffer"
	case OffscreenRenderSampleColorWriteDepth:
		return "OffscreenColor"
	case Skybox:
		return "Skybox"
	default:
		return "Unknown"
	}
}

// TextureCreationData describes an image. LayerData is nil for attachments
// and holds one RGBA8 slice per layer for sampled textures.
type TextureCreationData struct {
	LayerData [][]byte
	Width     uint32
	Height    uint32
	Format    TexturePixelFormat
	Usage     ImageUsage
}

type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
)

// ShaderCreationData carries SPIR-V words.
type ShaderCreationData struct {
	Data  []uint32
	Stage ShaderStage
}

// OffscreenFramebufferData describes a render target that is not part of the
// swapchain. DepthFormat may be PixelFormatNone.
type OffscreenFramebufferData struct {
	Width       uint32
	Height      uint32
	ColorFormat TexturePixelFormat
	DepthFormat TexturePixelFormat
}

type RenderpassTargetKind int

const (
	// One renderpass per swapchain image.
	SwapchainImageWithDepth RenderpassTargetKind = iota
	OffscreenImageWithDepth
)

// RenderpassTarget says where a renderpass draws. FramebufferIndex, Width and
// Height only apply to offscreen targets.
type RenderpassTarget struct {
	Kind             RenderpassTargetKind
	FramebufferIndex uint32
	Width            uint32
	Height           uint32
}

func SwapchainTarget() RenderpassTarget {
	return RenderpassTarget{Kind: SwapchainImageWithDepth}
}

func OffscreenTarget(framebufferIndex, width, height uint32) RenderpassTarget {
	return RenderpassTarget{
		Kind:             OffscreenImageWithDepth,
		FramebufferIndex: framebufferIndex,
		Width:            width,
		Height:           height,
	}
}

type RenderpassCreationData struct {
	Target              RenderpassTarget
	SwapchainImageIndex int
}

const (
	usesSwapchainBit uint64 = 1 << 48
	maxComplexID     uint32 = 0xFFFF
)

// EncodeComplexRenderpassID packs the id (bits 0-15), the target width
// (16-31) and height (32-47), the uses-swapchain flag (48) and the swapchain
// image index (49-51). Swapchain targets use the current swapchain extent.
func (d *RenderpassCreationData) EncodeComplexRenderpassID(id, swapchainWidth, swapchainHeight uint32) (uint64, error) {
	if id > maxComplexID {
		return 0, core.UserError("renderpass id %d cannot be greater than %d", id, maxComplexID)
	}
	width, height := swapchainWidth, swapchainHeight
	var swapchainBit uint64
	switch d.Target.Kind {
	case SwapchainImageWithDepth:
		swapchainBit = usesSwapchainBit
	case OffscreenImageWithDepth:
		width, height = d.Target.Width, d.Target.Height
	}
	encoded := uint64(id&0xFFFF) |
		uint64(width&0xFFFF)<<16 |
		uint64(height&0xFFFF)<<32 |
		swapchainBit |
		uint64(d.SwapchainImageIndex&0x7)<<49
	return encoded, nil
}

// IDUsesSwapchain reports whether a complex renderpass id targets the
// swapchain, meaning the resource is invalid once the swapchain is rebuilt.
func IDUsesSwapchain(complexID uint64) bool {
	return complexID&usesSwapchainBit != 0
}

func ExtractID(complexID uint64) uint32 {
	return uint32(complexID & 0xFFFF)
}

type UboUsage int

const (
	VertexShaderRead UboUsage = iota
	VertexAndFragmentShaderRead
)

type DescriptorSetLayoutCreationData struct {
	UboUsage UboUsage
}

type PipelineLayoutCreationData struct {
	DescriptorSetLayoutIndex uint32
}

type PipelineCreationData struct {
	PipelineLayoutIndex      uint32
	RenderpassIndex          uint32
	DescriptorSetLayoutIndex uint32
	VertexShaderIndex        uint32
	FragmentShaderIndex      uint32
	VboIndex                 uint32
	TextureIndex             uint32
	VboStrideBytes           uint32
	UboSizeBytes             int
	SwapchainImageIndex      int
}

// EncodeComplexPipelineID packs the id (bits 0-15), the renderpass id (16-31)
// and the swapchain image index (32-35).
func (d *PipelineCreationData) EncodeComplexPipelineID(id uint32) (uint64, error) {
	if id > maxComplexID {
		return 0, core.UserError("pipeline id %d cannot be greater than %d", id, maxComplexID)
	}
	return uint64(id&0xFFFF) |
		uint64(d.RenderpassIndex&0xFFFF)<<16 |
		uint64(d.SwapchainImageIndex&0xF)<<32, nil
}

func ExtractRenderpassID(complexID uint64) uint32 {
	return uint32(complexID>>16) & 0xFFFF
}
