package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/resource"
)

// RenderpassWrapper is a renderpass with the single framebuffer it draws
// into. Exactly one of the two framebuffers is set, depending on the target.
type RenderpassWrapper struct {
	Renderpass           vk.RenderPass
	SwapchainFramebuffer vk.Framebuffer
	OffscreenFramebuffer vk.Framebuffer
	Extent               vk.Extent2D
	ComplexID            uint64
}

// offscreenFormats maps the formats of an offscreen framebuffer to the ones a
// renderpass can target. Color must be RGBA, depth is optional and 16 bit.
func offscreenFormats(color, depth resource.TexturePixelFormat) (vk.Format, vk.Format, error) {
	if color != resource.PixelFormatRgba {
		return vk.FormatUndefined, vk.FormatUndefined, core.OpFailed("offscreen color attachment must be Rgba, got %s", color)
	}
	switch depth {
	case resource.PixelFormatNone:
		return vk.FormatR8g8b8a8Unorm, vk.FormatUndefined, nil
	case resource.PixelFormatUnorm16:
		return vk.FormatR8g8b8a8Unorm, vk.FormatD16Unorm, nil
	default:
		return vk.FormatUndefined, vk.FormatUndefined, core.OpFailed("offscreen depth attachment must be Unorm16, got %s", depth)
	}
}

func depthAttachment(format vk.Format) vk.AttachmentDescription {
	return vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
}

func colorAttachment(format vk.Format, finalLayout vk.ImageLayout) vk.AttachmentDescription {
	return vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    finalLayout,
	}
}

// renderpassLayout is everything needed to create a single subpass
// renderpass.
type renderpassLayout struct {
	attachments  []vk.AttachmentDescription
	hasDepth     bool
	dependencies []vk.SubpassDependency
}

func swapchainRenderpassLayout(colorFormat, depthFormat vk.Format) renderpassLayout {
	return renderpassLayout{
		attachments: []vk.AttachmentDescription{
			colorAttachment(colorFormat, vk.ImageLayoutPresentSrc),
			depthAttachment(depthFormat),
		},
		hasDepth: true,
		dependencies: []vk.SubpassDependency{{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask: 0,
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		}},
	}
}

// offscreenRenderpassLayout keeps the render ordered against fragment shader
// reads of the color image before and after it.
func offscreenRenderpassLayout(colorFormat, depthFormat vk.Format) renderpassLayout {
	layout := renderpassLayout{
		attachments: []vk.AttachmentDescription{
			colorAttachment(colorFormat, vk.ImageLayoutColorAttachmentOptimal),
		},
		dependencies: []vk.SubpassDependency{
			{
				SrcSubpass:    vk.SubpassExternal,
				DstSubpass:    0,
				SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
				SrcAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
				DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
				DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			},
			{
				SrcSubpass:    0,
				DstSubpass:    vk.SubpassExternal,
				SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
				SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
				DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
				DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
			},
		},
	}
	if depthFormat != vk.FormatUndefined {
		layout.attachments = append(layout.attachments, depthAttachment(depthFormat))
		layout.hasDepth = true
	}
	return layout
}

func createRenderpass(device vk.Device, layout renderpassLayout) (vk.RenderPass, error) {
	for i := range layout.attachments {
		layout.attachments[i].Deref()
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}
	if layout.hasDepth {
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}
	subpass.Deref()

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(layout.attachments)),
		PAttachments:    layout.attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(layout.dependencies)),
		PDependencies:   layout.dependencies,
	}
	renderpassCreateInfo.Deref()

	var renderpass vk.RenderPass
	if err := check(vk.CreateRenderPass(device, &renderpassCreateInfo, nil, &renderpass), "vkCreateRenderPass"); err != nil {
		return vk.NullRenderPass, err
	}
	return renderpass, nil
}

func createFramebuffer(device vk.Device, renderpass vk.RenderPass, attachments []vk.ImageView, width, height uint32) (vk.Framebuffer, error) {
	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	var framebuffer vk.Framebuffer
	if err := check(vk.CreateFramebuffer(device, &framebufferCreateInfo, nil, &framebuffer), "vkCreateFramebuffer"); err != nil {
		return vk.NullFramebuffer, err
	}
	return framebuffer, nil
}

// NewRenderpassWrapper builds the renderpass and framebuffer for one target.
// Swapchain targets use the image at data.SwapchainImageIndex and the shared
// depth image; offscreen targets use the registered offscreen framebuffer.
func NewRenderpassWrapper(ctx *VkContext, reg *resource.Registry[*VkContext], id uint32, data *resource.RenderpassCreationData) (*RenderpassWrapper, error) {
	extent := ctx.Extent()
	complexID, err := data.EncodeComplexRenderpassID(id, extent.Width, extent.Height)
	if err != nil {
		return nil, err
	}
	device := ctx.Device.Logical

	switch data.Target.Kind {
	case resource.SwapchainImageWithDepth:
		view, err := ctx.SwapchainImageView(data.SwapchainImageIndex)
		if err != nil {
			return nil, err
		}
		depth, err := ctx.DepthImage()
		if err != nil {
			return nil, err
		}
		renderpass, err := createRenderpass(device, swapchainRenderpassLayout(ctx.SurfaceFormat().Format, depth.Format))
		if err != nil {
			return nil, err
		}
		framebuffer, err := createFramebuffer(device, renderpass, []vk.ImageView{view, depth.View}, extent.Width, extent.Height)
		if err != nil {
			vk.DestroyRenderPass(device, renderpass, nil)
			return nil, err
		}
		core.LogDebug("Renderpass %d created for swapchain image %d.", id, data.SwapchainImageIndex)
		return &RenderpassWrapper{
			Renderpass:           renderpass,
			SwapchainFramebuffer: framebuffer,
			Extent:               extent,
			ComplexID:            complexID,
		}, nil

	case resource.OffscreenImageWithDepth:
		target, err := resource.MustGet[*OffscreenFramebuffer](reg, resource.ForResource(data.Target.FramebufferIndex))
		if err != nil {
			return nil, err
		}
		colorFormat, depthFormat, err := offscreenFormats(target.ColorFormat, target.DepthFormat)
		if err != nil {
			core.LogError(err.Error())
			return nil, err
		}
		renderpass, err := createRenderpass(device, offscreenRenderpassLayout(colorFormat, depthFormat))
		if err != nil {
			return nil, err
		}
		framebuffer, err := createFramebuffer(device, renderpass, target.Views(), target.Width, target.Height)
		if err != nil {
			vk.DestroyRenderPass(device, renderpass, nil)
			return nil, err
		}
		core.LogDebug("Offscreen renderpass %d created for framebuffer %d.", id, data.Target.FramebufferIndex)
		return &RenderpassWrapper{
			Renderpass:           renderpass,
			OffscreenFramebuffer: framebuffer,
			Extent:               vk.Extent2D{Width: target.Width, Height: target.Height},
			ComplexID:            complexID,
		}, nil

	default:
		return nil, core.UserError("unknown renderpass target %d", data.Target.Kind)
	}
}

func (r *RenderpassWrapper) framebuffer() vk.Framebuffer {
	if r.SwapchainFramebuffer != vk.NullFramebuffer {
		return r.SwapchainFramebuffer
	}
	return r.OffscreenFramebuffer
}

// Begin starts the renderpass over its whole extent, clearing color and
// depth.
func (r *RenderpassWrapper) Begin(cb *CommandBuffer, clearColor [4]float32, clearDepth float32) {
	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(clearColor[:])
	clearValues[1].SetDepthStencil(clearDepth, 0)

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  r.Renderpass,
		Framebuffer: r.framebuffer(),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: r.Extent,
		},
		ClearValueCount: 2,
		PClearValues:    clearValues,
	}
	cb.BeginRenderPass(&beginInfo)
}

func (r *RenderpassWrapper) End(cb *CommandBuffer) {
	cb.EndRenderPass()
}

func (r *RenderpassWrapper) Kind() resource.Kind {
	return resource.KindRenderpass
}

func (r *RenderpassWrapper) UsesSwapchain() bool {
	return resource.IDUsesSwapchain(r.ComplexID)
}

// Release destroys the framebuffer before the renderpass it was made for.
func (r *RenderpassWrapper) Release(ctx *VkContext) {
	device := ctx.Device.Logical
	if r.SwapchainFramebuffer != vk.NullFramebuffer {
		vk.DestroyFramebuffer(device, r.SwapchainFramebuffer, nil)
		r.SwapchainFramebuffer = vk.NullFramebuffer
	}
	if r.OffscreenFramebuffer != vk.NullFramebuffer {
		vk.DestroyFramebuffer(device, r.OffscreenFramebuffer, nil)
		r.OffscreenFramebuffer = vk.NullFramebuffer
	}
	if r.Renderpass != vk.NullRenderPass {
		vk.DestroyRenderPass(device, r.Renderpass, nil)
		r.Renderpass = vk.NullRenderPass
	}
}
