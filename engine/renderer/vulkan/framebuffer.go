package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/resource"
)

// OffscreenFramebuffer holds the images an offscreen renderpass draws into.
// The color image can be sampled afterwards. Depth is nil when the target
// was declared without one.
type OffscreenFramebuffer struct {
	Color       *ImageWrapper
	Depth       *ImageWrapper
	Width       uint32
	Height      uint32
	ColorFormat resource.TexturePixelFormat
	DepthFormat resource.TexturePixelFormat
}

// checkOffscreenFormats accepts an Rgba color target with either no depth or
// a Unorm16 one.
func checkOffscreenFormats(data *resource.OffscreenFramebufferData) error {
	if data.ColorFormat != resource.PixelFormatRgba {
		return core.UserError("offscreen color target must be Rgba, got %s", data.ColorFormat)
	}
	if data.DepthFormat != resource.PixelFormatNone && data.DepthFormat != resource.PixelFormatUnorm16 {
		return core.UserError("offscreen depth target must be Unorm16, got %s", data.DepthFormat)
	}
	return nil
}

func NewOffscreenFramebuffer(ctx *VkContext, data *resource.OffscreenFramebufferData) (*OffscreenFramebuffer, error) {
	if err := checkOffscreenFormats(data); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	color, err := NewImageWrapper(ctx, &resource.TextureCreationData{
		Width:  data.Width,
		Height: data.Height,
		Format: data.ColorFormat,
		Usage:  resource.OffscreenRenderSampleColorWriteDepth,
	})
	if err != nil {
		return nil, err
	}
	fb := &OffscreenFramebuffer{
		Color:       color,
		Width:       data.Width,
		Height:      data.Height,
		ColorFormat: data.ColorFormat,
		DepthFormat: data.DepthFormat,
	}
	if data.DepthFormat != resource.PixelFormatNone {
		depth, err := NewImageWrapper(ctx, &resource.TextureCreationData{
			Width:  data.Width,
			Height: data.Height,
			Format: data.DepthFormat,
			Usage:  resource.DepthBuffer,
		})
		if err != nil {
			color.Release(ctx)
			return nil, err
		}
		fb.Depth = depth
	}
	return fb, nil
}

// Views lists the attachments in renderpass order: color, then depth.
func (f *OffscreenFramebuffer) Views() []vk.ImageView {
	views := []vk.ImageView{f.Color.View}
	if f.Depth != nil {
		views = append(views, f.Depth.View)
	}
	return views
}

func (f *OffscreenFramebuffer) Kind() resource.Kind {
	return resource.KindFramebuffer
}

func (f *OffscreenFramebuffer) Release(ctx *VkContext) {
	if f.Color != nil {
		f.Color.Release(ctx)
		f.Color = nil
	}
	if f.Depth != nil {
		f.Depth.Release(ctx)
		f.Depth = nil
	}
}
