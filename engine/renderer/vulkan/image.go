package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/resource"
)

const bytesPerRgbaTexel = 4

// ImageConfig is everything needed to create, back and view an image of a
// given usage and pixel format.
type ImageConfig struct {
	Format         vk.Format
	Usage          vk.ImageUsageFlags
	Flags          vk.ImageCreateFlags
	Aspect         vk.ImageAspectFlags
	ViewType       vk.ImageViewType
	LayerCount     uint32
	InitialLayout  vk.ImageLayout
	ExpectedLayout vk.ImageLayout
	// Sampled textures must come with layer data, attachments must not.
	RequiresInitData bool
}

// ClassifyImage maps a usage and pixel format to the only configuration the
// engine creates for it.
func ClassifyImage(usage resource.ImageUsage, format resource.TexturePixelFormat) (ImageConfig, error) {
	switch {
	case usage == resource.DepthBuffer && format == resource.PixelFormatUnorm16:
		return ImageConfig{
			Format:         vk.FormatD16Unorm,
			Usage:          vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
			Aspect:         vk.ImageAspectFlags(vk.ImageAspectDepthBit),
			ViewType:       vk.ImageViewType2d,
			LayerCount:     1,
			InitialLayout:  vk.ImageLayoutUndefined,
			ExpectedLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
		}, nil
	case usage == resource.OffscreenRenderSampleColorWriteDepth && format == resource.PixelFormatRgba:
		return ImageConfig{
			Format:         vk.FormatR8g8b8a8Unorm,
			Usage:          vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageColorAttachmentBit),
			Aspect:         vk.ImageAspectFlags(vk.ImageAspectColorBit),
			ViewType:       vk.ImageViewType2d,
			LayerCount:     1,
			InitialLayout:  vk.ImageLayoutUndefined,
			ExpectedLayout: vk.ImageLayoutColorAttachmentOptimal,
		}, nil
	case usage == resource.OffscreenRenderSampleColorWriteDepth && format == resource.PixelFormatUnorm16:
		return ImageConfig{
			Format:         vk.FormatD16Unorm,
			Usage:          vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
			Aspect:         vk.ImageAspectFlags(vk.ImageAspectDepthBit),
			ViewType:       vk.ImageViewType2d,
			LayerCount:     1,
			InitialLayout:  vk.ImageLayoutUndefined,
			ExpectedLayout: vk.ImageLayoutColorAttachmentOptimal,
		}, nil
	case usage == resource.TextureSampleOnly && format == resource.PixelFormatRgba:
		return ImageConfig{
			Format:           vk.FormatR8g8b8a8Unorm,
			Usage:            vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
			Aspect:           vk.ImageAspectFlags(vk.ImageAspectColorBit),
			ViewType:         vk.ImageViewType2d,
			LayerCount:       1,
			InitialLayout:    vk.ImageLayoutPreinitialized,
			ExpectedLayout:   vk.ImageLayoutShaderReadOnlyOptimal,
			RequiresInitData: true,
		}, nil
	case usage == resource.Skybox && format == resource.PixelFormatRgba:
		return ImageConfig{
			Format:           vk.FormatR8g8b8a8Unorm,
			Usage:            vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
			Flags:            vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit),
			Aspect:           vk.ImageAspectFlags(vk.ImageAspectColorBit),
			ViewType:         vk.ImageViewTypeCube,
			LayerCount:       6,
			InitialLayout:    vk.ImageLayoutPreinitialized,
			ExpectedLayout:   vk.ImageLayoutShaderReadOnlyOptimal,
			RequiresInitData: true,
		}, nil
	}
	err := core.OpFailed("unhandled config: %s x %s", usage, format)
	core.LogError(err.Error())
	return ImageConfig{}, err
}

// checkLayerData validates initial data against a configuration: presence
// must match the usage and each layer must hold exactly width*height RGBA8
// texels.
func (c ImageConfig) checkLayerData(width, height uint32, layers [][]byte) error {
	if !c.RequiresInitData {
		if layers != nil {
			return core.UserError("initialising an attachment image is not allowed")
		}
		return nil
	}
	if len(layers) == 0 {
		return core.UserError("a sampled image needs initial layer data")
	}
	if uint32(len(layers)) != c.LayerCount {
		return core.UserError("image needs %d layers, got %d", c.LayerCount, len(layers))
	}
	expected := uint64(len(layers)) * bytesPerRgbaTexel * uint64(width) * uint64(height)
	var total uint64
	for i, layer := range layers {
		if len(layer) != len(layers[0]) {
			return core.UserError("layer %d holds %d bytes, layer 0 holds %d", i, len(layer), len(layers[0]))
		}
		total += uint64(len(layer))
	}
	if total != expected {
		return core.UserError("image data is %d bytes, expected %d for %dx%d", total, expected, width, height)
	}
	return nil
}

// ImageWrapper owns an image, its view and the memory backing it.
type ImageWrapper struct {
	Image      vk.Image
	View       vk.ImageView
	Format     vk.Format
	Width      uint32
	Height     uint32
	Allocation *Allocation
}

// NewImageWrapper creates an image as classified by its usage and format,
// backs it with bulk memory and uploads any layer data.
func NewImageWrapper(ctx *VkContext, data *resource.TextureCreationData) (*ImageWrapper, error) {
	config, err := ClassifyImage(data.Usage, data.Format)
	if err != nil {
		return nil, err
	}
	if err := config.checkLayerData(data.Width, data.Height, data.LayerData); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	device := ctx.Device.Logical
	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     config.Flags,
		ImageType: vk.ImageType2d,
		Format:    config.Format,
		Extent: vk.Extent3D{
			Width:  data.Width,
			Height: data.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   config.LayerCount,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         config.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: config.InitialLayout,
	}
	var image vk.Image
	if err := check(vk.CreateImage(device, &imageCreateInfo, nil, &image), "vkCreateImage"); err != nil {
		return nil, err
	}

	allocation, err := ctx.Allocator.BackImage(image, config, data.Width, data.Height, data.LayerData)
	if err != nil {
		vk.DestroyImage(device, image, nil)
		return nil, err
	}

	view, err := createImageView(device, image, config.Format, config.ViewType, config.Aspect, config.LayerCount)
	if err != nil {
		vk.DestroyImage(device, image, nil)
		ctx.Allocator.Free(allocation)
		return nil, err
	}

	return &ImageWrapper{
		Image:      image,
		View:       view,
		Format:     config.Format,
		Width:      data.Width,
		Height:     data.Height,
		Allocation: allocation,
	}, nil
}

func createImageView(device vk.Device, image vk.Image, format vk.Format, viewType vk.ImageViewType, aspect vk.ImageAspectFlags, layers uint32) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     layers,
		},
	}
	var view vk.ImageView
	if err := check(vk.CreateImageView(device, &viewCreateInfo, nil, &view), "vkCreateImageView"); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

func (w *ImageWrapper) Kind() resource.Kind {
	return resource.KindImage
}

func (w *ImageWrapper) Release(ctx *VkContext) {
	device := ctx.Device.Logical
	if w.View != vk.NullImageView {
		vk.DestroyImageView(device, w.View, nil)
		w.View = vk.NullImageView
	}
	if w.Image != vk.NullImage {
		vk.DestroyImage(device, w.Image, nil)
		w.Image = vk.NullImage
	}
	ctx.Allocator.Free(w.Allocation)
	w.Allocation = nil
}
