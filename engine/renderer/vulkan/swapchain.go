package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/resource"
)

const (
	minSwapchainImages uint32 = 2
	maxSwapchainImages uint32 = 3
)

type swapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func querySwapchainSupport(physical vk.PhysicalDevice, surface vk.Surface) (*swapchainSupport, error) {
	support := &swapchainSupport{}
	if err := check(vk.GetPhysicalDeviceSurfaceCapabilities(physical, surface, &support.Capabilities), "vkGetPhysicalDeviceSurfaceCapabilities"); err != nil {
		return nil, err
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if err := check(vk.GetPhysicalDeviceSurfaceFormats(physical, surface, &formatCount, nil), "vkGetPhysicalDeviceSurfaceFormats"); err != nil {
		return nil, err
	}
	if formatCount != 0 {
		support.Formats = make([]vk.SurfaceFormat, formatCount)
		if err := check(vk.GetPhysicalDeviceSurfaceFormats(physical, surface, &formatCount, support.Formats), "vkGetPhysicalDeviceSurfaceFormats"); err != nil {
			return nil, err
		}
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	var modeCount uint32
	if err := check(vk.GetPhysicalDeviceSurfacePresentModes(physical, surface, &modeCount, nil), "vkGetPhysicalDeviceSurfacePresentModes"); err != nil {
		return nil, err
	}
	if modeCount != 0 {
		support.PresentModes = make([]vk.PresentMode, modeCount)
		if err := check(vk.GetPhysicalDeviceSurfacePresentModes(physical, surface, &modeCount, support.PresentModes), "vkGetPhysicalDeviceSurfacePresentModes"); err != nil {
			return nil, err
		}
	}
	return support, nil
}

// swapchainImageRequest returns how many images to ask for, given the
// surface limits. A max of 0 means no limit.
func swapchainImageRequest(minCount, maxCount uint32) (uint32, error) {
	if maxCount != 0 && maxCount < minSwapchainImages {
		return 0, core.OpFailed("surface allows at most %d swapchain images, need %d", maxCount, minSwapchainImages)
	}
	if minCount > maxSwapchainImages {
		return 0, core.OpFailed("surface needs at least %d swapchain images, can use at most %d", minCount, maxSwapchainImages)
	}
	if minCount < minSwapchainImages {
		return minSwapchainImages, nil
	}
	return minCount, nil
}

// chooseSurfaceFormat prefers B8G8R8A8_UNORM with the sRGB non-linear colour
// space, else takes the first advertised format.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, core.Compatibility("surface advertises no formats")
	}
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f, nil
		}
	}
	return formats[0], nil
}

// choosePresentMode requires FIFO.
func choosePresentMode(modes []vk.PresentMode) (vk.PresentMode, error) {
	for _, m := range modes {
		if m == vk.PresentModeFifo {
			return m, nil
		}
	}
	return 0, core.Compatibility("surface does not support FIFO presentation")
}

// chooseExtent uses the surface's current extent when it has one, else the
// window size clamped to the surface limits.
func chooseExtent(current, minExtent, maxExtent vk.Extent2D, width, height uint32) vk.Extent2D {
	if current.Width != math.MaxUint32 {
		return current
	}
	return vk.Extent2D{
		Width:  clamp(width, minExtent.Width, maxExtent.Width),
		Height: clamp(height, minExtent.Height, maxExtent.Height),
	}
}

func clamp(value, lo, hi uint32) uint32 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// frameSync is the synchronisation triple of one swapchain slot.
type frameSync struct {
	imageAvailable    vk.Semaphore
	mayBeginRendering *Fence
	renderingFinished vk.Semaphore
}

// Swapchain owns the swapchain, a view per image, the shared depth image and
// the per slot synchronisation primitives.
type Swapchain struct {
	Handle      vk.Swapchain
	Format      vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView
	Depth       *ImageWrapper

	sync []frameSync
	// Slot of the last acquired image.
	currentImage uint32
}

func (s *Swapchain) ImageCount() int {
	return len(s.Images)
}

func newSwapchain(ctx *VkContext, width, height uint32) (*Swapchain, error) {
	device := ctx.Device.Logical
	support, err := querySwapchainSupport(ctx.Device.Physical, ctx.surface)
	if err != nil {
		return nil, err
	}
	caps := support.Capabilities
	imageCount, err := swapchainImageRequest(caps.MinImageCount, caps.MaxImageCount)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	presentMode, err := choosePresentMode(support.PresentModes)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	format, err := chooseSurfaceFormat(support.Formats)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	extent := chooseExtent(caps.CurrentExtent, caps.MinImageExtent, caps.MaxImageExtent, width, height)

	s := &Swapchain{
		Format:      format,
		PresentMode: presentMode,
		Extent:      extent,
	}
	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          ctx.surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}
	if err := check(vk.CreateSwapchain(device, &swapchainCreateInfo, nil, &s.Handle), "vkCreateSwapchain"); err != nil {
		return nil, err
	}

	var count uint32
	if err := check(vk.GetSwapchainImages(device, s.Handle, &count, nil), "vkGetSwapchainImages"); err != nil {
		s.destroy(ctx)
		return nil, err
	}
	s.Images = make([]vk.Image, count)
	if err := check(vk.GetSwapchainImages(device, s.Handle, &count, s.Images), "vkGetSwapchainImages"); err != nil {
		s.destroy(ctx)
		return nil, err
	}
	if count < minSwapchainImages || count > maxSwapchainImages {
		core.LogWarn("Asked for %d swapchain images, the driver created %d.", imageCount, count)
	}

	s.Views = make([]vk.ImageView, 0, count)
	for _, image := range s.Images {
		view, err := createImageView(device, image, format.Format, vk.ImageViewType2d, vk.ImageAspectFlags(vk.ImageAspectColorBit), 1)
		if err != nil {
			s.destroy(ctx)
			return nil, err
		}
		s.Views = append(s.Views, view)
	}

	s.Depth, err = NewImageWrapper(ctx, &resource.TextureCreationData{
		Width:  extent.Width,
		Height: extent.Height,
		Format: resource.PixelFormatUnorm16,
		Usage:  resource.DepthBuffer,
	})
	if err != nil {
		s.destroy(ctx)
		return nil, err
	}

	if err := s.createSync(device); err != nil {
		s.destroy(ctx)
		return nil, err
	}

	core.LogInfo("Swapchain created with %d images at %dx%d.", count, extent.Width, extent.Height)
	return s, nil
}

func (s *Swapchain) createSync(device vk.Device) error {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	s.sync = make([]frameSync, 0, len(s.Images))
	for range s.Images {
		var fs frameSync
		if err := check(vk.CreateSemaphore(device, &semaphoreCreateInfo, nil, &fs.imageAvailable), "vkCreateSemaphore"); err != nil {
			return err
		}
		// Signaled, so the first wait on every slot returns at once.
		fence, err := NewFence(device, true)
		if err != nil {
			vk.DestroySemaphore(device, fs.imageAvailable, nil)
			return err
		}
		fs.mayBeginRendering = fence
		if err := check(vk.CreateSemaphore(device, &semaphoreCreateInfo, nil, &fs.renderingFinished), "vkCreateSemaphore"); err != nil {
			fs.mayBeginRendering.Destroy(device)
			vk.DestroySemaphore(device, fs.imageAvailable, nil)
			return err
		}
		s.sync = append(s.sync, fs)
	}
	s.currentImage = uint32(len(s.Images) - 1)
	return nil
}

func (s *Swapchain) destroySync(device vk.Device) {
	for _, fs := range s.sync {
		vk.DestroySemaphore(device, fs.renderingFinished, nil)
		fs.mayBeginRendering.Destroy(device)
		vk.DestroySemaphore(device, fs.imageAvailable, nil)
	}
	s.sync = nil
}

// destroyViews releases the image views. The images belong to the swapchain.
func (s *Swapchain) destroyViews(device vk.Device) {
	for _, view := range s.Views {
		vk.DestroyImageView(device, view, nil)
	}
	s.Views = nil
}

func (s *Swapchain) destroyHandle(device vk.Device) {
	if s.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device, s.Handle, nil)
		s.Handle = vk.NullSwapchain
	}
	s.Images = nil
}

func (s *Swapchain) destroyDepth(ctx *VkContext) {
	if s.Depth != nil {
		s.Depth.Release(ctx)
		s.Depth = nil
	}
}

// destroy tears the swapchain down in the order sync, views, swapchain,
// depth image.
func (s *Swapchain) destroy(ctx *VkContext) {
	device := ctx.Device.Logical
	s.destroySync(device)
	s.destroyViews(device)
	s.destroyHandle(device)
	s.destroyDepth(ctx)
}
