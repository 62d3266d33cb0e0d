package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
)

// SurfaceProvider is the window the context renders into. It hands out its
// handles when the instance and surface are created.
type SurfaceProvider interface {
	InstanceProcAddr() unsafe.Pointer
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	FramebufferSize() (width, height uint32)
}

type ContextConfig struct {
	AppName    string
	Validation bool
	Features   []FeatureDeclaration
}

// VkContext owns every Vulkan object that lives as long as the window: the
// instance, surface, device, allocator, swapchain with its sync primitives,
// and one graphics command buffer per swapchain image.
type VkContext struct {
	instance *Instance
	surface  vk.Surface
	window   SurfaceProvider

	Device    *Device
	Allocator *MemoryAllocator
	Swapchain *Swapchain

	commandBuffers []*CommandBuffer
	torn           bool
}

func NewVkContext(cfg ContextConfig, window SurfaceProvider) (*VkContext, error) {
	procAddr := window.InstanceProcAddr()
	if procAddr == nil {
		err := core.Compatibility("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return nil, err
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return nil, core.Wrap(core.KindCompatibility, err, "failed to initialize vulkan")
	}

	ctx := &VkContext{window: window}
	var err error
	if ctx.instance, err = NewInstance(cfg.AppName, window.RequiredInstanceExtensions(), validationEnabled(cfg)); err != nil {
		return nil, err
	}

	core.LogDebug("Creating Vulkan surface...")
	if ctx.surface, err = window.CreateSurface(ctx.instance.Handle); err != nil {
		ctx.Teardown()
		return nil, core.Wrap(core.KindOpFailed, err, "failed to create surface")
	}
	core.LogDebug("Vulkan surface created.")

	if ctx.Device, err = NewDevice(ctx.instance.Handle, ctx.surface, cfg.Features); err != nil {
		ctx.Teardown()
		return nil, err
	}
	if ctx.Allocator, err = NewMemoryAllocator(ctx.Device.Logical, ctx.Device.Memory, ctx.Device.Transfer); err != nil {
		ctx.Teardown()
		return nil, err
	}
	width, height := window.FramebufferSize()
	if ctx.Swapchain, err = newSwapchain(ctx, width, height); err != nil {
		ctx.Teardown()
		return nil, err
	}
	if err := ctx.RegenerateCommandBuffers(); err != nil {
		ctx.Teardown()
		return nil, err
	}
	core.LogInfo("Vulkan context initialized successfully.")
	return ctx, nil
}

func (c *VkContext) Extent() vk.Extent2D {
	return c.Swapchain.Extent
}

func (c *VkContext) SwapchainImageCount() int {
	if c.Swapchain == nil {
		return 0
	}
	return c.Swapchain.ImageCount()
}

func (c *VkContext) SurfaceFormat() vk.SurfaceFormat {
	return c.Swapchain.Format
}

func (c *VkContext) SwapchainImageView(index int) (vk.ImageView, error) {
	if index < 0 || index >= len(c.Swapchain.Views) {
		return vk.NullImageView, core.MissingResource("no swapchain image view %d, swapchain has %d", index, len(c.Swapchain.Views))
	}
	return c.Swapchain.Views[index], nil
}

func (c *VkContext) DepthImage() (*ImageWrapper, error) {
	if c.Swapchain == nil || c.Swapchain.Depth == nil {
		return nil, core.OpFailed("no depth image available")
	}
	return c.Swapchain.Depth, nil
}

// CommandBuffer returns the graphics command buffer of a swapchain image.
func (c *VkContext) CommandBuffer(imageIndex int) *CommandBuffer {
	return c.commandBuffers[imageIndex]
}

// RegenerateCommandBuffers frees the graphics command buffers and allocates a
// fresh one per swapchain image.
func (c *VkContext) RegenerateCommandBuffers() error {
	c.FreeCommandBuffers()
	handles, err := c.Device.Graphics.AllocateCommandBuffers(c.Device.Logical, c.SwapchainImageCount())
	if err != nil {
		return err
	}
	c.commandBuffers = wrapCommandBuffers(handles)
	core.LogDebug("Vulkan command buffers created.")
	return nil
}

func (c *VkContext) FreeCommandBuffers() {
	if len(c.commandBuffers) == 0 {
		return
	}
	c.Device.Graphics.FreeCommandBuffers(c.Device.Logical, unwrapCommandBuffers(c.commandBuffers))
	c.commandBuffers = nil
}

func (c *VkContext) WaitIdle() {
	c.Device.WaitIdle()
}

func isOutOfDate(res vk.Result) bool {
	return res == vk.Suboptimal || res == vk.ErrorOutOfDate
}

// AcquireNextImage moves to the next swapchain slot, waits until the GPU is
// done with it and acquires an image. An out of date or suboptimal swapchain
// yields core.ErrSwapchainOutOfDate and leaves the slot where it was.
func (c *VkContext) AcquireNextImage() (uint32, error) {
	s := c.Swapchain
	device := c.Device.Logical
	slot := (s.currentImage + 1) % uint32(len(s.sync))
	sync := s.sync[slot]

	if err := sync.mayBeginRendering.Wait(device, vk.MaxUint64); err != nil {
		return 0, err
	}
	var imageIndex uint32
	res := vk.AcquireNextImage(device, s.Handle, vk.MaxUint64, sync.imageAvailable, vk.NullFence, &imageIndex)
	if isOutOfDate(res) {
		core.LogDebug("Acquire reported %s.", VulkanResultString(res, false))
		return 0, core.ErrSwapchainOutOfDate
	}
	if err := check(res, "vkAcquireNextImage"); err != nil {
		return 0, err
	}
	// Reset only once the acquire went through, so an out of date slot keeps
	// its signaled fence.
	if err := sync.mayBeginRendering.Reset(device); err != nil {
		return 0, err
	}
	if imageIndex != slot {
		core.LogDebug("Acquired image %d on slot %d.", imageIndex, slot)
	}
	s.currentImage = slot
	return imageIndex, nil
}

// SubmitAndPresent submits the image's recorded command buffer on the
// current slot and presents the image once rendering finished.
func (c *VkContext) SubmitAndPresent(imageIndex uint32) error {
	s := c.Swapchain
	sync := s.sync[s.currentImage]
	cb := c.commandBuffers[imageIndex]
	if !cb.Recorded() {
		return core.EngineError("command buffer for image %d is %s", imageIndex, cb.State)
	}
	if err := c.Device.Graphics.Submit(cb.Handle, sync.imageAvailable, vk.PipelineStageColorAttachmentOutputBit,
		sync.renderingFinished, sync.mayBeginRendering.Handle); err != nil {
		return err
	}

	res := c.Device.Graphics.Present(s.Handle, imageIndex, sync.renderingFinished)
	if isOutOfDate(res) {
		core.LogDebug("Present reported %s.", VulkanResultString(res, false))
		return core.ErrSwapchainOutOfDate
	}
	return check(res, "vkQueuePresent")
}

// RecreateSurface destroys the swapchain and the surface, then creates both
// again for the window's current size. The caller releases swapchain bound
// resources and command buffers first.
func (c *VkContext) RecreateSurface() error {
	c.WaitIdle()
	c.Swapchain.destroy(c)
	c.Swapchain = nil
	vk.DestroySurface(c.instance.Handle, c.surface, nil)
	c.surface = vk.NullSurface

	surface, err := c.window.CreateSurface(c.instance.Handle)
	if err != nil {
		return core.Wrap(core.KindOpFailed, err, "failed to recreate surface")
	}
	c.surface = surface
	width, height := c.window.FramebufferSize()
	if c.Swapchain, err = newSwapchain(c, width, height); err != nil {
		return err
	}
	return nil
}

// Teardown destroys everything the context owns. It is safe to call more
// than once and on a partly constructed context. Registry resources must be
// released before.
func (c *VkContext) Teardown() {
	if c.torn {
		return
	}
	c.torn = true
	core.LogInfo("Tearing down Vulkan context...")

	var device vk.Device
	if c.Device != nil {
		c.Device.WaitIdle()
		device = c.Device.Logical
		c.FreeCommandBuffers()
	}
	if c.Allocator != nil {
		c.Allocator.Destroy()
	}
	if c.Swapchain != nil {
		c.Swapchain.destroySync(device)
		c.Swapchain.destroyViews(device)
		c.Swapchain.destroyHandle(device)
		c.Swapchain.destroyDepth(c)
		c.Swapchain = nil
	}
	if c.Allocator != nil {
		c.Allocator.ReportLeaks()
	}
	if c.instance != nil && c.surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(c.instance.Handle, c.surface, nil)
		c.surface = vk.NullSurface
	}
	if c.Device != nil {
		c.Device.Destroy()
	}
	if c.instance != nil {
		c.instance.Destroy()
	}
	core.LogInfo("Vulkan context torn down.")
}
