package engine

import (
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/renderer/vulkan"
	"github.com/spaghettifunk/glacier/engine/resource"
	"github.com/spaghettifunk/glacier/engine/scene"
)

// frameRenderer is everything the frame loop asks of the GPU side.
type frameRenderer interface {
	recreateSurface() error
	renderFrame() error
	teardown()
}

// internals owns the device context and the resource registry of a running
// scene.
type internals struct {
	ctx      *vulkan.VkContext
	loader   *vulkan.ResourceLoader
	registry *vulkan.Registry
	scene    scene.Scene
	bearer   resource.RawResourceBearer
	torn     bool
}

var _ frameRenderer = (*internals)(nil)

// newInternals creates the context, loads static then dynamic resources and
// records one command buffer per swapchain image.
func newInternals(window vulkan.SurfaceProvider, cfg vulkan.ContextConfig, s scene.Scene) (*internals, error) {
	ctx, err := vulkan.NewVkContext(cfg, window)
	if err != nil {
		return nil, err
	}
	in := &internals{
		ctx:      ctx,
		loader:   vulkan.NewResourceLoader(ctx),
		registry: resource.NewRegistry[*vulkan.VkContext](),
		scene:    s,
		bearer:   s.ResourceBearer(),
	}

	if err := resource.LoadStaticResources(in.registry, in.loader, in.bearer); err != nil {
		in.teardown()
		return nil, err
	}
	if err := resource.LoadDynamicResources(in.registry, in.loader, in.bearer, ctx.SwapchainImageCount()); err != nil {
		in.teardown()
		return nil, err
	}
	if err := in.recordCommands(); err != nil {
		in.teardown()
		return nil, err
	}
	core.LogInfo("engine internals ready: %d resources, %d swapchain images", in.registry.Len(), ctx.SwapchainImageCount())
	return in, nil
}

func (in *internals) recordCommands() error {
	for i := 0; i < in.ctx.SwapchainImageCount(); i++ {
		if err := in.scene.RecordCommands(in.ctx.CommandBuffer(i), in.registry, i); err != nil {
			return err
		}
	}
	return nil
}

func (in *internals) recreateSurface() error {
	in.ctx.WaitIdle()
	in.ctx.FreeCommandBuffers()
	in.registry.ReleaseDynamic(in.ctx)

	if err := in.ctx.RecreateSurface(); err != nil {
		return err
	}
	if err := in.ctx.RegenerateCommandBuffers(); err != nil {
		return err
	}
	if err := resource.LoadDynamicResources(in.registry, in.loader, in.bearer, in.ctx.SwapchainImageCount()); err != nil {
		return err
	}
	if err := in.recordCommands(); err != nil {
		return err
	}
	extent := in.ctx.Extent()
	core.LogDebug("surface recreated at %dx%d", extent.Width, extent.Height)
	return nil
}

// renderFrame acquires an image, lets the scene update its per-frame data
// and submits the recorded commands. core.ErrSwapchainOutOfDate is returned
// as is.
func (in *internals) renderFrame() error {
	imageIndex, err := in.ctx.AcquireNextImage()
	if err != nil {
		return err
	}
	if err := in.scene.PrepareFrameRender(in.ctx, int(imageIndex), in.registry); err != nil {
		return err
	}
	return in.ctx.SubmitAndPresent(imageIndex)
}

func (in *internals) teardown() {
	if in.torn {
		return
	}
	in.torn = true
	in.ctx.WaitIdle()
	in.ctx.FreeCommandBuffers()
	in.registry.ReleaseAll(in.ctx)
	in.ctx.Teardown()
}
