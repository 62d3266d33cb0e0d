// Package scene holds what the engine renders: the resources a scene needs,
// how it records its draw commands and how it advances over time.
package scene

import (
	"github.com/spaghettifunk/glacier/engine/renderer/vulkan"
	"github.com/spaghettifunk/glacier/engine/resource"
)

type Scene interface {
	// ResourceBearer describes every resource the scene draws with.
	ResourceBearer() resource.RawResourceBearer
	// RecordCommands fills the command buffer of one swapchain image.
	RecordCommands(cb *vulkan.CommandBuffer, reg *vulkan.Registry, imageIndex int) error
	// Update advances the scene. controlDx and controlDy are in [-1, 1].
	Update(timeStepMillis uint64, controlDx, controlDy float32)
	// PrepareFrameRender runs after the image is acquired and before its
	// commands are submitted.
	PrepareFrameRender(ctx *vulkan.VkContext, imageIndex int, reg *vulkan.Registry) error
}
