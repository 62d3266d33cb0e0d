package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
)

type Fence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(device vk.Device, createSignaled bool) (*Fence, error) {
	fence := &Fence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	if err := check(vk.CreateFence(device, &fenceCreateInfo, nil, &fence.Handle), "vkCreateFence"); err != nil {
		return nil, err
	}
	return fence, nil
}

func (f *Fence) Destroy(device vk.Device) {
	if f.Handle != vk.NullFence {
		vk.DestroyFence(device, f.Handle, nil)
		f.Handle = vk.NullFence
	}
	f.IsSignaled = false
}

// Wait blocks until the fence signals or the timeout expires. A fence known
// to be signaled returns at once.
func (f *Fence) Wait(device vk.Device, timeoutNs uint64) error {
	if f.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(device, 1, []vk.Fence{f.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		f.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return core.OpFailed("fence wait timed out after %dns", timeoutNs)
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	case vk.ErrorOutOfHostMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_HOST_MEMORY.")
	case vk.ErrorOutOfDeviceMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_DEVICE_MEMORY.")
	default:
		core.LogError("vk_fence_wait - An unknown error has occurred.")
	}
	return core.OpFailed("vkWaitForFences failed with %s", VulkanResultString(result, true))
}

// Reset returns a signaled fence to the unsignaled state so it can be handed
// to the next submission.
func (f *Fence) Reset(device vk.Device) error {
	if !f.IsSignaled {
		return nil
	}
	if err := check(vk.ResetFences(device, 1, []vk.Fence{f.Handle}), "vkResetFences"); err != nil {
		return err
	}
	f.IsSignaled = false
	return nil
}
