package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
)

// Queue is a device queue together with the command pool its command buffers
// come from.
type Queue struct {
	FamilyIndex uint32
	Handle      vk.Queue
	CommandPool vk.CommandPool

	// Shared with every Queue of the same family.
	lock *sync.Mutex
}

func newQueue(device vk.Device, familyIndex uint32, lock *sync.Mutex) (*Queue, error) {
	q := &Queue{FamilyIndex: familyIndex, lock: lock}
	vk.GetDeviceQueue(device, familyIndex, 0, &q.Handle)

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: familyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if err := check(vk.CreateCommandPool(device, &poolCreateInfo, nil, &q.CommandPool), "vkCreateCommandPool"); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Queue) destroy(device vk.Device) {
	if q.CommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(device, q.CommandPool, nil)
		q.CommandPool = vk.NullCommandPool
	}
	q.Handle = nil
}

// AllocateCommandBuffers allocates count primary command buffers from the
// queue's pool.
func (q *Queue) AllocateCommandBuffers(device vk.Device, count int) ([]vk.CommandBuffer, error) {
	if count == 0 {
		return nil, nil
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        q.CommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}
	buffers := make([]vk.CommandBuffer, count)
	if err := check(vk.AllocateCommandBuffers(device, &allocateInfo, buffers), "vkAllocateCommandBuffers"); err != nil {
		return nil, err
	}
	return buffers, nil
}

func (q *Queue) FreeCommandBuffers(device vk.Device, buffers []vk.CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	vk.FreeCommandBuffers(device, q.CommandPool, uint32(len(buffers)), buffers)
}

// Submit queues one command buffer. Nil semaphores are left out of the
// submission; waitStage only applies when wait is set.
func (q *Queue) Submit(cb vk.CommandBuffer, wait vk.Semaphore, waitStage vk.PipelineStageFlagBits, signal vk.Semaphore, fence vk.Fence) error {
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb},
	}
	if wait != vk.NullSemaphore {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{wait}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(waitStage)}
	}
	if signal != vk.NullSemaphore {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{signal}
	}
	q.lock.Lock()
	res := vk.QueueSubmit(q.Handle, 1, []vk.SubmitInfo{submitInfo}, fence)
	q.lock.Unlock()
	if res != vk.Success {
		err := core.OpFailed("vkQueueSubmit on family %d failed with %s", q.FamilyIndex, VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	return nil
}

// Present hands a rendered image back to the swapchain once wait signals.
// The raw result is returned so callers can tell an out of date swapchain
// from a failure.
func (q *Queue) Present(swapchain vk.Swapchain, imageIndex uint32, wait vk.Semaphore) vk.Result {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain},
		PImageIndices:      []uint32{imageIndex},
	}
	q.lock.Lock()
	defer q.lock.Unlock()
	return vk.QueuePresent(q.Handle, &presentInfo)
}

// WaitIdle blocks until the queue has drained.
func (q *Queue) WaitIdle() error {
	q.lock.Lock()
	defer q.lock.Unlock()
	return check(vk.QueueWaitIdle(q.Handle), "vkQueueWaitIdle")
}
