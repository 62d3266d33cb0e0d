package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
)

type CommandBufferState int

const (
	CommandBufferReady CommandBufferState = iota
	CommandBufferRecording
	CommandBufferInRenderPass
	CommandBufferRecordingEnded
	CommandBufferNotAllocated
)

func (s CommandBufferState) String() string {
	switch s {
	case CommandBufferReady:
		return "ready"
	case CommandBufferRecording:
		return "recording"
	case CommandBufferInRenderPass:
		return "in render pass"
	case CommandBufferRecordingEnded:
		return "recording ended"
	case CommandBufferNotAllocated:
		return "not allocated"
	default:
		return "unknown"
	}
}

// CommandBuffer is a graphics command buffer recorded once per swapchain
// image and resubmitted every frame until the swapchain is rebuilt.
type CommandBuffer struct {
	Handle vk.CommandBuffer
	State  CommandBufferState
}

// Begin starts recording. Recordings may be pending on the GPU when the same
// image comes round again, hence simultaneous use.
func (c *CommandBuffer) Begin() error {
	if c.State != CommandBufferReady {
		return core.EngineError("command buffer begin while %s", c.State)
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit),
	}
	if err := check(vk.BeginCommandBuffer(c.Handle, &beginInfo), "vkBeginCommandBuffer"); err != nil {
		return err
	}
	c.State = CommandBufferRecording
	return nil
}

func (c *CommandBuffer) End() error {
	if c.State != CommandBufferRecording {
		return core.EngineError("command buffer end while %s", c.State)
	}
	if err := check(vk.EndCommandBuffer(c.Handle), "vkEndCommandBuffer"); err != nil {
		return err
	}
	c.State = CommandBufferRecordingEnded
	return nil
}

// BeginRenderPass starts an inline render pass. The command buffer must be
// recording.
func (c *CommandBuffer) BeginRenderPass(beginInfo *vk.RenderPassBeginInfo) {
	vk.CmdBeginRenderPass(c.Handle, beginInfo, vk.SubpassContentsInline)
	c.State = CommandBufferInRenderPass
}

func (c *CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(c.Handle)
	c.State = CommandBufferRecording
}

// Recorded reports whether the buffer holds a finished recording that can be
// submitted.
func (c *CommandBuffer) Recorded() bool {
	return c.State == CommandBufferRecordingEnded
}

func wrapCommandBuffers(handles []vk.CommandBuffer) []*CommandBuffer {
	buffers := make([]*CommandBuffer, len(handles))
	for i, h := range handles {
		buffers[i] = &CommandBuffer{Handle: h, State: CommandBufferReady}
	}
	return buffers
}

func unwrapCommandBuffers(buffers []*CommandBuffer) []vk.CommandBuffer {
	handles := make([]vk.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if b.State != CommandBufferNotAllocated {
			handles = append(handles, b.Handle)
		}
		b.Handle = nil
		b.State = CommandBufferNotAllocated
	}
	return handles
}
