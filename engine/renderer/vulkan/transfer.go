package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
)

// runTransfer records commands into the transfer command buffer, submits it
// with a fresh fence and blocks until the fence signals.
func (a *MemoryAllocator) runTransfer(what string, record func(cb vk.CommandBuffer)) error {
	cb := a.transferCommandBuffer
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := check(vk.BeginCommandBuffer(cb, &beginInfo), "vkBeginCommandBuffer ("+what+")"); err != nil {
		return err
	}
	record(cb)
	if err := check(vk.EndCommandBuffer(cb), "vkEndCommandBuffer ("+what+")"); err != nil {
		return err
	}

	fence, err := NewFence(a.device, false)
	if err != nil {
		return err
	}
	defer fence.Destroy(a.device)

	if err := a.transfer.Submit(cb, nil, 0, nil, fence.Handle); err != nil {
		return err
	}
	return fence.Wait(a.device, vk.MaxUint64)
}

func imageBarrier(image vk.Image, aspect vk.ImageAspectFlags, layers uint32, oldLayout, newLayout vk.ImageLayout, srcAccess, dstAccess vk.AccessFlagBits) vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(srcAccess),
		DstAccessMask:       vk.AccessFlags(dstAccess),
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     layers,
		},
	}
}

func bufferBarrier(buffer vk.Buffer, srcAccess, dstAccess vk.AccessFlagBits) vk.BufferMemoryBarrier {
	return vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(srcAccess),
		DstAccessMask:       vk.AccessFlags(dstAccess),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buffer,
		Offset:              0,
		Size:                vk.DeviceSize(vk.WholeSize),
	}
}

func pipelineImageBarrier(cb vk.CommandBuffer, src, dst vk.PipelineStageFlagBits, barrier vk.ImageMemoryBarrier) {
	vk.CmdPipelineBarrier(cb, vk.PipelineStageFlags(src), vk.PipelineStageFlags(dst), 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func pipelineBufferBarrier(cb vk.CommandBuffer, src, dst vk.PipelineStageFlagBits, barrier vk.BufferMemoryBarrier) {
	vk.CmdPipelineBarrier(cb, vk.PipelineStageFlags(src), vk.PipelineStageFlags(dst), 0, 0, nil, 1, []vk.BufferMemoryBarrier{barrier}, 0, nil)
}

// transitionImageLayout moves an image without data to the layout it will be
// used in.
func (a *MemoryAllocator) transitionImageLayout(image vk.Image, aspect vk.ImageAspectFlags, oldLayout, newLayout vk.ImageLayout) error {
	return a.runTransfer("layout transition", func(cb vk.CommandBuffer) {
		barrier := imageBarrier(image, aspect, vk.RemainingArrayLayers, oldLayout, newLayout, 0, vk.AccessMemoryReadBit)
		pipelineImageBarrier(cb, vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit, barrier)
	})
}

func (a *MemoryAllocator) uploadBufferThroughStaging(buffer vk.Buffer, data []byte) error {
	if err := a.ensureStaging(uint64(len(data))); err != nil {
		return err
	}
	if err := a.writeMapped(a.staging.allocation, 0, data); err != nil {
		return err
	}
	staging := a.staging.buffer
	return a.runTransfer("buffer upload", func(cb vk.CommandBuffer) {
		pipelineBufferBarrier(cb, vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit,
			bufferBarrier(buffer, 0, vk.AccessTransferWriteBit))
		vk.CmdCopyBuffer(cb, staging, buffer, 1, []vk.BufferCopy{{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      vk.DeviceSize(len(data)),
		}})
		pipelineBufferBarrier(cb, vk.PipelineStageTransferBit, vk.PipelineStageBottomOfPipeBit,
			bufferBarrier(buffer, vk.AccessTransferWriteBit, vk.AccessMemoryReadBit))
	})
}

func layerSize(layers [][]byte) uint64 {
	if len(layers) == 0 {
		return 0
	}
	return uint64(len(layers[0]))
}

func (a *MemoryAllocator) uploadImageThroughStaging(image vk.Image, config ImageConfig, width, height uint32, layers [][]byte) error {
	stride := layerSize(layers)
	if err := a.ensureStaging(stride * uint64(len(layers))); err != nil {
		return err
	}
	for i, layer := range layers {
		if err := a.writeMapped(a.staging.allocation, uint64(i)*stride, layer); err != nil {
			return err
		}
	}
	staging := a.staging.buffer
	count := uint32(len(layers))
	return a.runTransfer("image upload", func(cb vk.CommandBuffer) {
		pipelineImageBarrier(cb, vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit,
			imageBarrier(image, config.Aspect, count, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
				0, vk.AccessTransferWriteBit))
		region := vk.BufferImageCopy{
			BufferOffset:      0,
			BufferRowLength:   0,
			BufferImageHeight: 0,
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     config.Aspect,
				MipLevel:       0,
				BaseArrayLayer: 0,
				LayerCount:     count,
			},
			ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
			ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
		}
		vk.CmdCopyBufferToImage(cb, staging, image, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
		pipelineImageBarrier(cb, vk.PipelineStageTransferBit, vk.PipelineStageBottomOfPipeBit,
			imageBarrier(image, config.Aspect, count, vk.ImageLayoutTransferDstOptimal, config.ExpectedLayout,
				vk.AccessTransferWriteBit, vk.AccessMemoryReadBit))
	})
}

// uploadImageDirect writes layers straight into host visible image memory,
// one layer after the other, then leaves the preinitialized layout.
func (a *MemoryAllocator) uploadImageDirect(image vk.Image, config ImageConfig, allocation *Allocation, layers [][]byte) error {
	stride := layerSize(layers)
	for i, layer := range layers {
		if err := a.writeMapped(allocation, uint64(i)*stride, layer); err != nil {
			core.LogError(err.Error())
			return err
		}
	}
	count := uint32(len(layers))
	return a.runTransfer("image upload", func(cb vk.CommandBuffer) {
		pipelineImageBarrier(cb, vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit,
			imageBarrier(image, config.Aspect, count, vk.ImageLayoutPreinitialized, config.ExpectedLayout,
				0, vk.AccessMemoryReadBit))
	})
}
