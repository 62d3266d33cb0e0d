package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/model"
	"github.com/spaghettifunk/glacier/engine/resource"
)

type bufferCreationParams struct {
	usage          vk.BufferUsageFlags
	hostAccessible bool
}

func bufferParamsFor(usage resource.BufferUsage, hasInitData bool) (bufferCreationParams, error) {
	var transfer vk.BufferUsageFlags
	if hasInitData {
		transfer = vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}
	switch usage {
	case resource.InitialiseOnceVertexBuffer:
		return bufferCreationParams{
			usage:          vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit) | transfer,
			hostAccessible: false,
		}, nil
	case resource.UniformBuffer:
		return bufferCreationParams{
			usage:          vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit) | transfer,
			hostAccessible: true,
		}, nil
	default:
		return bufferCreationParams{}, core.UserError("unhandled buffer usage %d", usage)
	}
}

// checkRange fails when writing size bytes at offset would leave a buffer of
// capacity bytes.
func checkRange(offset, size, capacity uint64) error {
	if offset+size > capacity || offset+size < offset {
		return core.EngineError("attempting to update buffer outside of range: offset %d, range %d, size %d", offset, size, capacity)
	}
	return nil
}

// BufferWrapper is a buffer and the memory that backs it.
type BufferWrapper struct {
	Buffer       vk.Buffer
	SizeBytes    uint64
	ElementCount int
	Allocation   *Allocation
}

func newBuffer(ctx *VkContext, usage resource.BufferUsage, sizeBytes uint64, elementCount int, initData []byte) (*BufferWrapper, error) {
	if sizeBytes == 0 {
		return nil, core.UserError("cannot create an empty buffer")
	}
	params, err := bufferParamsFor(usage, initData != nil)
	if err != nil {
		return nil, err
	}
	if initData != nil && uint64(len(initData)) != sizeBytes {
		return nil, core.UserError("buffer init data is %d bytes, expected %d", len(initData), sizeBytes)
	}
	device := ctx.Device.Logical
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(sizeBytes),
		Usage:       params.usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := check(vk.CreateBuffer(device, &bufferCreateInfo, nil, &buffer), "vkCreateBuffer"); err != nil {
		return nil, err
	}
	allocation, err := ctx.Allocator.BackBuffer(buffer, params.hostAccessible, initData)
	if err != nil {
		vk.DestroyBuffer(device, buffer, nil)
		return nil, err
	}
	return &BufferWrapper{
		Buffer:       buffer,
		SizeBytes:    sizeBytes,
		ElementCount: elementCount,
		Allocation:   allocation,
	}, nil
}

// NewVertexBuffer builds a buffer from a model description.
func NewVertexBuffer(ctx *VkContext, data *resource.VboCreationData) (*BufferWrapper, error) {
	if data.VertexCount <= 0 {
		return nil, core.UserError("vertex buffer needs at least one vertex")
	}
	var initData []byte
	if data.VertexData != nil {
		if len(data.VertexData) != data.VertexCount {
			return nil, core.UserError("vertex buffer has %d vertices, descriptor says %d", len(data.VertexData), data.VertexCount)
		}
		initData = model.VertexBytes(data.VertexData)
	}
	size := uint64(data.VertexCount) * model.VertexSizeBytes
	return newBuffer(ctx, data.Usage, size, data.VertexCount, initData)
}

// NewUniformBuffer builds a zeroed, host accessible uniform buffer.
func NewUniformBuffer(ctx *VkContext, sizeBytes int) (*BufferWrapper, error) {
	if sizeBytes <= 0 {
		return nil, core.UserError("uniform buffer size must be positive, got %d", sizeBytes)
	}
	return newBuffer(ctx, resource.UniformBuffer, uint64(sizeBytes), sizeBytes, make([]byte, sizeBytes))
}

// Update copies data into the buffer at offsetBytes. The buffer must live in
// host accessible memory.
func (b *BufferWrapper) Update(ctx *VkContext, offsetBytes uint64, data []byte) error {
	if err := checkRange(offsetBytes, uint64(len(data)), b.SizeBytes); err != nil {
		core.LogError(err.Error())
		return err
	}
	return ctx.Allocator.writeMapped(b.Allocation, offsetBytes, data)
}

// ReadBack copies len(out) bytes starting at offsetBytes out of the buffer.
func (b *BufferWrapper) ReadBack(ctx *VkContext, offsetBytes uint64, out []byte) error {
	if err := checkRange(offsetBytes, uint64(len(out)), b.SizeBytes); err != nil {
		return err
	}
	return ctx.Allocator.readMapped(b.Allocation, offsetBytes, out)
}

func (b *BufferWrapper) Kind() resource.Kind {
	return resource.KindBuffer
}

func (b *BufferWrapper) Release(ctx *VkContext) {
	if b.Buffer != vk.NullBuffer {
		vk.DestroyBuffer(ctx.Device.Logical, b.Buffer, nil)
		b.Buffer = vk.NullBuffer
	}
	ctx.Allocator.Free(b.Allocation)
	b.Allocation = nil
}
