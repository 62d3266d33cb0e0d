package vulkan

import (
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
)

// Allocation is a single block of device memory backing one buffer or image
// at offset 0. It is never shared.
type Allocation struct {
	Memory    vk.DeviceMemory
	Size      uint64
	TypeIndex uint32
}

type stagingBuffer struct {
	buffer     vk.Buffer
	allocation *Allocation
}

// MemoryAllocator backs buffers and images with memory picked from the
// device's roles and performs their initial uploads on the transfer queue.
type MemoryAllocator struct {
	Roles MemoryRoles

	device   vk.Device
	topology MemoryTopology
	transfer *Queue

	// Reused for every upload; uploads are synchronous end to end.
	transferCommandBuffer vk.CommandBuffer
	staging               *stagingBuffer

	mutex     sync.Mutex
	live      map[*Allocation]struct{}
	liveBytes uint64
}

func NewMemoryAllocator(device vk.Device, memory vk.PhysicalDeviceMemoryProperties, transfer *Queue) (*MemoryAllocator, error) {
	topology := topologyOf(memory)
	roles, err := Classify(topology)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	core.LogInfo("Memory roles: bulk %s, uniform %s.", roles.BulkPerformance, roles.UniformBuffer)

	a := &MemoryAllocator{
		Roles:    roles,
		device:   device,
		topology: topology,
		transfer: transfer,
		live:     make(map[*Allocation]struct{}),
	}

	buffers, err := transfer.AllocateCommandBuffers(device, 1)
	if err != nil {
		return nil, err
	}
	a.transferCommandBuffer = buffers[0]

	if roles.Staging != nil {
		if err := a.createStaging(stagingBufferSize); err != nil {
			a.Destroy()
			return nil, err
		}
		core.LogInfo("Staging buffer of %d MiB created in %s.", stagingBufferSize/mebibyte, roles.Staging)
	} else {
		core.LogInfo("Device memory is host visible, uploads skip the staging buffer.")
	}
	return a, nil
}

// memoryTypeFor returns the chosen type when the resource accepts it, else the
// largest type of the same category that it accepts.
func (a *MemoryAllocator) memoryTypeFor(typeBits uint32, choice MemoryChoice) (uint32, error) {
	if typeBits&(1<<choice.TypeIndex) != 0 {
		return choice.TypeIndex, nil
	}
	found := false
	var best uint32
	var bestSize uint64
	for i, t := range a.topology.Types {
		if typeBits&(1<<uint(i)) == 0 || categorize(t) != choice.Category {
			continue
		}
		size := a.topology.HeapSizes[t.HeapIndex]
		if !found || size > bestSize {
			found, best, bestSize = true, uint32(i), size
		}
	}
	if !found {
		return 0, core.Compatibility("no %s memory type accepted by mask %#x", choice.Category, typeBits)
	}
	return best, nil
}

func (a *MemoryAllocator) allocate(requirements vk.MemoryRequirements, choice MemoryChoice) (*Allocation, error) {
	typeIndex, err := a.memoryTypeFor(requirements.MemoryTypeBits, choice)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: typeIndex,
	}
	var memory vk.DeviceMemory
	if err := check(vk.AllocateMemory(a.device, &allocateInfo, nil, &memory), "vkAllocateMemory"); err != nil {
		return nil, err
	}
	allocation := &Allocation{
		Memory:    memory,
		Size:      uint64(requirements.Size),
		TypeIndex: typeIndex,
	}
	a.mutex.Lock()
	a.live[allocation] = struct{}{}
	a.liveBytes += allocation.Size
	a.mutex.Unlock()
	return allocation, nil
}

// Free releases an allocation. Everything bound to it must already be
// destroyed. Freeing nil or an already freed allocation does nothing.
func (a *MemoryAllocator) Free(allocation *Allocation) {
	if allocation == nil {
		return
	}
	a.mutex.Lock()
	_, ok := a.live[allocation]
	if ok {
		delete(a.live, allocation)
		a.liveBytes -= allocation.Size
	}
	a.mutex.Unlock()
	if !ok {
		return
	}
	vk.FreeMemory(a.device, allocation.Memory, nil)
	allocation.Memory = vk.NullDeviceMemory
}

// LiveAllocations reports how many allocations are outstanding and how many
// bytes they hold.
func (a *MemoryAllocator) LiveAllocations() (int, uint64) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return len(a.live), a.liveBytes
}

// writeMapped copies data into host visible memory at the given offset.
func (a *MemoryAllocator) writeMapped(allocation *Allocation, offset uint64, data []byte) error {
	if offset+uint64(len(data)) > allocation.Size {
		return core.EngineError("write of %d bytes at %d exceeds allocation of %d bytes", len(data), offset, allocation.Size)
	}
	if len(data) == 0 {
		return nil
	}
	var ptr unsafe.Pointer
	res := vk.MapMemory(a.device, allocation.Memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &ptr)
	if err := check(res, "vkMapMemory"); err != nil {
		return err
	}
	copy(unsafe.Slice((*byte)(ptr), len(data)), data)
	vk.UnmapMemory(a.device, allocation.Memory)
	return nil
}

// readMapped copies host visible memory back out.
func (a *MemoryAllocator) readMapped(allocation *Allocation, offset uint64, out []byte) error {
	if offset+uint64(len(out)) > allocation.Size {
		return core.EngineError("read of %d bytes at %d exceeds allocation of %d bytes", len(out), offset, allocation.Size)
	}
	if len(out) == 0 {
		return nil
	}
	var ptr unsafe.Pointer
	res := vk.MapMemory(a.device, allocation.Memory, vk.DeviceSize(offset), vk.DeviceSize(len(out)), 0, &ptr)
	if err := check(res, "vkMapMemory"); err != nil {
		return err
	}
	copy(out, unsafe.Slice((*byte)(ptr), len(out)))
	vk.UnmapMemory(a.device, allocation.Memory)
	return nil
}

func (a *MemoryAllocator) createStaging(size uint64) error {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := check(vk.CreateBuffer(a.device, &bufferCreateInfo, nil, &buffer), "vkCreateBuffer (staging)"); err != nil {
		return err
	}
	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(a.device, buffer, &requirements)
	requirements.Deref()

	allocation, err := a.allocate(requirements, *a.Roles.Staging)
	if err != nil {
		vk.DestroyBuffer(a.device, buffer, nil)
		return err
	}
	if err := check(vk.BindBufferMemory(a.device, buffer, allocation.Memory, 0), "vkBindBufferMemory (staging)"); err != nil {
		vk.DestroyBuffer(a.device, buffer, nil)
		a.Free(allocation)
		return err
	}
	a.staging = &stagingBuffer{buffer: buffer, allocation: allocation}
	return nil
}

func (a *MemoryAllocator) destroyStaging() {
	if a.staging == nil {
		return
	}
	vk.DestroyBuffer(a.device, a.staging.buffer, nil)
	a.Free(a.staging.allocation)
	a.staging = nil
}

// ensureStaging grows the staging buffer when an upload does not fit.
func (a *MemoryAllocator) ensureStaging(size uint64) error {
	if a.staging.allocation.Size >= size {
		return nil
	}
	grown := alignUp(size, uint64(stagingBufferSize))
	core.LogWarn("Upload of %d bytes does not fit the staging buffer, growing it to %d MiB.", size, grown/mebibyte)
	a.destroyStaging()
	return a.createStaging(grown)
}

// BackBuffer allocates memory for buffer, binds it and uploads data when
// given. Host accessible buffers live in uniform buffer memory, all others in
// bulk memory.
func (a *MemoryAllocator) BackBuffer(buffer vk.Buffer, hostAccessible bool, data []byte) (*Allocation, error) {
	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(a.device, buffer, &requirements)
	requirements.Deref()

	choice := a.Roles.BulkPerformance
	if hostAccessible {
		choice = a.Roles.UniformBuffer
	}
	allocation, err := a.allocate(requirements, choice)
	if err != nil {
		return nil, err
	}
	if err := check(vk.BindBufferMemory(a.device, buffer, allocation.Memory, 0), "vkBindBufferMemory"); err != nil {
		a.Free(allocation)
		return nil, err
	}
	if data == nil {
		return allocation, nil
	}

	if a.staging == nil || choice.Category.HostAccessible() {
		err = a.writeMapped(allocation, 0, data)
	} else {
		err = a.uploadBufferThroughStaging(buffer, data)
	}
	if err != nil {
		a.Free(allocation)
		return nil, err
	}
	return allocation, nil
}

// BackImage allocates bulk memory for image, binds it, then either uploads
// the layers or moves the image straight to its expected layout.
func (a *MemoryAllocator) BackImage(image vk.Image, config ImageConfig, width, height uint32, layers [][]byte) (*Allocation, error) {
	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(a.device, image, &requirements)
	requirements.Deref()

	allocation, err := a.allocate(requirements, a.Roles.BulkPerformance)
	if err != nil {
		return nil, err
	}
	if err := check(vk.BindImageMemory(a.device, image, allocation.Memory, 0), "vkBindImageMemory"); err != nil {
		a.Free(allocation)
		return nil, err
	}

	switch {
	case layers == nil:
		err = a.transitionImageLayout(image, config.Aspect, config.InitialLayout, config.ExpectedLayout)
	case a.staging != nil:
		err = a.uploadImageThroughStaging(image, config, width, height, layers)
	default:
		err = a.uploadImageDirect(image, config, allocation, layers)
	}
	if err != nil {
		a.Free(allocation)
		return nil, err
	}
	return allocation, nil
}

// Destroy releases the staging buffer and the transfer command buffer.
// Allocations still held by resources stay valid until freed.
func (a *MemoryAllocator) Destroy() {
	a.destroyStaging()
	if a.transferCommandBuffer != nil {
		a.transfer.FreeCommandBuffers(a.device, []vk.CommandBuffer{a.transferCommandBuffer})
		a.transferCommandBuffer = nil
	}
}

// ReportLeaks logs every allocation that was never freed and returns their
// number.
func (a *MemoryAllocator) ReportLeaks() int {
	count, bytes := a.LiveAllocations()
	if count == 0 {
		core.LogInfo("All device memory freed.")
		return 0
	}
	core.LogError("%d device memory allocations (%d bytes) were never freed.", count, bytes)
	return count
}
