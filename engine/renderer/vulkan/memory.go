package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
)

const (
	mebibyte = 1024 * 1024

	// Heaps smaller than this are not worth putting bulk resources in.
	bulkMemoryFloor   = 512 * mebibyte
	stagingBufferSize = 128 * mebibyte
)

// MemoryCategory groups memory types by how they can be reached.
type MemoryCategory int

const (
	CategoryNone MemoryCategory = iota
	// Device local, not host visible and coherent.
	CategoryDeviceLocal
	// Host visible and coherent, not device local.
	CategoryHostAccessible
	// Both device local and host visible and coherent.
	CategoryFlexible
)

func (c MemoryCategory) String() string {
	switch c {
	case CategoryDeviceLocal:
		return "device-local"
	case CategoryHostAccessible:
		return "host-accessible"
	case CategoryFlexible:
		return "flexible"
	default:
		return "none"
	}
}

// HostAccessible reports whether the CPU can map memory of this category.
func (c MemoryCategory) HostAccessible() bool {
	return c == CategoryHostAccessible || c == CategoryFlexible
}

type MemoryTypeInfo struct {
	DeviceLocal  bool
	HostVisible  bool
	HostCoherent bool
	HeapIndex    uint32
}

// MemoryTopology is the part of the physical device memory properties the
// allocator cares about, in driver order.
type MemoryTopology struct {
	Types     []MemoryTypeInfo
	HeapSizes []uint64
}

// MemoryChoice names one memory type and the category it was picked from.
type MemoryChoice struct {
	TypeIndex uint32
	Category  MemoryCategory
	HeapSize  uint64
}

func (m MemoryChoice) String() string {
	return fmt.Sprintf("type %d (%s, %d MiB)", m.TypeIndex, m.Category, m.HeapSize/mebibyte)
}

// MemoryRoles says which memory type serves which purpose. Staging is nil
// when host visible device memory is written directly.
type MemoryRoles struct {
	BulkPerformance          MemoryChoice
	UniformBuffer            MemoryChoice
	Staging                  *MemoryChoice
	PreferOptimalImageTiling bool
}

func categorize(t MemoryTypeInfo) MemoryCategory {
	hostAccessible := t.HostVisible && t.HostCoherent
	switch {
	case t.DeviceLocal && hostAccessible:
		return CategoryFlexible
	case t.DeviceLocal:
		return CategoryDeviceLocal
	case hostAccessible:
		return CategoryHostAccessible
	default:
		return CategoryNone
	}
}

// largestPerCategory keeps, for each category, the type with the largest heap.
// Ties go to the type the driver lists first.
func largestPerCategory(topology MemoryTopology) (map[MemoryCategory]MemoryChoice, error) {
	best := make(map[MemoryCategory]MemoryChoice)
	for i, t := range topology.Types {
		category := categorize(t)
		if category == CategoryNone {
			continue
		}
		if int(t.HeapIndex) >= len(topology.HeapSizes) {
			return nil, core.Compatibility("memory type %d refers to missing heap %d", i, t.HeapIndex)
		}
		size := topology.HeapSizes[t.HeapIndex]
		if current, ok := best[category]; ok && current.HeapSize >= size {
			continue
		}
		best[category] = MemoryChoice{TypeIndex: uint32(i), Category: category, HeapSize: size}
	}
	return best, nil
}

// Classify derives memory roles from a device's memory topology.
func Classify(topology MemoryTopology) (MemoryRoles, error) {
	best, err := largestPerCategory(topology)
	if err != nil {
		return MemoryRoles{}, err
	}
	deviceLocal, hasDeviceLocal := best[CategoryDeviceLocal]
	hostAccessible, hasHostAccessible := best[CategoryHostAccessible]
	flexible, hasFlexible := best[CategoryFlexible]

	switch {
	case hasFlexible && !hasDeviceLocal && !hasHostAccessible:
		return MemoryRoles{
			BulkPerformance:          flexible,
			UniformBuffer:            flexible,
			PreferOptimalImageTiling: true,
		}, nil
	case hasFlexible && hasDeviceLocal && hasHostAccessible:
		return classifyAllCategories(deviceLocal, hostAccessible, flexible), nil
	}

	// Flexible memory stands in for whichever of the two plain categories is
	// missing.
	if hasFlexible && !hasDeviceLocal {
		deviceLocal, hasDeviceLocal = flexible, true
	}
	if hasFlexible && !hasHostAccessible {
		hostAccessible, hasHostAccessible = flexible, true
	}
	if !hasHostAccessible {
		return MemoryRoles{}, core.Compatibility("no host accessible memory type")
	}
	if !hasDeviceLocal {
		return MemoryRoles{}, core.Compatibility("no device local memory type")
	}
	staging := hostAccessible
	return MemoryRoles{
		BulkPerformance: deviceLocal,
		UniformBuffer:   hostAccessible,
		Staging:         &staging,
	}, nil
}

func classifyAllCategories(deviceLocal, hostAccessible, flexible MemoryChoice) MemoryRoles {
	roles := MemoryRoles{UniformBuffer: flexible}
	switch {
	case deviceLocal.HeapSize >= bulkMemoryFloor && flexible.HeapSize >= bulkMemoryFloor:
		roles.BulkPerformance = deviceLocal
		staging := flexible
		roles.Staging = &staging
	case deviceLocal.HeapSize >= bulkMemoryFloor:
		roles.BulkPerformance = deviceLocal
		staging := hostAccessible
		roles.Staging = &staging
	case hostAccessible.HeapSize >= bulkMemoryFloor:
		roles.BulkPerformance = hostAccessible
	default:
		roles.BulkPerformance = flexible
	}
	return roles
}

// topologyOf reads the memory types and heaps of a physical device.
func topologyOf(properties vk.PhysicalDeviceMemoryProperties) MemoryTopology {
	properties.Deref()
	topology := MemoryTopology{
		Types:     make([]MemoryTypeInfo, properties.MemoryTypeCount),
		HeapSizes: make([]uint64, properties.MemoryHeapCount),
	}
	for i := 0; i < int(properties.MemoryHeapCount); i++ {
		properties.MemoryHeaps[i].Deref()
		topology.HeapSizes[i] = uint64(properties.MemoryHeaps[i].Size)
	}
	for i := 0; i < int(properties.MemoryTypeCount); i++ {
		properties.MemoryTypes[i].Deref()
		flags := vk.MemoryPropertyFlagBits(properties.MemoryTypes[i].PropertyFlags)
		topology.Types[i] = MemoryTypeInfo{
			DeviceLocal:  flags&vk.MemoryPropertyDeviceLocalBit != 0,
			HostVisible:  flags&vk.MemoryPropertyHostVisibleBit != 0,
			HostCoherent: flags&vk.MemoryPropertyHostCoherentBit != 0,
			HeapIndex:    properties.MemoryTypes[i].HeapIndex,
		}
	}
	return topology
}
