package vulkan

import (
	"testing"

	"github.com/spaghettifunk/glacier/engine/core"
)

const gibibyte = 1024 * mebibyte

var (
	deviceLocalType    = MemoryTypeInfo{DeviceLocal: true}
	hostAccessibleType = MemoryTypeInfo{HostVisible: true, HostCoherent: true}
	flexibleType       = MemoryTypeInfo{DeviceLocal: true, HostVisible: true, HostCoherent: true}
)

func onHeap(t MemoryTypeInfo, heap uint32) MemoryTypeInfo {
	t.HeapIndex = heap
	return t
}

// threeCategories lays out one type per category, each on its own heap.
func threeCategories(deviceLocal, hostAccessible, flexible uint64) MemoryTopology {
	return MemoryTopology{
		Types: []MemoryTypeInfo{
			onHeap(deviceLocalType, 0),
			onHeap(hostAccessibleType, 1),
			onHeap(flexibleType, 2),
		},
		HeapSizes: []uint64{deviceLocal, hostAccessible, flexible},
	}
}

func stagingCategory(r MemoryRoles) MemoryCategory {
	if r.Staging == nil {
		return CategoryNone
	}
	return r.Staging.Category
}

func TestClassifyRoleTable(t *testing.T) {
	tests := []struct {
		name       string
		topology   MemoryTopology
		bulk       MemoryCategory
		uniform    MemoryCategory
		staging    MemoryCategory
		preferTile bool
	}{
		{
			name:       "unified memory",
			topology:   MemoryTopology{Types: []MemoryTypeInfo{flexibleType}, HeapSizes: []uint64{2 * gibibyte}},
			bulk:       CategoryFlexible,
			uniform:    CategoryFlexible,
			staging:    CategoryNone,
			preferTile: true,
		},
		{
			name: "discrete without flexible memory",
			topology: MemoryTopology{
				Types:     []MemoryTypeInfo{onHeap(deviceLocalType, 0), onHeap(hostAccessibleType, 1)},
				HeapSizes: []uint64{4 * gibibyte, 8 * gibibyte},
			},
			bulk:    CategoryDeviceLocal,
			uniform: CategoryHostAccessible,
			staging: CategoryHostAccessible,
		},
		{
			name:     "large device local and large flexible",
			topology: threeCategories(8*gibibyte, 16*gibibyte, 8*gibibyte),
			bulk:     CategoryDeviceLocal,
			uniform:  CategoryFlexible,
			staging:  CategoryFlexible,
		},
		{
			name:     "large device local and small flexible",
			topology: threeCategories(gibibyte, gibibyte, 256*mebibyte),
			bulk:     CategoryDeviceLocal,
			uniform:  CategoryFlexible,
			staging:  CategoryHostAccessible,
		},
		{
			name:     "small device local and large host memory",
			topology: threeCategories(256*mebibyte, 4*gibibyte, 256*mebibyte),
			bulk:     CategoryHostAccessible,
			uniform:  CategoryFlexible,
			staging:  CategoryNone,
		},
		{
			name:     "everything small",
			topology: threeCategories(256*mebibyte, 256*mebibyte, 256*mebibyte),
			bulk:     CategoryFlexible,
			uniform:  CategoryFlexible,
			staging:  CategoryNone,
		},
		{
			name:     "exactly at the floor counts as large",
			topology: threeCategories(bulkMemoryFloor, gibibyte, bulkMemoryFloor),
			bulk:     CategoryDeviceLocal,
			uniform:  CategoryFlexible,
			staging:  CategoryFlexible,
		},
		{
			name: "flexible stands in for device local",
			topology: MemoryTopology{
				Types:     []MemoryTypeInfo{onHeap(hostAccessibleType, 0), onHeap(flexibleType, 1)},
				HeapSizes: []uint64{8 * gibibyte, 256 * mebibyte},
			},
			bulk:    CategoryFlexible,
			uniform: CategoryHostAccessible,
			staging: CategoryHostAccessible,
		},
		{
			name: "flexible stands in for host accessible",
			topology: MemoryTopology{
				Types:     []MemoryTypeInfo{onHeap(deviceLocalType, 0), onHeap(flexibleType, 0)},
				HeapSizes: []uint64{8 * gibibyte},
			},
			bulk:    CategoryDeviceLocal,
			uniform: CategoryFlexible,
			staging: CategoryFlexible,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roles, err := Classify(tt.topology)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if roles.BulkPerformance.Category != tt.bulk {
				t.Errorf("bulk = %s, want %s", roles.BulkPerformance.Category, tt.bulk)
			}
			if roles.UniformBuffer.Category != tt.uniform {
				t.Errorf("uniform = %s, want %s", roles.UniformBuffer.Category, tt.uniform)
			}
			if got := stagingCategory(roles); got != tt.staging {
				t.Errorf("staging = %s, want %s", got, tt.staging)
			}
			if roles.PreferOptimalImageTiling != tt.preferTile {
				t.Errorf("prefer optimal tiling = %t, want %t", roles.PreferOptimalImageTiling, tt.preferTile)
			}
			if !roles.UniformBuffer.Category.HostAccessible() {
				t.Errorf("uniform buffers must be host accessible, got %s", roles.UniformBuffer.Category)
			}
		})
	}
}

func TestClassifyAMDLikeTopology(t *testing.T) {
	// DEVICE_LOCAL 1 GiB, HOST_VISIBLE 1 GiB, DEVICE_LOCAL|HOST_VISIBLE 256 MiB.
	topology := MemoryTopology{
		Types: []MemoryTypeInfo{
			onHeap(deviceLocalType, 0),
			onHeap(hostAccessibleType, 1),
			onHeap(hostAccessibleType, 1),
			onHeap(flexibleType, 2),
		},
		HeapSizes: []uint64{gibibyte, gibibyte, 256 * mebibyte},
	}
	roles, err := Classify(topology)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if roles.BulkPerformance.TypeIndex != 0 {
		t.Errorf("bulk type = %d, want 0", roles.BulkPerformance.TypeIndex)
	}
	if roles.UniformBuffer.TypeIndex != 3 {
		t.Errorf("uniform type = %d, want 3", roles.UniformBuffer.TypeIndex)
	}
	if roles.Staging == nil || roles.Staging.TypeIndex != 1 {
		t.Errorf("staging = %v, want type 1", roles.Staging)
	}
	if roles.PreferOptimalImageTiling {
		t.Error("discrete memory should not prefer optimal tiling")
	}
}

func TestClassifyIntelLikeTopology(t *testing.T) {
	roles, err := Classify(MemoryTopology{
		Types:     []MemoryTypeInfo{flexibleType, onHeap(MemoryTypeInfo{HostVisible: true}, 0)},
		HeapSizes: []uint64{2 * gibibyte},
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if roles.Staging != nil {
		t.Errorf("staging = %v, want none", roles.Staging)
	}
	if !roles.PreferOptimalImageTiling {
		t.Error("unified memory should prefer optimal tiling")
	}
}

func TestClassifyPicksLargestHeapPerCategory(t *testing.T) {
	roles, err := Classify(MemoryTopology{
		Types: []MemoryTypeInfo{
			onHeap(deviceLocalType, 0),
			onHeap(deviceLocalType, 1),
			onHeap(hostAccessibleType, 2),
		},
		HeapSizes: []uint64{256 * mebibyte, 4 * gibibyte, gibibyte},
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if roles.BulkPerformance.TypeIndex != 1 {
		t.Errorf("bulk type = %d, want 1", roles.BulkPerformance.TypeIndex)
	}
	if roles.BulkPerformance.HeapSize != 4*gibibyte {
		t.Errorf("bulk heap = %d, want %d", roles.BulkPerformance.HeapSize, 4*gibibyte)
	}
}

func TestClassifyRejectsDegenerateTopologies(t *testing.T) {
	tests := []struct {
		name     string
		topology MemoryTopology
	}{
		{"no host accessible memory", MemoryTopology{
			Types:     []MemoryTypeInfo{deviceLocalType},
			HeapSizes: []uint64{8 * gibibyte},
		}},
		{"host visible but not coherent", MemoryTopology{
			Types:     []MemoryTypeInfo{deviceLocalType, {HostVisible: true}},
			HeapSizes: []uint64{8 * gibibyte},
		}},
		{"no device local memory", MemoryTopology{
			Types:     []MemoryTypeInfo{hostAccessibleType},
			HeapSizes: []uint64{8 * gibibyte},
		}},
		{"no memory types", MemoryTopology{}},
		{"type on a missing heap", MemoryTopology{
			Types:     []MemoryTypeInfo{onHeap(flexibleType, 3)},
			HeapSizes: []uint64{gibibyte},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.topology)
			if !core.IsKind(err, core.KindCompatibility) {
				t.Fatalf("Classify error = %v, want Compatibility", err)
			}
		})
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		value, alignment, want uint64
	}{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{13, 0, 13},
	}
	for _, tt := range tests {
		if got := alignUp(tt.value, tt.alignment); got != tt.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tt.value, tt.alignment, got, tt.want)
		}
	}
}
