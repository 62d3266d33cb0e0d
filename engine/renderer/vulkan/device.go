package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
)

// FeatureDeclaration names an optional device feature a scene asks for. Only
// declared features are enabled.
type FeatureDeclaration int

const (
	FeatureClipPlanes FeatureDeclaration = iota
)

func (f FeatureDeclaration) String() string {
	switch f {
	case FeatureClipPlanes:
		return "ClipPlanes"
	default:
		return fmt.Sprintf("Feature(%d)", int(f))
	}
}

// enableFeatures sets the flags for each declared feature, failing when the
// device does not support one of them.
func enableFeatures(supported vk.PhysicalDeviceFeatures, declared []FeatureDeclaration) (vk.PhysicalDeviceFeatures, error) {
	enabled := vk.PhysicalDeviceFeatures{}
	for _, feature := range declared {
		switch feature {
		case FeatureClipPlanes:
			if supported.ShaderClipDistance != vk.True {
				return enabled, core.Compatibility("device does not support %s", feature)
			}
			enabled.ShaderClipDistance = vk.True
		default:
			return enabled, core.UserError("unknown feature %s", feature)
		}
	}
	return enabled, nil
}

type queueFamilyInfo struct {
	Graphics bool
	Compute  bool
	Transfer bool
	Present  bool
}

// selectQueueFamilies picks a graphics family that can present and a transfer
// family. A transfer family other than the graphics one wins when there is
// one, the more dedicated the better.
func selectQueueFamilies(families []queueFamilyInfo) (graphics, transfer uint32, ok bool) {
	graphicsIndex := -1
	for i, f := range families {
		if f.Graphics && f.Present {
			graphicsIndex = i
			break
		}
	}
	if graphicsIndex < 0 {
		return 0, 0, false
	}

	transferIndex := graphicsIndex
	minScore := -1
	for i, f := range families {
		if i == graphicsIndex || !f.Transfer {
			continue
		}
		score := 0
		if f.Graphics {
			score++
		}
		if f.Compute {
			score++
		}
		if minScore < 0 || score < minScore {
			minScore = score
			transferIndex = i
		}
	}
	return uint32(graphicsIndex), uint32(transferIndex), true
}

// Device is the chosen physical device, the logical device created on it and
// its two queues. Graphics and Transfer may share a family.
type Device struct {
	Physical   vk.PhysicalDevice
	Logical    vk.Device
	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	Graphics *Queue
	Transfer *Queue

	locks *queueLockPool
}

type deviceCandidate struct {
	physical   vk.PhysicalDevice
	properties vk.PhysicalDeviceProperties
	features   vk.PhysicalDeviceFeatures
	graphics   uint32
	transfer   uint32
	// Optional device extensions to enable alongside the swapchain.
	extensions []string
}

func deviceExtensionNames(physical vk.PhysicalDevice) (map[string]bool, error) {
	var count uint32
	if err := check(vk.EnumerateDeviceExtensionProperties(physical, "", &count, nil), "vkEnumerateDeviceExtensionProperties"); err != nil {
		return nil, err
	}
	available := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if err := check(vk.EnumerateDeviceExtensionProperties(physical, "", &count, available), "vkEnumerateDeviceExtensionProperties"); err != nil {
			return nil, err
		}
	}
	names := make(map[string]bool, count)
	for i := range available {
		available[i].Deref()
		names[cString(available[i].ExtensionName[:])] = true
	}
	return names, nil
}

func queueFamiliesOf(physical vk.PhysicalDevice, surface vk.Surface) ([]queueFamilyInfo, error) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &count, nil)
	properties := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &count, properties)

	families := make([]queueFamilyInfo, count)
	for i := range properties {
		properties[i].Deref()
		flags := vk.QueueFlagBits(properties[i].QueueFlags)
		var supportsPresent vk.Bool32
		if err := check(vk.GetPhysicalDeviceSurfaceSupport(physical, uint32(i), surface, &supportsPresent), "vkGetPhysicalDeviceSurfaceSupport"); err != nil {
			return nil, err
		}
		families[i] = queueFamilyInfo{
			Graphics: flags&vk.QueueGraphicsBit != 0,
			Compute:  flags&vk.QueueComputeBit != 0,
			Transfer: flags&vk.QueueTransferBit != 0,
			Present:  supportsPresent == vk.True,
		}
	}
	return families, nil
}

// evaluateDevice returns nil when the device cannot drive the surface.
func evaluateDevice(physical vk.PhysicalDevice, surface vk.Surface, declared []FeatureDeclaration) (*deviceCandidate, error) {
	c := &deviceCandidate{physical: physical}
	vk.GetPhysicalDeviceProperties(physical, &c.properties)
	c.properties.Deref()
	vk.GetPhysicalDeviceFeatures(physical, &c.features)
	c.features.Deref()
	name := cString(c.properties.DeviceName[:])

	extensions, err := deviceExtensionNames(physical)
	if err != nil {
		return nil, err
	}
	if !extensions[vk.KhrSwapchainExtensionName] {
		core.LogInfo("Device '%s' lacks %s, skipping.", name, vk.KhrSwapchainExtensionName)
		return nil, nil
	}
	if extensions["VK_KHR_portability_subset"] {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		c.extensions = append(c.extensions, "VK_KHR_portability_subset")
	}

	families, err := queueFamiliesOf(physical, surface)
	if err != nil {
		return nil, err
	}
	graphics, transfer, ok := selectQueueFamilies(families)
	if !ok {
		core.LogInfo("Device '%s' has no graphics queue that can present, skipping.", name)
		return nil, nil
	}
	c.graphics, c.transfer = graphics, transfer

	support, err := querySwapchainSupport(physical, surface)
	if err != nil {
		return nil, err
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogInfo("Required swapchain support not present on '%s', skipping.", name)
		return nil, nil
	}
	if _, err := enableFeatures(c.features, declared); err != nil {
		core.LogInfo("Device '%s': %s, skipping.", name, err)
		return nil, nil
	}
	return c, nil
}

func logDeviceInfo(c *deviceCandidate, memory vk.PhysicalDeviceMemoryProperties) {
	core.LogInfo("Selected device: '%s'.", cString(c.properties.DeviceName[:]))
	switch c.properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(c.properties.DriverVersion).Major(),
		vk.Version(c.properties.DriverVersion).Minor(),
		vk.Version(c.properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(c.properties.ApiVersion).Major(),
		vk.Version(c.properties.ApiVersion).Minor(),
		vk.Version(c.properties.ApiVersion).Patch(),
	)
	memory.Deref()
	for j := 0; j < int(memory.MemoryHeapCount); j++ {
		memory.MemoryHeaps[j].Deref()
		sizeMib := uint64(memory.MemoryHeaps[j].Size) / mebibyte
		if vk.MemoryHeapFlagBits(memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %d MiB", sizeMib)
		} else {
			core.LogInfo("Shared System memory: %d MiB", sizeMib)
		}
	}
	core.LogDebug("Graphics Family Index: %d", c.graphics)
	core.LogDebug("Transfer Family Index: %d", c.transfer)
}

// selectPhysicalDevice takes the first suitable discrete GPU, else the first
// suitable device of any type.
func selectPhysicalDevice(instance vk.Instance, surface vk.Surface, declared []FeatureDeclaration) (*deviceCandidate, error) {
	var count uint32
	if err := check(vk.EnumeratePhysicalDevices(instance, &count, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	if count == 0 {
		err := core.Compatibility("no devices which support Vulkan were found")
		core.LogError(err.Error())
		return nil, err
	}
	physicalDevices := make([]vk.PhysicalDevice, count)
	if err := check(vk.EnumeratePhysicalDevices(instance, &count, physicalDevices), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}

	var chosen *deviceCandidate
	for _, physical := range physicalDevices {
		c, err := evaluateDevice(physical, surface, declared)
		if err != nil {
			return nil, err
		}
		if c == nil {
			continue
		}
		if c.properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			chosen = c
			break
		}
		if chosen == nil {
			chosen = c
		}
	}
	if chosen == nil {
		err := core.Compatibility("no physical device meets the requirements")
		core.LogError(err.Error())
		return nil, err
	}
	return chosen, nil
}

// NewDevice picks a physical device for the surface and creates the logical
// device with one graphics and one transfer queue.
func NewDevice(instance vk.Instance, surface vk.Surface, declared []FeatureDeclaration) (*Device, error) {
	c, err := selectPhysicalDevice(instance, surface, declared)
	if err != nil {
		return nil, err
	}
	d := &Device{
		Physical:   c.physical,
		Properties: c.properties,
		Features:   c.features,
		locks:      newQueueLockPool(),
	}
	vk.GetPhysicalDeviceMemoryProperties(c.physical, &d.Memory)
	d.Memory.Deref()
	logDeviceInfo(c, d.Memory)

	core.LogInfo("Creating logical device...")
	// Shared families get a single queue.
	families := []uint32{c.graphics}
	if c.transfer != c.graphics {
		families = append(families, c.transfer)
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	enabled, err := enableFeatures(c.features, declared)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	extensionNames := append([]string{vk.KhrSwapchainExtensionName}, c.extensions...)

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{enabled},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}
	if err := check(vk.CreateDevice(c.physical, &deviceCreateInfo, nil, &d.Logical), "vkCreateDevice"); err != nil {
		return nil, err
	}
	core.LogInfo("Logical device created.")

	if d.Graphics, err = newQueue(d.Logical, c.graphics, d.locks.forFamily(c.graphics)); err != nil {
		d.Destroy()
		return nil, err
	}
	if d.Transfer, err = newQueue(d.Logical, c.transfer, d.locks.forFamily(c.transfer)); err != nil {
		d.Destroy()
		return nil, err
	}
	core.LogInfo("Queues and command pools created.")
	return d, nil
}

// WaitIdle blocks until the device has finished all submitted work.
func (d *Device) WaitIdle() {
	if d == nil || d.Logical == nil {
		return
	}
	if res := vk.DeviceWaitIdle(d.Logical); res != vk.Success {
		core.LogWarn("vkDeviceWaitIdle returned %s", VulkanResultString(res, false))
	}
}

func (d *Device) Destroy() {
	if d.Logical == nil {
		return
	}
	core.LogInfo("Destroying command pools...")
	if d.Transfer != nil {
		d.Transfer.destroy(d.Logical)
		d.Transfer = nil
	}
	if d.Graphics != nil {
		d.Graphics.destroy(d.Logical)
		d.Graphics = nil
	}
	core.LogInfo("Destroying logical device...")
	vk.DestroyDevice(d.Logical, nil)
	d.Logical = nil
	d.Physical = nil
}
