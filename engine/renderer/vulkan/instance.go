package vulkan

import (
	"runtime"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
)

const surfaceExtensionName = "VK_KHR_surface"

// Instance is the Vulkan instance and, when validation is on, the debug
// report callback attached to it.
type Instance struct {
	Handle vk.Instance
	debug  vk.DebugReportCallback
}

// instanceExtensions lists what the instance needs on top of the window
// system's own requirements.
func instanceExtensions(windowExtensions []string, validation bool, goos string) []string {
	requiredExtensions := []string{surfaceExtensionName}
	for _, name := range windowExtensions {
		if name != surfaceExtensionName {
			requiredExtensions = append(requiredExtensions, name)
		}
	}
	if goos == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}
	if validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	return requiredExtensions
}

func NewInstance(appName string, windowExtensions []string, validation bool) (*Instance, error) {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Glacier Engine"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}
	if runtime.GOOS == "darwin" {
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	requiredExtensions := instanceExtensions(windowExtensions, validation, runtime.GOOS)
	core.LogDebug("Required extensions: %s", strings.Join(requiredExtensions, ", "))
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	var requiredLayers []string
	if validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredLayers = []string{validationLayerName}
		available, err := availableLayers()
		if err != nil {
			return nil, err
		}
		if missing := missingLayers(requiredLayers, available); len(missing) > 0 {
			err := core.Compatibility("required validation layers are missing: %s", strings.Join(missing, ", "))
			core.LogError(err.Error())
			return nil, err
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	inst := &Instance{}
	if err := check(vk.CreateInstance(&createInfo, nil, &inst.Handle), "vkCreateInstance"); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(inst.Handle); err != nil {
		core.LogError(err.Error())
		vk.DestroyInstance(inst.Handle, nil)
		return nil, core.Wrap(core.KindOpFailed, err, "failed to load instance functions")
	}
	core.LogInfo("Vulkan Instance created.")

	if validation {
		dbg, err := createDebugCallback(inst.Handle)
		if err != nil {
			vk.DestroyInstance(inst.Handle, nil)
			return nil, err
		}
		inst.debug = dbg
	}
	return inst, nil
}

// Destroy releases the debug callback, then the instance.
func (i *Instance) Destroy() {
	if i.Handle == nil {
		return
	}
	if i.debug != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(i.Handle, i.debug, nil)
		i.debug = vk.NullDebugReportCallback
	}
	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(i.Handle, nil)
	i.Handle = nil
}
