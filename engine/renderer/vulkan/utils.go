package vulkan

import (
	"bytes"
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacier/engine/core"
	"golang.org/x/exp/constraints"
)

// check turns a non-success result into an OpFailed error naming the call.
func check(res vk.Result, what string) error {
	if res == vk.Success {
		return nil
	}
	err := core.OpFailed("%s failed with %s", what, VulkanResultString(res, true))
	core.LogError(err.Error())
	return err
}

func alignUp[T constraints.Unsigned](value, alignment T) T {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) / alignment * alignment
}

type resultInfo struct {
	name string
	desc string
}

// Descriptions follow the VkResult reference page.
var resultInfos = map[vk.Result]resultInfo{
	vk.Success:                 {"VK_SUCCESS", "command successfully completed"},
	vk.NotReady:                {"VK_NOT_READY", "a fence or query has not yet completed"},
	vk.Timeout:                 {"VK_TIMEOUT", "a wait operation has not completed in the specified time"},
	vk.EventSet:                {"VK_EVENT_SET", "an event is signaled"},
	vk.EventReset:              {"VK_EVENT_RESET", "an event is unsignaled"},
	vk.Incomplete:              {"VK_INCOMPLETE", "a return array was too small for the result"},
	vk.Suboptimal:              {"VK_SUBOPTIMAL_KHR", "the swapchain no longer matches the surface exactly but can still present"},
	vk.ThreadIdle:              {"VK_THREAD_IDLE_KHR", "a deferred operation has no work for this thread right now"},
	vk.ThreadDone:              {"VK_THREAD_DONE_KHR", "a deferred operation has no work left to hand out"},
	vk.OperationDeferred:       {"VK_OPERATION_DEFERRED_KHR", "some of the requested work was deferred"},
	vk.OperationNotDeferred:    {"VK_OPERATION_NOT_DEFERRED_KHR", "none of the requested work was deferred"},
	vk.PipelineCompileRequired: {"VK_PIPELINE_COMPILE_REQUIRED_EXT", "pipeline creation needed a compile the application disallowed"},

	vk.ErrorOutOfHostMemory:             {"VK_ERROR_OUT_OF_HOST_MEMORY", "a host memory allocation has failed"},
	vk.ErrorOutOfDeviceMemory:           {"VK_ERROR_OUT_OF_DEVICE_MEMORY", "a device memory allocation has failed"},
	vk.ErrorInitializationFailed:        {"VK_ERROR_INITIALIZATION_FAILED", "initialization of an object could not be completed"},
	vk.ErrorDeviceLost:                  {"VK_ERROR_DEVICE_LOST", "the logical or physical device has been lost"},
	vk.ErrorMemoryMapFailed:             {"VK_ERROR_MEMORY_MAP_FAILED", "mapping of a memory object has failed"},
	vk.ErrorLayerNotPresent:             {"VK_ERROR_LAYER_NOT_PRESENT", "a requested layer is not present or could not be loaded"},
	vk.ErrorExtensionNotPresent:         {"VK_ERROR_EXTENSION_NOT_PRESENT", "a requested extension is not supported"},
	vk.ErrorFeatureNotPresent:           {"VK_ERROR_FEATURE_NOT_PRESENT", "a requested feature is not supported"},
	vk.ErrorIncompatibleDriver:          {"VK_ERROR_INCOMPATIBLE_DRIVER", "the requested Vulkan version is not supported by the driver"},
	vk.ErrorTooManyObjects:              {"VK_ERROR_TOO_MANY_OBJECTS", "too many objects of the type have already been created"},
	vk.ErrorFormatNotSupported:          {"VK_ERROR_FORMAT_NOT_SUPPORTED", "a requested format is not supported on this device"},
	vk.ErrorFragmentedPool:              {"VK_ERROR_FRAGMENTED_POOL", "a pool allocation has failed due to fragmentation"},
	vk.ErrorSurfaceLost:                 {"VK_ERROR_SURFACE_LOST_KHR", "a surface is no longer available"},
	vk.ErrorNativeWindowInUse:           {"VK_ERROR_NATIVE_WINDOW_IN_USE_KHR", "the window is already in use by Vulkan or another API"},
	vk.ErrorOutOfDate:                   {"VK_ERROR_OUT_OF_DATE_KHR", "the surface changed and the swapchain must be recreated"},
	vk.ErrorIncompatibleDisplay:         {"VK_ERROR_INCOMPATIBLE_DISPLAY_KHR", "the display cannot share the swapchain images"},
	vk.ErrorInvalidShaderNv:             {"VK_ERROR_INVALID_SHADER_NV", "one or more shaders failed to compile or link"},
	vk.ErrorOutOfPoolMemory:             {"VK_ERROR_OUT_OF_POOL_MEMORY", "a pool memory allocation has failed"},
	vk.ErrorInvalidExternalHandle:       {"VK_ERROR_INVALID_EXTERNAL_HANDLE", "an external handle is not valid for its type"},
	vk.ErrorFragmentation:               {"VK_ERROR_FRAGMENTATION", "descriptor pool creation failed due to fragmentation"},
	vk.ErrorInvalidDeviceAddress:        {"VK_ERROR_INVALID_DEVICE_ADDRESS_EXT", "the requested buffer address is not available"},
	vk.ErrorFullScreenExclusiveModeLost: {"VK_ERROR_FULL_SCREEN_EXCLUSIVE_MODE_LOST_EXT", "exclusive full-screen access was lost"},
	vk.ErrorUnknown:                     {"VK_ERROR_UNKNOWN", "an unknown error has occurred"},
}

// VulkanResultString names a result, with its description when extended is
// set.
func VulkanResultString(result vk.Result, extended bool) string {
	info, ok := resultInfos[result]
	if !ok {
		return fmt.Sprintf("VkResult(%d)", int32(result))
	}
	if !extended {
		return info.name
	}
	return info.name + ": " + info.desc
}

// VulkanSafeString terminates s with a NUL, as the bindings pass strings
// straight to C.
func VulkanSafeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = VulkanSafeString(s)
	}
	return out
}

// cString reads a fixed size, NUL terminated name as returned by the driver.
func cString(arr []byte) string {
	if i := bytes.IndexByte(arr, 0); i >= 0 {
		return string(arr[:i])
	}
	return string(arr)
}
