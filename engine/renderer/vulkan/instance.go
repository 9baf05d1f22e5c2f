package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/vkpresent/engine/core"
)

const ENGINE_NAME = "vkpresent"

var ENGINE_VERSION = uint32(vk.MakeVersion(1, 0, 0))

// The list of validation layers required when validation is on.
var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

// instanceCreate creates the instance and, with validation on, checks the
// layers and installs the debug report hook. It returns the enabled layers.
func instanceCreate(context *VulkanContext, appName string, appVersion uint32, validation bool) ([]string, error) {
	gpu := context.GPU

	// Obtain a list of required extensions
	extensions := append([]string(nil), context.Window.RequiredInstanceExtensions()...)

	var layers []string
	if validation {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
		layers = validationLayers

		core.LogInfo("Validation layers enabled. Enumerating...")
		available, res := gpu.InstanceLayers()
		if res != vk.Success {
			return nil, errors.Newf("failed to enumerate instance layers: %s", VulkanResultString(res, false))
		}
		// Verify all required layers are available.
		for _, required := range layers {
			core.LogInfo("Searching for layer: %s...", required)
			if !slices.Contains(available, required) {
				return nil, errors.Wrapf(core.ErrLayerMissing, "%s", required)
			}
			core.LogInfo("Found.")
		}
		core.LogInfo("All required validation layers are present.")
	}

	for _, extension := range extensions {
		core.LogDebug("Required extension: %s", extension)
	}

	instance, res := gpu.CreateInstance(InstanceInfo{
		ApplicationName:    appName,
		ApplicationVersion: appVersion,
		EngineName:         ENGINE_NAME,
		EngineVersion:      ENGINE_VERSION,
		APIVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		Extensions:         extensions,
		Layers:             layers,
	})
	if res != vk.Success {
		return nil, errors.Newf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
	}
	context.Instance = instance
	core.LogInfo("Vulkan Instance created.")

	if validation {
		core.LogDebug("Creating Vulkan debugger...")
		flags := vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit)
		callback, res := gpu.CreateDebugCallback(instance, flags, dbgCallbackFunc)
		if res != vk.Success {
			return nil, errors.Newf("vk.CreateDebugReportCallback failed with %s", VulkanResultString(res, false))
		}
		context.debugCallback = callback
		core.LogDebug("Vulkan debugger created.")
	}

	return layers, nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, layerPrefix string, code int32, message string) {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", layerPrefix, code, message)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", layerPrefix, code, message)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", layerPrefix, code, message)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", layerPrefix, code, message)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", layerPrefix, code, message)
	}
}
