package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/vkpresent/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     PhysicalDevice
	LogicalDevice      Device
	SwapchainSupport   *VulkanSwapchainSupportInfo
	GraphicsQueueIndex int32
	PresentQueueIndex  int32

	GraphicsQueue Queue
	PresentQueue  Queue

	GraphicsCommandPool CommandPool

	Properties  PhysicalDeviceInfo
	Features    vk.PhysicalDeviceFeatures
	MemoryTypes []vk.MemoryType
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
}

// Family indices are -1 when the device has no such family.
type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

// Distinct returns the family indices that need their own queue, graphics first.
func (q VulkanPhysicalDeviceQueueFamilyInfo) Distinct() []uint32 {
	indices := []uint32{uint32(q.GraphicsFamilyIndex)}
	if q.PresentFamilyIndex != q.GraphicsFamilyIndex {
		indices = append(indices, uint32(q.PresentFamilyIndex))
	}
	return indices
}

func defaultDeviceRequirements() VulkanPhysicalDeviceRequirements {
	return VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		SamplerAnisotropy:    true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}
}

func DeviceQuerySwapchainSupport(gpu GPU, physicalDevice PhysicalDevice, surface Surface) (*VulkanSwapchainSupportInfo, error) {
	supportInfo := &VulkanSwapchainSupportInfo{}

	capabilities, res := gpu.SurfaceCapabilities(physicalDevice, surface)
	if res != vk.Success {
		return nil, errors.Newf("failed to get surface capabilities: %s", VulkanResultString(res, false))
	}
	supportInfo.Capabilities = capabilities

	formats, res := gpu.SurfaceFormats(physicalDevice, surface)
	if res != vk.Success {
		return nil, errors.Newf("failed to get surface formats: %s", VulkanResultString(res, false))
	}
	supportInfo.Formats = formats

	presentModes, res := gpu.SurfacePresentModes(physicalDevice, surface)
	if res != vk.Success {
		return nil, errors.Newf("failed to get surface present modes: %s", VulkanResultString(res, false))
	}
	supportInfo.PresentModes = presentModes

	return supportInfo, nil
}

// PhysicalDeviceMeetsRequirements checks queue families, extensions, surface
// support and features. On success it returns the resolved families and the
// swapchain support snapshot taken during the check.
func PhysicalDeviceMeetsRequirements(
	gpu GPU,
	device PhysicalDevice,
	surface Surface,
	requirements *VulkanPhysicalDeviceRequirements,
) (VulkanPhysicalDeviceQueueFamilyInfo, *VulkanSwapchainSupportInfo, bool) {
	queueInfo := VulkanPhysicalDeviceQueueFamilyInfo{
		GraphicsFamilyIndex: -1,
		PresentFamilyIndex:  -1,
	}
	properties := gpu.PhysicalDeviceInfo(device)

	queueFamilies := gpu.QueueFamilies(device)
	for i := range queueFamilies {
		if queueInfo.GraphicsFamilyIndex < 0 && queueFamilies[i].QueueCount > 0 &&
			vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit != 0 {
			queueInfo.GraphicsFamilyIndex = int32(i)
		}

		if queueInfo.PresentFamilyIndex < 0 {
			supportsPresent, res := gpu.SurfaceSupport(device, uint32(i), surface)
			if res != vk.Success {
				core.LogWarn("Surface support query failed on '%s': %s", properties.Name, VulkanResultString(res, false))
				return queueInfo, nil, false
			}
			if supportsPresent {
				queueInfo.PresentFamilyIndex = int32(i)
			}
		}

		if queueInfo.GraphicsFamilyIndex >= 0 && queueInfo.PresentFamilyIndex >= 0 {
			break
		}
	}

	core.LogDebug("Graphics | Present | Name")
	core.LogDebug("%8d | %7d | %s", queueInfo.GraphicsFamilyIndex, queueInfo.PresentFamilyIndex, properties.Name)

	if requirements.Graphics && queueInfo.GraphicsFamilyIndex < 0 {
		core.LogInfo("Device '%s' has no graphics queue. Skipping.", properties.Name)
		return queueInfo, nil, false
	}
	if requirements.Present && queueInfo.PresentFamilyIndex < 0 {
		core.LogInfo("Device '%s' cannot present to the surface. Skipping.", properties.Name)
		return queueInfo, nil, false
	}

	if len(requirements.DeviceExtensionNames) > 0 {
		available, res := gpu.DeviceExtensions(device)
		if res != vk.Success {
			core.LogWarn("Extension query failed on '%s': %s", properties.Name, VulkanResultString(res, false))
			return queueInfo, nil, false
		}
		for _, required := range requirements.DeviceExtensionNames {
			if !slices.Contains(available, required) {
				core.LogInfo("Required extension not found: '%s', skipping device.", required)
				return queueInfo, nil, false
			}
		}
	}

	swapchainSupport, err := DeviceQuerySwapchainSupport(gpu, device, surface)
	if err != nil {
		core.LogWarn("%s", err)
		return queueInfo, nil, false
	}
	if len(swapchainSupport.Formats) < 1 || len(swapchainSupport.PresentModes) < 1 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return queueInfo, nil, false
	}

	if requirements.SamplerAnisotropy {
		features := gpu.Features(device)
		if features.SamplerAnisotropy != vk.True {
			core.LogInfo("Device does not support samplerAnisotropy, skipping.")
			return queueInfo, nil, false
		}
	}

	return queueInfo, swapchainSupport, true
}

// SelectPhysicalDevice picks the first suitable device in enumeration order.
func SelectPhysicalDevice(context *VulkanContext, requirements VulkanPhysicalDeviceRequirements) error {
	gpu := context.GPU

	physicalDevices, res := gpu.PhysicalDevices(context.Instance)
	if res != vk.Success {
		return errors.Newf("failed to enumerate physical devices: %s", VulkanResultString(res, true))
	}
	if len(physicalDevices) == 0 {
		return errors.Wrap(core.ErrNoSuitableDevice, "no devices which support Vulkan were found")
	}

	for _, candidate := range physicalDevices {
		queueInfo, support, ok := PhysicalDeviceMeetsRequirements(gpu, candidate, context.Surface, &requirements)
		if !ok {
			continue
		}

		properties := gpu.PhysicalDeviceInfo(candidate)
		core.LogInfo("Selected device: '%s'.", properties.Name)
		switch properties.Type {
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
			vk.Version(properties.DriverVersion).Major(),
			vk.Version(properties.DriverVersion).Minor(),
			vk.Version(properties.DriverVersion).Patch(),
		)
		core.LogInfo(
			"Vulkan API version: %d.%d.%d",
			vk.Version(properties.APIVersion).Major(),
			vk.Version(properties.APIVersion).Minor(),
			vk.Version(properties.APIVersion).Patch(),
		)

		context.Device = &VulkanDevice{
			PhysicalDevice:     candidate,
			SwapchainSupport:   support,
			GraphicsQueueIndex: queueInfo.GraphicsFamilyIndex,
			PresentQueueIndex:  queueInfo.PresentFamilyIndex,
			Properties:         properties,
			Features:           gpu.Features(candidate),
			MemoryTypes:        gpu.MemoryTypes(candidate),
		}
		core.LogInfo("Physical device selected.")
		return nil
	}

	return errors.Wrap(core.ErrNoSuitableDevice, "no physical devices were found which meet the requirements")
}

// DeviceCreate builds the logical device, fetches its queues and creates the
// graphics command pool. The device must already be selected.
func DeviceCreate(context *VulkanContext, layers []string) error {
	gpu := context.GPU
	device := context.Device

	core.LogInfo("Creating logical device...")

	queueInfo := VulkanPhysicalDeviceQueueFamilyInfo{
		GraphicsFamilyIndex: device.GraphicsQueueIndex,
		PresentFamilyIndex:  device.PresentQueueIndex,
	}
	logical, res := gpu.CreateDevice(device.PhysicalDevice, DeviceInfo{
		QueueFamilies:     queueInfo.Distinct(),
		Extensions:        []string{vk.KhrSwapchainExtensionName},
		Layers:            layers,
		SamplerAnisotropy: true,
	})
	if res != vk.Success {
		return errors.Newf("failed to create logical device: %s", VulkanResultString(res, true))
	}
	device.LogicalDevice = logical
	core.LogInfo("Logical device created.")

	device.GraphicsQueue = gpu.GetQueue(logical, uint32(device.GraphicsQueueIndex), 0)
	device.PresentQueue = gpu.GetQueue(logical, uint32(device.PresentQueueIndex), 0)
	core.LogInfo("Queues obtained.")

	pool, res := gpu.CreateCommandPool(
		logical,
		uint32(device.GraphicsQueueIndex),
		vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	)
	if res != vk.Success {
		return errors.Newf("failed to create graphics command pool: %s", VulkanResultString(res, true))
	}
	device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	if device == nil {
		return
	}

	// Unset queues
	device.GraphicsQueue = 0
	device.PresentQueue = 0

	if device.GraphicsCommandPool != 0 {
		core.LogInfo("Destroying command pools...")
		context.GPU.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool)
		device.GraphicsCommandPool = 0
	}

	if device.LogicalDevice != 0 {
		core.LogInfo("Destroying logical device...")
		context.GPU.DestroyDevice(device.LogicalDevice)
		device.LogicalDevice = 0
	}

	// Physical devices are not destroyed.
	device.PhysicalDevice = 0
	device.SwapchainSupport = nil
	device.GraphicsQueueIndex = -1
	device.PresentQueueIndex = -1
}
