package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkpresent/engine/core"
)

// InvalidMemoryIndex is returned by FindMemoryIndex when no memory type matches.
const InvalidMemoryIndex int32 = -1

// VulkanContext owns every GPU object of a presenter session. Objects are
// created in Open and released once in Shutdown; a null handle means "not
// created" so partial teardown is always safe.
type VulkanContext struct {
	GPU    GPU
	Window Window

	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32
	// Set by the window's resize callback, consumed after present.
	FramebufferResized bool

	Instance      Instance
	Surface       Surface
	debugCallback DebugCallback

	Device *VulkanDevice

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass
	DescriptorPool DescriptorPool

	// One slot per swapchain image.
	Frames []*FrameSlot

	ImageIndex   uint32
	CurrentFrame uint32

	RecreatingSwapchain bool
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has
// every bit of propertyFlags, or InvalidMemoryIndex.
func FindMemoryIndex(memoryTypes []vk.MemoryType, typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	for i := 0; i < len(memoryTypes) && i < 32; i++ {
		// Check each memory type to see if its bit is set to 1.
		if typeFilter&(1<<uint32(i)) != 0 && memoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return InvalidMemoryIndex
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	return FindMemoryIndex(vc.Device.MemoryTypes, typeFilter, propertyFlags)
}

func (vc *VulkanContext) logicalDevice() Device {
	if vc.Device == nil {
		return 0
	}
	return vc.Device.LogicalDevice
}
