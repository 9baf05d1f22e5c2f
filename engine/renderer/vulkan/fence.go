package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkpresent/engine/core"
)

type VulkanFence struct {
	Handle     Fence
	IsSignaled bool
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	handle, res := context.GPU.CreateFence(context.Device.LogicalDevice, createSignaled)
	if res != vk.Success {
		return nil, errors.Newf("failed to create fence: %s", VulkanResultString(res, false))
	}
	fence.Handle = handle
	return fence, nil
}

func (vf *VulkanFence) FenceDestroy(context *VulkanContext) {
	if vf.Handle != 0 {
		context.GPU.DestroyFence(context.Device.LogicalDevice, vf.Handle)
		vf.Handle = 0
	}
	vf.IsSignaled = false
}

// FenceWait blocks until the fence is signaled or the timeout expires.
func (vf *VulkanFence) FenceWait(context *VulkanContext, timeoutNs uint64) bool {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return true
	}
	result := context.GPU.WaitForFences(context.Device.LogicalDevice, []Fence{vf.Handle}, true, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return true
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	case vk.ErrorOutOfHostMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_HOST_MEMORY.")
	case vk.ErrorOutOfDeviceMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_DEVICE_MEMORY.")
	default:
		core.LogError("vk_fence_wait - An unknown error has occurred.")
	}
	return false
}

func (vf *VulkanFence) FenceReset(context *VulkanContext) error {
	if vf.IsSignaled {
		if res := context.GPU.ResetFences(context.Device.LogicalDevice, []Fence{vf.Handle}); res != vk.Success {
			return errors.Newf("failed to reset fence: %s", VulkanResultString(res, false))
		}
		vf.IsSignaled = false
	}
	return nil
}

