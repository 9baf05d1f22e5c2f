package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// FrameSlot is the set of objects one in-flight frame uses. Slot i's
// semaphores and fence are only touched while slot i is current.
type FrameSlot struct {
	ImageAvailable Semaphore
	RenderFinished Semaphore
	InFlight       *VulkanFence
	// Command is owned by the swapchain generation, not by the slot.
	Command *VulkanCommandBuffer
}

func newSemaphore(context *VulkanContext) (Semaphore, error) {
	semaphore, res := context.GPU.CreateSemaphore(context.Device.LogicalDevice)
	if res != vk.Success {
		return 0, errors.Newf("failed to create semaphore: %s", VulkanResultString(res, false))
	}
	return semaphore, nil
}

// createFrameSlots makes count slots, each with two semaphores and a fence
// created signaled so the first wait on it does not block.
func createFrameSlots(context *VulkanContext, count uint32) error {
	context.Frames = make([]*FrameSlot, 0, count)
	for i := uint32(0); i < count; i++ {
		slot := &FrameSlot{}
		context.Frames = append(context.Frames, slot)

		var err error
		if slot.ImageAvailable, err = newSemaphore(context); err != nil {
			return err
		}
		if slot.RenderFinished, err = newSemaphore(context); err != nil {
			return err
		}
		if slot.InFlight, err = NewFence(context, true); err != nil {
			return err
		}
	}
	return nil
}

// destroyFrameSlots releases semaphores and fences. Command buffers are
// released with the swapchain.
func destroyFrameSlots(context *VulkanContext) {
	device := context.logicalDevice()
	for _, slot := range context.Frames {
		if slot.ImageAvailable != 0 {
			context.GPU.DestroySemaphore(device, slot.ImageAvailable)
			slot.ImageAvailable = 0
		}
		if slot.RenderFinished != 0 {
			context.GPU.DestroySemaphore(device, slot.RenderFinished)
			slot.RenderFinished = 0
		}
		if slot.InFlight != nil {
			slot.InFlight.FenceDestroy(context)
			slot.InFlight = nil
		}
	}
	context.Frames = nil
}

// createCommandBuffers gives every slot a fresh primary command buffer.
func createCommandBuffers(context *VulkanContext) error {
	buffers, err := AllocateCommandBuffers(context, context.Device.GraphicsCommandPool, uint32(len(context.Frames)))
	if err != nil {
		return err
	}
	for i, slot := range context.Frames {
		slot.Command = buffers[i]
	}
	return nil
}

func freeCommandBuffers(context *VulkanContext) {
	for _, slot := range context.Frames {
		if slot.Command != nil {
			slot.Command.Free(context, context.Device.GraphicsCommandPool)
			slot.Command = nil
		}
	}
}

// replaceFence swaps slot's fence for a fresh signaled one. Used after a
// failed submission, when the old fence will never be signaled.
func (slot *FrameSlot) replaceFence(context *VulkanContext) error {
	fence, err := NewFence(context, true)
	if err != nil {
		return err
	}
	slot.InFlight.FenceDestroy(context)
	slot.InFlight = fence
	return nil
}

// replaceImageAvailable swaps the slot's image-available semaphore. A
// semaphore signaled by acquire but never waited on cannot be reused.
func (slot *FrameSlot) replaceImageAvailable(context *VulkanContext) error {
	semaphore, err := newSemaphore(context)
	if err != nil {
		return err
	}
	context.GPU.DestroySemaphore(context.Device.LogicalDevice, slot.ImageAvailable)
	slot.ImageAvailable = semaphore
	return nil
}
