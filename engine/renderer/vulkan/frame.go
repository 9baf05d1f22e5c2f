package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkpresent/engine/core"
)

// DrawFrame records the UI draw data into the current slot's command buffer,
// submits it and presents the acquired image. An out-of-date swapchain is
// rebuilt and the frame is dropped without an error. Errors marked
// core.ErrFrameSkipped leave the session usable for the next frame.
func (vr *VulkanRenderer) DrawFrame(data DrawData) error {
	if vr.closed {
		return errors.New("renderer is shut down")
	}
	if vr.broken != nil {
		return vr.broken
	}
	context := vr.context

	// Check if recreating swap chain and boot out.
	if context.RecreatingSwapchain {
		core.LogInfo("Recreating swapchain, booting.")
		return nil
	}

	slot := context.Frames[context.CurrentFrame]

	// Acquire the next image from the swap chain. The image-available semaphore
	// is waited on by the submission below.
	imageIndex, res := context.Swapchain.AcquireNextImageIndex(context, math.MaxUint64, slot.ImageAvailable)
	switch res {
	case vk.Success, vk.Suboptimal:
	case vk.ErrorOutOfDate:
		return vr.recreateSwapchain()
	default:
		return errors.Newf("failed to acquire swapchain image: %s", VulkanResultString(res, true))
	}
	context.ImageIndex = imageIndex

	// Wait for the execution of the current frame to complete. The fence being free will allow this one to move on.
	if !slot.InFlight.FenceWait(context, math.MaxUint64) {
		return errors.New("in-flight fence wait failure")
	}

	recordErr := vr.recordFrame(slot, imageIndex, data)

	// Reset the fence for use on the next frame
	if err := slot.InFlight.FenceReset(context); err != nil {
		return vr.recoverFailedSubmit(slot, err)
	}

	submit := SubmitInfo{
		WaitSemaphores: []Semaphore{slot.ImageAvailable},
		// Color attachment writes wait on acquisition, one frame is presented at a time.
		WaitStages:       []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		SignalSemaphores: []Semaphore{slot.RenderFinished},
	}
	if recordErr == nil {
		submit.CommandBuffers = []CommandBuffer{slot.Command.Handle}
	} else {
		// The semaphores and the fence still have to move, so an empty batch is submitted.
		core.LogWarn("Frame %d failed to record, presenting an empty batch: %s", context.CurrentFrame, recordErr)
	}

	if res := context.GPU.QueueSubmit(context.Device.GraphicsQueue, []SubmitInfo{submit}, slot.InFlight.Handle); res != vk.Success {
		return vr.recoverFailedSubmit(slot, errors.Newf("vkQueueSubmit failed with result: %s", VulkanResultString(res, true)))
	}
	if recordErr == nil {
		slot.Command.UpdateSubmitted()
	}

	// Give the image back to the swapchain.
	res = context.Swapchain.Present(context, slot.RenderFinished, imageIndex)
	if res == vk.ErrorOutOfDate || res == vk.Suboptimal || context.FramebufferResized {
		context.FramebufferResized = false
		if err := vr.recreateSwapchain(); err != nil {
			return err
		}
		return vr.frameResult(recordErr)
	}

	vr.advanceFrame()
	if res != vk.Success {
		return errors.Newf("failed to present swapchain image: %s", VulkanResultString(res, true))
	}
	return vr.frameResult(recordErr)
}

func (vr *VulkanRenderer) recordFrame(slot *FrameSlot, imageIndex uint32, data DrawData) error {
	context := vr.context
	cb := slot.Command
	cb.Reset()
	if err := cb.Begin(context, false, false, false); err != nil {
		return err
	}

	renderpass := context.MainRenderpass
	renderpass.RenderpassBegin(context, cb, context.Swapchain.Framebuffers[imageIndex].Handle)
	vr.ui.RenderDrawData(data, cb.Handle)
	renderpass.RenderpassEnd(context, cb)

	return cb.End(context)
}

// recoverFailedSubmit puts the slot back into a usable state after its batch
// never reached the queue. Neither the fence nor the image-available semaphore
// will ever be consumed, so both are replaced. The acquired image is not presented.
func (vr *VulkanRenderer) recoverFailedSubmit(slot *FrameSlot, submitErr error) error {
	context := vr.context
	core.LogError("Frame %d not submitted: %s", context.CurrentFrame, submitErr)

	if res := context.GPU.DeviceWaitIdle(context.Device.LogicalDevice); res != vk.Success {
		return errors.Wrapf(submitErr, "device wait idle failed: %s", VulkanResultString(res, false))
	}
	if err := slot.replaceFence(context); err != nil {
		return errors.CombineErrors(submitErr, err)
	}
	if err := slot.replaceImageAvailable(context); err != nil {
		return errors.CombineErrors(submitErr, err)
	}
	slot.Command.Reset()

	vr.advanceFrame()
	vr.metrics.Skipped++
	return errors.Mark(submitErr, core.ErrFrameSkipped)
}

func (vr *VulkanRenderer) frameResult(recordErr error) error {
	if recordErr != nil {
		vr.metrics.Skipped++
		return errors.Mark(errors.Wrap(recordErr, "frame recording failed"), core.ErrFrameSkipped)
	}
	vr.metrics.TotalFrames++
	return nil
}

func (vr *VulkanRenderer) advanceFrame() {
	vr.context.CurrentFrame = (vr.context.CurrentFrame + 1) % uint32(len(vr.context.Frames))
}

// waitForDrawableSize blocks on window events while the framebuffer has a
// zero dimension, e.g. while the window is minimized.
func (vr *VulkanRenderer) waitForDrawableSize() {
	context := vr.context
	width, height := context.Window.FramebufferSize()
	for width == 0 || height == 0 {
		context.Window.WaitEvents()
		width, height = context.Window.FramebufferSize()
	}
	context.FramebufferWidth = uint32(width)
	context.FramebufferHeight = uint32(height)
}

// recreateSwapchain rebuilds the swapchain and everything sized from it. The
// render pass and the descriptor pool survive.
func (vr *VulkanRenderer) recreateSwapchain() error {
	context := vr.context

	// If already being recreated, do not try again.
	if context.RecreatingSwapchain {
		core.LogDebug("recreate_swapchain called when already recreating. Booting.")
		return core.ErrSwapchainBooting
	}
	context.RecreatingSwapchain = true
	defer func() {
		// Clear the recreating flag.
		context.RecreatingSwapchain = false
	}()

	vr.waitForDrawableSize()

	// Wait for any operations to complete.
	if res := context.GPU.DeviceWaitIdle(context.Device.LogicalDevice); res != vk.Success {
		return errors.Newf("failed to wait for device before swapchain recreation: %s", VulkanResultString(res, true))
	}

	// cleanup swapchain
	freeCommandBuffers(context)
	previousCount := context.Swapchain.ImageCount
	context.Swapchain.SwapchainDestroy(context)
	context.Swapchain = nil

	if err := vr.rebuildSwapchain(previousCount); err != nil {
		// The old generation is gone, only Shutdown can run from here.
		vr.broken = errors.Mark(errors.Wrap(err, "swapchain recreation"), core.ErrSetup)
		core.LogError("Renderer unusable: %s", vr.broken)
		return vr.broken
	}

	context.CurrentFrame = 0
	vr.metrics.Recreations++
	core.LogInfo("Swapchain recreated: %dx%d.", context.Swapchain.Extent.Width, context.Swapchain.Extent.Height)
	return nil
}

func (vr *VulkanRenderer) rebuildSwapchain(previousCount uint32) error {
	context := vr.context
	swapchain, err := SwapchainCreate(context)
	if err != nil {
		return err
	}
	context.Swapchain = swapchain

	renderpass := context.MainRenderpass
	renderpass.X = 0
	renderpass.Y = 0
	renderpass.W = float32(swapchain.Extent.Width)
	renderpass.H = float32(swapchain.Extent.Height)

	if err := swapchain.RegenerateFramebuffers(context, renderpass); err != nil {
		return err
	}

	if swapchain.ImageCount != previousCount {
		core.LogDebug("Swapchain image count changed from %d to %d, rebuilding frame slots.", previousCount, swapchain.ImageCount)
		destroyFrameSlots(context)
		if err := createFrameSlots(context, swapchain.ImageCount); err != nil {
			return err
		}
	}
	return createCommandBuffers(context)
}
