package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

// AllocateCommandBuffers allocates count primary command buffers from pool.
func AllocateCommandBuffers(context *VulkanContext, pool CommandPool, count uint32) ([]*VulkanCommandBuffer, error) {
	handles, res := context.GPU.AllocateCommandBuffers(context.Device.LogicalDevice, pool, vk.CommandBufferLevelPrimary, count)
	if res != vk.Success {
		return nil, errors.Newf("failed to allocate %d command buffers: %s", count, VulkanResultString(res, false))
	}
	buffers := make([]*VulkanCommandBuffer, len(handles))
	for i, handle := range handles {
		buffers[i] = &VulkanCommandBuffer{
			Handle: handle,
			State:  COMMAND_BUFFER_STATE_READY,
		}
	}
	return buffers, nil
}

func NewVulkanCommandBuffer(context *VulkanContext, pool CommandPool) (*VulkanCommandBuffer, error) {
	buffers, err := AllocateCommandBuffers(context, pool, 1)
	if err != nil {
		return nil, err
	}
	return buffers[0], nil
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool CommandPool) {
	if v.Handle != 0 {
		context.GPU.FreeCommandBuffers(context.Device.LogicalDevice, pool, []CommandBuffer{v.Handle})
	}
	v.Handle = 0
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(
	context *VulkanContext,
	isSingleUse,
	isRenderpassContinue,
	isSimultaneousUse bool) error {

	var flags vk.CommandBufferUsageFlags
	if isSingleUse {
		flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := context.GPU.BeginCommandBuffer(v.Handle, flags); res != vk.Success {
		return errors.Newf("failed to begin command buffer: %s", VulkanResultString(res, false))
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING

	return nil
}

func (v *VulkanCommandBuffer) End(context *VulkanContext) error {
	if res := context.GPU.EndCommandBuffer(v.Handle); res != vk.Success {
		return errors.Newf("failed to end command buffer: %s", VulkanResultString(res, false))
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset() {
	v.State = COMMAND_BUFFER_STATE_READY
}

// AllocateAndBeginSingleUse allocates a primary command buffer and begins
// recording it for one submission. Nothing is left allocated on failure.
func AllocateAndBeginSingleUse(context *VulkanContext, pool CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(context, pool)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(context, true, false, false); err != nil {
		cb.Free(context, pool)
		return nil, err
	}
	return cb, nil
}

// EndSingleUse ends recording, submits to queue, waits for the queue to go
// idle and frees the command buffer. The buffer is freed on every path.
func (v *VulkanCommandBuffer) EndSingleUse(context *VulkanContext, pool CommandPool, queue Queue) error {
	defer v.Free(context, pool)

	if err := v.End(context); err != nil {
		return err
	}

	submit := SubmitInfo{
		CommandBuffers: []CommandBuffer{v.Handle},
	}
	if res := context.GPU.QueueSubmit(queue, []SubmitInfo{submit}, 0); res != vk.Success {
		return errors.Newf("failed to submit single-use command buffer: %s", VulkanResultString(res, false))
	}
	v.UpdateSubmitted()

	// Wait for it to finish
	if res := context.GPU.QueueWaitIdle(queue); res != vk.Success {
		return errors.Newf("queue failed to wait in idle mode: %s", VulkanResultString(res, false))
	}

	return nil
}
