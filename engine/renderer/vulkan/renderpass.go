package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

type VulkanRenderpass struct {
	Handle     RenderPass
	X, Y, W, H float32
	R, G, B, A float32
}

// RenderpassCreate builds the presentation render pass: one color attachment
// in the swapchain format, cleared on load, stored, and handed to the
// presentation engine at the end.
func RenderpassCreate(context *VulkanContext, format vk.Format, x, y, w, h, r, g, b, a float32) (*VulkanRenderpass, error) {
	outRenderpass := &VulkanRenderpass{
		X: x,
		Y: y,
		W: w,
		H: h,
		R: r,
		G: g,
		B: b,
		A: a,
	}

	// Color attachment
	colorAttachment := vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,  // Do not expect any particular layout before render pass starts.
		FinalLayout:    vk.ImageLayoutPresentSrc, // Transitioned to after the render pass
	}

	colorAttachmentReference := vk.AttachmentReference{
		Attachment: 0, // Attachment description array index
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	handle, res := context.GPU.CreateRenderPass(context.Device.LogicalDevice, RenderPassInfo{
		Attachments:  []vk.AttachmentDescription{colorAttachment},
		ColorRefs:    []vk.AttachmentReference{colorAttachmentReference},
		Dependencies: []vk.SubpassDependency{dependency},
	})
	if res != vk.Success {
		return nil, errors.Newf("failed to create render pass: %s", VulkanResultString(res, true))
	}
	outRenderpass.Handle = handle
	return outRenderpass, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != 0 {
		context.GPU.DestroyRenderPass(context.logicalDevice(), vr.Handle)
		vr.Handle = 0
	}
}

func (vr *VulkanRenderpass) RenderpassBegin(context *VulkanContext, commandBuffer *VulkanCommandBuffer, frameBuffer Framebuffer) {
	context.GPU.CmdBeginRenderPass(commandBuffer.Handle, RenderPassBegin{
		RenderPass:  vr.Handle,
		Framebuffer: frameBuffer,
		Area: vk.Rect2D{
			Offset: vk.Offset2D{
				X: int32(vr.X),
				Y: int32(vr.Y),
			},
			Extent: vk.Extent2D{
				Width:  uint32(vr.W),
				Height: uint32(vr.H),
			},
		},
		ClearColor: [4]float32{vr.R, vr.G, vr.B, vr.A},
	})
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) RenderpassEnd(context *VulkanContext, commandBuffer *VulkanCommandBuffer) {
	context.GPU.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
