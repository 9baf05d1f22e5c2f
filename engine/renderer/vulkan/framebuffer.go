package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

type VulkanFramebuffer struct {
	Handle      Framebuffer
	Attachments []ImageView
	Renderpass  *VulkanRenderpass
}

func FramebufferCreate(context *VulkanContext, renderpass *VulkanRenderpass, width uint32, height uint32, attachments []ImageView) (*VulkanFramebuffer, error) {
	outFramebuffer := &VulkanFramebuffer{
		// Take a copy of the attachments.
		Attachments: append([]ImageView(nil), attachments...),
		Renderpass:  renderpass,
	}

	handle, res := context.GPU.CreateFramebuffer(context.Device.LogicalDevice, renderpass.Handle, outFramebuffer.Attachments, width, height)
	if res != vk.Success {
		return nil, errors.Newf("failed to create framebuffer: %s", VulkanResultString(res, false))
	}
	outFramebuffer.Handle = handle
	return outFramebuffer, nil
}

func (vfb *VulkanFramebuffer) Destroy(context *VulkanContext) {
	if vfb.Handle != 0 {
		context.GPU.DestroyFramebuffer(context.logicalDevice(), vfb.Handle)
	}
	vfb.Attachments = nil
	vfb.Handle = 0
	vfb.Renderpass = nil
}
