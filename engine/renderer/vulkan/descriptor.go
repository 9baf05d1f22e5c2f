package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// Combined image samplers reserved for textures registered through LoadImage,
// on top of the per-image sets the UI backend allocates.
const maxUserTextures uint32 = 64

// descriptorPoolCreate sizes the pool for the UI backend: one uniform buffer
// and one combined image sampler per swapchain image, plus the user texture budget.
func descriptorPoolCreate(context *VulkanContext, imageCount uint32) (DescriptorPool, error) {
	sizes := []vk.DescriptorPoolSize{
		{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: imageCount,
		},
		{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: imageCount + maxUserTextures,
		},
	}
	pool, res := context.GPU.CreateDescriptorPool(
		context.Device.LogicalDevice,
		vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		imageCount+maxUserTextures,
		sizes,
	)
	if res != vk.Success {
		return 0, errors.Newf("failed to create descriptor pool: %s", VulkanResultString(res, false))
	}
	return pool, nil
}
