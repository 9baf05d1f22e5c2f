package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkpresent/engine/core"
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Handle      Swapchain
	ImageCount  uint32
	Images      []Image
	Views       []ImageView

	// framebuffers used for on-screen rendering, index-aligned with Images.
	Framebuffers []*VulkanFramebuffer
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// chooseSurfaceFormat prefers 8-bit BGRA sRGB with a non-linear sRGB color
// space and otherwise takes the first format offered.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// choosePresentMode prefers mailbox. FIFO is always available and is used
// when mailbox is missing or when forceFifo is set.
func choosePresentMode(modes []vk.PresentMode, forceFifo bool) vk.PresentMode {
	if forceFifo {
		return vk.PresentModeFifo
	}
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

func chooseExtent(capabilities vk.SurfaceCapabilities, framebufferWidth, framebufferHeight uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	// Clamp to the value allowed by the GPU.
	min := capabilities.MinImageExtent
	max := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  Clamp(framebufferWidth, min.Width, max.Width),
		Height: Clamp(framebufferHeight, min.Height, max.Height),
	}
}

// chooseImageCount asks for one image more than the minimum; a max of zero
// means unbounded.
func chooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

func chooseSharingMode(graphicsFamily, presentFamily int32) (vk.SharingMode, []uint32) {
	if graphicsFamily != presentFamily {
		return vk.SharingModeConcurrent, []uint32{uint32(graphicsFamily), uint32(presentFamily)}
	}
	return vk.SharingModeExclusive, nil
}

// SwapchainCreate queries the surface again and builds the swapchain with its
// images and views. Framebuffers are built separately once the render pass exists.
func SwapchainCreate(context *VulkanContext) (*VulkanSwapchain, error) {
	gpu := context.GPU
	device := context.Device

	support, err := DeviceQuerySwapchainSupport(gpu, device.PhysicalDevice, context.Surface)
	if err != nil {
		return nil, err
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return nil, errors.New("surface reports no formats or present modes")
	}
	device.SwapchainSupport = support

	swapchain := &VulkanSwapchain{
		ImageFormat: chooseSurfaceFormat(support.Formats),
		PresentMode: choosePresentMode(support.PresentModes, vsyncForced),
		Extent:      chooseExtent(support.Capabilities, context.FramebufferWidth, context.FramebufferHeight),
	}
	imageCount := chooseImageCount(support.Capabilities)
	sharingMode, families := chooseSharingMode(device.GraphicsQueueIndex, device.PresentQueueIndex)

	handle, res := gpu.CreateSwapchain(device.LogicalDevice, SwapchainInfo{
		Surface:       context.Surface,
		MinImageCount: imageCount,
		Format:        swapchain.ImageFormat.Format,
		ColorSpace:    swapchain.ImageFormat.ColorSpace,
		Extent:        swapchain.Extent,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		SharingMode:   sharingMode,
		QueueFamilies: families,
		PreTransform:  support.Capabilities.CurrentTransform,
		PresentMode:   swapchain.PresentMode,
	})
	if res != vk.Success {
		return nil, errors.Newf("failed to create swapchain: %s", VulkanResultString(res, true))
	}
	swapchain.Handle = handle

	images, res := gpu.SwapchainImages(device.LogicalDevice, handle)
	if res != vk.Success {
		swapchain.destroy(context)
		return nil, errors.Newf("failed to get swapchain images: %s", VulkanResultString(res, true))
	}
	swapchain.Images = images
	swapchain.ImageCount = uint32(len(images))

	// Views
	swapchain.Views = make([]ImageView, 0, len(images))
	for _, image := range images {
		view, res := gpu.CreateImageView(device.LogicalDevice, ImageViewInfo{
			Image:  image,
			Format: swapchain.ImageFormat.Format,
			Aspect: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		})
		if res != vk.Success {
			swapchain.destroy(context)
			return nil, errors.Newf("failed to create swapchain image view: %s", VulkanResultString(res, true))
		}
		swapchain.Views = append(swapchain.Views, view)
	}

	core.LogInfo("Swapchain created: %dx%d, %d images, present mode %d.",
		swapchain.Extent.Width, swapchain.Extent.Height, swapchain.ImageCount, swapchain.PresentMode)

	return swapchain, nil
}

// RegenerateFramebuffers builds one framebuffer per swapchain view for the given render pass.
func (vs *VulkanSwapchain) RegenerateFramebuffers(context *VulkanContext, renderpass *VulkanRenderpass) error {
	vs.Framebuffers = make([]*VulkanFramebuffer, 0, len(vs.Views))
	for _, view := range vs.Views {
		framebuffer, err := FramebufferCreate(context, renderpass, vs.Extent.Width, vs.Extent.Height, []ImageView{view})
		if err != nil {
			vs.DestroyFramebuffers(context)
			return err
		}
		vs.Framebuffers = append(vs.Framebuffers, framebuffer)
	}
	return nil
}

func (vs *VulkanSwapchain) DestroyFramebuffers(context *VulkanContext) {
	for _, framebuffer := range vs.Framebuffers {
		framebuffer.Destroy(context)
	}
	vs.Framebuffers = nil
}

// destroy releases the views and the swapchain. The images belong to the
// swapchain and go away with it.
func (vs *VulkanSwapchain) destroy(context *VulkanContext) {
	device := context.logicalDevice()
	for _, view := range vs.Views {
		context.GPU.DestroyImageView(device, view)
	}
	vs.Views = nil
	vs.Images = nil
	vs.ImageCount = 0

	if vs.Handle != 0 {
		context.GPU.DestroySwapchain(device, vs.Handle)
		vs.Handle = 0
	}
}

// SwapchainDestroy releases framebuffers, views and the swapchain itself.
func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	vs.DestroyFramebuffers(context)
	vs.destroy(context)
}

func (vs *VulkanSwapchain) AcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailable Semaphore) (uint32, vk.Result) {
	return context.GPU.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailable)
}

func (vs *VulkanSwapchain) Present(context *VulkanContext, renderComplete Semaphore, imageIndex uint32) vk.Result {
	return context.GPU.QueuePresent(context.Device.PresentQueue, vs.Handle, imageIndex, []Semaphore{renderComplete})
}
