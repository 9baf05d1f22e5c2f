package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkpresent/engine/core"
)

type VulkanImage struct {
	Handle Image
	Memory DeviceMemory
	View   ImageView
	Format vk.Format
	Width  uint32
	Height uint32
}

// ImageCreate creates a 2D single-mip image with bound memory. On failure
// nothing created here is left behind.
func ImageCreate(
	context *VulkanContext,
	width, height uint32,
	format vk.Format,
	tiling vk.ImageTiling,
	usage vk.ImageUsageFlags,
	memoryFlags vk.MemoryPropertyFlags,
) (image *VulkanImage, err error) {
	gpu := context.GPU
	device := context.Device.LogicalDevice

	handle, res := gpu.CreateImage(device, ImageInfo{
		Width:  width,
		Height: height,
		Format: format,
		Tiling: tiling,
		Usage:  usage,
	})
	if res != vk.Success {
		return nil, errors.Mark(errors.Newf("failed to create image: %s", VulkanResultString(res, false)), core.ErrResourceCreation)
	}
	defer func() {
		if err != nil {
			gpu.DestroyImage(device, handle)
		}
	}()

	requirements := gpu.ImageMemoryRequirements(device, handle)
	memoryType := context.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
	if memoryType == InvalidMemoryIndex {
		return nil, errors.Wrap(core.ErrNoMemoryType, "image memory")
	}

	memory, res := gpu.AllocateMemory(device, requirements.Size, uint32(memoryType))
	if res != vk.Success {
		return nil, errors.Mark(errors.Newf("failed to allocate image memory: %s", VulkanResultString(res, false)), core.ErrResourceCreation)
	}
	defer func() {
		if err != nil {
			gpu.FreeMemory(device, memory)
		}
	}()

	if res := gpu.BindImageMemory(device, handle, memory); res != vk.Success {
		return nil, errors.Mark(errors.Newf("failed to bind image memory: %s", VulkanResultString(res, false)), core.ErrResourceCreation)
	}

	return &VulkanImage{
		Handle: handle,
		Memory: memory,
		Format: format,
		Width:  width,
		Height: height,
	}, nil
}

func (vi *VulkanImage) ImageViewCreate(context *VulkanContext, aspect vk.ImageAspectFlags) error {
	view, res := context.GPU.CreateImageView(context.Device.LogicalDevice, ImageViewInfo{
		Image:  vi.Handle,
		Format: vi.Format,
		Aspect: aspect,
	})
	if res != vk.Success {
		return errors.Mark(errors.Newf("failed to create image view: %s", VulkanResultString(res, false)), core.ErrResourceCreation)
	}
	vi.View = view
	return nil
}

func (vi *VulkanImage) ImageDestroy(context *VulkanContext) {
	device := context.logicalDevice()
	if vi.View != 0 {
		context.GPU.DestroyImageView(device, vi.View)
		vi.View = 0
	}
	if vi.Handle != 0 {
		context.GPU.DestroyImage(device, vi.Handle)
		vi.Handle = 0
	}
	if vi.Memory != 0 {
		context.GPU.FreeMemory(device, vi.Memory)
		vi.Memory = 0
	}
}

// layoutTransition is one legal entry of the transition table.
type layoutTransition struct {
	srcAccess vk.AccessFlags
	dstAccess vk.AccessFlags
	srcStage  vk.PipelineStageFlags
	dstStage  vk.PipelineStageFlags
}

// lookupTransition is the closed table of layout changes the uploader records.
func lookupTransition(oldLayout, newLayout vk.ImageLayout) (layoutTransition, bool) {
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		return layoutTransition{
			srcAccess: 0,
			dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, true
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return layoutTransition{
			srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, true
	default:
		return layoutTransition{}, false
	}
}

// TransitionLayout records and submits a one-shot layout barrier. A
// transition outside the table fails before any command buffer is allocated.
func (vi *VulkanImage) TransitionLayout(context *VulkanContext, oldLayout, newLayout vk.ImageLayout) error {
	transition, ok := lookupTransition(oldLayout, newLayout)
	if !ok {
		return errors.Wrapf(core.ErrUnsupportedTransition, "%d -> %d", oldLayout, newLayout)
	}

	device := context.Device
	cb, err := AllocateAndBeginSingleUse(context, device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	context.GPU.CmdPipelineBarrier(cb.Handle, transition.srcStage, transition.dstStage, ImageBarrier{
		Image:     vi.Handle,
		OldLayout: oldLayout,
		NewLayout: newLayout,
		SrcAccess: transition.srcAccess,
		DstAccess: transition.dstAccess,
		Aspect:    vk.ImageAspectFlags(vk.ImageAspectColorBit),
	})
	return cb.EndSingleUse(context, device.GraphicsCommandPool, device.GraphicsQueue)
}

// CopyFromBuffer copies the whole of buffer into the image, which must be in
// transfer-destination layout.
func (vi *VulkanImage) CopyFromBuffer(context *VulkanContext, buffer *VulkanBuffer) error {
	device := context.Device
	cb, err := AllocateAndBeginSingleUse(context, device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: vi.Width, Height: vi.Height, Depth: 1},
	}
	context.GPU.CmdCopyBufferToImage(cb.Handle, buffer.Handle, vi.Handle, vk.ImageLayoutTransferDstOptimal, region)
	return cb.EndSingleUse(context, device.GraphicsCommandPool, device.GraphicsQueue)
}
