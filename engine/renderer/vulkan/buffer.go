package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkpresent/engine/core"
)

type VulkanBuffer struct {
	Handle Buffer
	Memory DeviceMemory
	Size   vk.DeviceSize
	Usage  vk.BufferUsageFlags
}

// BufferCreate creates a buffer and binds freshly allocated memory of the
// requested properties to it. On failure nothing created here is left behind.
func BufferCreate(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (buffer *VulkanBuffer, err error) {
	gpu := context.GPU
	device := context.Device.LogicalDevice

	handle, res := gpu.CreateBuffer(device, size, usage)
	if res != vk.Success {
		return nil, errors.Mark(errors.Newf("failed to create buffer: %s", VulkanResultString(res, false)), core.ErrResourceCreation)
	}
	defer func() {
		if err != nil {
			gpu.DestroyBuffer(device, handle)
		}
	}()

	requirements := gpu.BufferMemoryRequirements(device, handle)
	memoryType := context.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
	if memoryType == InvalidMemoryIndex {
		return nil, errors.Wrap(core.ErrNoMemoryType, "buffer memory")
	}

	memory, res := gpu.AllocateMemory(device, requirements.Size, uint32(memoryType))
	if res != vk.Success {
		return nil, errors.Mark(errors.Newf("failed to allocate buffer memory: %s", VulkanResultString(res, false)), core.ErrResourceCreation)
	}
	defer func() {
		if err != nil {
			gpu.FreeMemory(device, memory)
		}
	}()

	if res := gpu.BindBufferMemory(device, handle, memory); res != vk.Success {
		return nil, errors.Mark(errors.Newf("failed to bind buffer memory: %s", VulkanResultString(res, false)), core.ErrResourceCreation)
	}

	return &VulkanBuffer{
		Handle: handle,
		Memory: memory,
		Size:   size,
		Usage:  usage,
	}, nil
}

// LoadData copies data into the start of a host-visible buffer.
func (vb *VulkanBuffer) LoadData(context *VulkanContext, data []byte) error {
	device := context.Device.LogicalDevice
	mapped, res := context.GPU.MapMemory(device, vb.Memory, vk.DeviceSize(len(data)))
	if res != vk.Success {
		return errors.Newf("failed to map buffer memory: %s", VulkanResultString(res, false))
	}
	copy(mapped, data)
	context.GPU.UnmapMemory(device, vb.Memory)
	return nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	device := context.logicalDevice()
	if vb.Handle != 0 {
		context.GPU.DestroyBuffer(device, vb.Handle)
		vb.Handle = 0
	}
	if vb.Memory != 0 {
		context.GPU.FreeMemory(device, vb.Memory)
		vb.Memory = 0
	}
	vb.Size = 0
}
