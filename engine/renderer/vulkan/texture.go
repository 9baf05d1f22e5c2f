package vulkan

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/vkpresent/engine/core"
)

const TEXTURE_FORMAT = vk.FormatR8g8b8a8Srgb

// TextureHandle is a sampled texture ready for the UI. The registry owns it
// until Destroy or shutdown.
type TextureHandle struct {
	ID        uuid.UUID
	Path      string
	Width     uint32
	Height    uint32
	Image     *VulkanImage
	Sampler   Sampler
	TextureID TextureID
}

// TextureRegistry keeps every texture created through LoadImage.
type TextureRegistry struct {
	textures map[uuid.UUID]*TextureHandle
}

func NewTextureRegistry() *TextureRegistry {
	return &TextureRegistry{
		textures: make(map[uuid.UUID]*TextureHandle),
	}
}

func (tr *TextureRegistry) Get(id uuid.UUID) (*TextureHandle, bool) {
	handle, ok := tr.textures[id]
	return handle, ok
}

// ByPath finds the texture loaded from path, compared by absolute path.
func (tr *TextureRegistry) ByPath(path string) (*TextureHandle, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	for _, handle := range tr.textures {
		if handle.Path == abs {
			return handle, true
		}
	}
	return nil, false
}

func (tr *TextureRegistry) Len() int {
	return len(tr.textures)
}

func (tr *TextureRegistry) add(handle *TextureHandle) {
	tr.textures[handle.ID] = handle
}

func (tr *TextureRegistry) remove(id uuid.UUID) {
	delete(tr.textures, id)
}

func (tr *TextureRegistry) all() []*TextureHandle {
	handles := make([]*TextureHandle, 0, len(tr.textures))
	for _, handle := range tr.textures {
		handles = append(handles, handle)
	}
	return handles
}

func samplerCreateInfo() vk.SamplerCreateInfo {
	return vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           16,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0,
		MinLod:                  0,
		MaxLod:                  0,
	}
}

// uploadTexture decodes path and builds a sampled, shader-readable texture.
// The staging buffer never outlives the call; everything else is released
// unless the texture is complete.
func uploadTexture(context *VulkanContext, decoder ImageDecoder, path string) (handle *TextureHandle, err error) {
	data, err := decoder.Load(path)
	if err != nil {
		return nil, err
	}
	gpu := context.GPU
	device := context.Device.LogicalDevice

	staging, err := BufferCreate(
		context,
		vk.DeviceSize(len(data.Pixels)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return nil, errors.Wrap(err, "staging buffer")
	}
	defer staging.Destroy(context)

	if err := staging.LoadData(context, data.Pixels); err != nil {
		return nil, err
	}

	image, err := ImageCreate(
		context,
		data.Width,
		data.Height,
		TEXTURE_FORMAT,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return nil, errors.Wrap(err, "texture image")
	}
	defer func() {
		if err != nil {
			image.ImageDestroy(context)
		}
	}()

	if err := image.TransitionLayout(context, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		return nil, err
	}
	if err := image.CopyFromBuffer(context, staging); err != nil {
		return nil, err
	}
	if err := image.TransitionLayout(context, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		return nil, err
	}
	if err := image.ImageViewCreate(context, vk.ImageAspectFlags(vk.ImageAspectColorBit)); err != nil {
		return nil, err
	}

	sampler, res := gpu.CreateSampler(device, samplerCreateInfo())
	if res != vk.Success {
		return nil, errors.Mark(errors.Newf("failed to create sampler: %s", VulkanResultString(res, false)), core.ErrResourceCreation)
	}

	return &TextureHandle{
		Path:    path,
		Width:   data.Width,
		Height:  data.Height,
		Image:   image,
		Sampler: sampler,
	}, nil
}

func destroyTexture(context *VulkanContext, handle *TextureHandle) {
	if handle.Sampler != 0 {
		context.GPU.DestroySampler(context.logicalDevice(), handle.Sampler)
		handle.Sampler = 0
	}
	if handle.Image != nil {
		handle.Image.ImageDestroy(context)
		handle.Image = nil
	}
}
