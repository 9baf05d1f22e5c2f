package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkpresent/engine/assets/loaders"
)

// TextureID is the UI library's name for a registered texture.
type TextureID uint64

// DrawData is the UI library's per-frame draw list. The presenter only passes
// it through to the UI renderer.
type DrawData interface{}

// UIRenderer is the immediate-mode UI backend that records into the
// presenter's command buffers and samples its textures.
type UIRenderer interface {
	// RenderDrawData records draw commands for data into cb, which is inside the main render pass.
	RenderDrawData(data DrawData, cb CommandBuffer)
	// CreateFontsTexture records the font atlas upload into cb.
	CreateFontsTexture(cb CommandBuffer) bool
	// DestroyFontUploadObjects frees the staging resources used by CreateFontsTexture.
	DestroyFontUploadObjects()
	// AddTexture registers a sampled image with the UI. It returns 0 when the
	// texture could not be registered.
	AddTexture(sampler Sampler, view ImageView, layout vk.ImageLayout) TextureID
	RemoveTexture(id TextureID)
}

// ImageDecoder turns an image file into RGBA8 pixels.
type ImageDecoder interface {
	Load(path string) (*loaders.ImageData, error)
}

// InitInfo carries what a UI backend needs to bind itself to the presenter's device.
type InitInfo struct {
	Instance       Instance
	PhysicalDevice PhysicalDevice
	Device         Device
	QueueFamily    uint32
	Queue          Queue
	DescriptorPool DescriptorPool
	MinImageCount  uint32
	ImageCount     uint32
	RenderPass     RenderPass
	// CheckResult is called by the backend with the result of every Vulkan call it makes.
	CheckResult func(vk.Result)
}
