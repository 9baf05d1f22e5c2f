package testbed

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkpresent/engine/core"
	"github.com/spaghettifunk/vkpresent/engine/renderer/vulkan"
)

// DemoUI stands in for an immediate-mode UI backend. It records no draw
// commands, so every frame shows the clear color, but it exercises the whole
// presenter contract.
type DemoUI struct {
	nextID   vulkan.TextureID
	textures map[vulkan.TextureID]vulkan.ImageView

	Frames      uint64
	FontUploads int
}

func NewDemoUI() *DemoUI {
	return &DemoUI{
		textures: make(map[vulkan.TextureID]vulkan.ImageView),
	}
}

// FrameData is the per-frame draw list handed to DrawFrame.
type FrameData struct {
	Delta    float64
	Textures int
}

func (ui *DemoUI) NewFrame(delta float64) vulkan.DrawData {
	return &FrameData{
		Delta:    delta,
		Textures: len(ui.textures),
	}
}

func (ui *DemoUI) RenderDrawData(data vulkan.DrawData, cb vulkan.CommandBuffer) {
	ui.Frames++
}

func (ui *DemoUI) CreateFontsTexture(cb vulkan.CommandBuffer) bool {
	ui.FontUploads++
	return true
}

func (ui *DemoUI) DestroyFontUploadObjects() {}

func (ui *DemoUI) AddTexture(sampler vulkan.Sampler, view vulkan.ImageView, layout vk.ImageLayout) vulkan.TextureID {
	ui.nextID++
	ui.textures[ui.nextID] = view
	core.LogDebug("UI texture %d registered.", ui.nextID)
	return ui.nextID
}

func (ui *DemoUI) RemoveTexture(id vulkan.TextureID) {
	delete(ui.textures, id)
}
