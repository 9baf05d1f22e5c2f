package vulkan

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/vkpresent/engine/assets/loaders"
	"github.com/spaghettifunk/vkpresent/engine/core"
)

// Options configures a presenter session.
type Options struct {
	ApplicationName    string
	ApplicationVersion uint32
	ClearColor         [4]float32
	// Validation enables the validation layers and debug hook. Open fails if
	// the layers are not installed.
	Validation bool
	// Decoder reads image files for LoadImage. Defaults to loaders.ImageLoader.
	Decoder ImageDecoder
}

func DefaultOptions() Options {
	return Options{
		ApplicationName:    "vkpresent",
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		ClearColor:         [4]float32{0.45, 0.55, 0.60, 1.00},
		Validation:         VALIDATION_DEFAULT,
	}
}

// VulkanRenderer presents UI frames to a window and uploads textures for it.
// All methods must be called from the thread that owns the window.
type VulkanRenderer struct {
	context  *VulkanContext
	ui       UIRenderer
	decoder  ImageDecoder
	textures *TextureRegistry
	metrics  *core.FrameMetrics
	options  Options
	layers   []string
	closed   bool
	// broken is set when a swapchain rebuild fails halfway.
	broken error
}

// Open brings up the whole session: instance, surface, device, swapchain,
// render pass, framebuffers, command buffers and frame synchronization. On
// failure everything created so far is released and the error is marked
// core.ErrSetup.
func Open(window Window, gpu GPU, ui UIRenderer, options Options) (*VulkanRenderer, error) {
	if options.Decoder == nil {
		options.Decoder = loaders.ImageLoader{}
	}
	vr := &VulkanRenderer{
		context: &VulkanContext{
			GPU:    gpu,
			Window: window,
		},
		ui:       ui,
		decoder:  options.Decoder,
		textures: NewTextureRegistry(),
		metrics:  core.NewFrameMetrics(),
		options:  options,
	}

	if err := vr.initialize(); err != nil {
		core.LogError("Renderer setup failed: %s", err)
		vr.teardown()
		vr.closed = true
		return nil, errors.Mark(err, core.ErrSetup)
	}
	return vr, nil
}

func (vr *VulkanRenderer) initialize() error {
	context := vr.context
	gpu := context.GPU

	width, height := context.Window.FramebufferSize()
	context.FramebufferWidth = uint32(width)
	context.FramebufferHeight = uint32(height)

	layers, err := instanceCreate(context, vr.options.ApplicationName, vr.options.ApplicationVersion, vr.options.Validation)
	if err != nil {
		return err
	}
	vr.layers = layers

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, res := gpu.CreateSurface(context.Instance, context.Window)
	if res != vk.Success {
		return errors.Newf("failed to create window surface: %s", VulkanResultString(res, true))
	}
	context.Surface = surface
	core.LogDebug("Vulkan surface created.")

	// Device creation
	if err := SelectPhysicalDevice(context, defaultDeviceRequirements()); err != nil {
		return err
	}
	if err := DeviceCreate(context, vr.layers); err != nil {
		return err
	}

	// Swapchain
	swapchain, err := SwapchainCreate(context)
	if err != nil {
		return err
	}
	context.Swapchain = swapchain

	clear := vr.options.ClearColor
	renderpass, err := RenderpassCreate(
		context,
		swapchain.ImageFormat.Format,
		0, 0, float32(swapchain.Extent.Width), float32(swapchain.Extent.Height),
		clear[0], clear[1], clear[2], clear[3],
	)
	if err != nil {
		return err
	}
	context.MainRenderpass = renderpass

	if err := swapchain.RegenerateFramebuffers(context, renderpass); err != nil {
		return err
	}

	pool, err := descriptorPoolCreate(context, swapchain.ImageCount)
	if err != nil {
		return err
	}
	context.DescriptorPool = pool

	if err := createFrameSlots(context, swapchain.ImageCount); err != nil {
		return err
	}
	if err := createCommandBuffers(context); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

// Shutdown releases every GPU object of the session. Calling it again does nothing.
func (vr *VulkanRenderer) Shutdown() error {
	if vr.closed {
		return nil
	}
	vr.closed = true

	context := vr.context
	if device := context.logicalDevice(); device != 0 {
		if res := context.GPU.DeviceWaitIdle(device); res != vk.Success {
			core.LogWarn("Device wait idle failed during shutdown: %s", VulkanResultString(res, false))
		}
	}
	vr.teardown()
	core.LogInfo("Vulkan renderer shut down.")
	return nil
}

// teardown destroys whatever exists, in reverse creation order.
func (vr *VulkanRenderer) teardown() {
	context := vr.context
	gpu := context.GPU

	if context.Device != nil {
		freeCommandBuffers(context)
	}
	if context.Swapchain != nil {
		context.Swapchain.SwapchainDestroy(context)
		context.Swapchain = nil
	}

	for _, handle := range vr.textures.all() {
		destroyTexture(context, handle)
		vr.textures.remove(handle.ID)
	}

	if context.MainRenderpass != nil {
		context.MainRenderpass.RenderpassDestroy(context)
		context.MainRenderpass = nil
	}
	if context.DescriptorPool != 0 {
		gpu.DestroyDescriptorPool(context.logicalDevice(), context.DescriptorPool)
		context.DescriptorPool = 0
	}
	destroyFrameSlots(context)

	DeviceDestroy(context)
	context.Device = nil

	if context.Surface != 0 {
		gpu.DestroySurface(context.Instance, context.Surface)
		context.Surface = 0
	}
	if context.debugCallback != 0 {
		gpu.DestroyDebugCallback(context.Instance, context.debugCallback)
		context.debugCallback = 0
	}
	if context.Instance != 0 {
		gpu.DestroyInstance(context.Instance)
		context.Instance = 0
	}
}

// SetFramebufferResized records a window resize. The swapchain is rebuilt
// after the next present.
func (vr *VulkanRenderer) SetFramebufferResized() {
	vr.context.FramebufferResized = true
}

// RenderPass is the render pass the UI backend must build its pipeline against.
func (vr *VulkanRenderer) RenderPass() RenderPass {
	if vr.context.MainRenderpass == nil {
		return 0
	}
	return vr.context.MainRenderpass.Handle
}

func (vr *VulkanRenderer) FillInitInfo(info *InitInfo) {
	context := vr.context
	info.Instance = context.Instance
	info.PhysicalDevice = context.Device.PhysicalDevice
	info.Device = context.Device.LogicalDevice
	info.QueueFamily = uint32(context.Device.GraphicsQueueIndex)
	info.Queue = context.Device.GraphicsQueue
	info.DescriptorPool = context.DescriptorPool
	info.MinImageCount = vr.ImageCount()
	info.ImageCount = vr.ImageCount()
	info.RenderPass = vr.RenderPass()
	info.CheckResult = checkVkResult
}

func checkVkResult(res vk.Result) {
	if res == vk.Success {
		return
	}
	core.LogError("[vulkan] Error: VkResult = %s", VulkanResultString(res, true))
	if !VulkanResultIsSuccess(res) {
		core.LogFatal("[vulkan] unrecoverable result from UI backend")
	}
}

// InitializeFontTexture lets the UI backend upload its font atlas through a
// one-shot command buffer.
func (vr *VulkanRenderer) InitializeFontTexture() error {
	context := vr.context
	device := context.Device
	gpu := context.GPU

	if res := gpu.DeviceWaitIdle(device.LogicalDevice); res != vk.Success {
		return errors.Newf("failed to wait for device: %s", VulkanResultString(res, false))
	}
	if res := gpu.ResetCommandPool(device.LogicalDevice, device.GraphicsCommandPool); res != vk.Success {
		return errors.Newf("failed to reset command pool: %s", VulkanResultString(res, false))
	}
	for _, slot := range context.Frames {
		if slot.Command != nil {
			slot.Command.Reset()
		}
	}

	cb, err := AllocateAndBeginSingleUse(context, device.GraphicsCommandPool)
	if err != nil {
		// Nothing was allocated, nothing to free.
		return errors.Wrap(err, "font upload")
	}
	if !vr.ui.CreateFontsTexture(cb.Handle) {
		cb.Free(context, device.GraphicsCommandPool)
		return errors.New("UI backend failed to record the font upload")
	}
	if err := cb.EndSingleUse(context, device.GraphicsCommandPool, device.GraphicsQueue); err != nil {
		return errors.Wrap(err, "font upload")
	}
	vr.ui.DestroyFontUploadObjects()
	core.LogDebug("Font texture uploaded.")
	return nil
}

// LoadImage decodes the image at path, uploads it as a sampled texture and
// registers it with the UI. On failure no GPU object created by the call survives.
func (vr *VulkanRenderer) LoadImage(path string) (*TextureHandle, error) {
	if vr.closed {
		return nil, errors.New("renderer is shut down")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}

	handle, err := uploadTexture(vr.context, vr.decoder, abs)
	if err != nil {
		core.LogError("Failed to load texture '%s': %s", path, err)
		return nil, err
	}
	handle.TextureID, err = vr.registerWithUI(handle)
	if err != nil {
		destroyTexture(vr.context, handle)
		core.LogError("Failed to load texture '%s': %s", path, err)
		return nil, err
	}
	handle.ID = uuid.New()
	vr.textures.add(handle)

	core.LogInfo("Loaded texture '%s' (%dx%d).", abs, handle.Width, handle.Height)
	return handle, nil
}

// registerWithUI hands the texture to the UI backend. A zero ID means the
// backend refused it.
func (vr *VulkanRenderer) registerWithUI(handle *TextureHandle) (TextureID, error) {
	id := vr.ui.AddTexture(handle.Sampler, handle.Image.View, vk.ImageLayoutShaderReadOnlyOptimal)
	if id == 0 {
		return 0, errors.Mark(errors.Newf("UI backend did not register %s", handle.Path), core.ErrResourceCreation)
	}
	return id, nil
}

func (vr *VulkanRenderer) checkRegistered(handle *TextureHandle) error {
	if handle == nil {
		return errors.New("nil texture handle")
	}
	if _, ok := vr.textures.Get(handle.ID); !ok {
		return errors.Newf("texture %s is not registered", handle.ID)
	}
	return nil
}

// DestroyTexture removes a texture from the UI and the registry and releases it.
func (vr *VulkanRenderer) DestroyTexture(handle *TextureHandle) error {
	if err := vr.checkRegistered(handle); err != nil {
		return err
	}
	context := vr.context
	if res := context.GPU.DeviceWaitIdle(context.Device.LogicalDevice); res != vk.Success {
		return errors.Newf("failed to wait for device: %s", VulkanResultString(res, false))
	}
	vr.ui.RemoveTexture(handle.TextureID)
	destroyTexture(context, handle)
	vr.textures.remove(handle.ID)
	return nil
}

// ReloadTexture uploads the file behind handle again and swaps it in place,
// keeping the registry ID. The old texture stays intact if the upload fails.
func (vr *VulkanRenderer) ReloadTexture(handle *TextureHandle) error {
	if err := vr.checkRegistered(handle); err != nil {
		return err
	}
	context := vr.context

	fresh, err := uploadTexture(context, vr.decoder, handle.Path)
	if err != nil {
		return errors.Wrapf(err, "reload %s", handle.Path)
	}
	if res := context.GPU.DeviceWaitIdle(context.Device.LogicalDevice); res != vk.Success {
		destroyTexture(context, fresh)
		return errors.Newf("failed to wait for device: %s", VulkanResultString(res, false))
	}

	textureID, err := vr.registerWithUI(fresh)
	if err != nil {
		destroyTexture(context, fresh)
		return errors.Wrapf(err, "reload %s", handle.Path)
	}

	vr.ui.RemoveTexture(handle.TextureID)
	destroyTexture(context, handle)

	handle.Width = fresh.Width
	handle.Height = fresh.Height
	handle.Image = fresh.Image
	handle.Sampler = fresh.Sampler
	handle.TextureID = textureID

	core.LogInfo("Reloaded texture '%s'.", handle.Path)
	return nil
}

func (vr *VulkanRenderer) Textures() *TextureRegistry {
	return vr.textures
}

func (vr *VulkanRenderer) Metrics() *core.FrameMetrics {
	return vr.metrics
}

// CurrentFrame is the index of the frame slot the next DrawFrame uses.
func (vr *VulkanRenderer) CurrentFrame() uint32 {
	return vr.context.CurrentFrame
}

func (vr *VulkanRenderer) ImageCount() uint32 {
	if vr.context.Swapchain == nil {
		return 0
	}
	return vr.context.Swapchain.ImageCount
}
