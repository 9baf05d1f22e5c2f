package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// fakePhysicalDevice describes one adapter the fake reports.
type fakePhysicalDevice struct {
	name       string
	families   []vk.QueueFamilyProperties
	present    map[uint32]bool
	extensions []string
	anisotropy bool
}

func graphicsFamily() vk.QueueFamilyProperties {
	return vk.QueueFamilyProperties{
		QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueTransferBit),
		QueueCount: 1,
	}
}

func goodDevice(name string) fakePhysicalDevice {
	return fakePhysicalDevice{
		name:       name,
		families:   []vk.QueueFamilyProperties{graphicsFamily()},
		present:    map[uint32]bool{0: true},
		extensions: []string{vk.KhrSwapchainExtensionName},
		anisotropy: true,
	}
}

// fakeGPU is an in-memory GPU. Every created object is tracked by kind so
// tests can assert that nothing leaks, and results can be scripted.
type fakeGPU struct {
	next uint64
	live map[string]map[uint64]bool

	// fail makes a method return the given result until removed.
	fail map[string]vk.Result
	// failOnce makes a method return the given result on its next call only.
	failOnce map[string]vk.Result
	calls    map[string]int

	layers      []string
	devices     []fakePhysicalDevice
	caps        vk.SurfaceCapabilities
	formats     []vk.SurfaceFormat
	modes       []vk.PresentMode
	memoryTypes []vk.MemoryType

	acquireResults []vk.Result
	presentResults []vk.Result
	nextImage      uint32

	swapchainImages map[Swapchain][]Image
	bufferSizes     map[Buffer]vk.DeviceSize
	fenceSignaled   map[Fence]bool

	submits  []SubmitInfo
	presents []uint32
}

func newFakeGPU() *fakeGPU {
	return &fakeGPU{
		live:     make(map[string]map[uint64]bool),
		fail:     make(map[string]vk.Result),
		failOnce: make(map[string]vk.Result),
		calls:    make(map[string]int),
		layers:   []string{"VK_LAYER_KHRONOS_validation"},
		devices:  []fakePhysicalDevice{goodDevice("fake discrete")},
		caps: vk.SurfaceCapabilities{
			MinImageCount:    2,
			MaxImageCount:    0,
			CurrentExtent:    vk.Extent2D{Width: 1280, Height: 720},
			MinImageExtent:   vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:   vk.Extent2D{Width: 4096, Height: 4096},
			CurrentTransform: vk.SurfaceTransformIdentityBit,
		},
		formats: []vk.SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		modes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
		memoryTypes: []vk.MemoryType{
			{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)},
			{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)},
		},
		swapchainImages: make(map[Swapchain][]Image),
		bufferSizes:     make(map[Buffer]vk.DeviceSize),
		fenceSignaled:   make(map[Fence]bool),
	}
}

// check records a call and reports the scripted failure for it, if any.
func (f *fakeGPU) check(name string) vk.Result {
	f.calls[name]++
	if res, ok := f.failOnce[name]; ok {
		delete(f.failOnce, name)
		return res
	}
	if res, ok := f.fail[name]; ok {
		return res
	}
	return vk.Success
}

func (f *fakeGPU) create(kind string) uint64 {
	f.next++
	if f.live[kind] == nil {
		f.live[kind] = make(map[uint64]bool)
	}
	f.live[kind][f.next] = true
	return f.next
}

func (f *fakeGPU) destroy(kind string, h uint64) {
	if h == 0 {
		return
	}
	delete(f.live[kind], h)
}

func (f *fakeGPU) count(kind string) int {
	return len(f.live[kind])
}

func (f *fakeGPU) totalLive() int {
	total := 0
	for _, objects := range f.live {
		total += len(objects)
	}
	return total
}

func (f *fakeGPU) physical(pd PhysicalDevice) fakePhysicalDevice {
	return f.devices[int(pd)-1]
}

func (f *fakeGPU) InstanceLayers() ([]string, vk.Result) {
	if res := f.check("InstanceLayers"); res != vk.Success {
		return nil, res
	}
	return f.layers, vk.Success
}

func (f *fakeGPU) CreateInstance(info InstanceInfo) (Instance, vk.Result) {
	if res := f.check("CreateInstance"); res != vk.Success {
		return 0, res
	}
	return Instance(f.create("instance")), vk.Success
}

func (f *fakeGPU) DestroyInstance(instance Instance) { f.destroy("instance", uint64(instance)) }

func (f *fakeGPU) CreateDebugCallback(instance Instance, flags vk.DebugReportFlags, fn DebugFunc) (DebugCallback, vk.Result) {
	if res := f.check("CreateDebugCallback"); res != vk.Success {
		return 0, res
	}
	return DebugCallback(f.create("debug")), vk.Success
}

func (f *fakeGPU) DestroyDebugCallback(instance Instance, callback DebugCallback) {
	f.destroy("debug", uint64(callback))
}

func (f *fakeGPU) CreateSurface(instance Instance, window Window) (Surface, vk.Result) {
	if res := f.check("CreateSurface"); res != vk.Success {
		return 0, res
	}
	return Surface(f.create("surface")), vk.Success
}

func (f *fakeGPU) DestroySurface(instance Instance, surface Surface) {
	f.destroy("surface", uint64(surface))
}

func (f *fakeGPU) PhysicalDevices(instance Instance) ([]PhysicalDevice, vk.Result) {
	if res := f.check("PhysicalDevices"); res != vk.Success {
		return nil, res
	}
	handles := make([]PhysicalDevice, len(f.devices))
	for i := range f.devices {
		handles[i] = PhysicalDevice(i + 1)
	}
	return handles, vk.Success
}

func (f *fakeGPU) PhysicalDeviceInfo(pd PhysicalDevice) PhysicalDeviceInfo {
	return PhysicalDeviceInfo{
		Name:          f.physical(pd).name,
		Type:          vk.PhysicalDeviceTypeDiscreteGpu,
		APIVersion:    uint32(vk.MakeVersion(1, 3, 0)),
		DriverVersion: uint32(vk.MakeVersion(1, 0, 0)),
	}
}

func (f *fakeGPU) QueueFamilies(pd PhysicalDevice) []vk.QueueFamilyProperties {
	return f.physical(pd).families
}

func (f *fakeGPU) SurfaceSupport(pd PhysicalDevice, family uint32, surface Surface) (bool, vk.Result) {
	return f.physical(pd).present[family], vk.Success
}

func (f *fakeGPU) DeviceExtensions(pd PhysicalDevice) ([]string, vk.Result) {
	return f.physical(pd).extensions, vk.Success
}

func (f *fakeGPU) Features(pd PhysicalDevice) vk.PhysicalDeviceFeatures {
	var features vk.PhysicalDeviceFeatures
	if f.physical(pd).anisotropy {
		features.SamplerAnisotropy = vk.True
	}
	return features
}

func (f *fakeGPU) SurfaceCapabilities(pd PhysicalDevice, surface Surface) (vk.SurfaceCapabilities, vk.Result) {
	return f.caps, f.check("SurfaceCapabilities")
}

func (f *fakeGPU) SurfaceFormats(pd PhysicalDevice, surface Surface) ([]vk.SurfaceFormat, vk.Result) {
	return f.formats, vk.Success
}

func (f *fakeGPU) SurfacePresentModes(pd PhysicalDevice, surface Surface) ([]vk.PresentMode, vk.Result) {
	return f.modes, vk.Success
}

func (f *fakeGPU) MemoryTypes(pd PhysicalDevice) []vk.MemoryType {
	return f.memoryTypes
}

func (f *fakeGPU) CreateDevice(pd PhysicalDevice, info DeviceInfo) (Device, vk.Result) {
	if res := f.check("CreateDevice"); res != vk.Success {
		return 0, res
	}
	return Device(f.create("device")), vk.Success
}

func (f *fakeGPU) DestroyDevice(device Device) { f.destroy("device", uint64(device)) }

func (f *fakeGPU) GetQueue(device Device, family, index uint32) Queue {
	return Queue(1000 + family)
}

func (f *fakeGPU) DeviceWaitIdle(device Device) vk.Result {
	return f.check("DeviceWaitIdle")
}

func (f *fakeGPU) CreateSwapchain(device Device, info SwapchainInfo) (Swapchain, vk.Result) {
	if res := f.check("CreateSwapchain"); res != vk.Success {
		return 0, res
	}
	swapchain := Swapchain(f.create("swapchain"))
	images := make([]Image, info.MinImageCount)
	for i := range images {
		// Swapchain images are owned by the swapchain and never destroyed directly.
		f.next++
		images[i] = Image(f.next)
	}
	f.swapchainImages[swapchain] = images
	f.nextImage = 0
	return swapchain, vk.Success
}

func (f *fakeGPU) DestroySwapchain(device Device, swapchain Swapchain) {
	delete(f.swapchainImages, swapchain)
	f.destroy("swapchain", uint64(swapchain))
}

func (f *fakeGPU) SwapchainImages(device Device, swapchain Swapchain) ([]Image, vk.Result) {
	if res := f.check("SwapchainImages"); res != vk.Success {
		return nil, res
	}
	return f.swapchainImages[swapchain], vk.Success
}

func (f *fakeGPU) AcquireNextImage(device Device, swapchain Swapchain, timeout uint64, semaphore Semaphore) (uint32, vk.Result) {
	f.calls["AcquireNextImage"]++
	if len(f.acquireResults) > 0 {
		res := f.acquireResults[0]
		f.acquireResults = f.acquireResults[1:]
		if res != vk.Success && res != vk.Suboptimal {
			return 0, res
		}
	}
	count := uint32(len(f.swapchainImages[swapchain]))
	index := f.nextImage % count
	f.nextImage++
	return index, vk.Success
}

func (f *fakeGPU) QueuePresent(queue Queue, swapchain Swapchain, imageIndex uint32, wait []Semaphore) vk.Result {
	f.presents = append(f.presents, imageIndex)
	if len(f.presentResults) > 0 {
		res := f.presentResults[0]
		f.presentResults = f.presentResults[1:]
		return res
	}
	return vk.Success
}

func (f *fakeGPU) CreateImageView(device Device, info ImageViewInfo) (ImageView, vk.Result) {
	if res := f.check("CreateImageView"); res != vk.Success {
		return 0, res
	}
	return ImageView(f.create("view")), vk.Success
}

func (f *fakeGPU) DestroyImageView(device Device, view ImageView) { f.destroy("view", uint64(view)) }

func (f *fakeGPU) CreateRenderPass(device Device, info RenderPassInfo) (RenderPass, vk.Result) {
	if res := f.check("CreateRenderPass"); res != vk.Success {
		return 0, res
	}
	return RenderPass(f.create("renderpass")), vk.Success
}

func (f *fakeGPU) DestroyRenderPass(device Device, pass RenderPass) {
	f.destroy("renderpass", uint64(pass))
}

func (f *fakeGPU) CreateFramebuffer(device Device, pass RenderPass, attachments []ImageView, width, height uint32) (Framebuffer, vk.Result) {
	if res := f.check("CreateFramebuffer"); res != vk.Success {
		return 0, res
	}
	return Framebuffer(f.create("framebuffer")), vk.Success
}

func (f *fakeGPU) DestroyFramebuffer(device Device, framebuffer Framebuffer) {
	f.destroy("framebuffer", uint64(framebuffer))
}

func (f *fakeGPU) CreateCommandPool(device Device, family uint32, flags vk.CommandPoolCreateFlags) (CommandPool, vk.Result) {
	if res := f.check("CreateCommandPool"); res != vk.Success {
		return 0, res
	}
	return CommandPool(f.create("pool")), vk.Success
}

func (f *fakeGPU) ResetCommandPool(device Device, pool CommandPool) vk.Result {
	return f.check("ResetCommandPool")
}

func (f *fakeGPU) DestroyCommandPool(device Device, pool CommandPool) { f.destroy("pool", uint64(pool)) }

func (f *fakeGPU) AllocateCommandBuffers(device Device, pool CommandPool, level vk.CommandBufferLevel, count uint32) ([]CommandBuffer, vk.Result) {
	if res := f.check("AllocateCommandBuffers"); res != vk.Success {
		return nil, res
	}
	buffers := make([]CommandBuffer, count)
	for i := range buffers {
		buffers[i] = CommandBuffer(f.create("commandbuffer"))
	}
	return buffers, vk.Success
}

func (f *fakeGPU) FreeCommandBuffers(device Device, pool CommandPool, buffers []CommandBuffer) {
	for _, cb := range buffers {
		f.destroy("commandbuffer", uint64(cb))
	}
}

func (f *fakeGPU) BeginCommandBuffer(cb CommandBuffer, flags vk.CommandBufferUsageFlags) vk.Result {
	return f.check("BeginCommandBuffer")
}

func (f *fakeGPU) EndCommandBuffer(cb CommandBuffer) vk.Result {
	return f.check("EndCommandBuffer")
}

func (f *fakeGPU) CmdBeginRenderPass(cb CommandBuffer, begin RenderPassBegin) {
	f.calls["CmdBeginRenderPass"]++
}

func (f *fakeGPU) CmdEndRenderPass(cb CommandBuffer) {}

func (f *fakeGPU) CmdPipelineBarrier(cb CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, barrier ImageBarrier) {
	f.calls["CmdPipelineBarrier"]++
}

func (f *fakeGPU) CmdCopyBufferToImage(cb CommandBuffer, src Buffer, dst Image, layout vk.ImageLayout, region vk.BufferImageCopy) {
	f.calls["CmdCopyBufferToImage"]++
}

func (f *fakeGPU) QueueSubmit(queue Queue, submits []SubmitInfo, fence Fence) vk.Result {
	if res := f.check("QueueSubmit"); res != vk.Success {
		return res
	}
	f.submits = append(f.submits, submits...)
	if fence != 0 {
		// The fake device finishes work instantly.
		f.fenceSignaled[fence] = true
	}
	return vk.Success
}

func (f *fakeGPU) QueueWaitIdle(queue Queue) vk.Result {
	return f.check("QueueWaitIdle")
}

func (f *fakeGPU) CreateSemaphore(device Device) (Semaphore, vk.Result) {
	if res := f.check("CreateSemaphore"); res != vk.Success {
		return 0, res
	}
	return Semaphore(f.create("semaphore")), vk.Success
}

func (f *fakeGPU) DestroySemaphore(device Device, semaphore Semaphore) {
	f.destroy("semaphore", uint64(semaphore))
}

func (f *fakeGPU) CreateFence(device Device, signaled bool) (Fence, vk.Result) {
	if res := f.check("CreateFence"); res != vk.Success {
		return 0, res
	}
	fence := Fence(f.create("fence"))
	f.fenceSignaled[fence] = signaled
	return fence, vk.Success
}

func (f *fakeGPU) DestroyFence(device Device, fence Fence) {
	delete(f.fenceSignaled, fence)
	f.destroy("fence", uint64(fence))
}

func (f *fakeGPU) WaitForFences(device Device, fences []Fence, waitAll bool, timeout uint64) vk.Result {
	if res := f.check("WaitForFences"); res != vk.Success {
		return res
	}
	for _, fence := range fences {
		if !f.fenceSignaled[fence] {
			return vk.Timeout
		}
	}
	return vk.Success
}

func (f *fakeGPU) ResetFences(device Device, fences []Fence) vk.Result {
	if res := f.check("ResetFences"); res != vk.Success {
		return res
	}
	for _, fence := range fences {
		f.fenceSignaled[fence] = false
	}
	return vk.Success
}

func (f *fakeGPU) CreateDescriptorPool(device Device, flags vk.DescriptorPoolCreateFlags, maxSets uint32, sizes []vk.DescriptorPoolSize) (DescriptorPool, vk.Result) {
	if res := f.check("CreateDescriptorPool"); res != vk.Success {
		return 0, res
	}
	return DescriptorPool(f.create("descriptorpool")), vk.Success
}

func (f *fakeGPU) DestroyDescriptorPool(device Device, pool DescriptorPool) {
	f.destroy("descriptorpool", uint64(pool))
}

func (f *fakeGPU) CreateBuffer(device Device, size vk.DeviceSize, usage vk.BufferUsageFlags) (Buffer, vk.Result) {
	if res := f.check("CreateBuffer"); res != vk.Success {
		return 0, res
	}
	buffer := Buffer(f.create("buffer"))
	f.bufferSizes[buffer] = size
	return buffer, vk.Success
}

func (f *fakeGPU) DestroyBuffer(device Device, buffer Buffer) {
	delete(f.bufferSizes, buffer)
	f.destroy("buffer", uint64(buffer))
}

func (f *fakeGPU) BufferMemoryRequirements(device Device, buffer Buffer) vk.MemoryRequirements {
	return vk.MemoryRequirements{
		Size:           f.bufferSizes[buffer],
		Alignment:      4,
		MemoryTypeBits: 0xFFFFFFFF,
	}
}

func (f *fakeGPU) CreateImage(device Device, info ImageInfo) (Image, vk.Result) {
	if res := f.check("CreateImage"); res != vk.Success {
		return 0, res
	}
	return Image(f.create("image")), vk.Success
}

func (f *fakeGPU) DestroyImage(device Device, image Image) { f.destroy("image", uint64(image)) }

func (f *fakeGPU) ImageMemoryRequirements(device Device, image Image) vk.MemoryRequirements {
	return vk.MemoryRequirements{
		Size:           256,
		Alignment:      256,
		MemoryTypeBits: 0xFFFFFFFF,
	}
}

func (f *fakeGPU) AllocateMemory(device Device, size vk.DeviceSize, typeIndex uint32) (DeviceMemory, vk.Result) {
	if res := f.check("AllocateMemory"); res != vk.Success {
		return 0, res
	}
	return DeviceMemory(f.create("memory")), vk.Success
}

func (f *fakeGPU) FreeMemory(device Device, memory DeviceMemory) { f.destroy("memory", uint64(memory)) }

func (f *fakeGPU) BindBufferMemory(device Device, buffer Buffer, memory DeviceMemory) vk.Result {
	return f.check("BindBufferMemory")
}

func (f *fakeGPU) BindImageMemory(device Device, image Image, memory DeviceMemory) vk.Result {
	return f.check("BindImageMemory")
}

func (f *fakeGPU) MapMemory(device Device, memory DeviceMemory, size vk.DeviceSize) ([]byte, vk.Result) {
	if res := f.check("MapMemory"); res != vk.Success {
		return nil, res
	}
	return make([]byte, size), vk.Success
}

func (f *fakeGPU) UnmapMemory(device Device, memory DeviceMemory) {}

func (f *fakeGPU) CreateSampler(device Device, info vk.SamplerCreateInfo) (Sampler, vk.Result) {
	if res := f.check("CreateSampler"); res != vk.Success {
		return 0, res
	}
	return Sampler(f.create("sampler")), vk.Success
}

func (f *fakeGPU) DestroySampler(device Device, sampler Sampler) { f.destroy("sampler", uint64(sampler)) }

// fakeWindow reports a fixed framebuffer size. WaitEvents applies the next
// queued size, standing in for the user restoring a minimized window.
type fakeWindow struct {
	width, height int
	queued        [][2]int
	waits         int
}

func (w *fakeWindow) FramebufferSize() (int, int) { return w.width, w.height }

func (w *fakeWindow) WaitEvents() {
	w.waits++
	if len(w.queued) > 0 {
		w.width, w.height = w.queued[0][0], w.queued[0][1]
		w.queued = w.queued[1:]
	}
}

func (w *fakeWindow) RequiredInstanceExtensions() []string {
	return []string{"VK_KHR_surface"}
}

func (w *fakeWindow) CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error) {
	return 1, nil
}

// fakeUI records what the presenter asks of the UI backend.
type fakeUI struct {
	draws        int
	fontUploads  int
	fontFails    bool
	fontReleased bool
	rejectAdds   bool
	nextID       TextureID
	textures     map[TextureID]ImageView
}

func newFakeUI() *fakeUI {
	return &fakeUI{textures: make(map[TextureID]ImageView)}
}

func (ui *fakeUI) RenderDrawData(data DrawData, cb CommandBuffer) { ui.draws++ }

func (ui *fakeUI) CreateFontsTexture(cb CommandBuffer) bool {
	ui.fontUploads++
	return !ui.fontFails
}

func (ui *fakeUI) DestroyFontUploadObjects() { ui.fontReleased = true }

func (ui *fakeUI) AddTexture(sampler Sampler, view ImageView, layout vk.ImageLayout) TextureID {
	if ui.rejectAdds {
		return 0
	}
	ui.nextID++
	ui.textures[ui.nextID] = view
	return ui.nextID
}

func (ui *fakeUI) RemoveTexture(id TextureID) { delete(ui.textures, id) }
