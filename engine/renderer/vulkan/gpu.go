package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Opaque object handles. The zero value is the null handle.
type (
	Instance       uint64
	DebugCallback  uint64
	Surface        uint64
	PhysicalDevice uint64
	Device         uint64
	Queue          uint64
	Swapchain      uint64
	Image          uint64
	ImageView      uint64
	RenderPass     uint64
	Framebuffer    uint64
	CommandPool    uint64
	CommandBuffer  uint64
	Semaphore      uint64
	Fence          uint64
	DescriptorPool uint64
	Buffer         uint64
	DeviceMemory   uint64
	Sampler        uint64
)

// Window is the presentation target the renderer draws into.
type Window interface {
	// FramebufferSize reports the drawable size in pixels.
	FramebufferSize() (width, height int)
	// WaitEvents blocks until at least one window event was processed.
	WaitEvents()
	RequiredInstanceExtensions() []string
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
}

// DebugFunc receives validation layer messages.
type DebugFunc func(flags vk.DebugReportFlags, layerPrefix string, code int32, message string)

type InstanceInfo struct {
	ApplicationName    string
	ApplicationVersion uint32
	EngineName         string
	EngineVersion      uint32
	APIVersion         uint32
	Extensions         []string
	Layers             []string
}

type PhysicalDeviceInfo struct {
	Name          string
	Type          vk.PhysicalDeviceType
	APIVersion    uint32
	DriverVersion uint32
}

type DeviceInfo struct {
	// QueueFamilies holds one entry per distinct family; one queue is created for each.
	QueueFamilies     []uint32
	Extensions        []string
	Layers            []string
	SamplerAnisotropy bool
}

type SwapchainInfo struct {
	Surface       Surface
	MinImageCount uint32
	Format        vk.Format
	ColorSpace    vk.ColorSpace
	Extent        vk.Extent2D
	Usage         vk.ImageUsageFlags
	SharingMode   vk.SharingMode
	QueueFamilies []uint32
	PreTransform  vk.SurfaceTransformFlagBits
	PresentMode   vk.PresentMode
	OldSwapchain  Swapchain
}

type ImageViewInfo struct {
	Image  Image
	Format vk.Format
	Aspect vk.ImageAspectFlags
}

type ImageInfo struct {
	Width, Height uint32
	Format        vk.Format
	Tiling        vk.ImageTiling
	Usage         vk.ImageUsageFlags
}

type RenderPassInfo struct {
	Attachments  []vk.AttachmentDescription
	ColorRefs    []vk.AttachmentReference
	Dependencies []vk.SubpassDependency
}

type RenderPassBegin struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	Area        vk.Rect2D
	ClearColor  [4]float32
}

type ImageBarrier struct {
	Image     Image
	OldLayout vk.ImageLayout
	NewLayout vk.ImageLayout
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags
	Aspect    vk.ImageAspectFlags
}

type SubmitInfo struct {
	WaitSemaphores   []Semaphore
	WaitStages       []vk.PipelineStageFlags
	CommandBuffers   []CommandBuffer
	SignalSemaphores []Semaphore
}

// GPU is the set of Vulkan entry points the renderer drives. Every method
// maps onto one Vulkan call (or a count/fill pair of calls); failures are
// reported as the raw vk.Result so callers decide how to react.
type GPU interface {
	InstanceLayers() ([]string, vk.Result)
	CreateInstance(info InstanceInfo) (Instance, vk.Result)
	DestroyInstance(instance Instance)
	CreateDebugCallback(instance Instance, flags vk.DebugReportFlags, fn DebugFunc) (DebugCallback, vk.Result)
	DestroyDebugCallback(instance Instance, callback DebugCallback)
	CreateSurface(instance Instance, window Window) (Surface, vk.Result)
	DestroySurface(instance Instance, surface Surface)

	PhysicalDevices(instance Instance) ([]PhysicalDevice, vk.Result)
	PhysicalDeviceInfo(pd PhysicalDevice) PhysicalDeviceInfo
	QueueFamilies(pd PhysicalDevice) []vk.QueueFamilyProperties
	SurfaceSupport(pd PhysicalDevice, family uint32, surface Surface) (bool, vk.Result)
	DeviceExtensions(pd PhysicalDevice) ([]string, vk.Result)
	Features(pd PhysicalDevice) vk.PhysicalDeviceFeatures
	SurfaceCapabilities(pd PhysicalDevice, surface Surface) (vk.SurfaceCapabilities, vk.Result)
	SurfaceFormats(pd PhysicalDevice, surface Surface) ([]vk.SurfaceFormat, vk.Result)
	SurfacePresentModes(pd PhysicalDevice, surface Surface) ([]vk.PresentMode, vk.Result)
	MemoryTypes(pd PhysicalDevice) []vk.MemoryType

	CreateDevice(pd PhysicalDevice, info DeviceInfo) (Device, vk.Result)
	DestroyDevice(device Device)
	GetQueue(device Device, family, index uint32) Queue
	DeviceWaitIdle(device Device) vk.Result

	CreateSwapchain(device Device, info SwapchainInfo) (Swapchain, vk.Result)
	DestroySwapchain(device Device, swapchain Swapchain)
	SwapchainImages(device Device, swapchain Swapchain) ([]Image, vk.Result)
	AcquireNextImage(device Device, swapchain Swapchain, timeout uint64, semaphore Semaphore) (uint32, vk.Result)
	QueuePresent(queue Queue, swapchain Swapchain, imageIndex uint32, wait []Semaphore) vk.Result

	CreateImageView(device Device, info ImageViewInfo) (ImageView, vk.Result)
	DestroyImageView(device Device, view ImageView)
	CreateRenderPass(device Device, info RenderPassInfo) (RenderPass, vk.Result)
	DestroyRenderPass(device Device, pass RenderPass)
	CreateFramebuffer(device Device, pass RenderPass, attachments []ImageView, width, height uint32) (Framebuffer, vk.Result)
	DestroyFramebuffer(device Device, framebuffer Framebuffer)

	CreateCommandPool(device Device, family uint32, flags vk.CommandPoolCreateFlags) (CommandPool, vk.Result)
	ResetCommandPool(device Device, pool CommandPool) vk.Result
	DestroyCommandPool(device Device, pool CommandPool)
	AllocateCommandBuffers(device Device, pool CommandPool, level vk.CommandBufferLevel, count uint32) ([]CommandBuffer, vk.Result)
	FreeCommandBuffers(device Device, pool CommandPool, buffers []CommandBuffer)
	BeginCommandBuffer(cb CommandBuffer, flags vk.CommandBufferUsageFlags) vk.Result
	EndCommandBuffer(cb CommandBuffer) vk.Result
	CmdBeginRenderPass(cb CommandBuffer, begin RenderPassBegin)
	CmdEndRenderPass(cb CommandBuffer)
	CmdPipelineBarrier(cb CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, barrier ImageBarrier)
	CmdCopyBufferToImage(cb CommandBuffer, src Buffer, dst Image, layout vk.ImageLayout, region vk.BufferImageCopy)
	QueueSubmit(queue Queue, submits []SubmitInfo, fence Fence) vk.Result
	QueueWaitIdle(queue Queue) vk.Result

	CreateSemaphore(device Device) (Semaphore, vk.Result)
	DestroySemaphore(device Device, semaphore Semaphore)
	CreateFence(device Device, signaled bool) (Fence, vk.Result)
	DestroyFence(device Device, fence Fence)
	WaitForFences(device Device, fences []Fence, waitAll bool, timeout uint64) vk.Result
	ResetFences(device Device, fences []Fence) vk.Result

	CreateDescriptorPool(device Device, flags vk.DescriptorPoolCreateFlags, maxSets uint32, sizes []vk.DescriptorPoolSize) (DescriptorPool, vk.Result)
	DestroyDescriptorPool(device Device, pool DescriptorPool)

	CreateBuffer(device Device, size vk.DeviceSize, usage vk.BufferUsageFlags) (Buffer, vk.Result)
	DestroyBuffer(device Device, buffer Buffer)
	BufferMemoryRequirements(device Device, buffer Buffer) vk.MemoryRequirements
	CreateImage(device Device, info ImageInfo) (Image, vk.Result)
	DestroyImage(device Device, image Image)
	ImageMemoryRequirements(device Device, image Image) vk.MemoryRequirements
	AllocateMemory(device Device, size vk.DeviceSize, typeIndex uint32) (DeviceMemory, vk.Result)
	FreeMemory(device Device, memory DeviceMemory)
	BindBufferMemory(device Device, buffer Buffer, memory DeviceMemory) vk.Result
	BindImageMemory(device Device, image Image, memory DeviceMemory) vk.Result
	// MapMemory returns a host view of size bytes valid until UnmapMemory.
	MapMemory(device Device, memory DeviceMemory, size vk.DeviceSize) ([]byte, vk.Result)
	UnmapMemory(device Device, memory DeviceMemory)

	CreateSampler(device Device, info vk.SamplerCreateInfo) (Sampler, vk.Result)
	DestroySampler(device Device, sampler Sampler)
}
