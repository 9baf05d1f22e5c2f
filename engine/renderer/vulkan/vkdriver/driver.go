// Package vkdriver implements the renderer's GPU interface on top of the
// goki/vulkan bindings.
package vkdriver

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkpresent/engine/core"
	"github.com/spaghettifunk/vkpresent/engine/renderer/vulkan"
)

const (
	portabilityEnumerationExtension = "VK_KHR_portability_enumeration"
	physicalDeviceProperties2       = "VK_KHR_get_physical_device_properties2"
	portabilityEnumerationBit       = 0x00000001
)

// table maps opaque renderer handles onto binding handles. Handle 0 is never issued.
type table[T any] struct {
	next  uint64
	items map[uint64]T
}

func newTable[T any]() *table[T] {
	return &table[T]{items: make(map[uint64]T)}
}

func (t *table[T]) put(v T) uint64 {
	t.next++
	t.items[t.next] = v
	return t.next
}

func (t *table[T]) get(h uint64) T {
	return t.items[h]
}

func (t *table[T]) del(h uint64) {
	delete(t.items, h)
}

func (t *table[T]) len() int {
	return len(t.items)
}

// Driver is the production GPU. It must be used from the thread that owns the window.
type Driver struct {
	instances       *table[vk.Instance]
	debugCallbacks  *table[vk.DebugReportCallback]
	surfaces        *table[vk.Surface]
	physicalDevices *table[vk.PhysicalDevice]
	devices         *table[vk.Device]
	queues          *table[vk.Queue]
	swapchains      *table[vk.Swapchain]
	images          *table[vk.Image]
	imageViews      *table[vk.ImageView]
	renderPasses    *table[vk.RenderPass]
	framebuffers    *table[vk.Framebuffer]
	commandPools    *table[vk.CommandPool]
	commandBuffers  *table[vk.CommandBuffer]
	semaphores      *table[vk.Semaphore]
	fences          *table[vk.Fence]
	descriptorPools *table[vk.DescriptorPool]
	buffers         *table[vk.Buffer]
	memories        *table[vk.DeviceMemory]
	samplers        *table[vk.Sampler]

	// swapchain images are owned by their swapchain
	swapchainImages map[vulkan.Swapchain][]vulkan.Image
}

var _ vulkan.GPU = (*Driver)(nil)

// New loads the Vulkan entry points through procAddr, normally
// platform.InstanceProcAddress().
func New(procAddr unsafe.Pointer) (*Driver, error) {
	if procAddr == nil {
		return nil, errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize vk")
	}
	return &Driver{
		instances:       newTable[vk.Instance](),
		debugCallbacks:  newTable[vk.DebugReportCallback](),
		surfaces:        newTable[vk.Surface](),
		physicalDevices: newTable[vk.PhysicalDevice](),
		devices:         newTable[vk.Device](),
		queues:          newTable[vk.Queue](),
		swapchains:      newTable[vk.Swapchain](),
		images:          newTable[vk.Image](),
		imageViews:      newTable[vk.ImageView](),
		renderPasses:    newTable[vk.RenderPass](),
		framebuffers:    newTable[vk.Framebuffer](),
		commandPools:    newTable[vk.CommandPool](),
		commandBuffers:  newTable[vk.CommandBuffer](),
		semaphores:      newTable[vk.Semaphore](),
		fences:          newTable[vk.Fence](),
		descriptorPools: newTable[vk.DescriptorPool](),
		buffers:         newTable[vk.Buffer](),
		memories:        newTable[vk.DeviceMemory](),
		samplers:        newTable[vk.Sampler](),
		swapchainImages: make(map[vulkan.Swapchain][]vulkan.Image),
	}, nil
}

// Close reports objects that were never destroyed.
func (d *Driver) Close() {
	live := map[string]int{
		"image views":      d.imageViews.len(),
		"framebuffers":     d.framebuffers.len(),
		"command buffers":  d.commandBuffers.len(),
		"semaphores":       d.semaphores.len(),
		"fences":           d.fences.len(),
		"buffers":          d.buffers.len(),
		"device memories":  d.memories.len(),
		"samplers":         d.samplers.len(),
		"swapchains":       d.swapchains.len(),
		"devices":          d.devices.len(),
		"descriptor pools": d.descriptorPools.len(),
	}
	for kind, n := range live {
		if n > 0 {
			core.LogWarn("vkdriver closed with %d live %s", n, kind)
		}
	}
}

// Raw accessors for UI backends that talk to the bindings directly.

func (d *Driver) RawInstance(h vulkan.Instance) vk.Instance {
	return d.instances.get(uint64(h))
}

func (d *Driver) RawPhysicalDevice(h vulkan.PhysicalDevice) vk.PhysicalDevice {
	return d.physicalDevices.get(uint64(h))
}

func (d *Driver) RawDevice(h vulkan.Device) vk.Device {
	return d.devices.get(uint64(h))
}

func (d *Driver) RawQueue(h vulkan.Queue) vk.Queue {
	return d.queues.get(uint64(h))
}

func (d *Driver) RawRenderPass(h vulkan.RenderPass) vk.RenderPass {
	return d.renderPasses.get(uint64(h))
}

func (d *Driver) RawCommandBuffer(h vulkan.CommandBuffer) vk.CommandBuffer {
	return d.commandBuffers.get(uint64(h))
}

func (d *Driver) RawDescriptorPool(h vulkan.DescriptorPool) vk.DescriptorPool {
	return d.descriptorPools.get(uint64(h))
}

func (d *Driver) RawSampler(h vulkan.Sampler) vk.Sampler {
	return d.samplers.get(uint64(h))
}

func (d *Driver) RawImageView(h vulkan.ImageView) vk.ImageView {
	return d.imageViews.get(uint64(h))
}

// Instance

func (d *Driver) InstanceLayers() ([]string, vk.Result) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, res
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return nil, res
	}
	names := make([]string, 0, count)
	for i := range available {
		available[i].Deref()
		end := FindFirstZeroInByteArray(available[i].LayerName[:])
		names = append(names, vk.ToString(available[i].LayerName[:end+1]))
	}
	return names, vk.Success
}

func (d *Driver) CreateInstance(info vulkan.InstanceInfo) (vulkan.Instance, vk.Result) {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         info.APIVersion,
		ApplicationVersion: info.ApplicationVersion,
		PApplicationName:   VulkanSafeString(info.ApplicationName),
		EngineVersion:      info.EngineVersion,
		PEngineName:        VulkanSafeString(info.EngineName),
	}

	extensions := append([]string(nil), info.Extensions...)
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}
	if runtime.GOOS == "darwin" {
		extensions = append(extensions, portabilityEnumerationExtension, physicalDeviceProperties2)
		createInfo.Flags |= portabilityEnumerationBit
	}
	layers := append([]string(nil), info.Layers...)

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		return 0, res
	}
	if err := vk.InitInstance(instance); err != nil {
		core.LogError("vk.InitInstance failed: %s", err)
		vk.DestroyInstance(instance, nil)
		return 0, vk.ErrorInitializationFailed
	}
	return vulkan.Instance(d.instances.put(instance)), vk.Success
}

func (d *Driver) DestroyInstance(instance vulkan.Instance) {
	vk.DestroyInstance(d.instances.get(uint64(instance)), nil)
	d.instances.del(uint64(instance))
}

func (d *Driver) CreateDebugCallback(instance vulkan.Instance, flags vk.DebugReportFlags, fn vulkan.DebugFunc) (vulkan.DebugCallback, vk.Result) {
	createInfo := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: flags,
		PfnCallback: func(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
			fn(flags, pLayerPrefix, messageCode, pMessage)
			return vk.False
		},
	}
	var callback vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(d.instances.get(uint64(instance)), &createInfo, nil, &callback); res != vk.Success {
		return 0, res
	}
	return vulkan.DebugCallback(d.debugCallbacks.put(callback)), vk.Success
}

func (d *Driver) DestroyDebugCallback(instance vulkan.Instance, callback vulkan.DebugCallback) {
	vk.DestroyDebugReportCallback(d.instances.get(uint64(instance)), d.debugCallbacks.get(uint64(callback)), nil)
	d.debugCallbacks.del(uint64(callback))
}

func (d *Driver) CreateSurface(instance vulkan.Instance, window vulkan.Window) (vulkan.Surface, vk.Result) {
	ptr, err := window.CreateWindowSurface(d.instances.get(uint64(instance)), nil)
	if err != nil || ptr == 0 {
		core.LogError("Vulkan surface creation failed: %v", err)
		return 0, vk.ErrorInitializationFailed
	}
	return vulkan.Surface(d.surfaces.put(vk.SurfaceFromPointer(ptr))), vk.Success
}

func (d *Driver) DestroySurface(instance vulkan.Instance, surface vulkan.Surface) {
	vk.DestroySurface(d.instances.get(uint64(instance)), d.surfaces.get(uint64(surface)), nil)
	d.surfaces.del(uint64(surface))
}

// Physical devices

func (d *Driver) PhysicalDevices(instance vulkan.Instance) ([]vulkan.PhysicalDevice, vk.Result) {
	raw := d.instances.get(uint64(instance))
	var count uint32
	if res := vk.EnumeratePhysicalDevices(raw, &count, nil); res != vk.Success {
		return nil, res
	}
	devices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(raw, &count, devices); res != vk.Success {
		return nil, res
	}
	handles := make([]vulkan.PhysicalDevice, 0, count)
	for _, device := range devices {
		handles = append(handles, vulkan.PhysicalDevice(d.physicalDevices.put(device)))
	}
	return handles, vk.Success
}

func (d *Driver) PhysicalDeviceInfo(pd vulkan.PhysicalDevice) vulkan.PhysicalDeviceInfo {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(d.physicalDevices.get(uint64(pd)), &properties)
	properties.Deref()
	end := FindFirstZeroInByteArray(properties.DeviceName[:])
	return vulkan.PhysicalDeviceInfo{
		Name:          vk.ToString(properties.DeviceName[:end+1]),
		Type:          properties.DeviceType,
		APIVersion:    properties.ApiVersion,
		DriverVersion: properties.DriverVersion,
	}
}

func (d *Driver) QueueFamilies(pd vulkan.PhysicalDevice) []vk.QueueFamilyProperties {
	raw := d.physicalDevices.get(uint64(pd))
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(raw, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(raw, &count, families)
	for i := range families {
		families[i].Deref()
	}
	return families
}

func (d *Driver) SurfaceSupport(pd vulkan.PhysicalDevice, family uint32, surface vulkan.Surface) (bool, vk.Result) {
	var supported vk.Bool32
	res := vk.GetPhysicalDeviceSurfaceSupport(d.physicalDevices.get(uint64(pd)), family, d.surfaces.get(uint64(surface)), &supported)
	return supported == vk.True, res
}

func (d *Driver) DeviceExtensions(pd vulkan.PhysicalDevice) ([]string, vk.Result) {
	raw := d.physicalDevices.get(uint64(pd))
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(raw, "", &count, nil); res != vk.Success {
		return nil, res
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(raw, "", &count, available); res != vk.Success {
		return nil, res
	}
	names := make([]string, 0, count)
	for i := range available {
		available[i].Deref()
		end := FindFirstZeroInByteArray(available[i].ExtensionName[:])
		names = append(names, vk.ToString(available[i].ExtensionName[:end+1]))
	}
	return names, vk.Success
}

func (d *Driver) Features(pd vulkan.PhysicalDevice) vk.PhysicalDeviceFeatures {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(d.physicalDevices.get(uint64(pd)), &features)
	features.Deref()
	return features
}

func (d *Driver) SurfaceCapabilities(pd vulkan.PhysicalDevice, surface vulkan.Surface) (vk.SurfaceCapabilities, vk.Result) {
	var capabilities vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(d.physicalDevices.get(uint64(pd)), d.surfaces.get(uint64(surface)), &capabilities)
	if res != vk.Success {
		return capabilities, res
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()
	return capabilities, vk.Success
}

func (d *Driver) SurfaceFormats(pd vulkan.PhysicalDevice, surface vulkan.Surface) ([]vk.SurfaceFormat, vk.Result) {
	rawPd, rawSurface := d.physicalDevices.get(uint64(pd)), d.surfaces.get(uint64(surface))
	var count uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(rawPd, rawSurface, &count, nil); res != vk.Success {
		return nil, res
	}
	formats := make([]vk.SurfaceFormat, count)
	if count == 0 {
		return formats, vk.Success
	}
	if res := vk.GetPhysicalDeviceSurfaceFormats(rawPd, rawSurface, &count, formats); res != vk.Success {
		return nil, res
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats, vk.Success
}

func (d *Driver) SurfacePresentModes(pd vulkan.PhysicalDevice, surface vulkan.Surface) ([]vk.PresentMode, vk.Result) {
	rawPd, rawSurface := d.physicalDevices.get(uint64(pd)), d.surfaces.get(uint64(surface))
	var count uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(rawPd, rawSurface, &count, nil); res != vk.Success {
		return nil, res
	}
	modes := make([]vk.PresentMode, count)
	if count == 0 {
		return modes, vk.Success
	}
	if res := vk.GetPhysicalDeviceSurfacePresentModes(rawPd, rawSurface, &count, modes); res != vk.Success {
		return nil, res
	}
	return modes, vk.Success
}

func (d *Driver) MemoryTypes(pd vulkan.PhysicalDevice) []vk.MemoryType {
	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.physicalDevices.get(uint64(pd)), &memory)
	memory.Deref()
	types := make([]vk.MemoryType, memory.MemoryTypeCount)
	for i := range types {
		memory.MemoryTypes[i].Deref()
		types[i] = memory.MemoryTypes[i]
	}
	return types
}

// Device

func (d *Driver) CreateDevice(pd vulkan.PhysicalDevice, info vulkan.DeviceInfo) (vulkan.Device, vk.Result) {
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, 0, len(info.QueueFamilies))
	for _, family := range info.QueueFamilies {
		queueCreateInfos = append(queueCreateInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	// Request device features.
	deviceFeatures := vk.PhysicalDeviceFeatures{}
	if info.SamplerAnisotropy {
		deviceFeatures.SamplerAnisotropy = vk.True
	}

	extensions := append([]string(nil), info.Extensions...)
	layers := append([]string(nil), info.Layers...)

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     VulkanSafeStrings(layers),
	}

	var device vk.Device
	if res := vk.CreateDevice(d.physicalDevices.get(uint64(pd)), &deviceCreateInfo, nil, &device); res != vk.Success {
		return 0, res
	}
	return vulkan.Device(d.devices.put(device)), vk.Success
}

func (d *Driver) DestroyDevice(device vulkan.Device) {
	vk.DestroyDevice(d.devices.get(uint64(device)), nil)
	d.devices.del(uint64(device))
}

func (d *Driver) GetQueue(device vulkan.Device, family, index uint32) vulkan.Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(d.devices.get(uint64(device)), family, index, &queue)
	return vulkan.Queue(d.queues.put(queue))
}

func (d *Driver) DeviceWaitIdle(device vulkan.Device) vk.Result {
	return vk.DeviceWaitIdle(d.devices.get(uint64(device)))
}

// Swapchain

func (d *Driver) CreateSwapchain(device vulkan.Device, info vulkan.SwapchainInfo) (vulkan.Swapchain, vk.Result) {
	createInfo := vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               d.surfaces.get(uint64(info.Surface)),
		MinImageCount:         info.MinImageCount,
		ImageFormat:           info.Format,
		ImageColorSpace:       info.ColorSpace,
		ImageExtent:           info.Extent,
		ImageArrayLayers:      1,
		ImageUsage:            info.Usage,
		ImageSharingMode:      info.SharingMode,
		QueueFamilyIndexCount: uint32(len(info.QueueFamilies)),
		PQueueFamilyIndices:   info.QueueFamilies,
		PreTransform:          info.PreTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           info.PresentMode,
		Clipped:               vk.True,
	}
	if info.OldSwapchain != 0 {
		createInfo.OldSwapchain = d.swapchains.get(uint64(info.OldSwapchain))
	}

	var swapchain vk.Swapchain
	if res := vk.CreateSwapchain(d.devices.get(uint64(device)), &createInfo, nil, &swapchain); res != vk.Success {
		return 0, res
	}
	return vulkan.Swapchain(d.swapchains.put(swapchain)), vk.Success
}

func (d *Driver) DestroySwapchain(device vulkan.Device, swapchain vulkan.Swapchain) {
	for _, image := range d.swapchainImages[swapchain] {
		d.images.del(uint64(image))
	}
	delete(d.swapchainImages, swapchain)
	vk.DestroySwapchain(d.devices.get(uint64(device)), d.swapchains.get(uint64(swapchain)), nil)
	d.swapchains.del(uint64(swapchain))
}

func (d *Driver) SwapchainImages(device vulkan.Device, swapchain vulkan.Swapchain) ([]vulkan.Image, vk.Result) {
	if images, ok := d.swapchainImages[swapchain]; ok {
		return images, vk.Success
	}
	rawDevice, rawSwapchain := d.devices.get(uint64(device)), d.swapchains.get(uint64(swapchain))
	var count uint32
	if res := vk.GetSwapchainImages(rawDevice, rawSwapchain, &count, nil); res != vk.Success {
		return nil, res
	}
	raw := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(rawDevice, rawSwapchain, &count, raw); res != vk.Success {
		return nil, res
	}
	images := make([]vulkan.Image, 0, count)
	for _, image := range raw {
		images = append(images, vulkan.Image(d.images.put(image)))
	}
	d.swapchainImages[swapchain] = images
	return images, vk.Success
}

func (d *Driver) AcquireNextImage(device vulkan.Device, swapchain vulkan.Swapchain, timeout uint64, semaphore vulkan.Semaphore) (uint32, vk.Result) {
	var imageIndex uint32
	res := vk.AcquireNextImage(
		d.devices.get(uint64(device)),
		d.swapchains.get(uint64(swapchain)),
		timeout,
		d.semaphores.get(uint64(semaphore)),
		vk.Fence(vk.NullHandle),
		&imageIndex,
	)
	return imageIndex, res
}

func (d *Driver) QueuePresent(queue vulkan.Queue, swapchain vulkan.Swapchain, imageIndex uint32, wait []vulkan.Semaphore) vk.Result {
	waitSemaphores := d.rawSemaphores(wait)
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waitSemaphores)),
		PWaitSemaphores:    waitSemaphores,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{d.swapchains.get(uint64(swapchain))},
		PImageIndices:      []uint32{imageIndex},
	}
	return vk.QueuePresent(d.queues.get(uint64(queue)), &presentInfo)
}

// Views, passes, framebuffers

func (d *Driver) CreateImageView(device vulkan.Device, info vulkan.ImageViewInfo) (vulkan.ImageView, vk.Result) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    d.images.get(uint64(info.Image)),
		ViewType: vk.ImageViewType2d,
		Format:   info.Format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     info.Aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(d.devices.get(uint64(device)), &viewInfo, nil, &view); res != vk.Success {
		return 0, res
	}
	return vulkan.ImageView(d.imageViews.put(view)), vk.Success
}

func (d *Driver) DestroyImageView(device vulkan.Device, view vulkan.ImageView) {
	vk.DestroyImageView(d.devices.get(uint64(device)), d.imageViews.get(uint64(view)), nil)
	d.imageViews.del(uint64(view))
}

func (d *Driver) CreateRenderPass(device vulkan.Device, info vulkan.RenderPassInfo) (vulkan.RenderPass, vk.Result) {
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(info.ColorRefs)),
		PColorAttachments:    info.ColorRefs,
	}
	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(info.Attachments)),
		PAttachments:    info.Attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(info.Dependencies)),
		PDependencies:   info.Dependencies,
	}
	var pass vk.RenderPass
	if res := vk.CreateRenderPass(d.devices.get(uint64(device)), &createInfo, nil, &pass); res != vk.Success {
		return 0, res
	}
	return vulkan.RenderPass(d.renderPasses.put(pass)), vk.Success
}

func (d *Driver) DestroyRenderPass(device vulkan.Device, pass vulkan.RenderPass) {
	vk.DestroyRenderPass(d.devices.get(uint64(device)), d.renderPasses.get(uint64(pass)), nil)
	d.renderPasses.del(uint64(pass))
}

func (d *Driver) CreateFramebuffer(device vulkan.Device, pass vulkan.RenderPass, attachments []vulkan.ImageView, width, height uint32) (vulkan.Framebuffer, vk.Result) {
	views := make([]vk.ImageView, 0, len(attachments))
	for _, attachment := range attachments {
		views = append(views, d.imageViews.get(uint64(attachment)))
	}
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      d.renderPasses.get(uint64(pass)),
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	var framebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(d.devices.get(uint64(device)), &createInfo, nil, &framebuffer); res != vk.Success {
		return 0, res
	}
	return vulkan.Framebuffer(d.framebuffers.put(framebuffer)), vk.Success
}

func (d *Driver) DestroyFramebuffer(device vulkan.Device, framebuffer vulkan.Framebuffer) {
	vk.DestroyFramebuffer(d.devices.get(uint64(device)), d.framebuffers.get(uint64(framebuffer)), nil)
	d.framebuffers.del(uint64(framebuffer))
}

// Command pools and buffers

func (d *Driver) CreateCommandPool(device vulkan.Device, family uint32, flags vk.CommandPoolCreateFlags) (vulkan.CommandPool, vk.Result) {
	createInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            flags,
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(d.devices.get(uint64(device)), &createInfo, nil, &pool); res != vk.Success {
		return 0, res
	}
	return vulkan.CommandPool(d.commandPools.put(pool)), vk.Success
}

func (d *Driver) ResetCommandPool(device vulkan.Device, pool vulkan.CommandPool) vk.Result {
	return vk.ResetCommandPool(d.devices.get(uint64(device)), d.commandPools.get(uint64(pool)), 0)
}

func (d *Driver) DestroyCommandPool(device vulkan.Device, pool vulkan.CommandPool) {
	vk.DestroyCommandPool(d.devices.get(uint64(device)), d.commandPools.get(uint64(pool)), nil)
	d.commandPools.del(uint64(pool))
}

func (d *Driver) AllocateCommandBuffers(device vulkan.Device, pool vulkan.CommandPool, level vk.CommandBufferLevel, count uint32) ([]vulkan.CommandBuffer, vk.Result) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.commandPools.get(uint64(pool)),
		Level:              level,
		CommandBufferCount: count,
	}
	raw := make([]vk.CommandBuffer, count)
	if res := vk.AllocateCommandBuffers(d.devices.get(uint64(device)), &allocateInfo, raw); res != vk.Success {
		return nil, res
	}
	buffers := make([]vulkan.CommandBuffer, 0, count)
	for _, cb := range raw {
		buffers = append(buffers, vulkan.CommandBuffer(d.commandBuffers.put(cb)))
	}
	return buffers, vk.Success
}

func (d *Driver) FreeCommandBuffers(device vulkan.Device, pool vulkan.CommandPool, buffers []vulkan.CommandBuffer) {
	raw := make([]vk.CommandBuffer, 0, len(buffers))
	for _, cb := range buffers {
		raw = append(raw, d.commandBuffers.get(uint64(cb)))
		d.commandBuffers.del(uint64(cb))
	}
	vk.FreeCommandBuffers(d.devices.get(uint64(device)), d.commandPools.get(uint64(pool)), uint32(len(raw)), raw)
}

func (d *Driver) BeginCommandBuffer(cb vulkan.CommandBuffer, flags vk.CommandBufferUsageFlags) vk.Result {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}
	return vk.BeginCommandBuffer(d.commandBuffers.get(uint64(cb)), &beginInfo)
}

func (d *Driver) EndCommandBuffer(cb vulkan.CommandBuffer) vk.Result {
	return vk.EndCommandBuffer(d.commandBuffers.get(uint64(cb)))
}

func (d *Driver) CmdBeginRenderPass(cb vulkan.CommandBuffer, begin vulkan.RenderPassBegin) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      d.renderPasses.get(uint64(begin.RenderPass)),
		Framebuffer:     d.framebuffers.get(uint64(begin.Framebuffer)),
		RenderArea:      begin.Area,
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{vk.NewClearValue(begin.ClearColor[:])},
	}
	vk.CmdBeginRenderPass(d.commandBuffers.get(uint64(cb)), &beginInfo, vk.SubpassContentsInline)
}

func (d *Driver) CmdEndRenderPass(cb vulkan.CommandBuffer) {
	vk.CmdEndRenderPass(d.commandBuffers.get(uint64(cb)))
}

func (d *Driver) CmdPipelineBarrier(cb vulkan.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, barrier vulkan.ImageBarrier) {
	imageBarrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       barrier.SrcAccess,
		DstAccessMask:       barrier.DstAccess,
		OldLayout:           barrier.OldLayout,
		NewLayout:           barrier.NewLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               d.images.get(uint64(barrier.Image)),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     barrier.Aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	vk.CmdPipelineBarrier(
		d.commandBuffers.get(uint64(cb)),
		srcStage, dstStage,
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{imageBarrier},
	)
}

func (d *Driver) CmdCopyBufferToImage(cb vulkan.CommandBuffer, src vulkan.Buffer, dst vulkan.Image, layout vk.ImageLayout, region vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(
		d.commandBuffers.get(uint64(cb)),
		d.buffers.get(uint64(src)),
		d.images.get(uint64(dst)),
		layout,
		1, []vk.BufferImageCopy{region},
	)
}

func (d *Driver) QueueSubmit(queue vulkan.Queue, submits []vulkan.SubmitInfo, fence vulkan.Fence) vk.Result {
	raw := make([]vk.SubmitInfo, 0, len(submits))
	for _, submit := range submits {
		waits := d.rawSemaphores(submit.WaitSemaphores)
		signals := d.rawSemaphores(submit.SignalSemaphores)
		buffers := make([]vk.CommandBuffer, 0, len(submit.CommandBuffers))
		for _, cb := range submit.CommandBuffers {
			buffers = append(buffers, d.commandBuffers.get(uint64(cb)))
		}
		raw = append(raw, vk.SubmitInfo{
			SType:                vk.StructureTypeSubmitInfo,
			WaitSemaphoreCount:   uint32(len(waits)),
			PWaitSemaphores:      waits,
			PWaitDstStageMask:    submit.WaitStages,
			CommandBufferCount:   uint32(len(buffers)),
			PCommandBuffers:      buffers,
			SignalSemaphoreCount: uint32(len(signals)),
			PSignalSemaphores:    signals,
		})
	}
	rawFence := vk.Fence(vk.NullHandle)
	if fence != 0 {
		rawFence = d.fences.get(uint64(fence))
	}
	return vk.QueueSubmit(d.queues.get(uint64(queue)), uint32(len(raw)), raw, rawFence)
}

func (d *Driver) QueueWaitIdle(queue vulkan.Queue) vk.Result {
	return vk.QueueWaitIdle(d.queues.get(uint64(queue)))
}

// Synchronization

func (d *Driver) CreateSemaphore(device vulkan.Device) (vulkan.Semaphore, vk.Result) {
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(d.devices.get(uint64(device)), &createInfo, nil, &semaphore); res != vk.Success {
		return 0, res
	}
	return vulkan.Semaphore(d.semaphores.put(semaphore)), vk.Success
}

func (d *Driver) DestroySemaphore(device vulkan.Device, semaphore vulkan.Semaphore) {
	vk.DestroySemaphore(d.devices.get(uint64(device)), d.semaphores.get(uint64(semaphore)), nil)
	d.semaphores.del(uint64(semaphore))
}

func (d *Driver) CreateFence(device vulkan.Device, signaled bool) (vulkan.Fence, vk.Result) {
	createInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		createInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if res := vk.CreateFence(d.devices.get(uint64(device)), &createInfo, nil, &fence); res != vk.Success {
		return 0, res
	}
	return vulkan.Fence(d.fences.put(fence)), vk.Success
}

func (d *Driver) DestroyFence(device vulkan.Device, fence vulkan.Fence) {
	vk.DestroyFence(d.devices.get(uint64(device)), d.fences.get(uint64(fence)), nil)
	d.fences.del(uint64(fence))
}

func (d *Driver) WaitForFences(device vulkan.Device, fences []vulkan.Fence, waitAll bool, timeout uint64) vk.Result {
	raw := d.rawFences(fences)
	all := vk.Bool32(vk.False)
	if waitAll {
		all = vk.True
	}
	return vk.WaitForFences(d.devices.get(uint64(device)), uint32(len(raw)), raw, all, timeout)
}

func (d *Driver) ResetFences(device vulkan.Device, fences []vulkan.Fence) vk.Result {
	raw := d.rawFences(fences)
	return vk.ResetFences(d.devices.get(uint64(device)), uint32(len(raw)), raw)
}

// Descriptor pools

func (d *Driver) CreateDescriptorPool(device vulkan.Device, flags vk.DescriptorPoolCreateFlags, maxSets uint32, sizes []vk.DescriptorPoolSize) (vulkan.DescriptorPool, vk.Result) {
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         flags,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(d.devices.get(uint64(device)), &createInfo, nil, &pool); res != vk.Success {
		return 0, res
	}
	return vulkan.DescriptorPool(d.descriptorPools.put(pool)), vk.Success
}

func (d *Driver) DestroyDescriptorPool(device vulkan.Device, pool vulkan.DescriptorPool) {
	vk.DestroyDescriptorPool(d.devices.get(uint64(device)), d.descriptorPools.get(uint64(pool)), nil)
	d.descriptorPools.del(uint64(pool))
}

// Buffers, images and memory

func (d *Driver) CreateBuffer(device vulkan.Device, size vk.DeviceSize, usage vk.BufferUsageFlags) (vulkan.Buffer, vk.Result) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive, // NOTE: Only used in one queue.
	}
	var buffer vk.Buffer
	if res := vk.CreateBuffer(d.devices.get(uint64(device)), &createInfo, nil, &buffer); res != vk.Success {
		return 0, res
	}
	return vulkan.Buffer(d.buffers.put(buffer)), vk.Success
}

func (d *Driver) DestroyBuffer(device vulkan.Device, buffer vulkan.Buffer) {
	vk.DestroyBuffer(d.devices.get(uint64(device)), d.buffers.get(uint64(buffer)), nil)
	d.buffers.del(uint64(buffer))
}

func (d *Driver) BufferMemoryRequirements(device vulkan.Device, buffer vulkan.Buffer) vk.MemoryRequirements {
	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.devices.get(uint64(device)), d.buffers.get(uint64(buffer)), &requirements)
	requirements.Deref()
	return requirements
}

func (d *Driver) CreateImage(device vulkan.Device, info vulkan.ImageInfo) (vulkan.Image, vk.Result) {
	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        info.Format,
		Tiling:        info.Tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         info.Usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}
	var image vk.Image
	if res := vk.CreateImage(d.devices.get(uint64(device)), &createInfo, nil, &image); res != vk.Success {
		return 0, res
	}
	return vulkan.Image(d.images.put(image)), vk.Success
}

func (d *Driver) DestroyImage(device vulkan.Device, image vulkan.Image) {
	vk.DestroyImage(d.devices.get(uint64(device)), d.images.get(uint64(image)), nil)
	d.images.del(uint64(image))
}

func (d *Driver) ImageMemoryRequirements(device vulkan.Device, image vulkan.Image) vk.MemoryRequirements {
	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.devices.get(uint64(device)), d.images.get(uint64(image)), &requirements)
	requirements.Deref()
	return requirements
}

func (d *Driver) AllocateMemory(device vulkan.Device, size vk.DeviceSize, typeIndex uint32) (vulkan.DeviceMemory, vk.Result) {
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  size,
		MemoryTypeIndex: typeIndex,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(d.devices.get(uint64(device)), &allocateInfo, nil, &memory); res != vk.Success {
		return 0, res
	}
	return vulkan.DeviceMemory(d.memories.put(memory)), vk.Success
}

func (d *Driver) FreeMemory(device vulkan.Device, memory vulkan.DeviceMemory) {
	vk.FreeMemory(d.devices.get(uint64(device)), d.memories.get(uint64(memory)), nil)
	d.memories.del(uint64(memory))
}

func (d *Driver) BindBufferMemory(device vulkan.Device, buffer vulkan.Buffer, memory vulkan.DeviceMemory) vk.Result {
	return vk.BindBufferMemory(d.devices.get(uint64(device)), d.buffers.get(uint64(buffer)), d.memories.get(uint64(memory)), 0)
}

func (d *Driver) BindImageMemory(device vulkan.Device, image vulkan.Image, memory vulkan.DeviceMemory) vk.Result {
	return vk.BindImageMemory(d.devices.get(uint64(device)), d.images.get(uint64(image)), d.memories.get(uint64(memory)), 0)
}

func (d *Driver) MapMemory(device vulkan.Device, memory vulkan.DeviceMemory, size vk.DeviceSize) ([]byte, vk.Result) {
	var data unsafe.Pointer
	if res := vk.MapMemory(d.devices.get(uint64(device)), d.memories.get(uint64(memory)), 0, size, 0, &data); res != vk.Success {
		return nil, res
	}
	return unsafe.Slice((*byte)(data), int(size)), vk.Success
}

func (d *Driver) UnmapMemory(device vulkan.Device, memory vulkan.DeviceMemory) {
	vk.UnmapMemory(d.devices.get(uint64(device)), d.memories.get(uint64(memory)))
}

// Samplers

func (d *Driver) CreateSampler(device vulkan.Device, info vk.SamplerCreateInfo) (vulkan.Sampler, vk.Result) {
	var sampler vk.Sampler
	if res := vk.CreateSampler(d.devices.get(uint64(device)), &info, nil, &sampler); res != vk.Success {
		return 0, res
	}
	return vulkan.Sampler(d.samplers.put(sampler)), vk.Success
}

func (d *Driver) DestroySampler(device vulkan.Device, sampler vulkan.Sampler) {
	vk.DestroySampler(d.devices.get(uint64(device)), d.samplers.get(uint64(sampler)), nil)
	d.samplers.del(uint64(sampler))
}

func (d *Driver) rawSemaphores(handles []vulkan.Semaphore) []vk.Semaphore {
	raw := make([]vk.Semaphore, 0, len(handles))
	for _, h := range handles {
		raw = append(raw, d.semaphores.get(uint64(h)))
	}
	return raw
}

func (d *Driver) rawFences(handles []vulkan.Fence) []vk.Fence {
	raw := make([]vk.Fence, 0, len(handles))
	for _, h := range handles {
		raw = append(raw, d.fences.get(uint64(h)))
	}
	return raw
}
