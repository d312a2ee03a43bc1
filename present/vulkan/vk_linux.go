//go:build vulkan && linux

package vulkan

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/c35s/hydra/present"
	"github.com/ebitengine/purego"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"golang.org/x/image/draw"
)

const compiled = true

func (r vkResult) Error() string {
	switch r {
	case vkErrorOutOfDate:
		return "VK_ERROR_OUT_OF_DATE_KHR"
	case vkErrorSurfaceLost:
		return "VK_ERROR_SURFACE_LOST_KHR"
	case vkErrorDeviceLost:
		return "VK_ERROR_DEVICE_LOST"
	case vkErrorInitFailed:
		return "VK_ERROR_INITIALIZATION_FAILED"
	case vkErrorIncompatible:
		return "VK_ERROR_INCOMPATIBLE_DRIVER"
	default:
		return fmt.Sprintf("VkResult(%d)", int32(r))
	}
}

func check(r vkResult, what string) error {
	if r == vkSuccess {
		return nil
	}

	return fmt.Errorf("vulkan: %s: %w", what, r)
}

// vk holds the loader and libxcb entry points.
var vk struct {
	once sync.Once
	err  error

	createInstance     func(*vkInstanceCreateInfo, unsafe.Pointer, *vkInstance) vkResult
	destroyInstance    func(vkInstance, unsafe.Pointer)
	enumerateDevices   func(vkInstance, *uint32, *vkPhysicalDevice) vkResult
	queueFamilies      func(vkPhysicalDevice, *uint32, *vkQueueFamilyProperties)
	memoryProperties   func(vkPhysicalDevice, *vkPhysicalDeviceMemoryProperties)
	createXcbSurface   func(vkInstance, *vkXcbSurfaceCreateInfo, unsafe.Pointer, *vkSurface) vkResult
	destroySurface     func(vkInstance, vkSurface, unsafe.Pointer)
	surfaceSupport     func(vkPhysicalDevice, uint32, vkSurface, *uint32) vkResult
	surfaceCaps        func(vkPhysicalDevice, vkSurface, *vkSurfaceCapabilities) vkResult
	surfaceFormats     func(vkPhysicalDevice, vkSurface, *uint32, *vkSurfaceFormat) vkResult
	presentModes       func(vkPhysicalDevice, vkSurface, *uint32, *uint32) vkResult
	createDevice       func(vkPhysicalDevice, *vkDeviceCreateInfo, unsafe.Pointer, *vkDevice) vkResult
	destroyDevice      func(vkDevice, unsafe.Pointer)
	deviceWaitIdle     func(vkDevice) vkResult
	getDeviceQueue     func(vkDevice, uint32, uint32, *vkQueue)
	createSwapchain    func(vkDevice, *vkSwapchainCreateInfo, unsafe.Pointer, *vkSwapchain) vkResult
	destroySwapchain   func(vkDevice, vkSwapchain, unsafe.Pointer)
	swapchainImages    func(vkDevice, vkSwapchain, *uint32, *vkImage) vkResult
	acquireNextImage   func(vkDevice, vkSwapchain, uint64, vkSemaphore, vkFence, *uint32) vkResult
	queuePresent       func(vkQueue, *vkPresentInfo) vkResult
	queueSubmit        func(vkQueue, uint32, *vkSubmitInfo, vkFence) vkResult
	createCommandPool  func(vkDevice, *vkCommandPoolCreateInfo, unsafe.Pointer, *vkCommandPool) vkResult
	destroyCommandPool func(vkDevice, vkCommandPool, unsafe.Pointer)
	allocateCommands   func(vkDevice, *vkCommandBufferAllocateInfo, *vkCommandBuffer) vkResult
	beginCommands      func(vkCommandBuffer, *vkCommandBufferBeginInfo) vkResult
	endCommands        func(vkCommandBuffer) vkResult
	resetCommands      func(vkCommandBuffer, uint32) vkResult
	cmdBarrier         func(vkCommandBuffer, uint32, uint32, uint32, uint32, unsafe.Pointer, uint32, unsafe.Pointer, uint32, *vkImageMemoryBarrier)
	cmdCopyToImage     func(vkCommandBuffer, vkBuffer, vkImage, uint32, uint32, *vkBufferImageCopy)
	createFence        func(vkDevice, *vkFlagsCreateInfo, unsafe.Pointer, *vkFence) vkResult
	destroyFence       func(vkDevice, vkFence, unsafe.Pointer)
	waitForFences      func(vkDevice, uint32, *vkFence, uint32, uint64) vkResult
	resetFences        func(vkDevice, uint32, *vkFence) vkResult
	createSemaphore    func(vkDevice, *vkFlagsCreateInfo, unsafe.Pointer, *vkSemaphore) vkResult
	destroySemaphore   func(vkDevice, vkSemaphore, unsafe.Pointer)
	createBuffer       func(vkDevice, *vkBufferCreateInfo, unsafe.Pointer, *vkBuffer) vkResult
	destroyBuffer      func(vkDevice, vkBuffer, unsafe.Pointer)
	bufferRequirements func(vkDevice, vkBuffer, *vkMemoryRequirements)
	allocateMemory     func(vkDevice, *vkMemoryAllocateInfo, unsafe.Pointer, *vkDeviceMemory) vkResult
	freeMemory         func(vkDevice, vkDeviceMemory, unsafe.Pointer)
	bindBufferMemory   func(vkDevice, vkBuffer, vkDeviceMemory, uint64) vkResult
	mapMemory          func(vkDevice, vkDeviceMemory, uint64, uint64, uint32, *unsafe.Pointer) vkResult
	unmapMemory        func(vkDevice, vkDeviceMemory)

	xcbConnect    func(*byte, *int32) uintptr
	xcbHasError   func(uintptr) int32
	xcbDisconnect func(uintptr)
}

func load() error {
	vk.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				vk.err = fmt.Errorf("vulkan: %v", r)
			}
		}()

		lib, err := purego.Dlopen(LoaderName, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			vk.err = err
			return
		}

		xcb, err := purego.Dlopen("libxcb.so.1", purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			vk.err = err
			return
		}

		fns := []struct {
			fn   any
			name string
		}{
			{&vk.createInstance, "vkCreateInstance"},
			{&vk.destroyInstance, "vkDestroyInstance"},
			{&vk.enumerateDevices, "vkEnumeratePhysicalDevices"},
			{&vk.queueFamilies, "vkGetPhysicalDeviceQueueFamilyProperties"},
			{&vk.memoryProperties, "vkGetPhysicalDeviceMemoryProperties"},
			{&vk.createXcbSurface, "vkCreateXcbSurfaceKHR"},
			{&vk.destroySurface, "vkDestroySurfaceKHR"},
			{&vk.surfaceSupport, "vkGetPhysicalDeviceSurfaceSupportKHR"},
			{&vk.surfaceCaps, "vkGetPhysicalDeviceSurfaceCapabilitiesKHR"},
			{&vk.surfaceFormats, "vkGetPhysicalDeviceSurfaceFormatsKHR"},
			{&vk.presentModes, "vkGetPhysicalDeviceSurfacePresentModesKHR"},
			{&vk.createDevice, "vkCreateDevice"},
			{&vk.destroyDevice, "vkDestroyDevice"},
			{&vk.deviceWaitIdle, "vkDeviceWaitIdle"},
			{&vk.getDeviceQueue, "vkGetDeviceQueue"},
			{&vk.createSwapchain, "vkCreateSwapchainKHR"},
			{&vk.destroySwapchain, "vkDestroySwapchainKHR"},
			{&vk.swapchainImages, "vkGetSwapchainImagesKHR"},
			{&vk.acquireNextImage, "vkAcquireNextImageKHR"},
			{&vk.queuePresent, "vkQueuePresentKHR"},
			{&vk.queueSubmit, "vkQueueSubmit"},
			{&vk.createCommandPool, "vkCreateCommandPool"},
			{&vk.destroyCommandPool, "vkDestroyCommandPool"},
			{&vk.allocateCommands, "vkAllocateCommandBuffers"},
			{&vk.beginCommands, "vkBeginCommandBuffer"},
			{&vk.endCommands, "vkEndCommandBuffer"},
			{&vk.resetCommands, "vkResetCommandBuffer"},
			{&vk.cmdBarrier, "vkCmdPipelineBarrier"},
			{&vk.cmdCopyToImage, "vkCmdCopyBufferToImage"},
			{&vk.createFence, "vkCreateFence"},
			{&vk.destroyFence, "vkDestroyFence"},
			{&vk.waitForFences, "vkWaitForFences"},
			{&vk.resetFences, "vkResetFences"},
			{&vk.createSemaphore, "vkCreateSemaphore"},
			{&vk.destroySemaphore, "vkDestroySemaphore"},
			{&vk.createBuffer, "vkCreateBuffer"},
			{&vk.destroyBuffer, "vkDestroyBuffer"},
			{&vk.bufferRequirements, "vkGetBufferMemoryRequirements"},
			{&vk.allocateMemory, "vkAllocateMemory"},
			{&vk.freeMemory, "vkFreeMemory"},
			{&vk.bindBufferMemory, "vkBindBufferMemory"},
			{&vk.mapMemory, "vkMapMemory"},
			{&vk.unmapMemory, "vkUnmapMemory"},
		}

		for _, f := range fns {
			purego.RegisterLibFunc(f.fn, lib, f.name)
		}

		purego.RegisterLibFunc(&vk.xcbConnect, xcb, "xcb_connect")
		purego.RegisterLibFunc(&vk.xcbHasError, xcb, "xcb_connection_has_error")
		purego.RegisterLibFunc(&vk.xcbDisconnect, xcb, "xcb_disconnect")
	})

	return vk.err
}

func probe() bool {
	err := load()
	if err != nil {
		slog.Debug("vulkan: loader unavailable", "err", err)
	}

	return err == nil
}

func cstr(s string) *byte {
	b := append([]byte(s), 0)
	return &b[0]
}

func cstrs(ss ...string) **byte {
	ps := make([]*byte, len(ss))
	for i, s := range ss {
		ps[i] = cstr(s)
	}

	return &ps[0]
}

type surface struct {
	x   *xgb.Conn
	win xproto.Window
	xcb uintptr

	instance vkInstance
	vsurf    vkSurface
	gpu      vkPhysicalDevice
	family   uint32
	device   vkDevice
	queue    vkQueue
	memProps vkPhysicalDeviceMemoryProperties
	format   vkSurfaceFormat
	mode     uint32

	pool     vkCommandPool
	cmd      vkCommandBuffer
	fence    vkFence
	acquired vkSemaphore
	rendered vkSemaphore

	swapchain vkSwapchain
	images    []vkImage
	extent    vkExtent2D
	stale     bool

	staging     vkBuffer
	stagingMem  vkDeviceMemory
	stagingSize uint64
	mapped      []byte

	scale int
	w, h  int // window size
	src   *image.RGBA

	teardown unwind
	closed   bool
}

func open(cfg present.Config) (present.Surface, error) {
	if err := load(); err != nil {
		return nil, err
	}

	s := surface{
		scale: cfg.Scale,
		w:     cfg.Width * cfg.Scale,
		h:     cfg.Height * cfg.Scale,
	}

	if err := s.init(cfg); err != nil {
		s.teardown.run()
		return nil, err
	}

	return &s, nil
}

func (s *surface) init(cfg present.Config) error {
	if err := s.openWindow(cfg.Title); err != nil {
		return err
	}

	s.xcb = vk.xcbConnect(nil, nil)
	if vk.xcbHasError(s.xcb) != 0 {
		vk.xcbDisconnect(s.xcb)
		return errors.New("vulkan: xcb connection failed")
	}

	s.teardown.push(func() { vk.xcbDisconnect(s.xcb) })

	app := vkApplicationInfo{
		SType:      stApplicationInfo,
		AppName:    cstr(cfg.Title),
		EngineName: cstr("hydra"),
		APIVersion: apiVersion10,
	}

	ici := vkInstanceCreateInfo{
		SType:          stInstanceCreateInfo,
		AppInfo:        &app,
		ExtensionCount: 2,
		Extensions:     cstrs("VK_KHR_surface", "VK_KHR_xcb_surface"),
	}

	if err := check(vk.createInstance(&ici, nil, &s.instance), "create instance"); err != nil {
		return err
	}

	s.teardown.push(func() { vk.destroyInstance(s.instance, nil) })

	sci := vkXcbSurfaceCreateInfo{
		SType:      stXcbSurfaceCreateInfoKHR,
		Connection: s.xcb,
		Window:     uint32(s.win),
	}

	if err := check(vk.createXcbSurface(s.instance, &sci, nil, &s.vsurf), "create surface"); err != nil {
		return err
	}

	s.teardown.push(func() { vk.destroySurface(s.instance, s.vsurf, nil) })

	if err := s.pickDevice(); err != nil {
		return err
	}

	if err := s.createDevice(); err != nil {
		return err
	}

	if err := s.chooseSurfaceFormat(cfg.VSync); err != nil {
		return err
	}

	if err := s.createCommands(); err != nil {
		return err
	}

	s.teardown.push(s.destroyStaging)
	s.teardown.push(s.destroySwapchain)

	return s.createSwapchain()
}

func (s *surface) openWindow(title string) error {
	x, err := xgb.NewConn()
	if err != nil {
		return err
	}

	s.x = x
	s.teardown.push(func() { s.x.Close() })

	screen := xproto.Setup(x).DefaultScreen(x)

	win, err := xproto.NewWindowId(x)
	if err != nil {
		return err
	}

	err = xproto.CreateWindowChecked(x, screen.RootDepth, win, screen.Root,
		0, 0, uint16(s.w), uint16(s.h), 0,
		xproto.WindowClassInputOutput, screen.RootVisual,
		xproto.CwBackPixel, []uint32{screen.BlackPixel},
	).Check()

	if err != nil {
		return fmt.Errorf("vulkan: create window: %w", err)
	}

	s.win = win
	s.teardown.push(func() { xproto.DestroyWindow(s.x, s.win) })

	xproto.ChangeProperty(x, xproto.PropModeReplace, win, xproto.AtomWmName, xproto.AtomString,
		8, uint32(len(title)), []byte(title))

	return xproto.MapWindowChecked(x, win).Check()
}

// pickDevice finds a device with a graphics queue that can present to
// the surface.
func (s *surface) pickDevice() error {
	var n uint32
	if err := check(vk.enumerateDevices(s.instance, &n, nil), "enumerate devices"); err != nil {
		return err
	}

	if n == 0 {
		return errors.New("vulkan: no physical devices")
	}

	gpus := make([]vkPhysicalDevice, n)
	if err := check(vk.enumerateDevices(s.instance, &n, &gpus[0]), "enumerate devices"); err != nil {
		return err
	}

	for _, gpu := range gpus[:n] {
		var nf uint32
		vk.queueFamilies(gpu, &nf, nil)
		if nf == 0 {
			continue
		}

		fams := make([]vkQueueFamilyProperties, nf)
		vk.queueFamilies(gpu, &nf, &fams[0])

		for i, f := range fams[:nf] {
			if f.QueueFlags&queueGraphics == 0 {
				continue
			}

			var ok uint32
			if vk.surfaceSupport(gpu, uint32(i), s.vsurf, &ok) == vkSuccess && ok != 0 {
				s.gpu, s.family = gpu, uint32(i)
				vk.memoryProperties(gpu, &s.memProps)
				return nil
			}
		}
	}

	return errors.New("vulkan: no device can present to the window")
}

func (s *surface) createDevice() error {
	prio := float32(1)

	qci := vkDeviceQueueCreateInfo{
		SType:      stDeviceQueueCreateInfo,
		Family:     s.family,
		Count:      1,
		Priorities: &prio,
	}

	dci := vkDeviceCreateInfo{
		SType:          stDeviceCreateInfo,
		QueueCount:     1,
		Queues:         &qci,
		ExtensionCount: 1,
		Extensions:     cstrs("VK_KHR_swapchain"),
	}

	if err := check(vk.createDevice(s.gpu, &dci, nil, &s.device), "create device"); err != nil {
		return err
	}

	s.teardown.push(func() { vk.destroyDevice(s.device, nil) })

	vk.getDeviceQueue(s.device, s.family, 0, &s.queue)
	return nil
}

func (s *surface) chooseSurfaceFormat(vsync bool) error {
	var n uint32
	if err := check(vk.surfaceFormats(s.gpu, s.vsurf, &n, nil), "surface formats"); err != nil {
		return err
	}

	if n == 0 {
		return errors.New("vulkan: surface has no formats")
	}

	fs := make([]vkSurfaceFormat, n)
	if err := check(vk.surfaceFormats(s.gpu, s.vsurf, &n, &fs[0]), "surface formats"); err != nil {
		return err
	}

	f, err := chooseFormat(fs[:n])
	if err != nil {
		return err
	}

	s.format = f

	var nm uint32
	var modes []uint32

	if vk.presentModes(s.gpu, s.vsurf, &nm, nil) == vkSuccess && nm > 0 {
		modes = make([]uint32, nm)
		vk.presentModes(s.gpu, s.vsurf, &nm, &modes[0])
	}

	s.mode = choosePresentMode(modes, vsync)
	return nil
}

func (s *surface) createCommands() error {
	pci := vkCommandPoolCreateInfo{
		SType:  stCommandPoolCreateInfo,
		Flags:  commandPoolResetBuffer,
		Family: s.family,
	}

	if err := check(vk.createCommandPool(s.device, &pci, nil, &s.pool), "create command pool"); err != nil {
		return err
	}

	s.teardown.push(func() { vk.destroyCommandPool(s.device, s.pool, nil) })

	cai := vkCommandBufferAllocateInfo{
		SType: stCommandBufferAllocateInfo,
		Pool:  s.pool,
		Level: commandBufferPrimary,
		Count: 1,
	}

	if err := check(vk.allocateCommands(s.device, &cai, &s.cmd), "allocate command buffer"); err != nil {
		return err
	}

	fci := vkFlagsCreateInfo{SType: stFenceCreateInfo, Flags: fenceSignaled}
	if err := check(vk.createFence(s.device, &fci, nil, &s.fence), "create fence"); err != nil {
		return err
	}

	s.teardown.push(func() { vk.destroyFence(s.device, s.fence, nil) })

	for _, sem := range []*vkSemaphore{&s.acquired, &s.rendered} {
		sci := vkFlagsCreateInfo{SType: stSemaphoreCreateInfo}
		if err := check(vk.createSemaphore(s.device, &sci, nil, sem), "create semaphore"); err != nil {
			return err
		}

		s.teardown.push(func() { vk.destroySemaphore(s.device, *sem, nil) })
	}

	return nil
}

// createSwapchain (re)creates the swapchain for the current window size.
func (s *surface) createSwapchain() error {
	var caps vkSurfaceCapabilities
	if err := check(vk.surfaceCaps(s.gpu, s.vsurf, &caps), "surface capabilities"); err != nil {
		return err
	}

	s.extent = chooseExtent(caps, uint32(s.w), uint32(s.h))
	s.stale = false

	if s.extent.Width == 0 || s.extent.Height == 0 {
		// Minimized; try again on the next frame.
		s.stale = true
		return nil
	}

	old := s.swapchain

	sci := vkSwapchainCreateInfo{
		SType:            stSwapchainCreateInfoKHR,
		Surface:          s.vsurf,
		MinImageCount:    chooseImageCount(caps),
		ImageFormat:      s.format.Format,
		ImageColorSpace:  s.format.ColorSpace,
		ImageExtent:      s.extent,
		ImageArrayLayers: 1,
		ImageUsage:       imageUsageTransferDst,
		SharingMode:      sharingExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   compositeAlphaOpaque,
		PresentMode:      s.mode,
		Clipped:          1,
		OldSwapchain:     old,
	}

	var sc vkSwapchain
	if err := check(vk.createSwapchain(s.device, &sci, nil, &sc), "create swapchain"); err != nil {
		return err
	}

	if old != 0 {
		vk.deviceWaitIdle(s.device)
		vk.destroySwapchain(s.device, old, nil)
	}

	s.swapchain = sc

	var n uint32
	if err := check(vk.swapchainImages(s.device, sc, &n, nil), "swapchain images"); err != nil {
		return err
	}

	s.images = make([]vkImage, n)
	if err := check(vk.swapchainImages(s.device, sc, &n, &s.images[0]), "swapchain images"); err != nil {
		return err
	}

	s.images = s.images[:n]

	slog.Debug("vulkan: swapchain", "width", s.extent.Width, "height", s.extent.Height, "images", n)
	return nil
}

func (s *surface) destroySwapchain() {
	if s.swapchain != 0 {
		vk.destroySwapchain(s.device, s.swapchain, nil)
		s.swapchain, s.images = 0, nil
	}
}

// growStaging makes the staging buffer hold at least need bytes.
func (s *surface) growStaging(need uint64) error {
	if need <= s.stagingSize {
		return nil
	}

	size := stagingSize(s.stagingSize, need)

	vk.deviceWaitIdle(s.device)
	s.destroyStaging()

	var u unwind

	bci := vkBufferCreateInfo{
		SType:       stBufferCreateInfo,
		Size:        size,
		Usage:       bufferUsageTransferSrc,
		SharingMode: sharingExclusive,
	}

	var buf vkBuffer
	if err := check(vk.createBuffer(s.device, &bci, nil, &buf), "create staging buffer"); err != nil {
		return err
	}

	u.push(func() { vk.destroyBuffer(s.device, buf, nil) })

	var req vkMemoryRequirements
	vk.bufferRequirements(s.device, buf, &req)

	idx, err := findMemoryType(&s.memProps, req.MemoryTypeBits, memoryHostVisible|memoryHostCoherent)
	if err != nil {
		u.run()
		return err
	}

	mai := vkMemoryAllocateInfo{
		SType:     stMemoryAllocateInfo,
		Size:      req.Size,
		TypeIndex: idx,
	}

	var mem vkDeviceMemory
	if err := check(vk.allocateMemory(s.device, &mai, nil, &mem), "allocate staging memory"); err != nil {
		u.run()
		return err
	}

	u.push(func() { vk.freeMemory(s.device, mem, nil) })

	if err := check(vk.bindBufferMemory(s.device, buf, mem, 0), "bind staging memory"); err != nil {
		u.run()
		return err
	}

	var p unsafe.Pointer
	if err := check(vk.mapMemory(s.device, mem, 0, size, 0, &p), "map staging memory"); err != nil {
		u.run()
		return err
	}

	s.staging, s.stagingMem, s.stagingSize = buf, mem, size
	s.mapped = unsafe.Slice((*byte)(p), size)

	slog.Debug("vulkan: staging buffer", "size", size)
	return nil
}

func (s *surface) destroyStaging() {
	if s.staging == 0 {
		return
	}

	vk.unmapMemory(s.device, s.stagingMem)
	vk.destroyBuffer(s.device, s.staging, nil)
	vk.freeMemory(s.device, s.stagingMem, nil)

	s.staging, s.stagingMem, s.stagingSize, s.mapped = 0, 0, 0, nil
}

func (s *surface) Present(f present.Frame) error {
	if s.closed {
		return present.ErrNotReady
	}

	if w, h := f.Width*s.scale, f.Height*s.scale; w != s.w || h != s.h {
		xproto.ConfigureWindow(s.x, s.win, xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
			[]uint32{uint32(w), uint32(h)})

		s.w, s.h = w, h
		s.stale = true
	}

	if s.stale {
		if err := s.createSwapchain(); err != nil {
			return err
		}

		if s.stale {
			return nil
		}
	}

	if err := check(vk.waitForFences(s.device, 1, &s.fence, 1, noTimeout), "wait for fence"); err != nil {
		return err
	}

	if err := s.growStaging(uint64(4 * s.w * s.h)); err != nil {
		return err
	}

	s.fill(f)

	var idx uint32
	switch r := vk.acquireNextImage(s.device, s.swapchain, noTimeout, s.acquired, 0, &idx); r {
	case vkSuccess, vkSuboptimal:
	case vkErrorOutOfDate:
		s.stale = true
		return nil
	default:
		return check(r, "acquire image")
	}

	if err := check(vk.resetFences(s.device, 1, &s.fence), "reset fence"); err != nil {
		return err
	}

	if err := s.record(s.images[idx]); err != nil {
		return err
	}

	stage := uint32(stageTransfer)
	si := vkSubmitInfo{
		SType:            stSubmitInfo,
		WaitCount:        1,
		WaitSemaphores:   &s.acquired,
		WaitStages:       &stage,
		CommandCount:     1,
		Commands:         &s.cmd,
		SignalCount:      1,
		SignalSemaphores: &s.rendered,
	}

	if err := check(vk.queueSubmit(s.queue, 1, &si, s.fence), "submit"); err != nil {
		return err
	}

	pi := vkPresentInfo{
		SType:          stPresentInfoKHR,
		WaitCount:      1,
		WaitSemaphores: &s.rendered,
		SwapchainCount: 1,
		Swapchains:     &s.swapchain,
		ImageIndices:   &idx,
	}

	switch r := vk.queuePresent(s.queue, &pi); r {
	case vkSuccess:
		return nil
	case vkSuboptimal, vkErrorOutOfDate:
		s.stale = true
		return nil
	default:
		return check(r, "present")
	}
}

// fill scales f into the staging buffer as a window-sized BGRA image.
func (s *surface) fill(f present.Frame) {
	if s.src == nil || s.src.Rect.Dx() != f.Width || s.src.Rect.Dy() != f.Height {
		s.src = image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	}

	present.PutBGRA(s.src.Pix, s.src.Stride, f.Width, f.Height, f)

	dst := image.RGBA{
		Pix:    s.mapped[:4*s.w*s.h],
		Stride: 4 * s.w,
		Rect:   image.Rect(0, 0, s.w, s.h),
	}

	draw.NearestNeighbor.Scale(&dst, dst.Rect, s.src, s.src.Rect, draw.Src, nil)
}

// record records the copy of the staging buffer into img.
func (s *surface) record(img vkImage) error {
	if err := check(vk.resetCommands(s.cmd, 0), "reset commands"); err != nil {
		return err
	}

	bi := vkCommandBufferBeginInfo{SType: stCommandBufferBeginInfo, Flags: commandBufferOneTime}
	if err := check(vk.beginCommands(s.cmd, &bi), "begin commands"); err != nil {
		return err
	}

	rng := vkImageSubresourceRange{AspectMask: aspectColor, LevelCount: 1, LayerCount: 1}

	toDst := vkImageMemoryBarrier{
		SType:     stImageMemoryBarrier,
		DstAccess: accessTransferWrite,
		OldLayout: layoutUndefined,
		NewLayout: layoutTransferDst,
		SrcFamily: ^uint32(0),
		DstFamily: ^uint32(0),
		Image:     img,
		Range:     rng,
	}

	vk.cmdBarrier(s.cmd, stageTopOfPipe, stageTransfer, 0, 0, nil, 0, nil, 1, &toDst)

	region := vkBufferImageCopy{
		BufferRowLength: uint32(s.w),
		Subresource:     vkImageSubresourceLayers{AspectMask: aspectColor, LayerCount: 1},
		ImageExtent: vkExtent3D{
			Width:  min(s.extent.Width, uint32(s.w)),
			Height: min(s.extent.Height, uint32(s.h)),
			Depth:  1,
		},
	}

	vk.cmdCopyToImage(s.cmd, s.staging, img, layoutTransferDst, 1, &region)

	toPresent := toDst
	toPresent.SrcAccess = accessTransferWrite
	toPresent.DstAccess = 0
	toPresent.OldLayout = layoutTransferDst
	toPresent.NewLayout = layoutPresentSrc

	vk.cmdBarrier(s.cmd, stageTransfer, stageBottomOfPipe, 0, 0, nil, 0, nil, 1, &toPresent)

	return check(vk.endCommands(s.cmd), "end commands")
}

func (s *surface) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true

	vk.deviceWaitIdle(s.device)
	s.teardown.run()

	return nil
}
