package vulkan

import "unsafe"

// Vulkan handles. Dispatchable handles are pointers, the rest are 64-bit.
type (
	vkInstance       uintptr
	vkPhysicalDevice uintptr
	vkDevice         uintptr
	vkQueue          uintptr
	vkCommandBuffer  uintptr

	vkSurface      uint64
	vkSwapchain    uint64
	vkImage        uint64
	vkBuffer       uint64
	vkDeviceMemory uint64
	vkCommandPool  uint64
	vkFence        uint64
	vkSemaphore    uint64
)

type vkResult int32

const (
	vkSuccess           vkResult = 0
	vkSuboptimal        vkResult = 1000001003
	vkErrorOutOfDate    vkResult = -1000001004
	vkErrorSurfaceLost  vkResult = -1000000000
	vkErrorDeviceLost   vkResult = -4
	vkErrorInitFailed   vkResult = -3
	vkErrorIncompatible vkResult = -9
)

// Structure types
const (
	stApplicationInfo           = 0
	stInstanceCreateInfo        = 1
	stDeviceQueueCreateInfo     = 2
	stDeviceCreateInfo          = 3
	stSubmitInfo                = 4
	stMemoryAllocateInfo        = 5
	stFenceCreateInfo           = 8
	stSemaphoreCreateInfo       = 9
	stBufferCreateInfo          = 12
	stCommandPoolCreateInfo     = 39
	stCommandBufferAllocateInfo = 40
	stCommandBufferBeginInfo    = 42
	stImageMemoryBarrier        = 45
	stSwapchainCreateInfoKHR    = 1000001000
	stPresentInfoKHR            = 1000001001
	stXcbSurfaceCreateInfoKHR   = 1000005000
)

const (
	apiVersion10 = 1 << 22

	formatB8G8R8A8Unorm = 44
	formatB8G8R8A8SRGB  = 50
	colorSpaceSRGB      = 0

	presentModeImmediate = 0
	presentModeMailbox   = 1
	presentModeFIFO      = 2

	queueGraphics = 0x1

	imageUsageTransferDst  = 0x2
	bufferUsageTransferSrc = 0x1
	compositeAlphaOpaque   = 0x1
	sharingExclusive       = 0

	memoryHostVisible  = 0x2
	memoryHostCoherent = 0x4

	layoutUndefined   = 0
	layoutTransferDst = 7
	layoutPresentSrc  = 1000001002

	accessTransferWrite = 0x1000
	stageTopOfPipe      = 0x1
	stageTransfer       = 0x1000
	stageBottomOfPipe   = 0x2000
	aspectColor         = 0x1

	commandPoolResetBuffer = 0x2
	commandBufferOneTime   = 0x1
	commandBufferPrimary   = 0
	fenceSignaled          = 0x1

	noTimeout = ^uint64(0)

	// undefinedExtent in currentExtent means the surface takes the
	// swapchain's size.
	undefinedExtent = 0xffffffff
)

type vkExtent2D struct {
	Width, Height uint32
}

type vkExtent3D struct {
	Width, Height, Depth uint32
}

type vkApplicationInfo struct {
	SType         uint32
	PNext         unsafe.Pointer
	AppName       *byte
	AppVersion    uint32
	EngineName    *byte
	EngineVersion uint32
	APIVersion    uint32
}

type vkInstanceCreateInfo struct {
	SType          uint32
	PNext          unsafe.Pointer
	Flags          uint32
	AppInfo        *vkApplicationInfo
	LayerCount     uint32
	Layers         **byte
	ExtensionCount uint32
	Extensions     **byte
}

type vkXcbSurfaceCreateInfo struct {
	SType      uint32
	PNext      unsafe.Pointer
	Flags      uint32
	Connection uintptr
	Window     uint32
}

type vkQueueFamilyProperties struct {
	QueueFlags         uint32
	QueueCount         uint32
	TimestampValidBits uint32
	MinGranularity     vkExtent3D
}

type vkDeviceQueueCreateInfo struct {
	SType      uint32
	PNext      unsafe.Pointer
	Flags      uint32
	Family     uint32
	Count      uint32
	Priorities *float32
}

type vkDeviceCreateInfo struct {
	SType          uint32
	PNext          unsafe.Pointer
	Flags          uint32
	QueueCount     uint32
	Queues         *vkDeviceQueueCreateInfo
	LayerCount     uint32
	Layers         **byte
	ExtensionCount uint32
	Extensions     **byte
	Features       unsafe.Pointer
}

type vkSurfaceCapabilities struct {
	MinImageCount           uint32
	MaxImageCount           uint32
	CurrentExtent           vkExtent2D
	MinImageExtent          vkExtent2D
	MaxImageExtent          vkExtent2D
	MaxImageArrayLayers     uint32
	SupportedTransforms     uint32
	CurrentTransform        uint32
	SupportedCompositeAlpha uint32
	SupportedUsageFlags     uint32
}

type vkSurfaceFormat struct {
	Format     uint32
	ColorSpace uint32
}

type vkSwapchainCreateInfo struct {
	SType            uint32
	PNext            unsafe.Pointer
	Flags            uint32
	Surface          vkSurface
	MinImageCount    uint32
	ImageFormat      uint32
	ImageColorSpace  uint32
	ImageExtent      vkExtent2D
	ImageArrayLayers uint32
	ImageUsage       uint32
	SharingMode      uint32
	FamilyCount      uint32
	Families         *uint32
	PreTransform     uint32
	CompositeAlpha   uint32
	PresentMode      uint32
	Clipped          uint32
	OldSwapchain     vkSwapchain
}

type vkCommandPoolCreateInfo struct {
	SType  uint32
	PNext  unsafe.Pointer
	Flags  uint32
	Family uint32
}

type vkCommandBufferAllocateInfo struct {
	SType uint32
	PNext unsafe.Pointer
	Pool  vkCommandPool
	Level uint32
	Count uint32
}

type vkCommandBufferBeginInfo struct {
	SType       uint32
	PNext       unsafe.Pointer
	Flags       uint32
	Inheritance unsafe.Pointer
}

type vkFlagsCreateInfo struct {
	SType uint32
	PNext unsafe.Pointer
	Flags uint32
}

type vkBufferCreateInfo struct {
	SType       uint32
	PNext       unsafe.Pointer
	Flags       uint32
	Size        uint64
	Usage       uint32
	SharingMode uint32
	FamilyCount uint32
	Families    *uint32
}

type vkMemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

type vkMemoryType struct {
	PropertyFlags uint32
	HeapIndex     uint32
}

type vkMemoryHeap struct {
	Size  uint64
	Flags uint32
}

type vkPhysicalDeviceMemoryProperties struct {
	TypeCount uint32
	Types     [32]vkMemoryType
	HeapCount uint32
	Heaps     [16]vkMemoryHeap
}

type vkMemoryAllocateInfo struct {
	SType     uint32
	PNext     unsafe.Pointer
	Size      uint64
	TypeIndex uint32
}

type vkImageSubresourceRange struct {
	AspectMask     uint32
	BaseMipLevel   uint32
	LevelCount     uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

type vkImageMemoryBarrier struct {
	SType     uint32
	PNext     unsafe.Pointer
	SrcAccess uint32
	DstAccess uint32
	OldLayout uint32
	NewLayout uint32
	SrcFamily uint32
	DstFamily uint32
	Image     vkImage
	Range     vkImageSubresourceRange
}

type vkImageSubresourceLayers struct {
	AspectMask     uint32
	MipLevel       uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

type vkBufferImageCopy struct {
	BufferOffset      uint64
	BufferRowLength   uint32
	BufferImageHeight uint32
	Subresource       vkImageSubresourceLayers
	ImageOffset       [3]int32
	ImageExtent       vkExtent3D
}

type vkSubmitInfo struct {
	SType            uint32
	PNext            unsafe.Pointer
	WaitCount        uint32
	WaitSemaphores   *vkSemaphore
	WaitStages       *uint32
	CommandCount     uint32
	Commands         *vkCommandBuffer
	SignalCount      uint32
	SignalSemaphores *vkSemaphore
}

type vkPresentInfo struct {
	SType          uint32
	PNext          unsafe.Pointer
	WaitCount      uint32
	WaitSemaphores *vkSemaphore
	SwapchainCount uint32
	Swapchains     *vkSwapchain
	ImageIndices   *uint32
	Results        *vkResult
}
