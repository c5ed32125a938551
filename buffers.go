package aurora

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// uniformSize is one 4x4 float matrix.
const uniformSize = vk.DeviceSize(16 * 4)

// FindMemoryType returns the first memory type allowed by typeBits whose
// property flags include every bit of flags.
func FindMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, flags vk.MemoryPropertyFlagBits) (uint32, error) {
	want := vk.MemoryPropertyFlags(flags)
	for i := uint32(0); i < props.MemoryTypeCount && i < uint32(len(props.MemoryTypes)); i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		if props.MemoryTypes[i].PropertyFlags&want == want {
			return i, nil
		}
	}
	return 0, errors.Wrapf(ErrUnsupportedMemoryType, "type bits %#x, flags %#x", typeBits, flags)
}

// memoryProperties reads the memory heaps and types of gpu.
func memoryProperties(gpu vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(gpu, &props)
	props.Deref()
	for i := range props.MemoryTypes {
		props.MemoryTypes[i].Deref()
	}
	return props
}

// Buffer is a buffer with its own dedicated allocation.
type Buffer struct {
	device vk.Device
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	mapped unsafe.Pointer
}

// CreateBuffer creates a buffer of size bytes and binds fresh memory that
// satisfies memFlags.
func CreateBuffer(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, size vk.DeviceSize,
	usage vk.BufferUsageFlagBits, memFlags vk.MemoryPropertyFlagBits) (*Buffer, error) {

	var handle vk.Buffer
	ret := vk.CreateBuffer(device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &handle)
	if isError(ret) {
		return nil, errors.Wrap(newError(ret), "create buffer")
	}

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &reqs)
	reqs.Deref()

	typeIndex, err := FindMemoryType(memProps, reqs.MemoryTypeBits, memFlags)
	if err != nil {
		vk.DestroyBuffer(device, handle, nil)
		return nil, err
	}

	var memory vk.DeviceMemory
	ret = vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &memory)
	if isError(ret) {
		vk.DestroyBuffer(device, handle, nil)
		return nil, errors.Wrap(newError(ret), "allocate buffer memory")
	}
	if ret := vk.BindBufferMemory(device, handle, memory, 0); isError(ret) {
		vk.FreeMemory(device, memory, nil)
		vk.DestroyBuffer(device, handle, nil)
		return nil, errors.Wrap(newError(ret), "bind buffer memory")
	}
	return &Buffer{device: device, Handle: handle, Memory: memory, Size: size}, nil
}

// Upload copies data into a host-visible buffer.
func (b *Buffer) Upload(data []byte) error {
	if vk.DeviceSize(len(data)) > b.Size {
		return errors.Newf("upload of %d bytes into %d byte buffer", len(data), b.Size)
	}
	var ptr unsafe.Pointer
	if ret := vk.MapMemory(b.device, b.Memory, 0, b.Size, 0, &ptr); isError(ret) {
		return errors.Wrap(newError(ret), "map buffer memory")
	}
	vk.Memcopy(ptr, data)
	vk.UnmapMemory(b.device, b.Memory)
	return nil
}

// persistentMap keeps the buffer mapped until Destroy.
func (b *Buffer) persistentMap() error {
	if ret := vk.MapMemory(b.device, b.Memory, 0, b.Size, 0, &b.mapped); isError(ret) {
		return errors.Wrap(newError(ret), "map buffer memory")
	}
	return nil
}

func (b *Buffer) Destroy() {
	if b == nil || b.device == nil {
		return
	}
	if b.mapped != nil {
		vk.UnmapMemory(b.device, b.Memory)
		b.mapped = nil
	}
	vk.DestroyBuffer(b.device, b.Handle, nil)
	vk.FreeMemory(b.device, b.Memory, nil)
	b.device = nil
}

// CreateDeviceLocalBuffer uploads data through a host-visible staging buffer
// into device-local memory. The staging buffer is gone when this returns.
func CreateDeviceLocalBuffer(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, pool *CommandPool,
	usage vk.BufferUsageFlagBits, data []byte) (*Buffer, error) {

	size := vk.DeviceSize(len(data))
	staging, err := CreateBuffer(device, memProps, size, vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, errors.Wrap(err, "staging buffer")
	}
	defer staging.Destroy()
	if err := staging.Upload(data); err != nil {
		return nil, err
	}

	buffer, err := CreateBuffer(device, memProps, size, usage|vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, err
	}
	err = pool.oneTimeCommands(func(cmd vk.CommandBuffer) {
		vk.CmdCopyBuffer(cmd, staging.Handle, buffer.Handle, 1, []vk.BufferCopy{{Size: size}})
	})
	if err != nil {
		buffer.Destroy()
		return nil, errors.Wrap(err, "copy staging buffer")
	}
	return buffer, nil
}

// UniformBuffers holds one persistently mapped matrix buffer per chain image.
type UniformBuffers struct {
	buffers []*Buffer
}

func NewUniformBuffers(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, count int) (*UniformBuffers, error) {
	u := &UniformBuffers{buffers: make([]*Buffer, 0, count)}
	for i := 0; i < count; i++ {
		buffer, err := CreateBuffer(device, memProps, uniformSize, vk.BufferUsageUniformBufferBit,
			vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		if err != nil {
			u.Destroy()
			return nil, errors.Wrapf(err, "uniform buffer %d", i)
		}
		u.buffers = append(u.buffers, buffer)
		if err := buffer.persistentMap(); err != nil {
			u.Destroy()
			return nil, errors.Wrapf(err, "uniform buffer %d", i)
		}
	}
	return u, nil
}

func (u *UniformBuffers) Len() int {
	return len(u.buffers)
}

func (u *UniformBuffers) Handle(image uint32) vk.Buffer {
	return u.buffers[image].Handle
}

// Write stores m in the buffer owned by image. Memory is coherent, so no
// flush is needed.
func (u *UniformBuffers) Write(image uint32, m *[16]float32) {
	vk.Memcopy(u.buffers[image].mapped, matrixBytes(m))
}

func (u *UniformBuffers) Destroy() {
	for _, buffer := range u.buffers {
		buffer.Destroy()
	}
	u.buffers = nil
}
