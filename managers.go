package aurora

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// FenceManager owns one fence per frame slot. Fences start signaled so the
// first wait on every slot returns at once.
// The manager is not thread-safe.
type FenceManager struct {
	device vk.Device
	fences []vk.Fence
}

func NewFenceManager(device vk.Device, slots int) (*FenceManager, error) {
	f := &FenceManager{device: device, fences: make([]vk.Fence, 0, slots)}
	for i := 0; i < slots; i++ {
		var fence vk.Fence
		ret := vk.CreateFence(device, &vk.FenceCreateInfo{
			SType: vk.StructureTypeFenceCreateInfo,
			Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
		}, nil, &fence)
		if isError(ret) {
			f.Destroy()
			return nil, errors.Wrapf(newError(ret), "create fence %d", i)
		}
		f.fences = append(f.fences, fence)
	}
	return f, nil
}

func (f *FenceManager) Fence(slot int) vk.Fence {
	return f.fences[slot]
}

// Wait blocks until the slot's last submission has completed.
func (f *FenceManager) Wait(slot int) error {
	ret := vk.WaitForFences(f.device, 1, f.fences[slot:slot+1], vk.True, vk.MaxUint64)
	if isError(ret) {
		return newError(ret)
	}
	return nil
}

// Reset unsignals the slot's fence. Call it only right before a submit that
// will signal it again.
func (f *FenceManager) Reset(slot int) error {
	if ret := vk.ResetFences(f.device, 1, f.fences[slot:slot+1]); isError(ret) {
		return newError(ret)
	}
	return nil
}

func (f *FenceManager) Destroy() {
	for i := range f.fences {
		vk.DestroyFence(f.device, f.fences[i], nil)
	}
	f.fences = nil
}

// SemaphoreManager owns the image-acquired and render-finished semaphore
// pair of every frame slot.
type SemaphoreManager struct {
	device   vk.Device
	acquired []vk.Semaphore
	finished []vk.Semaphore
}

func NewSemaphoreManager(device vk.Device, slots int) (*SemaphoreManager, error) {
	s := &SemaphoreManager{device: device}
	for i := 0; i < slots; i++ {
		acquired, err := s.newSemaphore()
		if err != nil {
			s.Destroy()
			return nil, errors.Wrapf(err, "acquire semaphore %d", i)
		}
		s.acquired = append(s.acquired, acquired)
		finished, err := s.newSemaphore()
		if err != nil {
			s.Destroy()
			return nil, errors.Wrapf(err, "finish semaphore %d", i)
		}
		s.finished = append(s.finished, finished)
	}
	return s, nil
}

func (s *SemaphoreManager) newSemaphore() (vk.Semaphore, error) {
	var sem vk.Semaphore
	ret := vk.CreateSemaphore(s.device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &sem)
	if isError(ret) {
		return vk.NullSemaphore, newError(ret)
	}
	return sem, nil
}

func (s *SemaphoreManager) Acquired(slot int) vk.Semaphore {
	return s.acquired[slot]
}

func (s *SemaphoreManager) Finished(slot int) vk.Semaphore {
	return s.finished[slot]
}

func (s *SemaphoreManager) Destroy() {
	for _, sem := range s.acquired {
		vk.DestroySemaphore(s.device, sem, nil)
	}
	for _, sem := range s.finished {
		vk.DestroySemaphore(s.device, sem, nil)
	}
	s.acquired = nil
	s.finished = nil
}

// CommandBufferManager holds one primary command buffer per chain image.
// Buffers are re-recorded every time their image is acquired.
type CommandBufferManager struct {
	pool    *CommandPool
	buffers []vk.CommandBuffer
}

func NewCommandBufferManager(pool *CommandPool, images int) (*CommandBufferManager, error) {
	buffers, err := pool.Allocate(images)
	if err != nil {
		return nil, err
	}
	return &CommandBufferManager{pool: pool, buffers: buffers}, nil
}

func (c *CommandBufferManager) Buffer(image uint32) vk.CommandBuffer {
	return c.buffers[image]
}

// Reset returns the image's buffer to the initial state and hands it back.
func (c *CommandBufferManager) Reset(image uint32) (vk.CommandBuffer, error) {
	cmd := c.buffers[image]
	if ret := vk.ResetCommandBuffer(cmd, 0); isError(ret) {
		return cmd, newError(ret)
	}
	return cmd, nil
}

func (c *CommandBufferManager) Destroy() {
	c.pool.Free(c.buffers)
	c.buffers = nil
}
