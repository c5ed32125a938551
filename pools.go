package aurora

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// CommandPool is a graphics-family command pool whose buffers can be reset
// individually.
type CommandPool struct {
	device vk.Device
	queue  vk.Queue
	pool   vk.CommandPool
}

func NewCommandPool(device vk.Device, queue vk.Queue, familyIndex uint32) (*CommandPool, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: familyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if isError(ret) {
		return nil, errors.Wrap(newError(ret), "create command pool")
	}
	return &CommandPool{device: device, queue: queue, pool: pool}, nil
}

func (c *CommandPool) Handle() vk.CommandPool {
	return c.pool
}

// Allocate returns count primary command buffers.
func (c *CommandPool) Allocate(count int) ([]vk.CommandBuffer, error) {
	buffers := make([]vk.CommandBuffer, count)
	if count == 0 {
		return buffers, nil
	}
	ret := vk.AllocateCommandBuffers(c.device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        c.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}, buffers)
	if isError(ret) {
		return nil, errors.Wrapf(newError(ret), "allocate %d command buffers", count)
	}
	return buffers, nil
}

func (c *CommandPool) Free(buffers []vk.CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	vk.FreeCommandBuffers(c.device, c.pool, uint32(len(buffers)), buffers)
}

// oneTimeCommands records fn into a temporary buffer, submits it and waits
// for the queue to drain. The buffer is freed on every path, including a
// panic inside fn. Only for startup and rebuild work, never the frame loop.
func (c *CommandPool) oneTimeCommands(fn func(cmd vk.CommandBuffer)) (err error) {
	buffers, err := c.Allocate(1)
	if err != nil {
		return err
	}
	defer c.Free(buffers)
	defer checkErr(&err)

	cmd := buffers[0]
	ret := vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if isError(ret) {
		return errors.Wrap(newError(ret), "begin one-time command buffer")
	}
	fn(cmd)
	if ret := vk.EndCommandBuffer(cmd); isError(ret) {
		return errors.Wrap(newError(ret), "end one-time command buffer")
	}
	ret = vk.QueueSubmit(c.queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    buffers,
	}}, vk.NullFence)
	if isError(ret) {
		return errors.Wrap(newError(ret), "submit one-time command buffer")
	}
	if ret := vk.QueueWaitIdle(c.queue); isError(ret) {
		return errors.Wrap(newError(ret), "wait one-time command buffer")
	}
	return nil
}

func (c *CommandPool) Destroy() {
	if c.pool != vk.CommandPool(vk.NullHandle) {
		vk.DestroyCommandPool(c.device, c.pool, nil)
		c.pool = vk.CommandPool(vk.NullHandle)
	}
}
