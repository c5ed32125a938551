package aurora

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Frame operations of the renderer. Synchronization objects are picked by
// slot; command buffers, framebuffers, uniforms and descriptor sets by the
// acquired image.

func (r *renderer) SlotCount() int {
	return r.slotCount
}

func (r *renderer) ImageCount() int {
	return r.chain.ImageCount()
}

func (r *renderer) WaitSlot(slot int) error {
	return r.fences.Wait(slot)
}

func (r *renderer) ResetSlot(slot int) error {
	return r.fences.Reset(slot)
}

func (r *renderer) Acquire(slot int) (uint32, error) {
	var image uint32
	ret := vk.AcquireNextImage(r.platform.device, r.chain.Handle(), vk.MaxUint64,
		r.semaphores.Acquired(slot), vk.NullFence, &image)
	switch ret {
	case vk.Success, vk.Suboptimal:
		return image, nil
	case vk.ErrorOutOfDate:
		return 0, errSurfaceStale
	default:
		return 0, deviceLost(ret, "acquire next image")
	}
}

func (r *renderer) WriteFrameData(image uint32, m *[16]float32) {
	r.uniforms.Write(image, m)
}

// Record re-records the image's command buffer: the scene pass with the
// mesh, then the UI hook inside the same pass.
func (r *renderer) Record(image uint32) error {
	cmd, err := r.commands.Reset(image)
	if err != nil {
		return errors.Wrap(err, "reset command buffer")
	}
	ret := vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	})
	if isError(ret) {
		return errors.Wrap(newError(ret), "begin command buffer")
	}

	clearValues := []vk.ClearValue{
		vk.NewClearValue(r.cfg.ClearColor[:]),
		vk.NewClearDepthStencil(1.0, 0),
	}
	vk.CmdBeginRenderPass(cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  r.targets.RenderPass(),
		Framebuffer: r.targets.Framebuffer(image),
		RenderArea: vk.Rect2D{
			Extent: r.chain.Extent(),
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}, vk.SubpassContentsInline)

	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, r.pipeline.Handle)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, r.pipeline.Layout,
		0, 1, []vk.DescriptorSet{r.descriptors.Set(image)}, 0, nil)
	r.recordMesh(cmd)
	if r.ui != nil {
		r.ui.RecordUI(cmd, image)
	}
	vk.CmdEndRenderPass(cmd)

	if ret := vk.EndCommandBuffer(cmd); isError(ret) {
		return errors.Wrap(newError(ret), "end command buffer")
	}
	return nil
}

func (r *renderer) recordMesh(cmd vk.CommandBuffer) {
	if r.vertexBuffer == nil {
		return
	}
	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{r.vertexBuffer.Handle}, []vk.DeviceSize{0})
	if r.indexBuffer != nil {
		vk.CmdBindIndexBuffer(cmd, r.indexBuffer.Handle, 0, vk.IndexTypeUint32)
		vk.CmdDrawIndexed(cmd, uint32(len(r.mesh.Indices)), 1, 0, 0, 0)
		return
	}
	vk.CmdDraw(cmd, uint32(len(r.mesh.Vertices)), 1, 0, 0)
}

// Submit queues the image's commands on the graphics queue. They wait for
// the slot's acquire semaphore and signal its finish semaphore and fence.
func (r *renderer) Submit(slot int, image uint32) error {
	ret := vk.QueueSubmit(r.platform.graphicsQueue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{r.semaphores.Acquired(slot)},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{r.commands.Buffer(image)},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{r.semaphores.Finished(slot)},
	}}, r.fences.Fence(slot))
	if isError(ret) {
		return deviceLost(ret, "queue submit")
	}
	return nil
}

func (r *renderer) Present(slot int, image uint32) error {
	ret := vk.QueuePresent(r.platform.presentQueue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{r.semaphores.Finished(slot)},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{r.chain.Handle()},
		PImageIndices:      []uint32{image},
	})
	switch ret {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return errSurfaceStale
	default:
		return deviceLost(ret, "queue present")
	}
}
