package aurora

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// renderer owns every GPU object built on top of the platform. Objects sized
// by the chain are rebuilt together; the rest live until destroy.
type renderer struct {
	log      *slog.Logger
	cfg      Config
	win      Window
	platform *platform
	ui       UIRecorder
	mesh     Mesh

	vertShader []byte
	fragShader []byte

	pool         *CommandPool
	chain        *Swapchain
	depthFormat  vk.Format
	descriptors  *Descriptors
	builder      *PipelineBuilder
	vertexBuffer *Buffer
	indexBuffer  *Buffer

	// Rebuilt with the chain.
	targets    *RenderTargets
	uniforms   *UniformBuffers
	pipeline   *Pipeline
	fences     *FenceManager
	semaphores *SemaphoreManager
	commands   *CommandBufferManager
	slotCount  int
}

func newRenderer(p *platform, win Window, cfg Config, mesh Mesh, ui UIRecorder, log *slog.Logger) (r *renderer, err error) {
	r = &renderer{
		log:      log,
		cfg:      cfg,
		win:      win,
		platform: p,
		ui:       ui,
		mesh:     mesh,
		builder:  NewPipelineBuilder(),
	}
	defer func() {
		if err != nil {
			r.destroy()
			r = nil
		}
	}()

	if r.vertShader, err = ReadShader(cfg.VertexShader, cfg.ShaderDirs); err != nil {
		return r, errors.Mark(err, ErrStartupFailure)
	}
	if r.fragShader, err = ReadShader(cfg.FragmentShader, cfg.ShaderDirs); err != nil {
		return r, errors.Mark(err, ErrStartupFailure)
	}

	device := p.device
	if r.pool, err = NewCommandPool(device, p.graphicsQueue, p.families.Graphics); err != nil {
		return r, errors.Mark(err, ErrStartupFailure)
	}
	r.chain = newSwapchain(device, p.gpu, p.surface, p.families, log)
	if err = r.chain.create(win); err != nil {
		return r, err
	}
	if r.depthFormat, err = findDepthFormat(p.gpu); err != nil {
		return r, failure(ErrStartupFailure, ErrFramebufferCreationFailed, "%v", err)
	}
	if r.descriptors, err = newDescriptorLayout(device); err != nil {
		return r, errors.Mark(err, ErrStartupFailure)
	}
	if err = r.uploadMesh(); err != nil {
		return r, errors.Mark(err, ErrStartupFailure)
	}
	if err = r.buildChainResources(); err != nil {
		return r, err
	}
	return r, nil
}

func (r *renderer) uploadMesh() (err error) {
	device, props := r.platform.device, r.platform.memProps
	if data := r.mesh.vertexBytes(); len(data) > 0 {
		r.vertexBuffer, err = CreateDeviceLocalBuffer(device, props, r.pool, vk.BufferUsageVertexBufferBit, data)
		if err != nil {
			return errors.Wrap(err, "vertex buffer")
		}
	}
	if data := r.mesh.indexBytes(); len(data) > 0 {
		r.indexBuffer, err = CreateDeviceLocalBuffer(device, props, r.pool, vk.BufferUsageIndexBufferBit, data)
		if err != nil {
			return errors.Wrap(err, "index buffer")
		}
	}
	return nil
}

// buildChainResources creates, for the current chain, the render targets,
// per-image uniforms and descriptor sets, the pipeline and the frame slots.
func (r *renderer) buildChainResources() (err error) {
	device, props := r.platform.device, r.platform.memProps
	images := r.chain.ImageCount()

	if r.targets, err = newRenderTargets(device, props, r.pool, r.chain, r.depthFormat); err != nil {
		return err
	}
	if err = r.targets.createFramebuffers(r.chain.Views(), r.chain.Extent()); err != nil {
		return err
	}
	if r.uniforms, err = NewUniformBuffers(device, props, images); err != nil {
		return errors.Mark(err, ErrStartupFailure)
	}
	if err = r.descriptors.allocate(r.uniforms); err != nil {
		return errors.Mark(err, ErrStartupFailure)
	}
	r.pipeline, err = r.builder.Build(device, r.targets.RenderPass(), r.chain.Extent(),
		r.vertShader, r.fragShader, r.descriptors.Layout())
	if err != nil {
		return err
	}

	r.slotCount = r.cfg.FramesInFlight
	if r.slotCount <= 0 {
		r.slotCount = images
	}
	if r.fences, err = NewFenceManager(device, r.slotCount); err != nil {
		return errors.Mark(err, ErrStartupFailure)
	}
	if r.semaphores, err = NewSemaphoreManager(device, r.slotCount); err != nil {
		return errors.Mark(err, ErrStartupFailure)
	}
	if r.commands, err = NewCommandBufferManager(r.pool, images); err != nil {
		return errors.Mark(err, ErrStartupFailure)
	}
	r.log.Log(context.Background(), startupLevel(), "frame resources ready",
		"images", images,
		"slots", r.slotCount,
		"depth_format", r.depthFormat)
	return nil
}

// destroyChainResources releases what buildChainResources made, newest
// first. The device must be idle.
func (r *renderer) destroyChainResources() {
	if r.commands != nil {
		r.commands.Destroy()
		r.commands = nil
	}
	if r.semaphores != nil {
		r.semaphores.Destroy()
		r.semaphores = nil
	}
	if r.fences != nil {
		r.fences.Destroy()
		r.fences = nil
	}
	if r.descriptors != nil {
		r.descriptors.releasePool()
	}
	if r.uniforms != nil {
		r.uniforms.Destroy()
		r.uniforms = nil
	}
	if r.targets != nil {
		r.targets.cleanup(r.destroyPipeline)
		r.targets = nil
	} else {
		r.destroyPipeline()
	}
}

func (r *renderer) destroyPipeline() {
	r.pipeline.Destroy()
	r.pipeline = nil
}

// Rebuild waits out a minimized window, idles the device and recreates the
// chain with everything sized by it.
func (r *renderer) Rebuild() error {
	WaitForDrawableSize(r.win)
	if err := r.platform.waitIdle(); err != nil {
		return err
	}
	r.destroyChainResources()
	if err := r.chain.recreate(r.win); err != nil {
		return err
	}
	return r.buildChainResources()
}

// Extent is the size of the current chain images.
func (r *renderer) Extent() vk.Extent2D {
	return r.chain.Extent()
}

// destroy releases everything in reverse creation order. It tolerates a
// renderer that failed halfway through construction.
func (r *renderer) destroy() {
	if err := r.platform.waitIdle(); err != nil {
		r.log.Warn("device idle before teardown failed", "error", err)
	}
	r.destroyChainResources()
	if r.chain != nil {
		r.chain.destroy()
		r.chain = nil
	}
	r.indexBuffer.Destroy()
	r.vertexBuffer.Destroy()
	r.indexBuffer, r.vertexBuffer = nil, nil
	if r.descriptors != nil {
		r.descriptors.Destroy()
		r.descriptors = nil
	}
	if r.pool != nil {
		r.pool.Destroy()
		r.pool = nil
	}
}
