package aurora

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// RenderPassCreateInfo describes the single-subpass scene pass: a cleared
// color attachment handed to presentation and a cleared depth attachment
// that is discarded afterwards.
func RenderPassCreateInfo(colorFormat, depthFormat vk.Format) vk.RenderPassCreateInfo {
	attachments := []vk.AttachmentDescription{
		{
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
		{
			Format:         depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}
	colorRefs := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorRefs)),
		PColorAttachments:       colorRefs,
		PDepthStencilAttachment: &depthRef,
	}}

	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit)
	dependencies := []vk.SubpassDependency{{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  stages,
		DstStageMask:  stages,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
	}}

	return vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}
}

// RenderTargets owns the render pass, the shared depth attachment and one
// framebuffer per chain image.
type RenderTargets struct {
	device       vk.Device
	renderPass   vk.RenderPass
	depth        *Image
	framebuffers []vk.Framebuffer
}

// newRenderTargets creates the render pass and depth attachment for the
// current chain. Framebuffers are built separately by createFramebuffers.
func newRenderTargets(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, pool *CommandPool,
	chain *Swapchain, depthFormat vk.Format) (*RenderTargets, error) {

	t := &RenderTargets{device: device, renderPass: vk.NullRenderPass}
	info := RenderPassCreateInfo(chain.Format(), depthFormat)
	if ret := vk.CreateRenderPass(device, &info, nil, &t.renderPass); isError(ret) {
		return nil, resultFailure(ErrStartupFailure, ErrFramebufferCreationFailed, ret, "create render pass")
	}
	depth, err := createDepthImage(device, memProps, pool, depthFormat, chain.Extent())
	if err != nil {
		t.cleanup(nil)
		return nil, failure(ErrStartupFailure, ErrFramebufferCreationFailed, "%v", err)
	}
	t.depth = depth
	return t, nil
}

func (t *RenderTargets) RenderPass() vk.RenderPass {
	return t.renderPass
}

func (t *RenderTargets) Framebuffer(image uint32) vk.Framebuffer {
	return t.framebuffers[image]
}

// createFramebuffers builds one framebuffer per view, each sharing the depth
// view, sized to extent.
func (t *RenderTargets) createFramebuffers(views []vk.ImageView, extent vk.Extent2D) error {
	if len(views) == 0 || extent.Width == 0 || extent.Height == 0 {
		return failure(ErrStartupFailure, ErrFramebufferCreationFailed,
			"%d views at %dx%d", len(views), extent.Width, extent.Height)
	}
	t.framebuffers = make([]vk.Framebuffer, 0, len(views))
	for i, view := range views {
		attachments := []vk.ImageView{view, t.depth.View}
		var fb vk.Framebuffer
		ret := vk.CreateFramebuffer(t.device, &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      t.renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           extent.Width,
			Height:          extent.Height,
			Layers:          1,
		}, nil, &fb)
		if isError(ret) {
			t.destroyFramebuffers()
			return resultFailure(ErrStartupFailure, ErrFramebufferCreationFailed, ret,
				fmt.Sprintf("create framebuffer %d", i))
		}
		t.framebuffers = append(t.framebuffers, fb)
	}
	return nil
}

func (t *RenderTargets) destroyFramebuffers() {
	for _, fb := range t.framebuffers {
		vk.DestroyFramebuffer(t.device, fb, nil)
	}
	t.framebuffers = nil
}

// cleanup releases framebuffers, then whatever releasePipeline owns, then
// the render pass and finally the depth attachment.
func (t *RenderTargets) cleanup(releasePipeline func()) {
	t.destroyFramebuffers()
	if releasePipeline != nil {
		releasePipeline()
	}
	if t.renderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(t.device, t.renderPass, nil)
		t.renderPass = vk.NullRenderPass
	}
	t.depth.Destroy()
	t.depth = nil
}
