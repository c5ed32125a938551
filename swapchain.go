package aurora

import (
	"context"
	"log/slog"

	vk "github.com/vulkan-go/vulkan"
)

// undefinedExtent is the surface's "pick your own size" sentinel.
const undefinedExtent = 0xFFFFFFFF

// ChooseSurfaceFormat prefers 8-bit BGRA sRGB and otherwise takes the first
// reported format. formats must not be empty.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// ChoosePresentMode prefers mailbox. FIFO is always supported.
func ChoosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface's current extent unless it is undefined, in
// which case the drawable size is clamped into the supported range.
func ChooseExtent(caps vk.SurfaceCapabilities, width, height int) vk.Extent2D {
	if caps.CurrentExtent.Width != undefinedExtent {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clampUint32(uint32(width), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clampUint32(uint32(height), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount requests one image above the minimum. A MaxImageCount of
// zero means unbounded.
func ChooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// SwapchainPlan is every decision needed to create a chain.
type SwapchainPlan struct {
	Format      vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	ImageCount  uint32
	Transform   vk.SurfaceTransformFlagBits
	Alpha       vk.CompositeAlphaFlagBits
}

// PlanSwapchain derives a plan from surface support and the drawable size.
// The same inputs always give the same plan.
func PlanSwapchain(support SurfaceSupport, width, height int) (SwapchainPlan, error) {
	if !support.Adequate() {
		return SwapchainPlan{}, failure(ErrStartupFailure, ErrSurfaceUnsupported,
			"%d formats, %d present modes", len(support.Formats), len(support.PresentModes))
	}
	caps := support.Capabilities
	return SwapchainPlan{
		Format:      ChooseSurfaceFormat(support.Formats),
		PresentMode: ChoosePresentMode(support.PresentModes),
		Extent:      ChooseExtent(caps, width, height),
		ImageCount:  ChooseImageCount(caps),
		Transform:   chooseTransform(caps),
		Alpha:       chooseCompositeAlpha(caps),
	}, nil
}

func chooseTransform(caps vk.SurfaceCapabilities) vk.SurfaceTransformFlagBits {
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		return vk.SurfaceTransformIdentityBit
	}
	return caps.CurrentTransform
}

// chooseCompositeAlpha returns the first supported mode. One of these is
// guaranteed to be set.
func chooseCompositeAlpha(caps vk.SurfaceCapabilities) vk.CompositeAlphaFlagBits {
	for _, alpha := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(alpha) != 0 {
			return alpha
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

// swapchainCreateInfo fills the create info for plan. Images are shared
// concurrently when graphics and present live on different families.
func swapchainCreateInfo(surface vk.Surface, plan SwapchainPlan, families QueueFamilies) vk.SwapchainCreateInfo {
	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    plan.ImageCount,
		ImageFormat:      plan.Format.Format,
		ImageColorSpace:  plan.Format.ColorSpace,
		ImageExtent:      plan.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     plan.Transform,
		CompositeAlpha:   plan.Alpha,
		PresentMode:      plan.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	if families.Separate() {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = families.Indices()
	}
	return info
}

// Swapchain owns the chain of drawable images and their views.
type Swapchain struct {
	device   vk.Device
	gpu      vk.PhysicalDevice
	surface  vk.Surface
	families QueueFamilies
	log      *slog.Logger

	handle vk.Swapchain
	plan   SwapchainPlan
	images []vk.Image
	views  []vk.ImageView
}

func newSwapchain(device vk.Device, gpu vk.PhysicalDevice, surface vk.Surface, families QueueFamilies, log *slog.Logger) *Swapchain {
	return &Swapchain{
		device:   device,
		gpu:      gpu,
		surface:  surface,
		families: families,
		log:      log,
		handle:   vk.NullSwapchain,
	}
}

func (s *Swapchain) Extent() vk.Extent2D { return s.plan.Extent }

func (s *Swapchain) Format() vk.Format { return s.plan.Format.Format }

func (s *Swapchain) ImageCount() int { return len(s.images) }

func (s *Swapchain) Views() []vk.ImageView { return s.views }

func (s *Swapchain) Handle() vk.Swapchain { return s.handle }

// create builds the chain for the current drawable size of win.
func (s *Swapchain) create(win Window) error {
	support, err := QuerySurfaceSupport(s.gpu, s.surface)
	if err != nil {
		return failure(ErrStartupFailure, ErrChainCreationFailed, "query surface support: %v", err)
	}
	width, height := win.FramebufferSize()
	if support.Capabilities.CurrentExtent.Width == undefinedExtent {
		width, height = WaitForDrawableSize(win)
	}
	plan, err := PlanSwapchain(support, width, height)
	if err != nil {
		return err
	}

	info := swapchainCreateInfo(s.surface, plan, s.families)
	var handle vk.Swapchain
	if ret := vk.CreateSwapchain(s.device, &info, nil, &handle); isError(ret) {
		return resultFailure(ErrStartupFailure, ErrChainCreationFailed, ret, "create swapchain")
	}
	s.handle = handle
	s.plan = plan

	// The platform may hand back more images than requested.
	var count uint32
	if ret := vk.GetSwapchainImages(s.device, s.handle, &count, nil); isError(ret) {
		s.destroy()
		return resultFailure(ErrStartupFailure, ErrChainCreationFailed, ret, "get swapchain images")
	}
	s.images = make([]vk.Image, count)
	vk.GetSwapchainImages(s.device, s.handle, &count, s.images)

	s.views = make([]vk.ImageView, 0, count)
	for i := range s.images {
		view, err := createImageView(s.device, s.images[i], plan.Format.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			s.destroy()
			return failure(ErrStartupFailure, ErrChainCreationFailed, "image view %d: %v", i, err)
		}
		s.views = append(s.views, view)
	}

	s.log.Log(context.Background(), startupLevel(), "swapchain created",
		"extent", [2]uint32{plan.Extent.Width, plan.Extent.Height},
		"requested", plan.ImageCount,
		"images", count,
		"format", plan.Format.Format,
		"present_mode", plan.PresentMode,
		"concurrent", s.families.Separate())
	return nil
}

// recreate tears the whole chain down and builds it again. The device must be idle.
func (s *Swapchain) recreate(win Window) error {
	s.destroy()
	return s.create(win)
}

// destroy releases the views and then the chain.
func (s *Swapchain) destroy() {
	for _, view := range s.views {
		vk.DestroyImageView(s.device, view, nil)
	}
	s.views = nil
	s.images = nil
	if s.handle != vk.NullSwapchain {
		vk.DestroySwapchain(s.device, s.handle, nil)
		s.handle = vk.NullSwapchain
	}
}
