package aurora

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// depthFormatCandidates in order of preference.
var depthFormatCandidates = []vk.Format{
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
}

// Image is a 2-D image with its own memory and a single view.
type Image struct {
	device vk.Device
	Image  vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Format vk.Format
}

func (i *Image) Destroy() {
	if i == nil || i.device == nil {
		return
	}
	if i.View != vk.ImageView(vk.NullHandle) {
		vk.DestroyImageView(i.device, i.View, nil)
	}
	vk.DestroyImage(i.device, i.Image, nil)
	vk.FreeMemory(i.device, i.Memory, nil)
	i.device = nil
}

// findDepthFormat returns the first candidate usable as an optimally tiled
// depth attachment.
func findDepthFormat(gpu vk.PhysicalDevice) (vk.Format, error) {
	required := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, format := range depthFormatCandidates {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(gpu, format, &props)
		props.Deref()
		if props.OptimalTilingFeatures&required == required {
			return format, nil
		}
	}
	return vk.FormatUndefined, errors.New("no supported depth format")
}

func hasStencil(format vk.Format) bool {
	return format == vk.FormatD32SfloatS8Uint || format == vk.FormatD24UnormS8Uint
}

// createImage creates and binds a 2-D single-sample image.
func createImage(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, extent vk.Extent2D,
	format vk.Format, usage vk.ImageUsageFlagBits, memFlags vk.MemoryPropertyFlagBits) (*Image, error) {

	var image vk.Image
	ret := vk.CreateImage(device, &vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        format,
		Extent:        vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &image)
	if isError(ret) {
		return nil, errors.Wrap(newError(ret), "create image")
	}

	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, image, &reqs)
	reqs.Deref()

	typeIndex, err := FindMemoryType(memProps, reqs.MemoryTypeBits, memFlags)
	if err != nil {
		vk.DestroyImage(device, image, nil)
		return nil, err
	}

	var memory vk.DeviceMemory
	ret = vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &memory)
	if isError(ret) {
		vk.DestroyImage(device, image, nil)
		return nil, errors.Wrap(newError(ret), "allocate image memory")
	}
	if ret := vk.BindImageMemory(device, image, memory, 0); isError(ret) {
		vk.FreeMemory(device, memory, nil)
		vk.DestroyImage(device, image, nil)
		return nil, errors.Wrap(newError(ret), "bind image memory")
	}
	return &Image{device: device, Image: image, Memory: memory, Format: format}, nil
}

func createImageView(device vk.Device, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	var view vk.ImageView
	ret := vk.CreateImageView(device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &view)
	if isError(ret) {
		return vk.ImageView(vk.NullHandle), errors.Wrap(newError(ret), "create image view")
	}
	return view, nil
}

// layoutBarrier describes the access masks and stages for a supported
// layout transition.
type layoutBarrier struct {
	srcAccess vk.AccessFlags
	dstAccess vk.AccessFlags
	srcStage  vk.PipelineStageFlags
	dstStage  vk.PipelineStageFlags
}

func barrierFor(oldLayout, newLayout vk.ImageLayout) (layoutBarrier, error) {
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutDepthStencilAttachmentOptimal:
		return layoutBarrier{
			dstAccess: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
		}, nil
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		return layoutBarrier{
			dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, nil
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return layoutBarrier{
			srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, nil
	}
	return layoutBarrier{}, errors.Newf("unsupported layout transition %d -> %d", oldLayout, newLayout)
}

func aspectFor(format vk.Format, layout vk.ImageLayout) vk.ImageAspectFlags {
	if layout != vk.ImageLayoutDepthStencilAttachmentOptimal {
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if hasStencil(format) {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return aspect
}

// transitionImageLayout submits a one-shot pipeline barrier and blocks until
// it has executed.
func transitionImageLayout(pool *CommandPool, image vk.Image, format vk.Format, oldLayout, newLayout vk.ImageLayout) error {
	b, err := barrierFor(oldLayout, newLayout)
	if err != nil {
		return err
	}
	return pool.oneTimeCommands(func(cmd vk.CommandBuffer) {
		barrier := vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       b.srcAccess,
			DstAccessMask:       b.dstAccess,
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               image,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: aspectFor(format, newLayout),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		vk.CmdPipelineBarrier(cmd, b.srcStage, b.dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	})
}

// createDepthImage builds the depth attachment shared by every framebuffer
// and moves it into the attachment layout.
func createDepthImage(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, pool *CommandPool,
	format vk.Format, extent vk.Extent2D) (*Image, error) {

	depth, err := createImage(device, memProps, extent, format,
		vk.ImageUsageDepthStencilAttachmentBit, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, errors.Wrap(err, "depth image")
	}
	aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	depth.View, err = createImageView(device, depth.Image, format, aspect)
	if err != nil {
		depth.Destroy()
		return nil, errors.Wrap(err, "depth image view")
	}
	err = transitionImageLayout(pool, depth.Image, format, vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal)
	if err != nil {
		depth.Destroy()
		return nil, errors.Wrap(err, "depth image layout")
	}
	return depth, nil
}
