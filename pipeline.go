package aurora

import (
	vk "github.com/vulkan-go/vulkan"
)

// Pipeline is a graphics pipeline and its layout.
type Pipeline struct {
	device vk.Device
	Layout vk.PipelineLayout
	Handle vk.Pipeline
}

func (p *Pipeline) Destroy() {
	if p == nil || p.device == nil {
		return
	}
	vk.DestroyPipeline(p.device, p.Handle, nil)
	vk.DestroyPipelineLayout(p.device, p.Layout, nil)
	p.device = nil
}

// PipelineBuilder holds the fixed-function state of the scene pipeline.
// Only the shader stages, viewport and layout change between builds.
type PipelineBuilder struct {
	vertexBindings   []vk.VertexInputBindingDescription
	vertexAttributes []vk.VertexInputAttributeDescription
	inputAssembly    vk.PipelineInputAssemblyStateCreateInfo
	rasterizer       vk.PipelineRasterizationStateCreateInfo
	multisampling    vk.PipelineMultisampleStateCreateInfo
	depthStencil     vk.PipelineDepthStencilStateCreateInfo
	colorBlend       vk.PipelineColorBlendAttachmentState
}

func NewPipelineBuilder() *PipelineBuilder {
	return &PipelineBuilder{
		vertexBindings:   vertexBindingDescriptions(),
		vertexAttributes: vertexAttributeDescriptions(),
		inputAssembly: vk.PipelineInputAssemblyStateCreateInfo{
			SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology:               vk.PrimitiveTopologyTriangleList,
			PrimitiveRestartEnable: vk.False,
		},
		rasterizer: vk.PipelineRasterizationStateCreateInfo{
			SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
			DepthClampEnable:        vk.False,
			RasterizerDiscardEnable: vk.False,
			PolygonMode:             vk.PolygonModeFill,
			CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
			FrontFace:               vk.FrontFaceClockwise,
			DepthBiasEnable:         vk.False,
			LineWidth:               1.0,
		},
		multisampling: vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
			SampleShadingEnable:  vk.False,
			MinSampleShading:     1.0,
		},
		depthStencil: vk.PipelineDepthStencilStateCreateInfo{
			SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:       vk.True,
			DepthWriteEnable:      vk.True,
			DepthCompareOp:        vk.CompareOpLess,
			DepthBoundsTestEnable: vk.False,
			StencilTestEnable:     vk.False,
			MaxDepthBounds:        1.0,
		},
		colorBlend: vk.PipelineColorBlendAttachmentState{
			BlendEnable: vk.False,
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
				vk.ColorComponentBBit | vk.ColorComponentABit),
		},
	}
}

// viewportState is a single static viewport and scissor covering extent.
func viewportState(extent vk.Extent2D) vk.PipelineViewportStateCreateInfo {
	return vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0.0,
			MaxDepth: 1.0,
		}},
		ScissorCount: 1,
		PScissors: []vk.Rect2D{{
			Extent: extent,
		}},
	}
}

func shaderStages(vert, frag vk.ShaderModule) []vk.PipelineShaderStageCreateInfo {
	return []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vert,
			PName:  safeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: frag,
			PName:  safeString("main"),
		},
	}
}

// Build compiles the pipeline for renderPass at extent. setLayout may be
// vk.NullDescriptorSetLayout. Shader modules never outlive the call.
func (b *PipelineBuilder) Build(device vk.Device, renderPass vk.RenderPass, extent vk.Extent2D,
	vert, frag []byte, setLayout vk.DescriptorSetLayout) (*Pipeline, error) {

	vertModule, err := LoadShaderModule(device, vert)
	if err != nil {
		return nil, failure(ErrStartupFailure, ErrPipelineCreationFailed, "vertex shader: %v", err)
	}
	defer vk.DestroyShaderModule(device, vertModule, nil)
	fragModule, err := LoadShaderModule(device, frag)
	if err != nil {
		return nil, failure(ErrStartupFailure, ErrPipelineCreationFailed, "fragment shader: %v", err)
	}
	defer vk.DestroyShaderModule(device, fragModule, nil)

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	if setLayout != vk.NullDescriptorSetLayout {
		layoutInfo.SetLayoutCount = 1
		layoutInfo.PSetLayouts = []vk.DescriptorSetLayout{setLayout}
	}
	p := &Pipeline{device: device}
	if ret := vk.CreatePipelineLayout(device, &layoutInfo, nil, &p.Layout); isError(ret) {
		return nil, resultFailure(ErrStartupFailure, ErrPipelineCreationFailed, ret, "create pipeline layout")
	}

	info := b.createInfo(renderPass, extent, p.Layout, shaderStages(vertModule, fragModule))
	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(device, vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if isError(ret) {
		vk.DestroyPipelineLayout(device, p.Layout, nil)
		return nil, resultFailure(ErrStartupFailure, ErrPipelineCreationFailed, ret, "create graphics pipeline")
	}
	p.Handle = pipelines[0]
	return p, nil
}

func (b *PipelineBuilder) createInfo(renderPass vk.RenderPass, extent vk.Extent2D, layout vk.PipelineLayout,
	stages []vk.PipelineShaderStageCreateInfo) vk.GraphicsPipelineCreateInfo {

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(b.vertexBindings)),
		PVertexBindingDescriptions:      b.vertexBindings,
		VertexAttributeDescriptionCount: uint32(len(b.vertexAttributes)),
		PVertexAttributeDescriptions:    b.vertexAttributes,
	}
	viewport := viewportState(extent)
	blend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{b.colorBlend},
	}
	inputAssembly := b.inputAssembly
	rasterizer := b.rasterizer
	multisampling := b.multisampling
	depthStencil := b.depthStencil

	return vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewport,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &blend,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             0,
		BasePipelineIndex:   -1,
	}
}
