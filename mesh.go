package aurora

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Vertex is the interleaved layout the pipeline expects: a 2-D position
// followed by an RGB color.
type Vertex struct {
	Pos   [2]float32
	Color [3]float32
}

const vertexStride = uint32(unsafe.Sizeof(Vertex{}))

// Mesh is host-side geometry. Indices may be empty, in which case vertices
// are drawn in order.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// Triangle is the default scene: one triangle with a red, green and blue corner.
func Triangle() Mesh {
	return Mesh{
		Vertices: []Vertex{
			{Pos: [2]float32{0.0, -0.5}, Color: [3]float32{1, 0, 0}},
			{Pos: [2]float32{0.5, 0.5}, Color: [3]float32{0, 1, 0}},
			{Pos: [2]float32{-0.5, 0.5}, Color: [3]float32{0, 0, 1}},
		},
		Indices: []uint32{0, 1, 2},
	}
}

func (m Mesh) vertexBytes() []byte {
	if len(m.Vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&m.Vertices[0])), len(m.Vertices)*int(vertexStride))
}

func (m Mesh) indexBytes() []byte {
	if len(m.Indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&m.Indices[0])), len(m.Indices)*4)
}

func vertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    vertexStride,
		InputRate: vk.VertexInputRateVertex,
	}}
}

func vertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Location: 0,
			Binding:  0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
		},
		{
			Location: 1,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
		},
	}
}
