package aurora

import (
	"math"

	lin "github.com/xlab/linmath"
)

// vulkanClip flips Y and maps GL depth [-1, 1] onto [0, 1].
var vulkanClip = lin.Mat4x4{
	{1, 0, 0, 0},
	{0, -1, 0, 0},
	{0, 0, 0.5, 0},
	{0, 0, 0.5, 1},
}

// VulkanProjectionMat converts an OpenGL style projection matrix to Vulkan style projection matrix.
// Vulkan has a topLeft clipSpace with [0, 1] depth range instead of [-1, 1].
// m and proj must not alias.
func VulkanProjectionMat(m *lin.Mat4x4, proj *lin.Mat4x4) {
	m.Mult(&vulkanClip, proj)
}

// SpinTransform is the default FrameDataWriter. It writes a model-view-
// projection matrix that turns the scene around Z at Speed radians per
// second.
type SpinTransform struct {
	Clock  func() float64
	Aspect func() float32
	Speed  float32
}

func (s *SpinTransform) WriteFrameData(_ uint32, out *[16]float32) {
	var t float64
	if s.Clock != nil {
		t = s.Clock()
	}
	aspect := float32(1)
	if s.Aspect != nil {
		if a := s.Aspect(); a > 0 {
			aspect = a
		}
	}

	var ident, model, view, proj, clip, viewModel, mvp lin.Mat4x4
	ident.Identity()
	model.RotateZ(&ident, float32(t)*s.Speed)
	// Camera behind the scene with Y down, matching vertex data written for
	// Vulkan's top-left clip space.
	view.LookAt(&lin.Vec3{0, 0, -2}, &lin.Vec3{0, 0, 0}, &lin.Vec3{0, -1, 0})
	proj.Perspective(math.Pi/4, aspect, 0.1, 10)
	VulkanProjectionMat(&clip, &proj)

	viewModel.Mult(&view, &model)
	mvp.Mult(&clip, &viewModel)
	storeMatrix(out, &mvp)
}

// storeMatrix flattens m column by column.
func storeMatrix(out *[16]float32, m *lin.Mat4x4) {
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[c*4+r] = m[c][r]
		}
	}
}
