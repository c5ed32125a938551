package aurora

import (
	"math"
	"testing"

	lin "github.com/xlab/linmath"
)

// transformPoint applies a column-major matrix to (x, y, z, 1).
func transformPoint(m *[16]float32, x, y, z float32) [4]float32 {
	in := [4]float32{x, y, z, 1}
	var out [4]float32
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r] += m[c*4+r] * in[c]
		}
	}
	return out
}

func TestSpinTransformAtRest(t *testing.T) {
	spin := &SpinTransform{
		Clock:  func() float64 { return 0 },
		Aspect: func() float32 { return 4.0 / 3.0 },
		Speed:  1,
	}
	var m [16]float32
	spin.WriteFrameData(0, &m)

	top := transformPoint(&m, 0, -0.5, 0)
	if top[3] <= 0 {
		t.Fatalf("w = %v, point is behind the camera", top[3])
	}
	if math.Abs(float64(top[0])) > 1e-5 {
		t.Errorf("top vertex x = %v, want 0", top[0])
	}
	if top[1] >= 0 {
		t.Errorf("top vertex clip y = %v, want negative (top of the screen)", top[1])
	}
	if depth := top[2] / top[3]; depth < 0 || depth > 1 {
		t.Errorf("depth %v outside [0, 1]", depth)
	}

	right := transformPoint(&m, 0.5, 0.5, 0)
	left := transformPoint(&m, -0.5, 0.5, 0)
	if right[0]/right[3] <= left[0]/left[3] {
		t.Errorf("x is mirrored: right %v, left %v", right, left)
	}
}

func TestSpinTransformRotates(t *testing.T) {
	now := 0.0
	spin := &SpinTransform{Clock: func() float64 { return now }, Speed: 2}
	var still, turned [16]float32
	spin.WriteFrameData(0, &still)
	now = math.Pi / 4
	spin.WriteFrameData(0, &turned)
	if still == turned {
		t.Error("matrix unchanged as time advanced")
	}

	// A half turn maps the top vertex onto its mirror.
	now = math.Pi / 2
	spin.WriteFrameData(0, &turned)
	a := transformPoint(&still, 0, 0.5, 0)
	b := transformPoint(&turned, 0, -0.5, 0)
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-4 {
			t.Fatalf("half turn: got %v, want %v", b, a)
		}
	}
}

func TestStoreMatrixIsColumnMajor(t *testing.T) {
	var m lin.Mat4x4
	m.Identity()
	m[3][0], m[3][1], m[3][2] = 7, 8, 9
	var out [16]float32
	storeMatrix(&out, &m)
	if out[12] != 7 || out[13] != 8 || out[14] != 9 || out[15] != 1 || out[0] != 1 {
		t.Errorf("got %v", out)
	}
}

func TestVulkanProjectionMat(t *testing.T) {
	var proj, m lin.Mat4x4
	proj.Identity()
	VulkanProjectionMat(&m, &proj)
	if m != vulkanClip {
		t.Errorf("identity projection: got %v", m)
	}
}
