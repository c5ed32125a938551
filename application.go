package aurora

import vk "github.com/vulkan-go/vulkan"

// FrameDataWriter fills the per-image transform before the frame is
// recorded. m is the 16-float column-major matrix bound at set 0, binding 0.
type FrameDataWriter interface {
	WriteFrameData(imageIndex uint32, m *[16]float32)
}

// UIRecorder records extra draws into the scene render pass after the mesh.
// cmd is in the recording state and inside the pass.
type UIRecorder interface {
	RecordUI(cmd vk.CommandBuffer, imageIndex uint32)
}

// Application is a game driven by Engine.Run.
type Application interface {
	OnInit(e *Engine) error
	OnUpdate(e *Engine, dt float32)
	OnShutdown(e *Engine)
}

// FrameDataFunc adapts a function to FrameDataWriter.
type FrameDataFunc func(imageIndex uint32, m *[16]float32)

func (f FrameDataFunc) WriteFrameData(imageIndex uint32, m *[16]float32) {
	f(imageIndex, m)
}

// UIFunc adapts a function to UIRecorder.
type UIFunc func(cmd vk.CommandBuffer, imageIndex uint32)

func (f UIFunc) RecordUI(cmd vk.CommandBuffer, imageIndex uint32) {
	f(cmd, imageIndex)
}
