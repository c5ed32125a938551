package aurora

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Window is everything the core needs from the windowing layer.
type Window interface {
	// FramebufferSize is the drawable area in pixels.
	FramebufferSize() (width, height int)
	ShouldClose() bool
	// Resized reports a framebuffer size change since the last ClearResized.
	Resized() bool
	ClearResized()
	// Time is a monotonic clock in seconds.
	Time() float64
	PollEvents()
	// WaitEvents blocks until at least one event arrives.
	WaitEvents()
	SetTitle(title string)
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	RequiredInstanceExtensions() []string
	Destroy()
}

// Display is the glfw implementation of Window.
type Display struct {
	window  *glfw.Window
	resized bool
}

// NewDisplay opens a glfw window without a client API. glfw must already be
// initialized on the locked main thread.
func NewDisplay(width, height int, title string) (*Display, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, failure(ErrStartupFailure, err, "create window %dx%d", width, height)
	}
	d := &Display{window: window}
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, _ int, _ int) {
		d.resized = true
	})
	return d, nil
}

func (d *Display) FramebufferSize() (int, int) {
	return d.window.GetFramebufferSize()
}

func (d *Display) ShouldClose() bool {
	return d.window.ShouldClose()
}

func (d *Display) Resized() bool {
	return d.resized
}

func (d *Display) ClearResized() {
	d.resized = false
}

func (d *Display) Time() float64 {
	return glfw.GetTime()
}

func (d *Display) PollEvents() {
	glfw.PollEvents()
}

func (d *Display) WaitEvents() {
	glfw.WaitEvents()
}

func (d *Display) SetTitle(title string) {
	d.window.SetTitle(title)
}

func (d *Display) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := d.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "create window surface")
	}
	return vk.SurfaceFromPointer(ptr), nil
}

func (d *Display) RequiredInstanceExtensions() []string {
	return d.window.GetRequiredInstanceExtensions()
}

func (d *Display) Destroy() {
	if d.window != nil {
		d.window.Destroy()
		d.window = nil
	}
}

// WaitForDrawableSize blocks in WaitEvents while the drawable area is empty,
// as it is for a minimized window.
func WaitForDrawableSize(win Window) (int, int) {
	width, height := win.FramebufferSize()
	for width == 0 || height == 0 {
		win.WaitEvents()
		width, height = win.FramebufferSize()
	}
	return width, height
}
