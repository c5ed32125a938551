package aurora

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

// fakeWindow returns scripted framebuffer sizes, one per call, repeating the
// last one.
type fakeWindow struct {
	sizes      [][2]int
	sizeCalls  int
	waitCalls  int
	pollCalls  int
	closeAfter int
	resized    bool
	now        float64
	step       float64
	title      string
	destroyed  int
}

func (w *fakeWindow) FramebufferSize() (int, int) {
	i := w.sizeCalls
	if i >= len(w.sizes) {
		i = len(w.sizes) - 1
	}
	w.sizeCalls++
	return w.sizes[i][0], w.sizes[i][1]
}

func (w *fakeWindow) ShouldClose() bool {
	return w.closeAfter > 0 && w.pollCalls >= w.closeAfter
}

func (w *fakeWindow) Resized() bool { return w.resized }
func (w *fakeWindow) ClearResized() { w.resized = false }

func (w *fakeWindow) Time() float64 {
	w.now += w.step
	return w.now
}

func (w *fakeWindow) PollEvents()           { w.pollCalls++ }
func (w *fakeWindow) WaitEvents()           { w.waitCalls++ }
func (w *fakeWindow) SetTitle(title string) { w.title = title }
func (w *fakeWindow) Destroy()              { w.destroyed++ }

func (w *fakeWindow) RequiredInstanceExtensions() []string { return nil }

func (w *fakeWindow) CreateSurface(vk.Instance) (vk.Surface, error) {
	return vk.NullSurface, nil
}

func TestWaitForDrawableSizeBlocksWhileMinimized(t *testing.T) {
	win := &fakeWindow{sizes: [][2]int{{0, 0}, {0, 600}, {800, 600}}}
	w, h := WaitForDrawableSize(win)
	if w != 800 || h != 600 {
		t.Errorf("got %dx%d, want 800x600", w, h)
	}
	if win.waitCalls != 2 {
		t.Errorf("WaitEvents called %d times, want 2", win.waitCalls)
	}
}

func TestWaitForDrawableSizeReturnsAtOnce(t *testing.T) {
	win := &fakeWindow{sizes: [][2]int{{1280, 720}}}
	if w, h := WaitForDrawableSize(win); w != 1280 || h != 720 {
		t.Errorf("got %dx%d", w, h)
	}
	if win.waitCalls != 0 {
		t.Errorf("WaitEvents called %d times for a visible window", win.waitCalls)
	}
}
