package aurora

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Options are the optional collaborators of an Engine. The zero value is
// usable: default config, no logging, no metrics, a spinning triangle.
type Options struct {
	Config    Config
	Logger    *slog.Logger
	Metrics   *Metrics
	FrameData FrameDataWriter
	UI        UIRecorder
	// Mesh replaces the default triangle when set.
	Mesh *Mesh
}

// Engine ties the window, the vulkan objects and the frame loop together.
// All methods must be called from the thread that called Initialize, and
// that thread must be locked with runtime.LockOSThread.
type Engine struct {
	cfg     Config
	log     *slog.Logger
	metrics *Metrics

	win       Window
	ownsGLFW  bool
	platform  *platform
	renderer  *renderer
	scheduler *FrameScheduler
	layers    LayerStack

	lastTime    float64
	deltaTime   float32
	fps         int
	fpsFrames   int
	fpsWindowAt float64
	closed      bool
}

// Initialize opens a window and brings up every vulkan object needed to
// draw. width, height and title override the config when set. Errors are
// marked ErrStartupFailure and leave nothing behind.
func Initialize(width, height int, title string, opts Options) (*Engine, error) {
	cfg := opts.Config.withDefaults()
	if width > 0 {
		cfg.Width = width
	}
	if height > 0 {
		cfg.Height = height
	}
	if title != "" {
		cfg.Title = title
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Mark(err, ErrStartupFailure)
	}
	log := opts.Logger
	if log == nil {
		log = newNopLogger()
	}

	if err := glfw.Init(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "init glfw"), ErrStartupFailure)
	}
	e := &Engine{cfg: cfg, log: log, metrics: opts.Metrics, ownsGLFW: true}

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		e.Shutdown()
		return nil, errors.Mark(errors.Wrap(err, "load vulkan"), ErrStartupFailure)
	}

	display, err := NewDisplay(cfg.Width, cfg.Height, cfg.Title)
	if err != nil {
		e.Shutdown()
		return nil, err
	}
	e.win = display

	if e.platform, err = newPlatform(e.win, cfg.AppName, log); err != nil {
		e.Shutdown()
		return nil, err
	}

	mesh := Triangle()
	if opts.Mesh != nil {
		mesh = *opts.Mesh
	}
	if e.renderer, err = newRenderer(e.platform, e.win, cfg, mesh, opts.UI, log); err != nil {
		e.Shutdown()
		return nil, err
	}

	frameData := opts.FrameData
	if frameData == nil {
		frameData = &SpinTransform{Clock: e.win.Time, Aspect: e.aspect, Speed: 1}
	}
	e.scheduler = newFrameScheduler(e.renderer, frameData, log, e.metrics)
	e.lastTime = e.win.Time()
	e.fpsWindowAt = e.lastTime

	log.Info("engine initialized",
		"adapter", e.platform.adapter.Name,
		"width", cfg.Width,
		"height", cfg.Height,
		"slots", e.renderer.SlotCount(),
		"images", e.renderer.ImageCount())
	return e, nil
}

func (e *Engine) aspect() float32 {
	if e.renderer == nil || e.renderer.chain == nil {
		return 1
	}
	extent := e.renderer.Extent()
	if extent.Height == 0 {
		return 1
	}
	return float32(extent.Width) / float32(extent.Height)
}

// AdvanceFrame polls window events and draws one frame. It returns false
// once the window has been asked to close. A non-nil error is marked
// ErrFatalDevice and ends the loop.
func (e *Engine) AdvanceFrame() (bool, error) {
	if e.closed {
		return false, nil
	}
	e.win.PollEvents()
	if e.win.ShouldClose() {
		return false, nil
	}
	if e.win.Resized() {
		e.scheduler.RequestRebuild()
		e.win.ClearResized()
	}
	if err := e.scheduler.DrawFrame(); err != nil {
		return false, err
	}
	e.countFrame(e.win.Time())
	return true, nil
}

// countFrame updates the FPS figure once per second of window time.
func (e *Engine) countFrame(now float64) {
	e.fpsFrames++
	if now-e.fpsWindowAt < 1.0 {
		return
	}
	e.fps = int(float64(e.fpsFrames)/(now-e.fpsWindowAt) + 0.5)
	e.fpsFrames = 0
	e.fpsWindowAt = now
	e.metrics.setFPS(e.fps)
	e.win.SetTitle(fmt.Sprintf("%s | %d fps", e.cfg.Title, e.fps))
}

// Run drives app until the window closes or the device fails. The fatal
// error, if any, is returned after OnShutdown has run.
func (e *Engine) Run(app Application) error {
	if err := app.OnInit(e); err != nil {
		return errors.Wrap(err, "application init")
	}
	e.lastTime = e.win.Time()

	var runErr error
	for {
		now := e.win.Time()
		e.deltaTime = float32(now - e.lastTime)
		e.lastTime = now

		ok, err := e.AdvanceFrame()
		if err != nil {
			e.log.Error("frame loop stopped", "error", err)
			runErr = err
			break
		}
		if !ok {
			break
		}
		e.layers.Update(e.deltaTime)
		app.OnUpdate(e, e.deltaTime)
	}
	app.OnShutdown(e)
	return runErr
}

// Shutdown waits for the device and releases everything Initialize created.
// Calling it more than once is harmless.
func (e *Engine) Shutdown() {
	if e.closed {
		return
	}
	e.closed = true
	e.layers.DetachAll()
	if e.renderer != nil {
		e.renderer.destroy()
		e.renderer = nil
	}
	if e.platform != nil {
		e.platform.destroy()
		e.platform = nil
	}
	if e.win != nil {
		e.win.Destroy()
		e.win = nil
	}
	if e.ownsGLFW {
		glfw.Terminate()
		e.ownsGLFW = false
	}
	debugLog.Store(nil)
	e.log.Log(context.Background(), startupLevel(), "engine shut down")
}

// DeltaTime is the window-clock time between the last two frames, in seconds.
func (e *Engine) DeltaTime() float32 {
	return e.deltaTime
}

func (e *Engine) FPS() int {
	return e.fps
}

func (e *Engine) Layers() *LayerStack {
	return &e.layers
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Logger() *slog.Logger {
	return e.log
}

// Stats reports frame loop counters.
func (e *Engine) Stats() SchedulerStats {
	if e.scheduler == nil {
		return SchedulerStats{}
	}
	return e.scheduler.Stats()
}
