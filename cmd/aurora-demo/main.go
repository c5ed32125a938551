// Command aurora-demo opens a window and draws the spinning triangle until it
// is closed.
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"runtime"

	"github.com/andewx/aurora"
	"github.com/xlab/closer"
)

func init() {
	// glfw and the vulkan surface belong to the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "Path to a yaml config file (defaults are used when empty)")
	flag.Parse()

	cfg := aurora.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = aurora.LoadConfig(*configPath)
		if err != nil {
			slog.Error("Failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	log := aurora.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	var metrics *aurora.Metrics
	if cfg.MetricsAddr != "" {
		metrics = aurora.NewMetrics()
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, metrics.Handler()); err != nil {
				log.Warn("metrics server stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	engine, err := aurora.Initialize(0, 0, "", aurora.Options{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics,
	})
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	closer.Bind(engine.Shutdown)

	if err := engine.Run(&minimalGame{log: log}); err != nil {
		log.Error("fatal device error", "error", err)
		closer.Exit(1)
	}
	closer.Close()
}

// minimalGame only reports its lifecycle and attaches an editor layer.
type minimalGame struct {
	log     *slog.Logger
	elapsed float32
}

func (g *minimalGame) OnInit(e *aurora.Engine) error {
	g.log.Info("game init")
	e.Layers().PushLayer(&editorLayer{log: g.log})
	return nil
}

func (g *minimalGame) OnUpdate(e *aurora.Engine, dt float32) {
	g.elapsed += dt
	if g.elapsed >= 5 {
		g.elapsed = 0
		stats := e.Stats()
		g.log.Debug("frame stats",
			"fps", e.FPS(),
			"frames", stats.Frames,
			"rebuilds", stats.Rebuilds,
			"rebuild_failures", stats.RebuildFailures)
	}
}

func (g *minimalGame) OnShutdown(*aurora.Engine) {
	g.log.Info("game shutdown")
}

// editorLayer is a placeholder for tooling drawn on top of the scene.
type editorLayer struct {
	log *slog.Logger
}

func (l *editorLayer) Name() string { return "editor" }

func (l *editorLayer) OnAttach() { l.log.Info("layer attached", "layer", l.Name()) }

func (l *editorLayer) OnDetach() { l.log.Info("layer detached", "layer", l.Name()) }

func (l *editorLayer) OnUpdate(float32) {}
