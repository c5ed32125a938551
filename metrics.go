package aurora

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the frame loop's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FramesPresented prometheus.Counter
	Rebuilds        *prometheus.CounterVec
	StaleAcquires   prometheus.Counter
	FrameTime       prometheus.Histogram
	FPS             prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry so several engines
// can coexist in one process.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FramesPresented: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "aurora",
				Subsystem: "frames",
				Name:      "presented_total",
				Help:      "Frames submitted and handed to presentation",
			},
		),
		Rebuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aurora",
				Subsystem: "swapchain",
				Name:      "rebuilds_total",
				Help:      "Presentation chain rebuilds by result",
			},
			[]string{"result"},
		),
		StaleAcquires: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "aurora",
				Subsystem: "swapchain",
				Name:      "stale_acquires_total",
				Help:      "Image acquisitions that found the chain out of date",
			},
		),
		FrameTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "aurora",
				Subsystem: "frames",
				Name:      "cpu_seconds",
				Help:      "CPU time from slot wait to present",
				Buckets:   []float64{0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066, 0.1, 0.25},
			},
		),
		FPS: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "aurora",
				Subsystem: "frames",
				Name:      "per_second",
				Help:      "Frames per second over the last full second",
			},
		),
	}
	m.registry.MustRegister(
		m.FramesPresented,
		m.Rebuilds,
		m.StaleAcquires,
		m.FrameTime,
		m.FPS,
	)
	return m
}

// Registry exposes the collectors for gathering and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) framePresented(cpu time.Duration) {
	if m == nil {
		return
	}
	m.FramesPresented.Inc()
	m.FrameTime.Observe(cpu.Seconds())
}

func (m *Metrics) rebuilt() {
	if m == nil {
		return
	}
	m.Rebuilds.WithLabelValues("ok").Inc()
}

func (m *Metrics) rebuildFailed() {
	if m == nil {
		return
	}
	m.Rebuilds.WithLabelValues("failed").Inc()
}

func (m *Metrics) staleAcquire() {
	if m == nil {
		return
	}
	m.StaleAcquires.Inc()
}

func (m *Metrics) setFPS(fps int) {
	if m == nil {
		return
	}
	m.FPS.Set(float64(fps))
}
