package aurora

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration of an Engine. Validation layers and
// verbose startup logging are build tags, not fields.
type Config struct {
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Title   string `yaml:"title"`
	AppName string `yaml:"app_name"`

	// FramesInFlight is the number of frame slots. Zero means one slot per chain image.
	FramesInFlight int `yaml:"frames_in_flight"`

	ShaderDirs     []string   `yaml:"shader_dirs"`
	VertexShader   string     `yaml:"vertex_shader"`
	FragmentShader string     `yaml:"fragment_shader"`
	ClearColor     [4]float32 `yaml:"clear_color"`

	Log         LogConfig `yaml:"log"`
	MetricsAddr string    `yaml:"metrics_addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() Config {
	return Config{
		Width:          1280,
		Height:         720,
		Title:          "Aurora",
		AppName:        "Aurora3D",
		ShaderDirs:     DefaultShaderDirs(),
		VertexShader:   "triangle.vert.spv",
		FragmentShader: "triangle.frag.spv",
		ClearColor:     [4]float32{0, 0, 0, 1},
		Log:            LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads a yaml file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to parse config file")
	}
	cfg = cfg.withDefaults()
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Newf("invalid window size %dx%d", c.Width, c.Height)
	}
	if c.FramesInFlight < 0 {
		return errors.Newf("frames_in_flight must not be negative, got %d", c.FramesInFlight)
	}
	if c.VertexShader == "" || c.FragmentShader == "" {
		return errors.New("vertex_shader and fragment_shader are required")
	}
	return nil
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Width == 0 {
		c.Width = d.Width
	}
	if c.Height == 0 {
		c.Height = d.Height
	}
	if c.Title == "" {
		c.Title = d.Title
	}
	if c.AppName == "" {
		c.AppName = d.AppName
	}
	if len(c.ShaderDirs) == 0 {
		c.ShaderDirs = d.ShaderDirs
	}
	if c.VertexShader == "" {
		c.VertexShader = d.VertexShader
	}
	if c.FragmentShader == "" {
		c.FragmentShader = d.FragmentShader
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	return c
}
