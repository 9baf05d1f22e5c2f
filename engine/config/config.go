package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

type AppConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	PosX    int    `toml:"pos_x"`
	PosY    int    `toml:"pos_y"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
}

type RendererConfig struct {
	ClearColor [4]float32 `toml:"clear_color"`
	// Validation overrides the build default when set.
	Validation *bool `toml:"validation"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type AssetsConfig struct {
	// Textures are loaded at startup, in order.
	Textures []string `toml:"textures"`
	// Watch reloads a texture when its file changes on disk.
	Watch bool `toml:"watch"`
}

type Config struct {
	App      AppConfig      `toml:"app"`
	Renderer RendererConfig `toml:"renderer"`
	Log      LogConfig      `toml:"log"`
	Assets   AssetsConfig   `toml:"assets"`
}

func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:    "vkpresent demo",
			Version: "1.0.0",
			PosX:    100,
			PosY:    100,
			Width:   1280,
			Height:  720,
		},
		Renderer: RendererConfig{
			ClearColor: [4]float32{0.45, 0.55, 0.60, 1.00},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML file over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if cfg.App.Width <= 0 || cfg.App.Height <= 0 {
		return nil, errors.Newf("config %s: window size %dx%d is not positive", path, cfg.App.Width, cfg.App.Height)
	}
	return cfg, nil
}

// ValidationEnabled resolves the validation switch against the build default.
func (c *Config) ValidationEnabled(buildDefault bool) bool {
	if c.Renderer.Validation == nil {
		return buildDefault
	}
	return *c.Renderer.Validation
}
