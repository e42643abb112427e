// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all viewer settings.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Render   RenderConfig   `yaml:"render"`
	Model    ModelConfig    `yaml:"model"`
	Playback PlaybackConfig `yaml:"playback"`
	Follow   FollowConfig   `yaml:"follow"`
	Presets  PresetsConfig  `yaml:"presets"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// Render backends.
const (
	BackendSDL    = "sdl"
	BackendEbiten = "ebiten"
)

// RenderConfig selects and tunes the rendering backend.
type RenderConfig struct {
	Backend    string     `yaml:"backend"`
	Background [4]float32 `yaml:"background"` // RGBA, 0..1
	Scale      float32    `yaml:"scale"`
}

// ModelConfig points at the puppet to load.
type ModelConfig struct {
	Path    string `yaml:"path"`    // model3.json descriptor
	Runtime string `yaml:"runtime"` // registered moc core name

	// HonorInvertedMaskFlag makes masked drawables use the runtime's
	// inverted-mask bit instead of always masking normally.
	HonorInvertedMaskFlag bool `yaml:"honor_inverted_mask_flag"`
	// AngleInputChannel routes Angle physics inputs into the root angle
	// instead of the Y translation.
	AngleInputChannel bool `yaml:"angle_input_channel"`
}

// Bezier policies and loop overrides.
const (
	PolicyAuto       = "auto"
	PolicyRestricted = "restricted"
	PolicyExact      = "exact"

	LoopAuto = "auto"
	LoopOn   = "on"
	LoopOff  = "off"
)

// PlaybackConfig holds motion and simulation settings.
type PlaybackConfig struct {
	TickRate    int    `yaml:"tick_rate"` // Hz
	MotionGroup string `yaml:"motion_group"`
	MotionIndex int    `yaml:"motion_index"`
	Policy      string `yaml:"bezier_policy"`
	Fade        bool   `yaml:"fade"`
	Physics     bool   `yaml:"physics"`
	Loop        string `yaml:"loop"`
}

// FollowConfig tunes the pointer-follow spring.
type FollowConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Frequency float64 `yaml:"frequency"`
	Damping   float64 `yaml:"damping"`
}

// PresetsConfig configures the pose preset store.
type PresetsConfig struct {
	AppName string `yaml:"app_name"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Marionette",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Render: RenderConfig{
			Backend:    BackendSDL,
			Background: [4]float32{0.1, 0.1, 0.12, 1},
			Scale:      1,
		},
		Model: ModelConfig{
			Runtime: "fixture",
		},
		Playback: PlaybackConfig{
			TickRate:    60,
			MotionGroup: "Idle",
			Policy:      PolicyAuto,
			Physics:     true,
			Loop:        LoopAuto,
		},
		Follow: FollowConfig{
			Enabled:   true,
			Frequency: 6,
			Damping:   0.7,
		},
		Presets: PresetsConfig{
			AppName: "marionette",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	switch c.Render.Backend {
	case BackendSDL, BackendEbiten:
	default:
		return fmt.Errorf("%w: render.backend %q", ErrInvalidConfig, c.Render.Backend)
	}
	switch c.Playback.Policy {
	case PolicyAuto, PolicyRestricted, PolicyExact:
	default:
		return fmt.Errorf("%w: playback.bezier_policy %q", ErrInvalidConfig, c.Playback.Policy)
	}
	switch c.Playback.Loop {
	case LoopAuto, LoopOn, LoopOff:
	default:
		return fmt.Errorf("%w: playback.loop %q", ErrInvalidConfig, c.Playback.Loop)
	}
	if c.Playback.TickRate <= 0 {
		return fmt.Errorf("%w: playback.tick_rate must be positive, got %d", ErrInvalidConfig, c.Playback.TickRate)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if c.Model.Runtime == "" {
		return fmt.Errorf("%w: model.runtime is empty", ErrInvalidConfig)
	}
	return nil
}
