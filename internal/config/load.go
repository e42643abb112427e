package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags, then
// validates the result.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./marionette.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Marionette")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Marionette")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "marionette")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "marionette")
	}
}

// loadFromFile merges a YAML file over cfg. A relative model path is
// resolved against the file's directory.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	before := cfg.Model.Path
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	if p := cfg.Model.Path; p != before && p != "" && !filepath.IsAbs(p) {
		cfg.Model.Path = filepath.Join(filepath.Dir(path), p)
	}
	return nil
}
