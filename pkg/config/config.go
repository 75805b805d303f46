// Package config loads driver settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

// DefaultFilename is read from the working directory when no -config path
// is given.
const DefaultFilename = "dcc.yml"

// Environment variables overriding the file.
const (
	EnvFrameSize = "DCC_FRAME_SIZE"
	EnvColor     = "DCC_COLOR"
	EnvVerbose   = "DCC_VERBOSE"
	EnvCheck     = "DCC_CHECK"
	EnvComments  = "DCC_COMMENTS"
)

// Config holds every driver setting.
type Config struct {
	FrameSize int    `yaml:"frame_size"` // 0 sizes each frame from its locals
	Color     string `yaml:"color"`      // auto, always or never
	Verbose   bool   `yaml:"verbose"`
	Check     bool   `yaml:"check"`
	Comments  bool   `yaml:"comments"`
}

func Default() Config {
	return Config{Color: "auto"}
}

// Load reads path over the defaults. A missing file is an error unless
// optional is set, in which case the defaults are returned.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document leaves out.
func Parse(data []byte, cfg *Config) error {
	var doc struct {
		FrameSize *int    `yaml:"frame_size"`
		Color     *string `yaml:"color"`
		Verbose   *bool   `yaml:"verbose"`
		Check     *bool   `yaml:"check"`
		Comments  *bool   `yaml:"comments"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if doc.FrameSize != nil {
		cfg.FrameSize = *doc.FrameSize
	}
	if doc.Color != nil {
		cfg.Color = *doc.Color
	}
	if doc.Verbose != nil {
		cfg.Verbose = *doc.Verbose
	}
	if doc.Check != nil {
		cfg.Check = *doc.Check
	}
	if doc.Comments != nil {
		cfg.Comments = *doc.Comments
	}
	return nil
}

// ApplyEnv overrides cfg with every DCC_* variable that is set. The env
// cache is reloaded first so variables changed since the last read count.
func (cfg *Config) ApplyEnv() {
	env.Load()
	if env.Has(EnvFrameSize) {
		cfg.FrameSize = env.Int(EnvFrameSize, cfg.FrameSize)
	}
	if env.Has(EnvColor) {
		cfg.Color = env.Str(EnvColor, cfg.Color)
	}
	if env.Has(EnvVerbose) {
		cfg.Verbose = env.Bool(EnvVerbose)
	}
	if env.Has(EnvCheck) {
		cfg.Check = env.Bool(EnvCheck)
	}
	if env.Has(EnvComments) {
		cfg.Comments = env.Bool(EnvComments)
	}
}

// Validate rejects settings the compiler cannot honour.
func (cfg Config) Validate() error {
	if cfg.FrameSize < 0 {
		return fmt.Errorf("frame size %d is negative", cfg.FrameSize)
	}
	if cfg.FrameSize%16 != 0 {
		return fmt.Errorf("frame size %d is not a multiple of 16", cfg.FrameSize)
	}
	switch cfg.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("unknown color mode %q (want auto, always or never)", cfg.Color)
	}
	return nil
}
