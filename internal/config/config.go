// Package config loads the snapshot renderer's JSON configuration and
// resolves it against CLI flag overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
)

// Pose is one camera setup to render.
type Pose struct {
	Name        string     `json:"name"`
	Position    [3]float64 `json:"position"`
	LookAt      [3]float64 `json:"look_at"`
	FOVDegrees  float64    `json:"fov_degrees"`
	SpinDegrees float64    `json:"spin_degrees"` // model rotation about Y
}

// Config holds all snapshot renderer settings.
type Config struct {
	Model     string `json:"model"`
	Texture   string `json:"texture"`
	OutputDir string `json:"output_dir"`

	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"` // png, bmp or webp

	// Workers renders this many poses concurrently; TileWorkers is the
	// rasterization worker count inside each render.
	Workers     int `json:"workers"`
	TileWorkers int `json:"tile_workers"`

	TileOverlay bool       `json:"tile_overlay"`
	LightDir    [3]float64 `json:"light_dir"`
	Background  [3]uint8   `json:"background"`

	Poses []Pose `json:"poses"`
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Model     string
	OutputDir string
	Format    string
	Width     int
	Height    int
	Workers   int
	Tiles     bool
}

// Load reads a JSON config file. Fields not set in the file keep their
// zero values until Resolve fills in defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve applies flag overrides and fills remaining empty fields with
// defaults. Returns an error for settings with no usable value.
func (c *Config) Resolve(flags Flags) error {
	if flags.Model != "" {
		c.Model = flags.Model
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.Width > 0 {
		c.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Height = flags.Height
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Tiles {
		c.TileOverlay = true
	}

	if c.Model == "" {
		return fmt.Errorf("config: no model given")
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.Width <= 0 {
		c.Width = 800
	}
	if c.Height <= 0 {
		c.Height = 600
	}
	if c.Format == "" {
		c.Format = "png"
	}
	switch c.Format {
	case "png", "bmp", "webp":
	default:
		return fmt.Errorf("config: unsupported format %q (use png, bmp or webp)", c.Format)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.TileWorkers <= 0 {
		c.TileWorkers = 1
	}
	if c.LightDir == [3]float64{} {
		c.LightDir = [3]float64{0.5, 1, 0.8}
	}
	if c.Background == [3]uint8{} {
		c.Background = [3]uint8{30, 30, 40}
	}

	if len(c.Poses) == 0 {
		c.Poses = DefaultPoses()
	}
	for i, p := range c.Poses {
		if p.Name == "" {
			return fmt.Errorf("config: pose %d has no name", i)
		}
		if p.Position == p.LookAt {
			return fmt.Errorf("config: pose %q: position equals look_at", p.Name)
		}
	}
	return nil
}

// DefaultPoses is a four-point orbit around the origin.
func DefaultPoses() []Pose {
	return []Pose{
		{Name: "front", Position: [3]float64{0, 1, 4}},
		{Name: "right", Position: [3]float64{4, 1, 0}},
		{Name: "back", Position: [3]float64{0, 1, -4}},
		{Name: "left", Position: [3]float64{-4, 1, 0}},
	}
}
