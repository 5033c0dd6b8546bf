// Package config provides configuration loading and management for trackcrop.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"trackcrop/pkg/mosaic"
	"trackcrop/pkg/projection"
	"trackcrop/pkg/stackio"
	"trackcrop/pkg/tracks"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Extraction parameters
	Extraction struct {
		// ROIWidth and ROIHeight size the crop around each detection in pixels
		ROIWidth  int `yaml:"roiWidth"`
		ROIHeight int `yaml:"roiHeight"`

		// MaxTracks limits the number of tracks extracted; 0 extracts all
		MaxTracks int `yaml:"maxTracks"`

		// Workers is the number of tracks extracted in parallel
		Workers int `yaml:"workers"`

		// FrameOrigin is the index the table uses for the first frame
		// (TrackMate counts from 0); 1 uses table frames as stack indices
		// unchanged
		FrameOrigin int `yaml:"frameOrigin"`

		// ContinueOnError keeps extracting when a single track fails
		ContinueOnError bool `yaml:"continueOnError"`

		// FallbackScale treats uncalibrated stacks as pixel-unit stacks
		FallbackScale bool `yaml:"fallbackScale"`
	} `yaml:"extraction"`

	// Fields names the tracking-table columns
	Fields struct {
		Spot  tracks.SpotFields  `yaml:"spot"`
		Track tracks.TrackFields `yaml:"track"`
	} `yaml:"fields"`

	// Table parsing parameters
	Table stackio.TableOptions `yaml:"table"`

	// Mosaic parameters
	Mosaic struct {
		// PerRow is the number of track stacks per mosaic row
		PerRow int `yaml:"perRow"`
	} `yaml:"mosaic"`

	// Projection parameters for the project and filter commands
	Projection struct {
		Method  string `yaml:"method"`
		Window  int    `yaml:"window"`
		Gliding bool   `yaml:"gliding"`
	} `yaml:"projection"`

	// Montage parameters
	Montage mosaic.MontageOptions `yaml:"montage"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// LogFormat is console or json
		LogFormat string `yaml:"logFormat"`

		// SaveTrackStacks writes every TRACK_ID_<id> stack next to the mosaic
		SaveTrackStacks bool `yaml:"saveTrackStacks"`

		// Preview writes JPEG previews of the mosaic frames
		Preview bool `yaml:"preview"`

		// PreviewZoom enlarges preview images by an integer factor
		PreviewZoom int `yaml:"previewZoom"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Extraction.ROIWidth = 150
	cfg.Extraction.ROIHeight = 150
	cfg.Extraction.MaxTracks = 0
	cfg.Extraction.Workers = runtime.NumCPU()
	cfg.Extraction.FrameOrigin = 0
	cfg.Extraction.ContinueOnError = false
	cfg.Extraction.FallbackScale = true

	cfg.Fields.Spot = tracks.DefaultSpotFields()
	cfg.Fields.Track = tracks.DefaultTrackFields()

	cfg.Table.HeaderSkip = 0

	cfg.Mosaic.PerRow = 10

	cfg.Projection.Method = string(projection.Median)
	cfg.Projection.Window = 3
	cfg.Projection.Gliding = true

	cfg.Montage = mosaic.MontageOptions{Columns: 6, Rows: 6, Increment: 1}

	cfg.Output.Verbose = false
	cfg.Output.LogFormat = "console"
	cfg.Output.SaveTrackStacks = true
	cfg.Output.Preview = false
	cfg.Output.PreviewZoom = 1

	return cfg
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Extraction.ROIWidth < 1 || c.Extraction.ROIHeight < 1 {
		return fmt.Errorf("roi size must be positive, got %dx%d", c.Extraction.ROIWidth, c.Extraction.ROIHeight)
	}
	if c.Extraction.MaxTracks < 0 {
		return fmt.Errorf("maxTracks must not be negative, got %d", c.Extraction.MaxTracks)
	}
	if c.Mosaic.PerRow < 1 {
		return fmt.Errorf("mosaic perRow must be positive, got %d", c.Mosaic.PerRow)
	}
	if c.Projection.Window < 1 {
		return fmt.Errorf("projection window must be positive, got %d", c.Projection.Window)
	}
	if _, err := projection.ParseMethod(c.Projection.Method); err != nil {
		return err
	}
	if c.Output.PreviewZoom < 0 {
		return fmt.Errorf("previewZoom must not be negative, got %d", c.Output.PreviewZoom)
	}
	if c.Table.HeaderSkip < 0 {
		return fmt.Errorf("table headerSkip must not be negative, got %d", c.Table.HeaderSkip)
	}
	switch c.Output.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log format %q (must be console or json)", c.Output.LogFormat)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
