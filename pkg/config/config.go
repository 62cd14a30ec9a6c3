// Package config provides configuration loading and management for the
// root-image analysis pipeline. It handles loading configuration from YAML
// files and provides default values matching the original stage defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/artzet-s/rhizoscan/internal/models"
	"github.com/artzet-s/rhizoscan/pkg/plate"
	"github.com/artzet-s/rhizoscan/pkg/rootimage"
	"github.com/artzet-s/rhizoscan/pkg/seed"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many images are analyzed concurrently
		NumCores int `yaml:"numCores"`

		// Verbose enables stage-progress reporting
		Verbose bool `yaml:"verbose"`
	} `yaml:"processing"`

	// Plate detection parameters
	Plate struct {
		// Blur is the Gaussian kernel side applied before thresholding
		Blur int `yaml:"blur"`

		// MinAreaFrac is the smallest plate area as an image fraction
		MinAreaFrac float64 `yaml:"minAreaFrac"`
	} `yaml:"plate"`

	// Segmentation parameters
	Segmentation struct {
		// RootMaxRadius is the characteristic root radius in pixels
		RootMaxRadius int `yaml:"rootMaxRadius"`

		// MinDimension is the smallest pixel cluster kept in the root mask
		MinDimension int `yaml:"minDimension"`

		// Smooth is the Gaussian smoothing sigma, 0 to disable
		Smooth float64 `yaml:"smooth"`
	} `yaml:"segmentation"`

	// Leaf/seed detection parameters
	Leaves struct {
		// PlantNumber is the expected number of plants per image
		PlantNumber int `yaml:"plantNumber"`

		// RootMinRadius is the minimum root radius in pixels
		RootMinRadius float64 `yaml:"rootMinRadius"`

		// LeafHeight is the vertical seed search band as height fractions
		LeafHeight []float64 `yaml:"leafHeight"`

		// Sort orders detected seeds left-to-right
		Sort bool `yaml:"sort"`
	} `yaml:"leaves"`

	// Output parameters
	Output struct {
		// Dir is where masks and reports are written
		Dir string `yaml:"dir"`

		// SaveMasks writes the root mask and seed map as PNG files
		SaveMasks bool `yaml:"saveMasks"`

		// SaveReport writes the per-image measurement report as YAML
		SaveReport bool `yaml:"saveReport"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.Verbose = false

	cfg.Plate.Blur = 5
	cfg.Plate.MinAreaFrac = 0.05

	cfg.Segmentation.RootMaxRadius = 15
	cfg.Segmentation.MinDimension = 50
	cfg.Segmentation.Smooth = 1

	cfg.Leaves.PlantNumber = 1
	cfg.Leaves.RootMinRadius = 3
	cfg.Leaves.LeafHeight = []float64{0, 0.2}
	cfg.Leaves.Sort = true

	cfg.Output.Dir = "output"
	cfg.Output.SaveMasks = true
	cfg.Output.SaveReport = true

	return cfg
}

// LoadConfig loads configuration from a YAML file. If the file doesn't
// exist, it returns the default configuration.
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

	if len(cfg.Leaves.LeafHeight) != 2 {
		return nil, &models.ValueError{
			Param: "leafHeight", Value: cfg.Leaves.LeafHeight,
			Reason: "band must hold exactly two height fractions",
		}
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
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

// PlateOptions maps the configuration to plate-detection options.
func (c *Config) PlateOptions() plate.Options {
	return plate.Options{
		Blur:        c.Plate.Blur,
		MinAreaFrac: c.Plate.MinAreaFrac,
	}
}

// SegmentOptions maps the configuration to segmentation options.
func (c *Config) SegmentOptions() rootimage.SegmentOptions {
	opts := rootimage.DefaultSegmentOptions()
	opts.RootMaxRadius = c.Segmentation.RootMaxRadius
	opts.MinDimension = c.Segmentation.MinDimension
	opts.Smooth = c.Segmentation.Smooth
	opts.Verbose = c.Processing.Verbose
	return opts
}

// LeavesOptions maps the configuration to seed-detection options.
func (c *Config) LeavesOptions() seed.LeavesOptions {
	opts := seed.DefaultLeavesOptions()
	opts.PlantNumber = c.Leaves.PlantNumber
	opts.RootMinRadius = c.Leaves.RootMinRadius
	if len(c.Leaves.LeafHeight) == 2 {
		opts.LeafHeight = [2]float64{c.Leaves.LeafHeight[0], c.Leaves.LeafHeight[1]}
	}
	opts.Sort = c.Leaves.Sort
	return opts
}
