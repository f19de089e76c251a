// Package config stores the drum map and output settings
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/james-see/midi2edda/pkg/converter"
	"github.com/sirupsen/logrus"
)

// DefaultPath is the config file looked up in the working directory
const DefaultPath = "config.json"

var (
	// ErrInvalidPitch is returned for drum map entries outside 0-127
	ErrInvalidPitch = errors.New("invalid MIDI pitch")
	// ErrEmptyExtension is returned when no batch output extension is set
	ErrEmptyExtension = errors.New("empty batch output extension")
	// ErrEmptyDrumMap is returned when no pitch is mapped to a lane
	ErrEmptyDrumMap = errors.New("empty drum map")
)

// Config is the user configuration
type Config struct {
	DrumMap              []int  `json:"drum_map"`
	BatchOutputExtension string `json:"batch_output_extension"`
}

// Default returns the default configuration: four lanes on pitches 60-63
func Default() *Config {
	return &Config{
		DrumMap:              []int{60, 61, 62, 63},
		BatchOutputExtension: ".dat",
	}
}

// Drums returns the drum map for the converter. Call Validate first.
func (c *Config) Drums() converter.DrumMap {
	drums := make(converter.DrumMap, len(c.DrumMap))
	for i, p := range c.DrumMap {
		drums[i] = uint8(p)
	}
	return drums
}

// Validate checks the drum map pitches and the output extension
func (c *Config) Validate() error {
	if len(c.DrumMap) == 0 {
		return ErrEmptyDrumMap
	}
	for i, p := range c.DrumMap {
		if p < 0 || p > 127 {
			return fmt.Errorf("%w: position %d is %d", ErrInvalidPitch, i, p)
		}
	}
	if c.BatchOutputExtension == "" {
		return ErrEmptyExtension
	}
	return nil
}

// Load reads the config at path. A missing file is created with the defaults;
// an unreadable or invalid file yields the defaults and is logged.
func Load(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).WithField("path", path).Error("Failed to read config. Using default.")
			return Default()
		}
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			logrus.WithError(err).WithField("path", path).Warn("Could not save default config")
		}
		return cfg
	}

	// keys missing from the file keep their default values
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		logrus.WithError(err).WithField("path", path).Error("Failed to read config. Using default.")
		return Default()
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).WithField("path", path).Error("Invalid config. Using default.")
		return Default()
	}
	return cfg
}

// Save writes the config to path as indented JSON
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
