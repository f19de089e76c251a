package chart

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Encode writes the chart as indented JSON. Missing lists are written as [] rather than null.
func Encode(w io.Writer, c Chart) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(normalize(c))
}

// Decode reads a chart document
func Decode(r io.Reader) (Chart, error) {
	var c Chart
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return Chart{}, fmt.Errorf("failed to decode chart: %w", err)
	}
	return normalize(c), nil
}

// WriteFile writes the chart to path, replacing any existing file
func WriteFile(path string, c Chart) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	if err := Encode(f, c); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write chart %s: %w", path, err)
	}
	return f.Close()
}

// ReadFile reads a chart document from path
func ReadFile(path string) (Chart, error) {
	f, err := os.Open(path)
	if err != nil {
		return Chart{}, fmt.Errorf("failed to read chart file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

func normalize(c Chart) Chart {
	if c.Version == "" {
		c.Version = Version
	}
	if c.CustomData.BPMChanges == nil {
		c.CustomData.BPMChanges = []TempoChange{}
	}
	if c.CustomData.Bookmarks == nil {
		c.CustomData.Bookmarks = []any{}
	}
	if c.Events == nil {
		c.Events = []any{}
	}
	if c.Notes == nil {
		c.Notes = []Note{}
	}
	if c.Obstacles == nil {
		c.Obstacles = []any{}
	}
	return c
}
