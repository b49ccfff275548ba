// Package render turns a computed frame into a standalone SVG document, for
// offline snapshots and the frame.svg endpoint.
package render

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Style collects every tunable visual of the SVG output. Fields map onto a
// YAML document so a palette can ship next to a dataset.
type Style struct {
	Background    string  `yaml:"background"`
	Sphere        string  `yaml:"sphere"`
	Host          string  `yaml:"host"`
	Edge          string  `yaml:"edge"`
	Unknown       string  `yaml:"unknown"`
	Stroke        string  `yaml:"stroke"`
	Highlight     string  `yaml:"highlight"`
	MarkerOpacity float64 `yaml:"marker_opacity"`
}

// DefaultStyle is the dark palette: hosts warm, edge/CDN nodes cool, unknown
// muted.
func DefaultStyle() Style {
	return Style{
		Background:    "#0b0e14",
		Sphere:        "#151a24",
		Host:          "#e8a33d",
		Edge:          "#4db6e8",
		Unknown:       "#8a8f98",
		Stroke:        "#0b0e14",
		Highlight:     "#ffffff",
		MarkerOpacity: 0.9,
	}
}

// LoadStyle reads a YAML palette, filling unset fields from the default so a
// file can override a single color.
func LoadStyle(path string) (Style, error) {
	s := DefaultStyle()
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("reading style %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("parsing style %s: %w", path, err)
	}
	if s.MarkerOpacity <= 0 || s.MarkerOpacity > 1 {
		s.MarkerOpacity = DefaultStyle().MarkerOpacity
	}
	return s, nil
}
