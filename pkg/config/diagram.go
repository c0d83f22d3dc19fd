package config

import "fmt"

// Defaults for a diagram that leaves a setting at zero
const (
	DefaultWidth   = 512.0
	DefaultHeight  = 256.0
	DefaultCharge  = -30.0
	DefaultGravity = 0.1
	DefaultEngine  = "force"
)

// DiagramConfig describes one diagram on the page
type DiagramConfig struct {
	ID        string   `koanf:"id" json:"id"`
	Title     string   `koanf:"title" json:"title"`
	Nodes     int      `koanf:"nodes" json:"nodes"`
	Labels    bool     `koanf:"labels" json:"labels"`
	Relations []string `koanf:"relations" json:"relations"`
	Pivot     int      `koanf:"pivot" json:"pivot"`

	Width        float64 `koanf:"width" json:"width"`
	Height       float64 `koanf:"height" json:"height"`
	LinkDistance float64 `koanf:"link_distance" json:"linkDistance"` // 0 derives it from the node count
	Charge       float64 `koanf:"charge" json:"charge"`
	Gravity      float64 `koanf:"gravity" json:"gravity"`
	Draggable    bool    `koanf:"draggable" json:"draggable"`
	Engine       string  `koanf:"engine" json:"engine"`

	// Scatter seeds the layout from random grid cells instead of a spiral
	Scatter bool `koanf:"scatter" json:"scatter"`
}

// Normalize fills zero-valued settings with defaults. Charge and gravity
// cannot be configured to exactly zero; use a small value instead.
func (d DiagramConfig) Normalize() DiagramConfig {
	if d.Title == "" {
		d.Title = d.ID
	}
	if d.Width == 0 {
		d.Width = DefaultWidth
	}
	if d.Height == 0 {
		d.Height = DefaultHeight
	}
	if d.Charge == 0 {
		d.Charge = DefaultCharge
	}
	if d.Gravity == 0 {
		d.Gravity = DefaultGravity
	}
	if d.Engine == "" {
		d.Engine = DefaultEngine
	}
	d.Relations = append([]string(nil), d.Relations...)
	return d
}

// Presets are the diagrams shown when nothing is configured
func Presets() []DiagramConfig {
	presets := []DiagramConfig{
		{ID: "numbers", Title: "Numbers", Nodes: 8, Labels: true, Engine: "eades"},
		{ID: "succ", Title: "Successor", Nodes: 8, Labels: true, Relations: []string{"succ"}, Scatter: true, Draggable: true},
		{ID: "succ-nameless", Title: "Nameless successor", Nodes: 8, Relations: []string{"succ"}, Draggable: true},
		{ID: "succ-pred", Title: "Successor and predecessor", Nodes: 8, Relations: []string{"succ", "pred"}, Draggable: true},
		{ID: "x-is-less-1", Title: "1 is less than", Nodes: 8, Labels: true, Relations: []string{"x-is-less"}, Pivot: 1, Draggable: true},
		{ID: "x-is-less-3", Title: "3 is less than", Nodes: 8, Labels: true, Relations: []string{"x-is-less"}, Pivot: 3, Draggable: true},
	}
	for n := 2; n <= 5; n++ {
		presets = append(presets, DiagramConfig{
			ID:        fmt.Sprintf("less-than-with-%d", n),
			Title:     fmt.Sprintf("Less than with %d", n),
			Nodes:     n,
			Relations: []string{"less-than"},
			Draggable: true,
		})
	}
	presets = append(presets, DiagramConfig{
		ID:      "nameless-scatter",
		Title:   "Nameless numbers",
		Nodes:   8,
		Scatter: true,
		Engine:  "static",
	})

	for i := range presets {
		presets[i] = presets[i].Normalize()
	}
	return presets
}
