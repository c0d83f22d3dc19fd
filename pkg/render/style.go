package render

import "github.com/ritzau/nameless-numbers/pkg/relations"

// category10 is the d3 ten-color palette
var category10 = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// Style holds the colors and stroke settings of a diagram.
// It is passed to every Draw call; there is no shared palette.
type Style struct {
	Background  string
	NodeStroke  string
	TextColor   string
	StrokeWidth float64
	Opacity     float64
	LinkColors  map[string]string
	LinkDefault string
}

// DefaultStyle returns the stock look: a light background and one color per relation label
func DefaultStyle() Style {
	return Style{
		Background:  "#fcfcfc",
		NodeStroke:  category10[0],
		TextColor:   "#333",
		StrokeWidth: 2.5,
		Opacity:     0.7,
		LinkColors: map[string]string{
			relations.LabelSucc:     category10[1],
			relations.LabelPred:     category10[2],
			relations.LabelXIsLess:  category10[3],
			relations.LabelLessThan: category10[4],
			relations.LabelEqual:    category10[5],
		},
		LinkDefault: category10[7],
	}
}

// LinkColor returns the stroke color for a relation label
func (s Style) LinkColor(label string) string {
	if c, ok := s.LinkColors[label]; ok {
		return c
	}
	return s.LinkDefault
}

func (s Style) orDefault() Style {
	if s.NodeStroke == "" && s.LinkColors == nil {
		return DefaultStyle()
	}
	return s
}
