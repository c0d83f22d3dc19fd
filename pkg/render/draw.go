package render

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ritzau/nameless-numbers/pkg/layout"
	"github.com/ritzau/nameless-numbers/pkg/model"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	LabeledRadius  = 12.0
	NamelessRadius = 4.0

	// loopRadius is the arc radius of self-loops and coincident endpoints
	loopRadius = 14.0
)

// Frame is everything drawn for one simulation step
type Frame struct {
	Seq     int      `json:"seq"`
	Tick    int      `json:"tick"`
	Alpha   float64  `json:"alpha"`
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
	Style   Style    `json:"-"`
	Circles []Circle `json:"circles"`
	Edges   []Edge   `json:"edges"`
	Texts   []Text   `json:"texts"`
}

// Circle is a drawn node
type Circle struct {
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	R      float64 `json:"r"`
	Stroke string  `json:"stroke"`
	Fill   string  `json:"fill"`
}

// Edge is a drawn link. D is an SVG path; Loop marks self-loop geometry.
type Edge struct {
	Source int    `json:"source"`
	Target int    `json:"target"`
	Label  string `json:"label"`
	D      string `json:"d"`
	Loop   bool   `json:"loop"`
	Stroke string `json:"stroke"`
}

// Text is a node label
type Text struct {
	ID    int     `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value string  `json:"value"`
}

// NodeRadius returns the drawn radius of a node
func NodeRadius(n model.Node) float64 {
	if n.Labeled() {
		return LabeledRadius
	}
	return NamelessRadius
}

// Draw turns one physics snapshot into drawing primitives. It has no side
// effects, so tick handling can be tested by calling it directly.
// Nodes without a position are skipped, as are their links.
func Draw(s layout.Snapshot, nodes []model.Node, links []model.Link, opts Options) Frame {
	style := opts.Style.orDefault()
	f := Frame{
		Tick:    s.Tick,
		Alpha:   s.Alpha,
		Width:   opts.Width,
		Height:  opts.Height,
		Style:   style,
		Circles: make([]Circle, 0, len(nodes)),
		Edges:   make([]Edge, 0, len(links)),
		Texts:   make([]Text, 0, len(nodes)),
	}

	radius := make(map[int]float64, len(nodes))
	for _, n := range nodes {
		p, ok := s.Positions[n.ID]
		if !ok {
			continue
		}
		r := NodeRadius(n)
		radius[n.ID] = r

		c := Circle{ID: n.ID, X: p.X, Y: p.Y, R: r, Stroke: style.NodeStroke, Fill: style.Background}
		if !n.Labeled() {
			c.Fill = style.NodeStroke
		}
		f.Circles = append(f.Circles, c)

		if n.Labeled() {
			f.Texts = append(f.Texts, Text{ID: n.ID, X: p.X, Y: p.Y + 4, Value: n.Label})
		}
	}

	for _, l := range links {
		sp, ok := s.Positions[l.Source]
		if !ok {
			continue
		}
		tp, ok := s.Positions[l.Target]
		if !ok {
			continue
		}

		d, loop := EdgePath(sp, tp, radius[l.Source], radius[l.Target])
		f.Edges = append(f.Edges, Edge{
			Source: l.Source,
			Target: l.Target,
			Label:  l.Label,
			D:      d,
			Loop:   loop || l.SelfLoop(),
			Stroke: style.LinkColor(l.Label),
		})
	}

	return f
}

// EdgePath returns the SVG path between two node centres. Distinct endpoints
// get a circular arc whose radius equals the chord, trimmed so it starts and
// ends on the node circles. Coincident endpoints get a fixed-radius loop.
func EdgePath(s, t r2.Vec, sr, tr float64) (d string, loop bool) {
	dr := r2.Norm(r2.Sub(t, s))
	if dr == 0 || math.IsNaN(dr) {
		return LoopPath(s), true
	}

	// Only trim when the circles do not overlap
	if dr > sr+tr {
		u := r2.Scale(1/dr, r2.Sub(t, s))
		s = r2.Add(s, r2.Scale(sr, u))
		t = r2.Sub(t, r2.Scale(tr, u))
	}

	return fmt.Sprintf("M%s,%s A%s,%s 0 0,1 %s,%s",
		num(s.X), num(s.Y), num(dr), num(dr), num(t.X), num(t.Y)), false
}

// LoopPath returns a small loop that leaves and re-enters a node at p
func LoopPath(p r2.Vec) string {
	return fmt.Sprintf("M%s,%s A%s,%s -45 1,1 %s,%s",
		num(p.X), num(p.Y), num(loopRadius), num(loopRadius), num(p.X+1), num(p.Y+1))
}

// AutoLinkDistance spreads n nodes over a w x h viewport: fewer nodes get
// longer links. The result is kept between 20 and 120.
func AutoLinkDistance(n int, w, h float64) float64 {
	if n <= 1 || w <= 0 || h <= 0 {
		return 30
	}
	d := math.Min(w, h) / (2 * math.Sqrt(float64(n)))
	return math.Max(20, math.Min(120, d))
}

// num formats a coordinate with at most two decimals
func num(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
