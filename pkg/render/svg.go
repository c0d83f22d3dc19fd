package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sync"

	svg "github.com/ajstarks/svgo"
)

// SVG writes a frame as a standalone SVG document.
// svgo works in whole pixels, so shapes are rounded; paths keep their decimals.
func SVG(w io.Writer, f Frame) {
	style := f.Style.orDefault()
	canvas := svg.New(w)
	canvas.Start(px(f.Width), px(f.Height), `font-family="sans-serif"`)

	canvas.Def()
	for _, color := range markerColors(f) {
		canvas.Marker(markerID(color), 22, 0, 6, 6, `viewBox="0 -5 10 10"`, `orient="auto"`)
		canvas.Path("M0,-5L10,0L0,5", "fill:"+color)
		canvas.MarkerEnd()
	}
	canvas.DefEnd()

	canvas.Rect(0, 0, px(f.Width), px(f.Height), "fill:"+style.Background)

	canvas.Gstyle(fmt.Sprintf("fill:none;stroke-width:1.5;opacity:%g", style.Opacity))
	for _, e := range f.Edges {
		attrs := []string{fmt.Sprintf(`class="link %s"`, cssClass(e.Label)), "stroke:" + e.Stroke}
		if !e.Loop {
			attrs = append(attrs, fmt.Sprintf(`marker-end="url(#%s)"`, markerID(e.Stroke)))
		}
		canvas.Path(e.D, attrs...)
	}
	canvas.Gend()

	for _, c := range f.Circles {
		canvas.Circle(px(c.X), px(c.Y), px(c.R),
			fmt.Sprintf(`data-id="%d"`, c.ID),
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%g;opacity:%g", c.Fill, c.Stroke, style.StrokeWidth, style.Opacity))
	}

	for _, t := range f.Texts {
		canvas.Text(px(t.X), px(t.Y), t.Value, "text-anchor:middle;font-size:11px;fill:"+style.TextColor)
	}

	canvas.End()
}

// SVGString renders a frame to a string
func SVGString(f Frame) string {
	var buf bytes.Buffer
	SVG(&buf, f)
	return buf.String()
}

// markerColors lists the distinct stroke colors of non-loop edges, in edge order
func markerColors(f Frame) []string {
	seen := make(map[string]bool)
	var colors []string
	for _, e := range f.Edges {
		if e.Loop || seen[e.Stroke] {
			continue
		}
		seen[e.Stroke] = true
		colors = append(colors, e.Stroke)
	}
	return colors
}

func markerID(color string) string {
	id := make([]byte, 0, len(color)+6)
	id = append(id, "arrow-"...)
	for i := 0; i < len(color); i++ {
		if c := color[i]; isAlnum(c) {
			id = append(id, c)
		}
	}
	return string(id)
}

func cssClass(label string) string {
	class := make([]byte, 0, len(label))
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case isAlnum(c):
			class = append(class, c)
		case c == ' ' || c == '-' || c == '_':
			class = append(class, '-')
		}
	}
	return string(class)
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func px(v float64) int {
	return int(math.Round(v))
}

// Recorder is a Surface that keeps the frames drawn on it.
// It is used by headless rendering and tests.
type Recorder struct {
	mu     sync.Mutex
	width  float64
	height float64
	frames []Frame
	limit  int
}

// NewRecorder creates a recorder of the given size that keeps at most limit
// frames (0 keeps all)
func NewRecorder(width, height float64, limit int) *Recorder {
	return &Recorder{width: width, height: height, limit: limit}
}

func (r *Recorder) Size() (float64, float64) {
	return r.width, r.height
}

func (r *Recorder) Draw(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	if r.limit > 0 && len(r.frames) > r.limit {
		r.frames = r.frames[len(r.frames)-r.limit:]
	}
}

// Frames returns a copy of the kept frames, oldest first
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

// Last returns the newest frame and whether any frame was drawn
func (r *Recorder) Last() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return Frame{}, false
	}
	return r.frames[len(r.frames)-1], true
}
