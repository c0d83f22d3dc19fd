package export

import (
	"bytes"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/ritzau/nameless-numbers/pkg/config"
	"github.com/ritzau/nameless-numbers/pkg/diagram"
	"github.com/ritzau/nameless-numbers/pkg/pubsub"
	"github.com/ritzau/nameless-numbers/pkg/scheduler"
)

func loadPage(t *testing.T, cfgs []config.DiagramConfig) *diagram.Page {
	t.Helper()
	pub := pubsub.NewSSEPublisher()
	page := diagram.NewPage(scheduler.NewManual(), pub, rand.New(rand.NewPCG(3, 4)), 1)
	if err := page.Load(cfgs); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	t.Cleanup(func() {
		page.Close()
		_ = pub.Close()
	})
	return page
}

func TestPageRendersEveryDiagram(t *testing.T) {
	page := loadPage(t, config.Presets())

	var buf bytes.Buffer
	if err := Page(&buf, page.List()); err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	html := buf.String()

	if !strings.Contains(html, "<title>"+PageTitle+"</title>") {
		t.Error("Expected the page title")
	}
	for _, d := range page.List() {
		if !strings.Contains(html, "diagram-"+d.Config.ID) {
			t.Errorf("Expected a chart for %s", d.Config.ID)
		}
		if !strings.Contains(html, d.Config.Title) {
			t.Errorf("Expected the title of %s", d.Config.ID)
		}
	}
}

func TestChartSeries(t *testing.T) {
	page := loadPage(t, []config.DiagramConfig{
		{ID: "chain", Nodes: 4, Labels: true, Relations: []string{"succ"}, Draggable: true},
	})
	d, _ := page.Get("chain")

	var buf bytes.Buffer
	if err := Chart(d).Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := buf.String()

	for _, want := range []string{`"layout":"force"`, `"draggable":true`, `"edgeLength":`, `"source":"2"`} {
		if !strings.Contains(html, want) {
			t.Errorf("Expected %s in the chart options", want)
		}
	}
}
