package web

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ritzau/nameless-numbers/pkg/config"
	"github.com/ritzau/nameless-numbers/pkg/diagram"
	"github.com/ritzau/nameless-numbers/pkg/pubsub"
	"github.com/ritzau/nameless-numbers/pkg/render"
	"github.com/ritzau/nameless-numbers/pkg/scheduler"
)

func newTestServer(t *testing.T) (*httptest.Server, *diagram.Page) {
	t.Helper()

	pub := pubsub.NewSSEPublisher()
	page := diagram.NewPage(scheduler.NewManual(), pub, rand.New(rand.NewPCG(1, 2)), 1)
	if err := page.Load(config.Presets()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ts := httptest.NewServer(NewServer(page, pub).Handler())
	t.Cleanup(func() {
		ts.Close()
		page.Close()
		_ = pub.Close()
	})
	return ts, page
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return res, data
}

func TestListDiagrams(t *testing.T) {
	ts, _ := newTestServer(t)

	res, body := do(t, "GET", ts.URL+"/api/diagrams", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", res.StatusCode)
	}
	if res.Header.Get("X-Request-ID") == "" {
		t.Error("Expected a request id header")
	}

	var list DiagramList
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if len(list.Diagrams) != len(config.Presets()) {
		t.Errorf("Expected %d diagrams, got %d", len(config.Presets()), len(list.Diagrams))
	}
	if list.Diagrams[0].ID != "numbers" {
		t.Errorf("Expected configuration order, first is %s", list.Diagrams[0].ID)
	}
}

func TestDiagramDetailAndFrames(t *testing.T) {
	ts, _ := newTestServer(t)

	res, body := do(t, "GET", ts.URL+"/api/diagrams/x-is-less-3", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", res.StatusCode, body)
	}
	var detail DiagramDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		t.Fatalf("Failed to decode detail: %v", err)
	}
	if len(detail.Nodes) != 8 || len(detail.Links) != 4 {
		t.Errorf("Expected 8 nodes and 4 links, got %d and %d", len(detail.Nodes), len(detail.Links))
	}
	for _, l := range detail.Links {
		if l.Source != 3 {
			t.Errorf("Expected fan-out from 3, got %+v", l)
		}
	}
	if detail.LinkDistance <= 0 {
		t.Errorf("Expected an effective link distance, got %v", detail.LinkDistance)
	}

	res, body = do(t, "GET", ts.URL+"/api/diagrams/x-is-less-3/frame", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", res.StatusCode)
	}
	var frame render.Frame
	if err := json.Unmarshal(body, &frame); err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if len(frame.Circles) != 8 || len(frame.Edges) != 4 {
		t.Errorf("Expected 8 circles and 4 edges, got %d and %d", len(frame.Circles), len(frame.Edges))
	}

	res, body = do(t, "GET", ts.URL+"/api/diagrams/x-is-less-3/svg", "")
	if ct := res.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Expected image/svg+xml, got %s", ct)
	}
	if !strings.Contains(string(body), "<svg") {
		t.Error("Expected SVG markup")
	}
}

func TestNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{
		"/api/diagrams/nope",
		"/api/diagrams/nope/frame",
		"/api/diagrams/nope/svg",
		"/api/subscribe/diagrams/nope",
	} {
		res, _ := do(t, "GET", ts.URL+path, "")
		if res.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, res.StatusCode)
		}
	}

	res, _ := do(t, "POST", ts.URL+"/api/diagrams/nope/stop", "")
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for stop, got %d", res.StatusCode)
	}
}

func TestStartStop(t *testing.T) {
	ts, page := newTestServer(t)

	res, body := do(t, "POST", ts.URL+"/api/diagrams/succ/stop", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", res.StatusCode)
	}
	var s diagram.Summary
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	if s.State != string(render.Stopped) {
		t.Errorf("Expected stopped, got %s", s.State)
	}

	do(t, "POST", ts.URL+"/api/diagrams/succ/start", "")
	d, _ := page.Get("succ")
	if d.Handle().State() != render.Running {
		t.Error("Expected succ to be running again")
	}

	// Only POST changes state
	res, _ = do(t, "GET", ts.URL+"/api/diagrams/succ/stop", "")
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET stop, got %d", res.StatusCode)
	}
}

func TestAPIMethodMismatch(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/api/diagrams/succ/start", http.StatusMethodNotAllowed},
		{"POST", "/api/diagrams/succ/frame", http.StatusMethodNotAllowed},
		{"GET", "/api/diagrams/succ/link-distance", http.StatusMethodNotAllowed},
		{"DELETE", "/api/diagrams", http.StatusMethodNotAllowed},
		{"GET", "/api/unknown", http.StatusNotFound},
		{"GET", "/style.css", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			res, _ := do(t, tt.method, ts.URL+tt.path, "")
			if res.StatusCode != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, res.StatusCode)
			}
		})
	}
}

func TestLinkDistance(t *testing.T) {
	ts, page := newTestServer(t)

	tests := []struct {
		body   string
		status int
	}{
		{`{"distance": 40}`, http.StatusOK},
		{`{"distance": -1}`, http.StatusBadRequest},
		{`{"distance": 0}`, http.StatusBadRequest},
		{`not json`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		res, body := do(t, "PUT", ts.URL+"/api/diagrams/succ-pred/link-distance", tt.body)
		if res.StatusCode != tt.status {
			t.Errorf("PUT %s: expected %d, got %d (%s)", tt.body, tt.status, res.StatusCode, body)
		}
	}

	d, _ := page.Get("succ-pred")
	if got := d.Handle().Options().LinkDistance; got != 40 {
		t.Errorf("Expected link distance 40 to stick, got %v", got)
	}
}

func dialDrag(t *testing.T, ts *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/diagrams/" + id + "/drag"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", url, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDragOverWebSocket(t *testing.T) {
	ts, page := newTestServer(t)
	c := dialDrag(t, ts, "succ-nameless")

	for _, m := range []DragMessage{
		{Type: "start", Node: 2, X: 40, Y: 50},
		{Type: "move", Node: 2, X: 60, Y: 70},
	} {
		if err := c.WriteJSON(m); err != nil {
			t.Fatalf("WriteJSON() error = %v", err)
		}
	}

	// An unknown node is answered with an error, which also proves the
	// earlier messages were processed
	if err := c.WriteJSON(DragMessage{Type: "start", Node: 99}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var reply dragReply
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := c.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if !strings.Contains(reply.Error, "unknown node") {
		t.Errorf("Expected unknown node error, got %q", reply.Error)
	}

	d, _ := page.Get("succ-nameless")
	if d.Handle().State() != render.Running {
		t.Error("Expected a drag to keep the layout running")
	}
}

func TestDragNotDraggable(t *testing.T) {
	ts, _ := newTestServer(t)
	c := dialDrag(t, ts, "numbers")

	if err := c.WriteJSON(DragMessage{Type: "start", Node: 0, X: 1, Y: 1}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var reply dragReply
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := c.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if !strings.Contains(reply.Error, "not draggable") {
		t.Errorf("Expected not draggable error, got %q", reply.Error)
	}
}

func TestSubscribeDiagramSendsCurrentFrame(t *testing.T) {
	ts, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/subscribe/diagrams/succ", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Subscribe error = %v", err)
	}
	defer res.Body.Close()

	if ct := res.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %s", ct)
	}

	reader := bufio.NewReader(res.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("Stream ended before a frame: %v", err)
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event pubsub.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			t.Fatalf("Failed to decode event: %v", err)
		}
		if event.Type != pubsub.EventFrame {
			t.Errorf("Expected a frame event, got %s", event.Type)
		}
		var frame pubsub.FrameData
		if err := json.Unmarshal(event.Data, &frame); err != nil {
			t.Fatalf("Failed to decode frame: %v", err)
		}
		if !strings.Contains(frame.SVG, "<svg") {
			t.Error("Expected SVG in the frame")
		}
		return
	}
}

func TestStaticPage(t *testing.T) {
	ts, _ := newTestServer(t)

	res, body := do(t, "GET", ts.URL+"/", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", res.StatusCode)
	}
	if !strings.Contains(string(body), "Nameless numbers") {
		t.Error("Expected the embedded index page")
	}

	res, _ = do(t, "GET", ts.URL+"/app.js", "")
	if res.StatusCode != http.StatusOK {
		t.Errorf("Expected app.js, got %d", res.StatusCode)
	}
}
