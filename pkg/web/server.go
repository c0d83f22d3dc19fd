package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/ritzau/nameless-numbers/pkg/config"
	"github.com/ritzau/nameless-numbers/pkg/diagram"
	"github.com/ritzau/nameless-numbers/pkg/layout"
	"github.com/ritzau/nameless-numbers/pkg/logging"
	"github.com/ritzau/nameless-numbers/pkg/model"
	"github.com/ritzau/nameless-numbers/pkg/pubsub"
	"github.com/ritzau/nameless-numbers/pkg/render"
)

//go:embed static/*
var staticFiles embed.FS

var log = logging.New("web")

// DiagramList is the response of GET /api/diagrams
type DiagramList struct {
	Diagrams []diagram.Summary `json:"diagrams"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// DiagramDetail is the response of GET /api/diagrams/{id}
type DiagramDetail struct {
	Config       config.DiagramConfig `json:"config"`
	Nodes        []model.Node         `json:"nodes"`
	Links        []model.Link         `json:"links"`
	Summary      diagram.Summary      `json:"summary"`
	LinkDistance float64              `json:"linkDistance"` // effective, after auto sizing
}

type linkDistanceRequest struct {
	Distance float64 `json:"distance"`
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	page      *diagram.Page
	publisher *pubsub.SSEPublisher
	upgrader  websocket.Upgrader
}

// NewServer creates a web server for a page. The page must publish to the
// same publisher the server subscribes clients to.
func NewServer(page *diagram.Page, publisher *pubsub.SSEPublisher) *Server {
	// page: replay the last reload to new subscribers
	publisher.ConfigureTopic(pubsub.PageTopic, pubsub.TopicConfig{
		BufferSize: 1,
		ReplayAll:  false,
	})

	s := &Server{
		router:    mux.NewRouter(),
		page:      page,
		publisher: publisher,
		upgrader: websocket.Upgrader{
			// The page is served from this server; any origin may drag
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	return s
}

// Handler returns the router wrapped in request logging
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/page", s.handleSubscribePage).Methods("GET")
	s.router.HandleFunc("/api/subscribe/diagrams/{id}", s.handleSubscribeDiagram).Methods("GET")

	// API routes - more specific routes must come first
	s.router.HandleFunc("/api/diagrams", s.handleDiagrams).Methods("GET")
	s.router.HandleFunc("/api/diagrams/{id}/frame", s.handleFrame).Methods("GET")
	s.router.HandleFunc("/api/diagrams/{id}/svg", s.handleSVG).Methods("GET")
	s.router.HandleFunc("/api/diagrams/{id}/start", s.handleStart).Methods("POST")
	s.router.HandleFunc("/api/diagrams/{id}/stop", s.handleStop).Methods("POST")
	s.router.HandleFunc("/api/diagrams/{id}/link-distance", s.handleLinkDistance).Methods("PUT")
	s.router.HandleFunc("/api/diagrams/{id}/drag", s.handleDrag).Methods("GET")
	s.router.HandleFunc("/api/diagrams/{id}", s.handleDiagram).Methods("GET")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("failed to open embedded static files", "error", err)
	}
	// Static files never shadow /api/, so a wrong method on an API route
	// is answered with 405 instead of falling through to the file server
	s.router.PathPrefix("/").MatcherFunc(notAPI).Handler(http.FileServer(http.FS(staticFS)))
}

func notAPI(r *http.Request, _ *mux.RouteMatch) bool {
	return !strings.HasPrefix(r.URL.Path, "/api/")
}

// stream subscribes to a topic and writes its events as SSE until the client leaves.
// ready runs once the subscription exists.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, topic string, ready func()) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	// Create subscription
	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	if ready != nil {
		ready()
	}

	// Stream events
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				log.DebugContext(r.Context(), "error writing SSE event", "topic", topic, "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleSubscribePage(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, pubsub.PageTopic, nil)
}

func (s *Server) handleSubscribeDiagram(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.page.Get(id); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown diagram %q", id))
		return
	}

	// The layout may have settled; send the current frame so the client has something to show
	s.stream(w, r, pubsub.DiagramTopic(id), func() {
		if err := s.page.PublishCurrent(id); err != nil {
			log.WarnContext(r.Context(), "failed to publish current frame", "id", id, "error", err)
		}
	})
}

func (s *Server) handleDiagrams(w http.ResponseWriter, r *http.Request) {
	list := DiagramList{Diagrams: make([]diagram.Summary, 0)}
	for _, d := range s.page.List() {
		list.Diagrams = append(list.Diagrams, d.Summary())
	}
	if failed := s.page.Failed(); len(failed) > 0 {
		list.Failed = make(map[string]string, len(failed))
		for id, err := range failed {
			list.Failed[id] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, list)
}

// lookup writes a 404 and returns false when the diagram does not exist
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*diagram.Diagram, bool) {
	id := mux.Vars(r)["id"]
	d, ok := s.page.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown diagram %q", id))
	}
	return d, ok
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DiagramDetail{
		Config:       d.Config,
		Nodes:        d.Built.Nodes,
		Links:        d.Built.Links,
		Summary:      d.Summary(),
		LinkDistance: d.Handle().Options().LinkDistance,
	})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.Handle().Frame())
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	render.SVG(w, d.Handle().Frame())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, (*render.Handle).Start)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, (*render.Handle).Stop)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, apply func(*render.Handle)) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	apply(d.Handle())
	if err := s.page.PublishState(d.Config.ID); err != nil {
		log.WarnContext(r.Context(), "failed to publish state", "id", d.Config.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, d.Summary())
}

func (s *Server) handleLinkDistance(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req linkDistanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := d.Handle().SetLinkDistance(req.Distance); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, linkDistanceRequest{Distance: d.Handle().Options().LinkDistance})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, render.ErrNotDraggable):
		return http.StatusConflict
	case errors.Is(err, layout.ErrInvalidValue),
		errors.Is(err, layout.ErrUnknownParameter),
		errors.Is(err, render.ErrUnknownNode):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// Start serves on the given port until ctx is cancelled
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// SSE streams end with their request contexts
		_ = s.publisher.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down web server: %w", err)
		}
		return nil
	}
}
