package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// DragMessage is sent by the page while a node is dragged
type DragMessage struct {
	Type string  `json:"type"` // start, move or end
	Node int     `json:"node"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// dragReply answers a message that could not be applied
type dragReply struct {
	Error string `json:"error"`
}

// dragConn serializes writes to a websocket connection
type dragConn struct {
	c       *websocket.Conn
	writeMu sync.Mutex
}

func (d *dragConn) writeJSON(v interface{}) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return d.c.WriteJSON(v)
}

// handleDrag upgrades to a websocket and applies drag messages to a
// diagram until the client disconnects. Nodes still held when the
// connection drops are released.
func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	handle := d.Handle()

	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer c.Close()
	conn := &dragConn{c: c}

	held := make(map[int]bool)
	defer func() {
		for id := range held {
			_ = handle.DragEnd(id)
		}
	}()

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.DebugContext(r.Context(), "drag connection closed", "id", d.Config.ID, "error", err)
			}
			return
		}

		var m DragMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			_ = conn.writeJSON(dragReply{Error: fmt.Sprintf("invalid message: %v", err)})
			continue
		}

		switch m.Type {
		case "start":
			err = handle.DragStart(m.Node, m.X, m.Y)
			if err == nil {
				held[m.Node] = true
			}
		case "move":
			err = handle.DragMove(m.Node, m.X, m.Y)
		case "end":
			err = handle.DragEnd(m.Node)
			delete(held, m.Node)
		default:
			err = fmt.Errorf("unknown drag message type %q", m.Type)
		}

		if err != nil {
			log.DebugContext(r.Context(), "drag rejected", "id", d.Config.ID, "type", m.Type, "node", m.Node, "error", err)
			if werr := conn.writeJSON(dragReply{Error: err.Error()}); werr != nil {
				return
			}
		}
	}
}
