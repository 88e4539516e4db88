// Package trace implements an optional, off-by-default debug surface: a
// websocket endpoint that broadcasts map-functor visitation events for
// external visualization tooling (SPEC_FULL.md §4.10). It is a pure
// observer — nothing it does feeds back into the mapper, which stays
// synchronous and single-threaded per spec.md §5.
package trace

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"symcore/internal/expr"
)

// Event is one (node_index, slot, type_key) observation emitted by the
// map functor as it inserts a mapped object into a Mapping.
type Event struct {
	NodeIndex int    `json:"node_index"`
	Slot      string `json:"slot"`
	TypeKey   string `json:"type_key"`
}

// NewEvent builds an Event from the key/type-key pair the traversal just
// inserted.
func NewEvent(key expr.Key, typeKey string) Event {
	return Event{NodeIndex: key.NodeIndex, Slot: key.Slot.String(), TypeKey: typeKey}
}

// Server fans visitation events out to every connected websocket client.
// Grounded on the teacher's debug-tooling triad (repl/debugger/lsp), each
// of which streams a live view over the same pipeline it never mutates.
type Server struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	log      *slog.Logger
}

// NewServer returns a Server ready to be mounted at an HTTP path.
func NewServer(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
		log:     log,
	}
}

// ServeHTTP upgrades the connection and registers it as a trace
// subscriber until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("trace: upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	// Drain and discard; this endpoint only ever pushes events.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast pushes ev to every currently-connected client, dropping
// clients that can no longer be written to.
func (s *Server) Broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("trace: marshal event", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// Sink adapts a Server to a simple callback the traversal can invoke
// after each successful mapping insert, without the mapper package
// importing trace or websocket directly.
func (s *Server) Sink() func(expr.Key, string) {
	return func(key expr.Key, typeKey string) {
		s.Broadcast(NewEvent(key, typeKey))
	}
}
