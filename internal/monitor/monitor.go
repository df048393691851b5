// Package monitor implements an optional websocket progress feed
// (SPEC_FULL domain addition, not named by spec.md; spec.md §4.7's
// PlotProgress only names the original's gnuplot pipe, which a headless Go
// service cannot reuse). Grounded on the teacher's
// DXClusterWebSocketHandler: one upgrader, a client set guarded by its own
// mutex, and a broadcast fan-out that never blocks on a slow client.
package monitor

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Progress is one update broadcast to every connected client.
type Progress struct {
	RunID          string    `json:"run_id"`
	Timestamp      time.Time `json:"timestamp"`
	SpectraWritten int       `json:"spectra_written"`
}

// Hub fans out Progress updates to connected websocket clients.
type Hub struct {
	upgrader  websocket.Upgrader
	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex

	srv *http.Server
}

// NewHub builds a Hub and, if addr is non-empty, serves it on addr's
// "/progress" path.
func NewHub(addr string) (*Hub, error) {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}

	if addr == "" {
		return h, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/progress", h.handleWebSocket)
	h.srv = &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := h.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("monitor: server on %s: %v", addr, err)
		}
	}()
	return h, nil
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("monitor: upgrade failed: %v", err)
		return
	}

	h.clientsMu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.clientsMu.Unlock()

	go h.drainClient(conn)
}

// drainClient reads (and discards) client frames until the connection
// closes, purely to notice disconnects; this feed is one-directional.
func (h *Hub) drainClient(conn *websocket.Conn) {
	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, conn)
		h.clientsMu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends p to every connected client, dropping clients whose
// write fails or times out.
func (h *Hub) Broadcast(p Progress) {
	payload, err := json.Marshal(p)
	if err != nil {
		log.Printf("monitor: marshaling progress: %v", err)
		return
	}

	h.clientsMu.RLock()
	targets := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for c, mu := range h.clients {
		targets[c] = mu
	}
	h.clientsMu.RUnlock()

	for conn, mu := range targets {
		mu.Lock()
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := conn.WriteMessage(websocket.TextMessage, payload)
		mu.Unlock()
		if err != nil {
			h.clientsMu.Lock()
			delete(h.clients, conn)
			h.clientsMu.Unlock()
			conn.Close()
		}
	}
}

// Close shuts down the HTTP server and drops every connected client.
func (h *Hub) Close() error {
	h.clientsMu.Lock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]*sync.Mutex)
	h.clientsMu.Unlock()

	if h.srv == nil {
		return nil
	}
	return h.srv.Close()
}
