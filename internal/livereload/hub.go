package livereload

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// heartbeat keeps idle SSE connections open through proxies.
const heartbeat = 30 * time.Second

// Event is the payload broadcast to SSE clients.
type Event struct {
	Hash  string   `json:"hash"`
	Files []string `json:"files,omitempty"`
}

// Hub manages SSE clients for reload broadcasts.
type Hub struct {
	mu      sync.RWMutex
	nextID  int
	clients map[int]*sseClient
	closed  bool
	last    *Event
}

type sseClient struct {
	id   int
	ch   chan Event
	done chan struct{}
}

// NewHub creates an SSE hub.
func NewHub() *Hub {
	return &Hub{clients: map[int]*sseClient{}}
}

// ServeHTTP implements the SSE endpoint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &sseClient{ch: make(chan Event, 8), done: make(chan struct{})}
	h.mu.Lock()
	client.id = h.nextID
	h.nextID++
	h.clients[client.id] = client
	current := h.last
	h.mu.Unlock()
	defer h.removeClient(client.id)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(": connected\n\n"); err != nil {
		return
	}
	if current != nil {
		if err := writeEvent(bw, *current); err != nil {
			return
		}
	}
	if err := bw.Flush(); err == nil {
		flusher.Flush()
	}

	hb := time.NewTicker(heartbeat)
	defer hb.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-hb.C:
			if _, err := bw.WriteString(": ping\n\n"); err != nil {
				slog.Debug("livereload ping write", "error", err)
				return
			}
		case ev := <-client.ch:
			if err := writeEvent(bw, ev); err != nil {
				slog.Debug("livereload broadcast write", "error", err)
				return
			}
		}
		if err := bw.Flush(); err != nil {
			return
		}
		flusher.Flush()
	}
}

func writeEvent(bw *bufio.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = bw.WriteString("data: " + string(data) + "\n\n")
	return err
}

func (h *Hub) removeClient(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
	}
}

// Clients returns the number of connected SSE clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends ev to every client. Clients whose buffers are full are dropped.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	if h.closed || ev.Hash == "" {
		h.mu.Unlock()
		return
	}
	h.last = &ev
	snapshot := make([]*sseClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- ev:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	slog.Debug("livereload broadcast", "hash", ev.Hash, "clients", len(snapshot), "dropped", dropped)
}

// Shutdown closes all clients and prevents future broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*sseClient{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
}
