package livereload

import (
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"
)

// ProtocolV7 is the LiveReload protocol identifier announced in hello.
const ProtocolV7 = "http://livereload.com/protocols/official-7"

// Message is a LiveReload protocol frame.
type Message struct {
	Command    string   `json:"command"`
	Protocols  []string `json:"protocols,omitempty"`
	ServerName string   `json:"serverName,omitempty"`
	Path       string   `json:"path,omitempty"`
	LiveCSS    *bool    `json:"liveCSS,omitempty"`
}

// ProtocolServer speaks the LiveReload protocol over websocket.
type ProtocolServer struct {
	name string
	ws   websocket.Server

	mu      sync.Mutex
	nextID  int
	clients map[int]*wsClient
	closed  bool
}

type wsClient struct {
	out  chan Message
	done chan struct{}
}

func (c *wsClient) send(msg Message) bool {
	select {
	case c.out <- msg:
		return true
	case <-c.done:
		return true
	default:
		return false
	}
}

// NewProtocolServer creates a LiveReload protocol endpoint.
func NewProtocolServer(name string) *ProtocolServer {
	p := &ProtocolServer{name: name, clients: map[int]*wsClient{}}
	p.ws = websocket.Server{
		// Browser extensions connect from arbitrary origins.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   p.serve,
	}
	return p
}

func (p *ProtocolServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.ws.ServeHTTP(w, r)
}

func (p *ProtocolServer) serve(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	client := &wsClient{out: make(chan Message, 16), done: make(chan struct{})}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	id := p.nextID
	p.nextID++
	p.clients[id] = client
	p.mu.Unlock()
	defer p.remove(id)

	// Reader answers hello and ignores info frames; the loop below owns all writes.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			var msg Message
			if err := websocket.JSON.Receive(conn, &msg); err != nil {
				return
			}
			if msg.Command == "hello" {
				client.send(Message{Command: "hello", Protocols: []string{ProtocolV7}, ServerName: p.name})
			}
		}
	}()

	for {
		select {
		case <-readerDone:
			return
		case <-client.done:
			return
		case msg := <-client.out:
			if err := websocket.JSON.Send(conn, msg); err != nil {
				slog.Debug("livereload protocol write", "error", err)
				return
			}
		}
	}
}

func (p *ProtocolServer) remove(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[id]; ok {
		delete(p.clients, id)
		close(c.done)
	}
}

// Clients returns the number of connected protocol clients.
func (p *ProtocolServer) Clients() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Reload sends one reload command per changed path. Slow clients are dropped.
func (p *ProtocolServer) Reload(paths []string) {
	liveCSS := true
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	for _, path := range paths {
		msg := Message{Command: "reload", Path: path, LiveCSS: &liveCSS}
		for id, c := range p.clients {
			if !c.send(msg) {
				slog.Debug("livereload protocol client too slow; dropping", "client", id)
				delete(p.clients, id)
				close(c.done)
			}
		}
	}
}

// Shutdown disconnects all clients.
func (p *ProtocolServer) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for id, c := range p.clients {
		delete(p.clients, id)
		close(c.done)
	}
}
