package livereload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Server hosts the live-reload endpoints: websocket protocol clients and SSE
// clients share /livereload, and /livereload.js serves the browser snippet.
type Server struct {
	addr     string
	port     int
	hub      *Hub
	protocol *ProtocolServer
	srv      *http.Server
}

// NewServer creates a live-reload server bound to host:port once started.
func NewServer(host string, port int) *Server {
	s := &Server{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		port:     port,
		hub:      NewHub(),
		protocol: NewProtocolServer("assetbuilder"),
	}
	// Streaming connections are long-lived; no read/write timeouts.
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 300 * time.Second}
	return s
}

// Handler returns the routes served by the live-reload server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/livereload", cors(http.HandlerFunc(s.serveLiveReload)))
	mux.HandleFunc("/livereload.js", s.serveScript)
	return mux
}

func (s *Server) serveLiveReload(w http.ResponseWriter, r *http.Request) {
	if isWebsocketUpgrade(r) {
		s.protocol.ServeHTTP(w, r)
		return
	}
	s.hub.ServeHTTP(w, r)
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) serveScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	script := fmt.Sprintf(`(() => {
  if (window.__ASSETBUILDER_LR__) return;
  window.__ASSETBUILDER_LR__=true;
  function connect(){
    const es = new EventSource('http://' + location.hostname + ':%d/livereload');
    let current=null;
    es.onmessage = (e)=>{ try { const p=JSON.parse(e.data); if(current===null){ current=p.hash; return;} if(p.hash && p.hash!==current){ console.log('[assetbuilder] change detected, reloading'); location.reload(); } } catch(_){} };
    es.onerror = ()=>{ console.warn('[assetbuilder] livereload error - retrying'); es.close(); setTimeout(connect,2000); };
  }
  connect();
})();`, s.port)
	if _, err := w.Write([]byte(script)); err != nil {
		slog.Error("failed to write livereload script", "error", err)
	}
}

// Notify signals every connected client that the given files changed.
func (s *Server) Notify(_ context.Context, changed []string) error {
	s.hub.Broadcast(Event{Hash: uuid.NewString(), Files: changed})
	s.protocol.Reload(changed)
	return nil
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return ferrors.NetworkError("failed to bind livereload listener").
			WithCause(err).
			WithContext("addr", s.addr).
			Build()
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled or the server is shut down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	slog.Info("LiveReload server listening", slog.String("addr", ln.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown disconnects clients and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Shutdown()
	s.protocol.Shutdown()
	if err := s.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("livereload server shutdown: %w", err)
	}
	slog.Info("LiveReload server stopped")
	return nil
}
