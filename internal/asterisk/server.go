package asterisk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server accepts chan_websocket connections from the switch.
type Server struct {
	logger   *zap.Logger
	settings Settings
	hooks    *Hooks
	handler  Handler
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	closed     bool
	httpServer *http.Server
	listener   net.Listener
	wg         sync.WaitGroup

	active atomic.Int64
	nextID atomic.Uint64
}

// NewServer creates a server. handler may be nil, in which case inbound
// frames are discarded.
func NewServer(logger *zap.Logger, settings Settings, hooks *Hooks, handler Handler) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		logger:   logger.Named("asterisk"),
		settings: settings,
		hooks:    hooks,
		handler:  handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			Subprotocols:    []string{"media"},
			// The switch is not a browser.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler returns the HTTP routes: the media WebSocket at the configured
// path and a health probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	path := s.settings.Path
	if path == "" {
		path = "/"
	}
	mux.HandleFunc("GET "+path, s.handleWebSocket)
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.settings.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.settings.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("WebSocket server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("WebSocket server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("path", s.settings.Path))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ActiveConnections returns the number of connections being served.
func (s *Server) ActiveConnections() int64 {
	return s.active.Load()
}

// Stop stops accepting connections, cancels live calls and waits for them to
// finish tearing down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	s.mu.Unlock()

	var shutdownErr error
	if srv != nil {
		shutdownErr = srv.Shutdown(ctx)
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("WebSocket server stopped")
		return shutdownErr
	case <-ctx.Done():
		return fmt.Errorf("waiting for connections: %w", ctx.Err())
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		return
	}

	s.active.Add(1)
	defer s.active.Add(-1)

	id := fmt.Sprintf("conn-%d", s.nextID.Add(1))
	ctx, cancel := context.WithCancel(s.ctx)
	conn := newConnection(id, s.logger, s.settings, ws, s.hooks, s.handler, cancel)
	conn.run(ctx, cancel)
}

type healthResponse struct {
	Status            string `json:"status"`
	ActiveConnections int64  `json:"active_connections"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(healthResponse{
		Status:            "ok",
		ActiveConnections: s.active.Load(),
	}); err != nil {
		s.logger.Debug("Failed to write health response", zap.Error(err))
	}
}
