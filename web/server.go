package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"markestedt/cliptrans/config"
	"markestedt/cliptrans/storage"
)

//go:embed static/*
var staticFiles embed.FS

const (
	StatusIdle        = "idle"
	StatusTranslating = "translating"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboard is served on localhost only
	},
}

// Store is the persistence the dashboard reads and edits
type Store interface {
	RecentHistory(ctx context.Context, limit int) ([]storage.Record, error)
	HistoryCount(ctx context.Context) (int, error)
	ClearHistory(ctx context.Context) (int64, error)
	AddTerm(ctx context.Context, term, definition, termContext string) (*storage.Term, error)
	ListTerms(ctx context.Context) ([]storage.Term, error)
	DeleteTerm(ctx context.Context, id int64) error
}

// Server represents the web server
type Server struct {
	store  Store
	config *config.Config
	hub    *Hub
	http   *http.Server

	mu     sync.RWMutex
	active map[string]struct{}
}

// NewServer creates a new web server listening on localhost:port
func NewServer(store Store, cfg *config.Config) *Server {
	hub := NewHub()
	go hub.Run()

	s := &Server{
		store:  store,
		config: cfg,
		hub:    hub,
		active: make(map[string]struct{}),
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.Web.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/glossary", s.handleGlossary)
	mux.HandleFunc("/api/glossary/{id}", s.handleDeleteTerm)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWebSocket)

	// Static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		slog.Error("Failed to load static files", "error", err)
	} else {
		mux.Handle("/", http.FileServer(http.FS(staticFS)))
	}

	return mux
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	slog.Info("Starting web server", "url", s.URL())
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown stops the server and disconnects clients
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	return s.http.Shutdown(ctx)
}

// URL returns the dashboard address
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.config.Web.Port)
}

// Status returns the current agent status: translating while any
// activation is in flight
func (s *Server) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return statusFor(len(s.active))
}

func statusFor(active int) string {
	if active > 0 {
		return StatusTranslating
	}
	return StatusIdle
}

// beginActivation marks an activation in flight
func (s *Server) beginActivation(id string) {
	s.updateActive(func(active map[string]struct{}) { active[id] = struct{}{} })
}

// endActivation marks an activation done. Ending twice is harmless.
func (s *Server) endActivation(id string) {
	s.updateActive(func(active map[string]struct{}) { delete(active, id) })
}

// updateActive applies fn and notifies clients when the status changes
func (s *Server) updateActive(fn func(map[string]struct{})) {
	s.mu.Lock()
	before := statusFor(len(s.active))
	fn(s.active)
	after := statusFor(len(s.active))
	s.mu.Unlock()

	if before != after {
		s.hub.BroadcastMessage(Message{
			Type: MessageTypeStatus,
			Data: StatusMessage{Status: after},
		})
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	greeting, _ := encodeMessage(Message{
		Type: MessageTypeStatus,
		Data: StatusMessage{Status: s.Status()},
	})
	client := &Client{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		greeting: greeting,
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
