// Package server exposes the gateway over HTTP: the WebSocket endpoint,
// a liveness probe, and an occupancy listing for the admin dashboard.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hafiportrait/gallery-gateway/internal/activity"
	"github.com/hafiportrait/gallery-gateway/internal/room"
	"github.com/hafiportrait/gallery-gateway/internal/ws"
)

// defaultActivityLimit bounds /api/activity responses when no limit is given.
const defaultActivityLimit = 50

// Server is the gateway's HTTP front.
type Server struct {
	addr      string
	mux       *http.ServeMux
	hub       *ws.Hub
	registry  *room.Registry
	feed      activity.Log
	startedAt time.Time

	httpServer *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithActivityFeed serves the room activity feed at /api/activity.
func WithActivityFeed(feed activity.Log) Option {
	return func(s *Server) {
		s.feed = feed
	}
}

// New creates a Server listening on addr, routing /ws to the given
// WebSocket handler.
func New(addr string, wsHandler http.Handler, hub *ws.Hub, registry *room.Registry, opts ...Option) *Server {
	s := &Server{
		addr:      addr,
		mux:       http.NewServeMux(),
		hub:       hub,
		registry:  registry,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes(wsHandler)
	return s
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight HTTP requests and closes every WebSocket
// connection with a going-away status.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.ConnMgr().Shutdown()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the route mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes(wsHandler http.Handler) {
	s.mux.Handle("GET /ws", wsHandler)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	s.mux.HandleFunc("GET /api/activity", s.handleActivity)
}

// healthResponse is the /health body consumed by liveness probes.
type healthResponse struct {
	Status        string       `json:"status"`
	UptimeSeconds float64      `json:"uptime_seconds"`
	Connections   int          `json:"connections"`
	Rooms         int          `json:"rooms"`
	Stats         ws.ConnStats `json:"stats"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:        "healthy",
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Connections:   s.hub.ConnMgr().Count(),
		Rooms:         s.registry.Len(),
		Stats:         s.hub.ConnMgr().Stats(),
	})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.registry.Snapshot())
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		http.Error(w, "activity feed not enabled", http.StatusNotFound)
		return
	}
	roomKey := r.URL.Query().Get("room")
	if roomKey == "" {
		http.Error(w, "missing room parameter", http.StatusBadRequest)
		return
	}
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries := s.feed.Recent(roomKey, limit)
	if entries == nil {
		entries = []*activity.Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
