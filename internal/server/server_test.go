package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hafiportrait/gallery-gateway/internal/activity"
	"github.com/hafiportrait/gallery-gateway/internal/auth"
	"github.com/hafiportrait/gallery-gateway/internal/ratelimit"
	"github.com/hafiportrait/gallery-gateway/internal/room"
	"github.com/hafiportrait/gallery-gateway/internal/ws"
)

func newTestServer(opts ...Option) (*Server, *room.Registry) {
	registry := room.NewRegistry()
	hub := ws.NewHub(ws.NewConnManager(), registry, nil)
	dispatcher := ws.NewDispatcher(hub, registry, ratelimit.NewLimiter(), ratelimit.DefaultPolicy(), nil)
	authenticator := auth.NewAuthenticator(auth.NewJWTVerifier("test-secret"), nil, "ADMIN")
	handler := ws.NewHandler(authenticator, hub, dispatcher)
	return New(":0", handler, hub, registry, opts...), registry
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body healthResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", body.Status)
	}
	if body.Connections != 0 {
		t.Errorf("expected 0 connections, got %d", body.Connections)
	}
	if body.UptimeSeconds < 0 {
		t.Errorf("uptime should not be negative, got %f", body.UptimeSeconds)
	}
}

func TestListRoomsEmpty(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var rooms []room.Info
	if err := json.NewDecoder(w.Body).Decode(&rooms); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(rooms) != 0 {
		t.Errorf("expected empty room list, got %d rooms", len(rooms))
	}
}

func TestListRoomsWithOccupancy(t *testing.T) {
	srv, registry := newTestServer()
	registry.Join("event:wedding-42", "c1")
	registry.Join("event:wedding-42", "c2")
	registry.Join("event:portrait-7", "c3")

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var rooms []room.Info
	if err := json.NewDecoder(w.Body).Decode(&rooms); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
	if rooms[0].Key != "event:portrait-7" || rooms[0].Occupancy != 1 {
		t.Errorf("unexpected first room: %+v", rooms[0])
	}
	if rooms[1].Key != "event:wedding-42" || rooms[1].Occupancy != 2 {
		t.Errorf("unexpected second room: %+v", rooms[1])
	}
}

func TestActivityDisabled(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/activity?room=event:wedding-42", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a feed, got %d", w.Code)
	}
}

func TestActivityRequiresRoom(t *testing.T) {
	srv, _ := newTestServer(WithActivityFeed(activity.NewMemoryLog(10)))

	req := httptest.NewRequest(http.MethodGet, "/api/activity", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a room parameter, got %d", w.Code)
	}
}

func TestActivityReturnsRecentEntries(t *testing.T) {
	feed := activity.NewMemoryLog(10)
	srv, _ := newTestServer(WithActivityFeed(feed))

	feed.Record(&activity.Entry{ID: "1", RoomKey: "event:wedding-42", Kind: activity.KindLike, PhotoID: "photo-1", CreatedAt: time.Now()})
	feed.Record(&activity.Entry{ID: "2", RoomKey: "event:wedding-42", Kind: activity.KindComment, PhotoID: "photo-1", Detail: "lovely", CreatedAt: time.Now()})
	feed.Record(&activity.Entry{ID: "3", RoomKey: "event:portrait-7", Kind: activity.KindUpload, CreatedAt: time.Now()})

	req := httptest.NewRequest(http.MethodGet, "/api/activity?room=event:wedding-42", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var entries []*activity.Entry
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "1" || entries[1].ID != "2" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestActivityLimit(t *testing.T) {
	feed := activity.NewMemoryLog(10)
	srv, _ := newTestServer(WithActivityFeed(feed))

	for _, id := range []string{"1", "2", "3"} {
		feed.Record(&activity.Entry{ID: id, RoomKey: "event:wedding-42", Kind: activity.KindLike, CreatedAt: time.Now()})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/activity?room=event:wedding-42&limit=2", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var entries []*activity.Entry
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "2" || entries[1].ID != "3" {
		t.Errorf("expected the newest entries, got %+v", entries)
	}
}

func TestWebSocketRouteRequiresAuth(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthenticated upgrade, got %d", w.Code)
	}
}
