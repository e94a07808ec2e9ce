package server

import (
	"context"
	"net/http"
	"sync"

	"echofm/cache"
	"echofm/logger"
	"echofm/model"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// playlistUpdate is the message pushed to render targets after every
// reconciliation pass.
type playlistUpdate struct {
	Entries     []*model.PlaylistEntry `json:"entries"`
	FavoriteIDs []string               `json:"favoriteIds"`
}

// PlaylistHub fans the reconciled list out to connected WebSocket clients.
// Clients render idempotently on the latest message, so overlapping passes
// only cost a redundant redraw.
type PlaylistHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
	last  *playlistUpdate
}

// NewPlaylistHub creates an empty hub.
func NewPlaylistHub() *PlaylistHub {
	return &PlaylistHub{conns: make(map[*websocket.Conn]bool)}
}

// Broadcast pushes the latest reconciled list to every client. Dead
// connections are dropped on write failure. All connection writes go through
// the hub mutex; a conn is never written from anywhere else once registered.
func (hub *PlaylistHub) Broadcast(entries []*model.PlaylistEntry, favoriteIDs map[string]bool) {
	ids := make([]string, 0, len(favoriteIDs))
	for id := range favoriteIDs {
		ids = append(ids, id)
	}
	update := playlistUpdate{Entries: entries, FavoriteIDs: ids}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.last = &update
	for conn := range hub.conns {
		if err := conn.WriteJSON(update); err != nil {
			logger.Debug("dropping websocket client", logger.ErrorField(err))
			conn.Close()
			delete(hub.conns, conn)
		}
	}
}

// snapshot returns the list to seed a new client with: the last broadcast
// update, or the Redis mirror when the process has not broadcast yet.
func (hub *PlaylistHub) snapshot(ctx context.Context) *playlistUpdate {
	hub.mu.Lock()
	last := hub.last
	hub.mu.Unlock()
	if last != nil {
		return last
	}

	entries, err := cache.GetPlaylist(ctx)
	if err != nil || len(entries) == 0 {
		return nil
	}
	ids := make([]string, 0)
	for _, e := range entries {
		if e.Favorite {
			ids = append(ids, e.ID)
		}
	}
	return &playlistUpdate{Entries: entries, FavoriteIDs: ids}
}

// HandleWS upgrades the connection and keeps it registered until it closes.
func (hub *PlaylistHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	// New clients get the last reconciled list right away instead of waiting
	// for the next pass. The write happens before the conn joins the hub, so
	// it cannot interleave with a concurrent Broadcast.
	if update := hub.snapshot(r.Context()); update != nil {
		if err := conn.WriteJSON(update); err != nil {
			logger.Debug("initial playlist push failed", logger.ErrorField(err))
			conn.Close()
			return
		}
	}

	hub.mu.Lock()
	hub.conns[conn] = true
	hub.mu.Unlock()

	// Drain client messages; the hub only pushes.
	go func() {
		defer func() {
			hub.mu.Lock()
			delete(hub.conns, conn)
			hub.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
