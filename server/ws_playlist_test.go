package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"echofm/model"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestHandleWSSeedsNewClient(t *testing.T) {
	hub := NewPlaylistHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	entries := []*model.PlaylistEntry{{ID: "a", Name: "Alpha", Favorite: true}}
	hub.Broadcast(entries, map[string]bool{"a": true})

	conn := dialHub(t, srv)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update playlistUpdate
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read seed message: %v", err)
	}
	if len(update.Entries) != 1 || update.Entries[0].ID != "a" {
		t.Errorf("unexpected seed entries: %+v", update.Entries)
	}
	if len(update.FavoriteIDs) != 1 || update.FavoriteIDs[0] != "a" {
		t.Errorf("unexpected seed favorite ids: %v", update.FavoriteIDs)
	}
}

func TestHandleWSClientsJoinDuringBroadcasts(t *testing.T) {
	hub := NewPlaylistHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	entries := []*model.PlaylistEntry{{ID: "a", Name: "Alpha"}, {ID: "b", Name: "Beta"}}
	hub.Broadcast(entries, nil)

	// Hammer the hub from another goroutine while clients connect. Every
	// connection write must stay serialized with these broadcasts.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				hub.Broadcast(entries, nil)
			}
		}
	}()

	for i := 0; i < 20; i++ {
		conn := dialHub(t, srv)
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var update playlistUpdate
		if err := conn.ReadJSON(&update); err != nil {
			conn.Close()
			t.Fatalf("client %d read: %v", i, err)
		}
		if len(update.Entries) != 2 {
			t.Errorf("client %d got %d entries", i, len(update.Entries))
		}
		conn.Close()
	}

	close(done)
	wg.Wait()
}
