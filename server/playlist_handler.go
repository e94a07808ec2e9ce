package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// GetPlaylistHandler runs a reconciliation pass and returns the playable
// list. The filter query parameter matches name or artist case-insensitively.
func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := h.player.LoadPlaylist(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}

// GetHistoryHandler returns played songs, most recent first.
func (h *APIHandler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	history, err := h.player.History(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, history)
}

// GetFavoritesHandler returns all favorite snapshots.
func (h *APIHandler) GetFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.player.Favorites(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, favorites)
}

// ToggleFavoriteHandler flips the favorite state of a song.
func (h *APIHandler) ToggleFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.player.ToggleFavorite(r.Context(), id); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DeleteSongHandler removes a song from the library. Its favorite snapshot,
// if any, survives and resurfaces virtually.
func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.player.DeleteSong(r.Context(), id); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ResetHandler clears both collections and all payloads. Maintenance only.
func (h *APIHandler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.player.ResetAll(r.Context()); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
