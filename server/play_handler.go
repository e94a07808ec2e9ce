package server

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// PlayByIDHandler starts playback of a song by its identifier.
func (h *APIHandler) PlayByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	now, err := h.player.PlayByID(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, now)
}

// PlayByIndexHandler starts playback of the entry at a list position.
func (h *APIHandler) PlayByIndexHandler(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index"})
		return
	}

	now, err := h.player.PlayByIndex(r.Context(), idx)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, now)
}

// NextHandler advances playback; ?smart=true enables the weighted
// favorite-biased selection.
func (h *APIHandler) NextHandler(w http.ResponseWriter, r *http.Request) {
	smart, _ := strconv.ParseBool(r.URL.Query().Get("smart"))
	now, err := h.player.Next(r.Context(), smart)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if now == nil {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "empty playlist"})
		return
	}
	respondWithJSON(w, http.StatusOK, now)
}

// PreviousHandler steps playback back one entry.
func (h *APIHandler) PreviousHandler(w http.ResponseWriter, r *http.Request) {
	now, err := h.player.Previous(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	if now == nil {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "empty playlist"})
		return
	}
	respondWithJSON(w, http.StatusOK, now)
}

// NowPlayingHandler returns the current playback source.
func (h *APIHandler) NowPlayingHandler(w http.ResponseWriter, r *http.Request) {
	now := h.player.Now()
	if now == nil {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "idle"})
		return
	}
	respondWithJSON(w, http.StatusOK, now)
}
