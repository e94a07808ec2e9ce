package server

import (
	"io"
	"net/http"
	"strconv"

	"echofm/cache"
	"echofm/logger"

	"github.com/gorilla/mux"
)

// StreamHandler serves the audio payload behind a transient playback token.
// Unknown or expired tokens mean the handle was released; the playback
// element must request a fresh one.
func (h *APIHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	record, err := cache.ResolveHandle(r.Context(), token)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if record == nil {
		respondWithJSON(w, http.StatusNotFound, map[string]string{"error": "unknown or expired playback handle"})
		return
	}

	obj, info, err := h.blobs.Get(r.Context(), record.BlobKey)
	if err != nil {
		respondWithError(w, err)
		return
	}
	defer obj.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Accept-Ranges", "none")

	if _, err := io.Copy(w, obj); err != nil {
		logger.Warn("stream interrupted",
			logger.String("token", token), logger.ErrorField(err))
	}
}
