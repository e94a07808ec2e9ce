package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"echofm/config"
	"echofm/core/auth"
	"echofm/core/ingest"
	"echofm/core/player"
	"echofm/logger"
	"echofm/model"
	"echofm/storage"
)

// APIHandler carries the wired core components for all HTTP handlers.
type APIHandler struct {
	player   *player.Player
	pipeline *ingest.Pipeline
	blobs    storage.BlobStore
	hub      *PlaylistHub
	cfg      *config.Config

	adminPasswordHash string
}

// NewAPIHandler creates the API handler. The admin password is hashed once at
// startup so the plaintext never sticks around.
func NewAPIHandler(
	p *player.Player,
	pipeline *ingest.Pipeline,
	blobs storage.BlobStore,
	hub *PlaylistHub,
	cfg *config.Config,
) (*APIHandler, error) {
	hash := ""
	if cfg.AdminPassword != "" {
		var err error
		hash, err = auth.HashPassword(cfg.AdminPassword)
		if err != nil {
			return nil, err
		}
	}

	return &APIHandler{
		player:            p,
		pipeline:          pipeline,
		blobs:             blobs,
		hub:               hub,
		cfg:               cfg,
		adminPasswordHash: hash,
	}, nil
}

// respondWithJSON writes a JSON response body with the given status.
func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("failed to encode response", logger.ErrorField(err))
		}
	}
}

// respondWithError maps core errors onto HTTP statuses.
func respondWithError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotPlayable):
		status = http.StatusUnprocessableEntity
	}
	respondWithJSON(w, status, map[string]string{"error": err.Error()})
}

// AuthMiddleware guards mutating endpoints with a bearer token. When no admin
// password is configured the deployment is treated as open (single user on a
// trusted machine) and the check is skipped.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.adminPasswordHash == "" {
			next(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondWithJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if _, err := auth.ParseToken(token, h.cfg.JWTSecret); err != nil {
			respondWithJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}

		next(w, r)
	}
}
