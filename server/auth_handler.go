package server

import (
	"encoding/json"
	"net/http"
	"time"

	"echofm/core/auth"
	"echofm/logger"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler issues a JWT for the configured admin user.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if h.adminPasswordHash == "" {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "authentication is not configured"})
		return
	}

	if req.Username != h.cfg.AdminUser || !auth.CheckPasswordHash(req.Password, h.adminPasswordHash) {
		logger.Warn("failed login attempt", logger.String("username", req.Username))
		respondWithJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(req.Username, h.cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"token": token})
}
