package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/agrifleet/agrifleet/internal/auth"
	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/agrifleet/agrifleet/internal/logging"
	"github.com/agrifleet/agrifleet/internal/store"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  fleet.User `json:"user"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := s.auth.ValidateUsername(req.Username); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.auth.ValidatePassword(req.Password); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if req.Role != "" && !fleet.ValidRole(fleet.Role(req.Role)) {
		respondError(w, r, errors.New("invalid role"), http.StatusBadRequest)
		return
	}

	if _, err := s.store.UserByUsername(r.Context(), req.Username); err == nil {
		respondError(w, r, errors.New("username already taken"), http.StatusConflict)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		respondServiceError(w, r, err)
		return
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	user, err := s.store.CreateUser(r.Context(), fleet.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         fleet.Role(req.Role),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("user registered", "username", user.Username)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	user, err := s.store.UserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, r, auth.ErrInvalidCredentials, http.StatusUnauthorized)
			return
		}
		respondServiceError(w, r, err)
		return
	}

	if !s.auth.CheckPassword(req.Password, user.PasswordHash) {
		respondError(w, r, auth.ErrInvalidCredentials, http.StatusUnauthorized)
		return
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}
