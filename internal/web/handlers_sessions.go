package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.Sessions(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var session fleet.OperatingSession
	if err := decode(r, &session); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if session.AssetID == "" {
		respondError(w, r, errors.New("asset_id is required"), http.StatusBadRequest)
		return
	}
	if session.SessionStart.IsZero() {
		session.SessionStart = time.Now()
	}
	if session.SessionEnd != nil && session.SessionEnd.Before(session.SessionStart) {
		respondError(w, r, errors.New("session_end must not precede session_start"), http.StatusBadRequest)
		return
	}

	created, err := s.store.CreateSession(r.Context(), session)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type closeSessionRequest struct {
	SessionEnd   *time.Time `json:"session_end,omitempty"`
	FuelConsumed float64    `json:"fuel_consumed"`
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	var req closeSessionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	end := time.Now()
	if req.SessionEnd != nil {
		end = *req.SessionEnd
	}
	if req.FuelConsumed < 0 {
		respondError(w, r, errors.New("fuel_consumed must not be negative"), http.StatusBadRequest)
		return
	}

	closed, err := s.store.CloseSession(r.Context(), chi.URLParam(r, "id"), end, req.FuelConsumed)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, closed)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
