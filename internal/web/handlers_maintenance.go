package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListMaintenance(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.MaintenanceTasks(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var task fleet.MaintenanceTask
	if err := decode(r, &task); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		respondError(w, r, errors.New("title is required"), http.StatusBadRequest)
		return
	}
	if task.Status != "" && !fleet.ValidTaskStatus(task.Status) {
		respondError(w, r, errors.New("invalid task status"), http.StatusBadRequest)
		return
	}

	created, err := s.store.CreateMaintenanceTask(r.Context(), task)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	var task fleet.MaintenanceTask
	if err := decode(r, &task); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	task.ID = chi.URLParam(r, "id")
	if task.Status != "" && !fleet.ValidTaskStatus(task.Status) {
		respondError(w, r, errors.New("invalid task status"), http.StatusBadRequest)
		return
	}

	updated, err := s.store.UpdateMaintenanceTask(r.Context(), task)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type moveTaskRequest struct {
	Status fleet.TaskStatus `json:"status"`
}

// handleMoveMaintenance moves a task between kanban lanes.
func (s *Server) handleMoveMaintenance(w http.ResponseWriter, r *http.Request) {
	var req moveTaskRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if !fleet.ValidTaskStatus(req.Status) {
		respondError(w, r, errors.New("invalid task status"), http.StatusBadRequest)
		return
	}

	moved, err := s.store.MoveMaintenanceTask(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

func (s *Server) handleDeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteMaintenanceTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
