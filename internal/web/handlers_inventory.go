package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.InventoryItems(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateInventory(w http.ResponseWriter, r *http.Request) {
	var item fleet.InventoryItem
	if err := decode(r, &item); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		respondError(w, r, errors.New("name is required"), http.StatusBadRequest)
		return
	}
	if item.Quantity < 0 {
		respondError(w, r, errors.New("quantity must not be negative"), http.StatusBadRequest)
		return
	}

	created, err := s.store.CreateInventoryItem(r.Context(), item)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	var item fleet.InventoryItem
	if err := decode(r, &item); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	item.ID = chi.URLParam(r, "id")
	updated, err := s.store.UpdateInventoryItem(r.Context(), item)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteInventory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteInventoryItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
