package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.store.Assets(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := s.store.Asset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var asset fleet.Asset
	if err := decode(r, &asset); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	asset.Name = strings.TrimSpace(asset.Name)
	if asset.Name == "" {
		respondError(w, r, errors.New("name is required"), http.StatusBadRequest)
		return
	}
	if asset.Status != "" && !fleet.ValidAssetStatus(asset.Status) {
		respondError(w, r, errors.New("invalid asset status"), http.StatusBadRequest)
		return
	}

	created, err := s.store.CreateAsset(r.Context(), asset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	var asset fleet.Asset
	if err := decode(r, &asset); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	asset.ID = chi.URLParam(r, "id")
	if asset.Status != "" && !fleet.ValidAssetStatus(asset.Status) {
		respondError(w, r, errors.New("invalid asset status"), http.StatusBadRequest)
		return
	}

	updated, err := s.store.UpdateAsset(r.Context(), asset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAsset(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
