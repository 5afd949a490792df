package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/agrifleet/agrifleet/internal/export"
	"github.com/agrifleet/agrifleet/internal/logging"
	"github.com/go-chi/chi/v5"
)

type startExportRequest struct {
	Format   export.Format  `json:"format"`
	GroupBy  export.GroupBy `json:"group_by,omitempty"`
	DateFrom *time.Time     `json:"date_from,omitempty"`
	DateTo   *time.Time     `json:"date_to,omitempty"`
	AssetIDs []string       `json:"asset_ids,omitempty"`
}

type startExportResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleStartExport(w http.ResponseWriter, r *http.Request) {
	var req startExportRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	opts := export.Options{
		Format:   req.Format,
		GroupBy:  req.GroupBy,
		AssetIDs: req.AssetIDs,
	}
	if req.DateFrom != nil || req.DateTo != nil {
		opts.Range = &export.DateRange{}
		if req.DateFrom != nil {
			opts.Range.Start = *req.DateFrom
		}
		if req.DateTo != nil {
			opts.Range.End = *req.DateTo
		}
	}

	dataset := chi.URLParam(r, "dataset")
	if claims := claimsFrom(r.Context()); claims != nil {
		logging.WithFields(r.Context(), "user", claims.Username).Info("export requested", "dataset", dataset, "format", req.Format)
	}

	id, err := s.exports.Start(r.Context(), export.Kind(dataset), opts)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, startExportResponse{ID: id})
}

func (s *Server) handleExportProgress(w http.ResponseWriter, r *http.Request) {
	progress, ok := s.exports.Progress(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, r, errors.New("unknown export job"), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleExportDownload(w http.ResponseWriter, r *http.Request) {
	artifact, ok := s.exports.Artifact(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, r, errors.New("export not ready"), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Content)
}
