package web

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/agrifleet/agrifleet/internal/logging"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListFuelRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.FuelRecords(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateFuelRecord(w http.ResponseWriter, r *http.Request) {
	var record fleet.FuelRecord
	if err := decode(r, &record); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if record.AssetID == "" {
		respondError(w, r, errors.New("asset_id is required"), http.StatusBadRequest)
		return
	}
	if record.Quantity <= 0 {
		respondError(w, r, errors.New("quantity must be positive"), http.StatusBadRequest)
		return
	}
	if record.Date.IsZero() {
		record.Date = time.Now()
	}

	created, err := s.store.CreateFuelRecord(r.Context(), record)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteFuelRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteFuelRecord(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStreamFuelRecordsCSV streams all fuel records as CSV directly to the
// response, without buffering the full document in memory.
func (s *Server) handleStreamFuelRecordsCSV(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.FuelRecords(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	assets, err := s.store.Assets(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	names := make(map[string]string, len(assets))
	for _, a := range assets {
		names[a.ID] = a.Name
	}

	filename := fmt.Sprintf("fuel-records-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"Asset", "Date", "Fuel Type", "Quantity (L)", "Price per Liter", "Total Cost", "Location", "Hours Reading"}
	if err := cw.Write(header); err != nil {
		logging.FromContext(r.Context()).Error("csv stream failed", "error", err)
		return
	}

	for _, rec := range records {
		name := names[rec.AssetID]
		if name == "" {
			name = rec.AssetID
		}
		hours := ""
		if rec.CurrentHours != nil {
			hours = strconv.FormatFloat(*rec.CurrentHours, 'f', -1, 64)
		}
		row := []string{
			name,
			rec.Date.Format("2006-01-02"),
			rec.FuelType,
			strconv.FormatFloat(rec.Quantity, 'f', -1, 64),
			strconv.FormatFloat(rec.PricePerLiter, 'f', 2, 64),
			strconv.FormatFloat(rec.Cost, 'f', 2, 64),
			rec.Location,
			hours,
		}
		if err := cw.Write(row); err != nil {
			logging.FromContext(r.Context()).Error("csv stream failed", "error", err)
			return
		}
	}
}
