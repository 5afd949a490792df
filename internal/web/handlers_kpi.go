package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/agrifleet/agrifleet/internal/kpi"
)

// handleFuelKPI computes the full fuel KPI report over the current fleet
// data. The operating_costs query parameter overrides the configured total
// used for the fuel cost percentage.
func (s *Server) handleFuelKPI(w http.ResponseWriter, r *http.Request) {
	operatingCosts := s.cfg.KPI.DefaultOperatingCosts
	if raw := r.URL.Query().Get("operating_costs"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			respondError(w, r, errors.New("operating_costs must be a non-negative number"), http.StatusBadRequest)
			return
		}
		operatingCosts = v
	}

	assets, err := s.store.Assets(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	records, err := s.store.FuelRecords(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	sessions, err := s.store.Sessions(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	calc := kpi.NewCalculator(assets, records, sessions)
	writeJSON(w, http.StatusOK, calc.AllKPIs(operatingCosts))
}
