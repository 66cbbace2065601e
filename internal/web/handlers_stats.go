package web

import (
	"net/http"

	"opencourt/internal/web/middleware"
)

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())

	stats, err := s.service.DashboardStats(r.Context(), caller)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePoliceStations(w http.ResponseWriter, r *http.Request) {
	stations, err := s.service.PoliceStations(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stations)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.service.Categories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, categories)
}
