package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"opencourt/internal/core"
	"opencourt/internal/logging"
	"opencourt/internal/web/middleware"
)

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	q := r.URL.Query()

	records, err := s.service.ListApplications(r.Context(), caller, core.ListQuery{
		Status:        q.Get("status"),
		PoliceStation: q.Get("police_station"),
		Category:      q.Get("category"),
		Search:        q.Get("search"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())

	var in core.ApplicationInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	record, err := s.service.CreateApplication(r.Context(), caller, in)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())

	record, err := s.service.GetApplication(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())

	var in core.ApplicationInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	record, err := s.service.UpdateApplication(r.Context(), caller, chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handlePatchApplication(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())

	var p core.ApplicationPatch
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, r, err)
		return
	}

	record, err := s.service.PatchApplication(r.Context(), caller, chi.URLParam(r, "id"), p)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleDeleteApplication(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())

	if err := s.service.DeleteApplication(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status core.Status `json:"status"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	record, err := s.service.UpdateStatus(r.Context(), caller, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("status updated",
		"id", record.ID,
		"status", record.Status,
	)

	writeJSON(w, http.StatusOK, record)
}

type feedbackRequest struct {
	Feedback core.Feedback `json:"feedback"`
	Remarks  string        `json:"remarks"`
}

func (s *Server) handleUpdateFeedback(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())

	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	record, err := s.service.UpdateFeedback(r.Context(), caller, chi.URLParam(r, "id"), req.Feedback, req.Remarks)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}
