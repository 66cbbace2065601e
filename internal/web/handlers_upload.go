package web

import (
	"net/http"

	"opencourt/internal/logging"
	"opencourt/internal/web/middleware"
)

func (s *Server) handleUploadExcel(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		writeError(w, http.StatusBadRequest, "File too large or malformed upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	result, err := s.service.ImportExcel(r.Context(), caller, header.Filename, file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("excel import",
		"file", header.Filename,
		"created", result.Created,
		"updated", result.Updated,
		"errors", len(result.Errors),
	)

	writeJSON(w, http.StatusOK, result)
}
