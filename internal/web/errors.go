package web

// errors.go provides the unified error response handling for the web
// layer. Technical detail is logged server-side with the request ID; the
// client gets a JSON body of the form {"error": "..."} whose status code
// follows the taxonomy in internal/core/errors.go.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"opencourt/internal/core"
	"opencourt/internal/logging"
)

// errorResponse is the JSON body for all error replies.
type errorResponse struct {
	Error string `json:"error"`
}

// respondError translates a service error into an HTTP response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrBadFile):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, core.ErrUnauthorized):
		status = http.StatusUnauthorized
		message = "Invalid credentials"
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
		message = "not found"
	}

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
	)

	writeError(w, status, message)
}

// writeError writes a JSON error response with the given status.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; nothing left to do but log.
		slog.Error("json encode error", "error", err)
	}
}

// decodeJSON decodes the request body into dst, rejecting unknown fields
// and trailing garbage.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return core.InvalidInput(jsonErrorMessage(err))
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return core.InvalidInput("request body must contain a single JSON object")
	}
	return nil
}

// jsonErrorMessage turns a json decoding error into a caller-safe message.
func jsonErrorMessage(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "unknown field") {
		return msg
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return "invalid value for field " + typeErr.Field
	}
	return "malformed request body"
}
