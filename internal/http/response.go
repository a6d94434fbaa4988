package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/services"
	"memberhub-backend-go/internal/storage"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// writeErr maps domain and infrastructure errors onto the JSON error body.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if svcErr, ok := services.AsServiceError(err); ok {
		WriteError(w, svcErr.Status, svcErr.Message)
		return
	}
	switch {
	case errors.Is(err, db.ErrOpen):
		s.Logger.Error("database unavailable", "path", r.URL.Path, "err", err)
		WriteError(w, http.StatusServiceUnavailable, "Database unavailable")
	case errors.Is(err, storage.ErrUnavailable):
		s.Logger.Error("storage unavailable", "path", r.URL.Path, "err", err)
		WriteError(w, http.StatusServiceUnavailable, "Storage unavailable")
	case errors.Is(err, storage.ErrInvalidLocation):
		WriteError(w, http.StatusBadRequest, "Invalid location id")
	case db.IsUniqueViolation(err):
		WriteError(w, http.StatusConflict, "Resource already exists")
	case db.IsForeignKeyViolation(err):
		WriteError(w, http.StatusBadRequest, "Referenced record does not exist")
	case db.IsNotFound(err):
		WriteError(w, http.StatusNotFound, "Not found")
	default:
		s.internalError(w, r, err)
	}
}

// internalError hides the message in production.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	if s.Config.IsProduction() || err == nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteError(w, http.StatusInternalServerError, err.Error())
}
