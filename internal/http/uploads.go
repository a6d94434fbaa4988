package httpapi

import (
	"errors"
	"io"
	"io/fs"
	"net/http"

	"memberhub-backend-go/internal/services"
	"memberhub-backend-go/internal/storage"

	"github.com/go-chi/chi/v5"
)

const multipartMemory = 8 << 20

// Upload accepts a multipart "file" part and an optional "context" hint
// that picks the destination folder.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	if s.Storage == nil {
		WriteError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}
	maxBytes := int64(s.Config.MaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	if header.Size > maxBytes {
		WriteError(w, http.StatusRequestEntityTooLarge, "File is too large")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Could not read file")
		return
	}
	id, _ := CurrentIdentity(r)
	hint := storage.ParseHint(r.FormValue("context"))
	upload, err := services.SaveUpload(r.Context(), s.Store, s.Storage, &id.ID, data, header.Filename, header.Header.Get("Content-Type"), hint)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toUploadDTO(upload))
}

func (s *Server) DeleteUploadHandler(w http.ResponseWriter, r *http.Request) {
	uploadID, ok := pathID(w, r, "uploadId")
	if !ok {
		return
	}
	upload, err := services.GetUpload(r.Context(), s.Store, uploadID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	id, _ := CurrentIdentity(r)
	if !id.IsAdmin() && (upload.UserID == nil || *upload.UserID != id.ID) {
		WriteError(w, http.StatusForbidden, "Not allowed to delete this upload")
		return
	}
	if s.Storage == nil {
		WriteError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}
	if err := services.DeleteUpload(r.Context(), s.Store, s.Storage, upload); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeFile exposes files of the local backend under the public base URL.
func (s *Server) ServeFile(local *storage.Local) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := local.Serve(w, r, chi.URLParam(r, "*"))
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrInvalidLocation), errors.Is(err, fs.ErrNotExist):
			WriteError(w, http.StatusNotFound, "File not found")
		default:
			s.internalError(w, r, err)
		}
	}
}
