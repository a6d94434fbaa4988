package services

import (
	"context"
	"time"

	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/models"
	"memberhub-backend-go/internal/storage"
)

const uploadColumns = `id, location_id, user_id, backend, folder, original_name, mime_type, size_bytes, url, created_at`

// SaveUpload stores the bytes through the backend and records them. The
// stored object is removed again when the row cannot be written.
func SaveUpload(ctx context.Context, store *db.Store, backend storage.Backend, userID *int64, data []byte, originalName, declaredMIME string, hint storage.ContextHint) (models.Upload, error) {
	if len(data) == 0 {
		return models.Upload{}, ErrBadRequest("File is empty")
	}
	mimeType := storage.DetectMIME(declaredMIME, data)
	obj, err := backend.Upload(ctx, data, originalName, mimeType, hint)
	if err != nil {
		return models.Upload{}, err
	}
	res, err := store.Exec(ctx, `
INSERT INTO uploads (location_id, user_id, backend, folder, original_name, mime_type, size_bytes, url, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obj.LocationID, userID, backend.Name(), obj.Folder, originalName, mimeType, len(data), obj.URL, time.Now().UTC())
	if err != nil {
		_ = backend.Delete(ctx, obj.LocationID)
		return models.Upload{}, err
	}
	return GetUpload(ctx, store, *res.InsertID)
}

func GetUpload(ctx context.Context, store *db.Store, id int64) (models.Upload, error) {
	var upload models.Upload
	err := store.Get(ctx, &upload, `SELECT `+uploadColumns+` FROM uploads WHERE id = ?`, id)
	if db.IsNotFound(err) {
		return models.Upload{}, ErrNotFound("Upload not found")
	}
	return upload, err
}

// DeleteUpload removes the stored object first so a provider outage leaves
// the row in place for a retry.
func DeleteUpload(ctx context.Context, store *db.Store, backend storage.Backend, upload models.Upload) error {
	if err := backend.Delete(ctx, upload.LocationID); err != nil {
		return err
	}
	_, err := store.Exec(ctx, `DELETE FROM uploads WHERE id = ?`, upload.ID)
	return err
}
