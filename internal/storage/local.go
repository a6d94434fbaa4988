package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/afero"
)

type Local struct {
	fs      afero.Fs
	baseURL string
}

func NewLocal(fs afero.Fs, baseURL string) *Local {
	return &Local{fs: fs, baseURL: strings.TrimRight(baseURL, "/")}
}

// NewLocalDir roots the backend at dir on the real filesystem.
func NewLocalDir(dir, baseURL string) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: upload dir not configured", ErrUnavailable)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return NewLocal(afero.NewBasePathFs(afero.NewOsFs(), dir), baseURL), nil
}

func (l *Local) Name() string { return "local" }

func (l *Local) Upload(_ context.Context, data []byte, originalName, mimeType string, hint ContextHint) (Object, error) {
	folder, locationID := NewLocation(originalName, mimeType, data, hint)
	if err := l.fs.MkdirAll(folder, 0o755); err != nil {
		return Object{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := afero.WriteFile(l.fs, locationID, data, 0o644); err != nil {
		return Object{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Object{LocationID: locationID, URL: l.baseURL + "/" + locationID, Folder: folder}, nil
}

// Delete is idempotent; a missing file is not an error.
func (l *Local) Delete(_ context.Context, locationID string) error {
	if err := ValidateLocation(locationID); err != nil {
		return err
	}
	err := l.fs.Remove(locationID)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Serve writes a stored file. Directory listings are never served.
func (l *Local) Serve(w http.ResponseWriter, r *http.Request, locationID string) error {
	if err := ValidateLocation(locationID); err != nil {
		return err
	}
	f, err := l.fs.Open(locationID)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return os.ErrNotExist
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return nil
}
