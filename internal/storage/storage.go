// Package storage puts uploaded bytes on local disk or in Azure Blob Storage
// under a folder chosen from the upload context and the file extension.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrUnavailable     = errors.New("storage unavailable")
	ErrInvalidLocation = errors.New("invalid location id")
)

type ContextHint string

const (
	HintNone     ContextHint = ""
	HintAvatar   ContextHint = "avatar"
	HintResource ContextHint = "resource"
	HintPlaybook ContextHint = "playbook"
	HintEvent    ContextHint = "event"
	HintTeam     ContextHint = "team"
	HintDocument ContextHint = "document"
)

var hintFolders = map[ContextHint]string{
	HintAvatar:   "avatars",
	HintResource: "resources",
	HintPlaybook: "playbooks",
	HintEvent:    "events",
	HintTeam:     "team",
	HintDocument: "documents",
}

// ParseHint maps a client supplied context to a known hint. Unknown values
// are ignored.
func ParseHint(raw string) ContextHint {
	hint := ContextHint(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := hintFolders[hint]; ok {
		return hint
	}
	return HintNone
}

var extFolders = map[string]string{
	".jpg": "images", ".jpeg": "images", ".png": "images", ".gif": "images",
	".webp": "images", ".svg": "images", ".bmp": "images", ".avif": "images",
	".mp4": "videos", ".mov": "videos", ".webm": "videos", ".avi": "videos",
	".mkv": "videos", ".m4v": "videos",
	".pdf": "documents", ".doc": "documents", ".docx": "documents", ".xls": "documents",
	".xlsx": "documents", ".ppt": "documents", ".pptx": "documents", ".txt": "documents",
	".csv": "documents", ".md": "documents", ".rtf": "documents", ".odt": "documents",
}

// FolderFor picks the destination folder. The hint wins over the extension.
func FolderFor(ext string, hint ContextHint) string {
	if folder, ok := hintFolders[hint]; ok {
		return folder
	}
	if folder, ok := extFolders[strings.ToLower(ext)]; ok {
		return folder
	}
	return "misc"
}

type Object struct {
	LocationID string `json:"locationId"`
	URL        string `json:"url"`
	Folder     string `json:"folder"`
}

type Backend interface {
	Upload(ctx context.Context, data []byte, originalName, mimeType string, hint ContextHint) (Object, error)
	Delete(ctx context.Context, locationID string) error
	Name() string
}

// NewLocation returns the folder and the folder/uuid.ext location id for an
// upload. Files without an extension get one from their sniffed type.
func NewLocation(originalName, mimeType string, data []byte, hint ContextHint) (folder, locationID string) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		if mt := mimetype.Lookup(mimeType); mt != nil {
			ext = mt.Extension()
		} else {
			ext = mimetype.Detect(data).Extension()
		}
	}
	folder = FolderFor(ext, hint)
	return folder, folder + "/" + uuid.NewString() + ext
}

// ValidateLocation accepts only folder/name ids produced by NewLocation.
func ValidateLocation(locationID string) error {
	if locationID == "" || path.Clean(locationID) != locationID || strings.HasPrefix(locationID, "/") {
		return ErrInvalidLocation
	}
	parts := strings.Split(locationID, "/")
	if len(parts) != 2 || parts[0] == ".." || parts[1] == ".." || parts[0] == "" || parts[1] == "" {
		return ErrInvalidLocation
	}
	return nil
}

// DetectMIME trusts the declared type unless it is missing or generic.
func DetectMIME(declared string, data []byte) string {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(declared)), ";")
	base = strings.TrimSpace(base)
	if base != "" && base != "application/octet-stream" {
		return base
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	detected, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return detected
}

type Config struct {
	Backend               string
	UploadDir             string
	PublicBaseURL         string
	AzureConnectionString string
	AzureContainer        string
}

func New(cfg Config) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		local, err := NewLocalDir(cfg.UploadDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		return local, nil
	case "azure":
		azure, err := NewAzure(cfg.AzureConnectionString, cfg.AzureContainer)
		if err != nil {
			return nil, err
		}
		return azure, nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
