package httpapi

import (
	"net/http"
	"strings"
	"time"

	"memberhub-backend-go/internal/models"
	"memberhub-backend-go/internal/services"
)

type ResourceUpsertRequest struct {
	Title        string              `json:"title" validate:"required,max=200"`
	Type         models.ResourceType `json:"type" validate:"omitempty,oneof=article video document link"`
	Summary      string              `json:"summary" validate:"max=1000"`
	Content      string              `json:"content"`
	URL          *string             `json:"url" validate:"omitempty,max=2048"`
	ThumbnailURL *string             `json:"thumbnailUrl" validate:"omitempty,max=2048"`
	CategoryID   *int64              `json:"categoryId" validate:"omitempty,gt=0"`
	Tags         []string            `json:"tags" validate:"max=50"`
	MembersOnly  *bool               `json:"membersOnly"`
	Status       string              `json:"status" validate:"omitempty,oneof=draft published"`
}

// AdminListResources includes drafts and members-only rows.
func (s *Server) AdminListResources(w http.ResponseWriter, r *http.Request) {
	f := contentFilter(r, "r")
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		f.add(`r.status = ?`, status)
	}
	s.writeResourceList(w, r, f, `r.updated_at DESC, r.id DESC`)
}

func (s *Server) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req ResourceUpsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	title := strings.TrimSpace(req.Title)
	slug, err := services.UniqueSlug(r.Context(), s.Store, "resources", title, 0)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	kind := req.Type
	if kind == "" {
		kind = models.ResourceArticle
	}
	status := req.Status
	if status == "" {
		status = models.StatusDraft
	}
	now := time.Now().UTC()
	var publishedAt *time.Time
	if status == models.StatusPublished {
		publishedAt = &now
	}
	res, err := s.Store.Exec(r.Context(), `
INSERT INTO resources (title, slug, type, summary, content, url, thumbnail_url, category_id, author_id,
                       tags, members_only, status, published_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		title, slug, kind, strings.TrimSpace(req.Summary), req.Content, trimmedPtr(req.URL), trimmedPtr(req.ThumbnailURL),
		req.CategoryID, s.actorID(r), services.EncodeTags(req.Tags), boolOr(req.MembersOnly, false), status,
		publishedAt, now, now)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeResource(w, r, http.StatusCreated, *res.InsertID)
}

func (s *Server) UpdateResource(w http.ResponseWriter, r *http.Request) {
	resourceID, ok := pathID(w, r, "resourceId")
	if !ok {
		return
	}
	var req ResourceUpsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var current models.Resource
	if err := s.Store.Get(r.Context(), &current, resourceSelect+` WHERE r.id = ?`, resourceID); err != nil {
		s.writeErr(w, r, notFoundAs(err, "Resource not found"))
		return
	}
	title := strings.TrimSpace(req.Title)
	slug := current.Slug
	if title != current.Title {
		var err error
		if slug, err = services.UniqueSlug(r.Context(), s.Store, "resources", title, resourceID); err != nil {
			s.writeErr(w, r, err)
			return
		}
	}
	kind := req.Type
	if kind == "" {
		kind = current.Type
	}
	status := req.Status
	if status == "" {
		status = current.Status
	}
	now := time.Now().UTC()
	publishedAt := current.PublishedAt
	if status == models.StatusPublished && publishedAt == nil {
		publishedAt = &now
	}
	if _, err := s.Store.Exec(r.Context(), `
UPDATE resources
SET title = ?, slug = ?, type = ?, summary = ?, content = ?, url = ?, thumbnail_url = ?, category_id = ?,
    tags = ?, members_only = ?, status = ?, published_at = ?, updated_at = ?
WHERE id = ?`,
		title, slug, kind, strings.TrimSpace(req.Summary), req.Content, trimmedPtr(req.URL), trimmedPtr(req.ThumbnailURL),
		req.CategoryID, services.EncodeTags(req.Tags), boolOr(req.MembersOnly, current.MembersOnly), status,
		publishedAt, now, resourceID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeResource(w, r, http.StatusOK, resourceID)
}

func (s *Server) DeleteResource(w http.ResponseWriter, r *http.Request) {
	resourceID, ok := pathID(w, r, "resourceId")
	if !ok {
		return
	}
	res, err := s.Store.Exec(r.Context(), `DELETE FROM resources WHERE id = ?`, resourceID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if res.AffectedRows == 0 {
		WriteError(w, http.StatusNotFound, "Resource not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeResource(w http.ResponseWriter, r *http.Request, status int, id int64) {
	var res models.Resource
	if err := s.Store.Get(r.Context(), &res, resourceSelect+` WHERE r.id = ?`, id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, status, toResourceDTO(res, true))
}
