package httpapi

import (
	"net/http"
	"strings"
	"time"

	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/models"
	"memberhub-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

const playbookSelect = `
SELECT p.id, p.title, p.slug, p.summary, p.steps, p.cover_url,
       p.category_id, c.name AS category_name, p.author_id, u.name AS author_name,
       p.members_only, p.status, p.views, p.published_at, p.created_at, p.updated_at
FROM playbooks p
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN users u ON u.id = p.author_id`

type PlaybookUpsertRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Summary     string          `json:"summary" validate:"max=1000"`
	Steps       []services.Step `json:"steps" validate:"max=100"`
	CoverURL    *string         `json:"coverUrl" validate:"omitempty,max=2048"`
	CategoryID  *int64          `json:"categoryId" validate:"omitempty,gt=0"`
	MembersOnly *bool           `json:"membersOnly"`
	Status      string          `json:"status" validate:"omitempty,oneof=draft published"`
}

func (s *Server) ListPlaybooks(w http.ResponseWriter, r *http.Request) {
	f := contentFilter(r, "p")
	f.add(`p.status = ?`, models.StatusPublished)
	if !services.CanViewMembersContent(identityPtr(r)) {
		f.add(`p.members_only = 0`)
	}
	s.writePlaybookList(w, r, f, `p.published_at DESC, p.id DESC`)
}

func (s *Server) AdminListPlaybooks(w http.ResponseWriter, r *http.Request) {
	f := contentFilter(r, "p")
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		f.add(`p.status = ?`, status)
	}
	s.writePlaybookList(w, r, f, `p.updated_at DESC, p.id DESC`)
}

func (s *Server) writePlaybookList(w http.ResponseWriter, r *http.Request, f *resourceFilter, order string) {
	page, size := paging(r, 12, 50)
	var total int
	if err := s.Store.Get(r.Context(), &total, `
SELECT COUNT(*) FROM playbooks p LEFT JOIN categories c ON c.id = p.category_id`+f.clause(), f.args...); err != nil {
		s.writeErr(w, r, err)
		return
	}
	rows := []models.Playbook{}
	args := append(f.args, size, (page-1)*size)
	if err := s.Store.Select(r.Context(), &rows, playbookSelect+f.clause()+` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...); err != nil {
		s.writeErr(w, r, err)
		return
	}
	items := make([]PlaybookDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toPlaybookDTO(row, false))
	}
	WriteJSON(w, http.StatusOK, ListResponse[PlaybookDTO]{Items: items, Total: total, Page: page, Size: size})
}

func (s *Server) PlaybookDetail(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	var p models.Playbook
	err := s.Store.Get(r.Context(), &p, playbookSelect+` WHERE p.slug = ?`, slug)
	if db.IsNotFound(err) {
		WriteError(w, http.StatusNotFound, "Playbook not found")
		return
	}
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	id := identityPtr(r)
	isAdmin := id != nil && id.IsAdmin()
	if !isAdmin && (p.Status != models.StatusPublished || (p.MembersOnly && !services.CanViewMembersContent(id))) {
		WriteError(w, http.StatusNotFound, "Playbook not found")
		return
	}
	if _, err := s.Store.Exec(r.Context(), `UPDATE playbooks SET views = views + 1 WHERE id = ?`, p.ID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	p.Views++
	WriteJSON(w, http.StatusOK, toPlaybookDTO(p, true))
}

func (s *Server) CreatePlaybook(w http.ResponseWriter, r *http.Request) {
	var req PlaybookUpsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	title := strings.TrimSpace(req.Title)
	slug, err := services.UniqueSlug(r.Context(), s.Store, "playbooks", title, 0)
	if err != nil {
		s.writeErr(w, r, err)
		return
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
INSERT INTO playbooks (title, slug, summary, steps, cover_url, category_id, author_id, members_only, status,
                       published_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		title, slug, strings.TrimSpace(req.Summary), services.EncodeSteps(req.Steps), trimmedPtr(req.CoverURL),
		req.CategoryID, s.actorID(r), boolOr(req.MembersOnly, true), status, publishedAt, now, now)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writePlaybook(w, r, http.StatusCreated, *res.InsertID)
}

func (s *Server) UpdatePlaybook(w http.ResponseWriter, r *http.Request) {
	playbookID, ok := pathID(w, r, "playbookId")
	if !ok {
		return
	}
	var req PlaybookUpsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var current models.Playbook
	if err := s.Store.Get(r.Context(), &current, playbookSelect+` WHERE p.id = ?`, playbookID); err != nil {
		s.writeErr(w, r, notFoundAs(err, "Playbook not found"))
		return
	}
	title := strings.TrimSpace(req.Title)
	slug := current.Slug
	if title != current.Title {
		var err error
		if slug, err = services.UniqueSlug(r.Context(), s.Store, "playbooks", title, playbookID); err != nil {
			s.writeErr(w, r, err)
			return
		}
	}
	status := req.Status
	if status == "" {
		status = current.Status
	}
	steps := current.Steps
	if req.Steps != nil {
		steps = services.EncodeSteps(req.Steps)
	}
	now := time.Now().UTC()
	publishedAt := current.PublishedAt
	if status == models.StatusPublished && publishedAt == nil {
		publishedAt = &now
	}
	if _, err := s.Store.Exec(r.Context(), `
UPDATE playbooks
SET title = ?, slug = ?, summary = ?, steps = ?, cover_url = ?, category_id = ?, members_only = ?, status = ?,
    published_at = ?, updated_at = ?
WHERE id = ?`,
		title, slug, strings.TrimSpace(req.Summary), steps, trimmedPtr(req.CoverURL), req.CategoryID,
		boolOr(req.MembersOnly, current.MembersOnly), status, publishedAt, now, playbookID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writePlaybook(w, r, http.StatusOK, playbookID)
}

func (s *Server) DeletePlaybook(w http.ResponseWriter, r *http.Request) {
	playbookID, ok := pathID(w, r, "playbookId")
	if !ok {
		return
	}
	res, err := s.Store.Exec(r.Context(), `DELETE FROM playbooks WHERE id = ?`, playbookID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if res.AffectedRows == 0 {
		WriteError(w, http.StatusNotFound, "Playbook not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writePlaybook(w http.ResponseWriter, r *http.Request, status int, id int64) {
	var p models.Playbook
	if err := s.Store.Get(r.Context(), &p, playbookSelect+` WHERE p.id = ?`, id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, status, toPlaybookDTO(p, true))
}
