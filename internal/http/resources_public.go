package httpapi

import (
	"net/http"
	"strings"

	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/models"
	"memberhub-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

const resourceSelect = `
SELECT r.id, r.title, r.slug, r.type, r.summary, r.content, r.url, r.thumbnail_url,
       r.category_id, c.name AS category_name, r.author_id, u.name AS author_name,
       r.tags, r.members_only, r.status, r.views, r.published_at, r.created_at, r.updated_at
FROM resources r
LEFT JOIN categories c ON c.id = r.category_id
LEFT JOIN users u ON u.id = r.author_id`

// resourceFilter collects WHERE clauses shared by the public and admin lists.
type resourceFilter struct {
	where []string
	args  []any
}

func (f *resourceFilter) add(clause string, args ...any) {
	f.where = append(f.where, clause)
	f.args = append(f.args, args...)
}

func (f *resourceFilter) clause() string {
	if len(f.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.where, " AND ")
}

func contentFilter(r *http.Request, alias string) *resourceFilter {
	f := &resourceFilter{}
	q := r.URL.Query()
	if category := strings.TrimSpace(q.Get("category")); category != "" {
		f.add(`c.slug = ?`, category)
	}
	if term := services.CleanSearchTerm(q.Get("q")); term != "" {
		like := "%" + term + "%"
		f.add(`(`+alias+`.title LIKE ? OR `+alias+`.summary LIKE ?)`, like, like)
	}
	return f
}

// ListResources hides drafts and, for callers without member access,
// members-only rows.
func (s *Server) ListResources(w http.ResponseWriter, r *http.Request) {
	f := contentFilter(r, "r")
	f.add(`r.status = ?`, models.StatusPublished)
	if !services.CanViewMembersContent(identityPtr(r)) {
		f.add(`r.members_only = 0`)
	}
	if kind := models.ResourceType(strings.TrimSpace(r.URL.Query().Get("type"))); kind != "" {
		if !kind.Valid() {
			WriteError(w, http.StatusBadRequest, "Invalid resource type")
			return
		}
		f.add(`r.type = ?`, kind)
	}
	s.writeResourceList(w, r, f, `r.published_at DESC, r.id DESC`)
}

func (s *Server) writeResourceList(w http.ResponseWriter, r *http.Request, f *resourceFilter, order string) {
	page, size := paging(r, 12, 50)
	var total int
	if err := s.Store.Get(r.Context(), &total, `
SELECT COUNT(*) FROM resources r LEFT JOIN categories c ON c.id = r.category_id`+f.clause(), f.args...); err != nil {
		s.writeErr(w, r, err)
		return
	}
	rows := []models.Resource{}
	args := append(f.args, size, (page-1)*size)
	if err := s.Store.Select(r.Context(), &rows, resourceSelect+f.clause()+` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...); err != nil {
		s.writeErr(w, r, err)
		return
	}
	items := make([]ResourceDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toResourceDTO(row, false))
	}
	WriteJSON(w, http.StatusOK, ListResponse[ResourceDTO]{Items: items, Total: total, Page: page, Size: size})
}

// ResourceDetail answers 404 for drafts and for members-only rows the
// caller cannot see, so hidden content is indistinguishable from missing.
func (s *Server) ResourceDetail(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	var res models.Resource
	err := s.Store.Get(r.Context(), &res, resourceSelect+` WHERE r.slug = ?`, slug)
	if db.IsNotFound(err) {
		WriteError(w, http.StatusNotFound, "Resource not found")
		return
	}
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	id := identityPtr(r)
	isAdmin := id != nil && id.IsAdmin()
	if !isAdmin && (res.Status != models.StatusPublished || (res.MembersOnly && !services.CanViewMembersContent(id))) {
		WriteError(w, http.StatusNotFound, "Resource not found")
		return
	}
	if _, err := s.Store.Exec(r.Context(), `UPDATE resources SET views = views + 1 WHERE id = ?`, res.ID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	res.Views++
	WriteJSON(w, http.StatusOK, toResourceDTO(res, true))
}
