package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"memberhub-backend-go/internal/services"
)

type SearchResultItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Href  string `json:"href"`
	Type  string `json:"type"`
}

type SearchResponse struct {
	Items []SearchResultItem `json:"items"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Storage  string `json:"storage,omitempty"`
}

// Search matches titles and summaries across published content. Rows the
// caller cannot open are left out.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	term := services.CleanSearchTerm(r.URL.Query().Get("q"))
	if term == "" {
		WriteJSON(w, http.StatusOK, SearchResponse{Items: []SearchResultItem{}})
		return
	}
	membersOnly := 0
	if services.CanViewMembersContent(identityPtr(r)) {
		membersOnly = 1
	}
	like := "%" + term + "%"
	rows := []struct {
		ID    int64  `db:"id"`
		Title string `db:"title"`
		Slug  string `db:"slug"`
		Type  string `db:"kind"`
	}{}
	if err := s.Store.Select(r.Context(), &rows, `
SELECT id, title, slug, kind FROM (
    SELECT id, title, slug, 'resource' AS kind, published_at AS ts FROM resources
    WHERE status = 'published' AND members_only <= ? AND (title LIKE ? OR summary LIKE ? OR tags LIKE ?)
    UNION ALL
    SELECT id, title, slug, 'playbook' AS kind, published_at AS ts FROM playbooks
    WHERE status = 'published' AND members_only <= ? AND (title LIKE ? OR summary LIKE ?)
    UNION ALL
    SELECT id, title, '' AS slug, 'event' AS kind, starts_at AS ts FROM events
    WHERE is_published = 1 AND members_only <= ? AND (title LIKE ? OR description LIKE ?)
    UNION ALL
    SELECT id, title, '' AS slug, 'question' AS kind, created_at AS ts FROM questions
    WHERE is_public = 1 AND (title LIKE ? OR body LIKE ?)
)
ORDER BY ts DESC
LIMIT 20`,
		membersOnly, like, like, like,
		membersOnly, like, like,
		membersOnly, like, like,
		like, like); err != nil {
		s.writeErr(w, r, err)
		return
	}
	items := make([]SearchResultItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, SearchResultItem{
			ID:    row.ID,
			Title: row.Title,
			Slug:  row.Slug,
			Href:  searchHref(row.Type, row.ID, row.Slug),
			Type:  row.Type,
		})
	}
	WriteJSON(w, http.StatusOK, SearchResponse{Items: items})
}

func searchHref(kind string, id int64, slug string) string {
	switch kind {
	case "resource":
		return "/resources/" + slug
	case "playbook":
		return "/playbooks/" + slug
	case "event":
		return "/events/" + strconv.FormatInt(id, 10)
	default:
		return "/questions/" + strconv.FormatInt(id, 10)
	}
}

// Health reports 503 when the database cannot be reached.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	resp := HealthResponse{Status: "ok", Database: "ok"}
	if s.Storage != nil {
		resp.Storage = s.Storage.Name()
	}
	if err := s.Store.Ping(ctx); err != nil {
		s.Logger.Warn("health check failed", "err", err)
		resp.Status = "degraded"
		resp.Database = "unavailable"
		WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}
