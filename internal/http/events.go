package httpapi

import (
	"net/http"
	"strings"
	"time"

	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/models"
	"memberhub-backend-go/internal/services"
)

const eventColumns = `id, title, description, location, url, cover_url, starts_at, ends_at, members_only,
       is_published, created_by, created_at, updated_at`

type EventUpsertRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=10000"`
	Location    *string `json:"location" validate:"omitempty,max=300"`
	URL         *string `json:"url" validate:"omitempty,max=2048"`
	CoverURL    *string `json:"coverUrl" validate:"omitempty,max=2048"`
	StartsAt    string  `json:"startsAt" validate:"required"`
	EndsAt      *string `json:"endsAt"`
	MembersOnly *bool   `json:"membersOnly"`
	IsPublished *bool   `json:"isPublished"`
}

// schedule parses and checks the event window.
func (req EventUpsertRequest) schedule() (time.Time, *time.Time, error) {
	starts, err := parseTimestamp(req.StartsAt)
	if err != nil {
		return time.Time{}, nil, services.ErrBadRequest("startsAt must be an ISO 8601 timestamp")
	}
	if req.EndsAt == nil || strings.TrimSpace(*req.EndsAt) == "" {
		return starts, nil, nil
	}
	ends, err := parseTimestamp(*req.EndsAt)
	if err != nil {
		return time.Time{}, nil, services.ErrBadRequest("endsAt must be an ISO 8601 timestamp")
	}
	if ends.Before(starts) {
		return time.Time{}, nil, services.ErrBadRequest("endsAt must not be before startsAt")
	}
	return starts, &ends, nil
}

func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	where := []string{`is_published = 1`}
	args := []any{}
	if !services.CanViewMembersContent(identityPtr(r)) {
		where = append(where, `members_only = 0`)
	}
	order := `starts_at DESC`
	if r.URL.Query().Get("upcoming") == "true" {
		where = append(where, `COALESCE(ends_at, starts_at) >= ?`)
		args = append(args, time.Now().UTC().Truncate(time.Second))
		order = `starts_at ASC`
	}
	s.writeEvents(w, r, ` WHERE `+strings.Join(where, " AND ")+` ORDER BY `+order, args...)
}

func (s *Server) AdminListEvents(w http.ResponseWriter, r *http.Request) {
	s.writeEvents(w, r, ` ORDER BY starts_at DESC`)
}

func (s *Server) writeEvents(w http.ResponseWriter, r *http.Request, tail string, args ...any) {
	rows := []models.Event{}
	if err := s.Store.Select(r.Context(), &rows, `SELECT `+eventColumns+` FROM events`+tail, args...); err != nil {
		s.writeErr(w, r, err)
		return
	}
	items := make([]EventDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toEventDTO(row))
	}
	WriteJSON(w, http.StatusOK, items)
}

func (s *Server) EventDetail(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventId")
	if !ok {
		return
	}
	var event models.Event
	err := s.Store.Get(r.Context(), &event, `SELECT `+eventColumns+` FROM events WHERE id = ?`, eventID)
	if db.IsNotFound(err) {
		WriteError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	id := identityPtr(r)
	isAdmin := id != nil && id.IsAdmin()
	if !isAdmin && (!event.IsPublished || (event.MembersOnly && !services.CanViewMembersContent(id))) {
		WriteError(w, http.StatusNotFound, "Event not found")
		return
	}
	WriteJSON(w, http.StatusOK, toEventDTO(event))
}

func (s *Server) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventUpsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	starts, ends, err := req.schedule()
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	now := time.Now().UTC()
	res, err := s.Store.Exec(r.Context(), `
INSERT INTO events (title, description, location, url, cover_url, starts_at, ends_at, members_only, is_published,
                    created_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(req.Title), strings.TrimSpace(req.Description), trimmedPtr(req.Location), trimmedPtr(req.URL),
		trimmedPtr(req.CoverURL), starts, ends, boolOr(req.MembersOnly, false), boolOr(req.IsPublished, false),
		s.actorID(r), now, now)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeEvent(w, r, http.StatusCreated, *res.InsertID)
}

func (s *Server) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventId")
	if !ok {
		return
	}
	var req EventUpsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	starts, ends, err := req.schedule()
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var current models.Event
	if err := s.Store.Get(r.Context(), &current, `SELECT `+eventColumns+` FROM events WHERE id = ?`, eventID); err != nil {
		s.writeErr(w, r, notFoundAs(err, "Event not found"))
		return
	}
	if _, err := s.Store.Exec(r.Context(), `
UPDATE events
SET title = ?, description = ?, location = ?, url = ?, cover_url = ?, starts_at = ?, ends_at = ?,
    members_only = ?, is_published = ?, updated_at = ?
WHERE id = ?`,
		strings.TrimSpace(req.Title), strings.TrimSpace(req.Description), trimmedPtr(req.Location), trimmedPtr(req.URL),
		trimmedPtr(req.CoverURL), starts, ends, boolOr(req.MembersOnly, current.MembersOnly),
		boolOr(req.IsPublished, current.IsPublished), time.Now().UTC(), eventID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeEvent(w, r, http.StatusOK, eventID)
}

func (s *Server) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventId")
	if !ok {
		return
	}
	res, err := s.Store.Exec(r.Context(), `DELETE FROM events WHERE id = ?`, eventID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if res.AffectedRows == 0 {
		WriteError(w, http.StatusNotFound, "Event not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeEvent(w http.ResponseWriter, r *http.Request, status int, id int64) {
	var event models.Event
	if err := s.Store.Get(r.Context(), &event, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, status, toEventDTO(event))
}
