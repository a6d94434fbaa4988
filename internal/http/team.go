package httpapi

import (
	"net/http"
	"strings"
	"time"

	"memberhub-backend-go/internal/models"
)

const teamColumns = `id, name, title, bio, photo_url, linkedin_url, sort_order, is_active, created_at, updated_at`

type TeamMemberUpsertRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Title       string  `json:"title" validate:"max=120"`
	Bio         *string `json:"bio" validate:"omitempty,max=4000"`
	PhotoURL    *string `json:"photoUrl" validate:"omitempty,max=2048"`
	LinkedInURL *string `json:"linkedinUrl" validate:"omitempty,max=2048"`
	SortOrder   *int    `json:"sortOrder"`
	IsActive    *bool   `json:"isActive"`
}

func (s *Server) ListTeam(w http.ResponseWriter, r *http.Request) {
	s.writeTeam(w, r, `WHERE is_active = 1`)
}

func (s *Server) AdminListTeam(w http.ResponseWriter, r *http.Request) {
	s.writeTeam(w, r, ``)
}

func (s *Server) writeTeam(w http.ResponseWriter, r *http.Request, where string) {
	rows := []models.TeamMember{}
	if err := s.Store.Select(r.Context(), &rows, `SELECT `+teamColumns+` FROM team_members `+where+` ORDER BY sort_order ASC, id ASC`); err != nil {
		s.writeErr(w, r, err)
		return
	}
	items := make([]TeamMemberDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toTeamMemberDTO(row))
	}
	WriteJSON(w, http.StatusOK, items)
}

func (s *Server) CreateTeamMember(w http.ResponseWriter, r *http.Request) {
	var req TeamMemberUpsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	now := time.Now().UTC()
	res, err := s.Store.Exec(r.Context(), `
INSERT INTO team_members (name, title, bio, photo_url, linkedin_url, sort_order, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(req.Name), strings.TrimSpace(req.Title), trimmedPtr(req.Bio), trimmedPtr(req.PhotoURL),
		trimmedPtr(req.LinkedInURL), intOr(req.SortOrder, 0), boolOr(req.IsActive, true), now, now)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeTeamMember(w, r, http.StatusCreated, *res.InsertID)
}

func (s *Server) UpdateTeamMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}
	var req TeamMemberUpsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var current models.TeamMember
	if err := s.Store.Get(r.Context(), &current, `SELECT `+teamColumns+` FROM team_members WHERE id = ?`, memberID); err != nil {
		s.writeErr(w, r, notFoundAs(err, "Team member not found"))
		return
	}
	if _, err := s.Store.Exec(r.Context(), `
UPDATE team_members
SET name = ?, title = ?, bio = ?, photo_url = ?, linkedin_url = ?, sort_order = ?, is_active = ?, updated_at = ?
WHERE id = ?`,
		strings.TrimSpace(req.Name), strings.TrimSpace(req.Title), trimmedPtr(req.Bio), trimmedPtr(req.PhotoURL),
		trimmedPtr(req.LinkedInURL), intOr(req.SortOrder, current.SortOrder), boolOr(req.IsActive, current.IsActive),
		time.Now().UTC(), memberID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeTeamMember(w, r, http.StatusOK, memberID)
}

func (s *Server) DeleteTeamMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}
	res, err := s.Store.Exec(r.Context(), `DELETE FROM team_members WHERE id = ?`, memberID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if res.AffectedRows == 0 {
		WriteError(w, http.StatusNotFound, "Team member not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeTeamMember(w http.ResponseWriter, r *http.Request, status int, id int64) {
	var member models.TeamMember
	if err := s.Store.Get(r.Context(), &member, `SELECT `+teamColumns+` FROM team_members WHERE id = ?`, id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, status, toTeamMemberDTO(member))
}
