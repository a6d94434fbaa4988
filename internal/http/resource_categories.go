package httpapi

import (
	"net/http"
	"strings"

	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/models"
	"memberhub-backend-go/internal/services"
)

type CategoryUpsertRequest struct {
	Name        string  `json:"name" validate:"required,max=80"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	SortOrder   *int    `json:"sortOrder"`
}

const categoryColumns = `id, name, slug, description, sort_order, created_at`

func (s *Server) ListCategories(w http.ResponseWriter, r *http.Request) {
	items := []models.Category{}
	if err := s.Store.Select(r.Context(), &items, `SELECT `+categoryColumns+` FROM categories ORDER BY sort_order ASC, name ASC`); err != nil {
		s.writeErr(w, r, err)
		return
	}
	dtos := make([]CategoryDTO, 0, len(items))
	for _, c := range items {
		dtos = append(dtos, toCategoryDTO(c))
	}
	WriteJSON(w, http.StatusOK, dtos)
}

func (s *Server) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryUpsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	slug, err := services.UniqueSlug(r.Context(), s.Store, "categories", name, 0)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	res, err := s.Store.Exec(r.Context(), `
INSERT INTO categories (name, slug, description, sort_order)
VALUES (?, ?, ?, ?)`, name, slug, trimmedPtr(req.Description), intOr(req.SortOrder, 0))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeCategory(w, r, http.StatusCreated, *res.InsertID)
}

func (s *Server) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "categoryId")
	if !ok {
		return
	}
	var req CategoryUpsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var current models.Category
	if err := s.Store.Get(r.Context(), &current, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, categoryID); err != nil {
		s.writeErr(w, r, notFoundAs(err, "Category not found"))
		return
	}
	name := strings.TrimSpace(req.Name)
	slug := current.Slug
	if name != current.Name {
		var err error
		if slug, err = services.UniqueSlug(r.Context(), s.Store, "categories", name, categoryID); err != nil {
			s.writeErr(w, r, err)
			return
		}
	}
	description := current.Description
	if req.Description != nil {
		description = trimmedPtr(req.Description)
	}
	if _, err := s.Store.Exec(r.Context(), `
UPDATE categories SET name = ?, slug = ?, description = ?, sort_order = ? WHERE id = ?`,
		name, slug, description, intOr(req.SortOrder, current.SortOrder), categoryID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeCategory(w, r, http.StatusOK, categoryID)
}

// DeleteCategory leaves content uncategorised rather than removing it.
func (s *Server) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "categoryId")
	if !ok {
		return
	}
	res, err := s.Store.Exec(r.Context(), `DELETE FROM categories WHERE id = ?`, categoryID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if res.AffectedRows == 0 {
		WriteError(w, http.StatusNotFound, "Category not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeCategory(w http.ResponseWriter, r *http.Request, status int, id int64) {
	var category models.Category
	if err := s.Store.Get(r.Context(), &category, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, status, toCategoryDTO(category))
}

func intOr(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

// notFoundAs replaces a missing-row error with a named 404.
func notFoundAs(err error, message string) error {
	if db.IsNotFound(err) {
		return services.ErrNotFound(message)
	}
	return err
}
