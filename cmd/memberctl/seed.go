package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/models"
	"memberhub-backend-go/internal/services"
)

type seedFile struct {
	Users      []seedUser     `yaml:"users"`
	Categories []seedCategory `yaml:"categories"`
}

type seedUser struct {
	Email    string                `yaml:"email"`
	Password string                `yaml:"password"`
	Name     string                `yaml:"name"`
	Role     models.Role           `yaml:"role"`
	Approval models.ApprovalStatus `yaml:"approval"`
}

type seedCategory struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	SortOrder   int    `yaml:"sortOrder"`
}

type seedSummary struct {
	UsersCreated      int
	UsersSkipped      int
	CategoriesCreated int
}

func loadSeedFile(path string) (seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return seedFile{}, err
	}
	return parseSeed(data)
}

// parseSeed fills defaults and rejects unknown roles and statuses before
// anything is written.
func parseSeed(data []byte) (seedFile, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return seedFile{}, fmt.Errorf("seed: %w", err)
	}
	for i := range seed.Users {
		u := &seed.Users[i]
		u.Email = services.NormalizeEmail(u.Email)
		if u.Email == "" {
			return seedFile{}, fmt.Errorf("seed: user %d has no email", i+1)
		}
		if u.Role == "" {
			u.Role = models.RoleUser
		}
		if !u.Role.Valid() {
			return seedFile{}, fmt.Errorf("seed: user %s has unknown role %q", u.Email, u.Role)
		}
		if u.Approval == "" {
			u.Approval = models.ApprovalApproved
		}
		if !u.Approval.Valid() {
			return seedFile{}, fmt.Errorf("seed: user %s has unknown approval %q", u.Email, u.Approval)
		}
	}
	for i, c := range seed.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return seedFile{}, fmt.Errorf("seed: category %d has no name", i+1)
		}
	}
	return seed, nil
}

// applySeed is idempotent: existing users keep their password and existing
// categories are left alone.
func applySeed(ctx context.Context, store *db.Store, tokens services.TokenService, seed seedFile) (seedSummary, error) {
	var summary seedSummary
	for _, u := range seed.Users {
		_, created, err := ensureUser(ctx, store, tokens, u)
		if err != nil {
			return summary, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		if created {
			summary.UsersCreated++
		} else {
			summary.UsersSkipped++
		}
	}
	for _, c := range seed.Categories {
		name := strings.TrimSpace(c.Name)
		exists, err := store.Exists(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE name = ?)`, name)
		if err != nil {
			return summary, err
		}
		if exists {
			continue
		}
		slug, err := services.UniqueSlug(ctx, store, "categories", name, 0)
		if err != nil {
			return summary, err
		}
		description := strings.TrimSpace(c.Description)
		var descPtr *string
		if description != "" {
			descPtr = &description
		}
		if _, err := store.Exec(ctx, `INSERT INTO categories (name, slug, description, sort_order) VALUES (?, ?, ?, ?)`,
			name, slug, descPtr, c.SortOrder); err != nil {
			return summary, fmt.Errorf("seed category %s: %w", name, err)
		}
		summary.CategoriesCreated++
	}
	return summary, nil
}

// ensureUser registers the account when it is missing or only a guest, then
// applies role and approval either way.
func ensureUser(ctx context.Context, store *db.Store, tokens services.TokenService, u seedUser) (models.User, bool, error) {
	existing, err := services.GetUserByEmail(ctx, store, u.Email)
	created := false
	switch {
	case err == nil && !existing.IsGuest():
	case err == nil || isMissingUser(err):
		if len(u.Password) < 8 {
			return models.User{}, false, fmt.Errorf("password must be at least 8 characters")
		}
		if existing, err = services.RegisterUser(ctx, store, tokens, u.Email, u.Password, u.Name); err != nil {
			return models.User{}, false, err
		}
		created = true
	default:
		return models.User{}, false, err
	}
	if _, err := services.SetUserRole(ctx, store, existing.ID, u.Role); err != nil {
		return models.User{}, false, err
	}
	user, err := services.SetApprovalStatus(ctx, store, existing.ID, u.Approval)
	return user, created, err
}

func isMissingUser(err error) bool {
	svcErr, ok := services.AsServiceError(err)
	return ok && svcErr.Status == 404
}
