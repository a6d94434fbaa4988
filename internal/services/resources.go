package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/models"
)

const maxTags = 12

var slugTables = map[string]bool{
	"resources":  true,
	"playbooks":  true,
	"categories": true,
}

var whitespace = regexp.MustCompile(`\s+`)

func Slugify(value string) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	var b strings.Builder
	lastDash := false
	for _, r := range lower {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteRune('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return uuid.NewString()[:8]
	}
	return slug
}

// UniqueSlug appends -2, -3, ... until the slug is free in table. excludeID
// lets an update keep its own slug.
func UniqueSlug(ctx context.Context, store *db.Store, table, title string, excludeID int64) (string, error) {
	if !slugTables[table] {
		return "", ErrBadRequest("unknown slug table " + table)
	}
	base := Slugify(title)
	candidate := base
	for counter := 2; ; counter++ {
		exists, err := store.Exists(ctx,
			`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE slug = ? AND id <> ?)`, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(counter)
	}
}

func CleanTags(tags []string) []string {
	seen := make(map[string]bool)
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		value := strings.ToLower(strings.TrimSpace(tag))
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		cleaned = append(cleaned, value)
		if len(cleaned) >= maxTags {
			break
		}
	}
	return cleaned
}

func EncodeTags(tags []string) string {
	raw, _ := json.Marshal(CleanTags(tags))
	return string(raw)
}

func DecodeTags(raw string) []string {
	tags := []string{}
	_ = json.Unmarshal([]byte(raw), &tags)
	return tags
}

// Step is one entry of a playbook.
type Step struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ResourceID  *int64  `json:"resourceId,omitempty"`
	URL         *string `json:"url,omitempty"`
}

// CleanSteps drops untitled steps and trims text fields.
func CleanSteps(steps []Step) []Step {
	cleaned := make([]Step, 0, len(steps))
	for _, step := range steps {
		step.Title = strings.TrimSpace(step.Title)
		if step.Title == "" {
			continue
		}
		step.Description = strings.TrimSpace(step.Description)
		if step.URL != nil {
			step.URL = nullIfBlank(*step.URL)
		}
		cleaned = append(cleaned, step)
	}
	return cleaned
}

func EncodeSteps(steps []Step) string {
	raw, _ := json.Marshal(CleanSteps(steps))
	return string(raw)
}

func DecodeSteps(raw string) []Step {
	steps := []Step{}
	_ = json.Unmarshal([]byte(raw), &steps)
	return steps
}

func CleanSearchTerm(term string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(term), " ")
}

// CanViewMembersContent decides visibility of members-only rows from the
// token snapshot. Admins always see them; member, university and company
// roles only once approved.
func CanViewMembersContent(id *Identity) bool {
	if id == nil {
		return false
	}
	switch id.Role {
	case models.RoleAdmin, models.RoleExecutive:
		return true
	case models.RoleMember, models.RoleUniversity, models.RoleCompany:
		return id.ApprovalStatus == models.ApprovalApproved
	}
	return false
}
