package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberhub-backend-go/internal/models"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", Slugify("  Hello, World!  "))
	assert.Equal(t, "go-1-24-release", Slugify("Go 1.24 release"))
	assert.Len(t, Slugify("!!!"), 8)
}

func TestUniqueSlug(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	t.Run("Should suffix taken slugs", func(t *testing.T) {
		slug, err := UniqueSlug(ctx, store, "resources", "Getting Started", 0)
		require.NoError(t, err)
		assert.Equal(t, "getting-started", slug)

		res, err := store.Exec(ctx, `INSERT INTO resources (title, slug) VALUES ('Getting Started', ?)`, slug)
		require.NoError(t, err)

		next, err := UniqueSlug(ctx, store, "resources", "Getting started", 0)
		require.NoError(t, err)
		assert.Equal(t, "getting-started-2", next)

		own, err := UniqueSlug(ctx, store, "resources", "Getting Started", *res.InsertID)
		require.NoError(t, err)
		assert.Equal(t, "getting-started", own)
	})

	t.Run("Should refuse unknown tables", func(t *testing.T) {
		_, err := UniqueSlug(ctx, store, "users; DROP TABLE users", "x", 0)
		requireStatus(t, err, 400)
	})
}

func TestTagsAndSteps(t *testing.T) {
	t.Run("Should dedupe and cap tags", func(t *testing.T) {
		assert.Equal(t, []string{"go", "sql"}, CleanTags([]string{" Go", "go", "", "SQL"}))
		many := make([]string, 0, 20)
		for i := 0; i < 20; i++ {
			many = append(many, string(rune('a'+i)))
		}
		assert.Len(t, CleanTags(many), maxTags)
		assert.Equal(t, []string{"x"}, DecodeTags(EncodeTags([]string{"X", "x"})))
		assert.Equal(t, []string{}, DecodeTags("not json"))
	})

	t.Run("Should drop untitled steps", func(t *testing.T) {
		blank := "  "
		steps := CleanSteps([]Step{{Title: " Plan ", Description: " write it down ", URL: &blank}, {Title: " "}})
		require.Len(t, steps, 1)
		assert.Equal(t, "Plan", steps[0].Title)
		assert.Equal(t, "write it down", steps[0].Description)
		assert.Nil(t, steps[0].URL)
		assert.Equal(t, steps, DecodeSteps(EncodeSteps(steps)))
	})

	t.Run("Should collapse whitespace in search terms", func(t *testing.T) {
		assert.Equal(t, "a b c", CleanSearchTerm("  a \t b\n\nc "))
	})
}

func TestCanViewMembersContent(t *testing.T) {
	cases := []struct {
		name string
		id   *Identity
		want bool
	}{
		{"anonymous", nil, false},
		{"user", &Identity{Role: models.RoleUser, ApprovalStatus: models.ApprovalApproved}, false},
		{"pending member", &Identity{Role: models.RoleMember, ApprovalStatus: models.ApprovalPending}, false},
		{"approved member", &Identity{Role: models.RoleMember, ApprovalStatus: models.ApprovalApproved}, true},
		{"approved company", &Identity{Role: models.RoleCompany, ApprovalStatus: models.ApprovalApproved}, true},
		{"rejected university", &Identity{Role: models.RoleUniversity, ApprovalStatus: models.ApprovalRejected}, false},
		{"pending admin", &Identity{Role: models.RoleAdmin, ApprovalStatus: models.ApprovalPending}, true},
		{"executive", &Identity{Role: models.RoleExecutive}, true},
	}
	for _, tc := range cases {
		t.Run("Should decide for "+tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanViewMembersContent(tc.id))
		})
	}
}
