package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberhub-backend-go/internal/db"
)

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("Should create every table", func(t *testing.T) {
		store := db.New(db.Config{Path: filepath.Join(t.TempDir(), "apply.db")})
		t.Cleanup(func() { _ = store.Shutdown() })

		version, err := Apply(ctx, store)
		require.NoError(t, err)
		assert.EqualValues(t, 2, version)

		var tables []string
		require.NoError(t, store.Select(ctx, &tables,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name <> 'goose_db_version'`))
		assert.ElementsMatch(t, []string{
			"users", "categories", "resources", "playbooks", "team_members",
			"events", "questions", "answers", "uploads", "metric_samples",
		}, tables)
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		store := db.New(db.Config{Path: db.MemoryPath})
		t.Cleanup(func() { _ = store.Shutdown() })

		_, err := Apply(ctx, store)
		require.NoError(t, err)
		version, err := Apply(ctx, store)
		require.NoError(t, err)
		assert.EqualValues(t, 2, version)

		var count int
		require.NoError(t, store.Get(ctx, &count, `SELECT COUNT(*) FROM categories`))
		assert.Equal(t, 4, count)
	})

	t.Run("Should reject a guest with a password hash", func(t *testing.T) {
		store := db.New(db.Config{Path: db.MemoryPath})
		t.Cleanup(func() { _ = store.Shutdown() })
		_, err := Apply(ctx, store)
		require.NoError(t, err)

		_, err = store.Exec(ctx,
			`INSERT INTO users (email, password_hash, account_kind) VALUES ('g@example.org', 'x', 'guest')`)
		require.Error(t, err)
		_, err = store.Exec(ctx,
			`INSERT INTO users (email, password_hash, account_kind) VALUES ('g@example.org', NULL, 'guest')`)
		require.NoError(t, err)
	})

	t.Run("Should roll everything back", func(t *testing.T) {
		store := db.New(db.Config{Path: db.MemoryPath})
		t.Cleanup(func() { _ = store.Shutdown() })
		_, err := Apply(ctx, store)
		require.NoError(t, err)

		require.NoError(t, Reset(ctx, store))
		exists, err := store.Exists(ctx,
			`SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'users')`)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
