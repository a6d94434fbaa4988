package db

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingStore(t *testing.T, cfg Config, failFirst int) (*Store, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	store := NewWithOpener(cfg, func(ctx context.Context, cfg Config) (*sqlx.DB, error) {
		n := calls.Add(1)
		if int(n) <= failFirst {
			return nil, errors.New("disk on fire")
		}
		return OpenSQLite(ctx, cfg)
	})
	t.Cleanup(func() { _ = store.Shutdown() })
	return store, &calls
}

func seedWidgets(t *testing.T, store *Store) {
	t.Helper()
	_, _, err := store.Execute(context.Background(),
		`CREATE TABLE widgets (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE, size INTEGER NOT NULL)`)
	require.NoError(t, err)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		query string
		want  Kind
	}{
		{"SELECT 1", KindRead},
		{"  select * from users", KindRead},
		{"-- leading comment\nSELECT 1", KindRead},
		{"/* block */ with x as (select 1) select * from x", KindRead},
		{"WITH x(v) AS (SELECT 'a') INSERT INTO t (v) SELECT v FROM x", KindWrite},
		{"with recursive n(i) as (select 1 union all select i+1 from n where i < 3) delete from t where id in n", KindWrite},
		{"WITH x AS (SELECT 'insert') SELECT * FROM x", KindRead},
		{"PRAGMA foreign_keys", KindRead},
		{"(SELECT 1)", KindRead},
		{"SHOW TABLES", KindIntrospection},
		{"describe users", KindIntrospection},
		{"DESC users", KindIntrospection},
		{"INSERT INTO users (name) VALUES (?)", KindWrite},
		{"UPDATE users SET name = ?", KindWrite},
		{"delete from users", KindWrite},
		{"CREATE TABLE t (id INTEGER)", KindWrite},
		{"", KindWrite},
	}
	for _, tc := range cases {
		t.Run("Should classify "+tc.query, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.query))
		})
	}
}

func TestStoreExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return the generated id and read the row back", func(t *testing.T) {
		store, _ := countingStore(t, Config{Path: MemoryPath}, 0)
		seedWidgets(t, store)

		res, fields, err := store.Execute(ctx, "INSERT INTO widgets (name, size) VALUES (?, ?)", "gear", 7)
		require.NoError(t, err)
		assert.Empty(t, fields)
		require.NotNil(t, res.InsertID)
		assert.EqualValues(t, 1, res.AffectedRows)
		assert.True(t, res.IsWrite())

		got, _, err := store.Execute(ctx, "SELECT id, name, size FROM widgets WHERE id = ?", *res.InsertID)
		require.NoError(t, err)
		require.Len(t, got.Rows, 1)
		assert.Equal(t, *res.InsertID, got.Rows[0]["id"])
		assert.Equal(t, "gear", got.Rows[0]["name"])
		assert.EqualValues(t, 7, got.Rows[0]["size"])
		assert.False(t, got.IsWrite())
	})

	t.Run("Should return empty rows for a missing id and a zero summary for a no-op delete", func(t *testing.T) {
		store, _ := countingStore(t, Config{Path: MemoryPath}, 0)
		seedWidgets(t, store)

		got, _, err := store.Execute(ctx, "SELECT * FROM widgets WHERE id = ?", 999999)
		require.NoError(t, err)
		assert.NotNil(t, got.Rows)
		assert.Empty(t, got.Rows)

		res, _, err := store.Execute(ctx, "DELETE FROM widgets WHERE id = ?", 999999)
		require.NoError(t, err)
		assert.Nil(t, res.InsertID)
		assert.EqualValues(t, 0, res.AffectedRows)
	})

	t.Run("Should summarize an insert fed by a common table expression", func(t *testing.T) {
		store, _ := countingStore(t, Config{Path: MemoryPath}, 0)
		seedWidgets(t, store)

		res, _, err := store.Execute(ctx, "WITH x(n, s) AS (SELECT 'bolt', 3) INSERT INTO widgets (name, size) SELECT n, s FROM x")
		require.NoError(t, err)
		assert.True(t, res.IsWrite())
		require.NotNil(t, res.InsertID)
		assert.EqualValues(t, 1, *res.InsertID)
		assert.EqualValues(t, 1, res.AffectedRows)
	})

	t.Run("Should leave the insert id unset for updates", func(t *testing.T) {
		store, _ := countingStore(t, Config{Path: MemoryPath}, 0)
		seedWidgets(t, store)
		_, err := store.Exec(ctx, "INSERT INTO widgets (name, size) VALUES ('a', 1), ('b', 2)")
		require.NoError(t, err)

		res, _, err := store.Execute(ctx, "UPDATE widgets SET size = size + 1")
		require.NoError(t, err)
		assert.Nil(t, res.InsertID)
		assert.EqualValues(t, 2, res.AffectedRows)
	})

	t.Run("Should short-circuit introspection without opening the database", func(t *testing.T) {
		store, calls := countingStore(t, Config{Path: MemoryPath}, 0)
		res, fields, err := store.Execute(ctx, "SHOW TABLES")
		require.NoError(t, err)
		assert.Empty(t, res.Rows)
		assert.Empty(t, fields)
		assert.EqualValues(t, 0, calls.Load())
	})

	t.Run("Should surface constraint violations", func(t *testing.T) {
		store, _ := countingStore(t, Config{Path: MemoryPath}, 0)
		seedWidgets(t, store)
		_, err := store.Exec(ctx, "INSERT INTO widgets (name, size) VALUES ('dup', 1)")
		require.NoError(t, err)

		_, _, err = store.Execute(ctx, "INSERT INTO widgets (name, size) VALUES ('dup', 2)")
		require.Error(t, err)
		assert.True(t, IsUniqueViolation(err))
		assert.False(t, IsForeignKeyViolation(err))
	})

	t.Run("Should surface syntax errors", func(t *testing.T) {
		store, _ := countingStore(t, Config{Path: MemoryPath}, 0)
		_, _, err := store.Execute(ctx, "SELEC nonsense")
		require.Error(t, err)
	})
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("Should open once and reuse the handle", func(t *testing.T) {
		store, calls := countingStore(t, Config{Path: MemoryPath}, 0)
		for i := 0; i < 5; i++ {
			_, err := store.Query(ctx, "SELECT 1")
			require.NoError(t, err)
		}
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("Should retry the open after a failure", func(t *testing.T) {
		store, calls := countingStore(t, Config{Path: MemoryPath}, 1)
		_, err := store.Query(ctx, "SELECT 1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrOpen)

		_, err = store.Query(ctx, "SELECT 1")
		require.NoError(t, err)
		assert.EqualValues(t, 2, calls.Load())
	})

	t.Run("Should reopen after shutdown", func(t *testing.T) {
		store, calls := countingStore(t, Config{Path: MemoryPath}, 0)
		require.NoError(t, store.Ping(ctx))
		require.NoError(t, store.Shutdown())
		require.NoError(t, store.Shutdown())
		require.NoError(t, store.Ping(ctx))
		assert.EqualValues(t, 2, calls.Load())
	})

	t.Run("Should enable foreign keys and WAL on a file database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "app.db")
		store, _ := countingStore(t, Config{Path: path}, 0)

		var fk int
		require.NoError(t, store.Get(ctx, &fk, "PRAGMA foreign_keys"))
		assert.Equal(t, 1, fk)

		var mode string
		require.NoError(t, store.Get(ctx, &mode, "PRAGMA journal_mode"))
		assert.Equal(t, "wal", mode)
	})

	t.Run("Should enforce foreign keys", func(t *testing.T) {
		store, _ := countingStore(t, Config{Path: MemoryPath}, 0)
		_, err := store.Exec(ctx, "CREATE TABLE parents (id INTEGER PRIMARY KEY)")
		require.NoError(t, err)
		_, err = store.Exec(ctx, "CREATE TABLE children (id INTEGER PRIMARY KEY, parent_id INTEGER NOT NULL REFERENCES parents(id))")
		require.NoError(t, err)

		_, err = store.Exec(ctx, "INSERT INTO children (parent_id) VALUES (42)")
		require.Error(t, err)
		assert.True(t, IsForeignKeyViolation(err))
	})
}

func TestConn(t *testing.T) {
	t.Run("Should share the store handle and release as a no-op", func(t *testing.T) {
		ctx := context.Background()
		store, calls := countingStore(t, Config{Path: MemoryPath}, 0)
		seedWidgets(t, store)

		conn, err := store.Conn(ctx)
		require.NoError(t, err)
		res, _, err := conn.Execute(ctx, "INSERT INTO widgets (name, size) VALUES ('via-conn', 3)")
		require.NoError(t, err)
		require.NotNil(t, res.InsertID)
		conn.Release()
		conn.Release()

		rows, err := store.Query(ctx, "SELECT name FROM widgets")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "via-conn", rows[0]["name"])
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("Should report an open failure", func(t *testing.T) {
		store, _ := countingStore(t, Config{Path: MemoryPath}, 1)
		_, err := store.Conn(context.Background())
		assert.ErrorIs(t, err, ErrOpen)
	})
}
