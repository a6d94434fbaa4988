package migrations

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"memberhub-backend-go/internal/db"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

func withGoose(fn func() error) error {
	gooseMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		gooseMu.Unlock()
	}()
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("migrations: set dialect: %w", err)
	}
	return fn()
}

// Apply runs every pending embedded migration and returns the resulting
// schema version.
func Apply(ctx context.Context, store *db.Store) (int64, error) {
	conn, err := store.DB(ctx)
	if err != nil {
		return 0, err
	}
	var version int64
	err = withGoose(func() error {
		if err := goose.UpContext(ctx, conn.DB, "sql"); err != nil {
			return fmt.Errorf("migrations: up: %w", err)
		}
		v, err := goose.GetDBVersionContext(ctx, conn.DB)
		if err != nil {
			return fmt.Errorf("migrations: version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}

// Reset rolls every migration back. Used by memberctl.
func Reset(ctx context.Context, store *db.Store) error {
	conn, err := store.DB(ctx)
	if err != nil {
		return err
	}
	return withGoose(func() error {
		if err := goose.DownToContext(ctx, conn.DB, "sql", 0); err != nil {
			return fmt.Errorf("migrations: down: %w", err)
		}
		return nil
	})
}
