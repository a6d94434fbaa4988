// Package db is the persistence adapter: one lazily opened SQLite handle shared
// by every request, exposed through both an explicit Query/Exec API and the
// statement-sniffing Execute call that returns a rows-or-summary result.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const MemoryPath = ":memory:"

type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// Opener opens and prepares a database handle. Tests swap it to simulate
// failures.
type Opener func(ctx context.Context, cfg Config) (*sqlx.DB, error)

type Store struct {
	cfg  Config
	open Opener

	mu     sync.Mutex
	handle *sqlx.DB
}

func New(cfg Config) *Store {
	return NewWithOpener(cfg, OpenSQLite)
}

func NewWithOpener(cfg Config, open Opener) *Store {
	if cfg.Path == "" {
		cfg.Path = MemoryPath
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if open == nil {
		open = OpenSQLite
	}
	return &Store{cfg: cfg, open: open}
}

// OpenSQLite opens the modernc driver and applies the connection pragmas. An
// in-memory database is pinned to a single connection so every caller sees
// the same data.
func OpenSQLite(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if cfg.Path != MemoryPath {
		if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: create data dir: %w", err)
			}
		}
	}
	conn, err := sqlx.Open("sqlite", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if cfg.Path == MemoryPath {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(8)
		conn.SetMaxIdleConns(4)
		conn.SetConnMaxIdleTime(10 * time.Minute)
	}
	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL"} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", strings.ToLower(pragma), err)
		}
	}
	return conn, nil
}

func buildDSN(cfg Config) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=journal_mode(WAL)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()),
		"_time_format=sqlite",
	}
	return "file:" + cfg.Path + "?" + strings.Join(pragmas, "&")
}

// DB returns the shared handle, opening it on first use. A failed open leaves
// nothing memoized so the next call tries again.
func (s *Store) DB(ctx context.Context) (*sqlx.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != nil {
		return s.handle, nil
	}
	conn, err := s.open(ctx, s.cfg)
	if err != nil {
		s.handle = nil
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	s.handle = conn
	return conn, nil
}

// Shutdown closes the handle. The next call reopens it.
func (s *Store) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil
	}
	err := s.handle.Close()
	s.handle = nil
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.DB(ctx)
	if err != nil {
		return err
	}
	return conn.PingContext(ctx)
}

// Execute classifies the statement by its leading keyword. Introspection
// statements return an empty result without touching the database, reads
// return every row, and everything else runs as a mutation. The field slice
// is always empty.
func (s *Store) Execute(ctx context.Context, query string, args ...any) (Result, []Field, error) {
	switch Classify(query) {
	case KindIntrospection:
		return Result{Rows: []Row{}}, []Field{}, nil
	case KindRead:
		rows, err := s.Query(ctx, query, args...)
		if err != nil {
			return Result{}, []Field{}, err
		}
		return Result{Rows: rows}, []Field{}, nil
	default:
		res, err := s.Exec(ctx, query, args...)
		return res, []Field{}, err
	}
}

// Query runs a row-producing statement and materializes every row.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	conn, err := s.DB(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Row, 0)
	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Exec runs a mutation. It is never retried.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	conn, err := s.DB(ctx)
	if err != nil {
		return Result{}, err
	}
	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	return summarize(query, res)
}

func summarize(query string, res sql.Result) (Result, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return Result{}, err
	}
	out := Result{AffectedRows: affected, write: true}
	if affected > 0 && insertsRows(query) {
		id, err := res.LastInsertId()
		if err != nil {
			return Result{}, err
		}
		out.InsertID = &id
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, dest any, query string, args ...any) error {
	conn, err := s.DB(ctx)
	if err != nil {
		return err
	}
	return conn.GetContext(ctx, dest, query, args...)
}

func (s *Store) Select(ctx context.Context, dest any, query string, args ...any) error {
	conn, err := s.DB(ctx)
	if err != nil {
		return err
	}
	return conn.SelectContext(ctx, dest, query, args...)
}

// Exists runs a SELECT EXISTS(...) style query.
func (s *Store) Exists(ctx context.Context, query string, args ...any) (bool, error) {
	var exists bool
	if err := s.Get(ctx, &exists, query, args...); err != nil {
		return false, err
	}
	return exists, nil
}

// Conn is the pooled-client shaped view of the store. There is no real pool;
// Release does nothing.
type Conn struct {
	store *Store
}

func (s *Store) Conn(ctx context.Context) (*Conn, error) {
	if _, err := s.DB(ctx); err != nil {
		return nil, err
	}
	return &Conn{store: s}, nil
}

func (c *Conn) Execute(ctx context.Context, query string, args ...any) (Result, []Field, error) {
	return c.store.Execute(ctx, query, args...)
}

func (c *Conn) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	return c.store.Query(ctx, query, args...)
}

func (c *Conn) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return c.store.Exec(ctx, query, args...)
}

func (c *Conn) Release() {}

var ErrOpen = errors.New("database unavailable")
