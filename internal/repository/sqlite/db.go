package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) a sqlite database at the given path and ensures directories exist.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// a single connection serializes writers; grant transactions rely on it
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	return db, nil
}

type initializer interface {
	Init(ctx context.Context) error
}

// Store bundles the sqlite repositories over one database handle.
type Store struct {
	DB       *sql.DB
	Users    *UserRepository
	Books    *BookRepository
	Orders   *OrderRepository
	Progress *ProgressRepository
	Messages *MessageRepository
}

// NewStore builds the repositories and creates their tables.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{
		DB:       db,
		Users:    &UserRepository{db: db},
		Books:    &BookRepository{db: db},
		Orders:   &OrderRepository{db: db},
		Progress: &ProgressRepository{db: db},
		Messages: &MessageRepository{db: db},
	}
	// books first so user_books can reference it
	for _, repo := range []initializer{s.Books, s.Users, s.Orders, s.Progress, s.Messages} {
		if err := repo.Init(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}
