// Package postgres implements the repositories on PostgreSQL through the
// pgx stdlib driver. The schema is managed by goose migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"storyverse/internal/repository"
	"storyverse/internal/repository/postgres/migrations"
)

const uniqueViolation = "23505"

// Open connects to PostgreSQL using the given DSN.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres db: %w", err)
	}
	return db, nil
}

// gooseUpContext is a seam for tests.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Store bundles the postgres repositories over one database handle.
type Store struct {
	DB       *sql.DB
	Users    *UserRepository
	Books    *BookRepository
	Orders   *OrderRepository
	Progress *ProgressRepository
	Messages *MessageRepository
}

// NewStore runs migrations and builds the repositories.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}
	return &Store{
		DB:       db,
		Users:    NewUserRepository(db),
		Books:    NewBookRepository(db),
		Orders:   NewOrderRepository(db),
		Progress: NewProgressRepository(db),
		Messages: NewMessageRepository(db),
	}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var (
	_ repository.UserRepository     = (*UserRepository)(nil)
	_ repository.BookRepository     = (*BookRepository)(nil)
	_ repository.OrderRepository    = (*OrderRepository)(nil)
	_ repository.ProgressRepository = (*ProgressRepository)(nil)
	_ repository.MessageRepository  = (*MessageRepository)(nil)
)
