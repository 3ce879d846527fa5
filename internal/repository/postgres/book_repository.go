package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storyverse/internal/dbx"
	"storyverse/internal/domain"
	"storyverse/internal/repository"
)

const bookColumns = `id, title, author, cover_url, content, content_key, price, is_premium, rating, reads, created_at, updated_at`

type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) Init(context.Context) error { return nil }

func (r *BookRepository) Create(ctx context.Context, book *domain.Book) error {
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (`+bookColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		book.ID, book.Title, book.Author, book.CoverURL, book.Content, book.ContentKey,
		book.Price, book.IsPremium, book.Rating, book.Reads, book.CreatedAt, book.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert book: %w", repository.ErrAlreadyExists)
		}
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *BookRepository) Get(ctx context.Context, id string) (*domain.Book, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	return scanBook(row)
}

func (r *BookRepository) List(ctx context.Context) ([]domain.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, author, cover_url, '' AS content, content_key, price, is_premium, rating, reads, created_at, updated_at
		 FROM books ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()
	return collectBooks(rows)
}

func (r *BookRepository) ListOwnedBy(ctx context.Context, userID string) ([]domain.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.title, b.author, b.cover_url, '' AS content, b.content_key, b.price, b.is_premium, b.rating, b.reads, b.created_at, b.updated_at
		 FROM books b
		 JOIN user_books ub ON ub.book_id = b.id
		 WHERE ub.user_id = $1
		 ORDER BY ub.granted_at, b.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list owned books: %w", err)
	}
	defer rows.Close()
	return collectBooks(rows)
}

func (r *BookRepository) Rate(ctx context.Context, id string, rating float64) (*domain.Book, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE books
		 SET rating = (rating * reads + $1) / (reads + 1), reads = reads + 1, updated_at = $2
		 WHERE id = $3
		 RETURNING `+bookColumns,
		rating, time.Now().UTC(), id)
	return scanBook(row)
}

func (r *BookRepository) SetContentKey(ctx context.Context, id, key string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE books SET content_key = $1, updated_at = $2 WHERE id = $3`,
		key, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set content key: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("content key rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("book %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *BookRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

func collectBooks(rows *sql.Rows) ([]domain.Book, error) {
	books := []domain.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

func scanBook(row dbx.Scanner) (*domain.Book, error) {
	var b domain.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.CoverURL, &b.Content, &b.ContentKey,
		&b.Price, &b.IsPremium, &b.Rating, &b.Reads, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("book: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}
	return &b, nil
}
