package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storyverse/internal/domain"
)

type ProgressRepository struct {
	db *sql.DB
}

func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Init(context.Context) error { return nil }

func (r *ProgressRepository) Upsert(ctx context.Context, p *domain.Progress) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reading_progress (user_id, book_id, status, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, book_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		p.UserID, p.BookID, string(p.Status), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert reading progress: %w", err)
	}
	return nil
}

func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]domain.Progress, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, book_id, status, updated_at FROM reading_progress WHERE user_id = $1 ORDER BY updated_at, book_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reading progress: %w", err)
	}
	defer rows.Close()

	items := []domain.Progress{}
	for rows.Next() {
		var (
			p      domain.Progress
			status string
		)
		if err := rows.Scan(&p.UserID, &p.BookID, &status, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reading progress: %w", err)
		}
		p.Status = domain.ReadingStatus(status)
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reading progress: %w", err)
	}
	return items, nil
}

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Init(context.Context) error { return nil }

func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	m.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, name, email, subject, body, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.Name, m.Email, m.Subject, m.Body, string(m.Status), m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}
