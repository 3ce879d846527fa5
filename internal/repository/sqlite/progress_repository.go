package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storyverse/internal/domain"
	"storyverse/internal/repository"
)

const createProgressTable = `
CREATE TABLE IF NOT EXISTS reading_progress (
	user_id TEXT NOT NULL,
	book_id TEXT NOT NULL,
	status TEXT NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, book_id)
);
`

type ProgressRepository struct {
	db *sql.DB
}

func NewProgressRepository(db *sql.DB) repository.ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createProgressTable); err != nil {
		return fmt.Errorf("create reading progress table: %w", err)
	}
	return nil
}

func (r *ProgressRepository) Upsert(ctx context.Context, progress *domain.Progress) error {
	progress.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO reading_progress (user_id, book_id, status, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(user_id, book_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		progress.UserID,
		progress.BookID,
		string(progress.Status),
		progress.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert reading progress: %w", err)
	}
	return nil
}

func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]domain.Progress, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT user_id, book_id, status, updated_at
FROM reading_progress
WHERE user_id = ?
ORDER BY updated_at ASC, book_id ASC`,
		userID,
	)
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
