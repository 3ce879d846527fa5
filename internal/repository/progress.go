package repository

import (
	"context"

	"storyverse/internal/domain"
)

// ProgressRepository stores advisory reading status, last write wins.
type ProgressRepository interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, progress *domain.Progress) error
	ListByUser(ctx context.Context, userID string) ([]domain.Progress, error)
}

// MessageRepository stores contact form submissions.
type MessageRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, msg *domain.Message) error
}
