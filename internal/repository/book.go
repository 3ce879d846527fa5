package repository

import (
	"context"

	"storyverse/internal/domain"
)

// BookRepository manages catalog titles.
type BookRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, book *domain.Book) error
	Get(ctx context.Context, id string) (*domain.Book, error)
	// List returns every book without its content.
	List(ctx context.Context) ([]domain.Book, error)
	ListOwnedBy(ctx context.Context, userID string) ([]domain.Book, error)
	// Rate folds rating into the running average and increments reads.
	Rate(ctx context.Context, id string, rating float64) (*domain.Book, error)
	SetContentKey(ctx context.Context, id, key string) error
	Count(ctx context.Context) (int, error)
}
