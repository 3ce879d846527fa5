package repository

import (
	"context"

	"storyverse/internal/domain"
)

// OrderRepository remembers orders issued by the payment authority.
type OrderRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
}
