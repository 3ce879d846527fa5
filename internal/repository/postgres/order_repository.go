package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storyverse/internal/domain"
	"storyverse/internal/repository"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Init(context.Context) error { return nil }

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, amount, currency, receipt, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		order.ID, order.UserID, order.Amount, order.Currency, order.Receipt, order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert order: %w", repository.ErrAlreadyExists)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount, currency, receipt, created_at FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.UserID, &o.Amount, &o.Currency, &o.Receipt, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &o, nil
}
