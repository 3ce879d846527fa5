package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storyverse/internal/domain"
	"storyverse/internal/repository"
)

const createOrdersTable = `
CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	amount INTEGER NOT NULL,
	currency TEXT NOT NULL,
	receipt TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createOrdersTable); err != nil {
		return fmt.Errorf("create orders table: %w", err)
	}
	return nil
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO orders (id, user_id, amount, currency, receipt, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.UserID,
		order.Amount,
		order.Currency,
		order.Receipt,
		order.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert order: %w", repository.ErrAlreadyExists)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, amount, currency, receipt, created_at
FROM orders
WHERE id = ?`,
		id,
	).Scan(&order.ID, &order.UserID, &order.Amount, &order.Currency, &order.Receipt, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return &order, nil
}
