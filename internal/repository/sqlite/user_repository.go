package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"storyverse/internal/dbx"
	"storyverse/internal/domain"
	"storyverse/internal/repository"
)

const createUsersTables = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_member INTEGER NOT NULL DEFAULT 0,
	plan_type TEXT NOT NULL DEFAULT 'Novice',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS user_books (
	user_id TEXT NOT NULL REFERENCES users(id),
	book_id TEXT NOT NULL REFERENCES books(id),
	granted_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, book_id)
);

CREATE TABLE IF NOT EXISTS payments (
	order_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	payment_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	subject TEXT NOT NULL,
	paid_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payments_user ON payments(user_id);
`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTables); err != nil {
		return fmt.Errorf("create users tables: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.PlanType == "" {
		user.PlanType = domain.PlanNovice
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, name, email, password_hash, is_member, plan_type, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsMember,
		string(user.PlanType),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", repository.ErrAlreadyExists)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, email, password_hash, is_member, plan_type, created_at, updated_at
FROM users
WHERE id = ?`,
		id,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadEntitlements(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, email, password_hash, is_member, plan_type, created_at, updated_at
FROM users
WHERE email = ?`,
		email,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadEntitlements(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, name, email string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET name=?, email=?, updated_at=?
WHERE id=?`,
		name,
		email,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user profile: %w", repository.ErrAlreadyExists)
		}
		return fmt.Errorf("update user profile: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user update rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) GrantBook(ctx context.Context, userID, bookID string, payment *domain.Payment) (bool, error) {
	var granted bool
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO user_books (user_id, book_id, granted_at)
VALUES (?, ?, ?)
ON CONFLICT(user_id, book_id) DO NOTHING`,
			userID,
			bookID,
			time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert user book: %w", err)
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("user book rows affected: %w", err)
		}
		if aff == 0 {
			return nil
		}
		granted = true

		if payment == nil {
			return nil
		}
		inserted, err := insertPayment(ctx, tx, userID, payment)
		if err != nil {
			return err
		}
		if !inserted {
			return fmt.Errorf("order %s: %w", payment.OrderID, repository.ErrPaymentReplayed)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return granted, nil
}

func (r *UserRepository) ActivateMembership(ctx context.Context, userID string, plan domain.PlanType, payment domain.Payment) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		inserted, err := insertPayment(ctx, tx, userID, &payment)
		if err != nil {
			return err
		}
		if !inserted {
			existing, err := getPayment(ctx, tx, payment.OrderID)
			if err != nil {
				return err
			}
			if existing.userID == userID && existing.Kind == domain.PaymentKindMembership && existing.Subject == string(plan) {
				return nil
			}
			return fmt.Errorf("order %s: %w", payment.OrderID, repository.ErrPaymentReplayed)
		}

		res, err := tx.ExecContext(ctx, `
UPDATE users
SET is_member=1, plan_type=?, updated_at=?
WHERE id=?`,
			string(plan),
			time.Now().UTC(),
			userID,
		)
		if err != nil {
			return fmt.Errorf("update membership: %w", err)
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("membership rows affected: %w", err)
		}
		if aff == 0 {
			return fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
		}
		return nil
	})
}

func (r *UserRepository) loadEntitlements(ctx context.Context, user *domain.User) error {
	books, err := r.purchasedBooks(ctx, user.ID)
	if err != nil {
		return err
	}
	history, err := r.paymentHistory(ctx, user.ID)
	if err != nil {
		return err
	}
	user.PurchasedBooks = books
	user.PaymentHistory = history
	return nil
}

func (r *UserRepository) purchasedBooks(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT book_id
FROM user_books
WHERE user_id = ?
ORDER BY granted_at ASC, book_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query user books: %w", err)
	}
	defer rows.Close()

	books := []string{}
	for rows.Next() {
		var bookID string
		if err := rows.Scan(&bookID); err != nil {
			return nil, fmt.Errorf("scan user book: %w", err)
		}
		books = append(books, bookID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user books: %w", err)
	}
	return books, nil
}

func (r *UserRepository) paymentHistory(ctx context.Context, userID string) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT order_id, payment_id, kind, subject, paid_at
FROM payments
WHERE user_id = ?
ORDER BY paid_at ASC, order_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	history := []domain.Payment{}
	for rows.Next() {
		var (
			p    domain.Payment
			kind string
		)
		if err := rows.Scan(&p.OrderID, &p.PaymentID, &kind, &p.Subject, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Kind = domain.PaymentKind(kind)
		history = append(history, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return history, nil
}

type storedPayment struct {
	domain.Payment
	userID string
}

func insertPayment(ctx context.Context, tx dbx.DBTX, userID string, payment *domain.Payment) (bool, error) {
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx, `
INSERT INTO payments (order_id, user_id, payment_id, kind, subject, paid_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(order_id) DO NOTHING`,
		payment.OrderID,
		userID,
		payment.PaymentID,
		string(payment.Kind),
		payment.Subject,
		payment.PaidAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert payment: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("payment rows affected: %w", err)
	}
	return aff > 0, nil
}

func getPayment(ctx context.Context, tx dbx.DBTX, orderID string) (*storedPayment, error) {
	var (
		p    storedPayment
		kind string
	)
	err := tx.QueryRowContext(ctx, `
SELECT order_id, user_id, payment_id, kind, subject, paid_at
FROM payments
WHERE order_id = ?`,
		orderID,
	).Scan(&p.OrderID, &p.userID, &p.PaymentID, &kind, &p.Subject, &p.PaidAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment %s: %w", orderID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	p.Kind = domain.PaymentKind(kind)
	return &p, nil
}

func scanUser(row dbx.Scanner) (*domain.User, error) {
	var (
		user domain.User
		plan string
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.IsMember,
		&plan,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.PlanType = domain.PlanType(plan)
	return &user, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
