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

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Init is a no-op; the schema comes from migrations.
func (r *UserRepository) Init(context.Context) error { return nil }

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.PlanType == "" {
		user.PlanType = domain.PlanNovice
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, is_member, plan_type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.IsMember, string(user.PlanType), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", repository.ErrAlreadyExists)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UserRepository) getBy(ctx context.Context, column, value string) (*domain.User, error) {
	query := `SELECT id, name, email, password_hash, is_member, plan_type, created_at, updated_at
		 FROM users WHERE ` + column + ` = $1`

	var (
		user domain.User
		plan string
	)
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsMember, &plan, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.PlanType = domain.PlanType(plan)

	if user.PurchasedBooks, err = r.purchasedBooks(ctx, user.ID); err != nil {
		return nil, err
	}
	if user.PaymentHistory, err = r.paymentHistory(ctx, user.ID); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, name, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $1, email = $2, updated_at = $3 WHERE id = $4`,
		name, email, time.Now().UTC(), id)
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
		res, err := tx.ExecContext(ctx,
			`INSERT INTO user_books (user_id, book_id, granted_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, book_id) DO NOTHING`,
			userID, bookID, time.Now().UTC())
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
			var owner, kind, subject string
			err := tx.QueryRowContext(ctx,
				`SELECT user_id, kind, subject FROM payments WHERE order_id = $1`,
				payment.OrderID).Scan(&owner, &kind, &subject)
			if err != nil {
				return fmt.Errorf("lookup payment: %w", err)
			}
			if owner == userID && domain.PaymentKind(kind) == domain.PaymentKindMembership && subject == string(plan) {
				return nil
			}
			return fmt.Errorf("order %s: %w", payment.OrderID, repository.ErrPaymentReplayed)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE users SET is_member = TRUE, plan_type = $1, updated_at = $2 WHERE id = $3`,
			string(plan), time.Now().UTC(), userID)
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

func (r *UserRepository) purchasedBooks(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT book_id FROM user_books WHERE user_id = $1 ORDER BY granted_at, book_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user books: %w", err)
	}
	defer rows.Close()

	books := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user book: %w", err)
		}
		books = append(books, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user books: %w", err)
	}
	return books, nil
}

func (r *UserRepository) paymentHistory(ctx context.Context, userID string) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, payment_id, kind, subject, paid_at FROM payments WHERE user_id = $1 ORDER BY paid_at, order_id`, userID)
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

func insertPayment(ctx context.Context, tx dbx.DBTX, userID string, payment *domain.Payment) (bool, error) {
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (order_id, user_id, payment_id, kind, subject, paid_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (order_id) DO NOTHING`,
		payment.OrderID, userID, payment.PaymentID, string(payment.Kind), payment.Subject, payment.PaidAt)
	if err != nil {
		return false, fmt.Errorf("insert payment: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("payment rows affected: %w", err)
	}
	return aff > 0, nil
}
