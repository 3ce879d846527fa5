package repository

import (
	"context"

	"storyverse/internal/domain"
)

// UserRepository defines persistence operations for User entities.
// It is the only writer of purchased books and membership fields.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id, name, email string) error
	// GrantBook adds bookID to the user's purchased set. It reports false
	// when the book was already owned, in which case nothing is written.
	// A non-nil payment is appended to the history in the same transaction.
	GrantBook(ctx context.Context, userID, bookID string, payment *domain.Payment) (bool, error)
	// ActivateMembership records the payment and sets is_member and
	// plan_type together. Replaying the same order for the same plan is a no-op.
	ActivateMembership(ctx context.Context, userID string, plan domain.PlanType, payment domain.Payment) error
}
