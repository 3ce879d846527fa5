package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyverse/internal/domain"
	"storyverse/internal/repository"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestGrantBook_InsertsBookAndPayment(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_books .* ON CONFLICT \(user_id, book_id\) DO NOTHING`).
		WithArgs("u1", "b1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO payments .* ON CONFLICT \(order_id\) DO NOTHING`).
		WithArgs("order_1", "u1", "pay_1", "book", "b1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	granted, err := repo.GrantBook(context.Background(), "u1", "b1",
		&domain.Payment{OrderID: "order_1", PaymentID: "pay_1", Kind: domain.PaymentKindBook, Subject: "b1"})
	require.NoError(t, err)
	assert.True(t, granted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantBook_AlreadyOwnedWritesNothing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_books`).
		WithArgs("u1", "b1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	granted, err := repo.GrantBook(context.Background(), "u1", "b1",
		&domain.Payment{OrderID: "order_1", PaymentID: "pay_1", Kind: domain.PaymentKindBook, Subject: "b1"})
	require.NoError(t, err)
	assert.False(t, granted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantBook_ReplayedOrderRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_books`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO payments`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.GrantBook(context.Background(), "u1", "b2",
		&domain.Payment{OrderID: "order_1", PaymentID: "pay_1", Kind: domain.PaymentKindBook, Subject: "b2"})
	require.ErrorIs(t, err, repository.ErrPaymentReplayed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivateMembership_UpdatesBothFields(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO payments`).
		WithArgs("order_m", "u1", "pay_m", "membership", "Scholar", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET is_member = TRUE, plan_type = \$1`).
		WithArgs("Scholar", sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ActivateMembership(context.Background(), "u1", domain.PlanScholar,
		domain.Payment{OrderID: "order_m", PaymentID: "pay_m", Kind: domain.PaymentKindMembership, Subject: "Scholar"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivateMembership_ReplaySamePlanIsNoop(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO payments`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT user_id, kind, subject FROM payments WHERE order_id = \$1`).
		WithArgs("order_m").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "kind", "subject"}).AddRow("u1", "membership", "Scholar"))
	mock.ExpectCommit()

	err := repo.ActivateMembership(context.Background(), "u1", domain.PlanScholar,
		domain.Payment{OrderID: "order_m", PaymentID: "pay_m", Kind: domain.PaymentKindMembership, Subject: "Scholar"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivateMembership_ReplayOtherUserRejected(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO payments`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT user_id, kind, subject FROM payments`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "kind", "subject"}).AddRow("u2", "membership", "Scholar"))
	mock.ExpectRollback()

	err := repo.ActivateMembership(context.Background(), "u1", domain.PlanScholar,
		domain.Payment{OrderID: "order_m", PaymentID: "pay_m", Kind: domain.PaymentKindMembership, Subject: "Scholar"})
	require.ErrorIs(t, err, repository.ErrPaymentReplayed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_UniqueViolation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users`).WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com", PasswordHash: "h"})
	require.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestGetByID_LoadsEntitlements(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, name, email, password_hash, is_member, plan_type, created_at, updated_at\s+FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "is_member", "plan_type", "created_at", "updated_at"}).
			AddRow("u1", "Ada", "ada@example.com", "h", true, "Keeper", now, now))
	mock.ExpectQuery(`SELECT book_id FROM user_books`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"book_id"}).AddRow("b1").AddRow("b2"))
	mock.ExpectQuery(`SELECT order_id, payment_id, kind, subject, paid_at FROM payments`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "payment_id", "kind", "subject", "paid_at"}).
			AddRow("order_m", "pay_m", "membership", "Keeper", now))

	u, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, u.IsMember)
	assert.Equal(t, domain.PlanKeeper, u.PlanType)
	assert.Equal(t, []string{"b1", "b2"}, u.PurchasedBooks)
	require.Len(t, u.PaymentHistory, 1)
	assert.Equal(t, domain.PaymentKindMembership, u.PaymentHistory[0].Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMigrate_UsesGoose(t *testing.T) {
	db, _ := newMock(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	called := false
	gooseUpContext = func(ctx context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		called = true
		assert.Equal(t, ".", dir)
		return nil
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.True(t, called)

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	require.Error(t, Migrate(context.Background(), db))
}
