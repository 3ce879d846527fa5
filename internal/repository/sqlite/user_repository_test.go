package sqlite

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyverse/internal/domain"
	"storyverse/internal/repository"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "ada@example.com")

	got, err := s.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.False(t, got.IsMember)
	assert.Equal(t, domain.PlanNovice, got.PlanType)
	assert.Empty(t, got.PurchasedBooks)
	assert.Empty(t, got.PaymentHistory)

	byEmail, err := s.Users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "u1", "ada@example.com")

	err := s.Users.Create(context.Background(), &domain.User{ID: "u2", Name: "x", Email: "ada@example.com", PasswordHash: "h"})
	require.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestUserRepository_GetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Users.GetByID(context.Background(), "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "ada@example.com")
	seedUser(t, s, "u2", "bob@example.com")

	require.NoError(t, s.Users.UpdateProfile(ctx, "u1", "Ada L.", "ada@lovelace.dev"))
	got, err := s.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.Name)
	assert.Equal(t, "ada@lovelace.dev", got.Email)
	assert.Equal(t, "hash", got.PasswordHash)

	err = s.Users.UpdateProfile(ctx, "u1", "Ada", "bob@example.com")
	require.ErrorIs(t, err, repository.ErrAlreadyExists)

	err = s.Users.UpdateProfile(ctx, "missing", "x", "x@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_GrantBookIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "ada@example.com")
	seedBook(t, s, "b1", false)

	pay := &domain.Payment{OrderID: "order_1", PaymentID: "pay_1", Kind: domain.PaymentKindBook, Subject: "b1"}
	granted, err := s.Users.GrantBook(ctx, "u1", "b1", pay)
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = s.Users.GrantBook(ctx, "u1", "b1", pay)
	require.NoError(t, err)
	assert.False(t, granted)

	got, err := s.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, got.PurchasedBooks)
	require.Len(t, got.PaymentHistory, 1)
	assert.Equal(t, "order_1", got.PaymentHistory[0].OrderID)
	assert.Equal(t, domain.PaymentKindBook, got.PaymentHistory[0].Kind)
}

func TestUserRepository_GrantBookRejectsReplayedOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "ada@example.com")
	seedBook(t, s, "b1", false)
	seedBook(t, s, "b2", false)

	_, err := s.Users.GrantBook(ctx, "u1", "b1", &domain.Payment{OrderID: "order_1", PaymentID: "pay_1", Kind: domain.PaymentKindBook, Subject: "b1"})
	require.NoError(t, err)

	_, err = s.Users.GrantBook(ctx, "u1", "b2", &domain.Payment{OrderID: "order_1", PaymentID: "pay_1", Kind: domain.PaymentKindBook, Subject: "b2"})
	require.ErrorIs(t, err, repository.ErrPaymentReplayed)

	got, err := s.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, got.PurchasedBooks, "failed grant must not leave the book behind")
	assert.Len(t, got.PaymentHistory, 1)
}

func TestUserRepository_GrantBookWithoutPayment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "ada@example.com")
	seedBook(t, s, "b1", true)

	granted, err := s.Users.GrantBook(ctx, "u1", "b1", nil)
	require.NoError(t, err)
	assert.True(t, granted)

	got, err := s.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, got.PurchasedBooks)
	assert.Empty(t, got.PaymentHistory)
}

func TestUserRepository_ConcurrentGrants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "ada@example.com")
	seedBook(t, s, "b1", true)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Users.GrantBook(ctx, "u1", "b1", nil)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, granted)
	got, err := s.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got.PurchasedBooks, 1)
}

func TestUserRepository_ActivateMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "ada@example.com")

	pay := domain.Payment{OrderID: "order_m", PaymentID: "pay_m", Kind: domain.PaymentKindMembership, Subject: string(domain.PlanScholar)}
	require.NoError(t, s.Users.ActivateMembership(ctx, "u1", domain.PlanScholar, pay))

	got, err := s.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.IsMember)
	assert.Equal(t, domain.PlanScholar, got.PlanType)
	require.Len(t, got.PaymentHistory, 1)

	// same order, same plan: no-op
	require.NoError(t, s.Users.ActivateMembership(ctx, "u1", domain.PlanScholar, pay))
	got, err = s.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got.PaymentHistory, 1)

	// same order, different plan: rejected, nothing changes
	err = s.Users.ActivateMembership(ctx, "u1", domain.PlanKeeper, domain.Payment{OrderID: "order_m", PaymentID: "pay_m", Kind: domain.PaymentKindMembership, Subject: string(domain.PlanKeeper)})
	require.ErrorIs(t, err, repository.ErrPaymentReplayed)
	got, err = s.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanScholar, got.PlanType)
}

func TestUserRepository_ActivateMembershipUnknownUser(t *testing.T) {
	s := newTestStore(t)
	pay := domain.Payment{OrderID: "order_m", PaymentID: "pay_m", Kind: domain.PaymentKindMembership, Subject: "Keeper"}
	err := s.Users.ActivateMembership(context.Background(), "ghost", domain.PlanKeeper, pay)
	require.Error(t, err)
}
