package service

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storyverse/internal/domain"
	"storyverse/internal/payment"
	"storyverse/internal/repository/sqlite"
)

const testSecret = "test-key-secret"

type fixture struct {
	store    *sqlite.Store
	sandbox  *payment.Sandbox
	ent      EntitlementService
	users    UserService
	catalog  CatalogService
	progress ProgressService
	contact  ContactService
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "storyverse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := sqlite.NewStore(context.Background(), db)
	require.NoError(t, err)

	sb := payment.NewSandbox(testSecret, "INR")
	return &fixture{
		store:    store,
		sandbox:  sb,
		ent:      NewEntitlementService(store.Users, store.Books, store.Orders, sb, EntitlementOptions{Logger: quietLogger()}),
		users:    &userService{users: store.Users, cost: bcrypt.MinCost},
		catalog:  NewCatalogService(store.Users, store.Books, store.Progress, nil, quietLogger()),
		progress: NewProgressService(store.Users, store.Progress),
		contact:  NewContactService(store.Messages),
	}
}

func (f *fixture) user(t *testing.T, id string) *domain.User {
	t.Helper()
	u := &domain.User{ID: id, Name: "Reader " + id, Email: id + "@example.com", PasswordHash: "x"}
	require.NoError(t, f.store.Users.Create(context.Background(), u))
	return u
}

func (f *fixture) book(t *testing.T, id string, premium bool) *domain.Book {
	t.Helper()
	price := int64(29900)
	if premium {
		price = 99900
	}
	b := &domain.Book{ID: id, Title: "Title " + id, Author: "Kai Moreno", Content: "Chapter one.", Price: price, IsPremium: premium}
	require.NoError(t, f.store.Books.Create(context.Background(), b))
	return b
}

// paidReceipt creates an order for userID and simulates a successful checkout.
func (f *fixture) paidReceipt(t *testing.T, userID string, amount int64) payment.Receipt {
	t.Helper()
	order, err := f.ent.CreateChargeIntent(context.Background(), userID, amount)
	require.NoError(t, err)
	return f.sandbox.Pay(order.ID)
}

func (f *fixture) reload(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := f.store.Users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}
