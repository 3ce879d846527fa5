package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"storyverse/internal/domain"
	"storyverse/internal/metrics"
	"storyverse/internal/payment"
	"storyverse/internal/repository"
)

const defaultAuthorityTimeout = 10 * time.Second

// EntitlementService decides who may read which book and is the only path
// that grants books or activates memberships.
type EntitlementService interface {
	Decide(ctx context.Context, userID, bookID string) (domain.Decision, error)
	// CreateChargeIntent asks the payment authority for an order and
	// remembers it against userID so a later receipt can be matched.
	CreateChargeIntent(ctx context.Context, userID string, amount int64) (*domain.Order, error)
	Purchase(ctx context.Context, userID, bookID string, receipt payment.Receipt) error
	ClaimPremium(ctx context.Context, userID, bookID string) error
	ActivateMembership(ctx context.Context, userID string, plan domain.PlanType, receipt payment.Receipt) error
}

type EntitlementOptions struct {
	// AuthorityTimeout bounds a single order creation call.
	AuthorityTimeout time.Duration
	Logger           logrus.FieldLogger
}

type entitlementService struct {
	users     repository.UserRepository
	books     repository.BookRepository
	orders    repository.OrderRepository
	authority payment.Authority
	timeout   time.Duration
	log       logrus.FieldLogger
}

func NewEntitlementService(
	users repository.UserRepository,
	books repository.BookRepository,
	orders repository.OrderRepository,
	authority payment.Authority,
	opts EntitlementOptions,
) EntitlementService {
	if opts.AuthorityTimeout <= 0 {
		opts.AuthorityTimeout = defaultAuthorityTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &entitlementService{
		users:     users,
		books:     books,
		orders:    orders,
		authority: authority,
		timeout:   opts.AuthorityTimeout,
		log:       opts.Logger.WithField("component", "entitlement"),
	}
}

func (s *entitlementService) Decide(ctx context.Context, userID, bookID string) (domain.Decision, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return domain.Decision{}, err
	}
	book, err := s.loadBook(ctx, bookID)
	if err != nil {
		return domain.Decision{}, err
	}
	return domain.Decide(user, book), nil
}

func (s *entitlementService) CreateChargeIntent(ctx context.Context, userID string, amount int64) (*domain.Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	handle, err := s.authority.CreateOrder(callCtx, amount)
	metrics.PaymentAuthorityDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
			metrics.PaymentAuthorityRequestsTotal.WithLabelValues("timeout").Inc()
			s.log.WithField("user_id", userID).WithError(err).Warn("payment authority timed out")
			return nil, ErrPaymentTimeout
		default:
			metrics.PaymentAuthorityRequestsTotal.WithLabelValues("error").Inc()
			s.log.WithField("user_id", userID).WithError(err).Error("payment authority failed")
			return nil, ErrUpstreamUnavailable
		}
	}
	metrics.PaymentAuthorityRequestsTotal.WithLabelValues("ok").Inc()

	order := &domain.Order{
		ID:       handle.ID,
		UserID:   userID,
		Amount:   handle.Amount,
		Currency: handle.Currency,
		Receipt:  handle.Receipt,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("store order: %w", err)
	}
	return order, nil
}

func (s *entitlementService) Purchase(ctx context.Context, userID, bookID string, receipt payment.Receipt) error {
	book, err := s.loadBook(ctx, bookID)
	if err != nil {
		return err
	}
	if book.IsPremium {
		metrics.EntitlementGrantsTotal.WithLabelValues("purchase", "rejected").Inc()
		return ErrBookIsPremium
	}
	if _, err := s.loadUser(ctx, userID); err != nil {
		return err
	}

	log := s.log.WithFields(logrus.Fields{"user_id": userID, "book_id": bookID, "order_id": receipt.OrderID})
	if !s.authority.Verify(receipt) {
		s.rejectReceipt(log, "purchase", "receipt signature mismatch")
		return ErrPaymentUnverified
	}
	if err := s.checkOrder(ctx, userID, receipt.OrderID, book.Price); err != nil {
		s.rejectReceipt(log, "purchase", err.Error())
		return err
	}

	granted, err := s.users.GrantBook(ctx, userID, bookID, &domain.Payment{
		OrderID:   receipt.OrderID,
		PaymentID: receipt.PaymentID,
		Kind:      domain.PaymentKindBook,
		Subject:   bookID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrPaymentReplayed) {
			s.rejectReceipt(log, "purchase", "order already redeemed")
			return ErrPaymentUnverified
		}
		return fmt.Errorf("grant book: %w", err)
	}

	if granted {
		metrics.EntitlementGrantsTotal.WithLabelValues("purchase", "granted").Inc()
		log.Info("book purchased")
	} else {
		metrics.EntitlementGrantsTotal.WithLabelValues("purchase", "already_owned").Inc()
		log.Debug("purchase for owned book, nothing recorded")
	}
	return nil
}

func (s *entitlementService) ClaimPremium(ctx context.Context, userID, bookID string) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	// Membership gates before anything about the book is considered.
	if !user.IsMember {
		metrics.EntitlementGrantsTotal.WithLabelValues("claim", "rejected").Inc()
		return ErrNotAMember
	}
	book, err := s.loadBook(ctx, bookID)
	if err != nil {
		return err
	}
	if !book.IsPremium {
		metrics.EntitlementGrantsTotal.WithLabelValues("claim", "rejected").Inc()
		return ErrBookNotPremium
	}

	granted, err := s.users.GrantBook(ctx, userID, bookID, nil)
	if err != nil {
		return fmt.Errorf("grant book: %w", err)
	}
	if granted {
		metrics.EntitlementGrantsTotal.WithLabelValues("claim", "granted").Inc()
		s.log.WithFields(logrus.Fields{"user_id": userID, "book_id": bookID}).Info("premium book claimed")
	} else {
		metrics.EntitlementGrantsTotal.WithLabelValues("claim", "already_owned").Inc()
	}
	return nil
}

func (s *entitlementService) ActivateMembership(ctx context.Context, userID string, plan domain.PlanType, receipt payment.Receipt) error {
	if !plan.Purchasable() {
		return ErrInvalidPlan
	}
	if _, err := s.loadUser(ctx, userID); err != nil {
		return err
	}

	log := s.log.WithFields(logrus.Fields{"user_id": userID, "plan": plan, "order_id": receipt.OrderID})
	if !s.authority.Verify(receipt) {
		metrics.MembershipActivationsTotal.WithLabelValues(string(plan), "rejected").Inc()
		s.rejectReceipt(log, "membership", "receipt signature mismatch")
		return ErrInvalidSignature
	}
	if err := s.checkOrder(ctx, userID, receipt.OrderID, plan.Price()); err != nil {
		metrics.MembershipActivationsTotal.WithLabelValues(string(plan), "rejected").Inc()
		s.rejectReceipt(log, "membership", err.Error())
		return err
	}

	err := s.users.ActivateMembership(ctx, userID, plan, domain.Payment{
		OrderID:   receipt.OrderID,
		PaymentID: receipt.PaymentID,
		Kind:      domain.PaymentKindMembership,
		Subject:   string(plan),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentReplayed):
			metrics.MembershipActivationsTotal.WithLabelValues(string(plan), "rejected").Inc()
			s.rejectReceipt(log, "membership", "order already redeemed")
			return ErrPaymentUnverified
		case errors.Is(err, repository.ErrNotFound):
			return ErrUserNotFound
		}
		return fmt.Errorf("activate membership: %w", err)
	}

	metrics.MembershipActivationsTotal.WithLabelValues(string(plan), "activated").Inc()
	log.Info("membership activated")
	return nil
}

// checkOrder ties a receipt to an order this service created for the same
// user and price.
func (s *entitlementService) checkOrder(ctx context.Context, userID, orderID string, price int64) error {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPaymentUnverified
		}
		return fmt.Errorf("load order: %w", err)
	}
	if order.UserID != userID {
		return ErrPaymentUnverified
	}
	if order.Amount != price {
		return ErrAmountMismatch
	}
	return nil
}

func (s *entitlementService) rejectReceipt(log logrus.FieldLogger, operation, reason string) {
	metrics.VerificationFailuresTotal.WithLabelValues(operation).Inc()
	log.WithField("reason", reason).Warn("payment verification failed")
}

func (s *entitlementService) loadUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *entitlementService) loadBook(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.books.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("load book: %w", err)
	}
	return book, nil
}
