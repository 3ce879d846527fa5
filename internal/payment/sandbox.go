package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Sandbox is an in-process Authority for local development and tests. It
// issues order ids itself and can simulate the checkout widget with Pay.
type Sandbox struct {
	secret   string
	currency string

	mu     sync.Mutex
	orders map[string]OrderHandle
}

func NewSandbox(secret, currency string) *Sandbox {
	if currency == "" {
		currency = "INR"
	}
	return &Sandbox{
		secret:   secret,
		currency: currency,
		orders:   make(map[string]OrderHandle),
	}
}

func (s *Sandbox) CreateOrder(ctx context.Context, amount int64) (OrderHandle, error) {
	if err := ctx.Err(); err != nil {
		return OrderHandle{}, ErrTimeout
	}
	order := OrderHandle{
		ID:       "order_" + ulid.Make().String(),
		Amount:   amount,
		Currency: s.currency,
		Receipt:  strings.ToLower(ulid.Make().String()),
	}
	s.mu.Lock()
	s.orders[order.ID] = order
	s.mu.Unlock()
	return order, nil
}

// Pay simulates a completed checkout for orderID and returns the signed receipt.
func (s *Sandbox) Pay(orderID string) Receipt {
	paymentID := "pay_" + ulid.Make().String()
	return Receipt{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: Sign(s.secret, orderID, paymentID),
	}
}

func (s *Sandbox) Verify(receipt Receipt) bool {
	return VerifySignature(s.secret, receipt)
}

var _ Authority = (*Sandbox)(nil)
