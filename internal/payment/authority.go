// Package payment models the hosted checkout provider as an Authority that
// issues payable orders and checks signed payment receipts.
package payment

import (
	"context"
	"errors"
)

var (
	// ErrTimeout is returned when the provider does not answer in time.
	ErrTimeout = errors.New("payment authority timeout")
	// ErrUnavailable is returned for any other provider failure.
	ErrUnavailable = errors.New("payment authority unavailable")
)

// OrderHandle is a payable order issued by the provider.
type OrderHandle struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
}

// Receipt is the signed tuple the checkout widget hands back after payment.
type Receipt struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Authority creates orders and verifies receipts. Verify is local and never
// touches the network.
type Authority interface {
	CreateOrder(ctx context.Context, amount int64) (OrderHandle, error)
	Verify(receipt Receipt) bool
}
