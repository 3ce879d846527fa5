package domain

import "time"

type PaymentKind string

const (
	PaymentKindBook       PaymentKind = "book"
	PaymentKindMembership PaymentKind = "membership"
)

// Order is a payable order created through the payment authority and
// remembered locally so receipts can be tied back to it.
type Order struct {
	ID        string
	UserID    string
	Amount    int64
	Currency  string
	Receipt   string
	CreatedAt time.Time
}

// Payment is one accepted, verified payment in a user's history.
// Subject is the book id for book purchases and the plan name for memberships.
type Payment struct {
	OrderID   string
	PaymentID string
	Kind      PaymentKind
	Subject   string
	PaidAt    time.Time
}
