package repository

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	// ErrPaymentReplayed is returned when an order id is already recorded
	// against a different grant.
	ErrPaymentReplayed = errors.New("payment already recorded")
)
