package service

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUserNotFound        = errors.New("user not found")
	ErrBookNotFound        = errors.New("book not found")
	ErrBookIsPremium       = errors.New("premium books are claimed with a membership, not purchased")
	ErrBookNotPremium      = errors.New("only premium books can be claimed")
	ErrNotAMember          = errors.New("not a member")
	ErrNotEntitled         = errors.New("book is not in your collection")
	ErrPaymentUnverified   = errors.New("payment could not be verified")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrAmountMismatch      = errors.New("order amount does not match the price")
	ErrInvalidPlan         = errors.New("invalid plan type")
	ErrPaymentTimeout      = errors.New("payment provider timed out")
	ErrUpstreamUnavailable = errors.New("payment provider unavailable")
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when registering with an email already in use.
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrEmailTaken        = errors.New("email is already in use")
)

// Kind is the caller-facing category of a service error.
type Kind string

const (
	KindInternal            Kind = "internal"
	KindInvalid             Kind = "invalid"
	KindNotFound            Kind = "not_found"
	KindUnauthenticated     Kind = "unauthenticated"
	KindUnauthorized        Kind = "unauthorized"
	KindConflict            Kind = "conflict"
	KindVerificationFailed  Kind = "verification_failed"
	KindUpstreamTimeout     Kind = "upstream_timeout"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidInput, KindInvalid},
	{ErrInvalidPlan, KindInvalid},
	{ErrUserNotFound, KindNotFound},
	{ErrBookNotFound, KindNotFound},
	{ErrInvalidCredentials, KindUnauthenticated},
	{ErrBookIsPremium, KindUnauthorized},
	{ErrBookNotPremium, KindUnauthorized},
	{ErrNotAMember, KindUnauthorized},
	{ErrNotEntitled, KindUnauthorized},
	{ErrUserAlreadyExists, KindConflict},
	{ErrEmailTaken, KindConflict},
	{ErrPaymentUnverified, KindVerificationFailed},
	{ErrInvalidSignature, KindVerificationFailed},
	{ErrAmountMismatch, KindVerificationFailed},
	{ErrPaymentTimeout, KindUpstreamTimeout},
	{ErrUpstreamUnavailable, KindUpstreamUnavailable},
}

// KindOf classifies err. Anything unrecognised is internal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
