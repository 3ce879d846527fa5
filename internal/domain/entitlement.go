package domain

type DecisionKind string

const (
	DecisionRead                 DecisionKind = "read"
	DecisionBuy                  DecisionKind = "buy"
	DecisionClaimFree            DecisionKind = "claim_free"
	DecisionLockedJoinMembership DecisionKind = "locked_join_membership"
)

// Decision is the access outcome for a (user, book) pair. Price is only set
// for DecisionBuy.
type Decision struct {
	Kind  DecisionKind
	Price int64
}

// Decide evaluates the access rules in order; the first match wins.
// Reading progress is never an input.
func Decide(user *User, book *Book) Decision {
	switch {
	case user.Owns(book.ID):
		return Decision{Kind: DecisionRead}
	case !book.IsPremium:
		return Decision{Kind: DecisionBuy, Price: book.Price}
	case user.IsMember:
		return Decision{Kind: DecisionClaimFree}
	default:
		return Decision{Kind: DecisionLockedJoinMembership}
	}
}
