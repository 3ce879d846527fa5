package domain

import "time"

type PlanType string

const (
	PlanNovice  PlanType = "Novice"
	PlanScholar PlanType = "Scholar"
	PlanKeeper  PlanType = "Keeper"
)

// planPrices are in currency minor units.
var planPrices = map[PlanType]int64{
	PlanScholar: 29900,
	PlanKeeper:  499900,
}

// Purchasable reports whether the plan can be bought through the checkout flow.
func (p PlanType) Purchasable() bool {
	_, ok := planPrices[p]
	return ok
}

// Price returns the plan price in minor units, or zero for non-purchasable plans.
func (p PlanType) Price() int64 {
	return planPrices[p]
}

// ParsePlanType validates a plan name coming from a client.
func ParsePlanType(s string) (PlanType, bool) {
	switch PlanType(s) {
	case PlanNovice, PlanScholar, PlanKeeper:
		return PlanType(s), true
	}
	return "", false
}

// User represents a registered reader together with entitlement state.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	IsMember       bool
	PlanType       PlanType
	PurchasedBooks []string
	PaymentHistory []Payment
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Owns reports whether bookID is in the user's purchased set.
func (u *User) Owns(bookID string) bool {
	for _, id := range u.PurchasedBooks {
		if id == bookID {
			return true
		}
	}
	return false
}
