package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PrizeType classifies what a prize awards
type PrizeType string

const (
	PrizeTypePoints   PrizeType = "points"
	PrizeTypeVIPDays  PrizeType = "vip_days"
	PrizeTypeCoupon   PrizeType = "coupon"
	PrizeTypePhysical PrizeType = "physical"
	PrizeTypeThanks   PrizeType = "thanks"
)

// UnlimitedQuantity marks a prize whose stock is never decremented
const UnlimitedQuantity int64 = -1

// NoWinPrizeName is recorded for draws that landed in the residual bucket
const NoWinPrizeName = "Thanks for participating"

// Valid reports whether t is one of the known prize types
func (t PrizeType) Valid() bool {
	switch t {
	case PrizeTypePoints, PrizeTypeVIPDays, PrizeTypeCoupon, PrizeTypePhysical, PrizeTypeThanks:
		return true
	}
	return false
}

// AutoClaimed reports whether records of this type need no real-world fulfillment step
func (t PrizeType) AutoClaimed() bool {
	return t == PrizeTypePoints || t == PrizeTypeVIPDays || t == PrizeTypeThanks
}

// Prize is one weighted outcome of an activity.
// Quantity is the remaining stock (-1 = unlimited); Claimed counts successful
// stock decrements and lets admin edits express a new total allotment.
type Prize struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Type        PrizeType          `bson:"type" json:"type"`
	Value       int64              `bson:"value" json:"value"`
	Quantity    int64              `bson:"quantity" json:"quantity"`
	Claimed     int64              `bson:"claimed" json:"claimed"`
	Probability float64            `bson:"probability" json:"probability"`
}

// IsUnlimited reports whether the prize has unlimited stock
func (p *Prize) IsUnlimited() bool {
	return p.Quantity == UnlimitedQuantity
}

// InStock reports whether the prize can still be awarded
func (p *Prize) InStock() bool {
	return p.IsUnlimited() || p.Quantity > 0
}

// IsWinning reports whether awarding this prize counts as a win
func (p *Prize) IsWinning() bool {
	return p.Type != PrizeTypeThanks
}
