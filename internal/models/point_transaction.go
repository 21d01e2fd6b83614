package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PointTransaction records one debit applied by the Mongo-backed points ledger.
// Reference is unique, which makes a retried debit a no-op.
type PointTransaction struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string             `bson:"userId" json:"userId"`
	Amount    int64              `bson:"amount" json:"amount"` // negative for debits
	Reference string             `bson:"reference" json:"reference"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
