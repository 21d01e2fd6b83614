package models

import "time"

// PointsAccount is a user's balance in the Mongo-backed points ledger
type PointsAccount struct {
	UserID    string    `bson:"_id" json:"userId"`
	Balance   int64     `bson:"balance" json:"balance"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
