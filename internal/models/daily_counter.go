package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CounterKey identifies one (user, activity, reference day) draw counter
type CounterKey struct {
	UserID     string
	ActivityID primitive.ObjectID
	Day        string // YYYY-MM-DD in the reference timezone
}

// String returns the storage id for the key
func (k CounterKey) String() string {
	return k.UserID + ":" + k.ActivityID.Hex() + ":" + k.Day
}

// DailyDrawCounter counts a user's draws on one activity for one reference day
type DailyDrawCounter struct {
	ID         string             `bson:"_id" json:"id"`
	UserID     string             `bson:"userId" json:"userId"`
	ActivityID primitive.ObjectID `bson:"activityId" json:"activityId"`
	Day        string             `bson:"day" json:"day"`
	Count      int                `bson:"count" json:"count"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
