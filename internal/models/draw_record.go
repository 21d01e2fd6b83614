package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DrawStatus tracks real-world fulfillment of a draw outcome
type DrawStatus string

const (
	DrawStatusPending   DrawStatus = "pending"
	DrawStatusClaimed   DrawStatus = "claimed"
	DrawStatusExpired   DrawStatus = "expired"
	DrawStatusCancelled DrawStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s DrawStatus) Valid() bool {
	switch s {
	case DrawStatusPending, DrawStatusClaimed, DrawStatusExpired, DrawStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status may advance to next.
// Only pending records move; every other status is terminal.
func (s DrawStatus) CanTransitionTo(next DrawStatus) bool {
	if s != DrawStatusPending {
		return false
	}
	return next == DrawStatusClaimed || next == DrawStatusExpired || next == DrawStatusCancelled
}

// DrawRecord is the immutable log entry for one completed draw.
// Prize fields are a snapshot taken at draw time.
type DrawRecord struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	UserID      string              `bson:"userId" json:"userId"`
	ActivityID  primitive.ObjectID  `bson:"activityId" json:"activityId"`
	PrizeID     *primitive.ObjectID `bson:"prizeId,omitempty" json:"prizeId,omitempty"`
	PrizeName   string              `bson:"prizeName" json:"prizeName"`
	PrizeType   PrizeType           `bson:"prizeType" json:"prizeType"`
	PrizeValue  int64               `bson:"prizeValue" json:"prizeValue"`
	PointsSpent int64               `bson:"pointsSpent" json:"pointsSpent"`
	Status      DrawStatus          `bson:"status" json:"status"`
	DrawDay     string              `bson:"drawDay" json:"drawDay"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IsWin reports whether the record awarded a winning prize
func (r *DrawRecord) IsWin() bool {
	return r.PrizeID != nil && r.PrizeType != PrizeTypeThanks
}

// Award snapshots prize into the record. Types that need fulfillment start pending.
func (r *DrawRecord) Award(prize *Prize) {
	id := prize.ID
	r.PrizeID = &id
	r.PrizeName = prize.Name
	r.PrizeType = prize.Type
	r.PrizeValue = prize.Value
	r.Status = DrawStatusPending
	if prize.Type.AutoClaimed() {
		r.Status = DrawStatusClaimed
	}
}

// RecordFilter narrows a scan over the draw record log
type RecordFilter struct {
	ActivityID *primitive.ObjectID
	UserID     string
	From       time.Time // inclusive, zero = unbounded
	To         time.Time // exclusive, zero = unbounded
}

// Matches reports whether r falls inside the filter
func (f RecordFilter) Matches(r *DrawRecord) bool {
	if f.ActivityID != nil && r.ActivityID != *f.ActivityID {
		return false
	}
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if !f.From.IsZero() && r.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !r.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

// StatusUpdateRequest is the admin payload for advancing a record's status
type StatusUpdateRequest struct {
	Status DrawStatus `json:"status" binding:"required"`
}
