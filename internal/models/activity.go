package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxProbabilitySum is the ceiling for the sum of prize probabilities in one activity
const MaxProbabilitySum = 100.0

// Activity is a configured lottery campaign
type Activity struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CostPoints  int64              `bson:"costPoints" json:"costPoints"`
	DailyLimit  int                `bson:"dailyLimit" json:"dailyLimit"` // 0 = unlimited
	StartTime   time.Time          `bson:"startTime" json:"startTime"`
	EndTime     *time.Time         `bson:"endTime,omitempty" json:"endTime,omitempty"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	Prizes      []Prize            `bson:"prizes" json:"prizes"`
	// Version is bumped by every stock decrement and every admin write.
	Version   int64     `bson:"version" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// FindPrize returns the prize with the given id, or nil
func (a *Activity) FindPrize(id primitive.ObjectID) *Prize {
	for i := range a.Prizes {
		if a.Prizes[i].ID == id {
			return &a.Prizes[i]
		}
	}
	return nil
}

// ProbabilitySum returns the configured weight of all prizes
func (a *Activity) ProbabilitySum() float64 {
	var sum float64
	for _, p := range a.Prizes {
		sum += p.Probability
	}
	return sum
}

// Clone returns a deep copy safe to mutate
func (a *Activity) Clone() *Activity {
	c := *a
	c.Prizes = append([]Prize(nil), a.Prizes...)
	if a.EndTime != nil {
		end := *a.EndTime
		c.EndTime = &end
	}
	return &c
}

// PrizeView is the public rendering of a prize. Raw stock is never exposed.
type PrizeView struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Type        PrizeType          `json:"type"`
	Value       int64              `json:"value"`
	Probability float64            `json:"probability"`
	Available   bool               `json:"available"`
}

// ActivityView is the public rendering of an activity
type ActivityView struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	CostPoints  int64              `json:"costPoints"`
	DailyLimit  int                `json:"dailyLimit"`
	StartTime   time.Time          `json:"startTime"`
	EndTime     *time.Time         `json:"endTime,omitempty"`
	IsActive    bool               `json:"isActive"`
	Prizes      []PrizeView        `json:"prizes"`
}

// View renders the activity for public listing
func (a *Activity) View() ActivityView {
	prizes := make([]PrizeView, 0, len(a.Prizes))
	for i := range a.Prizes {
		p := &a.Prizes[i]
		prizes = append(prizes, PrizeView{
			ID:          p.ID,
			Name:        p.Name,
			Type:        p.Type,
			Value:       p.Value,
			Probability: p.Probability,
			Available:   p.InStock(),
		})
	}
	return ActivityView{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		CostPoints:  a.CostPoints,
		DailyLimit:  a.DailyLimit,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		IsActive:    a.IsActive,
		Prizes:      prizes,
	}
}

// ActivityRequest is the admin payload for creating or updating an activity
type ActivityRequest struct {
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	CostPoints  int64          `json:"costPoints"`
	DailyLimit  int            `json:"dailyLimit"`
	StartTime   time.Time      `json:"startTime" binding:"required"`
	EndTime     *time.Time     `json:"endTime"`
	IsActive    bool           `json:"isActive"`
	Prizes      []PrizeRequest `json:"prizes"`
}

// PrizeRequest describes one prize in an admin payload.
// Quantity is the total allotment (-1 = unlimited); ID refers to an existing prize on update.
type PrizeRequest struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name" binding:"required"`
	Type        PrizeType `json:"type" binding:"required"`
	Value       int64     `json:"value"`
	Quantity    int64     `json:"quantity"`
	Probability float64   `json:"probability"`
}
