package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatisticsQuery parameterizes the aggregator
type StatisticsQuery struct {
	Filter RecordFilter
	TopN   int
}

// StatisticsTotals are the headline numbers for a query
type StatisticsTotals struct {
	TotalDraws         int64   `json:"totalDraws"`
	UniqueParticipants int64   `json:"uniqueParticipants"`
	TotalPointsSpent   int64   `json:"totalPointsSpent"`
	TotalWins          int64   `json:"totalWins"`
	WinRate            float64 `json:"winRate"`
}

// PrizeTypeShare is one row of the prize-type distribution
type PrizeTypeShare struct {
	Type       PrizeType `json:"type"`
	Count      int64     `json:"count"`
	Percentage float64   `json:"percentage"`
}

// PrizeCount is one row of the top-prize ranking
type PrizeCount struct {
	PrizeID    primitive.ObjectID `json:"prizeId"`
	ActivityID primitive.ObjectID `json:"activityId"`
	Name       string             `json:"name"`
	Type       PrizeType          `json:"type"`
	Count      int64              `json:"count"`
}

// Rollup aggregates draws for one activity or one user
type Rollup struct {
	Key         string  `json:"key"`
	Draws       int64   `json:"draws"`
	Wins        int64   `json:"wins"`
	PointsSpent int64   `json:"pointsSpent"`
	WinRate     float64 `json:"winRate"`
}

// Statistics is the aggregator output
type Statistics struct {
	Totals              StatisticsTotals `json:"totals"`
	Distribution        []PrizeTypeShare `json:"distribution"`
	TopPrizes           []PrizeCount     `json:"topPrizes"`
	ActivityLeaderboard []Rollup         `json:"activityLeaderboard"`
	UserLeaderboard     []Rollup         `json:"userLeaderboard"`
}
