package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultTopN is used when a statistics query does not set a ranking size
const DefaultTopN = 10

// StatisticsService derives rollups from the draw record log. It never writes.
type StatisticsService struct {
	records repositories.DrawRecordRepository
	logger  *zap.Logger
}

// NewStatisticsService creates a new StatisticsService
func NewStatisticsService(records repositories.DrawRecordRepository, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{records: records, logger: logger}
}

type rollupAcc struct {
	draws, wins, points int64
}

type prizeAcc struct {
	row   models.PrizeCount
	first int
}

// Compute scans the records matching the query and aggregates them
func (s *StatisticsService) Compute(ctx context.Context, q models.StatisticsQuery) (*models.Statistics, error) {
	topN := q.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	var totals models.StatisticsTotals
	users := make(map[string]*rollupAcc)
	activities := make(map[string]*rollupAcc)
	byType := make(map[models.PrizeType]int64)
	prizes := make(map[primitive.ObjectID]*prizeAcc)

	err := s.records.Stream(ctx, q.Filter, func(r *models.DrawRecord) error {
		totals.TotalDraws++
		totals.TotalPointsSpent += r.PointsSpent
		win := r.IsWin()
		if win {
			totals.TotalWins++
		}

		byType[r.PrizeType]++
		accumulate(users, r.UserID, r, win)
		accumulate(activities, r.ActivityID.Hex(), r, win)

		if win {
			p, ok := prizes[*r.PrizeID]
			if !ok {
				p = &prizeAcc{
					row: models.PrizeCount{
						PrizeID:    *r.PrizeID,
						ActivityID: r.ActivityID,
						Name:       r.PrizeName,
						Type:       r.PrizeType,
					},
					first: len(prizes),
				}
				prizes[*r.PrizeID] = p
			}
			p.row.Count++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan draw records: %w", err)
	}

	totals.UniqueParticipants = int64(len(users))
	totals.WinRate = ratio(totals.TotalWins, totals.TotalDraws)

	return &models.Statistics{
		Totals:              totals,
		Distribution:        distribution(byType, totals.TotalDraws),
		TopPrizes:           topPrizes(prizes, topN),
		ActivityLeaderboard: leaderboard(activities, topN),
		UserLeaderboard:     leaderboard(users, topN),
	}, nil
}

func accumulate(m map[string]*rollupAcc, key string, r *models.DrawRecord, win bool) {
	acc, ok := m[key]
	if !ok {
		acc = &rollupAcc{}
		m[key] = acc
	}
	acc.draws++
	acc.points += r.PointsSpent
	if win {
		acc.wins++
	}
}

func ratio(n, d int64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func distribution(byType map[models.PrizeType]int64, total int64) []models.PrizeTypeShare {
	shares := make([]models.PrizeTypeShare, 0, len(byType))
	for t, n := range byType {
		shares = append(shares, models.PrizeTypeShare{
			Type:       t,
			Count:      n,
			Percentage: ratio(n, total) * 100,
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Type < shares[j].Type
	})
	return shares
}

func topPrizes(prizes map[primitive.ObjectID]*prizeAcc, n int) []models.PrizeCount {
	accs := make([]*prizeAcc, 0, len(prizes))
	for _, p := range prizes {
		accs = append(accs, p)
	}
	sort.Slice(accs, func(i, j int) bool {
		if accs[i].row.Count != accs[j].row.Count {
			return accs[i].row.Count > accs[j].row.Count
		}
		return accs[i].first < accs[j].first
	})
	if len(accs) > n {
		accs = accs[:n]
	}

	rows := make([]models.PrizeCount, 0, len(accs))
	for _, p := range accs {
		rows = append(rows, p.row)
	}
	return rows
}

func leaderboard(m map[string]*rollupAcc, n int) []models.Rollup {
	rows := make([]models.Rollup, 0, len(m))
	for key, acc := range m {
		rows = append(rows, models.Rollup{
			Key:         key,
			Draws:       acc.draws,
			Wins:        acc.wins,
			PointsSpent: acc.points,
			WinRate:     ratio(acc.wins, acc.draws),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Draws != rows[j].Draws {
			return rows[i].Draws > rows[j].Draws
		}
		if rows[i].Wins != rows[j].Wins {
			return rows[i].Wins > rows[j].Wins
		}
		return rows[i].Key < rows[j].Key
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}
