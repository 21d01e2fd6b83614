package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories"
	lru "github.com/hashicorp/golang-lru"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	maxUpdateAttempts  = 3
	probabilityEpsilon = 1e-9
	cacheLoadTimeout   = 5 * time.Second
)

// cachedViews is an activity listing with the time it was loaded
type cachedViews struct {
	value     interface{}
	timestamp time.Time
}

// ActivityService serves activity listings and validates admin writes.
// Listings are cached briefly; the draw path always reads the repository.
type ActivityService struct {
	repo     repositories.ActivityRepository
	cache    *lru.Cache
	cacheTTL time.Duration
	group    singleflight.Group
	logger   *zap.Logger
}

// NewActivityService creates a new ActivityService
func NewActivityService(repo repositories.ActivityRepository, cacheSize int, cacheTTL time.Duration, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, _ := lru.New(cacheSize)
	return &ActivityService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// List returns public views of activities, optionally only active ones
func (s *ActivityService) List(ctx context.Context, activeOnly bool) ([]models.ActivityView, error) {
	key := "list:all"
	if activeOnly {
		key = "list:active"
	}
	v, err := s.cached(ctx, key, func(ctx context.Context) (interface{}, error) {
		activities, err := s.repo.FindAll(ctx, activeOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to list activities: %w", err)
		}
		views := make([]models.ActivityView, 0, len(activities))
		for _, a := range activities {
			views = append(views, a.View())
		}
		return views, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.ActivityView), nil
}

// Get returns the public view of one activity
func (s *ActivityService) Get(ctx context.Context, id primitive.ObjectID) (models.ActivityView, error) {
	v, err := s.cached(ctx, "activity:"+id.Hex(), func(ctx context.Context) (interface{}, error) {
		a, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrActivityNotFound
			}
			return nil, fmt.Errorf("failed to load activity: %w", err)
		}
		return a.View(), nil
	})
	if err != nil {
		return models.ActivityView{}, err
	}
	return v.(models.ActivityView), nil
}

// cached serves key from the cache or loads it once for all concurrent callers.
// The load runs detached from any single caller, so one caller giving up
// neither fails the others nor aborts the load.
func (s *ActivityService) cached(ctx context.Context, key string, load func(context.Context) (interface{}, error)) (interface{}, error) {
	if entry, ok := s.cache.Get(key); ok {
		c := entry.(cachedViews)
		if time.Since(c.timestamp) < s.cacheTTL {
			return c.value, nil
		}
		s.cache.Remove(key)
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheLoadTimeout)
		defer cancel()

		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if s.cacheTTL > 0 {
			s.cache.Add(key, cachedViews{value: value, timestamp: time.Now()})
		}
		return value, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Create validates and stores a new activity
func (s *ActivityService) Create(ctx context.Context, req *models.ActivityRequest) (*models.Activity, error) {
	activity := &models.Activity{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		CostPoints:  req.CostPoints,
		DailyLimit:  req.DailyLimit,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsActive:    req.IsActive,
		Prizes:      make([]models.Prize, 0, len(req.Prizes)),
	}
	for _, pr := range req.Prizes {
		activity.Prizes = append(activity.Prizes, newPrize(pr))
	}

	if err := validateActivity(activity); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}

	s.cache.Purge()
	s.logger.Info("Activity created", zap.String("activity_id", activity.ID.Hex()), zap.Int("prizes", len(activity.Prizes)))
	return activity, nil
}

// Update replaces an activity's settings and prize table.
// Existing prizes are referenced by id and keep their claimed count; a prize's
// quantity is its new total allotment and may not drop below what was claimed.
func (s *ActivityService) Update(ctx context.Context, id primitive.ObjectID, req *models.ActivityRequest) (*models.Activity, error) {
	return s.mutate(ctx, id, func(a *models.Activity) error {
		prizes := make([]models.Prize, 0, len(req.Prizes))
		for _, pr := range req.Prizes {
			if pr.ID == "" {
				prizes = append(prizes, newPrize(pr))
				continue
			}
			prizeID, err := primitive.ObjectIDFromHex(pr.ID)
			if err != nil {
				return fmt.Errorf("%w: invalid prize id %q", ErrInvalidActivity, pr.ID)
			}
			existing := a.FindPrize(prizeID)
			if existing == nil {
				return fmt.Errorf("%w: unknown prize id %s", ErrInvalidActivity, pr.ID)
			}
			merged, err := mergePrize(*existing, pr)
			if err != nil {
				return err
			}
			prizes = append(prizes, merged)
		}

		a.Name = strings.TrimSpace(req.Name)
		a.Description = req.Description
		a.CostPoints = req.CostPoints
		a.DailyLimit = req.DailyLimit
		a.StartTime = req.StartTime
		a.EndTime = req.EndTime
		a.IsActive = req.IsActive
		a.Prizes = prizes
		return nil
	})
}

// AppendPrizes adds new prizes to an activity, as used by the CSV import
func (s *ActivityService) AppendPrizes(ctx context.Context, id primitive.ObjectID, reqs []models.PrizeRequest) (*models.Activity, error) {
	return s.mutate(ctx, id, func(a *models.Activity) error {
		for _, pr := range reqs {
			a.Prizes = append(a.Prizes, newPrize(pr))
		}
		return nil
	})
}

// mutate applies fn to a fresh copy of the activity and stores it, retrying
// when a concurrent draw or write changed the stored version in between.
func (s *ActivityService) mutate(ctx context.Context, id primitive.ObjectID, fn func(*models.Activity) error) (*models.Activity, error) {
	for attempt := 1; ; attempt++ {
		activity, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrActivityNotFound
			}
			return nil, fmt.Errorf("failed to load activity: %w", err)
		}

		if err := fn(activity); err != nil {
			return nil, err
		}
		if err := validateActivity(activity); err != nil {
			return nil, err
		}

		err = s.repo.Update(ctx, activity)
		switch {
		case err == nil:
			s.cache.Purge()
			s.logger.Info("Activity updated", zap.String("activity_id", id.Hex()), zap.Int64("version", activity.Version))
			return activity, nil
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrActivityNotFound
		case errors.Is(err, repositories.ErrConflict) && attempt < maxUpdateAttempts:
			s.logger.Debug("Activity changed during update, retrying", zap.String("activity_id", id.Hex()), zap.Int("attempt", attempt))
			continue
		default:
			return nil, fmt.Errorf("failed to update activity: %w", err)
		}
	}
}

func newPrize(pr models.PrizeRequest) models.Prize {
	return models.Prize{
		ID:          primitive.NewObjectID(),
		Name:        strings.TrimSpace(pr.Name),
		Type:        pr.Type,
		Value:       pr.Value,
		Quantity:    pr.Quantity,
		Probability: pr.Probability,
	}
}

func mergePrize(existing models.Prize, pr models.PrizeRequest) (models.Prize, error) {
	merged := existing
	merged.Name = strings.TrimSpace(pr.Name)
	merged.Type = pr.Type
	merged.Value = pr.Value
	merged.Probability = pr.Probability

	switch {
	case pr.Quantity == models.UnlimitedQuantity:
		merged.Quantity = models.UnlimitedQuantity
	case pr.Quantity < models.UnlimitedQuantity:
		return merged, fmt.Errorf("%w: prize %q quantity must be -1 or greater", ErrInvalidActivity, pr.Name)
	case pr.Quantity < existing.Claimed:
		return merged, fmt.Errorf("%w: prize %q total %d, claimed %d", ErrQuantityBelowClaimed, pr.Name, pr.Quantity, existing.Claimed)
	default:
		merged.Quantity = pr.Quantity - existing.Claimed
	}
	return merged, nil
}

func validateActivity(a *models.Activity) error {
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidActivity)
	}
	if a.CostPoints < 0 {
		return fmt.Errorf("%w: costPoints must not be negative", ErrInvalidActivity)
	}
	if a.DailyLimit < 0 {
		return fmt.Errorf("%w: dailyLimit must not be negative", ErrInvalidActivity)
	}
	if a.StartTime.IsZero() {
		return fmt.Errorf("%w: startTime is required", ErrInvalidActivity)
	}
	if a.EndTime != nil && !a.EndTime.After(a.StartTime) {
		return fmt.Errorf("%w: endTime must be after startTime", ErrInvalidActivity)
	}

	for i := range a.Prizes {
		p := &a.Prizes[i]
		switch {
		case p.Name == "":
			return fmt.Errorf("%w: prize %d has no name", ErrInvalidActivity, i+1)
		case !p.Type.Valid():
			return fmt.Errorf("%w: prize %q has unknown type %q", ErrInvalidActivity, p.Name, p.Type)
		case math.IsNaN(p.Probability) || p.Probability < 0 || p.Probability > models.MaxProbabilitySum:
			return fmt.Errorf("%w: prize %q probability must be within 0-100", ErrInvalidActivity, p.Name)
		case p.Quantity < models.UnlimitedQuantity:
			return fmt.Errorf("%w: prize %q quantity must be -1 or greater", ErrInvalidActivity, p.Name)
		case p.Value < 0:
			return fmt.Errorf("%w: prize %q value must not be negative", ErrInvalidActivity, p.Name)
		}
	}

	if sum := a.ProbabilitySum(); sum > models.MaxProbabilitySum+probabilityEpsilon {
		return fmt.Errorf("%w: sum is %.4f", ErrProbabilityOverflow, sum)
	}
	return nil
}
