package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.DrawRecordRepository = (*DrawRecordRepository)(nil)

// DrawRecordRepository is an append-only in-memory draw log
type DrawRecordRepository struct {
	mu         sync.RWMutex
	records    []*models.DrawRecord
	byID       map[primitive.ObjectID]*models.DrawRecord
	createHook func(*models.DrawRecord) error
}

// NewDrawRecordRepository creates an empty draw log
func NewDrawRecordRepository() *DrawRecordRepository {
	return &DrawRecordRepository{
		byID: make(map[primitive.ObjectID]*models.DrawRecord),
	}
}

// SetCreateHook installs a function run before every insert; a non-nil error aborts the insert.
func (r *DrawRecordRepository) SetCreateHook(fn func(*models.DrawRecord) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createHook = fn
}

// Create appends a record
func (r *DrawRecordRepository) Create(ctx context.Context, record *models.DrawRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createHook != nil {
		if err := r.createHook(record); err != nil {
			return err
		}
	}
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	if _, exists := r.byID[record.ID]; exists {
		return repositories.ErrDuplicate
	}
	stored := *record
	r.records = append(r.records, &stored)
	r.byID[stored.ID] = &stored
	return nil
}

// FindByID returns a copy of the record
func (r *DrawRecordRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.DrawRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *rec
	return &out, nil
}

// FindByUserID returns a page of the user's records, newest first
func (r *DrawRecordRepository) FindByUserID(ctx context.Context, userID string, page, limit int) ([]*models.DrawRecord, error) {
	r.mu.RLock()
	var mine []*models.DrawRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			out := *rec
			mine = append(mine, &out)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(mine, func(i, j int) bool {
		return mine[i].CreatedAt.After(mine[j].CreatedAt)
	})

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(mine) {
		return []*models.DrawRecord{}, nil
	}
	end := start + limit
	if end > len(mine) {
		end = len(mine)
	}
	return mine[start:end], nil
}

// UpdateStatus advances a record from one status to another
func (r *DrawRecordRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.DrawStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok || rec.Status != from {
		return repositories.ErrNotFound
	}
	rec.Status = to
	rec.UpdatedAt = time.Now()
	return nil
}

// ExpirePending moves pending records created before the cutoff to expired
func (r *DrawRecordRepository) ExpirePending(ctx context.Context, createdBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for _, rec := range r.records {
		if rec.Status == models.DrawStatusPending && rec.CreatedAt.Before(createdBefore) {
			rec.Status = models.DrawStatusExpired
			rec.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// Stream calls fn for every record matching filter in insertion order
func (r *DrawRecordRepository) Stream(ctx context.Context, filter models.RecordFilter, fn func(*models.DrawRecord) error) error {
	r.mu.RLock()
	matched := make([]models.DrawRecord, 0, len(r.records))
	for _, rec := range r.records {
		if filter.Matches(rec) {
			matched = append(matched, *rec)
		}
	}
	r.mu.RUnlock()

	for i := range matched {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(&matched[i]); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored records
func (r *DrawRecordRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
