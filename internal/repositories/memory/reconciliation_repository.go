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

var _ repositories.ReconciliationRepository = (*ReconciliationRepository)(nil)

// ReconciliationRepository keeps reconciliation entries in memory
type ReconciliationRepository struct {
	mu      sync.Mutex
	entries map[primitive.ObjectID]*models.Reconciliation
}

// NewReconciliationRepository creates an empty store
func NewReconciliationRepository() *ReconciliationRepository {
	return &ReconciliationRepository{
		entries: make(map[primitive.ObjectID]*models.Reconciliation),
	}
}

func (r *ReconciliationRepository) Create(ctx context.Context, entry *models.Reconciliation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	stored := *entry
	r.entries[entry.ID] = &stored
	return nil
}

func (r *ReconciliationRepository) FindByStatus(ctx context.Context, status models.ReconciliationStatus, limit int) ([]*models.Reconciliation, error) {
	r.mu.Lock()
	out := make([]*models.Reconciliation, 0)
	for _, e := range r.entries {
		if e.Status == status {
			c := *e
			out = append(out, &c)
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Attempts != out[j].Attempts {
			return out[i].Attempts < out[j].Attempts
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ReconciliationRepository) MarkResolved(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return repositories.ErrNotFound
	}
	now := time.Now()
	e.Status = models.ReconciliationResolved
	e.Attempts++
	e.UpdatedAt = now
	e.ResolvedAt = &now
	return nil
}

func (r *ReconciliationRepository) RecordFailure(ctx context.Context, id primitive.ObjectID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return repositories.ErrNotFound
	}
	e.Attempts++
	e.LastError = reason
	e.UpdatedAt = time.Now()
	return nil
}

func (r *ReconciliationRepository) CountByStatus(ctx context.Context, status models.ReconciliationStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.entries {
		if e.Status == status {
			n++
		}
	}
	return n, nil
}
