package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repositories.ActivityRepository = (*ActivityRepository)(nil)
	_ repositories.StockLedger        = (*ActivityRepository)(nil)
)

// stockCell is the keyed stock counter for one prize
type stockCell struct {
	mu        sync.Mutex
	remaining int64
	claimed   int64
	removed   bool // the prize was dropped from the activity
}

type activityEntry struct {
	def     *models.Activity
	version atomic.Int64
	cells   map[primitive.ObjectID]*stockCell
}

// ActivityRepository keeps activity definitions in memory and owns their prize stock.
// Stock mutations lock only the cell of the prize being decremented.
type ActivityRepository struct {
	mu      sync.RWMutex
	entries map[primitive.ObjectID]*activityEntry
}

// NewActivityRepository creates an empty in-memory activity store
func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{
		entries: make(map[primitive.ObjectID]*activityEntry),
	}
}

// Create stores a new activity, assigning ids where missing
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID.IsZero() {
		activity.ID = primitive.NewObjectID()
	}
	for i := range activity.Prizes {
		if activity.Prizes[i].ID.IsZero() {
			activity.Prizes[i].ID = primitive.NewObjectID()
		}
	}
	now := time.Now()
	activity.CreatedAt = now
	activity.UpdatedAt = now
	activity.Version = 0

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[activity.ID]; exists {
		return repositories.ErrDuplicate
	}

	entry := &activityEntry{
		def:   activity.Clone(),
		cells: make(map[primitive.ObjectID]*stockCell, len(activity.Prizes)),
	}
	for _, p := range activity.Prizes {
		entry.cells[p.ID] = &stockCell{remaining: p.Quantity, claimed: p.Claimed}
	}
	r.entries[activity.ID] = entry
	return nil
}

// FindByID returns a snapshot of the activity with current stock
func (r *ActivityRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return entry.snapshot(), nil
}

// FindAll returns every activity, newest first
func (r *ActivityRepository) FindAll(ctx context.Context, activeOnly bool) ([]*models.Activity, error) {
	r.mu.RLock()
	activities := make([]*models.Activity, 0, len(r.entries))
	for _, entry := range r.entries {
		if activeOnly && !entry.def.IsActive {
			continue
		}
		activities = append(activities, entry.snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(activities, func(i, j int) bool {
		if activities[i].CreatedAt.Equal(activities[j].CreatedAt) {
			return activities[i].ID.Hex() > activities[j].ID.Hex()
		}
		return activities[i].CreatedAt.After(activities[j].CreatedAt)
	})
	return activities, nil
}

// Update replaces the definition and stock if no decrement or write happened since activity was read
func (r *ActivityRepository) Update(ctx context.Context, activity *models.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[activity.ID]
	if !ok {
		return repositories.ErrNotFound
	}

	// Holding every cell lock blocks in-flight decrements until the new stock is in place.
	locked := entry.cells
	for _, cell := range locked {
		cell.mu.Lock()
	}
	defer func() {
		for _, cell := range locked {
			cell.mu.Unlock()
		}
	}()

	if entry.version.Load() != activity.Version {
		return repositories.ErrConflict
	}

	cells := make(map[primitive.ObjectID]*stockCell, len(activity.Prizes))
	for i := range activity.Prizes {
		p := &activity.Prizes[i]
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		if cell, exists := locked[p.ID]; exists {
			cell.remaining = p.Quantity
			cell.claimed = p.Claimed
			cells[p.ID] = cell
			continue
		}
		cells[p.ID] = &stockCell{remaining: p.Quantity, claimed: p.Claimed}
	}

	for id, cell := range locked {
		if _, kept := cells[id]; !kept {
			cell.removed = true
		}
	}

	activity.UpdatedAt = time.Now()
	activity.CreatedAt = entry.def.CreatedAt
	activity.Version = entry.version.Add(1)
	entry.def = activity.Clone()
	entry.cells = cells
	return nil
}

// TryDecrement removes one unit of stock from the prize if any remains
func (r *ActivityRepository) TryDecrement(ctx context.Context, activityID, prizeID primitive.ObjectID) (bool, error) {
	r.mu.RLock()
	entry, ok := r.entries[activityID]
	var cell *stockCell
	if ok {
		cell = entry.cells[prizeID]
	}
	r.mu.RUnlock()

	if cell == nil {
		return false, repositories.ErrNotFound
	}

	return entry.take(cell), nil
}

// take removes one unit from cell. The cell may have been dropped by an
// Update between the lookup and the lock, in which case nothing is awarded.
func (e *activityEntry) take(cell *stockCell) bool {
	cell.mu.Lock()
	defer cell.mu.Unlock()

	if cell.removed {
		return false
	}
	if cell.remaining == models.UnlimitedQuantity {
		return true
	}
	if cell.remaining <= 0 {
		return false
	}
	cell.remaining--
	cell.claimed++
	e.version.Add(1)
	return true
}

func (e *activityEntry) snapshot() *models.Activity {
	version := e.version.Load()
	a := e.def.Clone()
	a.Version = version
	for i := range a.Prizes {
		cell, ok := e.cells[a.Prizes[i].ID]
		if !ok {
			continue
		}
		cell.mu.Lock()
		a.Prizes[i].Quantity = cell.remaining
		a.Prizes[i].Claimed = cell.claimed
		cell.mu.Unlock()
	}
	return a
}
