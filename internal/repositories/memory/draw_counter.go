package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories"
)

var _ repositories.DrawCounter = (*DrawCounter)(nil)

// DrawCounter keeps one atomic cell per (user, activity, day) key
type DrawCounter struct {
	cells sync.Map // string -> *atomic.Int64
}

// NewDrawCounter creates an empty counter arena
func NewDrawCounter() *DrawCounter {
	return &DrawCounter{}
}

func (c *DrawCounter) cell(key models.CounterKey) *atomic.Int64 {
	v, _ := c.cells.LoadOrStore(key.String(), new(atomic.Int64))
	return v.(*atomic.Int64)
}

// Reserve increments the counter if it is below limit
func (c *DrawCounter) Reserve(ctx context.Context, key models.CounterKey, limit int) (bool, error) {
	cell := c.cell(key)
	for {
		cur := cell.Load()
		if limit > 0 && cur >= int64(limit) {
			return false, nil
		}
		if cell.CompareAndSwap(cur, cur+1) {
			return true, nil
		}
	}
}

// Release gives back one reserved slot
func (c *DrawCounter) Release(ctx context.Context, key models.CounterKey) error {
	cell := c.cell(key)
	for {
		cur := cell.Load()
		if cur <= 0 {
			return nil
		}
		if cell.CompareAndSwap(cur, cur-1) {
			return nil
		}
	}
}

// Count returns the current value for key
func (c *DrawCounter) Count(ctx context.Context, key models.CounterKey) (int, error) {
	v, ok := c.cells.Load(key.String())
	if !ok {
		return 0, nil
	}
	return int(v.(*atomic.Int64).Load()), nil
}
