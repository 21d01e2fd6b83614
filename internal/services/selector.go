package services

import (
	"math/rand"
	"sync"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Selector picks one prize per draw by cumulative weight over the ordered prize list.
// Weights are the configured probabilities; prizes out of stock or excluded drop out
// of the pool and their share becomes part of the residual no-win bucket.
type Selector struct {
	mu  sync.Mutex
	rnd func() float64
}

// NewSelector creates a Selector. rnd must return values uniform in [0, 1);
// nil uses math/rand.
func NewSelector(rnd func() float64) *Selector {
	if rnd == nil {
		rnd = rand.Float64
	}
	return &Selector{rnd: rnd}
}

// NewSeededSelector creates a deterministic Selector for simulations and tests
func NewSeededSelector(seed int64) *Selector {
	return NewSelector(rand.New(rand.NewSource(seed)).Float64)
}

// Choose returns the selected prize or nil for no win
func (s *Selector) Choose(prizes []models.Prize, exclude map[primitive.ObjectID]bool) *models.Prize {
	s.mu.Lock()
	r := s.rnd() * models.MaxProbabilitySum
	s.mu.Unlock()

	var cumulative float64
	for i := range prizes {
		p := &prizes[i]
		if p.Probability <= 0 || !p.InStock() || exclude[p.ID] {
			continue
		}
		cumulative += p.Probability
		if r < cumulative {
			return p
		}
	}
	return nil
}
