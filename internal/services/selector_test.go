package services

import (
	"testing"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func fixedRand(v float64) func() float64 {
	return func() float64 { return v }
}

func prize(name string, prob float64, qty int64) models.Prize {
	return models.Prize{ID: primitive.NewObjectID(), Name: name, Type: models.PrizeTypePoints, Value: 1, Quantity: qty, Probability: prob}
}

func TestSelector_CumulativeLookup(t *testing.T) {
	prizes := []models.Prize{prize("A", 20, -1), prize("B", 10, -1)}

	tests := []struct {
		name string
		rnd  float64
		want string
	}{
		{"start of first bucket", 0.0, "A"},
		{"end of first bucket", 0.1999, "A"},
		{"second bucket", 0.25, "B"},
		{"boundary goes to next bucket", 0.2, "B"},
		{"residual is no win", 0.35, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewSelector(fixedRand(tt.rnd)).Choose(prizes, nil)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, tt.want, got.Name)
			}
		})
	}
}

func TestSelector_SkipsExcludedExhaustedAndZeroWeight(t *testing.T) {
	zero := prize("zero", 0, -1)
	a := prize("A", 20, 3)
	b := prize("B", 10, -1)
	empty := prize("empty", 30, 0)
	prizes := []models.Prize{zero, empty, a, b}

	s := NewSelector(fixedRand(0.0))
	assert.Equal(t, "A", s.Choose(prizes, nil).Name)

	s = NewSelector(fixedRand(0.05))
	assert.Equal(t, "B", s.Choose(prizes, map[primitive.ObjectID]bool{a.ID: true}).Name)

	// the excluded prize's share is not handed to B
	s = NewSelector(fixedRand(0.15))
	assert.Nil(t, s.Choose(prizes, map[primitive.ObjectID]bool{a.ID: true}))
}

func TestSelector_ProbabilityConvergence(t *testing.T) {
	prizes := []models.Prize{prize("A", 20, -1), prize("B", 10, -1), prize("C", 45.5, -1)}
	const draws = 100000

	s := NewSeededSelector(42)
	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		if p := s.Choose(prizes, nil); p != nil {
			counts[p.Name]++
		} else {
			counts["none"]++
		}
	}

	expected := map[string]float64{"A": 20, "B": 10, "C": 45.5, "none": 24.5}
	for name, want := range expected {
		got := float64(counts[name]) * 100 / draws
		assert.InDelta(t, want, got, 1.0, "prize %s", name)
	}
}

func TestSelector_ExhaustionRaisesNoWinNotOtherPrizes(t *testing.T) {
	exhausted := prize("P", 20, 0)
	other := prize("Q", 30, -1)
	prizes := []models.Prize{exhausted, other}
	const draws = 100000

	s := NewSeededSelector(7)
	var wins, none int
	for i := 0; i < draws; i++ {
		p := s.Choose(prizes, nil)
		switch {
		case p == nil:
			none++
		case p.Name == "P":
			t.Fatal("exhausted prize selected")
		default:
			wins++
		}
	}

	assert.InDelta(t, 30.0, float64(wins)*100/draws, 1.0)
	assert.InDelta(t, 70.0, float64(none)*100/draws, 1.0)
}
