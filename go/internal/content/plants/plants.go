package plants

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/google/uuid"

	"github.com/floraclash/floraclash/go/internal/content"
	"github.com/floraclash/floraclash/go/internal/models"
)

// PlantsProvider serves plant identification questions from the built-in
// catalog. Question order is derived from the match id, so both players of
// a match always see the same sequence and no question repeats within the
// usual round count.
type PlantsProvider struct {
	catalog []models.Question
}

// init registers the plants provider with the content registry.
func init() {
	provider := &PlantsProvider{}
	if err := content.RegisterProvider("plants", provider); err != nil {
		panic(fmt.Sprintf("Failed to register plants provider: %v", err))
	}
}

// Init loads the built-in catalog.
func (p *PlantsProvider) Init() error {
	p.catalog = Catalog()
	if len(p.catalog) == 0 {
		return fmt.Errorf("plants catalog is empty")
	}
	return nil
}

// NextQuestion returns the question for the given round of a match. The
// selection is a per-match shuffle seeded from the match id, wrapping
// around when rounds outnumber the catalog.
func (p *PlantsProvider) NextQuestion(_ context.Context, matchID uuid.UUID, round int) (models.Question, error) {
	if len(p.catalog) == 0 {
		return models.Question{}, fmt.Errorf("plants provider not initialized")
	}
	if round < 1 {
		return models.Question{}, fmt.Errorf("round must be positive, got %d", round)
	}

	rng := rand.New(rand.NewSource(matchSeed(matchID)))
	order := rng.Perm(len(p.catalog))
	idx := order[(round-1)%len(order)]
	return p.catalog[idx], nil
}

func matchSeed(matchID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(matchID[:])
	return int64(h.Sum64())
}
