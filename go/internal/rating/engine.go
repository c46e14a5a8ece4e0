package rating

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/floraclash/floraclash/go/internal/models"
)

const (
	DefaultKFactor = 32
	DefaultFloor   = 100
)

// Outcome is a match result seen from one player's side.
type Outcome float64

const (
	OutcomeLoss Outcome = 0
	OutcomeDraw Outcome = 0.5
	OutcomeWin  Outcome = 1
)

// Config tunes the engine. Zero values fall back to the defaults above.
type Config struct {
	KFactor int    `yaml:"k_factor"`
	Floor   int    `yaml:"floor"`
	Tiers   []Tier `yaml:"tiers"`
}

// Engine performs logistic ELO updates with a rating floor and rank-tier
// detection. It is stateless and safe for concurrent use.
type Engine struct {
	k     float64
	floor int
	tiers []Tier
}

// NewEngine builds an engine from cfg, filling in defaults for anything
// unset and keeping tiers sorted by threshold.
func NewEngine(cfg Config) *Engine {
	if cfg.KFactor <= 0 {
		cfg.KFactor = DefaultKFactor
	}
	if cfg.Floor <= 0 {
		cfg.Floor = DefaultFloor
	}
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = DefaultTiers()
	}
	tiers := make([]Tier, len(cfg.Tiers))
	copy(tiers, cfg.Tiers)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinRating < tiers[j].MinRating })

	return &Engine{
		k:     float64(cfg.KFactor),
		floor: cfg.Floor,
		tiers: tiers,
	}
}

// Expected returns the expected score for rating against opponentRating.
func (e *Engine) Expected(rating, opponentRating int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponentRating-rating)/400))
}

// Update computes the post-match rating for one player. The result never
// falls below the configured floor, and the update reports whether a tier
// boundary was crossed.
func (e *Engine) Update(playerID uuid.UUID, rating, opponentRating int, outcome Outcome) models.RatingUpdate {
	expected := e.Expected(rating, opponentRating)
	next := int(math.Round(float64(rating) + e.k*(float64(outcome)-expected)))
	if next < e.floor {
		next = e.floor
	}

	prevTier := e.TierFor(rating)
	newTier := e.TierFor(next)

	return models.RatingUpdate{
		PlayerID:       playerID,
		PreviousRating: rating,
		NewRating:      next,
		Delta:          next - rating,
		PreviousTier:   prevTier,
		NewTier:        newTier,
		TierChanged:    prevTier != newTier,
	}
}
