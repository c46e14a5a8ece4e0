package matchmaking

import (
	"time"

	"github.com/google/uuid"

	"github.com/floraclash/floraclash/go/internal/models"
)

const (
	// DefaultBaseBand is the rating distance accepted with zero wait.
	DefaultBaseBand = 150
	// DefaultMaxWaitBonus caps how far waiting can stretch the band.
	DefaultMaxWaitBonus = 600
)

// SelectorConfig tunes opponent selection. The acceptable rating band
// around a candidate widens by one point per second the candidate has
// waited, up to MaxWaitBonus.
type SelectorConfig struct {
	BaseBand     int `yaml:"base_band"`
	MaxWaitBonus int `yaml:"max_wait_bonus"`
}

func (c SelectorConfig) withDefaults() SelectorConfig {
	if c.BaseBand <= 0 {
		c.BaseBand = DefaultBaseBand
	}
	if c.MaxWaitBonus <= 0 {
		c.MaxWaitBonus = DefaultMaxWaitBonus
	}
	return c
}

// waitBonus converts accrued wait into rating points of band width.
func waitBonus(waited time.Duration, cfg SelectorConfig) int {
	if waited <= 0 {
		return 0
	}
	bonus := int(waited / time.Second)
	if bonus > cfg.MaxWaitBonus {
		bonus = cfg.MaxWaitBonus
	}
	return bonus
}

// FindOpponent picks the best candidate for the requesting player from a
// pool snapshot. For each admissible candidate the cost is the rating
// distance minus the candidate's wait bonus; the minimum cost wins, ties
// going to the longer wait and then to snapshot order. Candidates outside
// the widened band and the requester themselves are skipped. Single pass,
// no allocation, deterministic for a fixed snapshot.
func FindOpponent(snapshot []models.QueueTicket, playerID uuid.UUID, playerRating int, now time.Time, cfg SelectorConfig) (models.QueueTicket, bool) {
	cfg = cfg.withDefaults()

	bestIdx := -1
	var bestCost int
	var bestWait time.Duration

	for i := range snapshot {
		cand := &snapshot[i]
		if cand.PlayerID == playerID {
			continue
		}

		dist := playerRating - cand.Rating
		if dist < 0 {
			dist = -dist
		}
		waited := cand.WaitedFor(now)
		bonus := waitBonus(waited, cfg)
		if dist > cfg.BaseBand+bonus {
			continue
		}

		cost := dist - bonus
		if bestIdx == -1 || cost < bestCost || (cost == bestCost && waited > bestWait) {
			bestIdx, bestCost, bestWait = i, cost, waited
		}
	}

	if bestIdx == -1 {
		return models.QueueTicket{}, false
	}
	return snapshot[bestIdx], true
}
