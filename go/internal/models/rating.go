package models

import "github.com/google/uuid"

// RatingUpdate captures one rating adjustment. Derived by the rating
// engine; persisted only as part of the match record, never on its own.
type RatingUpdate struct {
	PlayerID       uuid.UUID `json:"player_id"`
	PreviousRating int       `json:"previous_rating"`
	NewRating      int       `json:"new_rating"`
	Delta          int       `json:"delta"`
	PreviousTier   string    `json:"previous_tier"`
	NewTier        string    `json:"new_tier"`
	TierChanged    bool      `json:"tier_changed"`
}
