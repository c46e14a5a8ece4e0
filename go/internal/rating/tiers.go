package rating

// Tier is a named skill bracket entered at MinRating.
type Tier struct {
	Name      string `json:"name" yaml:"name"`
	MinRating int    `json:"min_rating" yaml:"min_rating"`
}

// DefaultTiers returns the standard ladder, ordered by ascending MinRating.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "Seedling", MinRating: 0},
		{Name: "Sprout", MinRating: 1000},
		{Name: "Bloom", MinRating: 1200},
		{Name: "Orchid", MinRating: 1400},
		{Name: "Ancient Oak", MinRating: 1700},
	}
}

// TierFor maps a rating to the highest tier whose threshold it meets.
func (e *Engine) TierFor(rating int) string {
	name := e.tiers[0].Name
	for _, t := range e.tiers {
		if rating < t.MinRating {
			break
		}
		name = t.Name
	}
	return name
}
