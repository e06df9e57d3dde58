package domain

import "time"

// Interest is a user-declared search subject together with its discovery record.
type Interest struct {
	ID         int64
	Name       string
	Categories []string
	CreatedAt  time.Time

	// LastNewArticleAt is zero until the first discovery.
	LastNewArticleAt            time.Time
	DiscoveryCount              int
	AvgDiscoveryIntervalSeconds float64
	// LastSearchAttemptAt is zero when the interest was never searched.
	LastSearchAttemptAt time.Time
}

// Searched reports whether a search was ever attempted for the interest.
func (i Interest) Searched() bool {
	return !i.LastSearchAttemptAt.IsZero()
}

// DiscoveryStats is the slice of an interest mutated by curation.
type DiscoveryStats struct {
	LastNewArticleAt            time.Time
	DiscoveryCount              int
	AvgDiscoveryIntervalSeconds float64
}
