package domain

import "time"

// DefaultSignificance is assumed for articles the clusterer did not score.
const DefaultSignificance = 0.5

// Candidate is a search hit before curation decides whether it is new.
type Candidate struct {
	Title        string
	URL          string
	Description  string
	Source       string
	PublishedAt  time.Time
	ThumbnailURL string
	// Interest names the interest whose search produced the hit.
	Interest string
}

// Article is a curated, deduplicated story. URL is the deduplication key.
type Article struct {
	ID           int64
	URL          string
	Title        string
	Description  string
	Source       string
	PublishedAt  time.Time
	ThumbnailURL string
	FetchedAt    time.Time

	ClusterID            string
	SignificanceScore    float64
	PersonalizationScore float64
	InterestScore        float64
}

// Scores groups the mutable ranking fields of an article.
type Scores struct {
	Significance    float64
	Personalization float64
	Interest        float64
}

// ArticleFromCandidate builds the row curation inserts for a new candidate.
func ArticleFromCandidate(c Candidate, fetchedAt time.Time) Article {
	return Article{
		URL:               c.URL,
		Title:             c.Title,
		Description:       c.Description,
		Source:            c.Source,
		PublishedAt:       c.PublishedAt,
		ThumbnailURL:      c.ThumbnailURL,
		FetchedAt:         fetchedAt,
		SignificanceScore: DefaultSignificance,
	}
}
