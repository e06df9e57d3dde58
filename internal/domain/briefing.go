package domain

import "time"

// Briefing is the persisted outcome of one successful pipeline run.
type Briefing struct {
	ID        int64
	Title     string
	CreatedAt time.Time
	Topics    []string
	// ArticleIDs keeps the ranked order of the briefing's articles.
	ArticleIDs []int64
	// Summary is attached after fetch and summarization; nil until then.
	Summary *BriefingSummary
}

// BriefingSummary is the structured document produced by the summarizer.
type BriefingSummary struct {
	Headlines []Story    `json:"headlines"`
	Bites     []Bite     `json:"bites"`
	Images    []Image    `json:"images"`
	Citations []Citation `json:"citations"`
	// Fallback marks summaries built from the template instead of the language model.
	Fallback bool `json:"fallback,omitempty"`
}

// Story is a headline item with its supporting citations.
type Story struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Citations []int  `json:"citations"`
}

// Bite is a one-line item with citations.
type Bite struct {
	Text      string `json:"text"`
	Citations []int  `json:"citations"`
}

// Image is a picture worth showing next to the briefing.
type Image struct {
	URL      string `json:"url"`
	Caption  string `json:"caption,omitempty"`
	Citation int    `json:"citation,omitempty"`
}

// Citation points back at a source article. Index is 1-based.
type Citation struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
}

// Cluster groups articles covering the same story.
type Cluster struct {
	ID      string
	Topic   string
	Members []ClusterMember
}

// ClusterMember is one article inside a cluster, addressed by URL.
type ClusterMember struct {
	URL          string
	Significance float64
}

// FetchedArticle is the successful outcome of a full-content fetch.
type FetchedArticle struct {
	Article     Article
	Title       string
	Author      string
	PublishedAt time.Time
	Content     string
	Markdown    string
}
