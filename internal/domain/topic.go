package domain

import (
	"fmt"
	"strings"
	"time"
)

// Affinity bounds.
const (
	MinAffinity = -2.0
	MaxAffinity = 2.0
)

// Topic is a named subject extracted from articles.
type Topic struct {
	ID   int64
	Name string
}

// TopicRelevance is a topic suggested for an article before it is persisted.
type TopicRelevance struct {
	Name      string
	Relevance float64
}

// ArticleTopic is a persisted article-topic link joined with the topic's current affinity.
type ArticleTopic struct {
	ArticleID int64
	TopicID   int64
	TopicName string
	Relevance float64
	// Affinity is zero when no affinity row exists yet.
	Affinity    float64
	HasAffinity bool
}

// TopicAffinity is the learned preference for one topic.
type TopicAffinity struct {
	TopicID          int64
	TopicName        string
	AffinityScore    float64
	InteractionCount int
	LastUpdated      time.Time
}

// InteractionType enumerates user feedback signals.
type InteractionType string

const (
	InteractionClick   InteractionType = "click"
	InteractionLike    InteractionType = "like"
	InteractionDislike InteractionType = "dislike"
)

// ParseInteractionType validates a user-supplied interaction name.
func ParseInteractionType(s string) (InteractionType, error) {
	switch t := InteractionType(strings.ToLower(strings.TrimSpace(s))); t {
	case InteractionClick, InteractionLike, InteractionDislike:
		return t, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownInteraction)
	}
}

// Interaction is an immutable feedback event.
type Interaction struct {
	ID        int64
	ArticleID int64
	Type      InteractionType
	CreatedAt time.Time
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NormalizeTopicName canonicalizes topic names so "AI " and "ai" share a row.
func NormalizeTopicName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
