package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/metrics"
	"NewsCurator/internal/ports"
)

// MaxTopicsPerArticle caps how many extracted topics are linked to one article.
const MaxTopicsPerArticle = 4

// TopicResult is the output of the topic extraction stage.
type TopicResult struct {
	// Extracted counts articles that received at least one topic.
	Extracted int
	Links     int
	Failures  int
	// Topics lists distinct topic names in first-seen order.
	Topics []string
}

// NormalizeTopics canonicalizes names, merges duplicates keeping the highest relevance,
// clamps relevance to [0,1] and keeps the most relevant few.
func NormalizeTopics(in []domain.TopicRelevance) []domain.TopicRelevance {
	best := make(map[string]float64, len(in))
	var order []string
	for _, t := range in {
		name := domain.NormalizeTopicName(t.Name)
		if name == "" {
			continue
		}
		rel := domain.Clamp(t.Relevance, 0, 1)
		if prev, ok := best[name]; ok {
			if rel > prev {
				best[name] = rel
			}
			continue
		}
		best[name] = rel
		order = append(order, name)
	}

	out := make([]domain.TopicRelevance, 0, len(order))
	for _, name := range order {
		out = append(out, domain.TopicRelevance{Name: name, Relevance: best[name]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Relevance > out[j].Relevance })
	if len(out) > MaxTopicsPerArticle {
		out = out[:MaxTopicsPerArticle]
	}
	return out
}

// TopicStage links extracted topics to articles.
type TopicStage struct {
	extractor ports.TopicExtractor
	store     ports.Store
	logger    *slog.Logger
}

// NewTopicStage builds the stage; with a nil extractor the stage does nothing.
func NewTopicStage(extractor ports.TopicExtractor, store ports.Store, logger *slog.Logger) *TopicStage {
	return &TopicStage{extractor: extractor, store: store, logger: orDiscard(logger)}
}

// Extract assigns topics to each article. Extractor failures are isolated per article;
// a persistence failure stops the stage.
func (s *TopicStage) Extract(ctx context.Context, articles []domain.Article) (TopicResult, error) {
	var result TopicResult
	if s.extractor == nil || len(articles) == 0 {
		return result, nil
	}

	seen := make(map[string]bool)
	for _, article := range articles {
		suggested, err := s.extractor.ExtractTopics(ctx, article)
		if err != nil {
			result.Failures++
			metrics.CollaboratorFallbacks.WithLabelValues("topics").Inc()
			s.logger.Warn("topic extraction failed", "article_id", article.ID, "url", article.URL, "error", err)
			continue
		}

		topics := NormalizeTopics(suggested)
		if len(topics) == 0 {
			continue
		}

		err = s.store.WithTx(ctx, func(tx ports.Repositories) error {
			for _, topic := range topics {
				topicID, err := tx.EnsureTopic(ctx, topic.Name)
				if err != nil {
					return fmt.Errorf("ensure topic %q: %w", topic.Name, err)
				}
				if err := tx.LinkArticleTopic(ctx, article.ID, topicID, topic.Relevance); err != nil {
					return fmt.Errorf("link topic %q: %w", topic.Name, err)
				}
			}
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("article %d: %w", article.ID, err)
		}

		result.Extracted++
		result.Links += len(topics)
		for _, topic := range topics {
			if !seen[topic.Name] {
				seen[topic.Name] = true
				result.Topics = append(result.Topics, topic.Name)
			}
		}
	}

	s.logger.Info("topics extracted",
		"articles", result.Extracted,
		"links", result.Links,
		"failures", result.Failures,
		"distinct_topics", len(result.Topics))
	return result, nil
}
