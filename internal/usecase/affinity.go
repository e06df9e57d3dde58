package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/metrics"
	"NewsCurator/internal/ports"
)

// LearningRate is the fraction of a weighted signal applied per interaction.
const LearningRate = 0.1

var interactionWeights = map[domain.InteractionType]float64{
	domain.InteractionLike:    1.0,
	domain.InteractionDislike: -1.0,
	domain.InteractionClick:   0.2,
}

// InteractionWeight returns the signal strength of an interaction type.
func InteractionWeight(t domain.InteractionType) (float64, error) {
	w, ok := interactionWeights[t]
	if !ok {
		return 0, fmt.Errorf("%q: %w", t, domain.ErrUnknownInteraction)
	}
	return w, nil
}

// NextAffinity applies one weighted, relevance-scaled nudge to a topic affinity.
// When exists is false the current value is ignored and a fresh row is produced.
func NextAffinity(current domain.TopicAffinity, exists bool, weight, relevance float64, now time.Time) domain.TopicAffinity {
	delta := LearningRate * weight * relevance
	next := current
	if !exists {
		next.AffinityScore = 0
		next.InteractionCount = 0
	}
	next.AffinityScore = domain.Clamp(next.AffinityScore+delta, domain.MinAffinity, domain.MaxAffinity)
	next.InteractionCount++
	next.LastUpdated = now
	return next
}

// AffinityLearner turns interaction events into per-topic affinity updates.
type AffinityLearner struct {
	store  ports.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewAffinityLearner wires the learner to the Discovery Store.
func NewAffinityLearner(store ports.Store, logger *slog.Logger) *AffinityLearner {
	return &AffinityLearner{store: store, logger: orDiscard(logger), now: time.Now}
}

// Record stores the interaction and updates the affinity of every topic linked to the article.
// It returns the number of topics updated; an article without topics is a no-op.
func (l *AffinityLearner) Record(ctx context.Context, articleID int64, kind domain.InteractionType) (int, error) {
	weight, err := InteractionWeight(kind)
	if err != nil {
		return 0, err
	}
	now := l.now().UTC()

	updated := 0
	err = l.store.WithTx(ctx, func(tx ports.Repositories) error {
		updated = 0
		if _, err := tx.GetArticle(ctx, articleID); err != nil {
			return fmt.Errorf("article %d: %w", articleID, err)
		}

		interaction := domain.Interaction{ArticleID: articleID, Type: kind, CreatedAt: now}
		if err := tx.InsertInteraction(ctx, &interaction); err != nil {
			return err
		}

		topics, err := tx.ArticleTopics(ctx, articleID)
		if err != nil {
			return fmt.Errorf("load article topics: %w", err)
		}

		for _, topic := range topics {
			current, exists, err := tx.GetAffinity(ctx, topic.TopicID)
			if err != nil {
				return fmt.Errorf("load affinity for %q: %w", topic.TopicName, err)
			}
			current.TopicID = topic.TopicID
			next := NextAffinity(current, exists, weight, topic.Relevance, now)
			if err := tx.SaveAffinity(ctx, next); err != nil {
				return fmt.Errorf("save affinity for %q: %w", topic.TopicName, err)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.AffinityUpdates.WithLabelValues(string(kind)).Add(float64(updated))
	l.logger.Info("interaction recorded", "article_id", articleID, "type", kind, "topics_updated", updated)
	return updated, nil
}
