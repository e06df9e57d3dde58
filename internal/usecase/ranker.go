package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

// Blend weights of the interest score.
const (
	PersonalizationWeight = 0.6
	SignificanceWeight    = 0.4
	// UnknownTasteWeight scales significance when an article has no topics.
	UnknownTasteWeight = 0.8
)

// RankResult is the output of the ranking stage, ordered by interest score descending.
type RankResult struct {
	Articles []domain.Article
	// Personalized counts articles that had at least one topic.
	Personalized int
}

// Personalization is the relevance-weighted mean affinity of an article's topics.
// Topics without an affinity row contribute zero.
func Personalization(topics []domain.ArticleTopic) float64 {
	var weighted, total float64
	for _, topic := range topics {
		weighted += topic.Affinity * topic.Relevance
		total += topic.Relevance
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// Score computes all three ranking scores of an article given its topics.
func Score(significance float64, topics []domain.ArticleTopic) domain.Scores {
	if math.IsNaN(significance) {
		significance = domain.DefaultSignificance
	}
	significance = domain.Clamp(significance, 0, 1)

	if len(topics) == 0 {
		return domain.Scores{
			Significance:    significance,
			Personalization: 0,
			Interest:        significance * UnknownTasteWeight,
		}
	}

	p := Personalization(topics)
	return domain.Scores{
		Significance:    significance,
		Personalization: p,
		Interest:        Blend(p, significance),
	}
}

// Blend mixes personalization and significance into the interest score.
func Blend(personalization, significance float64) float64 {
	return personalization*PersonalizationWeight + significance*SignificanceWeight
}

// Ranker scores articles by learned taste and editorial significance.
type Ranker struct {
	store  ports.Store
	logger *slog.Logger
}

// NewRanker wires the ranker to the Discovery Store.
func NewRanker(store ports.Store, logger *slog.Logger) *Ranker {
	return &Ranker{store: store, logger: orDiscard(logger)}
}

// Rank scores the articles, persists the scores in one transaction and returns them sorted.
func (r *Ranker) Rank(ctx context.Context, articles []domain.Article) (RankResult, error) {
	ranked := make([]domain.Article, len(articles))
	copy(ranked, articles)
	personalized := 0

	err := r.store.WithTx(ctx, func(tx ports.Repositories) error {
		personalized = 0
		for i := range ranked {
			article := &ranked[i]
			topics, err := tx.ArticleTopics(ctx, article.ID)
			if err != nil {
				return fmt.Errorf("load topics of article %d: %w", article.ID, err)
			}
			if len(topics) > 0 {
				personalized++
			}

			scores := Score(article.SignificanceScore, topics)
			if err := tx.UpdateArticleScores(ctx, article.ID, scores); err != nil {
				return fmt.Errorf("save scores of article %d: %w", article.ID, err)
			}
			article.SignificanceScore = scores.Significance
			article.PersonalizationScore = scores.Personalization
			article.InterestScore = scores.Interest
		}
		return nil
	})
	if err != nil {
		return RankResult{}, err
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].InterestScore > ranked[j].InterestScore
	})

	r.logger.Info("articles ranked", "count", len(ranked), "personalized", personalized)
	return RankResult{Articles: ranked, Personalized: personalized}, nil
}
