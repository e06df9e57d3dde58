package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/metrics"
	"NewsCurator/internal/ports"
)

// FirstDiscoveryIntervalSeconds seeds the running mean when an interest finds its first article.
const FirstDiscoveryIntervalSeconds = 86400.0

// CurationResult is the output of the curation stage.
type CurationResult struct {
	SavedCount     int
	DuplicateCount int
	// SkippedCount counts candidates without a URL; they are neither saved nor duplicates.
	SkippedCount int
	NewArticles  []domain.Article
	// DiscoveredBy lists the interests that received at least one new article.
	DiscoveredBy []string
	// StatsSkipped counts discovering interests whose record could not be updated.
	StatsSkipped int
}

// RunningMean folds sample into a mean of count previous samples.
func RunningMean(avg float64, count int, sample float64) float64 {
	return (avg*float64(count) + sample) / float64(count+1)
}

// NextDiscoveryStats computes an interest's discovery record after a new article at now.
func NextDiscoveryStats(interest domain.Interest, now time.Time) domain.DiscoveryStats {
	newCount := interest.DiscoveryCount + 1
	newAvg := FirstDiscoveryIntervalSeconds

	if !interest.LastNewArticleAt.IsZero() && interest.DiscoveryCount > 0 {
		interval := now.Sub(interest.LastNewArticleAt).Seconds()
		if interval > 0 {
			newAvg = RunningMean(interest.AvgDiscoveryIntervalSeconds, interest.DiscoveryCount, interval)
		} else {
			// Same-batch artifact: nothing was learned about the cadence.
			newAvg = interest.AvgDiscoveryIntervalSeconds
		}
	}

	return domain.DiscoveryStats{
		LastNewArticleAt:            now,
		DiscoveryCount:              newCount,
		AvgDiscoveryIntervalSeconds: newAvg,
	}
}

// CurationStore deduplicates candidates and maintains per-interest discovery statistics.
type CurationStore struct {
	store  ports.Store
	logger *slog.Logger
}

// NewCurationStore wires the curation stage to the Discovery Store.
func NewCurationStore(store ports.Store, logger *slog.Logger) *CurationStore {
	return &CurationStore{store: store, logger: orDiscard(logger)}
}

// Curate persists new candidates and updates discovery stats in one transaction.
// On error nothing from the batch is committed and a zero result is returned.
func (c *CurationStore) Curate(ctx context.Context, candidates []domain.Candidate, now time.Time) (CurationResult, error) {
	var result CurationResult

	err := c.store.WithTx(ctx, func(tx ports.Repositories) error {
		result = CurationResult{}
		discovered := make(map[string]bool)

		for _, candidate := range candidates {
			candidate.URL = strings.TrimSpace(candidate.URL)
			if candidate.URL == "" {
				result.SkippedCount++
				continue
			}

			exists, err := tx.ArticleExists(ctx, candidate.URL)
			if err != nil {
				return fmt.Errorf("check %s: %w", candidate.URL, err)
			}
			if exists {
				result.DuplicateCount++
				continue
			}

			article := domain.ArticleFromCandidate(candidate, now)
			if err := tx.InsertArticle(ctx, &article); err != nil {
				return fmt.Errorf("save %s: %w", candidate.URL, err)
			}
			result.SavedCount++
			result.NewArticles = append(result.NewArticles, article)

			if candidate.Interest != "" && !discovered[candidate.Interest] {
				discovered[candidate.Interest] = true
				result.DiscoveredBy = append(result.DiscoveredBy, candidate.Interest)
			}
		}

		for _, name := range result.DiscoveredBy {
			interest, err := tx.GetInterest(ctx, name)
			if errors.Is(err, domain.ErrNotFound) {
				// Removed while its search was in flight; its articles still count.
				c.logger.Warn("discovering interest no longer exists", "interest", name)
				result.StatsSkipped++
				continue
			}
			if err != nil {
				return fmt.Errorf("load interest %q: %w", name, err)
			}
			stats := NextDiscoveryStats(interest, now)
			if err := tx.UpdateDiscoveryStats(ctx, name, stats); err != nil {
				return fmt.Errorf("update interest %q: %w", name, err)
			}
			c.logger.Debug("discovery stats updated",
				"interest", name,
				"count", stats.DiscoveryCount,
				"avg_interval_seconds", stats.AvgDiscoveryIntervalSeconds)
		}
		return nil
	})
	if err != nil {
		return CurationResult{}, err
	}

	metrics.CuratedArticles.WithLabelValues("saved").Add(float64(result.SavedCount))
	metrics.CuratedArticles.WithLabelValues("duplicate").Add(float64(result.DuplicateCount))
	metrics.CuratedArticles.WithLabelValues("skipped").Add(float64(result.SkippedCount))

	c.logger.Info("curation complete",
		"saved", result.SavedCount,
		"duplicates", result.DuplicateCount,
		"skipped", result.SkippedCount,
		"interests_with_discoveries", len(result.DiscoveredBy))
	return result, nil
}
