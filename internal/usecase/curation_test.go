package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/infrastructure/storage"
	"NewsCurator/internal/ports"
)

func TestRunningMeanIsArithmetic(t *testing.T) {
	t.Parallel()

	var (
		avg   float64
		count int
	)
	for _, sample := range []float64{100, 200, 300} {
		avg = RunningMean(avg, count, sample)
		count++
	}
	assert.InDelta(t, 200.0, avg, 1e-9)
}

func TestNextDiscoveryStats(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	first := NextDiscoveryStats(domain.Interest{}, now)
	assert.Equal(t, 1, first.DiscoveryCount)
	assert.InDelta(t, FirstDiscoveryIntervalSeconds, first.AvgDiscoveryIntervalSeconds, 1e-9)
	assert.True(t, first.LastNewArticleAt.Equal(now))

	next := NextDiscoveryStats(domain.Interest{
		LastNewArticleAt:            now.Add(-time.Hour),
		DiscoveryCount:              1,
		AvgDiscoveryIntervalSeconds: 86400,
	}, now)
	assert.Equal(t, 2, next.DiscoveryCount)
	assert.InDelta(t, (86400.0+3600.0)/2, next.AvgDiscoveryIntervalSeconds, 1e-9)

	same := NextDiscoveryStats(domain.Interest{
		LastNewArticleAt:            now,
		DiscoveryCount:              3,
		AvgDiscoveryIntervalSeconds: 500,
	}, now)
	assert.Equal(t, 4, same.DiscoveryCount)
	assert.InDelta(t, 500.0, same.AvgDiscoveryIntervalSeconds, 1e-9, "zero interval keeps the average")
}

func TestCurateIsIdempotentAcrossBatches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.AddInterest(ctx, "rust", nil, now.Add(-48*time.Hour))
	require.NoError(t, err)

	batch := []domain.Candidate{
		{URL: "https://news.example/a", Title: "A", Interest: "rust"},
		{URL: "https://news.example/b", Title: "B", Interest: "rust"},
		{URL: "", Title: "no link", Interest: "rust"},
	}
	curation := NewCurationStore(store, nil)

	first, err := curation.Curate(ctx, batch, now)
	require.NoError(t, err)
	assert.Equal(t, 2, first.SavedCount)
	assert.Equal(t, 0, first.DuplicateCount)
	assert.Equal(t, 1, first.SkippedCount, "missing URL is neither saved nor a duplicate")
	assert.Equal(t, []string{"rust"}, first.DiscoveredBy)
	for _, article := range first.NewArticles {
		assert.NotZero(t, article.ID)
	}

	second, err := curation.Curate(ctx, batch, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, second.SavedCount)
	assert.Equal(t, 2, second.DuplicateCount)
	assert.Empty(t, second.NewArticles)

	rust, err := store.GetInterest(ctx, "rust")
	require.NoError(t, err)
	assert.Equal(t, 1, rust.DiscoveryCount, "a batch without new articles leaves stats alone")
	assert.InDelta(t, FirstDiscoveryIntervalSeconds, rust.AvgDiscoveryIntervalSeconds, 1e-9)
	assert.True(t, rust.LastNewArticleAt.Equal(now))
}

func TestCurateCountsRepeatsWithinOneBatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	result, err := NewCurationStore(store, nil).Curate(ctx, []domain.Candidate{
		{URL: "https://news.example/same"},
		{URL: " https://news.example/same "},
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, result.SavedCount)
	assert.Equal(t, 1, result.DuplicateCount)
}

func TestCurateToleratesRemovedInterest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	result, err := NewCurationStore(store, nil).Curate(ctx, []domain.Candidate{
		{URL: "https://news.example/orphan", Interest: "gone"},
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, result.SavedCount)
	assert.Equal(t, 1, result.StatsSkipped)
}

// flakyInsertStore fails the failOn-th InsertArticle or the failStatsOn-th
// UpdateDiscoveryStats made inside a transaction.
type flakyInsertStore struct {
	*storage.Store
	failOn      int
	failStatsOn int
	inserts     int
	statUpdates int
}

func (s *flakyInsertStore) WithTx(ctx context.Context, fn func(tx ports.Repositories) error) error {
	return s.Store.WithTx(ctx, func(tx ports.Repositories) error {
		return fn(&flakyInsertTx{Repositories: tx, store: s})
	})
}

type flakyInsertTx struct {
	ports.Repositories
	store *flakyInsertStore
}

func (tx *flakyInsertTx) InsertArticle(ctx context.Context, article *domain.Article) error {
	tx.store.inserts++
	if tx.store.inserts == tx.store.failOn {
		return errors.New("disk full")
	}
	return tx.Repositories.InsertArticle(ctx, article)
}

func (tx *flakyInsertTx) UpdateDiscoveryStats(ctx context.Context, name string, stats domain.DiscoveryStats) error {
	tx.store.statUpdates++
	if tx.store.statUpdates == tx.store.failStatsOn {
		return errors.New("disk full")
	}
	return tx.Repositories.UpdateDiscoveryStats(ctx, name, stats)
}

func TestCurateRollsBackWholeBatchOnStoreFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.AddInterest(ctx, "rust", nil, now.Add(-48*time.Hour))
	require.NoError(t, err)

	flaky := &flakyInsertStore{Store: store, failOn: 3}
	result, err := NewCurationStore(flaky, nil).Curate(ctx, []domain.Candidate{
		{URL: "https://news.example/one", Interest: "rust"},
		{URL: "https://news.example/two", Interest: "rust"},
		{URL: "https://news.example/three", Interest: "rust"},
	}, now)
	require.Error(t, err)
	assert.Equal(t, 3, flaky.inserts)
	assert.Zero(t, result.SavedCount)
	assert.Empty(t, result.NewArticles)

	for _, url := range []string{"https://news.example/one", "https://news.example/two", "https://news.example/three"} {
		exists, err := store.ArticleExists(ctx, url)
		require.NoError(t, err)
		assert.False(t, exists, "%s must not survive the rollback", url)
	}

	rust, err := store.GetInterest(ctx, "rust")
	require.NoError(t, err)
	assert.Zero(t, rust.DiscoveryCount)
}

func TestCurateRollsBackStatsAndArticlesTogether(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	for _, name := range []string{"rust", "zig"} {
		_, err := store.AddInterest(ctx, name, nil, now.Add(-48*time.Hour))
		require.NoError(t, err)
	}

	flaky := &flakyInsertStore{Store: store, failStatsOn: 2}
	result, err := NewCurationStore(flaky, nil).Curate(ctx, []domain.Candidate{
		{URL: "https://news.example/rust", Interest: "rust"},
		{URL: "https://news.example/zig", Interest: "zig"},
	}, now)
	require.Error(t, err)
	assert.Equal(t, 2, flaky.statUpdates)
	assert.Equal(t, CurationResult{}, result)

	for _, url := range []string{"https://news.example/rust", "https://news.example/zig"} {
		exists, err := store.ArticleExists(ctx, url)
		require.NoError(t, err)
		assert.False(t, exists, "%s must not survive the rollback", url)
	}
	for _, name := range []string{"rust", "zig"} {
		interest, err := store.GetInterest(ctx, name)
		require.NoError(t, err)
		assert.Zero(t, interest.DiscoveryCount, "%s stats must not survive the rollback", name)
	}
}
