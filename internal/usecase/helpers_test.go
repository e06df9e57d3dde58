package usecase

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/infrastructure/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "curator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedArticle(t *testing.T, store *storage.Store, url string) domain.Article {
	t.Helper()
	article := domain.ArticleFromCandidate(domain.Candidate{URL: url, Title: "seed " + url}, time.Now())
	require.NoError(t, store.InsertArticle(context.Background(), &article))
	return article
}

func linkTopic(t *testing.T, store *storage.Store, articleID int64, name string, relevance float64) int64 {
	t.Helper()
	ctx := context.Background()
	topicID, err := store.EnsureTopic(ctx, name)
	require.NoError(t, err)
	require.NoError(t, store.LinkArticleTopic(ctx, articleID, topicID, relevance))
	return topicID
}
