package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

type scriptedClusterer struct {
	clusters []domain.Cluster
	err      error
}

func (s scriptedClusterer) Cluster(context.Context, []domain.Article) ([]domain.Cluster, error) {
	return s.clusters, s.err
}

type scriptedExtractor map[string][]domain.TopicRelevance

func (s scriptedExtractor) ExtractTopics(_ context.Context, article domain.Article) ([]domain.TopicRelevance, error) {
	topics, ok := s[article.URL]
	if !ok {
		return nil, errors.New("model unavailable")
	}
	return topics, nil
}

type failingSummarizer struct{}

func (failingSummarizer) Summarize(context.Context, ports.SummaryRequest) (domain.BriefingSummary, error) {
	return domain.BriefingSummary{}, errors.New("rate limited")
}

func TestAssignClustersRoutesOmittedArticlesToOther(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{ID: 1, URL: "https://a.example/1"},
		{ID: 2, URL: "https://a.example/2"},
		{ID: 3, URL: "https://a.example/3"},
	}
	clusters := []domain.Cluster{
		{ID: "c1", Topic: "chips", Members: []domain.ClusterMember{
			{URL: "https://a.example/1", Significance: 1.4},
			{URL: "https://unknown.example/x", Significance: 0.9},
		}},
		{ID: "c2", Topic: "again", Members: []domain.ClusterMember{
			{URL: "https://a.example/1", Significance: 0.1},
			{URL: "https://a.example/2", Significance: 0.3},
		}},
	}

	assigned, kept := AssignClusters(articles, clusters)
	require.Len(t, kept, 3)

	assert.Equal(t, "c1", assigned[0].ClusterID)
	assert.InDelta(t, 1.0, assigned[0].SignificanceScore, 1e-9, "significance is clamped")
	assert.Equal(t, "c2", assigned[1].ClusterID)
	assert.InDelta(t, 0.3, assigned[1].SignificanceScore, 1e-9)
	assert.Equal(t, OtherClusterID, assigned[2].ClusterID)
	assert.InDelta(t, domain.DefaultSignificance, assigned[2].SignificanceScore, 1e-9)
	assert.Len(t, kept[0].Members, 1, "unknown URLs are dropped")
}

func TestClusterStageFallsBackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	a := seedArticle(t, store, "https://b.example/1")
	b := seedArticle(t, store, "https://b.example/2")

	stage := NewClusterStage(scriptedClusterer{err: errors.New("timeout")}, store, nil)
	result, err := stage.Cluster(ctx, []domain.Article{a, b})
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	require.Len(t, result.Clusters, 1)
	assert.Len(t, result.Clusters[0].Members, 2)

	stored, err := store.GetArticle(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, FallbackClusterID, stored.ClusterID)
	assert.InDelta(t, domain.DefaultSignificance, stored.SignificanceScore, 1e-9)
}

func TestNormalizeTopics(t *testing.T) {
	t.Parallel()

	got := NormalizeTopics([]domain.TopicRelevance{
		{Name: "  Climate  Policy ", Relevance: 0.4},
		{Name: "climate policy", Relevance: 0.9},
		{Name: "", Relevance: 1},
		{Name: "Energy", Relevance: 1.7},
		{Name: "EU", Relevance: -0.2},
		{Name: "markets", Relevance: 0.5},
		{Name: "weather", Relevance: 0.3},
	})

	require.Len(t, got, MaxTopicsPerArticle)
	assert.Equal(t, domain.TopicRelevance{Name: "energy", Relevance: 1}, got[0])
	assert.Equal(t, domain.TopicRelevance{Name: "climate policy", Relevance: 0.9}, got[1])
	assert.Equal(t, "markets", got[2].Name)
	assert.Equal(t, "weather", got[3].Name)
}

func TestTopicStageIsolatesFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	ok := seedArticle(t, store, "https://c.example/ok")
	broken := seedArticle(t, store, "https://c.example/broken")

	stage := NewTopicStage(scriptedExtractor{
		ok.URL: {{Name: "Robotics", Relevance: 0.8}, {Name: "AI", Relevance: 0.6}},
	}, store, nil)

	result, err := stage.Extract(ctx, []domain.Article{broken, ok})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Extracted)
	assert.Equal(t, 2, result.Links)
	assert.Equal(t, 1, result.Failures)
	assert.Equal(t, []string{"robotics", "ai"}, result.Topics)

	topics, err := store.ArticleTopics(ctx, ok.ID)
	require.NoError(t, err)
	assert.Len(t, topics, 2)
}

func TestTopicStageWithoutExtractorInventsNothing(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	article := seedArticle(t, store, "https://c.example/none")

	result, err := NewTopicStage(nil, store, nil).Extract(context.Background(), []domain.Article{article})
	require.NoError(t, err)
	assert.Zero(t, result.Links)
}

func TestSummaryFallsBackToTemplate(t *testing.T) {
	t.Parallel()

	ranked := []domain.Article{
		{URL: "https://d.example/1", Title: "One", Description: "first story", Source: "d", ThumbnailURL: "https://d.example/1.jpg"},
		{URL: "https://d.example/2", Title: "Two"},
		{URL: "https://d.example/3", Title: "Three"},
		{URL: "https://d.example/4", Title: "Four"},
	}
	req := ports.SummaryRequest{
		Ranked:  ranked,
		Fetched: []domain.FetchedArticle{{Article: ranked[1], Content: "body of two"}},
	}

	result := NewSummaryStage(failingSummarizer{}, nil).Summarize(context.Background(), req)
	require.True(t, result.Fallback)
	summary := result.Summary
	assert.True(t, summary.Fallback)
	require.Len(t, summary.Citations, 4)
	require.Len(t, summary.Headlines, 3)
	assert.Equal(t, "first story", summary.Headlines[0].Summary)
	assert.Equal(t, "body of two", summary.Headlines[1].Summary)
	assert.Equal(t, []int{2}, summary.Headlines[1].Citations)
	require.Len(t, summary.Bites, 1)
	assert.Equal(t, "Four", summary.Bites[0].Text)
	require.Len(t, summary.Images, 1)
	assert.Equal(t, 1, summary.Images[0].Citation)
}

func TestSummaryWithoutFetchedContentSkipsSummarizer(t *testing.T) {
	t.Parallel()

	result := NewSummaryStage(failingSummarizer{}, nil).Summarize(context.Background(), ports.SummaryRequest{
		Ranked: []domain.Article{{URL: "https://e.example/1", Title: "Only"}},
	})
	assert.True(t, result.Fallback)
	assert.Len(t, result.Summary.Headlines, 1)
}
