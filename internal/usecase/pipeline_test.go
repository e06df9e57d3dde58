package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

type stubCollector struct {
	results map[string][]domain.Candidate
	failing map[string]bool
	calls   []string
}

func (s *stubCollector) Search(_ context.Context, req ports.SearchRequest) ([]domain.Candidate, error) {
	s.calls = append(s.calls, req.Interest)
	if s.failing[req.Interest] {
		return nil, errors.New("provider down")
	}
	return s.results[req.Interest], nil
}

func candidates(prefix string, urls ...string) []domain.Candidate {
	out := make([]domain.Candidate, len(urls))
	for i, u := range urls {
		out[i] = domain.Candidate{
			Title:       fmt.Sprintf("%s story %d", prefix, i+1),
			URL:         u,
			Description: "about " + prefix,
			Source:      "wire",
		}
	}
	return out
}

func TestPipelineEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2025, time.July, 14, 7, 30, 0, 0, time.UTC)

	for _, name := range []string{"ai", "climate", "f1", "chess", "jazz"} {
		_, err := store.AddInterest(ctx, name, nil, now.Add(-72*time.Hour))
		require.NoError(t, err)
	}
	require.NoError(t, store.StampSearchAttempt(ctx, []string{"f1", "chess", "jazz"}, now.Add(-20*time.Minute)))

	for _, u := range []string{"https://x.example/ai-2", "https://x.example/ai-4", "https://x.example/cl-3"} {
		seedArticle(t, store, u)
	}

	collector := &stubCollector{results: map[string][]domain.Candidate{
		"ai": candidates("ai",
			"https://x.example/ai-1", "https://x.example/ai-2", "https://x.example/ai-3", "https://x.example/ai-4"),
		"climate": candidates("climate",
			"https://x.example/cl-1", "https://x.example/cl-2", "https://x.example/cl-3", "https://x.example/cl-4"),
	}}

	pipeline := NewPipeline(PipelineDeps{
		Store:     store,
		Collector: collector,
		Search:    SearchSettings{Freshness: 24 * time.Hour, Limit: 10},
		Retention: 30 * 24 * time.Hour,
		Clock:     func() time.Time { return now },
	})

	result := pipeline.Run(ctx)
	require.NoError(t, result.Err)
	assert.NotEmpty(t, result.RunID)

	assert.Equal(t, 2, result.InterestsDue)
	assert.Equal(t, 3, result.InterestsCooling)
	assert.ElementsMatch(t, []string{"ai", "climate"}, collector.calls)
	assert.Equal(t, 8, result.CandidatesFound)
	assert.Equal(t, 5, result.NewArticlesSaved)
	assert.Equal(t, 3, result.DuplicatesFiltered)
	assert.True(t, result.ClusteringFallback)
	assert.Equal(t, 1, result.ClustersFormed)
	assert.Equal(t, 5, result.RankedCount)
	assert.True(t, result.SummaryFallback)
	require.NotZero(t, result.BriefingID)

	briefing, err := store.GetBriefing(ctx, result.BriefingID)
	require.NoError(t, err)
	require.Len(t, briefing.ArticleIDs, 5)
	assert.ElementsMatch(t, []string{"ai", "climate"}, briefing.Topics)
	require.NotNil(t, briefing.Summary)
	assert.True(t, briefing.Summary.Fallback)

	articles, err := store.ArticlesByIDs(ctx, briefing.ArticleIDs)
	require.NoError(t, err)
	for _, article := range articles {
		assert.Zero(t, article.PersonalizationScore, article.URL)
		assert.InDelta(t, article.SignificanceScore*0.8, article.InterestScore, 1e-9, article.URL)
	}

	for _, name := range []string{"ai", "climate"} {
		interest, err := store.GetInterest(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, 1, interest.DiscoveryCount, name)
		assert.True(t, interest.LastSearchAttemptAt.Equal(now), name)
	}
	jazz, err := store.GetInterest(ctx, "jazz")
	require.NoError(t, err)
	assert.Zero(t, jazz.DiscoveryCount)
}

func TestPipelineWithoutNewArticlesWritesNoBriefing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.AddInterest(ctx, "quiet", nil, time.Now())
	require.NoError(t, err)
	_, err = store.AddInterest(ctx, "broken", nil, time.Now())
	require.NoError(t, err)

	collector := &stubCollector{failing: map[string]bool{"broken": true}}
	result := NewPipeline(PipelineDeps{Store: store, Collector: collector}).Run(ctx)

	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.InterestsDue)
	assert.Equal(t, 1, result.SearchFailures)
	assert.Zero(t, result.NewArticlesSaved)
	assert.Zero(t, result.BriefingID)

	_, err = store.LatestBriefing(ctx)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPipelineRequiresStoreAndCollector(t *testing.T) {
	t.Parallel()

	result := NewPipeline(PipelineDeps{}).Run(context.Background())
	assert.Error(t, result.Err)
}

type stubTopics struct{}

func (stubTopics) ExtractTopics(context.Context, domain.Article) ([]domain.TopicRelevance, error) {
	return []domain.TopicRelevance{{Name: "Space", Relevance: 0.9}}, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, ranked []domain.Article) domain.FetchReport {
	report := domain.FetchReport{Selected: len(ranked)}
	for i, article := range ranked {
		if i == 0 {
			report.Fetched = append(report.Fetched, domain.FetchedArticle{Article: article, Content: "full text"})
			continue
		}
		report.Failures = append(report.Failures, domain.FetchFailure{Article: article, Reason: domain.ReasonHTTP})
	}
	return report
}

type stubSummarizer struct {
	req ports.SummaryRequest
}

func (s *stubSummarizer) Summarize(_ context.Context, req ports.SummaryRequest) (domain.BriefingSummary, error) {
	s.req = req
	return domain.BriefingSummary{
		Headlines: []domain.Story{{Title: "Launch", Summary: "It flew.", Citations: []int{1}}},
		Citations: []domain.Citation{{Index: 1, Title: "Launch", URL: req.Fetched[0].Article.URL}},
	}, nil
}

func TestPipelineAttachesModelSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.AddInterest(ctx, "rockets", nil, time.Now())
	require.NoError(t, err)

	summarizer := &stubSummarizer{}
	result := NewPipeline(PipelineDeps{
		Store: store,
		Collector: &stubCollector{results: map[string][]domain.Candidate{
			"rockets": candidates("rockets", "https://r.example/1", "https://r.example/2"),
		}},
		TopicExtractor: stubTopics{},
		Fetcher:        stubFetcher{},
		Summarizer:     summarizer,
	}).Run(ctx)

	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.TopicsExtracted)
	assert.Equal(t, 1, result.ScrapingSuccessCount)
	assert.Equal(t, 1, result.ScrapingFailureCount)
	assert.False(t, result.SummaryFallback)
	assert.Equal(t, []string{"space"}, summarizer.req.Topics)
	assert.Len(t, summarizer.req.Ranked, 2)

	briefing, err := store.GetBriefing(ctx, result.BriefingID)
	require.NoError(t, err)
	assert.Equal(t, []string{"space"}, briefing.Topics)
	require.NotNil(t, briefing.Summary)
	assert.False(t, briefing.Summary.Fallback)
	assert.Equal(t, "Launch", briefing.Summary.Headlines[0].Title)
}

// inlineDriver runs the job once, synchronously, when started.
type inlineDriver struct {
	stopped bool
}

func (d *inlineDriver) Start(_ context.Context, job func(time.Time)) error {
	job(time.Now())
	return nil
}

func (d *inlineDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestPeriodicRunnerReportsResults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	driver := &inlineDriver{}
	runner := NewPeriodicRunner(driver, NewPipeline(PipelineDeps{Store: store, Collector: &stubCollector{}}), nil)

	var results []RunResult
	runner.OnResult = func(r RunResult) { results = append(results, r) }

	require.NoError(t, runner.Start(ctx))
	require.NoError(t, runner.Stop(ctx))

	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.Zero(t, results[0].InterestsDue)
	assert.True(t, driver.stopped)
}
