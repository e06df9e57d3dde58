package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/metrics"
	"NewsCurator/internal/ports"
)

// SearchSettings bounds each Search Collector request.
type SearchSettings struct {
	Freshness time.Duration
	Limit     int
}

// PipelineDeps wires all driven adapters into the curation pipeline.
// Only Store and Collector are required; missing AI collaborators take their fallbacks.
type PipelineDeps struct {
	Store          ports.Store
	Collector      ports.SearchCollector
	Clusterer      ports.Clusterer
	TopicExtractor ports.TopicExtractor
	Fetcher        ports.ContentFetcher
	Summarizer     ports.Summarizer
	Search         SearchSettings
	// Retention prunes briefings older than this at the end of a run; zero disables pruning.
	Retention time.Duration
	Clock     func() time.Time
	Logger    *slog.Logger
}

// RunResult summarizes one pipeline execution. A non-nil Err means the run stopped early;
// everything committed before that point stays valid.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	InterestsDue     int
	InterestsCooling int

	CandidatesFound int
	SearchFailures  int

	DuplicatesFiltered int
	NewArticlesSaved   int

	ClustersFormed     int
	ClusteringFallback bool

	TopicsExtracted int
	RankedCount     int

	ScrapingSuccessCount int
	ScrapingFailureCount int

	BriefingID      int64
	SummaryFallback bool
	BriefingsPruned int

	Err error
}

// SearchResult is the output of the search stage.
type SearchResult struct {
	Candidates []domain.Candidate
	Failures   int
}

// Pipeline runs the fixed sequence of curation stages.
type Pipeline struct {
	store     ports.Store
	collector ports.SearchCollector
	fetcher   ports.ContentFetcher
	search    SearchSettings
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger

	scheduler  *InterestScheduler
	curation   *CurationStore
	clustering *ClusterStage
	topics     *TopicStage
	ranker     *Ranker
	summary    *SummaryStage
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := orDiscard(deps.Logger)
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Pipeline{
		store:     deps.Store,
		collector: deps.Collector,
		fetcher:   deps.Fetcher,
		search:    deps.Search,
		retention: deps.Retention,
		now:       clock,
		logger:    logger,

		scheduler:  NewInterestScheduler(deps.Store, logger.With("stage", "schedule")),
		curation:   NewCurationStore(deps.Store, logger.With("stage", "curate")),
		clustering: NewClusterStage(deps.Clusterer, deps.Store, logger.With("stage", "cluster")),
		topics:     NewTopicStage(deps.TopicExtractor, deps.Store, logger.With("stage", "topics")),
		ranker:     NewRanker(deps.Store, logger.With("stage", "rank")),
		summary:    NewSummaryStage(deps.Summarizer, logger.With("stage", "summarize")),
	}
}

// Run executes one full pass of the pipeline.
func (p *Pipeline) Run(ctx context.Context) RunResult {
	result := RunResult{RunID: uuid.NewString(), StartedAt: p.now().UTC()}
	logger := p.logger.With("run_id", result.RunID)
	logger.Info("pipeline run started")

	result.Err = p.run(ctx, logger, &result)
	result.FinishedAt = p.now().UTC()

	if result.Err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		logger.Error("pipeline run stopped", "error", result.Err, "duration", result.FinishedAt.Sub(result.StartedAt))
		return result
	}
	metrics.PipelineRuns.WithLabelValues("ok").Inc()
	logger.Info("pipeline run finished",
		"saved", result.NewArticlesSaved,
		"duplicates", result.DuplicatesFiltered,
		"ranked", result.RankedCount,
		"fetched", result.ScrapingSuccessCount,
		"briefing_id", result.BriefingID,
		"duration", result.FinishedAt.Sub(result.StartedAt))
	return result
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, result *RunResult) error {
	if p.store == nil || p.collector == nil {
		return fmt.Errorf("pipeline is not configured")
	}
	now := result.StartedAt

	stageStart := time.Now()
	schedule, err := p.scheduler.Schedule(ctx, now)
	observe("schedule", stageStart)
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	result.InterestsDue = len(schedule.Due)
	result.InterestsCooling = len(schedule.Cooling)
	if len(schedule.Due) == 0 {
		logger.Info("no interests due, nothing to do")
		return nil
	}

	stageStart = time.Now()
	search := p.searchDue(ctx, logger, schedule.Due)
	observe("search", stageStart)
	result.CandidatesFound = len(search.Candidates)
	result.SearchFailures = search.Failures

	stageStart = time.Now()
	curated, err := p.curation.Curate(ctx, search.Candidates, now)
	observe("curate", stageStart)
	if err != nil {
		return fmt.Errorf("curate: %w", err)
	}
	result.DuplicatesFiltered = curated.DuplicateCount
	result.NewArticlesSaved = curated.SavedCount
	if curated.SavedCount == 0 {
		logger.Info("no new articles, skipping briefing")
		return p.prune(ctx, logger, now, result)
	}

	stageStart = time.Now()
	clustered, err := p.clustering.Cluster(ctx, curated.NewArticles)
	observe("cluster", stageStart)
	if err != nil {
		return fmt.Errorf("cluster: %w", err)
	}
	result.ClustersFormed = len(clustered.Clusters)
	result.ClusteringFallback = clustered.Fallback

	stageStart = time.Now()
	topics, err := p.topics.Extract(ctx, clustered.Articles)
	observe("topics", stageStart)
	if err != nil {
		return fmt.Errorf("extract topics: %w", err)
	}
	result.TopicsExtracted = topics.Links

	stageStart = time.Now()
	ranked, err := p.ranker.Rank(ctx, clustered.Articles)
	observe("rank", stageStart)
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}
	result.RankedCount = len(ranked.Articles)

	briefing := domain.Briefing{
		Title:      briefingTitle(now),
		CreatedAt:  now,
		Topics:     briefingTopics(topics.Topics, curated.DiscoveredBy),
		ArticleIDs: articleIDs(ranked.Articles),
	}
	err = p.store.WithTx(ctx, func(tx ports.Repositories) error {
		return tx.CreateBriefing(ctx, &briefing)
	})
	if err != nil {
		return fmt.Errorf("create briefing: %w", err)
	}
	result.BriefingID = briefing.ID

	var report domain.FetchReport
	if p.fetcher != nil {
		stageStart = time.Now()
		report = p.fetcher.Fetch(ctx, ranked.Articles)
		observe("fetch", stageStart)
	}
	result.ScrapingSuccessCount = len(report.Fetched)
	result.ScrapingFailureCount = len(report.Failures)

	stageStart = time.Now()
	summary := p.summary.Summarize(ctx, ports.SummaryRequest{
		Fetched: report.Fetched,
		Ranked:  ranked.Articles,
		Topics:  briefing.Topics,
	})
	observe("summarize", stageStart)
	result.SummaryFallback = summary.Fallback

	if err := p.store.AttachSummary(ctx, briefing.ID, summary.Summary); err != nil {
		return fmt.Errorf("attach summary: %w", err)
	}

	return p.prune(ctx, logger, now, result)
}

func (p *Pipeline) searchDue(ctx context.Context, logger *slog.Logger, due []domain.Interest) SearchResult {
	var result SearchResult
	for _, interest := range due {
		candidates, err := p.collector.Search(ctx, ports.SearchRequest{
			Interest:  interest.Name,
			Freshness: p.search.Freshness,
			Limit:     p.search.Limit,
		})
		if err != nil {
			result.Failures++
			logger.Warn("search failed", "interest", interest.Name, "error", err)
			continue
		}
		for i := range candidates {
			candidates[i].Interest = interest.Name
		}
		logger.Debug("search returned", "interest", interest.Name, "candidates", len(candidates))
		result.Candidates = append(result.Candidates, candidates...)
	}
	return result
}

func (p *Pipeline) prune(ctx context.Context, logger *slog.Logger, now time.Time, result *RunResult) error {
	if p.retention <= 0 {
		return nil
	}
	cutoff := now.Add(-p.retention)

	var pruned int
	err := p.store.WithTx(ctx, func(tx ports.Repositories) error {
		var err error
		pruned, err = tx.PruneBriefings(ctx, cutoff)
		return err
	})
	if err != nil {
		return fmt.Errorf("prune briefings: %w", err)
	}
	result.BriefingsPruned = pruned
	if pruned > 0 {
		logger.Info("old briefings pruned", "count", pruned, "cutoff", cutoff)
	}
	return nil
}

func observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func briefingTitle(now time.Time) string {
	return "Briefing for " + now.Format("Mon, 02 Jan 2006 15:04 MST")
}

func briefingTopics(extracted, interests []string) []string {
	if len(extracted) > 0 {
		return extracted
	}
	return interests
}

func articleIDs(articles []domain.Article) []int64 {
	ids := make([]int64, len(articles))
	for i, article := range articles {
		ids[i] = article.ID
	}
	return ids
}
