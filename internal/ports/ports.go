package ports

import (
	"context"
	"time"

	"NewsCurator/internal/domain"
)

// InterestRepository stores interests and their discovery records.
type InterestRepository interface {
	ListInterests(ctx context.Context) ([]domain.Interest, error)
	GetInterest(ctx context.Context, name string) (domain.Interest, error)
	AddInterest(ctx context.Context, name string, categories []string, at time.Time) (domain.Interest, error)
	RemoveInterest(ctx context.Context, name string) error
	StampSearchAttempt(ctx context.Context, names []string, at time.Time) error
	UpdateDiscoveryStats(ctx context.Context, name string, stats domain.DiscoveryStats) error
}

// ArticleRepository stores curated articles. Title, URL and description are write-once.
type ArticleRepository interface {
	ArticleExists(ctx context.Context, url string) (bool, error)
	InsertArticle(ctx context.Context, article *domain.Article) error
	GetArticle(ctx context.Context, id int64) (domain.Article, error)
	ArticlesByIDs(ctx context.Context, ids []int64) ([]domain.Article, error)
	UpdateArticleCluster(ctx context.Context, id int64, clusterID string, significance float64) error
	UpdateArticleScores(ctx context.Context, id int64, scores domain.Scores) error
}

// TopicRepository stores topics and article-topic links.
type TopicRepository interface {
	EnsureTopic(ctx context.Context, name string) (int64, error)
	LinkArticleTopic(ctx context.Context, articleID, topicID int64, relevance float64) error
	ArticleTopics(ctx context.Context, articleID int64) ([]domain.ArticleTopic, error)
}

// AffinityRepository stores learned topic affinities and the interaction log.
type AffinityRepository interface {
	GetAffinity(ctx context.Context, topicID int64) (domain.TopicAffinity, bool, error)
	SaveAffinity(ctx context.Context, affinity domain.TopicAffinity) error
	ListAffinities(ctx context.Context) ([]domain.TopicAffinity, error)
	InsertInteraction(ctx context.Context, interaction *domain.Interaction) error
}

// BriefingRepository stores briefings and their article links.
type BriefingRepository interface {
	CreateBriefing(ctx context.Context, briefing *domain.Briefing) error
	AttachSummary(ctx context.Context, briefingID int64, summary domain.BriefingSummary) error
	GetBriefing(ctx context.Context, id int64) (domain.Briefing, error)
	LatestBriefing(ctx context.Context) (domain.Briefing, error)
	PruneBriefings(ctx context.Context, before time.Time) (int, error)
}

// Repositories is the full set of store operations available inside and outside a transaction.
type Repositories interface {
	InterestRepository
	ArticleRepository
	TopicRepository
	AffinityRepository
	BriefingRepository
}

// Store is the Discovery Store. WithTx commits when fn returns nil and rolls back otherwise.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(tx Repositories) error) error
}

// SearchRequest is the Search Collector input.
type SearchRequest struct {
	Interest  string
	Freshness time.Duration
	Limit     int
}

// SearchCollector returns candidate articles for an interest. No ordering is guaranteed.
type SearchCollector interface {
	Search(ctx context.Context, req SearchRequest) ([]domain.Candidate, error)
}

// Clusterer groups articles by story and scores their significance.
type Clusterer interface {
	Cluster(ctx context.Context, articles []domain.Article) ([]domain.Cluster, error)
}

// TopicExtractor assigns 2-4 topics with relevance to an article.
type TopicExtractor interface {
	ExtractTopics(ctx context.Context, article domain.Article) ([]domain.TopicRelevance, error)
}

// ContentFetcher selects ranked articles worth reading in full and fetches their content.
// Per-article errors are reported in the result, never returned.
type ContentFetcher interface {
	Fetch(ctx context.Context, ranked []domain.Article) domain.FetchReport
}

// SummaryRequest carries everything the summarizer may cite.
type SummaryRequest struct {
	Fetched []domain.FetchedArticle
	Ranked  []domain.Article
	Topics  []string
}

// Summarizer turns fetched content into a structured briefing document.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (domain.BriefingSummary, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
