package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/metrics"
	"NewsCurator/internal/ports"
)

// Synthetic cluster ids.
const (
	FallbackClusterID = "all"
	OtherClusterID    = "other"
)

// ClusterResult is the output of the clustering stage.
type ClusterResult struct {
	Articles []domain.Article
	Clusters []domain.Cluster
	// Fallback is true when the clusterer was unavailable or failed.
	Fallback bool
}

// FallbackClusters puts every article into one cluster with default significance.
func FallbackClusters(articles []domain.Article) []domain.Cluster {
	cluster := domain.Cluster{ID: FallbackClusterID, Topic: "Top stories"}
	for _, article := range articles {
		cluster.Members = append(cluster.Members, domain.ClusterMember{
			URL:          article.URL,
			Significance: domain.DefaultSignificance,
		})
	}
	return []domain.Cluster{cluster}
}

// AssignClusters copies cluster ids and significance onto the articles by URL.
// Members pointing at unknown URLs are dropped, the first cluster to claim an article wins,
// and articles no cluster claimed join the "other" cluster.
func AssignClusters(articles []domain.Article, clusters []domain.Cluster) ([]domain.Article, []domain.Cluster) {
	index := make(map[string]int, len(articles))
	for i, article := range articles {
		index[article.URL] = i
	}

	assigned := make([]domain.Article, len(articles))
	copy(assigned, articles)
	claimed := make([]bool, len(articles))

	var kept []domain.Cluster
	for _, cluster := range clusters {
		if cluster.ID == "" {
			cluster.ID = fmt.Sprintf("cluster-%d", len(kept)+1)
		}
		var members []domain.ClusterMember
		for _, member := range cluster.Members {
			i, ok := index[member.URL]
			if !ok || claimed[i] {
				continue
			}
			claimed[i] = true
			member.Significance = domain.Clamp(member.Significance, 0, 1)
			assigned[i].ClusterID = cluster.ID
			assigned[i].SignificanceScore = member.Significance
			members = append(members, member)
		}
		if len(members) > 0 {
			cluster.Members = members
			kept = append(kept, cluster)
		}
	}

	other := domain.Cluster{ID: OtherClusterID, Topic: "Other"}
	for i := range assigned {
		if claimed[i] {
			continue
		}
		assigned[i].ClusterID = OtherClusterID
		assigned[i].SignificanceScore = domain.DefaultSignificance
		other.Members = append(other.Members, domain.ClusterMember{
			URL:          assigned[i].URL,
			Significance: domain.DefaultSignificance,
		})
	}
	if len(other.Members) > 0 {
		kept = append(kept, other)
	}
	return assigned, kept
}

// ClusterStage groups new articles and records cluster membership on the article rows.
type ClusterStage struct {
	clusterer ports.Clusterer
	store     ports.Store
	logger    *slog.Logger
}

// NewClusterStage builds the stage; a nil clusterer always takes the fallback.
func NewClusterStage(clusterer ports.Clusterer, store ports.Store, logger *slog.Logger) *ClusterStage {
	return &ClusterStage{clusterer: clusterer, store: store, logger: orDiscard(logger)}
}

// Cluster groups the articles and persists cluster ids and significance in one transaction.
func (s *ClusterStage) Cluster(ctx context.Context, articles []domain.Article) (ClusterResult, error) {
	if len(articles) == 0 {
		return ClusterResult{}, nil
	}

	var (
		clusters []domain.Cluster
		fallback bool
	)
	if s.clusterer == nil {
		fallback = true
	} else {
		var err error
		clusters, err = s.clusterer.Cluster(ctx, articles)
		if err != nil {
			s.logger.Warn("clusterer failed, using single cluster", "error", err)
			fallback = true
		}
	}
	if fallback {
		metrics.CollaboratorFallbacks.WithLabelValues("clustering").Inc()
		clusters = FallbackClusters(articles)
	}

	assigned, clusters := AssignClusters(articles, clusters)

	err := s.store.WithTx(ctx, func(tx ports.Repositories) error {
		for _, article := range assigned {
			if err := tx.UpdateArticleCluster(ctx, article.ID, article.ClusterID, article.SignificanceScore); err != nil {
				return fmt.Errorf("save cluster of article %d: %w", article.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return ClusterResult{}, err
	}

	s.logger.Info("articles clustered", "articles", len(assigned), "clusters", len(clusters), "fallback", fallback)
	return ClusterResult{Articles: assigned, Clusters: clusters, Fallback: fallback}, nil
}
