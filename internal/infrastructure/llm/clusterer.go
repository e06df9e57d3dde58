package llm

import (
	"context"
	"fmt"
	"strings"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

const clusterPrompt = `You group news articles that report on the same story.
You receive a numbered list of articles. Answer with JSON only, shaped as
{"clusters":[{"topic":"short story label","articles":[{"index":1,"significance":0.8}]}]}.
Every article index belongs to exactly one cluster. Significance is a number between 0 and 1
describing how important the story is for a general reader.`

// Clusterer groups articles into stories with a language model.
type Clusterer struct {
	client *Client
}

var _ ports.Clusterer = (*Clusterer)(nil)

// NewClusterer wraps a client.
func NewClusterer(client *Client) *Clusterer {
	return &Clusterer{client: client}
}

type clusterAnswer struct {
	Clusters []struct {
		Topic    string `json:"topic"`
		Articles []struct {
			Index        int     `json:"index"`
			Significance float64 `json:"significance"`
		} `json:"articles"`
	} `json:"clusters"`
}

// Cluster asks the model for story groups. Indices outside the list are ignored.
func (c *Clusterer) Cluster(ctx context.Context, articles []domain.Article) ([]domain.Cluster, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	var prompt strings.Builder
	for i, article := range articles {
		fmt.Fprintf(&prompt, "%d. %s (%s)\n", i+1, oneLine(article.Title), article.Source)
		if d := oneLine(article.Description); d != "" {
			fmt.Fprintf(&prompt, "   %s\n", clip(d, 300))
		}
	}

	var answer clusterAnswer
	if err := c.client.completeJSON(ctx, clusterPrompt, prompt.String(), &answer); err != nil {
		return nil, fmt.Errorf("cluster %d articles: %w", len(articles), err)
	}
	if len(answer.Clusters) == 0 {
		return nil, fmt.Errorf("cluster %d articles: %w", len(articles), errEmptyCompletion)
	}

	clusters := make([]domain.Cluster, 0, len(answer.Clusters))
	for i, group := range answer.Clusters {
		cluster := domain.Cluster{
			ID:    fmt.Sprintf("c%d", i+1),
			Topic: strings.TrimSpace(group.Topic),
		}
		for _, member := range group.Articles {
			if member.Index < 1 || member.Index > len(articles) {
				continue
			}
			cluster.Members = append(cluster.Members, domain.ClusterMember{
				URL:          articles[member.Index-1].URL,
				Significance: member.Significance,
			})
		}
		clusters = append(clusters, cluster)
	}
	return clusters, nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
