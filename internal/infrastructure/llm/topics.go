package llm

import (
	"context"
	"fmt"
	"strings"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

const topicPrompt = `You tag news articles with topics a reader could follow.
Answer with JSON only, shaped as {"topics":[{"name":"topic","relevance":0.9}]}.
Give 2 to 4 short, general topics (one to three words each, lower case) with relevance between 0 and 1.`

// TopicExtractor tags one article at a time with a language model.
type TopicExtractor struct {
	client *Client
}

var _ ports.TopicExtractor = (*TopicExtractor)(nil)

// NewTopicExtractor wraps a client.
func NewTopicExtractor(client *Client) *TopicExtractor {
	return &TopicExtractor{client: client}
}

// ExtractTopics returns the model's topics unfiltered; normalization happens in the topic stage.
func (t *TopicExtractor) ExtractTopics(ctx context.Context, article domain.Article) ([]domain.TopicRelevance, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Title: %s\n", oneLine(article.Title))
	if article.Source != "" {
		fmt.Fprintf(&prompt, "Source: %s\n", article.Source)
	}
	if d := oneLine(article.Description); d != "" {
		fmt.Fprintf(&prompt, "Description: %s\n", clip(d, 600))
	}

	var answer struct {
		Topics []struct {
			Name      string  `json:"name"`
			Relevance float64 `json:"relevance"`
		} `json:"topics"`
	}
	if err := t.client.completeJSON(ctx, topicPrompt, prompt.String(), &answer); err != nil {
		return nil, fmt.Errorf("topics for %s: %w", article.URL, err)
	}

	topics := make([]domain.TopicRelevance, 0, len(answer.Topics))
	for _, topic := range answer.Topics {
		topics = append(topics, domain.TopicRelevance{Name: topic.Name, Relevance: topic.Relevance})
	}
	return topics, nil
}
