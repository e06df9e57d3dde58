package llm

import (
	"context"
	"fmt"
	"strings"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

const (
	summaryBodyRunes = 3000
	summaryMaxSource = 12
)

const summaryPrompt = `You write a short news briefing from numbered source articles.
Answer with JSON only, shaped as
{"headlines":[{"title":"...","summary":"two or three sentences","citations":[1]}],
 "bites":[{"text":"one sentence","citations":[2]}],
 "images":[{"url":"one of the listed image urls","caption":"...","citation":1}]}.
Use 2 to 4 headlines for the most important stories and one bite per remaining story.
Cite sources by their number only. Do not invent facts or image urls.`

// Summarizer writes the briefing document with a language model.
type Summarizer struct {
	client *Client
}

var _ ports.Summarizer = (*Summarizer)(nil)

// NewSummarizer wraps a client.
func NewSummarizer(client *Client) *Summarizer {
	return &Summarizer{client: client}
}

type summaryAnswer struct {
	Headlines []domain.Story `json:"headlines"`
	Bites     []domain.Bite  `json:"bites"`
	Images    []domain.Image `json:"images"`
}

// Summarize cites fetched articles first, then ranked articles that were not fetched.
// Citation numbers and image urls the model made up are dropped.
func (s *Summarizer) Summarize(ctx context.Context, req ports.SummaryRequest) (domain.BriefingSummary, error) {
	sources := citationSources(req)
	if len(sources) == 0 {
		return domain.BriefingSummary{}, fmt.Errorf("summarize: no source articles")
	}

	citations := make([]domain.Citation, len(sources))
	images := map[string]int{}
	var prompt strings.Builder
	if len(req.Topics) > 0 {
		fmt.Fprintf(&prompt, "Topics: %s\n\n", strings.Join(req.Topics, ", "))
	}
	for i, src := range sources {
		index := i + 1
		citations[i] = domain.Citation{Index: index, Title: src.title, URL: src.article.URL, Source: src.article.Source}

		fmt.Fprintf(&prompt, "[%d] %s (%s)\n", index, oneLine(src.title), src.article.Source)
		if src.article.ThumbnailURL != "" {
			images[src.article.ThumbnailURL] = index
			fmt.Fprintf(&prompt, "Image: %s\n", src.article.ThumbnailURL)
		}
		body := src.body
		if body == "" {
			body = src.article.Description
		}
		fmt.Fprintf(&prompt, "%s\n\n", clip(strings.TrimSpace(body), summaryBodyRunes))
	}

	var answer summaryAnswer
	if err := s.client.completeJSON(ctx, summaryPrompt, prompt.String(), &answer); err != nil {
		return domain.BriefingSummary{}, fmt.Errorf("summarize %d sources: %w", len(sources), err)
	}

	summary := domain.BriefingSummary{
		Headlines: []domain.Story{},
		Bites:     []domain.Bite{},
		Images:    []domain.Image{},
		Citations: citations,
	}
	for _, story := range answer.Headlines {
		story.Title = strings.TrimSpace(story.Title)
		story.Summary = strings.TrimSpace(story.Summary)
		if story.Title == "" && story.Summary == "" {
			continue
		}
		story.Citations = validCitations(story.Citations, len(sources))
		summary.Headlines = append(summary.Headlines, story)
	}
	for _, bite := range answer.Bites {
		bite.Text = strings.TrimSpace(bite.Text)
		if bite.Text == "" {
			continue
		}
		bite.Citations = validCitations(bite.Citations, len(sources))
		summary.Bites = append(summary.Bites, bite)
	}
	for _, image := range answer.Images {
		index, ok := images[image.URL]
		if !ok {
			continue
		}
		image.Citation = index
		summary.Images = append(summary.Images, image)
	}
	return summary, nil
}

type citationSource struct {
	article domain.Article
	title   string
	body    string
}

func citationSources(req ports.SummaryRequest) []citationSource {
	seen := map[string]bool{}
	var sources []citationSource
	for _, f := range req.Fetched {
		if len(sources) == summaryMaxSource {
			return sources
		}
		title := f.Title
		if title == "" {
			title = f.Article.Title
		}
		body := f.Markdown
		if body == "" {
			body = f.Content
		}
		seen[f.Article.URL] = true
		sources = append(sources, citationSource{article: f.Article, title: title, body: body})
	}
	for _, article := range req.Ranked {
		if len(sources) == summaryMaxSource {
			break
		}
		if seen[article.URL] {
			continue
		}
		seen[article.URL] = true
		sources = append(sources, citationSource{article: article, title: article.Title})
	}
	return sources
}

func validCitations(indices []int, n int) []int {
	out := []int{}
	seen := map[int]bool{}
	for _, i := range indices {
		if i < 1 || i > n || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	return out
}
