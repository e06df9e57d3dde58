package usecase

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/metrics"
	"NewsCurator/internal/ports"
)

const (
	templateHeadlines   = 3
	templateCitations   = 12
	templateSnippetRune = 280
)

// SummaryResult is the output of the summarization stage.
type SummaryResult struct {
	Summary  domain.BriefingSummary
	Fallback bool
}

// SummaryStage produces the briefing document, falling back to a template.
type SummaryStage struct {
	summarizer ports.Summarizer
	logger     *slog.Logger
}

// NewSummaryStage builds the stage; a nil summarizer always uses the template.
func NewSummaryStage(summarizer ports.Summarizer, logger *slog.Logger) *SummaryStage {
	return &SummaryStage{summarizer: summarizer, logger: orDiscard(logger)}
}

// Summarize never fails: collaborator errors and empty fetch results yield the templated summary.
func (s *SummaryStage) Summarize(ctx context.Context, req ports.SummaryRequest) SummaryResult {
	if s.summarizer != nil && len(req.Fetched) > 0 {
		summary, err := s.summarizer.Summarize(ctx, req)
		if err == nil && len(summary.Headlines)+len(summary.Bites) > 0 {
			summary.Fallback = false
			return SummaryResult{Summary: summary}
		}
		if err != nil {
			s.logger.Warn("summarizer failed, using template", "error", err)
		} else {
			s.logger.Warn("summarizer returned an empty document, using template")
		}
	}

	metrics.CollaboratorFallbacks.WithLabelValues("summary").Inc()
	return SummaryResult{Summary: TemplateSummary(req), Fallback: true}
}

// TemplateSummary builds a briefing straight from article titles and descriptions.
// The top ranked articles become headlines, the rest one-line bites.
func TemplateSummary(req ports.SummaryRequest) domain.BriefingSummary {
	fetched := make(map[string]domain.FetchedArticle, len(req.Fetched))
	for _, f := range req.Fetched {
		fetched[f.Article.URL] = f
	}

	articles := req.Ranked
	if len(articles) == 0 {
		for _, f := range req.Fetched {
			articles = append(articles, f.Article)
		}
	}
	if len(articles) > templateCitations {
		articles = articles[:templateCitations]
	}

	summary := domain.BriefingSummary{
		Headlines: []domain.Story{},
		Bites:     []domain.Bite{},
		Images:    []domain.Image{},
		Citations: []domain.Citation{},
		Fallback:  true,
	}
	for i, article := range articles {
		index := i + 1
		title := strings.TrimSpace(article.Title)
		if f, ok := fetched[article.URL]; ok && title == "" {
			title = f.Title
		}
		if title == "" {
			title = article.URL
		}

		summary.Citations = append(summary.Citations, domain.Citation{
			Index:  index,
			Title:  title,
			URL:    article.URL,
			Source: article.Source,
		})

		if i < templateHeadlines {
			text := strings.TrimSpace(article.Description)
			if text == "" {
				text = snippet(fetched[article.URL].Content, templateSnippetRune)
			}
			summary.Headlines = append(summary.Headlines, domain.Story{
				Title:     title,
				Summary:   text,
				Citations: []int{index},
			})
		} else {
			summary.Bites = append(summary.Bites, domain.Bite{Text: title, Citations: []int{index}})
		}

		if article.ThumbnailURL != "" {
			summary.Images = append(summary.Images, domain.Image{
				URL:      article.ThumbnailURL,
				Caption:  title,
				Citation: index,
			})
		}
	}
	return summary
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
