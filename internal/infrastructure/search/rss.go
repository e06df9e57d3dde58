package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NewsCurator/internal/collector"
	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

// DefaultRSSEndpoint is Google News' RSS search.
const DefaultRSSEndpoint = "https://news.google.com/rss/search"

// RSSProvider searches a Google-News-style RSS search endpoint. It needs no credentials.
type RSSProvider struct {
	endpoint string
	locale   string
	parser   *gofeed.Parser
}

var _ collector.Provider = (*RSSProvider)(nil)

// NewRSSProvider creates a provider; locale is a language tag such as "en-US".
func NewRSSProvider(endpoint, locale string, timeout time.Duration) *RSSProvider {
	if endpoint == "" {
		endpoint = DefaultRSSEndpoint
	}
	if locale == "" {
		locale = "en-US"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "NewsCurator/1.0"
	return &RSSProvider{endpoint: endpoint, locale: locale, parser: parser}
}

// Name identifies the provider inside the registry.
func (r *RSSProvider) Name() string {
	return "rss"
}

// Search fetches the RSS search feed for the interest.
func (r *RSSProvider) Search(ctx context.Context, req ports.SearchRequest) ([]domain.Candidate, error) {
	feedURL := r.searchURL(req)
	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	var candidates []domain.Candidate
	for _, item := range feed.Items {
		if req.Limit > 0 && len(candidates) >= req.Limit {
			break
		}
		candidates = append(candidates, toCandidate(item, feed.Title))
	}
	return candidates, nil
}

func (r *RSSProvider) searchURL(req ports.SearchRequest) string {
	q := req.Interest
	if when := whenOperator(req.Freshness); when != "" {
		q += " " + when
	}

	country := "US"
	if _, region, ok := strings.Cut(r.locale, "-"); ok && region != "" {
		country = strings.ToUpper(region)
	}
	language, _, _ := strings.Cut(r.locale, "-")

	values := url.Values{}
	values.Set("q", q)
	values.Set("hl", r.locale)
	values.Set("gl", country)
	values.Set("ceid", country+":"+language)
	return r.endpoint + "?" + values.Encode()
}

// whenOperator renders the freshness window as a search operator ("when:6h", "when:2d").
func whenOperator(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < 24*time.Hour {
		hours := int(d.Round(time.Hour) / time.Hour)
		return fmt.Sprintf("when:%dh", max(hours, 1))
	}
	return fmt.Sprintf("when:%dd", int(d.Round(24*time.Hour)/(24*time.Hour)))
}

func toCandidate(item *gofeed.Item, feedTitle string) domain.Candidate {
	title := strings.TrimSpace(item.Title)
	source := ""
	// Aggregated headlines end with " - Publisher".
	if i := strings.LastIndex(title, " - "); i > 0 {
		source = strings.TrimSpace(title[i+3:])
		title = strings.TrimSpace(title[:i])
	}
	if source == "" && item.Author != nil {
		source = item.Author.Name
	}
	if source == "" {
		source = feedTitle
	}

	candidate := domain.Candidate{
		Title:       title,
		URL:         strings.TrimSpace(item.Link),
		Description: plainText(item.Description),
		Source:      source,
	}
	if item.PublishedParsed != nil {
		candidate.PublishedAt = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		candidate.PublishedAt = item.UpdatedParsed.UTC()
	}

	if item.Image != nil {
		candidate.ThumbnailURL = item.Image.URL
	}
	for _, enclosure := range item.Enclosures {
		if candidate.ThumbnailURL == "" && strings.HasPrefix(enclosure.Type, "image/") {
			candidate.ThumbnailURL = enclosure.URL
		}
	}
	return candidate
}

func plainText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
