package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"NewsCurator/internal/collector"
	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

// DefaultBraveEndpoint is the Brave news search API.
const DefaultBraveEndpoint = "https://api.search.brave.com/res/v1/news/search"

// BraveProvider queries the Brave news search API.
type BraveProvider struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ collector.Provider = (*BraveProvider)(nil)

// NewBraveProvider creates a provider; the subscription token is mandatory.
func NewBraveProvider(endpoint, apiKey string, timeout time.Duration) (*BraveProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("brave search requires an api key")
	}
	if endpoint == "" {
		endpoint = DefaultBraveEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &BraveProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// Name identifies the provider inside the registry.
func (b *BraveProvider) Name() string {
	return "brave"
}

type braveResponse struct {
	Results []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		PageAge     string `json:"page_age"`
		MetaURL     struct {
			Hostname string `json:"hostname"`
		} `json:"meta_url"`
		Thumbnail struct {
			Src string `json:"src"`
		} `json:"thumbnail"`
	} `json:"results"`
}

// Search asks Brave for recent news about the interest.
func (b *BraveProvider) Search(ctx context.Context, req ports.SearchRequest) ([]domain.Candidate, error) {
	query := url.Values{}
	query.Set("q", req.Interest)
	if req.Limit > 0 {
		query.Set("count", strconv.Itoa(req.Limit))
	}
	if f := braveFreshness(req.Freshness); f != "" {
		query.Set("freshness", f)
	}

	var resp braveResponse
	if err := b.get(ctx, query, &resp); err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		candidate := domain.Candidate{
			Title:        strings.TrimSpace(r.Title),
			URL:          strings.TrimSpace(r.URL),
			Description:  strings.TrimSpace(r.Description),
			Source:       r.MetaURL.Hostname,
			ThumbnailURL: r.Thumbnail.Src,
		}
		if t, err := time.Parse(time.RFC3339, r.PageAge); err == nil {
			candidate.PublishedAt = t.UTC()
		} else if t, err := time.Parse("2006-01-02T15:04:05", r.PageAge); err == nil {
			candidate.PublishedAt = t.UTC()
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// braveFreshness maps a freshness window onto Brave's coarse buckets.
func braveFreshness(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d <= 24*time.Hour:
		return "pd"
	case d <= 7*24*time.Hour:
		return "pw"
	case d <= 31*24*time.Hour:
		return "pm"
	default:
		return "py"
	}
}

func (b *BraveProvider) get(ctx context.Context, query url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if closeErr := resp.Body.Close(); closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}
	return nil
}
