package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/metrics"
	"NewsCurator/internal/ports"
)

var errStatus = errors.New("unexpected status")

// Prioritizer selects the best articles per cluster and fetches their full content.
type Prioritizer struct {
	client    *http.Client
	opts      Options
	extractor *Extractor
	logger    *slog.Logger
	clock     func() time.Time
}

var _ ports.ContentFetcher = (*Prioritizer)(nil)

// NewPrioritizer wires an HTTP client; a nil client gets a default transport.
// Timeouts come from opts, not from the client.
func NewPrioritizer(client *http.Client, opts Options, logger *slog.Logger) *Prioritizer {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts = opts.withDefaults()
	return &Prioritizer{
		client:    client,
		opts:      opts,
		extractor: NewExtractor(opts),
		logger:    logger,
		clock:     time.Now,
	}
}

// Fetch selects up to MaxPerCluster articles per cluster and fetches them in a fresh session.
func (p *Prioritizer) Fetch(ctx context.Context, ranked []domain.Article) domain.FetchReport {
	selected := Select(ranked, p.opts.MaxPerCluster)
	report := p.FetchSelected(ctx, NewSession(p.opts, p.clock), selected)
	p.logger.Info("fetch batch finished",
		"ranked", len(ranked),
		"selected", report.Selected,
		"fetched", len(report.Fetched),
		"failed", len(report.Failures))
	return report
}

// FetchSelected fetches the given articles concurrently within the batch ceiling.
// Articles not started when the ceiling fires fail with reason "timeout".
func (p *Prioritizer) FetchSelected(ctx context.Context, session *Session, articles []domain.Article) domain.FetchReport {
	batchCtx, cancel := context.WithTimeout(ctx, p.opts.BatchCeiling)
	defer cancel()

	type outcome struct {
		fetched *domain.FetchedArticle
		failure *domain.FetchFailure
	}
	outcomes := make([]outcome, len(articles))

	var g errgroup.Group
	g.SetLimit(p.opts.MaxConcurrent)
	for i, article := range articles {
		if batchCtx.Err() != nil {
			outcomes[i].failure = p.fail(article, domain.ReasonTimeout, "batch deadline reached before start")
			continue
		}
		g.Go(func() error {
			if batchCtx.Err() != nil {
				outcomes[i].failure = p.fail(article, domain.ReasonTimeout, "batch deadline reached before start")
				return nil
			}
			fetched, failure := p.fetchOne(batchCtx, session, article)
			outcomes[i] = outcome{fetched: fetched, failure: failure}
			return nil
		})
	}
	_ = g.Wait()

	report := domain.FetchReport{Selected: len(articles)}
	for _, o := range outcomes {
		switch {
		case o.fetched != nil:
			report.Fetched = append(report.Fetched, *o.fetched)
		case o.failure != nil:
			report.Failures = append(report.Failures, *o.failure)
		}
	}
	return report
}

func (p *Prioritizer) fetchOne(ctx context.Context, session *Session, article domain.Article) (*domain.FetchedArticle, *domain.FetchFailure) {
	target, err := url.Parse(article.URL)
	if err != nil || target.Host == "" || (target.Scheme != "http" && target.Scheme != "https") {
		return nil, p.fail(article, domain.ReasonInvalid, fmt.Sprintf("cannot fetch %q", article.URL))
	}
	host := strings.ToLower(target.Host)

	if session.Skipped(host) {
		return nil, p.fail(article, domain.ReasonSkipped, "domain failed too often")
	}

	articleCtx, cancel := context.WithTimeout(ctx, p.opts.ArticleTimeout)
	defer cancel()

	rules := session.Robots(articleCtx, host, target.Scheme+"://"+target.Host, p.loadRobots)
	if !rules.Allowed(requestPath(target)) {
		return nil, p.fail(article, domain.ReasonRobots, "disallowed by robots.txt")
	}

	if err := session.Wait(articleCtx, host); err != nil {
		session.RecordFailure(host)
		return nil, p.fail(article, domain.ReasonTimeout, err.Error())
	}
	// Failures may have piled up while this article waited for its turn.
	if session.Skipped(host) {
		return nil, p.fail(article, domain.ReasonSkipped, "domain failed too often")
	}

	body, contentType, err := p.get(articleCtx, article.URL)
	if err != nil {
		session.RecordFailure(host)
		return nil, p.fail(article, classify(err), err.Error())
	}

	extracted, err := p.extractor.Extract(body, contentType)
	if err != nil {
		session.RecordFailure(host)
		return nil, p.fail(article, domain.ReasonContent, err.Error())
	}

	metrics.FetchOutcomes.WithLabelValues("ok").Inc()
	fetched := &domain.FetchedArticle{
		Article:     article,
		Title:       extracted.Title,
		Author:      extracted.Author,
		PublishedAt: extracted.PublishedAt,
		Content:     extracted.Text,
		Markdown:    extracted.Markdown,
	}
	if fetched.Title == "" {
		fetched.Title = article.Title
	}
	return fetched, nil
}

func (p *Prioritizer) get(ctx context.Context, target string) ([]byte, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w %s", errStatus, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.opts.MaxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (p *Prioritizer) loadRobots(ctx context.Context, siteRoot string) (*Rules, error) {
	robotsCtx, cancel := context.WithTimeout(ctx, p.opts.RobotsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(robotsCtx, http.MethodGet, siteRoot+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.opts.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("robots unavailable, allowing", "site", siteRoot, "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Debug("robots not served, allowing", "site", siteRoot, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w %s", errStatus, resp.Status)
	}
	return ParseRobots(io.LimitReader(resp.Body, 512<<10), p.opts.UserAgent), nil
}

func (p *Prioritizer) fail(article domain.Article, reason, detail string) *domain.FetchFailure {
	metrics.FetchOutcomes.WithLabelValues(reason).Inc()
	p.logger.Debug("article fetch failed", "url", article.URL, "reason", reason, "detail", detail)
	return &domain.FetchFailure{Article: article, Reason: reason, Detail: detail}
}

func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return domain.ReasonTimeout
	case errors.Is(err, errStatus):
		return domain.ReasonHTTP
	default:
		return domain.ReasonNetwork
	}
}

func requestPath(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}
