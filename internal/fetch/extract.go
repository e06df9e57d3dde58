package fetch

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
)

var (
	errEmptyContent  = errors.New("no readable content")
	excessiveLinesRe = regexp.MustCompile(`\n{3,}`)
)

// Container selectors in order of preference.
var bodySelectors = []string{
	"article",
	"main",
	"[role=main]",
	"[itemprop=articleBody]",
	".article-body",
	".article-content",
	".story-body",
	".post-content",
	".entry-content",
	"#content",
	".content",
}

const noiseSelector = "script, style, noscript, template, iframe, form, nav, footer, aside, header, " +
	"[role=navigation], [role=complementary], [aria-hidden=true], " +
	".ad, .ads, .advert, .advertisement, .sponsored, .promo, .newsletter, " +
	".social, .share, .related, .comments, .breadcrumb, " +
	"[class*=advert], [id*=advert], [class*=cookie]"

var publishedSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="article:published_time"]`, "content"},
	{`meta[name="pubdate"]`, "content"},
	{`meta[name="publish-date"]`, "content"},
	{`meta[name="date"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`time[datetime]`, "datetime"},
}

var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// Extracted is the readable part of a fetched page.
type Extracted struct {
	Title       string
	Author      string
	PublishedAt time.Time
	Text        string
	Markdown    string
}

// Extractor turns raw page bytes into readable text and markdown.
type Extractor struct {
	converter       *md.Converter
	minContentChars int
	fallbackChars   int
}

// NewExtractor builds an extractor with the given body thresholds.
func NewExtractor(opts Options) *Extractor {
	opts = opts.withDefaults()
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Extractor{
		converter:       converter,
		minContentChars: opts.MinContentChars,
		fallbackChars:   opts.FallbackChars,
	}
}

// Extract parses body according to its content type. Non-HTML bodies and pages whose
// main container is too short fall back to a truncated raw-text slice.
func (e *Extractor) Extract(body []byte, contentType string) (Extracted, error) {
	if !isHTML(contentType, body) {
		text := truncate(collapseSpace(string(body)), e.fallbackChars)
		if text == "" {
			return Extracted{}, errEmptyContent
		}
		return Extracted{Text: text}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Extracted{}, fmt.Errorf("parse document: %w", err)
	}

	out := Extracted{
		Title:       extractTitle(doc),
		Author:      extractAuthor(doc),
		PublishedAt: extractPublished(doc),
	}

	doc.Find(noiseSelector).Remove()

	container := mainContainer(doc, e.minContentChars)
	if container != nil {
		out.Text = collapseSpace(container.Text())
		if html, err := goquery.OuterHtml(container); err == nil {
			if markdown, err := e.converter.ConvertString(html); err == nil {
				out.Markdown = cleanMarkdown(markdown)
			}
		}
		return out, nil
	}

	out.Text = truncate(collapseSpace(doc.Find("body").Text()), e.fallbackChars)
	if out.Text == "" {
		return Extracted{}, errEmptyContent
	}
	return out, nil
}

func mainContainer(doc *goquery.Document, minChars int) *goquery.Selection {
	for _, selector := range bodySelectors {
		var found *goquery.Selection
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if utf8.RuneCountInString(collapseSpace(s.Text())) >= minChars {
				found = s
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}

	body := doc.Find("body").First()
	if body.Length() > 0 && utf8.RuneCountInString(collapseSpace(body.Text())) >= minChars {
		return body
	}
	return nil
}

func extractTitle(doc *goquery.Document) string {
	for _, selector := range []string{`meta[property="og:title"]`, `meta[name="twitter:title"]`} {
		if v, ok := doc.Find(selector).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if h1 := collapseSpace(doc.Find("article h1, main h1, h1").First().Text()); h1 != "" {
		return h1
	}
	return collapseSpace(doc.Find("title").First().Text())
}

func extractAuthor(doc *goquery.Document) string {
	for _, selector := range []string{`meta[name="author"]`, `meta[property="article:author"]`} {
		if v, ok := doc.Find(selector).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	author := collapseSpace(doc.Find(`[rel="author"], [itemprop="author"], .author, .byline`).First().Text())
	return strings.TrimSpace(strings.TrimPrefix(author, "By "))
}

func extractPublished(doc *goquery.Document) time.Time {
	for _, candidate := range publishedSelectors {
		v, ok := doc.Find(candidate.selector).First().Attr(candidate.attr)
		if !ok {
			continue
		}
		if t, ok := parseDate(v); ok {
			return t
		}
	}
	return time.Time{}
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func isHTML(contentType string, body []byte) bool {
	if contentType != "" {
		if media, _, err := mime.ParseMediaType(contentType); err == nil {
			return media == "text/html" || media == "application/xhtml+xml"
		}
	}
	head := strings.ToLower(string(body[:min(len(body), 512)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func cleanMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = excessiveLinesRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(content)
}
