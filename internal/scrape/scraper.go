// Package scrape fetches pages and extracts article content, metadata and
// outbound links.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gopost/gopost/internal/logger"
)

// ErrStale is returned when a page's publication date is older than the
// freshness window.
var ErrStale = errors.New("content too old")

const (
	defaultTimeout = 20 * time.Second

	// maxContentAge is the freshness window; older articles are rejected.
	maxContentAge = 7 * 24 * time.Hour

	// maxBodyChars caps the extracted body kept for composition context.
	maxBodyChars = 3000
)

// Content is the enrichment result for a URL.
type Content struct {
	Title       string
	Body        string
	ImageURL    string
	PublishedAt time.Time // zero when the page carries no parseable date
}

// Enricher fetches a page and extracts its main text and representative
// image.
type Enricher struct {
	client *http.Client
	maxAge time.Duration
	logger logger.Logger
}

// NewEnricher creates an enricher with the given per-fetch timeout.
func NewEnricher(timeout time.Duration, log logger.Logger) *Enricher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Enricher{
		client: &http.Client{Timeout: timeout},
		maxAge: maxContentAge,
		logger: log,
	}
}

// Enrich fetches the URL and extracts title, body text, representative image
// and publication date. Returns ErrStale when the page is older than the
// freshness window. A page without a parseable date is kept.
func (e *Enricher) Enrich(ctx context.Context, pageURL string) (*Content, error) {
	doc, err := e.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	content := &Content{
		Title:    findTitle(doc),
		ImageURL: findImage(doc, pageURL),
	}

	if published, ok := findPublishedTime(doc); ok {
		content.PublishedAt = published
		if time.Since(published) > e.maxAge {
			e.logger.Debug("rejecting stale article",
				logger.String("url", pageURL),
				logger.Time("published_at", published),
			)
			return nil, fmt.Errorf("%w: published %s", ErrStale, published.Format(time.RFC3339))
		}
	}

	body := findMainText(doc)
	if len([]rune(body)) > maxBodyChars {
		body = string([]rune(body)[:maxBodyChars])
	}
	content.Body = body

	return content, nil
}

// ExtractLinks returns the unique absolute http(s) links on the page, in
// document order.
func (e *Enricher) ExtractLinks(ctx context.Context, pageURL string) ([]string, error) {
	doc, err := e.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	var links []string
	seen := make(map[string]struct{})
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.A {
			return true
		}
		href := attr(n, "href")
		if href == "" {
			return true
		}
		ref, parseErr := url.Parse(href)
		if parseErr != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return true
		}
		abs.Fragment = ""
		link := abs.String()
		if _, dup := seen[link]; !dup {
			seen[link] = struct{}{}
			links = append(links, link)
		}
		return true
	})
	return links, nil
}

func (e *Enricher) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create fetch request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
