// Package discovery finds candidate content for monitored topics. Each
// source kind has its own adapter: web search, social search, and specific
// URL crawling.
package discovery

import (
	"context"
	"fmt"
	"sort"

	"github.com/gopost/gopost/internal/domain"
	"github.com/gopost/gopost/internal/logger"
	"github.com/gopost/gopost/internal/scrape"
	"github.com/gopost/gopost/internal/search"
	"github.com/gopost/gopost/internal/twitter"
)

const (
	maxWebResults    = 5
	maxSocialResults = 3
)

// Candidate is one piece of discovered content. Direct items already carry
// their full body and skip the enrichment stage.
type Candidate struct {
	URL          string
	Title        string
	Body         string
	IsDirectItem bool
}

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]search.Result, error)
}

// SocialSearcher runs recent-post searches on the social platform.
type SocialSearcher interface {
	SearchRecent(ctx context.Context, query string, maxResults int) ([]twitter.Tweet, error)
}

// LinkExtractor pulls outbound links from a page.
type LinkExtractor interface {
	ExtractLinks(ctx context.Context, pageURL string) ([]string, error)
}

// Service dispatches discovery to the adapter matching the topic's source
// kind.
type Service struct {
	searcher  Searcher
	social    SocialSearcher
	extractor LinkExtractor
	logger    logger.Logger
}

// NewService creates a discovery service.
func NewService(searcher Searcher, social SocialSearcher, extractor LinkExtractor, log logger.Logger) *Service {
	return &Service{
		searcher:  searcher,
		social:    social,
		extractor: extractor,
		logger:    log,
	}
}

// Discover returns candidates for the topic, ordered best first.
func (s *Service) Discover(ctx context.Context, topic *domain.MonitoredTopic) ([]Candidate, error) {
	switch topic.SourceKind {
	case domain.SourceWebSearch:
		return s.discoverWeb(ctx, topic.Query)
	case domain.SourceSocialSearch:
		return s.discoverSocial(ctx, topic.Query)
	case domain.SourceSpecificURL:
		return s.discoverLinks(ctx, topic.Query)
	default:
		return nil, fmt.Errorf("unknown source kind %q: %w", topic.SourceKind, domain.ErrInvalidTopic)
	}
}

func (s *Service) discoverWeb(ctx context.Context, query string) ([]Candidate, error) {
	results, err := s.searcher.Search(ctx, query, maxWebResults)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, Candidate{URL: r.URL, Title: r.Title})
	}
	return candidates, nil
}

func (s *Service) discoverSocial(ctx context.Context, query string) ([]Candidate, error) {
	tweets, err := s.social.SearchRecent(ctx, query, 20)
	if err != nil {
		return nil, fmt.Errorf("social search: %w", err)
	}

	sort.SliceStable(tweets, func(i, j int) bool {
		return tweets[i].EngagementScore() > tweets[j].EngagementScore()
	})
	if len(tweets) > maxSocialResults {
		tweets = tweets[:maxSocialResults]
	}

	candidates := make([]Candidate, 0, len(tweets))
	for _, t := range tweets {
		candidates = append(candidates, Candidate{
			URL:          t.URL(),
			Body:         t.Text,
			IsDirectItem: true,
		})
	}
	return candidates, nil
}

func (s *Service) discoverLinks(ctx context.Context, pageURL string) ([]Candidate, error) {
	links, err := s.extractor.ExtractLinks(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract links: %w", err)
	}

	candidates := make([]Candidate, 0, len(links))
	for _, link := range links {
		candidates = append(candidates, Candidate{URL: link})
	}
	return candidates, nil
}

// Compile-time interface checks against the concrete adapters.
var (
	_ Searcher       = (*search.Client)(nil)
	_ SocialSearcher = (*twitter.Client)(nil)
	_ LinkExtractor  = (*scrape.Enricher)(nil)
)
