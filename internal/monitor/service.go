// Package monitor runs the topic-monitoring cycle: discover candidates,
// deduplicate, enrich, compose, and queue drafts for approval.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/gopost/gopost/internal/compose"
	"github.com/gopost/gopost/internal/discovery"
	"github.com/gopost/gopost/internal/domain"
	"github.com/gopost/gopost/internal/logger"
	"github.com/gopost/gopost/internal/metrics"
	"github.com/gopost/gopost/internal/scrape"
)

const (
	// maxDraftsPerTopic caps how many drafts one topic may queue per cycle.
	maxDraftsPerTopic = 3

	// minBodyChars is the junk floor for scraped pages. Direct social items
	// are exempt because short posts are their normal shape.
	minBodyChars = 200

	// Drafts are staggered so approved posts do not fire in one burst.
	scheduleOffset  = 5 * time.Minute
	scheduleStagger = 5 * time.Minute
)

// TopicStore is the topic persistence the service needs.
type TopicStore interface {
	ListActive(ctx context.Context) ([]domain.MonitoredTopic, error)
	UpdateLastRun(ctx context.Context, id string, at time.Time) error
}

// PostStore persists queued drafts.
type PostStore interface {
	Create(ctx context.Context, post *domain.Post) error
}

// Deduper tracks which URLs were already handled.
type Deduper interface {
	Seen(ctx context.Context, url string) (bool, error)
	Mark(ctx context.Context, url, topicID string) error
}

// Discoverer finds candidates for a topic.
type Discoverer interface {
	Discover(ctx context.Context, topic *domain.MonitoredTopic) ([]discovery.Candidate, error)
}

// Enricher fetches full page content for a candidate URL.
type Enricher interface {
	Enrich(ctx context.Context, pageURL string) (*scrape.Content, error)
}

// ImageSearcher finds a fallback image when the page has none.
type ImageSearcher interface {
	SearchImage(ctx context.Context, query string) (string, error)
}

// Composer drafts post copy.
type Composer interface {
	Compose(ctx context.Context, req compose.Request) (string, error)
}

// Service runs monitoring cycles over the active topics.
type Service struct {
	topics     TopicStore
	posts      PostStore
	dedup      Deduper
	discoverer Discoverer
	enricher   Enricher
	images     ImageSearcher
	composer   Composer
	metrics    *metrics.Metrics
	logger     logger.Logger

	now func() time.Time
}

// NewService creates a monitoring service.
func NewService(
	topics TopicStore,
	posts PostStore,
	dedup Deduper,
	discoverer Discoverer,
	enricher Enricher,
	images ImageSearcher,
	composer Composer,
	m *metrics.Metrics,
	log logger.Logger,
) *Service {
	return &Service{
		topics:     topics,
		posts:      posts,
		dedup:      dedup,
		discoverer: discoverer,
		enricher:   enricher,
		images:     images,
		composer:   composer,
		metrics:    m,
		logger:     log,
		now:        time.Now,
	}
}

// RunCycle processes every active topic that is due. Per-topic failures are
// logged and do not abort the cycle.
func (s *Service) RunCycle(ctx context.Context) error {
	topics, err := s.topics.ListActive(ctx)
	if err != nil {
		return err
	}
	s.metrics.CyclesRun.WithLabelValues("monitoring").Inc()

	now := s.now()
	for i := range topics {
		topic := &topics[i]
		if !topic.DueForRun(now) {
			continue
		}
		if err := s.processTopic(ctx, topic); err != nil {
			s.logger.Error("topic processing failed",
				logger.String("topic_id", topic.ID),
				logger.String("query", topic.Query),
				logger.Error(err))
		}
		if err := s.topics.UpdateLastRun(ctx, topic.ID, now); err != nil {
			s.logger.Error("failed to update topic last run",
				logger.String("topic_id", topic.ID),
				logger.Error(err))
		}
	}
	return nil
}

func (s *Service) processTopic(ctx context.Context, topic *domain.MonitoredTopic) error {
	candidates, err := s.discoverer.Discover(ctx, topic)
	if err != nil {
		return err
	}
	s.logger.Debug("discovered candidates",
		logger.String("topic_id", topic.ID),
		logger.Int("count", len(candidates)))

	queued := 0
	for i := range candidates {
		if queued >= maxDraftsPerTopic {
			break
		}
		if s.processCandidate(ctx, topic, &candidates[i], queued) {
			queued++
		}
	}
	return nil
}

// processCandidate reports whether the candidate was queued as a draft.
func (s *Service) processCandidate(ctx context.Context, topic *domain.MonitoredTopic, cand *discovery.Candidate, queued int) bool {
	seen, err := s.dedup.Seen(ctx, cand.URL)
	if err != nil {
		s.logger.Warn("dedup lookup failed", logger.String("url", cand.URL), logger.Error(err))
	}
	if seen {
		s.metrics.CandidatesSeen.Inc()
		return false
	}

	title := cand.Title
	body := cand.Body
	imageURL := ""

	if !cand.IsDirectItem {
		content, enrichErr := s.enricher.Enrich(ctx, cand.URL)
		if enrichErr != nil {
			if errors.Is(enrichErr, scrape.ErrStale) {
				s.logger.Debug("candidate too old", logger.String("url", cand.URL))
			} else {
				s.logger.Warn("enrichment failed",
					logger.String("url", cand.URL),
					logger.Error(enrichErr))
			}
			s.markProcessed(ctx, cand.URL, topic.ID)
			return false
		}
		if content.Title != "" {
			title = content.Title
		}
		body = content.Body
		imageURL = content.ImageURL

		if len([]rune(body)) < minBodyChars {
			s.logger.Debug("candidate below content floor", logger.String("url", cand.URL))
			s.markProcessed(ctx, cand.URL, topic.ID)
			return false
		}
	}

	if imageURL == "" {
		query := title
		if query == "" {
			query = topic.Query
		}
		if img, imgErr := s.images.SearchImage(ctx, query); imgErr != nil {
			s.logger.Warn("image search failed", logger.String("query", query), logger.Error(imgErr))
		} else {
			imageURL = img
		}
	}

	text, err := s.composer.Compose(ctx, compose.Request{
		Topic:     topic.Query,
		Title:     title,
		Body:      body,
		SourceURL: cand.URL,
		IsDirect:  cand.IsDirectItem,
	})
	if err != nil {
		// The URL stays unmarked so a later cycle can retry it.
		s.logger.Error("composition failed", logger.String("url", cand.URL), logger.Error(err))
		return false
	}

	post, err := domain.NewPost(text, s.now().Add(scheduleOffset+scheduleStagger*time.Duration(queued)))
	if err != nil {
		s.logger.Error("invalid draft", logger.String("url", cand.URL), logger.Error(err))
		return false
	}
	post.SetSource(cand.URL, imageURL)

	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error("failed to queue draft", logger.String("url", cand.URL), logger.Error(err))
		return false
	}
	s.markProcessed(ctx, cand.URL, topic.ID)
	s.metrics.DraftsQueued.Inc()

	s.logger.Info("draft queued",
		logger.String("post_id", post.ID),
		logger.String("topic_id", topic.ID),
		logger.String("url", cand.URL),
		logger.Time("scheduled_time", post.ScheduledTime))
	return true
}

func (s *Service) markProcessed(ctx context.Context, url, topicID string) {
	if err := s.dedup.Mark(ctx, url, topicID); err != nil {
		s.logger.Error("failed to mark url processed",
			logger.String("url", url),
			logger.Error(err))
	}
}
