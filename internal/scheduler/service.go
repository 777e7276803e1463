// Package scheduler drains approved posts: it picks up due pending posts,
// enforces the monthly quota, and hands them to the publisher.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gopost/gopost/internal/domain"
	"github.com/gopost/gopost/internal/logger"
	"github.com/gopost/gopost/internal/metrics"
	"github.com/gopost/gopost/internal/twitter"
)

const defaultMonthlyLimit = 500

// PostStore is the post persistence the dispatcher needs.
type PostStore interface {
	FetchDue(ctx context.Context, now time.Time) ([]domain.Post, error)
	MonthlySentCount(ctx context.Context, now time.Time) (int, error)
	MarkSent(ctx context.Context, id, publishedID string) error
	MarkFailed(ctx context.Context, id, errorMsg string) error
	MarkSkipped(ctx context.Context, id, errorMsg string) error
	NoteRetry(ctx context.Context, id, errorMsg string) error
	SweepStaleDrafts(ctx context.Context, now time.Time, maxAge time.Duration) (int64, error)
}

// SettingStore reads runtime switches.
type SettingStore interface {
	Get(ctx context.Context, key, fallback string) (string, error)
}

// Publisher sends a post to the platform.
type Publisher interface {
	Publish(ctx context.Context, req twitter.PublishRequest) (*twitter.PublishResult, error)
}

// Service dispatches due posts while honoring the pause switch and the
// monthly quota.
type Service struct {
	posts        PostStore
	settings     SettingStore
	publisher    Publisher
	monthlyLimit int
	metrics      *metrics.Metrics
	logger       logger.Logger
	tracer       trace.Tracer

	now func() time.Time
}

// NewService creates a dispatch service.
func NewService(
	posts PostStore,
	settings SettingStore,
	publisher Publisher,
	monthlyLimit int,
	m *metrics.Metrics,
	log logger.Logger,
) *Service {
	if monthlyLimit <= 0 {
		monthlyLimit = defaultMonthlyLimit
	}
	return &Service{
		posts:        posts,
		settings:     settings,
		publisher:    publisher,
		monthlyLimit: monthlyLimit,
		metrics:      m,
		logger:       log,
		tracer:       otel.Tracer("dispatch"),
		now:          time.Now,
	}
}

// CheckAndSend publishes every due pending post, in scheduled order. The
// pause switch and quota are snapshotted once per run.
func (s *Service) CheckAndSend(ctx context.Context) error {
	paused, err := s.settings.Get(ctx, domain.SettingPauseMode, "false")
	if err != nil {
		return fmt.Errorf("read pause setting: %w", err)
	}
	if paused == "true" {
		s.logger.Debug("dispatch paused")
		return nil
	}
	s.metrics.CyclesRun.WithLabelValues("dispatch").Inc()

	now := s.now()
	due, err := s.posts.FetchDue(ctx, now)
	if err != nil {
		return fmt.Errorf("fetch due posts: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	sentThisMonth, err := s.posts.MonthlySentCount(ctx, now)
	if err != nil {
		return fmt.Errorf("count monthly sent: %w", err)
	}

	for i := range due {
		post := &due[i]
		if sentThisMonth >= s.monthlyLimit {
			s.skipOverQuota(ctx, post)
			continue
		}
		if s.dispatchOne(ctx, post) {
			sentThisMonth++
		}
	}
	return nil
}

func (s *Service) skipOverQuota(ctx context.Context, post *domain.Post) {
	msg := fmt.Sprintf("monthly limit reached (%d posts)", s.monthlyLimit)
	if err := s.posts.MarkSkipped(ctx, post.ID, msg); err != nil {
		s.logger.Error("failed to mark post skipped",
			logger.String("post_id", post.ID),
			logger.Error(err))
		return
	}
	s.metrics.PostsSkipped.Inc()
	s.logger.Warn("post skipped over quota", logger.String("post_id", post.ID))
}

// dispatchOne reports whether the post was sent.
func (s *Service) dispatchOne(ctx context.Context, post *domain.Post) bool {
	ctx, span := s.tracer.Start(ctx, "dispatch.publish",
		trace.WithAttributes(attribute.String("post_id", post.ID)))
	defer span.End()

	req := twitter.PublishRequest{Text: post.Content}
	if post.ImageURL != nil {
		req.ImageURL = *post.ImageURL
	}
	if post.ThreadContent != nil {
		req.ThreadText = *post.ThreadContent
	}

	result, err := s.publisher.Publish(ctx, req)
	if err != nil {
		if errors.Is(err, twitter.ErrRateLimited) {
			// Stay pending so the next run retries.
			if noteErr := s.posts.NoteRetry(ctx, post.ID, err.Error()); noteErr != nil {
				s.logger.Error("failed to note retry",
					logger.String("post_id", post.ID),
					logger.Error(noteErr))
			}
			s.logger.Warn("publish rate limited, will retry",
				logger.String("post_id", post.ID))
			return false
		}

		if markErr := s.posts.MarkFailed(ctx, post.ID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark post failed",
				logger.String("post_id", post.ID),
				logger.Error(markErr))
		}
		s.metrics.PostsFailed.Inc()
		s.logger.Error("publish failed",
			logger.String("post_id", post.ID),
			logger.Error(err))
		return false
	}

	if err := s.posts.MarkSent(ctx, post.ID, result.MainID); err != nil {
		// The tweet is out; only the bookkeeping failed.
		s.logger.Error("failed to mark post sent",
			logger.String("post_id", post.ID),
			logger.String("published_id", result.MainID),
			logger.Error(err))
	}
	s.metrics.PostsSent.Inc()
	s.logger.Info("post published",
		logger.String("post_id", post.ID),
		logger.String("published_id", result.MainID),
		logger.Bool("thread_failed", result.ThreadFailed))
	return true
}

// SweepStale expires drafts that waited too long for approval.
func (s *Service) SweepStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	return s.posts.SweepStaleDrafts(ctx, s.now(), maxAge)
}
