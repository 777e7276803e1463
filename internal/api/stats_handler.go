package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gopost/gopost/internal/domain"
	"github.com/gopost/gopost/internal/logger"
)

// getStats reports queue depths, monthly quota usage, and posts sent in the
// last 24 hours.
func (r *Router) getStats(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now()

	queue := gin.H{}
	for _, status := range []domain.PostStatus{
		domain.StatusAwaitingApproval,
		domain.StatusPending,
		domain.StatusSent,
		domain.StatusFailed,
		domain.StatusSkipped,
	} {
		count, err := r.posts.CountByStatus(ctx, status)
		if err != nil {
			r.logger.Error("failed to count posts",
				logger.String("status", string(status)),
				logger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
			return
		}
		queue[string(status)] = count
	}

	monthly, err := r.posts.MonthlySentCount(ctx, now)
	if err != nil {
		r.logger.Error("failed to count monthly sent", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	recent, err := r.posts.ListSentSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		r.logger.Error("failed to list recent posts", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"queue":            queue,
		"sent_this_month":  monthly,
		"sent_last_24h":    recent,
		"generated_at_utc": now.UTC(),
	})
}
