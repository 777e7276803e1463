package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gopost/gopost/internal/domain"
	"github.com/gopost/gopost/internal/logger"
)

type createTopicRequest struct {
	Query           string `json:"query" binding:"required"`
	SourceKind      string `json:"source_kind" binding:"required"`
	IntervalMinutes int    `json:"interval_minutes"`
}

func (r *Router) createTopic(c *gin.Context) {
	var req createTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	topic, err := domain.NewMonitoredTopic(req.Query, domain.SourceKind(req.SourceKind), req.IntervalMinutes)
	if err != nil {
		handleValidationError(c, err)
		return
	}

	if err := r.topics.Create(c.Request.Context(), topic); err != nil {
		r.logger.Error("failed to create topic", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create topic"})
		return
	}
	r.logger.Info("topic created",
		logger.String("topic_id", topic.ID),
		logger.String("query", topic.Query))
	c.JSON(http.StatusCreated, topic)
}

func (r *Router) listTopics(c *gin.Context) {
	topics, err := r.topics.ListActive(c.Request.Context())
	if err != nil {
		r.logger.Error("failed to list topics", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list topics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics, "count": len(topics)})
}

// deactivateTopic soft-deletes a topic. Its dedup ledger entries are kept so
// reactivating it does not repost old content.
func (r *Router) deactivateTopic(c *gin.Context) {
	id := c.Param("id")
	if err := r.topics.Deactivate(c.Request.Context(), id); err != nil {
		handleRepositoryError(c, err, "topic", "deactivate")
		return
	}
	r.logger.Info("topic deactivated", logger.String("topic_id", id))
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}
