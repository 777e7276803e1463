package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gopost/gopost/internal/domain"
	"github.com/gopost/gopost/internal/logger"
)

type createPostRequest struct {
	Content       string     `json:"content" binding:"required"`
	ScheduledTime *time.Time `json:"scheduled_time"`
	SourceURL     string     `json:"source_url"`
	ImageURL      string     `json:"image_url"`
	ThreadContent string     `json:"thread_content"`
}

type updatePostRequest struct {
	Content  string  `json:"content" binding:"required"`
	ImageURL *string `json:"image_url"`
}

// createPost queues a manually written draft. Like discovered drafts it
// starts in awaiting_approval.
func (r *Router) createPost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scheduled := time.Now().Add(5 * time.Minute)
	if req.ScheduledTime != nil {
		scheduled = *req.ScheduledTime
	}

	post, err := domain.NewPost(req.Content, scheduled)
	if err != nil {
		handleValidationError(c, err)
		return
	}
	post.SetSource(req.SourceURL, req.ImageURL)
	if req.ThreadContent != "" {
		post.ThreadContent = &req.ThreadContent
	}

	if err := r.posts.Create(c.Request.Context(), post); err != nil {
		r.logger.Error("failed to create post", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}
	c.JSON(http.StatusCreated, post)
}

// listPosts handles GET /api/v1/posts?status=awaiting_approval
func (r *Router) listPosts(c *gin.Context) {
	status := domain.PostStatus(c.DefaultQuery("status", string(domain.StatusAwaitingApproval)))

	posts, err := r.posts.ListByStatus(c.Request.Context(), status)
	if err != nil {
		r.logger.Error("failed to list posts",
			logger.String("status", string(status)),
			logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "count": len(posts)})
}

func (r *Router) getPost(c *gin.Context) {
	post, err := r.posts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleRepositoryError(c, err, "post", "get")
		return
	}
	c.JSON(http.StatusOK, post)
}

func (r *Router) updatePost(c *gin.Context) {
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := r.posts.UpdateContent(c.Request.Context(), c.Param("id"), req.Content, req.ImageURL)
	if err != nil {
		handleRepositoryError(c, err, "post", "update")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (r *Router) deletePost(c *gin.Context) {
	if err := r.posts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleRepositoryError(c, err, "post", "delete")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// approvePost moves a draft into the dispatch queue. Only posts still in
// awaiting_approval can be approved; anything else reports not found.
func (r *Router) approvePost(c *gin.Context) {
	id := c.Param("id")
	if err := r.posts.Approve(c.Request.Context(), id); err != nil {
		handleRepositoryError(c, err, "post", "approve")
		return
	}
	r.logger.Info("post approved", logger.String("post_id", id))
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

// rejectPost discards a draft. Rejected drafts carry no future value, so
// they are deleted rather than archived.
func (r *Router) rejectPost(c *gin.Context) {
	id := c.Param("id")
	if err := r.posts.Delete(c.Request.Context(), id); err != nil {
		handleRepositoryError(c, err, "post", "reject")
		return
	}
	r.logger.Info("post rejected", logger.String("post_id", id))
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

// sendPostNow reschedules a pending post to fire on the next dispatch tick.
func (r *Router) sendPostNow(c *gin.Context) {
	id := c.Param("id")
	if err := r.posts.ForceSend(c.Request.Context(), id, time.Now()); err != nil {
		handleRepositoryError(c, err, "post", "send")
		return
	}
	r.logger.Info("post rescheduled for immediate send", logger.String("post_id", id))
	c.JSON(http.StatusOK, gin.H{"status": "queued"})
}
