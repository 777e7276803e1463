package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gopost/gopost/internal/domain"
	"github.com/gopost/gopost/internal/logger"
)

type pauseRequest struct {
	Paused *bool `json:"paused" binding:"required"`
}

func (r *Router) getPauseMode(c *gin.Context) {
	value, err := r.settings.Get(c.Request.Context(), domain.SettingPauseMode, "false")
	if err != nil {
		r.logger.Error("failed to read pause setting", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read setting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": value == "true"})
}

func (r *Router) setPauseMode(c *gin.Context) {
	var req pauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	value := strconv.FormatBool(*req.Paused)
	if err := r.settings.Set(c.Request.Context(), domain.SettingPauseMode, value); err != nil {
		r.logger.Error("failed to update pause setting", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update setting"})
		return
	}
	r.logger.Info("pause mode updated", logger.Bool("paused", *req.Paused))
	c.JSON(http.StatusOK, gin.H{"paused": *req.Paused})
}

func (r *Router) runMonitoring(c *gin.Context) {
	if err := r.monitor.RunCycle(c.Request.Context()); err != nil {
		r.logger.Error("manual monitoring run failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Monitoring run failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

func (r *Router) runDispatch(c *gin.Context) {
	if err := r.dispatcher.CheckAndSend(c.Request.Context()); err != nil {
		r.logger.Error("manual dispatch run failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Dispatch run failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
