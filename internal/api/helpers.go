package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gopost/gopost/internal/domain"
)

// handleRepositoryError maps repository errors to HTTP responses.
func handleRepositoryError(c *gin.Context, err error, entityType, operation string) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": entityType + " not found",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Failed to " + operation + " " + entityType,
	})
}

// handleValidationError reports a domain validation failure.
func handleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
