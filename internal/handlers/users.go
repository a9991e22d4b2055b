package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/movelabs/movescout/internal/githubapi"
	"github.com/movelabs/movescout/internal/models"
	"github.com/movelabs/movescout/pkg/logger"
)

const defaultLimit = 10

// MoveReporter is the pipeline surface the HTTP layer depends on.
type MoveReporter interface {
	TopMoveUsers(ctx context.Context, limit int) ([]models.UserAggregate, error)
	UserMoveReport(ctx context.Context, username string) (*models.UserMoveFilesReport, error)
}

type UserHandler struct {
	reports MoveReporter
}

func NewUserHandler(reports MoveReporter) *UserHandler {
	return &UserHandler{reports: reports}
}

// ListMoveUsers handles GET /sui-move-users?limit=N
func (h *UserHandler) ListMoveUsers(c *gin.Context) {
	limitParam := c.DefaultQuery("limit", strconv.Itoa(defaultLimit))
	limit, err := strconv.Atoi(limitParam)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	users, err := h.reports.TopMoveUsers(c.Request.Context(), limit)
	if err != nil {
		h.renderError(c, err)
		return
	}

	// An empty result marshals as [], not null.
	if users == nil {
		users = []models.UserAggregate{}
	}
	c.JSON(http.StatusOK, users)
}

// UserMoveFiles handles GET /users/:username/move-files
func (h *UserHandler) UserMoveFiles(c *gin.Context) {
	username := c.Param("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	report, err := h.reports.UserMoveReport(c.Request.Context(), username)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// renderError maps pipeline errors onto response statuses: quota exhaustion
// becomes 429, any other upstream status becomes a gateway failure with the
// upstream detail included for diagnosis.
func (h *UserHandler) renderError(c *gin.Context, err error) {
	var rateErr *githubapi.RateLimitedError
	if errors.As(err, &rateErr) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":               "GitHub API rate limit exceeded",
			"retry_after_seconds": int(rateErr.RetryAfter.Seconds()),
		})
		return
	}

	var upstreamErr *githubapi.UpstreamError
	if errors.As(err, &upstreamErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":           "GitHub API request failed",
			"upstream_status": upstreamErr.StatusCode,
			"upstream_body":   upstreamErr.Body,
		})
		return
	}

	logger.WithError(err).Error("report request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
