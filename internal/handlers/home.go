package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HomeHandler struct{}

func NewHomeHandler() *HomeHandler {
	return &HomeHandler{}
}

// Index describes the service and its endpoints.
func (h *HomeHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Sui Move GitHub Users API",
		"endpoints": gin.H{
			"/sui-move-users":             "Get GitHub users who have written Sui Move code",
			"/users/:username/move-files": "Get Move repositories and commit counts for one user",
		},
		"example": "/sui-move-users?limit=10",
	})
}
