package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetHealth はヘルスチェックのエンドポイント
// GET /api/health
func GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "GazetteHere"})
}
