package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/cascade/models"
	"github.com/use-agent/cascade/scraper"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health. The status degrades
// when more cascades are running than maxActive (0 disables the check).
func Health(sc *scraper.Scraper, maxActive int) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sc.Stats()

		status := "healthy"
		if maxActive > 0 && stats.ActiveScrapes > maxActive {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    (time.Duration(stats.UptimeSeconds) * time.Second).String(),
			PoolStats: stats,
			Version:   Version,
		})
	}
}
