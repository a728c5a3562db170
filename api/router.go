package api

import (
	"github.com/gin-gonic/gin"
	"github.com/use-agent/cascade/api/handler"
	"github.com/use-agent/cascade/api/middleware"
	"github.com/use-agent/cascade/cleaner"
	"github.com/use-agent/cascade/config"
	"github.com/use-agent/cascade/scraper"
)

// maxActiveScrapes is the load above which health reports "degraded".
const maxActiveScrapes = 64

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work.
func NewRouter(sc *scraper.Scraper, cl *cleaner.Cleaner, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(sc, maxActiveScrapes))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scrape", handler.Scrape(sc, cl, cfg.Cascade))

	return r
}
