package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SANDAG/ABM-sub008/internal/config"
	"github.com/SANDAG/ABM-sub008/internal/handler"
	"github.com/SANDAG/ABM-sub008/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Runs          *handler.RunHandler
	Distributions *handler.DistributionHandler
}

// SetupRouter builds the gin engine
func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Destination choice API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1", middleware.Auth(cfg.JWTSecret))
	{
		runs := api.Group("/runs")
		{
			runs.GET("", h.Runs.ListRuns)
			runs.POST("", middleware.RateLimit(10, time.Minute), h.Runs.CreateRun)
			runs.GET("/:id", h.Runs.GetRun)
		}

		api.GET("/distributions/:purpose/:zone", h.Distributions.GetDistribution)
		api.GET("/zones/:zone", h.Distributions.GetZone)
	}

	return r
}
