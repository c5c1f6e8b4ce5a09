package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lanlhvn/location-assignment/config"
	"github.com/lanlhvn/location-assignment/internal/api/handler"
	"github.com/lanlhvn/location-assignment/internal/api/middleware"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时写接口不限流
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	writeLimit := middleware.RateLimit(limiter, cfg.RateLimit.Limit, cfg.RateLimit.Window, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		locations := v1.Group("/locations")
		{
			locations.GET("", h.Location.ListLocations)
			locations.GET("/export", h.Export.ExportLocations)
			locations.GET("/:id", h.Location.GetLocation)
			locations.POST("", writeLimit, h.Location.CreateLocation)
			locations.PUT("/:id", writeLimit, h.Location.UpdateLocation)
			locations.DELETE("/:id", writeLimit, h.Location.DeleteLocation)
		}
	}

	return r
}
