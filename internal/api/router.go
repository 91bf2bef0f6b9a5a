package api

import (
	"net/http"
	"time"

	"github.com/AdarBahar/MyTrip-sub003/internal/config"
	"github.com/AdarBahar/MyTrip-sub003/internal/handler"
	"github.com/AdarBahar/MyTrip-sub003/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers groups everything the router needs
type Handlers struct {
	Pings     *handler.PingHandler
	Sessions  *handler.SessionHandler
	Analytics *handler.AnalyticsHandler
	Auth      *handler.AuthHandler
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// CORS 中间件
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

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "MyTrip analytics API is running",
		})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(600, time.Minute))
	{
		api.POST("/auth/token", h.Auth.Token)

		// 轨迹上报（需要认证）
		api.POST("/pings", middleware.Auth(cfg.JWTSecret), h.Pings.Ingest)

		// 停留会话与日汇总
		api.GET("/sessions", h.Sessions.GetMarkers)
		api.GET("/rollups", h.Sessions.GetRollups)

		// 手动触发增量处理（需要认证）
		api.POST("/process/:deviceId", middleware.Auth(cfg.JWTSecret), h.Sessions.Process)

		// 按需分析视图
		analytics := api.Group("/analytics")
		{
			analytics.GET("/dwells", h.Analytics.GetDwells)
			analytics.GET("/drives", h.Analytics.GetDrives)
		}
	}

	return r
}
