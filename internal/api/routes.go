package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/signal-lamp/internal/api/middleware"
	cfgpkg "github.com/taoyao-code/signal-lamp/internal/config"
)

// RegisterLampRoutes 注册 /api/v1 灯控路由，返回所用限流器以便暴露统计
func RegisterLampRoutes(r gin.IRouter, h *LampHandler, cfg cfgpkg.APIConfig, logger *zap.Logger) *middleware.RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := middleware.NewRateLimiter(cfg.RatePerSec, cfg.Burst)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RequestID())
	v1.Use(middleware.RateLimit(limiter, logger))
	if cfg.AuthEnabled {
		v1.Use(middleware.APIKeyAuth(middleware.AuthConfig{Enabled: true, APIKeys: cfg.APIKeys}, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(cfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	v1.GET("/lamp", h.GetLamp)
	v1.GET("/lamp/watch", h.Watch)
	v1.PUT("/lamp/red", h.PutRed)
	v1.POST("/lamp/red/:state", h.PostRed)

	v1.GET("/limiter", func(c *gin.Context) {
		c.JSON(200, limiter.Stats())
	})

	logger.Info("lamp routes registered", zap.Int("endpoints", 5))
	return limiter
}
