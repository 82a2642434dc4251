package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRouter 注册全部路由
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger))

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		api.POST("/analyze", h.Analyze)
		api.GET("/search", h.Search)

		repos := api.Group("/repos/:owner/:repo")
		{
			repos.GET("/score", h.Score)
			repos.GET("/history", h.History)
		}
	}

	return r
}

// requestLogger 用 logrus 记录每个请求
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("🌐 request")
	}
}
