package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter はAPIのルーティングを設定したginエンジンを作成する
func NewRouter(proxy *GenerationProxyHandler, gazetteer *GazetteerHandler, logger *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	api := r.Group("/api")
	{
		api.GET("/health", GetHealth)
		api.Any("/openai", proxy.Handle)

		api.POST("/sensor/readings", gazetteer.PostSensorReading)

		api.POST("/location/current", gazetteer.PostCurrentLocation)
		api.POST("/location/forced", gazetteer.PostForcedLocation)
		api.POST("/location/search", gazetteer.PostSearchLocation)

		api.POST("/tracking/start", gazetteer.PostStartTracking)
		api.POST("/tracking/stop", gazetteer.PostStopTracking)
		api.GET("/tracking", gazetteer.GetTracking)

		api.POST("/chat", gazetteer.PostChat)
		api.GET("/session", gazetteer.GetSession)
	}

	return r
}

// requestLogger はリクエストごとにステータスと処理時間を記録する
func requestLogger(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugw("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
