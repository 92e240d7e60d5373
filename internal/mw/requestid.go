package mw

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const requestIDKey = "request_id"

// RequestID 为每个请求生成关联 id，写入上下文与响应头，
// 并在请求结束时输出一条结构化完成日志。错误信封里带同一个 id，
// 支持排障时对上日志而不暴露内部细节。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(requestIDKey, id)
		c.Header("X-Request-Id", id)

		start := time.Now()
		c.Next()

		log.Info().
			Str("request_id", id).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// GetRequestID 取出当前请求的关联 id。
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
