package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/survey-studio/backend/internal/auth"
)

// Logger returns a zap-based request logging middleware. htmx fragment
// requests are tagged so partial and full page traffic can be told apart.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		clientIP := c.ClientIP()
		method := c.Request.Method

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("client_ip", clientIP),
			zap.Bool("htmx", c.GetHeader("HX-Request") == "true"),
		}
		if identity, ok := auth.CurrentIdentity(c); ok {
			fields = append(fields, zap.String("user_id", identity.UserID.String()))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		logger.Info("request", fields...)
	}
}
