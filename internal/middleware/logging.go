package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger writes one structured line per request.
func Logger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":        c.Request.Method,
			"path":          c.FullPath(),
			"status":        c.Writer.Status(),
			"response_time": time.Since(start).Milliseconds(),
			"ip_address":    c.ClientIP(),
			"user_agent":    c.GetHeader("User-Agent"),
			"request_id":    c.GetString("request_id"),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request handled")
	}
}
