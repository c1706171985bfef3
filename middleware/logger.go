package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request through logrus.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"route":   route,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Round(time.Microsecond),
			"client":  c.ClientIP(),
		})
		if id := c.GetString(RequestIDKey); id != "" {
			entry = entry.WithField(RequestIDKey, id)
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
