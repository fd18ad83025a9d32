package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bizplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

// quietPaths are logged at debug level while they succeed.
var quietPaths = map[string]bool{"/healthz": true}

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		td := ctxutil.GetTraceData(c.Request.Context())

		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if td != nil {
			if td.TraceID != "" {
				fields = append(fields, "trace_id", td.TraceID)
			}
			if td.RequestID != "" {
				fields = append(fields, "request_id", td.RequestID)
			}
		}
		if n := len(c.Errors); n > 0 {
			fields = append(fields, "error", c.Errors.Last().Error())
		}
		if c.Request.ContentLength > 0 {
			fields = append(fields, "bytes_in", c.Request.ContentLength)
		}
		if n := c.Writer.Size(); n > 0 {
			fields = append(fields, "bytes_out", n)
		}
		fields = append(fields, "client_ip", c.ClientIP())

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		case quietPaths[path]:
			log.Debug("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
