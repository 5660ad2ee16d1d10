package middleware

import (
	"time"

	"github.com/annel0/terrain-editor/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader заголовок с идентификатором запроса
const RequestIDHeader = "X-Request-ID"

// RequestLogger снабжает каждый HTTP-запрос request-ID и пишет краткие логи.
type RequestLogger struct {
	logger *logging.Logger
}

// NewRequestLogger создаёт middleware; logger == nil означает глобальный logging.
func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

func (rl *RequestLogger) logf(format string, args ...interface{}) {
	if rl.logger != nil {
		rl.logger.Info(format, args...)
		return
	}
	logging.Info(format, args...)
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			rl.logf("[HTTP] %s %s %d %s ip=%s req=%s trace=%s", method, path, c.Writer.Status(), time.Since(start), c.ClientIP(), requestID, sc.TraceID())
			return
		}
		rl.logf("[HTTP] %s %s %d %s ip=%s req=%s", method, path, c.Writer.Status(), time.Since(start), c.ClientIP(), requestID)
	}
}
