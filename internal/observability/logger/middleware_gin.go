package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/innkeeper/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	HeaderRequestID     = "X-Request-Id"
	HeaderTerminalID    = "X-Terminal-Id"
	HeaderCorrelationID = "X-Correlation-Id"
)

type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps a handler error to the type and code the client sees.
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware stamps the request context with its request, terminal and
// correlation ids and writes one access line per request.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		ctx = obscontext.WithTerminalID(ctx, c.GetHeader(HeaderTerminalID))
		ctx = obscontext.WithCorrelationID(ctx, c.GetHeader(HeaderCorrelationID))
		ctx, cid := obscontext.EnsureCorrelationID(ctx)

		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderCorrelationID, cid)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}

		var errorType string
		if lastErr := c.Errors.Last(); lastErr != nil && cfg.ErrorClassifier != nil {
			var errorCode string
			errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			fields = append(fields, zap.String("error_type", errorType), zap.String("error_code", errorCode))
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		FromContext(ctx).Log(accessLevel(c.Request.URL.Path, status, errorType), "http_request", fields...)
	}
}

// accessLevel keeps health checks quiet and reports lost races between terminals
// as warnings rather than errors.
func accessLevel(path string, status int, errorType string) zapcore.Level {
	switch {
	case path == "/healthz" || path == "/metrics":
		return zap.DebugLevel
	case status >= http.StatusInternalServerError:
		return zap.ErrorLevel
	case errorType == "conflict" || errorType == "invalid_state":
		return zap.WarnLevel
	default:
		return zap.InfoLevel
	}
}
