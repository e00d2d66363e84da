package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/innkeeper/pkg/telemetry"
)

// APIMetrics records latency per matched route. Unmatched paths share one
// label so scanners cannot blow up cardinality.
func APIMetrics(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := strings.TrimSpace(c.FullPath())
		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPIRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func noRoute(c *gin.Context) {
	AbortWithError(c, ErrNotFound)
}
