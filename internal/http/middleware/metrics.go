package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/eduplanner-backend/internal/observability"
)

// Metrics instruments HTTP request counts/latency when metrics are enabled.
// Long-lived SSE streams are counted but kept out of the in-flight gauge.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		stream := c.FullPath() == "/api/events"
		if !stream {
			m.APIInflightInc()
			defer m.APIInflightDec()
		}

		c.Next()

		m.ObserveAPI(c.Request.Method, c.FullPath(), strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
