package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Keys the ingest handlers set on the gin context for RequestLogger.
const (
	KeyCaptureKind = "capture.kind"
	KeyCaptureSeq  = "capture.seq"
	KeyAuthError   = "capture.auth_error"
)

// RequestLogger writes one line per request. Ingest requests log as
// "capture" with the project, kind and stored sequence number; everything
// else logs as "http_request".
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := eventFor(logger, status).
			Str("method", c.Request.Method).
			Str("path", routeOf(c, c.Request.URL.Path)).
			Int("status", status).
			Dur("duration", time.Since(start))

		kind := c.GetString(KeyCaptureKind)
		if kind == "" {
			event.
				Str("client_ip", c.ClientIP()).
				Int("bytes", c.Writer.Size()).
				Msg("http_request")
			return
		}

		event = event.
			Str("kind", kind).
			Str("project", c.Param("project")).
			Int64("request_bytes", c.Request.ContentLength)
		if enc := c.GetHeader("Content-Encoding"); enc != "" {
			event = event.Str("content_encoding", enc)
		}
		if ua := c.Request.UserAgent(); ua != "" {
			event = event.Str("user_agent", ua)
		}
		if _, stored := c.Get(KeyCaptureSeq); stored {
			event = event.Int("seq", c.GetInt(KeyCaptureSeq))
		}
		if reason := c.GetString(KeyAuthError); reason != "" {
			event = event.Str("auth_error", reason)
		}
		event.Msg("capture")
	}
}

func RequestMetricsMiddleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		RecordHTTPRequest(service, c.Request.Method, routeOf(c, "unmatched"), c.Writer.Status(), time.Since(start))
	}
}

func eventFor(logger zerolog.Logger, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return logger.Error()
	case status >= 400:
		return logger.Warn()
	default:
		return logger.Info()
	}
}

// routeOf returns the matched route pattern, or fallback for unrouted paths.
func routeOf(c *gin.Context, fallback string) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return fallback
}
