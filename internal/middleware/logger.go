package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"growly/internal/pkg/logger"
	"growly/internal/pkg/response"
)

// RequestLogger writes one line per request.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"request_id", RequestIDFrom(c),
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request", args...)
		case status >= http.StatusBadRequest:
			log.Warn("request", args...)
		default:
			log.Info("request", args...)
		}
	}
}

// ErrorLogger logs errors attached by handlers, recovers from panics and
// reports both to Sentry. Sentry calls are no-ops when it is not initialised.
func ErrorLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				err := fmt.Errorf("panic: %v", recovered)
				logRequestError(log, c, start, "panic", err, debug.Stack())
				captureError(c, err)

				response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				return
			}

			for _, ginErr := range c.Errors {
				logRequestError(log, c, start, fmt.Sprintf("%v", ginErr.Type), ginErr.Err, nil)
				captureError(c, ginErr.Err)
			}
		}()

		c.Next()
	}
}

func logRequestError(log logger.Logger, c *gin.Context, start time.Time, errType string, err error, stack []byte) {
	args := []any{
		"type", errType,
		"status", c.Writer.Status(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"query", redactedQuery(c.Request.URL),
		"client_ip", c.ClientIP(),
		"request_id", RequestIDFrom(c),
		"latency", time.Since(start).String(),
		"error", err.Error(),
	}
	if stack != nil {
		args = append(args, "stack", string(stack))
	}
	log.Error("request_error", args...)
}

func captureError(c *gin.Context, err error) {
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetRequest(redactedRequest(c.Request))
	hub.Scope().SetTag("request_id", RequestIDFrom(c))
	hub.CaptureException(err)
}

// redactedQuery returns the raw query with the admin token value masked.
func redactedQuery(u *url.URL) string {
	if u.RawQuery == "" {
		return ""
	}
	q := u.Query()
	if _, ok := q[queryTokenParam]; !ok {
		return u.RawQuery
	}
	q.Set(queryTokenParam, "REDACTED")
	return q.Encode()
}

// redactedRequest is a copy of r that is safe to hand to Sentry.
func redactedRequest(r *http.Request) *http.Request {
	out := r.Clone(r.Context())
	out.URL.RawQuery = redactedQuery(r.URL)
	out.Header.Del("Authorization")
	return out
}
