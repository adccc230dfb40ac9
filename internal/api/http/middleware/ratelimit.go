package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sol-registry/sol-backend/internal/auth"
	"github.com/sol-registry/sol-backend/internal/ratelimit"
)

// Health and documentation endpoints are never rate limited.
var exemptPaths = map[string]struct{}{
	"/health":       {},
	"/healthz":      {},
	"/docs":         {},
	"/openapi.json": {},
}

// requestCost weighs endpoints by how expensive they are to serve:
// downloads stream blobs, uploads write to every backing store.
func requestCost(path string) int {
	switch {
	case strings.HasPrefix(path, "/legacy"):
		return ratelimit.CostUpload
	case strings.HasPrefix(path, "/files/"):
		return ratelimit.CostDownload
	default:
		return ratelimit.CostStandard
	}
}

// RateLimitMiddleware admits requests through the shared token bucket
// limiter and attaches X-RateLimit-* headers to every response.
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, exempt := exemptPaths[path]; exempt {
			c.Next()
			return
		}

		id := auth.From(c)
		d := limiter.Admit(id.Subject, requestCost(path), id.Authenticated)

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if !d.Allowed {
			retry := int(d.RetryAfter.Seconds())
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.JSON(http.StatusTooManyRequests, gin.H{"detail": "Too many requests. Please try again later."})
			c.Abort()
			return
		}
		c.Next()
	}
}
