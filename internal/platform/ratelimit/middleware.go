package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chart_backend/internal/api"
)

// Middleware はクライアントIPごとにLimiterで判定し、上限超過時は429を返します。
// Limiterがエラーを返した場合はリクエストを通します（fail open）。
func Middleware(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		res, err := l.Allow(c.Request.Context(), client)
		if err != nil {
			slog.Error("rate limiter unavailable, allowing request", "client", client, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			retry := int(math.Ceil(res.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retry))
			slog.Warn("rate limit exceeded", "client", client, "path", c.FullPath(), "retry_after", res.RetryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, api.ErrorResponse{
				Error: "rate limit exceeded: a maximum of " + strconv.Itoa(res.Limit) + " requests per window is allowed",
			})
			return
		}
		c.Next()
	}
}
