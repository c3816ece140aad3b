package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"chart_backend/internal/api"
)

// Admission は同時に処理するリクエスト数をmaxInFlightまでに制限します。
// 空きが無い場合は待たずに503を返します。
func Admission(maxInFlight int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(maxInFlight)
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			slog.Warn("admission rejected", "path", c.FullPath(), "max_in_flight", maxInFlight)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "server is busy, try again later"})
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
