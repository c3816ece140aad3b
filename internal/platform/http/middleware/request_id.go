// Package middleware はルーター共通のginミドルウェアを提供します。
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID はリクエストIDを受け渡すヘッダーです。
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// maxRequestIDLen を超える受信IDは信用せず、新たに採番します。
const maxRequestIDLen = 128

// RequestID はリクエストにIDを割り当て、レスポンスヘッダーとcontextに設定します。
// 受信したX-Request-IDがあればそれを引き継ぎます。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey{}, id))
		c.Next()
	}
}

// RequestIDFrom はcontextに設定されたリクエストIDを返します。未設定の場合は空文字です。
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
