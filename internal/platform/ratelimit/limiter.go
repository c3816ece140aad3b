// Package ratelimit はクライアント単位のリクエスト数制限（固定ウィンドウ）を提供します。
package ratelimit

import (
	"context"
	"strings"
	"time"
)

// Result は1回の判定結果です。
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter はウィンドウがリセットされるまでの時間です。
	RetryAfter time.Duration
}

// Limiter はキーごとのリクエスト数を数え、上限を超えたかを判定します。
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// newResult は現在のカウントから判定結果を組み立てます。
func newResult(limit int, count int64, retryAfter time.Duration) Result {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Result{
		Allowed:    count <= int64(limit),
		Limit:      limit,
		Remaining:  remaining,
		RetryAfter: retryAfter,
	}
}

// safe はキーに使えない文字を置き換えます。
func safe(s string) string {
	return strings.NewReplacer(" ", "_", ":", "_", "*", "_").Replace(s)
}
