package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// window はキーごとのウィンドウ状態です。
type window struct {
	count     int64
	lastReset time.Time
}

// MemoryLimiter はプロセス内でカウントする固定ウィンドウのリミッターです。
// 単一インスタンス構成向け。複数インスタンスで上限を共有する場合はRedisLimiterを使用します。
type MemoryLimiter struct {
	limit    int           // ウィンドウあたりの上限
	interval time.Duration // どの単位でリセットするか
	now      func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter は新しいMemoryLimiterのインスタンスを生成します。
func NewMemoryLimiter(limit int, interval time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:    limit,
		interval: interval,
		now:      time.Now,
		windows:  make(map[string]*window),
	}
}

// Allow はkeyのカウントを1つ進め、上限内かどうかを返します。
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	// interval を過ぎたらカウントリセット
	if !ok || now.Sub(w.lastReset) >= l.interval {
		w = &window{lastReset: now}
		l.windows[key] = w
	}
	w.count++

	return newResult(l.limit, w.count, l.interval-now.Sub(w.lastReset)), nil
}

// Sweep は期限切れのウィンドウを破棄し、破棄した件数を返します。
func (l *MemoryLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.windows {
		if now.Sub(w.lastReset) >= l.interval {
			delete(l.windows, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("rate limit windows swept", "removed", removed, "active", len(l.windows))
	}
	return removed
}

// Len は保持しているウィンドウ数を返します。
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
