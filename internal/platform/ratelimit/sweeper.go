package ratelimit

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeper はcronスケジュールに従ってMemoryLimiterの期限切れウィンドウを破棄します。
type Sweeper struct {
	cron *cron.Cron
}

// NewSweeper はspec（秒フィールド付きのcron式）でlimiter.Sweepを登録します。
func NewSweeper(limiter *MemoryLimiter, spec string) (*Sweeper, error) {
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, func() { limiter.Sweep() }); err != nil {
		return nil, fmt.Errorf("register rate limit sweep %q: %w", spec, err)
	}
	return &Sweeper{cron: c}, nil
}

// Start はスケジューラを開始します。
func (s *Sweeper) Start() {
	s.cron.Start()
	slog.Info("rate limit sweeper started")
}

// Stop は実行中のジョブの完了を待ってスケジューラを停止します。
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("rate limit sweeper stopped")
}
