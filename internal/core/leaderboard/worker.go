package leaderboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/ixugo/goddd/pkg/conc"
)

// Start 先同步加载一次配置，然后在后台定时轮询配置和重新计算
// 协程随 ctx 结束退出
func (c *Core) Start(ctx context.Context) {
	if _, err := c.RefreshConfig(ctx); err != nil {
		slog.ErrorContext(ctx, "load event config", "err", err)
	}
	go c.pollConfig(ctx)
	go c.recomputeLoop(ctx)
}

// pollConfig 定期读取后台配置，变化后触发重新计算
func (c *Core) pollConfig(ctx context.Context) {
	conc.Timer(ctx, c.pollInterval, c.pollInterval, func() {
		if _, err := c.RefreshConfig(ctx); err != nil {
			slog.WarnContext(ctx, "poll event config", "err", err)
		}
	})
}

// recomputeLoop 启动即计算一次，之后按间隔或收到触发时计算
func (c *Core) recomputeLoop(ctx context.Context) {
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	run := func() {
		ctx, cancel := context.WithTimeout(ctx, c.refreshInterval)
		defer cancel()
		_, _ = c.Recompute(ctx)
	}
	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		case <-c.trigger:
			run()
			ticker.Reset(c.refreshInterval)
		}
	}
}
