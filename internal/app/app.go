package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/iztrace/leaderboard/internal/conf"
	"github.com/iztrace/leaderboard/internal/core/leaderboard"
	"github.com/iztrace/leaderboard/internal/data"
	"github.com/iztrace/leaderboard/internal/web/api"
)

// Run 启动 HTTP 服务，收到退出信号后优雅关闭
func Run(ctx context.Context, bc *conf.Bootstrap) error {
	log, closeLog := SetupLog(bc)
	defer closeLog()

	handler, cleanup, err := wireApp(bc)
	if err != nil {
		return fmt.Errorf("wire app: %w", err)
	}
	defer cleanup()

	svc := http.Server{
		Addr:              ":" + strconv.Itoa(bc.Server.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       bc.Server.HTTP.Timeout.Duration(),
		WriteTimeout:      bc.Server.HTTP.Timeout.Duration(),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errC := make(chan error, 1)
	go func() {
		log.Info("http server start", "addr", svc.Addr, "event", bc.Event.Name)
		if err := svc.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
		close(errC)
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	log.Info("http server shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown", "err", err)
		return err
	}
	return nil
}

// ComputeOnce 读取后台配置并计算一次成绩，不启动后台任务
func ComputeOnce(ctx context.Context, bc *conf.Bootstrap) (*leaderboard.Snapshot, error) {
	db, err := data.SetupDB(bc)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	source, err := api.NewFeedSource(bc)
	if err != nil {
		return nil, err
	}
	core := leaderboard.NewCore(data.NewLeaderboardStore(db), source,
		leaderboard.WithLocation(bc.Event.Location()),
		leaderboard.WithCategories(bc.Feed.CategoryKeys()...),
		leaderboard.WithEventDate(bc.Event.EventDate),
	)
	if _, err := core.RefreshConfig(ctx); err != nil {
		return nil, err
	}
	return core.Recompute(ctx)
}
