package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ixugo/goddd/pkg/system"
	"github.com/iztrace/leaderboard/internal/conf"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLog 初始化全局日志，调试模式同时输出到控制台
func SetupLog(bc *conf.Bootstrap) (*slog.Logger, func()) {
	cfg := bc.Log
	dir := cfg.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(system.Getwd(), dir)
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "leaderboard.log"),
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.MaxBackups,
		LocalTime:  true,
	}

	var w io.Writer = file
	if bc.Debug {
		w = io.MultiWriter(os.Stdout, file)
	}
	log := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: bc.Debug,
		Level:     parseLevel(cfg.Level),
	})).With("version", bc.BuildVersion)
	slog.SetDefault(log)

	return log, func() { _ = file.Close() }
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
