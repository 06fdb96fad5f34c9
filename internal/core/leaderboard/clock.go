package leaderboard

import (
	"strings"
	"time"

	"github.com/iztrace/leaderboard/pkg/racetime"
)

// ClockStatus 关门时间看板状态
type ClockStatus string

const (
	ClockDisabled ClockStatus = "disabled"               // 未设置关门时间
	ClockAwaiting ClockStatus = "awaiting_configuration" // 没有任何分组可解析出起跑时间
	ClockRunning  ClockStatus = "running"
	ClockPassed   ClockStatus = "passed"
)

// CategoryStart 分组的绝对起跑时间
type CategoryStart struct {
	Key     string `json:"key"`
	StartMs int64  `json:"start_ms"`
}

// ClockState 看板当前展示的内容
type ClockState struct {
	Status      ClockStatus `json:"status"`
	Category    string      `json:"category,omitempty"`
	StartMs     int64       `json:"start_ms,omitempty"`
	EndMs       int64       `json:"end_ms,omitempty"`
	RemainingMs int64       `json:"remaining_ms"`
	ElapsedMs   int64       `json:"elapsed_ms"`
	IsPassed    bool        `json:"is_passed"`
	Display     string      `json:"display"`
	BaseDate    string      `json:"base_date"`
	Slot        int         `json:"slot"`
	Total       int         `json:"total"`
}

// CategoryStarts 按配置顺序解析各分组起跑时间，无法解析的分组跳过
// 仅含时间的字符串统一拼接到 BaseDate
func CategoryStarts(cfg *EventConfig, now time.Time) []CategoryStart {
	base := cfg.BaseDate(now)
	loc := cfg.location()
	parser := racetime.NewParser(loc, base)

	out := make([]CategoryStart, 0, len(cfg.Categories))
	for _, key := range cfg.Categories {
		raw := strings.TrimSpace(cfg.CategoryStarts[key])
		if raw == "" {
			continue
		}
		var in racetime.Instant
		if racetime.HasDate(raw) {
			in = parser.Parse(raw)
		} else {
			in, _ = racetime.OnDate(raw, base, loc)
		}
		if !in.OK {
			continue
		}
		out = append(out, CategoryStart{Key: key, StartMs: in.Ms})
	}
	return out
}

// RotationSlot 按固定间隔轮换的槽位
func RotationSlot(now time.Time, interval time.Duration) int {
	if interval <= 0 {
		return 0
	}
	return int(now.UnixMilli() / interval.Milliseconds())
}

// ClockAt 计算 slot 对应分组的剩余/超出关门时间
func ClockAt(cfg *EventConfig, now time.Time, slot int) ClockState {
	state := ClockState{
		Status:   ClockDisabled,
		BaseDate: cfg.BaseDate(now).Format(time.DateOnly),
		Display:  racetime.FormatCountdown(0),
	}
	cutoff, ok := cfg.Cutoff()
	if !ok {
		return state
	}

	starts := CategoryStarts(cfg, now)
	state.Total = len(starts)
	if len(starts) == 0 {
		state.Status = ClockAwaiting
		return state
	}

	idx := slot % len(starts)
	if idx < 0 {
		idx += len(starts)
	}
	active := starts[idx]
	end := active.StartMs + cutoff
	left := end - now.UnixMilli()

	state.Slot = idx
	state.Category = active.Key
	state.StartMs = active.StartMs
	state.EndMs = end
	if left > 0 {
		state.Status = ClockRunning
		state.RemainingMs = left
		state.Display = racetime.FormatCountdown(left)
		return state
	}
	state.Status = ClockPassed
	state.IsPassed = true
	state.ElapsedMs = -left
	state.Display = "+" + racetime.FormatCountdown(-left)
	return state
}
