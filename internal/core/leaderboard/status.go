package leaderboard

import "github.com/iztrace/leaderboard/pkg/racetime"

// Classify 判定完赛状态
// DSQ 优先且不受时长影响；超过关门时间为 DNF，恰好等于关门时间仍算完赛
func Classify(epc string, durationMs int64, cfg *EventConfig) Status {
	if cfg.IsDisqualified(epc) {
		return StatusDSQ
	}
	if cutoff, ok := cfg.Cutoff(); ok && durationMs > cutoff {
		return StatusDNF
	}
	return StatusFinisher
}

// displayOf 成绩列的展示文本
func displayOf(status Status, durationMs int64) string {
	switch status {
	case StatusDSQ, StatusDNF:
		return string(status)
	}
	return racetime.FormatDuration(durationMs)
}
