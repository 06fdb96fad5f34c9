package leaderboard

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/iztrace/leaderboard/pkg/racetime"
)

// hoursThreshold 关门时间小于等于该值时按小时解释
const hoursThreshold = 48

// EventConfig 一次计算使用的赛事配置快照，创建后不再修改
type EventConfig struct {
	Version    uint64         `json:"version"`
	Location   *time.Location `json:"-"`
	Categories []string       `json:"categories"` // 配置顺序

	CutoffRaw      string            `json:"cutoff_raw"`
	CutoffMs       int64             `json:"cutoff_ms"` // 0 表示未启用
	CategoryStarts map[string]string `json:"category_starts"`
	Disqualified   map[string]bool   `json:"disqualified"`
	EventDate      string            `json:"event_date"`
}

// NormalizeCutoff 关门时间换算为毫秒
// 小于等于 48 视为小时，否则视为毫秒；非正数表示不启用
func NormalizeCutoff(v float64) (int64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	if v <= hoursThreshold {
		return int64(math.Round(v * float64(time.Hour/time.Millisecond))), true
	}
	return int64(v), true
}

// ParseCutoff 解析存储中的关门时间字符串
func ParseCutoff(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return NormalizeCutoff(v)
}

// Cutoff 返回关门时长
func (c *EventConfig) Cutoff() (int64, bool) {
	return c.CutoffMs, c.CutoffMs > 0
}

// IsDisqualified 是否被人工取消成绩
func (c *EventConfig) IsDisqualified(epc string) bool {
	return c.Disqualified[epc]
}

func (c *EventConfig) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// overrideKeys 先按配置顺序，再按字典序补齐其余分组
func (c *EventConfig) overrideKeys() []string {
	keys := make([]string, 0, len(c.CategoryStarts))
	seen := make(map[string]struct{}, len(c.Categories))
	for _, k := range c.Categories {
		seen[k] = struct{}{}
		if _, ok := c.CategoryStarts[k]; ok {
			keys = append(keys, k)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(c.CategoryStarts)) {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// BaseDate 仅含时间的日期基准，优先级：
// 任一分组起跑时间中携带的日期 > 后台/配置的比赛日期 > 当天
func (c *EventConfig) BaseDate(now time.Time) time.Time {
	loc := c.location()
	for _, k := range c.overrideKeys() {
		if d, ok := racetime.FindDate(c.CategoryStarts[k]); ok {
			if t, ok := racetime.ParseDate(d, loc); ok {
				return t
			}
		}
	}
	if t, ok := racetime.ParseDate(c.EventDate, loc); ok {
		return t
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Parser 以 BaseDate 为参考日期的时间解析器
func (c *EventConfig) Parser(now time.Time) racetime.Parser {
	return racetime.NewParser(c.location(), c.BaseDate(now))
}

// sameContent 忽略版本号比较内容
func (c *EventConfig) sameContent(o *EventConfig) bool {
	return c.CutoffRaw == o.CutoffRaw &&
		c.EventDate == o.EventDate &&
		c.location().String() == o.location().String() &&
		slices.Equal(c.Categories, o.Categories) &&
		maps.Equal(c.CategoryStarts, o.CategoryStarts) &&
		maps.Equal(c.Disqualified, o.Disqualified)
}
