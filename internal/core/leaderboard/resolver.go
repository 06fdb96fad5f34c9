package leaderboard

import (
	"strings"
	"time"

	"github.com/iztrace/leaderboard/pkg/racetime"
)

type overrideKind int

const (
	overrideNone overrideKind = iota
	overrideAbsolute
	overrideTimeOnly
)

// CategoryOverride 分组起跑时间覆盖
type CategoryOverride struct {
	kind      overrideKind
	absolute  racetime.Instant
	timeOfDay string
}

// ParseOverride 带日期的字符串视为绝对时间，否则视为仅时间
// 绝对时间无法解析时视为未设置
func ParseOverride(raw string, p racetime.Parser) CategoryOverride {
	s := strings.TrimSpace(raw)
	if s == "" {
		return CategoryOverride{}
	}
	if racetime.HasDate(s) {
		in := p.Parse(s)
		if !in.OK {
			return CategoryOverride{}
		}
		return CategoryOverride{kind: overrideAbsolute, absolute: in}
	}
	return CategoryOverride{kind: overrideTimeOnly, timeOfDay: s}
}

// IsSet 是否存在有效覆盖
func (o CategoryOverride) IsSet() bool {
	return o.kind != overrideNone
}

// Duration 完赛时间减起跑时间，任一无效或结果为负时返回 false
func Duration(finish, start racetime.Instant) (int64, bool) {
	if !finish.OK || !start.OK {
		return 0, false
	}
	d := finish.Ms - start.Ms
	if d < 0 {
		return 0, false
	}
	return d, true
}

// StartResolver 决定选手的有效起跑时间
type StartResolver struct {
	loc       *time.Location
	overrides map[string]CategoryOverride
	starts    map[string]racetime.Instant
}

// NewStartResolver 覆盖字符串在创建时解析一次
func NewStartResolver(cfg *EventConfig, p racetime.Parser, starts map[string]racetime.Instant) StartResolver {
	overrides := make(map[string]CategoryOverride, len(cfg.CategoryStarts))
	for key, raw := range cfg.CategoryStarts {
		if o := ParseOverride(raw, p); o.IsSet() {
			overrides[key] = o
		}
	}
	return StartResolver{loc: p.Location(), overrides: overrides, starts: starts}
}

// OverrideStart 分组覆盖给出的候选起跑时间
// 仅时间的覆盖拼接到选手自己完赛时刻所在的日期，跨零点计算时依然正确
func (r StartResolver) OverrideStart(categoryKey string, finish racetime.Instant) (racetime.Instant, bool) {
	o, ok := r.overrides[categoryKey]
	if !ok {
		return racetime.Instant{}, false
	}
	switch o.kind {
	case overrideAbsolute:
		return o.absolute, true
	case overrideTimeOnly:
		if !finish.OK {
			return racetime.Instant{}, false
		}
		return racetime.OnDate(o.timeOfDay, finish.Time(r.loc), r.loc)
	}
	return racetime.Instant{}, false
}

// IndividualStart 选手自己的起跑记录
func (r StartResolver) IndividualStart(epc string) (racetime.Instant, bool) {
	in, ok := r.starts[epc]
	return in, ok && in.OK
}

// ResolveDuration 分组覆盖 -> 个人起跑记录
// 覆盖得到负时长时回退到个人记录，二者都不可用时返回 false
func (r StartResolver) ResolveDuration(p Participant, finish racetime.Instant) (int64, bool) {
	if start, ok := r.OverrideStart(p.SourceCategoryKey, finish); ok {
		if d, ok := Duration(finish, start); ok {
			return d, true
		}
	}
	start, ok := r.IndividualStart(p.EPC)
	if !ok {
		return 0, false
	}
	return Duration(finish, start)
}
