package leaderboard

import (
	"time"

	"github.com/iztrace/leaderboard/pkg/racetime"
)

// Input 一次计算的全部输入
type Input struct {
	Feed   *Feed
	Config *EventConfig
	// Now 只用于确定仅含时间字符串的日期基准
	Now time.Time
}

// Compute 起跑解析 -> 时长 -> 状态 -> 排名，纯函数，相同输入得到相同结果
// 无完赛记录或无法得到有效时长的选手不会出现在结果中
func Compute(in Input) *Snapshot {
	cfg := in.Config
	feed := in.Feed
	if feed == nil {
		feed = &Feed{}
	}
	resolver := NewStartResolver(cfg, cfg.Parser(in.Now), feed.Starts)

	rows := make([]ResultRow, 0, len(feed.Participants))
	for _, p := range feed.Participants {
		finish, ok := feed.Finishes[p.EPC]
		if !ok || !finish.OK {
			continue
		}
		d, ok := resolver.ResolveDuration(p, finish)
		if !ok {
			continue
		}
		if p.Category == "" {
			p.Category = p.SourceCategoryKey
		}
		status := Classify(p.EPC, d, cfg)
		rows = append(rows, ResultRow{
			Participant: p,
			FinishRaw:   finish.Raw,
			FinishTime:  racetime.ExtractTimeOfDay(finish.Raw),
			DurationMs:  d,
			Display:     displayOf(status, d),
			Status:      status,
		})
	}

	ranks := BuildRankMaps(rows)
	overall := Order(rows, ranks.Overall)

	categories := categoryKeys(cfg.Categories, feed.Participants)
	grouped := make(map[string][]ResultRow, len(categories))
	for _, r := range rows {
		grouped[r.SourceCategoryKey] = append(grouped[r.SourceCategoryKey], r)
	}
	byCategory := make(map[string][]ResultRow, len(categories))
	for _, k := range categories {
		byCategory[k] = Order(grouped[k], ranks.Category)
	}

	byEPC := make(map[string]int, len(overall))
	for i, r := range overall {
		byEPC[r.EPC] = i
	}

	return &Snapshot{
		ConfigVersion: cfg.Version,
		Categories:    categories,
		Overall:       overall,
		ByCategory:    byCategory,
		Ranks:         ranks,
		Checkpoints:   feed.Checkpoints,
		byEPC:         byEPC,
	}
}

// categoryKeys 配置顺序在前，名单中出现的其它分组按首次出现顺序追加
func categoryKeys(configured []string, participants []Participant) []string {
	out := make([]string, 0, len(configured))
	seen := make(map[string]struct{}, len(configured))
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, k := range configured {
		add(k)
	}
	for _, p := range participants {
		add(p.SourceCategoryKey)
	}
	return out
}
