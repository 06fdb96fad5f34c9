package leaderboard

import (
	"cmp"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Partition 排名分区键
type Partition func(ResultRow) string

var (
	// ByOverall 不分区
	ByOverall Partition = func(ResultRow) string { return "" }
	// ByGender 按小写性别分区，空值自成一组
	ByGender Partition = func(r ResultRow) string { return GenderKey(r.Gender) }
	// ByCategory 按来源分组分区
	ByCategory Partition = func(r ResultRow) string { return r.SourceCategoryKey }
)

// GenderKey 性别分区键
func GenderKey(gender string) string {
	return cases.Lower(language.Und).String(gender)
}

func byDuration(a, b ResultRow) int {
	return cmp.Compare(a.DurationMs, b.DurationMs)
}

// sortedByStatus 稳定排序后返回指定状态的行，相同时长保持输入顺序
func sortedByStatus(rows []ResultRow, status Status) []ResultRow {
	out := make([]ResultRow, 0, len(rows))
	for _, r := range rows {
		if r.Status == status {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, byDuration)
	return out
}

// Rank 只为完赛选手排名，分区内按时长升序取 1..N
func Rank(rows []ResultRow, partition Partition) map[string]int {
	finishers := sortedByStatus(rows, StatusFinisher)
	out := make(map[string]int, len(finishers))
	counters := make(map[string]int)
	for _, r := range finishers {
		k := partition(r)
		counters[k]++
		out[r.EPC] = counters[k]
	}
	return out
}

// BuildRankMaps 计算总排名、性别排名和分组排名
func BuildRankMaps(rows []ResultRow) RankMaps {
	return RankMaps{
		Overall:  Rank(rows, ByOverall),
		Gender:   Rank(rows, ByGender),
		Category: Rank(rows, ByCategory),
	}
}

// Order 展示顺序：完赛选手按名次，之后 DNF 按时长，最后 DSQ 保持输入顺序
// ranks 为该视图使用的名次表，DNF 和 DSQ 没有名次
func Order(rows []ResultRow, ranks map[string]int) []ResultRow {
	out := make([]ResultRow, 0, len(rows))
	for _, r := range sortedByStatus(rows, StatusFinisher) {
		if v, ok := ranks[r.EPC]; ok {
			r.Rank = &v
		}
		out = append(out, r)
	}
	for _, r := range sortedByStatus(rows, StatusDNF) {
		r.Rank = nil
		out = append(out, r)
	}
	for _, r := range rows {
		if r.Status == StatusDSQ {
			r.Rank = nil
			out = append(out, r)
		}
	}
	return out
}
