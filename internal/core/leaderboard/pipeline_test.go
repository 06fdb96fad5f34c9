package leaderboard

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/iztrace/leaderboard/pkg/racetime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jakarta = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		panic(err)
	}
	return loc
}()

// raceNow 计算时刻，故意选在比赛次日，验证仅时间的覆盖不依赖当天日期
var raceNow = time.Date(2025, 11, 24, 1, 30, 0, 0, jakarta)

type entry struct {
	epc    string
	gender string
	cat    string
	start  string
	finish string
}

func newTestConfig() *EventConfig {
	return &EventConfig{
		Location:       jakarta,
		Categories:     []string{"10K", "5K"},
		CategoryStarts: map[string]string{},
		Disqualified:   map[string]bool{},
		EventDate:      "2025-11-23",
	}
}

func newTestFeed(cfg *EventConfig, entries ...entry) *Feed {
	p := cfg.Parser(raceNow)
	feed := Feed{
		Starts:      map[string]racetime.Instant{},
		Finishes:    map[string]racetime.Instant{},
		Checkpoints: map[string][]string{},
	}
	for _, e := range entries {
		cat := e.cat
		if cat == "" {
			cat = "10K"
		}
		feed.Participants = append(feed.Participants, Participant{
			EPC:               e.epc,
			Bib:               "B" + e.epc,
			Name:              "Runner " + e.epc,
			Gender:            e.gender,
			SourceCategoryKey: cat,
		})
		if e.start != "" {
			feed.Starts[e.epc] = p.Parse(e.start)
		}
		if e.finish != "" {
			feed.Finishes[e.epc] = p.Parse(e.finish)
		}
	}
	return &feed
}

func compute(cfg *EventConfig, entries ...entry) *Snapshot {
	return Compute(Input{Feed: newTestFeed(cfg, entries...), Config: cfg, Now: raceNow})
}

func mustRow(t *testing.T, s *Snapshot, epc string) ResultRow {
	t.Helper()
	row, ok := s.Row(epc)
	require.True(t, ok, epc)
	return row
}

func TestComputeIndividualStart(t *testing.T) {
	snap := compute(newTestConfig(), entry{epc: "E1", start: "2025-11-23 07:00:00.000", finish: "2025-11-23 08:28:28.915"})

	row := mustRow(t, snap, "E1")
	assert.EqualValues(t, 5308915, row.DurationMs)
	assert.Equal(t, "01:28:28", row.Display)
	assert.Equal(t, StatusFinisher, row.Status)
	assert.Equal(t, "08:28:28.915", row.FinishTime)
	require.NotNil(t, row.Rank)
	assert.Equal(t, 1, *row.Rank)
	assert.Equal(t, "10K", row.Category)
}

func TestComputeTimeOnlyOverrideUsesFinishDate(t *testing.T) {
	cfg := newTestConfig()
	cfg.CategoryStarts["10K"] = "07:15:00"
	snap := compute(cfg, entry{epc: "E1", start: "2025-11-23 07:00:00.000", finish: "2025-11-23 08:28:28.915"})

	row := mustRow(t, snap, "E1")
	assert.EqualValues(t, 4408915, row.DurationMs)
	assert.Equal(t, "01:13:28", row.Display)
}

func TestComputeAbsoluteOverride(t *testing.T) {
	cfg := newTestConfig()
	cfg.CategoryStarts["10K"] = "2025-11-23 06:30:00"
	cfg.CategoryStarts["5K"] = "2025-11-23 09:00:00"

	snap := compute(cfg,
		// 覆盖早于个人起跑记录，仍使用覆盖
		entry{epc: "E1", start: "2025-11-23 07:00:00", finish: "2025-11-23 08:00:00"},
		// 覆盖晚于完赛，回退到个人起跑记录
		entry{epc: "E2", cat: "5K", start: "2025-11-23 07:00:00", finish: "2025-11-23 08:00:00"},
		// 覆盖无效且没有个人记录，不出现在结果中
		entry{epc: "E3", cat: "5K", finish: "2025-11-23 08:00:00"},
	)

	assert.EqualValues(t, 90*time.Minute/time.Millisecond, mustRow(t, snap, "E1").DurationMs)
	assert.EqualValues(t, time.Hour/time.Millisecond, mustRow(t, snap, "E2").DurationMs)
	_, ok := snap.Row("E3")
	assert.False(t, ok)
	assert.Len(t, snap.Overall, 2)
}

func TestComputeTimeOnlyOverrideFallback(t *testing.T) {
	cfg := newTestConfig()
	cfg.CategoryStarts["10K"] = "23:00:00"

	snap := compute(cfg,
		entry{epc: "E1", start: "2025-11-23 22:00:00", finish: "2025-11-24 00:30:00"},
		entry{epc: "E2", finish: "2025-11-24 00:30:00"},
	)

	assert.EqualValues(t, 150*time.Minute/time.Millisecond, mustRow(t, snap, "E1").DurationMs)
	_, ok := snap.Row("E2")
	assert.False(t, ok)
}

func TestComputeDropsUntimedParticipants(t *testing.T) {
	snap := compute(newTestConfig(),
		entry{epc: "E1", start: "2025-11-23 07:00:00"},
		entry{epc: "E2", start: "2025-11-23 07:00:00", finish: "DNS"},
		entry{epc: "E3", finish: "2025-11-23 08:00:00"},
		entry{epc: "E4", start: "2025-11-23 07:00:00", finish: "2025-11-23 08:00:00"},
	)
	require.Len(t, snap.Overall, 1)
	assert.Equal(t, "E4", snap.Overall[0].EPC)
}

func TestComputeCutoffBoundary(t *testing.T) {
	cfg := newTestConfig()
	ms, ok := ParseCutoff("3")
	require.True(t, ok)
	require.EqualValues(t, 10800000, ms)
	cfg.CutoffRaw, cfg.CutoffMs = "3", ms

	snap := compute(cfg,
		entry{epc: "LATE", start: "2025-11-23 07:00:00.000", finish: "2025-11-23 10:00:00.001"},
		entry{epc: "EXACT", start: "2025-11-23 07:00:00.000", finish: "2025-11-23 10:00:00.000"},
	)

	late := mustRow(t, snap, "LATE")
	assert.EqualValues(t, 10800001, late.DurationMs)
	assert.Equal(t, StatusDNF, late.Status)
	assert.Equal(t, "DNF", late.Display)
	assert.Nil(t, late.Rank)

	exact := mustRow(t, snap, "EXACT")
	assert.EqualValues(t, 10800000, exact.DurationMs)
	assert.Equal(t, StatusFinisher, exact.Status)
	assert.Equal(t, "03:00:00", exact.Display)

	assert.Equal(t, []string{"EXACT", "LATE"}, epcs(snap.Overall))
	_, ranked := snap.Ranks.Overall["LATE"]
	assert.False(t, ranked)
}

func TestComputeDisqualificationWins(t *testing.T) {
	cfg := newTestConfig()
	cfg.CutoffMs = 10800000
	cfg.Disqualified["FAST"] = true
	cfg.Disqualified["SLOW"] = true

	snap := compute(cfg,
		entry{epc: "FAST", gender: "M", start: "2025-11-23 07:00:00", finish: "2025-11-23 07:30:00"},
		entry{epc: "SLOW", gender: "M", start: "2025-11-23 07:00:00", finish: "2025-11-23 11:00:00"},
		entry{epc: "OK", gender: "M", start: "2025-11-23 07:00:00", finish: "2025-11-23 08:00:00"},
	)

	for _, epc := range []string{"FAST", "SLOW"} {
		row := mustRow(t, snap, epc)
		assert.Equal(t, StatusDSQ, row.Status, epc)
		assert.Equal(t, "DSQ", row.Display, epc)
		assert.Nil(t, row.Rank, epc)
		assert.NotContains(t, snap.Ranks.Overall, epc)
		assert.NotContains(t, snap.Ranks.Gender, epc)
		assert.NotContains(t, snap.Ranks.Category, epc)
	}
	assert.Equal(t, 1, *mustRow(t, snap, "OK").Rank)
	// DSQ 保持输入顺序
	assert.Equal(t, []string{"OK", "FAST", "SLOW"}, epcs(snap.Overall))
}

func TestComputeTiesKeepInputOrder(t *testing.T) {
	snap := compute(newTestConfig(),
		entry{epc: "A", start: "2025-11-23 07:00:00", finish: "2025-11-23 08:00:00"},
		entry{epc: "B", start: "2025-11-23 07:00:00", finish: "2025-11-23 07:40:00"},
		entry{epc: "C", start: "2025-11-23 07:00:00", finish: "2025-11-23 07:50:00"},
		entry{epc: "TIE1", start: "2025-11-23 07:00:00", finish: "2025-11-23 07:55:00"},
		entry{epc: "TIE2", start: "2025-11-23 07:00:00", finish: "2025-11-23 07:55:00"},
	)

	assert.Equal(t, []string{"B", "C", "TIE1", "TIE2", "A"}, epcs(snap.Overall))
	assert.Equal(t, 3, snap.Ranks.Overall["TIE1"])
	assert.Equal(t, 4, snap.Ranks.Overall["TIE2"])
	assert.Equal(t, 5, snap.Ranks.Overall["A"])
}

func TestComputeDisplayOrder(t *testing.T) {
	cfg := newTestConfig()
	cfg.CutoffMs = int64(time.Hour / time.Millisecond)
	cfg.Disqualified["D2"] = true
	cfg.Disqualified["D1"] = true

	snap := compute(cfg,
		entry{epc: "D2", start: "2025-11-23 07:00:00", finish: "2025-11-23 07:10:00"},
		entry{epc: "N2", start: "2025-11-23 07:00:00", finish: "2025-11-23 09:00:00"},
		entry{epc: "F2", start: "2025-11-23 07:00:00", finish: "2025-11-23 07:50:00"},
		entry{epc: "N1", start: "2025-11-23 07:00:00", finish: "2025-11-23 08:30:00"},
		entry{epc: "D1", start: "2025-11-23 07:00:00", finish: "2025-11-23 07:05:00"},
		entry{epc: "F1", start: "2025-11-23 07:00:00", finish: "2025-11-23 07:20:00"},
	)
	assert.Equal(t, []string{"F1", "F2", "N1", "N2", "D2", "D1"}, epcs(snap.Overall))
}

func TestComputeRanksAreDensePerScope(t *testing.T) {
	cfg := newTestConfig()
	cfg.CutoffMs = int64(2 * time.Hour / time.Millisecond)
	cfg.Disqualified["P3"] = true

	snap := compute(cfg,
		entry{epc: "P1", gender: "Male", cat: "10K", start: "2025-11-23 07:00:00", finish: "2025-11-23 08:10:00"},
		entry{epc: "P2", gender: "female", cat: "10K", start: "2025-11-23 07:00:00", finish: "2025-11-23 08:05:00"},
		entry{epc: "P3", gender: "male", cat: "5K", start: "2025-11-23 07:00:00", finish: "2025-11-23 07:20:00"},
		entry{epc: "P4", gender: "MALE", cat: "5K", start: "2025-11-23 07:00:00", finish: "2025-11-23 07:40:00"},
		entry{epc: "P5", gender: "", cat: "5K", start: "2025-11-23 07:00:00", finish: "2025-11-23 07:35:00"},
		entry{epc: "P6", gender: "Female", cat: "10K", start: "2025-11-23 07:00:00", finish: "2025-11-23 09:30:00"},
		entry{epc: "P7", gender: "", cat: "10K", start: "2025-11-23 07:00:00", finish: "2025-11-23 08:20:00"},
	)

	assert.Equal(t, map[string]int{"P5": 1, "P4": 2, "P2": 3, "P1": 4, "P7": 5}, snap.Ranks.Overall)
	// 性别不区分大小写，空性别自成一组
	assert.Equal(t, map[string]int{"P4": 1, "P1": 2, "P2": 1, "P5": 1, "P7": 2}, snap.Ranks.Gender)
	assert.Equal(t, map[string]int{"P2": 1, "P1": 2, "P7": 3, "P5": 1, "P4": 2}, snap.Ranks.Category)

	for _, scope := range []map[string]int{snap.Ranks.Overall} {
		var prev int64 = -1
		for i, r := range snap.Overall {
			if r.Status != StatusFinisher {
				continue
			}
			assert.Equal(t, i+1, scope[r.EPC])
			assert.GreaterOrEqual(t, r.DurationMs, prev)
			prev = r.DurationMs
		}
	}

	// 分组视图使用分组名次
	tenK := snap.ByCategory["10K"]
	assert.Equal(t, []string{"P2", "P1", "P7", "P6"}, epcs(tenK))
	assert.Equal(t, 3, *tenK[2].Rank)
	assert.Nil(t, tenK[3].Rank)
	assert.Equal(t, []string{"P5", "P4", "P3"}, epcs(snap.ByCategory["5K"]))

	ranks := snap.Ranks.Of("P7")
	assert.Equal(t, 5, *ranks.Overall)
	assert.Equal(t, 2, *ranks.Gender)
	assert.Equal(t, 3, *ranks.Category)
	assert.Nil(t, snap.Ranks.Of("P6").Overall)
}

func TestComputeIdempotent(t *testing.T) {
	cfg := newTestConfig()
	cfg.CutoffMs = int64(time.Hour / time.Millisecond)
	cfg.CategoryStarts["5K"] = "07:05"
	feed := newTestFeed(cfg,
		entry{epc: "A", cat: "5K", start: "2025-11-23 07:00:00", finish: "2025-11-23 07:40:00"},
		entry{epc: "B", start: "2025-11-23 07:00:00", finish: "2025-11-23 07:40:00"},
		entry{epc: "C", start: "2025-11-23 07:00:00", finish: "2025-11-23 09:40:00"},
	)

	a := Compute(Input{Feed: feed, Config: cfg, Now: raceNow})
	b := Compute(Input{Feed: feed, Config: cfg, Now: raceNow.Add(6 * time.Hour)})
	assert.Equal(t, a.Overall, b.Overall)
	assert.Equal(t, a.ByCategory, b.ByCategory)
	assert.Equal(t, a.Ranks, b.Ranks)
	assert.Equal(t, a.Categories, b.Categories)
}

func TestComputeEmptyFeed(t *testing.T) {
	snap := Compute(Input{Config: newTestConfig(), Now: raceNow})
	assert.Empty(t, snap.Overall)
	assert.Empty(t, snap.Ranks.Overall)
	assert.Empty(t, snap.Ranks.Gender)
	assert.Empty(t, snap.Ranks.Category)
	assert.Equal(t, []string{"10K", "5K"}, snap.Categories)
	assert.Empty(t, snap.ByCategory["5K"])
}

func TestComputeCategoryKeys(t *testing.T) {
	snap := compute(newTestConfig(),
		entry{epc: "A", cat: "HM", start: "2025-11-23 07:00:00", finish: "2025-11-23 08:00:00"},
		entry{epc: "B", cat: "5K", start: "2025-11-23 07:00:00", finish: "2025-11-23 08:00:00"},
	)
	assert.Equal(t, []string{"10K", "5K", "HM"}, snap.Categories)
	assert.Equal(t, "HM", mustRow(t, snap, "A").Category)
}

func epcs(rows []ResultRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.EPC)
	}
	return out
}
