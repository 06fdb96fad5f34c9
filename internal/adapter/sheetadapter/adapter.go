package sheetadapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iztrace/leaderboard/internal/conf"
	"github.com/iztrace/leaderboard/internal/core/leaderboard"
	"github.com/iztrace/leaderboard/pkg/gsheet"
	"github.com/iztrace/leaderboard/pkg/racetime"
	"golang.org/x/sync/errgroup"
)

// 表头别名，匹配规则见 gsheet.Grid.Col
var (
	aliasEPC      = []string{"epc", "uid", "tag", "rfid", "chip epc", "epc code"}
	aliasBib      = []string{"bib", "no bib", "bib number", "race bib", "nomor bib", "no. bib"}
	aliasName     = []string{"nama lengkap", "full name", "name", "nama", "participant name"}
	aliasGender   = []string{"jenis kelamin", "gender", "sex", "jk"}
	aliasCategory = []string{"kategori", "category", "kelas", "class"}
	aliasTimes    = []string{"times", "time", "timestamp", "start time", "finish time", "jam", "checkpoint time", "cp time"}
)

// CategoryTab 分组名单所在的工作表
type CategoryTab struct {
	Key string
	Tab
}

// Layout 各数据所在的工作表
type Layout struct {
	Start      Tab
	Finish     Tab
	Checkpoint Tab // 可选
	Categories []CategoryTab
}

// LayoutFromConf 按配置生成表格布局
func LayoutFromConf(f conf.Feed) Layout {
	l := Layout{
		Start:      Tab{Name: "start", GID: f.StartGID, File: f.StartFile},
		Finish:     Tab{Name: "finish", GID: f.FinishGID, File: f.FinishFile},
		Checkpoint: Tab{Name: "checkpoint", GID: f.CheckpointGID, File: f.CheckpointFile},
	}
	for _, c := range f.Categories {
		l.Categories = append(l.Categories, CategoryTab{Key: c.Key, Tab: Tab{Name: c.Key, GID: c.GID, File: c.File}})
	}
	return l
}

var _ leaderboard.Source = &Adapter{}

// Adapter 将表格数据转换为计时数据
type Adapter struct {
	reader Reader
	layout Layout
	log    *slog.Logger
}

func NewAdapter(reader Reader, layout Layout) *Adapter {
	return &Adapter{
		reader: reader,
		layout: layout,
		log:    slog.With("module", "sheetadapter"),
	}
}

// Fetch implements leaderboard.Source.
// 名单和起终点任一读取失败视为整体失败，打卡数据读取失败时返回空
func (a *Adapter) Fetch(ctx context.Context, parser racetime.Parser) (*leaderboard.Feed, error) {
	rosters := make([][]leaderboard.Participant, len(a.layout.Categories))
	var (
		starts, finishes map[string]racetime.Instant
		checkpoints      map[string][]string
	)

	g, ctx := errgroup.WithContext(ctx)
	for i, cat := range a.layout.Categories {
		g.Go(func() error {
			grid, err := a.reader.Read(ctx, cat.Tab)
			if err != nil {
				return fmt.Errorf("roster %s: %w", cat.Key, err)
			}
			rosters[i] = ParseRoster(grid, cat.Key)
			return nil
		})
	}
	g.Go(func() error {
		grid, err := a.reader.Read(ctx, a.layout.Start)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		starts = ParseTimes(grid, parser, PickEarliest)
		return nil
	})
	g.Go(func() error {
		grid, err := a.reader.Read(ctx, a.layout.Finish)
		if err != nil {
			return fmt.Errorf("finish: %w", err)
		}
		finishes = ParseTimes(grid, parser, PickLatest)
		return nil
	})
	if a.layout.Checkpoint.IsSet() {
		g.Go(func() error {
			grid, err := a.reader.Read(ctx, a.layout.Checkpoint)
			if err != nil {
				a.log.WarnContext(ctx, "checkpoint unavailable", "err", err)
				return nil
			}
			checkpoints = ParseCheckpoints(grid)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if checkpoints == nil {
		checkpoints = map[string][]string{}
	}
	return &leaderboard.Feed{
		Participants: MergeRosters(rosters...),
		Starts:       starts,
		Finishes:     finishes,
		Checkpoints:  checkpoints,
	}, nil
}

// ParseRoster 解析分组名单，没有 EPC 的行丢弃
// 名单中没有分组列时，分组名使用 key
func ParseRoster(grid gsheet.Grid, key string) []leaderboard.Participant {
	rows := grid.Rows()
	if len(rows) == 0 {
		return nil
	}
	epc := grid.Col(aliasEPC...)
	bib := grid.Col(aliasBib...)
	name := grid.Col(aliasName...)
	gender := grid.Col(aliasGender...)
	category := grid.Col(aliasCategory...)

	out := make([]leaderboard.Participant, 0, len(rows))
	for _, r := range rows {
		p := leaderboard.Participant{
			EPC:               gsheet.Cell(r, epc),
			Bib:               gsheet.Cell(r, bib),
			Name:              gsheet.Cell(r, name),
			Gender:            gsheet.Cell(r, gender),
			Category:          key,
			SourceCategoryKey: key,
		}
		if p.EPC == "" {
			continue
		}
		if category >= 0 {
			p.Category = gsheet.Cell(r, category)
		}
		out = append(out, p)
	}
	return out
}

// MergeRosters 按顺序合并名单，同一 EPC 保留第一次出现的记录
func MergeRosters(rosters ...[]leaderboard.Participant) []leaderboard.Participant {
	seen := make(map[string]struct{})
	var out []leaderboard.Participant
	for _, roster := range rosters {
		for _, p := range roster {
			if _, ok := seen[p.EPC]; ok {
				continue
			}
			seen[p.EPC] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// Pick 同一 EPC 出现多次时决定是否用新记录替换旧记录
type Pick func(old, next racetime.Instant) bool

// PickLatest 完赛取最晚
func PickLatest(old, next racetime.Instant) bool {
	return next.OK && (!old.OK || next.Ms > old.Ms)
}

// PickEarliest 起跑取最早
func PickEarliest(old, next racetime.Instant) bool {
	return next.OK && (!old.OK || next.Ms < old.Ms)
}

// ParseTimes 解析 EPC -> 时间，缺少 EPC 或时间列时返回空
// 无法解析的时间也会保留，便于后续判定为未计时
func ParseTimes(grid gsheet.Grid, parser racetime.Parser, pick Pick) map[string]racetime.Instant {
	out := make(map[string]racetime.Instant)
	epc := grid.Col(aliasEPC...)
	times := grid.Col(aliasTimes...)
	if epc < 0 || times < 0 {
		return out
	}
	for _, r := range grid.Rows() {
		id := gsheet.Cell(r, epc)
		raw := gsheet.Cell(r, times)
		if id == "" || raw == "" {
			continue
		}
		next := parser.Parse(raw)
		old, ok := out[id]
		if !ok || pick(old, next) {
			out[id] = next
		}
	}
	return out
}

// ParseCheckpoints 解析打卡记录，保持原始顺序
func ParseCheckpoints(grid gsheet.Grid) map[string][]string {
	out := make(map[string][]string)
	epc := grid.Col(aliasEPC...)
	if epc < 0 {
		return out
	}
	times := grid.Col(aliasTimes...)
	for _, r := range grid.Rows() {
		id := gsheet.Cell(r, epc)
		if id == "" {
			continue
		}
		list := out[id]
		if raw := gsheet.Cell(r, times); raw != "" {
			list = append(list, raw)
		}
		if list == nil {
			list = []string{}
		}
		out[id] = list
	}
	return out
}
