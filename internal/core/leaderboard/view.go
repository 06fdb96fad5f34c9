package leaderboard

import (
	"github.com/ixugo/goddd/pkg/reason"
)

func (c *Core) ready() (*Snapshot, error) {
	snap, state := c.Snapshot()
	if snap == nil {
		return nil, reason.ErrServer.SetMsg(state.Msg)
	}
	return snap, nil
}

func newView(snap *Snapshot, category string, rows []ResultRow, in *ViewInput) *ViewOutput {
	if in.Gender != "" {
		g := GenderKey(in.Gender)
		filtered := make([]ResultRow, 0, len(rows))
		for _, r := range rows {
			if GenderKey(r.Gender) == g {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	total := len(rows)
	if in.Limit > 0 && in.Limit < len(rows) {
		rows = rows[:in.Limit]
	}
	if rows == nil {
		rows = []ResultRow{}
	}
	return &ViewOutput{
		SnapshotID:    snap.ID,
		Version:       snap.Version,
		ConfigVersion: snap.ConfigVersion,
		ComputedAt:    snap.ComputedAt,
		Category:      category,
		Total:         total,
		Items:         rows,
	}
}

// Overall 总榜
func (c *Core) Overall(in *ViewInput) (*ViewOutput, error) {
	snap, err := c.ready()
	if err != nil {
		return nil, err
	}
	return newView(snap, "", snap.Overall, in), nil
}

// Category 分组榜，名次为分组内名次
func (c *Core) Category(key string, in *ViewInput) (*ViewOutput, error) {
	snap, err := c.ready()
	if err != nil {
		return nil, err
	}
	rows, ok := snap.ByCategory[key]
	if !ok {
		return nil, reason.ErrNotFound.Withf(`category[%s] not found`, key)
	}
	return newView(snap, key, rows, in), nil
}

// Categories 分组列表，顺序与配置一致
func (c *Core) Categories() ([]CategoryItem, error) {
	snap, err := c.ready()
	if err != nil {
		return nil, err
	}
	out := make([]CategoryItem, 0, len(snap.Categories))
	for _, key := range snap.Categories {
		item := CategoryItem{Key: key}
		for _, r := range snap.ByCategory[key] {
			item.Total++
			switch r.Status {
			case StatusFinisher:
				item.Finishers++
			case StatusDNF:
				item.DNF++
			case StatusDSQ:
				item.DSQ++
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// Runner 单个选手的成绩、三个维度名次和打卡记录
func (c *Core) Runner(epc string) (*RunnerDetail, error) {
	snap, err := c.ready()
	if err != nil {
		return nil, err
	}
	row, ok := snap.Row(epc)
	if !ok {
		return nil, reason.ErrNotFound.Withf(`epc[%s] not found`, epc)
	}
	cps := snap.Checkpoints[epc]
	if cps == nil {
		cps = []string{}
	}
	return &RunnerDetail{
		ResultRow:   row,
		Ranks:       snap.Ranks.Of(epc),
		Checkpoints: cps,
	}, nil
}
