package leaderboard

import (
	"context"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/iztrace/leaderboard/pkg/racetime"
	"github.com/jinzhu/copier"
	"golang.org/x/text/cases"
)

// 后台写入后立即刷新配置，刷新会触发重新计算
func (c *Core) afterWrite(ctx context.Context) {
	if _, err := c.RefreshConfig(ctx); err != nil {
		slog.WarnContext(ctx, "refresh config after write", "err", err)
	}
}

// SetCutoff 设置关门时长，按毫秒保存
// 不超过 48 毫秒的值读取时会被当作小时，因此拒绝
func (c *Core) SetCutoff(ctx context.Context, in *SetCutoffInput) (*AdminConfigOutput, error) {
	if in.Hours == nil || math.IsNaN(*in.Hours) || math.IsInf(*in.Hours, 0) || *in.Hours <= 0 {
		if err := c.store.Setting().Del(ctx, &Setting{}, orm.Where("name=?", SettingCutoff)); err != nil {
			return nil, reason.ErrDB.Withf(`Del cutoff err[%s]`, err.Error())
		}
	} else {
		ms := int64(math.Round(*in.Hours * float64(time.Hour/time.Millisecond)))
		if ms <= hoursThreshold {
			return nil, reason.ErrBadRequest.Withf(`cutoff hours[%v] too small`, *in.Hours)
		}
		s := Setting{Name: SettingCutoff, Value: strconv.FormatInt(ms, 10), UpdatedAt: orm.Now()}
		if err := c.store.Setting().Upsert(ctx, &s); err != nil {
			return nil, reason.ErrDB.Withf(`Upsert cutoff err[%s]`, err.Error())
		}
	}
	c.afterWrite(ctx)
	return c.AdminConfig(), nil
}

// SetEventDate 设置比赛日期
func (c *Core) SetEventDate(ctx context.Context, in *SetEventDateInput) (*AdminConfigOutput, error) {
	date := strings.TrimSpace(in.Date)
	if date == "" {
		if err := c.store.Setting().Del(ctx, &Setting{}, orm.Where("name=?", SettingEventDate)); err != nil {
			return nil, reason.ErrDB.Withf(`Del event_date err[%s]`, err.Error())
		}
		c.afterWrite(ctx)
		return c.AdminConfig(), nil
	}
	if _, ok := racetime.ParseDate(date, c.location); !ok {
		return nil, reason.ErrBadRequest.Withf(`date[%s] must be YYYY-MM-DD`, date)
	}
	s := Setting{Name: SettingEventDate, Value: date, UpdatedAt: orm.Now()}
	if err := c.store.Setting().Upsert(ctx, &s); err != nil {
		return nil, reason.ErrDB.Withf(`Upsert event_date err[%s]`, err.Error())
	}
	c.afterWrite(ctx)
	return c.AdminConfig(), nil
}

// SetCategoryStart 设置分组起跑时间，只接受已配置的分组
func (c *Core) SetCategoryStart(ctx context.Context, key string, in *SetCategoryStartInput) (*AdminConfigOutput, error) {
	if !c.isCategory(key) {
		return nil, reason.ErrNotFound.Withf(`category[%s] not found`, key)
	}
	raw := strings.TrimSpace(in.Raw)
	if raw == "" {
		if err := c.store.CategoryStartTime().Del(ctx, &CategoryStartTime{}, orm.Where("category_key=?", key)); err != nil {
			return nil, reason.ErrDB.Withf(`Del category start[%s] err[%s]`, key, err.Error())
		}
		c.afterWrite(ctx)
		return c.AdminConfig(), nil
	}
	if !validStart(raw, c.Config().Parser(c.now())) {
		return nil, reason.ErrBadRequest.Withf(`start[%s] is not a recognizable time`, raw)
	}
	v := CategoryStartTime{CategoryKey: key, Raw: raw, UpdatedAt: orm.Now()}
	if err := c.store.CategoryStartTime().Upsert(ctx, &v); err != nil {
		return nil, reason.ErrDB.Withf(`Upsert category start[%s] err[%s]`, key, err.Error())
	}
	c.afterWrite(ctx)
	return c.AdminConfig(), nil
}

// ToggleDisqualification 切换选手的 DSQ 状态，取消时删除记录
func (c *Core) ToggleDisqualification(ctx context.Context, epc string) (*ToggleDisqualificationOutput, error) {
	epc = strings.TrimSpace(epc)
	if epc == "" {
		return nil, reason.ErrBadRequest.Withf(`epc is required`)
	}
	out := ToggleDisqualificationOutput{EPC: epc}
	if c.Config().IsDisqualified(epc) {
		if err := c.store.Disqualification().Del(ctx, &Disqualification{}, orm.Where("epc=?", epc)); err != nil {
			return nil, reason.ErrDB.Withf(`Del disqualification[%s] err[%s]`, epc, err.Error())
		}
	} else {
		dq := Disqualification{EPC: epc, CreatedAt: orm.Now()}
		if snap, _ := c.Snapshot(); snap != nil {
			if row, ok := snap.Row(epc); ok {
				if err := copier.Copy(&dq, &row.Participant); err != nil {
					slog.ErrorContext(ctx, "Copy", "err", err)
				}
			}
		}
		if err := c.store.Disqualification().Upsert(ctx, &dq); err != nil {
			return nil, reason.ErrDB.Withf(`Upsert disqualification[%s] err[%s]`, epc, err.Error())
		}
		out.Disqualified = true
	}
	slog.InfoContext(ctx, "toggle disqualification", "epc", epc, "disqualified", out.Disqualified)
	c.afterWrite(ctx)
	return &out, nil
}

// FindRunners 按号码或姓名子串搜索，不区分大小写
func (c *Core) FindRunners(in *FindRunnersInput) ([]RunnerItem, error) {
	snap, err := c.ready()
	if err != nil {
		return nil, err
	}
	q := fold(strings.TrimSpace(in.Q))
	cfg := c.Config()
	out := make([]RunnerItem, 0, 8)
	for _, r := range snap.Overall {
		if q != "" && !strings.Contains(fold(r.Bib), q) && !strings.Contains(fold(r.Name), q) {
			continue
		}
		var item RunnerItem
		if err := copier.Copy(&item, &r); err != nil {
			slog.Error("Copy", "err", err)
		}
		item.Disqualified = cfg.IsDisqualified(r.EPC)
		out = append(out, item)
		if in.Limit > 0 && len(out) >= in.Limit {
			break
		}
	}
	return out, nil
}

// fold 搜索用的大小写折叠
func fold(s string) string {
	return cases.Fold().String(s)
}

// AdminConfig 当前配置总览
func (c *Core) AdminConfig() *AdminConfigOutput {
	cfg := c.Config()
	now := c.now()
	out := AdminConfigOutput{
		Version:      cfg.Version,
		CutoffMs:     cfg.CutoffMs,
		CutoffHours:  float64(cfg.CutoffMs) / float64(time.Hour/time.Millisecond),
		EventDate:    cfg.EventDate,
		BaseDate:     cfg.BaseDate(now).Format(time.DateOnly),
		Disqualified: make([]*Disqualification, 0, len(cfg.Disqualified)),
	}

	resolved := make(map[string]int64)
	for _, s := range CategoryStarts(cfg, now) {
		resolved[s.Key] = s.StartMs
	}
	for _, key := range cfg.Categories {
		item := CategoryStartItem{Key: key, Raw: cfg.CategoryStarts[key]}
		if ms, ok := resolved[key]; ok {
			item.StartMs = &ms
		}
		out.CategoryStarts = append(out.CategoryStarts, item)
	}

	snap, _ := c.Snapshot()
	for _, epc := range slices.Sorted(maps.Keys(cfg.Disqualified)) {
		dq := Disqualification{EPC: epc}
		if snap != nil {
			if row, ok := snap.Row(epc); ok {
				dq.Bib, dq.Name = row.Bib, row.Name
			}
		}
		out.Disqualified = append(out.Disqualified, &dq)
	}
	return &out
}

func (c *Core) isCategory(key string) bool {
	return slices.Contains(c.Config().Categories, key)
}

// validStart 带日期的须能完整解析，仅时间的须能拼接到参考日期
func validStart(raw string, p racetime.Parser) bool {
	if racetime.HasDate(raw) {
		return p.Parse(raw).OK
	}
	_, ok := racetime.OnDate(raw, p.RefDate(), p.Location())
	return ok
}
