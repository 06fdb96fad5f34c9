package leaderboard

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/iztrace/leaderboard/pkg/racetime"
)

// Source 计时数据来源，parser 决定仅含时间字符串的日期基准
type Source interface {
	Fetch(ctx context.Context, parser racetime.Parser) (*Feed, error)
}

// Core business domain
type Core struct {
	store  Storer
	source Source
	now    func() time.Time

	location        *time.Location
	categories      []string
	eventDate       string
	refreshInterval time.Duration
	pollInterval    time.Duration

	config   atomic.Pointer[EventConfig]
	snapshot atomic.Pointer[Snapshot]
	state    atomic.Pointer[LoadState]
	version  atomic.Uint64
	loaded   atomic.Bool

	// 计算串行执行，保证快照版本单调
	computeMu sync.Mutex
	configMu  sync.Mutex
	trigger   chan struct{}
}

type Option func(*Core)

// WithLocation 赛事所在时区
func WithLocation(loc *time.Location) Option {
	return func(c *Core) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithCategories 分组的展示顺序
func WithCategories(keys ...string) Option {
	return func(c *Core) {
		c.categories = slices.Clone(keys)
	}
}

// WithEventDate 配置文件中的比赛日期，后台设置优先
func WithEventDate(date string) Option {
	return func(c *Core) {
		c.eventDate = strings.TrimSpace(date)
	}
}

// WithIntervals 重新计算与配置轮询的间隔
func WithIntervals(refresh, poll time.Duration) Option {
	return func(c *Core) {
		if refresh > 0 {
			c.refreshInterval = refresh
		}
		if poll > 0 {
			c.pollInterval = poll
		}
	}
}

// WithNow 替换时钟，用于测试
func WithNow(fn func() time.Time) Option {
	return func(c *Core) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCore create business domain
func NewCore(store Storer, source Source, opts ...Option) *Core {
	c := Core{
		store:           store,
		source:          source,
		now:             time.Now,
		location:        time.Local,
		refreshInterval: 30 * time.Second,
		pollInterval:    2 * time.Second,
		trigger:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.config.Store(c.defaultConfig())
	c.state.Store(&LoadState{Status: LoadStatusLoading, Msg: "loading", UpdatedAt: c.now()})
	return &c
}

func (c *Core) defaultConfig() *EventConfig {
	return &EventConfig{
		Location:       c.location,
		Categories:     c.categories,
		CategoryStarts: map[string]string{},
		Disqualified:   map[string]bool{},
		EventDate:      c.eventDate,
	}
}

// Location 赛事时区
func (c *Core) Location() *time.Location {
	return c.location
}

// Now 当前时间
func (c *Core) Now() time.Time {
	return c.now()
}

// Config 当前生效的赛事配置
func (c *Core) Config() *EventConfig {
	return c.config.Load()
}

// Snapshot 最近一次成功计算的结果，首次成功前为 nil
func (c *Core) Snapshot() (*Snapshot, LoadState) {
	return c.snapshot.Load(), *c.state.Load()
}

// Clock 当前时刻 slot 对应的关门时间看板
func (c *Core) Clock(slot int) ClockState {
	return ClockAt(c.Config(), c.now(), slot)
}

// CategoryStarts 当前配置下各分组的绝对起跑时间
func (c *Core) CategoryStarts() []CategoryStart {
	return CategoryStarts(c.Config(), c.now())
}

// Trigger 请求尽快重新计算，不阻塞
func (c *Core) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// RefreshConfig 从存储加载配置，内容变化时版本号加一
func (c *Core) RefreshConfig(ctx context.Context) (*EventConfig, error) {
	next, err := c.loadConfig(ctx)
	if err != nil {
		configErrors.Inc()
		return c.Config(), err
	}

	c.configMu.Lock()
	defer c.configMu.Unlock()
	cur := c.config.Load()
	if cur.sameContent(next) {
		return cur, nil
	}
	next.Version = cur.Version + 1
	c.config.Store(next)
	c.Trigger()
	configVersion.Set(float64(next.Version))
	slog.InfoContext(ctx, "event config changed",
		"version", next.Version,
		"cutoff_ms", next.CutoffMs,
		"event_date", next.EventDate,
		"disqualified", len(next.Disqualified))
	return next, nil
}

func (c *Core) loadConfig(ctx context.Context) (*EventConfig, error) {
	cfg := c.defaultConfig()

	var settings []*Setting
	if err := c.store.Setting().Find(ctx, &settings); err != nil {
		return nil, reason.ErrDB.Withf(`Find settings err[%s]`, err.Error())
	}
	for _, s := range settings {
		switch s.Name {
		case SettingCutoff:
			cfg.CutoffRaw = strings.TrimSpace(s.Value)
			cfg.CutoffMs, _ = ParseCutoff(cfg.CutoffRaw)
		case SettingEventDate:
			if _, ok := racetime.ParseDate(s.Value, c.location); ok {
				cfg.EventDate = s.Value
			}
		}
	}

	var starts []*CategoryStartTime
	if err := c.store.CategoryStartTime().Find(ctx, &starts); err != nil {
		return nil, reason.ErrDB.Withf(`Find category starts err[%s]`, err.Error())
	}
	for _, s := range starts {
		if raw := strings.TrimSpace(s.Raw); raw != "" {
			cfg.CategoryStarts[s.CategoryKey] = raw
		}
	}

	var dqs []*Disqualification
	if err := c.store.Disqualification().Find(ctx, &dqs); err != nil {
		return nil, reason.ErrDB.Withf(`Find disqualifications err[%s]`, err.Error())
	}
	for _, d := range dqs {
		cfg.Disqualified[d.EPC] = true
	}
	return cfg, nil
}

// Recompute 拉取数据并重新计算，成功后原子替换快照
// 失败时保留上一次的快照；首次加载失败会体现在 LoadState 中
func (c *Core) Recompute(ctx context.Context) (*Snapshot, error) {
	c.computeMu.Lock()
	defer c.computeMu.Unlock()

	begin := time.Now()
	now := c.now()
	cfg := c.Config()

	feed, err := c.source.Fetch(ctx, cfg.Parser(now))
	if err != nil {
		recomputeTotal.WithLabelValues("error").Inc()
		if !c.loaded.Load() {
			c.state.Store(&LoadState{Status: LoadStatusError, Msg: err.Error(), LastError: err.Error(), UpdatedAt: now})
		} else {
			prev := *c.state.Load()
			prev.LastError = err.Error()
			c.state.Store(&prev)
		}
		slog.WarnContext(ctx, "recompute failed, keep previous snapshot", "err", err, "loaded", c.loaded.Load())
		return c.snapshot.Load(), err
	}

	snap := Compute(Input{Feed: feed, Config: cfg, Now: now})
	snap.ID = uuid.NewString()
	snap.Version = c.version.Add(1)
	snap.ComputedAt = now
	c.snapshot.Store(snap)
	c.loaded.Store(true)
	c.state.Store(&LoadState{Status: LoadStatusReady, Msg: "ok", UpdatedAt: now})

	recomputeTotal.WithLabelValues("ok").Inc()
	recomputeSeconds.Observe(time.Since(begin).Seconds())
	observeSnapshot(snap)
	slog.DebugContext(ctx, "leaderboard recomputed",
		"version", snap.Version,
		"config_version", snap.ConfigVersion,
		"rows", len(snap.Overall),
		"cost", time.Since(begin))
	return snap, nil
}
