package leaderboard

import (
	"time"

	"github.com/iztrace/leaderboard/pkg/racetime"
)

// Status 完赛状态
type Status string

const (
	StatusFinisher Status = "FINISHER"
	StatusDNF      Status = "DNF"
	StatusDSQ      Status = "DSQ"
)

// Participant 报名名单中的选手，EPC 为跨数据源的唯一关联键
type Participant struct {
	EPC               string `json:"epc"`
	Bib               string `json:"bib"`
	Name              string `json:"name"`
	Gender            string `json:"gender"`
	Category          string `json:"category"`            // 展示用分组名
	SourceCategoryKey string `json:"source_category_key"` // 来源分组，决定起跑时间覆盖
}

// Feed 单次拉取的原始计时数据
type Feed struct {
	Participants []Participant
	// Starts 同一 EPC 取最早的起跑时间
	Starts map[string]racetime.Instant
	// Finishes 同一 EPC 取最晚的完赛时间
	Finishes map[string]racetime.Instant
	// Checkpoints 仅用于展示，保持原始顺序
	Checkpoints map[string][]string
}

// ResultRow 成绩行
type ResultRow struct {
	Participant
	FinishRaw  string `json:"finish_raw"`
	FinishTime string `json:"finish_time"` // HH:MM:SS.mmm
	DurationMs int64  `json:"duration_ms"`
	Display    string `json:"display"` // HH:MM:SS / DNF / DSQ
	Status     Status `json:"status"`
	Rank       *int   `json:"rank"`
}

// RankMaps 三个维度的名次，epc -> rank，仅包含完赛选手
type RankMaps struct {
	Overall  map[string]int `json:"overall"`
	Gender   map[string]int `json:"gender"`
	Category map[string]int `json:"category"`
}

// Ranks 单个选手的三个名次，未排名为 nil
type Ranks struct {
	Overall  *int `json:"overall"`
	Gender   *int `json:"gender"`
	Category *int `json:"category"`
}

// Of 查询选手名次
func (r RankMaps) Of(epc string) Ranks {
	lookup := func(m map[string]int) *int {
		if v, ok := m[epc]; ok {
			return &v
		}
		return nil
	}
	return Ranks{
		Overall:  lookup(r.Overall),
		Gender:   lookup(r.Gender),
		Category: lookup(r.Category),
	}
}

// Snapshot 一次计算的完整结果，发布后只读
type Snapshot struct {
	ID            string                 `json:"id"`
	Version       uint64                 `json:"version"`
	ConfigVersion uint64                 `json:"config_version"`
	ComputedAt    time.Time              `json:"computed_at"`
	Categories    []string               `json:"categories"`
	Overall       []ResultRow            `json:"overall"`
	ByCategory    map[string][]ResultRow `json:"by_category"`
	Ranks         RankMaps               `json:"ranks"`
	Checkpoints   map[string][]string    `json:"-"`

	byEPC map[string]int
}

// Row 按 EPC 查询总榜中的成绩行
func (s *Snapshot) Row(epc string) (ResultRow, bool) {
	i, ok := s.byEPC[epc]
	if !ok {
		return ResultRow{}, false
	}
	return s.Overall[i], true
}

// LoadStatus 数据加载状态
type LoadStatus string

const (
	LoadStatusLoading LoadStatus = "loading"
	LoadStatusError   LoadStatus = "error"
	LoadStatusReady   LoadStatus = "ready"
)

// LoadState 首次加载前的错误对外可见，之后失败只记录日志
type LoadState struct {
	Status    LoadStatus `json:"status"`
	Msg       string     `json:"msg"`
	LastError string     `json:"last_error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}
