package leaderboard

import "time"

// ViewInput 榜单查询参数
type ViewInput struct {
	Limit  int    `form:"top"`    // 0 表示全部
	Gender string `form:"gender"` // 按性别过滤，不区分大小写
}

// ViewOutput 榜单
type ViewOutput struct {
	SnapshotID    string      `json:"snapshot_id"`
	Version       uint64      `json:"version"`
	ConfigVersion uint64      `json:"config_version"`
	ComputedAt    time.Time   `json:"computed_at"`
	Category      string      `json:"category,omitempty"`
	Total         int         `json:"total"`
	Items         []ResultRow `json:"items"`
}

// CategoryItem 分组概要
type CategoryItem struct {
	Key       string `json:"key"`
	Total     int    `json:"total"`
	Finishers int    `json:"finishers"`
	DNF       int    `json:"dnf"`
	DSQ       int    `json:"dsq"`
}

// RunnerDetail 单个选手的成绩明细
type RunnerDetail struct {
	ResultRow
	Ranks       Ranks    `json:"ranks"`
	Checkpoints []string `json:"checkpoints"`
}

// FindRunnersInput 后台按号码或姓名搜索
type FindRunnersInput struct {
	Q     string `form:"q"`
	Limit int    `form:"limit"`
}

// RunnerItem 后台搜索结果
type RunnerItem struct {
	EPC          string `json:"epc"`
	Bib          string `json:"bib"`
	Name         string `json:"name"`
	Gender       string `json:"gender"`
	Category     string `json:"category"`
	Display      string `json:"display"`
	Status       Status `json:"status"`
	Disqualified bool   `json:"disqualified"`
}

// SetCutoffInput 关门时长，单位小时，空或非正数表示关闭
type SetCutoffInput struct {
	Hours *float64 `json:"hours"`
}

// SetCategoryStartInput 分组起跑时间，空字符串表示清除
type SetCategoryStartInput struct {
	Raw string `json:"raw"`
}

// SetEventDateInput 比赛日期 YYYY-MM-DD，空字符串表示清除
type SetEventDateInput struct {
	Date string `json:"date"`
}

// ToggleDisqualificationOutput 切换后的状态
type ToggleDisqualificationOutput struct {
	EPC          string `json:"epc"`
	Disqualified bool   `json:"disqualified"`
}

// CategoryStartItem 后台展示的分组起跑设置
type CategoryStartItem struct {
	Key     string `json:"key"`
	Raw     string `json:"raw"`
	StartMs *int64 `json:"start_ms"` // 解析失败为 nil
}

// AdminConfigOutput 后台配置总览
type AdminConfigOutput struct {
	Version        uint64              `json:"version"`
	CutoffMs       int64               `json:"cutoff_ms"`
	CutoffHours    float64             `json:"cutoff_hours"`
	EventDate      string              `json:"event_date"`
	BaseDate       string              `json:"base_date"`
	CategoryStarts []CategoryStartItem `json:"category_starts"`
	Disqualified   []*Disqualification `json:"disqualified"`
}
