package leaderboard

import (
	"context"

	"github.com/ixugo/goddd/pkg/orm"
)

const (
	SettingCutoff    = "cutoff"     // 关门时长，<=48 为小时，否则为毫秒
	SettingEventDate = "event_date" // YYYY-MM-DD
)

// Setting 键值配置
type Setting struct {
	Name      string   `gorm:"primaryKey;column:name" json:"name"`
	Value     string   `gorm:"column:value;notNull;default:''" json:"value"`
	UpdatedAt orm.Time `gorm:"column:updated_at;notNull;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (*Setting) TableName() string {
	return "settings"
}

// CategoryStartTime 分组起跑时间覆盖，Raw 可以是带日期的时间或仅时间
type CategoryStartTime struct {
	CategoryKey string   `gorm:"primaryKey;column:category_key" json:"category_key"`
	Raw         string   `gorm:"column:raw;notNull;default:''" json:"raw"`
	UpdatedAt   orm.Time `gorm:"column:updated_at;notNull;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (*CategoryStartTime) TableName() string {
	return "category_start_times"
}

// Disqualification 人工取消成绩
type Disqualification struct {
	EPC       string   `gorm:"primaryKey;column:epc" json:"epc"`
	Bib       string   `gorm:"column:bib;notNull;default:''" json:"bib"`
	Name      string   `gorm:"column:name;notNull;default:''" json:"name"`
	CreatedAt orm.Time `gorm:"column:created_at;notNull;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (*Disqualification) TableName() string {
	return "disqualifications"
}

// TableStorer 单表存取
type TableStorer[T any] interface {
	Find(context.Context, *[]*T, ...orm.QueryOption) error
	Get(context.Context, *T, ...orm.QueryOption) error
	// Upsert 按主键写入，已存在则覆盖
	Upsert(context.Context, *T) error
	Del(context.Context, *T, ...orm.QueryOption) error
}

type (
	SettingStorer           = TableStorer[Setting]
	CategoryStartTimeStorer = TableStorer[CategoryStartTime]
	DisqualificationStorer  = TableStorer[Disqualification]
)

// Storer 后台配置持久化
type Storer interface {
	Setting() SettingStorer
	CategoryStartTime() CategoryStartTimeStorer
	Disqualification() DisqualificationStorer
}
