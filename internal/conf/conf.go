package conf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Bootstrap 应用配置根节点
type Bootstrap struct {
	Debug        bool   `toml:"-"`
	BuildVersion string `toml:"-"`
	ConfigPath   string `toml:"-"`

	Server Server `toml:"Server"`
	Data   Data   `toml:"Data"`
	Log    Log    `toml:"Log"`
	Event  Event  `toml:"Event"`
	Feed   Feed   `toml:"Feed"`
}

type Server struct {
	Debug    bool   `toml:"Debug" comment:"调试模式，输出请求体日志"`
	Username string `toml:"Username" comment:"管理员账号"`
	Password string `toml:"Password" comment:"管理员密码"`
	HTTP     HTTP   `toml:"HTTP"`
}

type HTTP struct {
	Port      int      `toml:"Port"`
	Timeout   Duration `toml:"Timeout"`
	JwtSecret string   `toml:"JwtSecret"`
	PProf     PProf    `toml:"PProf"`
}

type PProf struct {
	Enabled   bool     `toml:"Enabled"`
	AccessIps []string `toml:"AccessIps"`
}

type Data struct {
	Database Database `toml:"Database"`
}

type Database struct {
	Dsn             string   `toml:"Dsn" comment:"postgres://... | mysql://... | 其它视为 sqlite 文件路径"`
	MaxIdleConns    int32    `toml:"MaxIdleConns"`
	MaxOpenConns    int32    `toml:"MaxOpenConns"`
	ConnMaxLifetime Duration `toml:"ConnMaxLifetime"`
	SlowThreshold   Duration `toml:"SlowThreshold"`
}

type Log struct {
	Dir        string `toml:"Dir"`
	Level      string `toml:"Level" comment:"debug/info/warn/error"`
	MaxSize    int    `toml:"MaxSize" comment:"单个日志文件大小(MB)"`
	MaxAge     int    `toml:"MaxAge" comment:"保留天数"`
	MaxBackups int    `toml:"MaxBackups"`
}

// Event 赛事配置
type Event struct {
	Name     string `toml:"Name"`
	Timezone string `toml:"Timezone" comment:"IANA 时区，如 Asia/Jakarta，空值使用系统时区"`
	// EventDate 比赛日期 YYYY-MM-DD，仅作为 time-only 时间的默认日期，后台设置优先
	EventDate          string   `toml:"EventDate"`
	RefreshInterval    Duration `toml:"RefreshInterval" comment:"成绩重新计算间隔"`
	ConfigPollInterval Duration `toml:"ConfigPollInterval" comment:"后台配置轮询间隔"`
	ClockRotate        Duration `toml:"ClockRotate" comment:"关门时间看板切换分组的间隔"`
	TopN               int      `toml:"TopN"`
}

// Feed 计时数据来源
type Feed struct {
	Kind           string     `toml:"Kind" comment:"sheets | file"`
	BaseURL        string     `toml:"BaseURL" comment:"已发布的 Google 表格地址"`
	Dir            string     `toml:"Dir" comment:"Kind=file 时的 csv 目录"`
	Timeout        Duration   `toml:"Timeout"`
	StartGID       int64      `toml:"StartGID"`
	FinishGID      int64      `toml:"FinishGID"`
	CheckpointGID  int64      `toml:"CheckpointGID"`
	StartFile      string     `toml:"StartFile"`
	FinishFile     string     `toml:"FinishFile"`
	CheckpointFile string     `toml:"CheckpointFile"`
	Categories     []Category `toml:"Categories"`
}

// Category 分组，Key 同时作为分组起跑时间覆盖的标识
type Category struct {
	Key  string `toml:"Key"`
	GID  int64  `toml:"GID"`
	File string `toml:"File"`
}

// Location 解析赛事时区
func (e Event) Location() *time.Location {
	if e.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		slog.Warn("invalid event timezone, fallback to local", "timezone", e.Timezone, "err", err)
		return time.Local
	}
	return loc
}

// CategoryKeys 按配置顺序返回分组标识
func (f Feed) CategoryKeys() []string {
	out := make([]string, 0, len(f.Categories))
	for _, c := range f.Categories {
		out = append(out, c.Key)
	}
	return out
}

// DefaultConfig 默认配置
func DefaultConfig() Bootstrap {
	return Bootstrap{
		Server: Server{
			Username: "admin",
			Password: "admin",
			HTTP: HTTP{
				Port:    15123,
				Timeout: Duration(60 * time.Second),
				PProf:   PProf{AccessIps: []string{"::1", "127.0.0.1"}},
			},
		},
		Data: Data{
			Database: Database{
				Dsn:             "configs/data.db",
				MaxIdleConns:    10,
				MaxOpenConns:    50,
				ConnMaxLifetime: Duration(6 * time.Hour),
				SlowThreshold:   Duration(200 * time.Millisecond),
			},
		},
		Log: Log{
			Dir:        "configs/logs",
			Level:      "info",
			MaxSize:    20,
			MaxAge:     7,
			MaxBackups: 10,
		},
		Event: Event{
			Name:               "Race Timing",
			RefreshInterval:    Duration(30 * time.Second),
			ConfigPollInterval: Duration(2 * time.Second),
			ClockRotate:        Duration(20 * time.Second),
			TopN:               10,
		},
		Feed: Feed{
			Kind:    "sheets",
			Timeout: Duration(10 * time.Second),
		},
	}
}

// SetupConfig 读取配置文件，文件不存在时写入默认配置
func SetupConfig(path string) (Bootstrap, error) {
	bc := DefaultConfig()
	bc.ConfigPath = path

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return bc, err
		}
		if err := WriteConfig(&bc, path); err != nil {
			return bc, err
		}
		return bc, nil
	}
	if err := toml.Unmarshal(b, &bc); err != nil {
		return bc, fmt.Errorf("parse config %s: %w", path, err)
	}
	bc.ConfigPath = path
	if bc.Event.Timezone != "" {
		if _, err := time.LoadLocation(bc.Event.Timezone); err != nil {
			return bc, fmt.Errorf("config %s: Event.Timezone: %w", path, err)
		}
	}
	return bc, nil
}

// WriteConfig 写回配置文件
func WriteConfig(bc *Bootstrap, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := toml.Marshal(bc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
