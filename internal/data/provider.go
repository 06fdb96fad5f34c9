package data

import (
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/wire"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/system"
	"github.com/iztrace/leaderboard/internal/conf"
	"github.com/iztrace/leaderboard/internal/core/leaderboard"
	"github.com/iztrace/leaderboard/internal/core/leaderboard/store/leaderboarddb"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(SetupDB, NewLeaderboardStore)

// SetupDB 按 Dsn 选择数据库，sqlite 只允许单连接写入
func SetupDB(c *conf.Bootstrap) (*gorm.DB, error) {
	cfg := c.Data.Database
	dial, isSQLite := getDialector(cfg.Dsn)
	if isSQLite {
		cfg.MaxIdleConns = 1
		cfg.MaxOpenConns = 1
	}
	return orm.New(dial, orm.Config{
		MaxIdleConns:    int(cfg.MaxIdleConns),
		MaxOpenConns:    int(cfg.MaxOpenConns),
		ConnMaxLifetime: cfg.ConnMaxLifetime.Duration(),
		SlowThreshold:   cfg.SlowThreshold.Duration(),
	})
}

// NewLeaderboardStore 后台配置表，按开关自动迁移
func NewLeaderboardStore(db *gorm.DB) leaderboard.Storer {
	return leaderboarddb.NewDB(db).AutoMigrate(orm.GetEnabledAutoMigrate())
}

// getDialector 返回 dial 和 是否 sqlite
func getDialector(dsn string) (gorm.Dialector, bool) {
	switch {
	case strings.HasPrefix(dsn, "postgres"):
		return postgres.New(postgres.Config{
			DriverName: "pgx",
			DSN:        dsn,
		}), false
	case strings.HasPrefix(dsn, "mysql"):
		return mysql.Open(dsn), false
	default:
		return sqlite.Open(sqlitePath(dsn)), true
	}
}

// sqlitePath 相对路径基于工作目录，绝对路径和 file: 形式保持不变
func sqlitePath(dsn string) string {
	if filepath.IsAbs(dsn) || strings.HasPrefix(dsn, "file:") || dsn == ":memory:" {
		return dsn
	}
	return filepath.Join(system.Getwd(), dsn)
}
