package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/system"
	"github.com/ixugo/goddd/pkg/web"
	"github.com/iztrace/leaderboard/internal/adapter/sheetadapter"
	"github.com/iztrace/leaderboard/internal/conf"
	"github.com/iztrace/leaderboard/internal/core/leaderboard"
	"github.com/iztrace/leaderboard/pkg/gsheet"
	"gorm.io/gorm"
)

// ProviderSet is api providers.
var ProviderSet = wire.NewSet(
	wire.Struct(new(Usecase), "*"),
	NewHTTPHandler,
	NewFeedSource, NewLeaderboardCore,
	NewLeaderboardAPI, NewAdminAPI,
	NewUserAPI,
)

type Usecase struct {
	Conf *conf.Bootstrap
	DB   *gorm.DB
	Core *leaderboard.Core

	LeaderboardAPI LeaderboardAPI
	AdminAPI       AdminAPI
	UserAPI        UserAPI
}

// NewHTTPHandler 生成Gin框架路由内容
func NewHTTPHandler(uc *Usecase) http.Handler {
	cfg := uc.Conf.Server
	if cfg.HTTP.JwtSecret == "" {
		uc.Conf.Server.HTTP.JwtSecret = orm.GenerateRandomString(32)
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	g := gin.New()
	g.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"msg": "route not found"})
	})
	if cfg.HTTP.PProf.Enabled {
		web.SetupPProf(g, &cfg.HTTP.PProf.AccessIps)
	}

	setupRouter(g, uc)
	return g
}

// NewFeedSource 按配置选择在线表格或本地文件
func NewFeedSource(bc *conf.Bootstrap) (leaderboard.Source, error) {
	f := bc.Feed
	var reader sheetadapter.Reader
	switch f.Kind {
	case "", "sheets":
		if f.BaseURL == "" {
			return nil, fmt.Errorf("feed: BaseURL is required for sheets")
		}
		reader = sheetadapter.NewSheetReader(gsheet.NewEngine().SetConfig(gsheet.Config{
			BaseURL: f.BaseURL,
			Timeout: f.Timeout.Duration(),
		}))
	case "file":
		dir := f.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(system.Getwd(), dir)
		}
		reader = sheetadapter.NewFileReader(dir)
	default:
		return nil, fmt.Errorf("feed: unknown kind %q", f.Kind)
	}
	return sheetadapter.NewAdapter(reader, sheetadapter.LayoutFromConf(f)), nil
}

// NewLeaderboardCore 创建成绩核心服务并启动后台计算，cleanup 时停止
func NewLeaderboardCore(store leaderboard.Storer, source leaderboard.Source, bc *conf.Bootstrap) (*leaderboard.Core, func()) {
	core := leaderboard.NewCore(store, source,
		leaderboard.WithLocation(bc.Event.Location()),
		leaderboard.WithCategories(bc.Feed.CategoryKeys()...),
		leaderboard.WithEventDate(bc.Event.EventDate),
		leaderboard.WithIntervals(bc.Event.RefreshInterval.Duration(), bc.Event.ConfigPollInterval.Duration()),
	)
	ctx, cancel := context.WithCancel(context.Background())
	core.Start(ctx)
	return core, cancel
}
