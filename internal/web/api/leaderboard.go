package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
	"github.com/iztrace/leaderboard/internal/conf"
	"github.com/iztrace/leaderboard/internal/core/export"
	"github.com/iztrace/leaderboard/internal/core/leaderboard"
)

// LeaderboardAPI 公开的成绩查询接口
type LeaderboardAPI struct {
	core   *leaderboard.Core
	rotate time.Duration
	topN   int
}

func NewLeaderboardAPI(core *leaderboard.Core, bc *conf.Bootstrap) LeaderboardAPI {
	return LeaderboardAPI{
		core:   core,
		rotate: bc.Event.ClockRotate.Duration(),
		topN:   bc.Event.TopN,
	}
}

func RegisterLeaderboard(g gin.IRouter, api LeaderboardAPI, handler ...gin.HandlerFunc) {
	g.GET("/leaderboard/state", web.WrapH(api.getState))
	g.GET("/clock", web.WrapH(api.getClock))

	ready := make([]gin.HandlerFunc, 0, len(handler)+1)
	ready = append(ready, handler...)
	ready = append(ready, api.requireReady)
	{
		group := g.Group("/leaderboard", ready...)
		group.GET("", web.WrapH(api.getOverall))
		group.GET("/categories", web.WrapH(api.findCategories))
		group.GET("/categories/:key", web.WrapH(api.getCategory))
		group.GET("/export.csv", api.exportCSV)
		group.GET("/export.xlsx", api.exportXLSX)
	}
	g.GET("/participants/:epc", web.WrapHs(api.getParticipant, ready...)...)
}

// requireReady 首次计算成功前返回 503 和加载状态
func (a LeaderboardAPI) requireReady(c *gin.Context) {
	if snap, state := a.core.Snapshot(); snap == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"status": state.Status,
			"msg":    state.Msg,
		})
		return
	}
	c.Next()
}

func (a LeaderboardAPI) getState(_ *gin.Context, _ *struct{}) (leaderboard.LoadState, error) {
	_, state := a.core.Snapshot()
	return state, nil
}

type getOverallOutput struct {
	*leaderboard.ViewOutput
	State leaderboard.LoadState `json:"state"`
}

func (a LeaderboardAPI) getOverall(_ *gin.Context, in *leaderboard.ViewInput) (*getOverallOutput, error) {
	out, err := a.core.Overall(in)
	if err != nil {
		return nil, err
	}
	_, state := a.core.Snapshot()
	return &getOverallOutput{ViewOutput: out, State: state}, nil
}

func (a LeaderboardAPI) findCategories(_ *gin.Context, _ *struct{}) (gin.H, error) {
	items, err := a.core.Categories()
	return gin.H{"items": items, "top": a.topN}, err
}

func (a LeaderboardAPI) getCategory(c *gin.Context, in *leaderboard.ViewInput) (*leaderboard.ViewOutput, error) {
	return a.core.Category(c.Param("key"), in)
}

func (a LeaderboardAPI) getParticipant(c *gin.Context, _ *struct{}) (*leaderboard.RunnerDetail, error) {
	return a.core.Runner(c.Param("epc"))
}

type getClockInput struct {
	Slot *int `form:"slot"`
}

// getClock 未指定 slot 时按轮换间隔计算当前分组
func (a LeaderboardAPI) getClock(_ *gin.Context, in *getClockInput) (leaderboard.ClockState, error) {
	slot := leaderboard.RotationSlot(a.core.Now(), a.rotate)
	if in.Slot != nil {
		slot = *in.Slot
	}
	return a.core.Clock(slot), nil
}

// exportRows 按 category 参数选择导出范围，为空时导出总榜
func (a LeaderboardAPI) exportRows(c *gin.Context) (string, []leaderboard.ResultRow, error) {
	snap, _ := a.core.Snapshot()
	key := c.Query("category")
	if key == "" {
		return "overall", snap.Overall, nil
	}
	rows, ok := snap.ByCategory[key]
	if !ok {
		return "", nil, reason.ErrNotFound.Withf(`category[%s] not found`, key)
	}
	return key, rows, nil
}

func (a LeaderboardAPI) exportCSV(c *gin.Context) {
	name, rows, err := a.exportRows(c)
	if err != nil {
		web.Fail(c, err)
		return
	}
	setAttachment(c, name+".csv", "text/csv; charset=utf-8")
	if err := export.WriteCSV(c.Writer, rows); err != nil {
		slog.ErrorContext(c.Request.Context(), "export csv", "err", err)
	}
}

func (a LeaderboardAPI) exportXLSX(c *gin.Context) {
	snap, _ := a.core.Snapshot()
	setAttachment(c, "leaderboard.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := export.WriteXLSX(c.Writer, export.Sheets(snap)...); err != nil {
		slog.ErrorContext(c.Request.Context(), "export xlsx", "err", err)
	}
}

func setAttachment(c *gin.Context, filename, contentType string) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename)))
	c.Status(http.StatusOK)
}
