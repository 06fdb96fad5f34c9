package api

import (
	"github.com/gin-gonic/gin"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
	"github.com/iztrace/leaderboard/internal/core/leaderboard"
)

// AdminAPI 后台配置接口，需登录
type AdminAPI struct {
	core *leaderboard.Core
}

func NewAdminAPI(core *leaderboard.Core) AdminAPI {
	return AdminAPI{core: core}
}

func RegisterAdmin(g gin.IRouter, api AdminAPI, handler ...gin.HandlerFunc) {
	group := g.Group("/admin", handler...)
	group.GET("/config", web.WrapH(api.getConfig))
	group.PUT("/cutoff", web.WrapH(api.setCutoff))
	group.PUT("/event-date", web.WrapH(api.setEventDate))
	group.PUT("/category-starts/:key", web.WrapH(api.setCategoryStart))
	group.GET("/runners", web.WrapH(api.findRunners))
	group.PUT("/disqualifications/:epc", web.WrapH(api.toggleDisqualification))
	group.POST("/recompute", web.WrapH(api.recompute))
}

func (a AdminAPI) getConfig(_ *gin.Context, _ *struct{}) (*leaderboard.AdminConfigOutput, error) {
	return a.core.AdminConfig(), nil
}

func (a AdminAPI) setCutoff(c *gin.Context, in *leaderboard.SetCutoffInput) (*leaderboard.AdminConfigOutput, error) {
	return a.core.SetCutoff(c.Request.Context(), in)
}

func (a AdminAPI) setEventDate(c *gin.Context, in *leaderboard.SetEventDateInput) (*leaderboard.AdminConfigOutput, error) {
	return a.core.SetEventDate(c.Request.Context(), in)
}

func (a AdminAPI) setCategoryStart(c *gin.Context, in *leaderboard.SetCategoryStartInput) (*leaderboard.AdminConfigOutput, error) {
	return a.core.SetCategoryStart(c.Request.Context(), c.Param("key"), in)
}

func (a AdminAPI) findRunners(_ *gin.Context, in *leaderboard.FindRunnersInput) (gin.H, error) {
	items, err := a.core.FindRunners(in)
	if err != nil {
		return nil, err
	}
	return gin.H{"items": items, "total": len(items)}, nil
}

func (a AdminAPI) toggleDisqualification(c *gin.Context, _ *struct{}) (*leaderboard.ToggleDisqualificationOutput, error) {
	return a.core.ToggleDisqualification(c.Request.Context(), c.Param("epc"))
}

type recomputeOutput struct {
	SnapshotID string `json:"snapshot_id"`
	Version    uint64 `json:"version"`
}

// recompute 立即拉取数据并计算
func (a AdminAPI) recompute(c *gin.Context, _ *struct{}) (*recomputeOutput, error) {
	if _, err := a.core.RefreshConfig(c.Request.Context()); err != nil {
		return nil, reason.ErrDB.Withf(`refresh config err[%s]`, err.Error())
	}
	snap, err := a.core.Recompute(c.Request.Context())
	if err != nil {
		return nil, reason.ErrServer.SetMsg(err.Error())
	}
	return &recomputeOutput{SnapshotID: snap.ID, Version: snap.Version}, nil
}
