//go:build wireinject

package app

import (
	"net/http"

	"github.com/google/wire"
	"github.com/iztrace/leaderboard/internal/conf"
	"github.com/iztrace/leaderboard/internal/data"
	"github.com/iztrace/leaderboard/internal/web/api"
)

func wireApp(bc *conf.Bootstrap) (http.Handler, func(), error) {
	panic(wire.Build(data.ProviderSet, api.ProviderSet))
}
