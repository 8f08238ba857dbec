//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"verity/internal"
	"verity/internal/content"
	"verity/internal/controllers"
	"verity/internal/ledger"
	"verity/internal/lifecycle"
	"verity/internal/providers"
	"verity/internal/reputation"
	"verity/internal/scorer"
	"verity/internal/services"
	"verity/internal/store"
	"verity/internal/structures"
	"verity/internal/syncer"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewCacheProvider,
		providers.NewMetricsProvider,

		ledger.NewClient,
		wire.Bind(new(ledger.Gateway), new(*ledger.Client)),
		ledger.NewSubscriber,
		wire.Bind(new(syncer.EventSourceInterface), new(*ledger.Subscriber)),
		content.NewClient,
		wire.Bind(new(content.ClientInterface), new(*content.Client)),
		scorer.NewDefaultChain,

		store.NewStore,
		reputation.NewService,
		syncer.NewSyncer,
		syncer.NewScheduler,
		lifecycle.NewService,
		services.NewQueryService,

		controllers.NewArticleController,
		controllers.NewValidatorController,
		controllers.NewSyncController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
