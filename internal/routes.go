package internal

import (
	"net/http"
	"verity/internal/controllers"
	"verity/internal/providers"
)

func InitRoutes(articles *controllers.ArticleController, validators *controllers.ValidatorController, syncCtrl *controllers.SyncController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/articles", http.HandlerFunc(articles.Submit))
	routers.Get("/articles/get", http.HandlerFunc(articles.Get))
	routers.Get("/articles/list", http.HandlerFunc(articles.List))
	routers.Get("/articles/analysis", http.HandlerFunc(articles.Analysis))
	routers.Post("/articles/vote", http.HandlerFunc(articles.Vote))
	routers.Post("/articles/propose", http.HandlerFunc(articles.Propose))
	routers.Get("/articles/proposal", http.HandlerFunc(articles.GetProposal))
	routers.Get("/articles/proposal/current", http.HandlerFunc(articles.CurrentProposal))
	routers.Post("/articles/proposal/vote", http.HandlerFunc(articles.VoteOnProposal))
	routers.Get("/articles/versions/get", http.HandlerFunc(articles.Version))
	routers.Get("/articles/versions/compare", http.HandlerFunc(articles.CompareVersions))
	routers.Get("/content", http.HandlerFunc(articles.Content))
	routers.Post("/articles/rescore", http.HandlerFunc(articles.Rescore))

	routers.Get("/validators/get", http.HandlerFunc(validators.Get))
	routers.Get("/validators/list", http.HandlerFunc(validators.List))
	routers.Get("/validators/leaderboard", http.HandlerFunc(validators.Leaderboard))
	routers.Post("/validators/recalculate", http.HandlerFunc(validators.Recalculate))

	routers.Post("/sync", http.HandlerFunc(syncCtrl.Trigger))
	return routers
}
