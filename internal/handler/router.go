package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/disneydex/internal/disneyapi"
	"github.com/hitoshi/disneydex/internal/metrics"
	"github.com/hitoshi/disneydex/internal/middleware"
	"github.com/hitoshi/disneydex/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// 画面
	Sessions  SessionProvider
	Sanitizer security.TextSanitizerService

	// 詳細画面とJSON API
	Source   disneyapi.CharacterSource
	PageSize int

	// nilの場合は詳細画面の破棄結果を記録しない
	Metrics metrics.MetricsCollector

	// ミドルウェア依存
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	CookieSecure      bool
	CookieDomain      string
	SessionMaxAge     int

	// nilの場合は/metricsを公開しない
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	全体:     Recovery → RequestID → SecurityHeaders
//	画面:     RateLimit → ViewSession → Logging → CSRF
//	JSON API: Logging → CORS → RateLimit
//
// /health と /metrics はログ・レート制限の対象外。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())

	pageHandler := NewPageHandler(deps.Sessions, deps.Source, deps.Sanitizer, deps.Metrics, logger)
	apiHandler := NewAPIHandler(deps.Source, deps.Sanitizer, deps.PageSize)

	// --- 運用エンドポイント ---
	r.Get("/health", Health)
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 画面 ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}
		r.Use(middleware.NewViewSessionMiddleware(middleware.ViewSessionConfig{
			CookieSecure: deps.CookieSecure,
			CookieDomain: deps.CookieDomain,
			MaxAge:       deps.SessionMaxAge,
		}))
		r.Use(middleware.NewLoggingMiddleware(logger))
		r.Use(middleware.NewCSRFMiddleware(middleware.CSRFConfig{
			CookieSecure: deps.CookieSecure,
			CookieDomain: deps.CookieDomain,
		}))

		r.Get("/", pageHandler.List)
		r.Post("/search", pageHandler.Search)
		r.Post("/show-all", pageHandler.ShowAll)
		r.Post("/page/next", pageHandler.NextPage)
		r.Post("/page/prev", pageHandler.PreviousPage)
		r.Get("/character/{id}", pageHandler.Detail)
	})

	// --- JSON API ---
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewLoggingMiddleware(logger))
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Get("/characters", apiHandler.ListCharacters)
		r.Get("/characters/{id}", apiHandler.GetCharacter)
	})

	return r
}
