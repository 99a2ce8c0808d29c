package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/zenport/internal/metrics"
	"github.com/hitoshi/zenport/internal/middleware"
)

// HealthChecker はDB接続確認のインターフェース。sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger      *slog.Logger
	RateLimiter *middleware.RateLimiter

	HealthChecker   HealthChecker
	MetricsGatherer prometheus.Gatherer
	LLMMetrics      LLMMetricsRecorder

	AuthService      AuthServiceInterface
	CallbackEnricher CallbackEnricher
	ArticleService   ArticleServiceInterface
	ReviseService    ReviseServiceInterface
	ExportService    ExportServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	authHandler := NewAuthHandler(deps.AuthService, deps.CallbackEnricher)
	articleHandler := NewArticleHandler(deps.ArticleService)
	reviseHandler := NewReviseHandler(deps.ReviseService, deps.LLMMetrics)
	exportHandler := NewExportHandler(deps.ExportService)

	// --- 監視系ルート（レート制限なし） ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := deps.HealthChecker.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsGatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.MetricsGatherer).ServeHTTP)
	}

	// --- OAuthフロー ---

	r.Route("/zendesk", func(r chi.Router) {
		r.Get("/auth", authHandler.Begin)
		r.Get("/oauth/callback", authHandler.Callback)
	})

	// --- 記事API ---
	// ミドルウェアスタック: RateLimit(General)、LLM系は追加でRateLimit(LLM)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/articles", func(r chi.Router) {
			r.Get("/", articleHandler.List)
			r.Get("/search", articleHandler.Search)
			r.Get("/all", articleHandler.ListAll)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", articleHandler.Get)
				r.Put("/translations/{locale}", articleHandler.UpdateTranslation)
				r.Post("/translations/{locale}", articleHandler.CreateTranslation)
			})
		})

		// LLM呼び出しは専用の厳しいレート制限を追加する
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.LLMMiddleware())
			r.Post("/api/revise", reviseHandler.Revise)
			r.Post("/api/translate-title", reviseHandler.TranslateTitle)
		})

		r.Route("/api/export", func(r chi.Router) {
			r.Get("/csv", exportHandler.DownloadCSV)
			r.Post("/mail", exportHandler.SendMail)
		})
	})

	return r
}
