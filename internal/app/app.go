// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/zenport/internal/article"
	"github.com/hitoshi/zenport/internal/auth"
	"github.com/hitoshi/zenport/internal/config"
	"github.com/hitoshi/zenport/internal/database"
	"github.com/hitoshi/zenport/internal/export"
	"github.com/hitoshi/zenport/internal/handler"
	"github.com/hitoshi/zenport/internal/llm"
	"github.com/hitoshi/zenport/internal/logger"
	"github.com/hitoshi/zenport/internal/metrics"
	"github.com/hitoshi/zenport/internal/middleware"
	"github.com/hitoshi/zenport/internal/repository"
	"github.com/hitoshi/zenport/internal/security"
	"github.com/hitoshi/zenport/internal/session"
	"github.com/hitoshi/zenport/internal/zendesk"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "3000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// instrumentedAuthService はauth.Serviceにトークン交換メトリクスを付加する。
type instrumentedAuthService struct {
	svc     *auth.Service
	metrics *metrics.Collector
}

func (s *instrumentedAuthService) BeginAuthorization(subdomain string) (string, error) {
	return s.svc.BeginAuthorization(subdomain)
}

func (s *instrumentedAuthService) CompleteAuthorization(ctx context.Context, code string) (string, error) {
	token, err := s.svc.CompleteAuthorization(ctx, code)
	s.metrics.RecordTokenExchange(err == nil)
	return token, err
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	tokenRepo := repository.NewPostgresTokenRepo(db)

	// 3. セキュリティサービスの初期化
	// テナントURLはユーザー入力のサブドメインから組み立てるため、
	// 外部へのリクエストはすべてSSRFガード付きクライアントで送信する。
	guard := security.NewOutboundGuard()
	safeClient := guard.NewSafeClient(cfg.FetchTimeout)
	sanitizer := security.NewArticleSanitizer()

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. セッションコンテキストとドメインサービスの初期化
	sess := session.NewContext()

	oauthProvider := auth.NewZendeskOAuthProvider(auth.ZendeskOAuthConfig{
		ClientID:     cfg.ZendeskClientID,
		ClientSecret: cfg.ZendeskClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Scope:        cfg.OAuthScope,
	}, safeClient)
	authService := auth.NewService(oauthProvider, tokenRepo, sess, guard)

	zendeskClient := zendesk.NewClient(safeClient, slog.Default(), collector)
	zendeskClient.SetPerPage(cfg.ArticlesPerPage)
	zendeskClient.SetURLValidator(guard)

	articleService := article.NewService(zendeskClient, authService, sess, sanitizer)

	llmClient := llm.NewClient(&http.Client{Timeout: cfg.FetchTimeout}, slog.Default(), cfg.OpenAIAPIKey)

	smtpPort, err := strconv.Atoi(cfg.SMTPPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP_PORT %q: %w", cfg.SMTPPort, err)
	}
	mailer := export.NewSMTPMailer(export.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     smtpPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.ExportMailFrom,
	})
	exportService := export.NewService(articleService, export.NewCSVWriter(sanitizer), mailer, collector, slog.Default())

	// 6. レートリミッターの構築（configはreq/min単位なのでreq/secに変換する）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.LLMRate = rate.Limit(float64(cfg.RateLimitLLM) / 60.0)
	rateLimiterCfg.LLMBurst = cfg.RateLimitLLM
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:          slog.Default(),
		RateLimiter:     rateLimiter,
		HealthChecker:   db,
		MetricsGatherer: registry,
		LLMMetrics:      collector,

		AuthService:      &instrumentedAuthService{svc: authService, metrics: collector},
		CallbackEnricher: articleService,
		ArticleService:   articleService,
		ReviseService:    llmClient,
		ExportService:    exportService,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
