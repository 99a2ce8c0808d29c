package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/zenport/internal/metrics"
	"github.com/hitoshi/zenport/internal/middleware"
	"github.com/hitoshi/zenport/internal/model"
)

// pingFunc はHealthCheckerを関数で満たすアダプタ。
type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// newTestRouter はモック依存で構成したルーターとレートリミッターを返す。
func newTestRouter(t *testing.T, healthErr error) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(100),
		GeneralBurst:    100,
		LLMRate:         rate.Limit(100),
		LLMBurst:        100,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	deps := &RouterDeps{
		Logger:          slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)),
		RateLimiter:     rl,
		HealthChecker:   pingFunc(func(ctx context.Context) error { return healthErr }),
		MetricsGatherer: reg,
		LLMMetrics:      collector,

		AuthService: &mockAuthService{
			beginFunc: func(subdomain string) (string, error) {
				return "https://acme.zendesk.com/oauth/authorizations/new", nil
			},
			completeFunc: func(ctx context.Context, code string) (string, error) {
				return "tok-1", nil
			},
		},
		CallbackEnricher: &mockEnricher{
			profileFunc: func(ctx context.Context) (*model.Profile, error) {
				return &model.Profile{Name: "山田太郎"}, nil
			},
			listPageFunc: func(ctx context.Context, page int, query, sortBy, sortOrder string) (*model.ArticlePage, error) {
				return &model.ArticlePage{}, nil
			},
		},
		ArticleService: &mockArticleService{
			listPageFunc: func(ctx context.Context, page int, query, sortBy, sortOrder string) (*model.ArticlePage, error) {
				return &model.ArticlePage{Articles: []model.Article{{"id": "1"}}}, nil
			},
			searchPageFunc: func(ctx context.Context, page int, query, sortBy, sortOrder string) (*model.ArticlePage, error) {
				return &model.ArticlePage{}, nil
			},
			listAllFunc: func(ctx context.Context, query string, limit *int) (*model.ArticlePage, error) {
				return &model.ArticlePage{}, nil
			},
			getFunc: func(ctx context.Context, articleID string) (model.Article, error) {
				return model.Article{"id": articleID}, nil
			},
			pushFunc: func(ctx context.Context, articleID, locale, title, body string, create bool) error {
				return nil
			},
		},
		ReviseService: &mockReviseService{
			reviseFunc: func(ctx context.Context, articleBody, userPrompt string) (string, error) {
				return "revised", nil
			},
			translateFunc: func(ctx context.Context, title, language string) (string, error) {
				return "translated", nil
			},
		},
		ExportService: &mockExportService{
			buildFunc: func(ctx context.Context, query string, limit *int) (string, []byte, error) {
				return "articles.csv", []byte("id\n"), nil
			},
			sendFunc: func(ctx context.Context, to, query string, limit *int) (string, error) {
				return "articles.csv", nil
			},
		},
	}

	return NewRouter(deps)
}

// TestRouter_Health はDB疎通状態に応じた/healthの応答を検証する。
func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name       string
		healthErr  error
		wantStatus int
	}{
		{"正常時は200", nil, http.StatusOK},
		{"DB障害時は503", errors.New("connection refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, tt.healthErr)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

// TestRouter_MetricsEndpoint は/metricsがPrometheus形式で応答することを検証する。
func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "zenport_") {
		t.Error("metrics response should contain zenport_ series")
	}
}

// TestRouter_RouteDispatch は主要ルートが正しいハンドラーに到達することを検証する。
func TestRouter_RouteDispatch(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{http.MethodGet, "/zendesk/auth?subdomain=acme", "", http.StatusFound},
		{http.MethodGet, "/zendesk/oauth/callback?code=abc", "", http.StatusOK},
		{http.MethodGet, "/api/articles", "", http.StatusOK},
		{http.MethodGet, "/api/articles/search?query=x", "", http.StatusOK},
		{http.MethodGet, "/api/articles/all", "", http.StatusOK},
		{http.MethodGet, "/api/articles/1001", "", http.StatusOK},
		{http.MethodPut, "/api/articles/1001/translations/ja", `{"title":"t","body":"b"}`, http.StatusOK},
		{http.MethodPost, "/api/articles/1001/translations/ja", `{"title":"t","body":"b"}`, http.StatusCreated},
		{http.MethodPost, "/api/revise", `{"article_body":"a","prompt":"p"}`, http.StatusOK},
		{http.MethodPost, "/api/translate-title", `{"title":"t","language":"English"}`, http.StatusOK},
		{http.MethodGet, "/api/export/csv", "", http.StatusOK},
		{http.MethodPost, "/api/export/mail", `{"to":"user@example.com"}`, http.StatusOK},
		{http.MethodGet, "/no/such/route", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}
