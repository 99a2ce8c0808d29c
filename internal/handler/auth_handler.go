package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/zenport/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// BeginAuthorization はサブドメインを記録し認可URLを返す。
	BeginAuthorization(subdomain string) (string, error)
	// CompleteAuthorization は認可コードをアクセストークンに交換して永続化する。
	CompleteAuthorization(ctx context.Context, code string) (string, error)
}

// CallbackEnricher はコールバック応答に含めるプロフィールと記事の取得インターフェース。
// article.Serviceが満たす。
type CallbackEnricher interface {
	Profile(ctx context.Context) (*model.Profile, error)
	ListPage(ctx context.Context, page int, query, sortBy, sortOrder string) (*model.ArticlePage, error)
}

// AuthHandler はZendesk OAuth認証のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	enricher CallbackEnricher
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, enricher CallbackEnricher) *AuthHandler {
	return &AuthHandler{
		service:  service,
		enricher: enricher,
	}
}

// callbackResponse はOAuthコールバックの応答ボディ。
type callbackResponse struct {
	Profile  *model.Profile     `json:"profile"`
	Articles *model.ArticlePage `json:"articles"`
}

// Begin はZendesk OAuthフローを開始する。
// GET /zendesk/auth?subdomain=xxx
func (h *AuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	subdomain := r.URL.Query().Get("subdomain")

	authURL, err := h.service.BeginAuthorization(subdomain)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback はOAuthコールバックを処理する。
// トークン交換後、プロフィールと記事一覧の先頭ページを返す。
// GET /zendesk/oauth/callback?code=xxx
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		handleServiceError(w, model.NewAuthExchangeFailedError("認可コードがありません"))
		return
	}

	if _, err := h.service.CompleteAuthorization(r.Context(), code); err != nil {
		handleServiceError(w, err)
		return
	}

	profile, err := h.enricher.Profile(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 記事の取得失敗は認証の成功を妨げない。記事はnullで返す。
	articles, err := h.enricher.ListPage(r.Context(), 1, "", "", "")
	if err != nil {
		slog.Warn("initial article fetch failed after authorization",
			slog.String("error", err.Error()),
		)
		articles = nil
	}

	writeJSON(w, http.StatusOK, callbackResponse{
		Profile:  profile,
		Articles: articles,
	})
}
