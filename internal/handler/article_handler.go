package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/zenport/internal/model"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	// ListPage は記事一覧の指定ページを返す。
	ListPage(ctx context.Context, page int, query, sortBy, sortOrder string) (*model.ArticlePage, error)
	// SearchPage は記事検索の指定ページを返す。
	SearchPage(ctx context.Context, page int, query, sortBy, sortOrder string) (*model.ArticlePage, error)
	// ListAll は全ページを走査した記事一覧を返す。limitはnilで無制限。
	ListAll(ctx context.Context, query string, limit *int) (*model.ArticlePage, error)
	// Get は記事詳細をサニタイズ済み本文で返す。
	Get(ctx context.Context, articleID string) (model.Article, error)
	// PushTranslation は記事翻訳を作成または更新する。
	PushTranslation(ctx context.Context, articleID, locale, title, body string, create bool) error
}

// ArticleHandler は記事管理のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface) *ArticleHandler {
	return &ArticleHandler{service: service}
}

// translationRequest は翻訳作成・更新リクエストのボディ。
type translationRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// parsePage はpageクエリパラメータを解釈する。未指定・不正値は1になる。
func parsePage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// parseLimit はlimitクエリパラメータを解釈する。
// 未指定はnil（無制限）、指定時はその値をそのまま返す（0以下も有効な入力）。
func parseLimit(r *http.Request) (*int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return nil, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &limit, nil
}

// List は記事一覧の1ページを取得する。
// GET /api/articles?page=&query=&sort_by=&sort_order=
func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.ListPage(r.Context(), parsePage(r), q.Get("query"), q.Get("sort_by"), q.Get("sort_order"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Search は記事検索の1ページを取得する。
// GET /api/articles/search?query=&page=&sort_by=&sort_order=
func (h *ArticleHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.SearchPage(r.Context(), parsePage(r), q.Get("query"), q.Get("sort_by"), q.Get("sort_order"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListAll は全ページを走査した記事一覧を取得する。
// GET /api/articles/all?query=&limit=
func (h *ArticleHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
		return
	}

	page, err := h.service.ListAll(r.Context(), r.URL.Query().Get("query"), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get は記事詳細を取得する。
// GET /api/articles/{id}
func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "id")

	article, err := h.service.Get(r.Context(), articleID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// UpdateTranslation は記事の既存翻訳を更新する。
// PUT /api/articles/{id}/translations/{locale}
func (h *ArticleHandler) UpdateTranslation(w http.ResponseWriter, r *http.Request) {
	h.pushTranslation(w, r, false)
}

// CreateTranslation は記事に新しい翻訳を追加する。
// POST /api/articles/{id}/translations/{locale}
func (h *ArticleHandler) CreateTranslation(w http.ResponseWriter, r *http.Request) {
	h.pushTranslation(w, r, true)
}

func (h *ArticleHandler) pushTranslation(w http.ResponseWriter, r *http.Request, create bool) {
	articleID := chi.URLParam(r, "id")
	locale := chi.URLParam(r, "locale")

	var req translationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.service.PushTranslation(r.Context(), articleID, locale, req.Title, req.Body, create); err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if create {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]string{
		"article_id": articleID,
		"locale":     locale,
		"status":     "ok",
	})
}
