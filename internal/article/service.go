// Package article はヘルプセンター記事の取得と更新のビジネスロジックを提供する。
package article

import (
	"context"
	"strings"

	"github.com/hitoshi/zenport/internal/model"
	"github.com/hitoshi/zenport/internal/session"
	"github.com/hitoshi/zenport/internal/zendesk"
)

// 一覧と検索のデフォルトソート。検索は関連度順、一覧は更新日時の昇順。
const (
	defaultListSortBy    = "updated_at"
	defaultListSortOrder = "asc"

	defaultSearchSortBy    = "relevance"
	defaultSearchSortOrder = "desc"
)

// TokenSource は認証済みアクセストークンの取得元。auth.Serviceが満たす。
type TokenSource interface {
	CurrentToken(ctx context.Context) (string, error)
}

// Sanitizer は記事本文のサニタイズ機能。security.ArticleSanitizerServiceを満たす。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// FetchClient は記事取得クライアントのインターフェース。zendesk.Clientが満たす。
type FetchClient interface {
	ArticlesEndpoint(subdomain string) string
	SearchEndpoint(subdomain string) string
	FetchAllPages(ctx context.Context, endpoint, token string, opts zendesk.ListOptions) (*model.ArticlePage, error)
	FetchSinglePage(ctx context.Context, endpoint, token string, pageNum int, opts zendesk.ListOptions) (*model.ArticlePage, error)
	GetArticle(ctx context.Context, subdomain, token, articleID string) (model.Article, error)
	UpdateTranslation(ctx context.Context, subdomain, token, articleID, locale, title, body string) error
	CreateTranslation(ctx context.Context, subdomain, token, articleID, locale, title, body string) error
	GetProfile(ctx context.Context, subdomain, token string) (*model.Profile, error)
}

// Service は記事操作のビジネスロジック。
// テナントのサブドメインはセッションコンテキストから、
// アクセストークンはTokenSourceから解決する。
type Service struct {
	client    FetchClient
	tokens    TokenSource
	sess      *session.Context
	sanitizer Sanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(client FetchClient, tokens TokenSource, sess *session.Context, sanitizer Sanitizer) *Service {
	return &Service{
		client:    client,
		tokens:    tokens,
		sess:      sess,
		sanitizer: sanitizer,
	}
}

// resolve はセッションのサブドメインとアクセストークンを解決する。
// サブドメイン未設定の場合はMISSING_SUBDOMAINエラーを返す。
func (s *Service) resolve(ctx context.Context) (subdomain, token string, err error) {
	subdomain = strings.TrimSpace(s.sess.Subdomain())
	if subdomain == "" {
		return "", "", model.NewMissingSubdomainError()
	}
	token, err = s.tokens.CurrentToken(ctx)
	if err != nil {
		return "", "", err
	}
	return subdomain, token, nil
}

// ListPage は記事一覧の指定ページを取得する。
// ソート未指定時は更新日時の昇順になる。
func (s *Service) ListPage(ctx context.Context, page int, query, sortBy, sortOrder string) (*model.ArticlePage, error) {
	subdomain, token, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	opts := zendesk.ListOptions{
		SortBy:    defaultString(sortBy, defaultListSortBy),
		SortOrder: defaultString(sortOrder, defaultListSortOrder),
		Query:     query,
	}
	return s.client.FetchSinglePage(ctx, s.client.ArticlesEndpoint(subdomain), token, page, opts)
}

// SearchPage は記事検索の指定ページを取得する。
// ソート未指定時は関連度の降順になる。
func (s *Service) SearchPage(ctx context.Context, page int, query, sortBy, sortOrder string) (*model.ArticlePage, error) {
	subdomain, token, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	opts := zendesk.ListOptions{
		SortBy:    defaultString(sortBy, defaultSearchSortBy),
		SortOrder: defaultString(sortOrder, defaultSearchSortOrder),
		Query:     query,
	}
	return s.client.FetchSinglePage(ctx, s.client.SearchEndpoint(subdomain), token, page, opts)
}

// ListAll は全ページを走査して記事をまとめて返す。
// queryが指定された場合は検索エンドポイントを使用する。
// limitがnilの場合は無制限、0以下の場合はリクエストを送らず空の結果を返す。
func (s *Service) ListAll(ctx context.Context, query string, limit *int) (*model.ArticlePage, error) {
	subdomain, token, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := s.client.ArticlesEndpoint(subdomain)
	opts := zendesk.ListOptions{
		SortBy:    defaultListSortBy,
		SortOrder: defaultListSortOrder,
		Limit:     limit,
	}
	if query != "" {
		endpoint = s.client.SearchEndpoint(subdomain)
		opts.SortBy = defaultSearchSortBy
		opts.SortOrder = defaultSearchSortOrder
		opts.Query = query
	}

	return s.client.FetchAllPages(ctx, endpoint, token, opts)
}

// Get は記事詳細を取得する。本文はサニタイズされる。
func (s *Service) Get(ctx context.Context, articleID string) (model.Article, error) {
	subdomain, token, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	article, err := s.client.GetArticle(ctx, subdomain, token, articleID)
	if err != nil {
		return nil, err
	}

	if s.sanitizer != nil {
		if body, ok := article["body"].(string); ok {
			article["body"] = s.sanitizer.Sanitize(body)
		}
	}
	return article, nil
}

// PushTranslation は記事の翻訳を作成または更新する。
// createがtrueの場合は新規作成（POST）、falseの場合は既存翻訳の更新（PUT）になる。
func (s *Service) PushTranslation(ctx context.Context, articleID, locale, title, body string, create bool) error {
	subdomain, token, err := s.resolve(ctx)
	if err != nil {
		return err
	}

	if create {
		return s.client.CreateTranslation(ctx, subdomain, token, articleID, locale, title, body)
	}
	return s.client.UpdateTranslation(ctx, subdomain, token, articleID, locale, title, body)
}

// Profile は認証済みユーザーのプロフィールを取得する。
func (s *Service) Profile(ctx context.Context) (*model.Profile, error) {
	subdomain, token, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.GetProfile(ctx, subdomain, token)
}

// defaultString はsが空の場合にfallbackを返す。
func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
