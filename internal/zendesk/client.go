// Package zendesk はZendesk Help Center APIのクライアントを提供する。
// カーソルベースページネーションの全件取得と1ページ取得、記事の個別取得、
// 翻訳の作成・更新、プロフィール取得を含む。
package zendesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/zenport/internal/model"
)

const (
	// defaultBaseURLFormat はテナントのベースURLのフォーマット。%s にはサブドメインが入る。
	defaultBaseURLFormat = "https://%s.zendesk.com"
	// defaultPerPage は1回のリクエストで取得する記事数。
	defaultPerPage = 10
)

// MetricsRecorder はクライアントが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordPageFetched()
	RecordFetchFailure()
	RecordFetchLatency(d time.Duration)
}

// URLValidator は送信前URLの静的検証機能。security.OutboundGuardServiceが満たす。
// サブドメイン由来のURLに加え、APIレスポンスのnext_pageカーソルも
// リモート入力なので、リクエスト発行前に毎回検証する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// ListOptions は記事取得のクエリパラメータを表す。
type ListOptions struct {
	SortBy    string // そのままsort_byとして転送する（ローカルでは解釈しない）
	SortOrder string // そのままsort_orderとして転送する
	// Query は自由テキスト検索。空文字列の場合、URLにqueryパラメータ自体を含めない。
	Query string
	// Limit は累積取得件数の上限。nilは無制限。0以下が明示された場合、
	// ネットワークコールを一切行わず空の結果を返す。
	Limit *int
}

// Client はHelp Center APIのクライアント。
// ページは常に逐次取得する（並行カーソルウォークはAPIのカーソル仕様上行わない）。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    MetricsRecorder // nil可
	validator  URLValidator    // nil可
	perPage    int

	// テスト用にオーバーライド可能なベースURLフォーマット
	baseURLFormat string
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientがnilの場合はhttp.DefaultClientを使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger, metrics MetricsRecorder) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient:    httpClient,
		logger:        logger,
		metrics:       metrics,
		perPage:       defaultPerPage,
		baseURLFormat: defaultBaseURLFormat,
	}
}

// SetPerPage は1ページあたりの取得件数を設定する。
func (c *Client) SetPerPage(n int) {
	if n > 0 {
		c.perPage = n
	}
}

// SetURLValidator はリクエスト発行前のURL検証を有効にする。
func (c *Client) SetURLValidator(v URLValidator) {
	c.validator = v
}

// validateRequestURL は設定済みのバリデーターでURLを検証する。
// バリデーター未設定の場合は常にnilを返す。
func (c *Client) validateRequestURL(rawURL string) error {
	if c.validator == nil {
		return nil
	}
	if err := c.validator.ValidateURL(rawURL); err != nil {
		return fmt.Errorf("blocked request URL: %w", err)
	}
	return nil
}

// ArticlesEndpoint は記事一覧エンドポイントのURLを返す。
func (c *Client) ArticlesEndpoint(subdomain string) string {
	return fmt.Sprintf(c.baseURLFormat, subdomain) + "/api/v2/help_center/articles.json"
}

// SearchEndpoint は記事検索エンドポイントのURLを返す。
func (c *Client) SearchEndpoint(subdomain string) string {
	return fmt.Sprintf(c.baseURLFormat, subdomain) + "/api/v2/help_center/articles/search.json"
}

// pageResponse はページネーションAPIの1ページ分のレスポンス。
// 一覧APIはarticles、検索APIはresultsに記事を格納する。形状は同一。
type pageResponse struct {
	Articles     []model.Article `json:"articles"`
	Results      []model.Article `json:"results"`
	NextPage     *string         `json:"next_page"`
	PreviousPage *string         `json:"previous_page"`
}

// items は一覧・検索どちらの形でも記事リストを返す。
func (p *pageResponse) items() []model.Article {
	if p.Articles != nil {
		return p.Articles
	}
	return p.Results
}

// buildPageURL はページ番号付きのリクエストURLを構築する。
// Queryが空の場合はqueryパラメータ自体を省略する（query= を送らない）。
func (c *Client) buildPageURL(endpoint string, page int, opts ListOptions) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint URL: %w", err)
	}

	q := u.Query()
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("page", strconv.Itoa(page))
	if opts.SortBy != "" {
		q.Set("sort_by", opts.SortBy)
	}
	if opts.SortOrder != "" {
		q.Set("sort_order", opts.SortOrder)
	}
	if opts.Query != "" {
		q.Set("query", opts.Query)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// fetchPage は1ページ分を認証付きGETで取得する。
func (c *Client) fetchPage(ctx context.Context, pageURL, token string) (*pageResponse, error) {
	if err := c.validateRequestURL(pageURL); err != nil {
		if c.metrics != nil {
			c.metrics.RecordFetchFailure()
		}
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordFetchFailure()
		}
		return nil, fmt.Errorf("page request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordFetchLatency(time.Since(start))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordFetchFailure()
		}
		return nil, fmt.Errorf("failed to read page response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if c.metrics != nil {
			c.metrics.RecordFetchFailure()
		}
		return nil, fmt.Errorf("page fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var page pageResponse
	if err := json.Unmarshal(body, &page); err != nil {
		if c.metrics != nil {
			c.metrics.RecordFetchFailure()
		}
		return nil, fmt.Errorf("failed to parse page response: %w", err)
	}

	if c.metrics != nil {
		c.metrics.RecordPageFetched()
	}

	return &page, nil
}

// FetchAllPages はカーソルが尽きるか上限に達するまで全ページを取得し、
// API返却順のまま1つのシーケンスに蓄積して返す。
//
//   - Limitが0以下の場合、ネットワークコールを一切行わず空の結果を返す。
//   - 途中のページ取得が1回でも失敗した場合、部分結果は返さずFETCH_FAILEDを返す。
//   - 上限到達時は結果をちょうどLimit件に切り詰める（最後のページが超過しても
//     要求以上は返さない）。
//
// 戻り値には最後に観測したnext_page / previous_pageカーソルを含む。
func (c *Client) FetchAllPages(ctx context.Context, endpoint, token string, opts ListOptions) (*model.ArticlePage, error) {
	if strings.TrimSpace(token) == "" {
		return nil, model.NewMissingCredentialError()
	}

	if opts.Limit != nil && *opts.Limit <= 0 {
		return &model.ArticlePage{Articles: []model.Article{}}, nil
	}

	cursor, err := c.buildPageURL(endpoint, 1, opts)
	if err != nil {
		return nil, model.NewFetchFailedError(err.Error())
	}

	accumulated := []model.Article{}
	var nextPage, previousPage *string
	pages := 0

	for {
		page, err := c.fetchPage(ctx, cursor, token)
		if err != nil {
			if c.logger != nil {
				c.logger.Error("page fetch aborted",
					slog.String("url", cursor),
					slog.Int("pages_fetched", pages),
					slog.String("error", err.Error()),
				)
			}
			return nil, model.NewFetchFailedError(err.Error())
		}

		pages++
		accumulated = append(accumulated, page.items()...)
		nextPage = page.NextPage
		previousPage = page.PreviousPage

		if nextPage == nil || *nextPage == "" {
			break
		}
		if opts.Limit != nil && len(accumulated) >= *opts.Limit {
			break
		}

		cursor = *nextPage
	}

	if opts.Limit != nil && len(accumulated) > *opts.Limit {
		accumulated = accumulated[:*opts.Limit]
	}

	if c.logger != nil {
		c.logger.Info("pages drained",
			slog.Int("pages", pages),
			slog.Int("articles", len(accumulated)),
		)
	}

	return &model.ArticlePage{
		Articles:     accumulated,
		NextPage:     nextPage,
		PreviousPage: previousPage,
	}, nil
}

// FetchSinglePage は指定ページ番号の1ページのみを取得して返す。
// ループは行わず、ちょうど1リクエストを発行する。
// ページ送りUIのように1ページずつ辿る用途向け。
func (c *Client) FetchSinglePage(ctx context.Context, endpoint, token string, pageNum int, opts ListOptions) (*model.ArticlePage, error) {
	if strings.TrimSpace(token) == "" {
		return nil, model.NewMissingCredentialError()
	}

	if pageNum < 1 {
		pageNum = 1
	}

	pageURL, err := c.buildPageURL(endpoint, pageNum, opts)
	if err != nil {
		return nil, model.NewFetchFailedError(err.Error())
	}

	page, err := c.fetchPage(ctx, pageURL, token)
	if err != nil {
		return nil, model.NewFetchFailedError(err.Error())
	}

	return &model.ArticlePage{
		Articles:     page.items(),
		NextPage:     page.NextPage,
		PreviousPage: page.PreviousPage,
	}, nil
}

// articleResponse は記事個別取得APIのレスポンス。
type articleResponse struct {
	Article model.Article `json:"article"`
}

// GetArticle は記事を1件取得する。
func (c *Client) GetArticle(ctx context.Context, subdomain, token, articleID string) (model.Article, error) {
	if strings.TrimSpace(token) == "" {
		return nil, model.NewMissingCredentialError()
	}

	endpoint := fmt.Sprintf(c.baseURLFormat, subdomain) + "/api/v2/help_center/articles/" + url.PathEscape(articleID) + ".json"
	if err := c.validateRequestURL(endpoint); err != nil {
		return nil, model.NewFetchFailedError(err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, model.NewArticleNotFoundError(articleID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, model.NewFetchFailedError(fmt.Sprintf("article fetch failed with status %d", resp.StatusCode))
	}

	var ar articleResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, model.NewFetchFailedError(fmt.Sprintf("failed to parse article response: %v", err))
	}

	return ar.Article, nil
}

// translationPayload は翻訳作成・更新APIのリクエストボディ。
type translationPayload struct {
	Translation translationBody `json:"translation"`
}

type translationBody struct {
	Locale     string `json:"locale"`
	SourceType string `json:"source_type"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// putTranslation は翻訳リクエストを送信し、期待ステータスを検証する。
func (c *Client) sendTranslation(ctx context.Context, method, endpoint, token string, payload translationPayload, wantStatus int) error {
	if err := c.validateRequestURL(endpoint); err != nil {
		return model.NewTranslationFailedError(err.Error())
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal translation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewTranslationFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return model.NewTranslationFailedError(fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	return nil
}

// UpdateTranslation は既存の記事翻訳を更新する。
func (c *Client) UpdateTranslation(ctx context.Context, subdomain, token, articleID, locale, title, body string) error {
	if strings.TrimSpace(token) == "" {
		return model.NewMissingCredentialError()
	}

	endpoint := fmt.Sprintf(c.baseURLFormat, subdomain) +
		"/api/v2/help_center/articles/" + url.PathEscape(articleID) + "/translations/" + url.PathEscape(locale) + ".json"
	payload := translationPayload{Translation: translationBody{
		Locale:     locale,
		SourceType: "Article",
		Title:      title,
		Body:       body,
	}}

	return c.sendTranslation(ctx, http.MethodPut, endpoint, token, payload, http.StatusOK)
}

// CreateTranslation は記事翻訳を新規作成する。
func (c *Client) CreateTranslation(ctx context.Context, subdomain, token, articleID, locale, title, body string) error {
	if strings.TrimSpace(token) == "" {
		return model.NewMissingCredentialError()
	}

	endpoint := fmt.Sprintf(c.baseURLFormat, subdomain) +
		"/api/v2/help_center/articles/" + url.PathEscape(articleID) + "/translations.json"
	payload := translationPayload{Translation: translationBody{
		Locale:     locale,
		SourceType: "Article",
		Title:      title,
		Body:       body,
	}}

	return c.sendTranslation(ctx, http.MethodPost, endpoint, token, payload, http.StatusCreated)
}

// profileResponse はユーザー情報APIのレスポンス。
type profileResponse struct {
	User model.Profile `json:"user"`
}

// GetProfile はログインユーザーのプロフィールを取得する。表示専用。
func (c *Client) GetProfile(ctx context.Context, subdomain, token string) (*model.Profile, error) {
	if strings.TrimSpace(token) == "" {
		return nil, model.NewMissingCredentialError()
	}

	endpoint := fmt.Sprintf(c.baseURLFormat, subdomain) + "/api/v2/users/me.json"
	if err := c.validateRequestURL(endpoint); err != nil {
		return nil, model.NewFetchFailedError(err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, model.NewFetchFailedError(fmt.Sprintf("profile fetch failed with status %d", resp.StatusCode))
	}

	var pr profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, model.NewFetchFailedError(fmt.Sprintf("failed to parse profile response: %v", err))
	}

	return &pr.User, nil
}
