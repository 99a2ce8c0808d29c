package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// defaultBaseURLFormat はテナントのベースURLのフォーマット。
// %s にはサブドメインが入る。
const defaultBaseURLFormat = "https://%s.zendesk.com"

// ZendeskOAuthConfig はZendesk OAuthプロバイダーの設定。
type ZendeskOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// Scope は認可リクエストに含めるスコープ。読み取り専用なら "users:read hc:read" 等。
	Scope string

	// テスト用にオーバーライド可能なベースURLフォーマット
	BaseURLFormat string
}

// ZendeskOAuthProvider はZendeskの認可コードフローによるトークン取得を提供する。
// テナント（サブドメイン）ごとにエンドポイントURLが異なる。
type ZendeskOAuthProvider struct {
	config     ZendeskOAuthConfig
	httpClient *http.Client
}

// NewZendeskOAuthProvider はZendeskOAuthProviderを生成する。
// httpClientがnilの場合はhttp.DefaultClientを使用する。
func NewZendeskOAuthProvider(config ZendeskOAuthConfig, httpClient *http.Client) *ZendeskOAuthProvider {
	if config.BaseURLFormat == "" {
		config.BaseURLFormat = defaultBaseURLFormat
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ZendeskOAuthProvider{config: config, httpClient: httpClient}
}

// AuthorizationURL は指定テナントの認可エンドポイントURLを生成する。
func (p *ZendeskOAuthProvider) AuthorizationURL(subdomain string) string {
	params := url.Values{
		"response_type": {"code"},
		"redirect_uri":  {p.config.RedirectURI},
		"client_id":     {p.config.ClientID},
		"scope":         {p.config.Scope},
	}
	return fmt.Sprintf(p.config.BaseURLFormat, subdomain) + "/oauth/authorizations/new?" + params.Encode()
}

// tokenResponse はZendeskのトークンエンドポイントのレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// ExchangeCode は認可コードをアクセストークンに交換する。
// 交換は1回のみ試行し、失敗時はリトライせずエラーを返す。
func (p *ZendeskOAuthProvider) ExchangeCode(ctx context.Context, subdomain, code string) (string, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURI},
		"scope":         {p.config.Scope},
	}

	endpoint := fmt.Sprintf(p.config.BaseURLFormat, subdomain) + "/oauth/tokens"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in response")
	}

	return tokenResp.AccessToken, nil
}

// compile-time interface check
var _ OAuthProvider = (*ZendeskOAuthProvider)(nil)
