package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestProvider(serverURL string) *ZendeskOAuthProvider {
	return NewZendeskOAuthProvider(ZendeskOAuthConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURI:  "http://localhost:3000/zendesk/oauth/callback",
		Scope:        "users:read",
		// %%s を含まない固定URLでサブドメイン展開を無効化する
		BaseURLFormat: serverURL + "/%s",
	}, nil)
}

func TestAuthorizationURL_ContainsRequiredParams(t *testing.T) {
	p := NewZendeskOAuthProvider(ZendeskOAuthConfig{
		ClientID:    "test-client-id",
		RedirectURI: "http://localhost:3000/zendesk/oauth/callback",
		Scope:       "users:read",
	}, nil)

	raw := p.AuthorizationURL("acme")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("認可URLのパースに失敗した: %v", err)
	}

	if u.Host != "acme.zendesk.com" {
		t.Errorf("host = %q, want %q", u.Host, "acme.zendesk.com")
	}
	if u.Path != "/oauth/authorizations/new" {
		t.Errorf("path = %q, want %q", u.Path, "/oauth/authorizations/new")
	}

	q := u.Query()
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q, want %q", q.Get("response_type"), "code")
	}
	if q.Get("client_id") != "test-client-id" {
		t.Errorf("client_id = %q, want %q", q.Get("client_id"), "test-client-id")
	}
	if q.Get("redirect_uri") != "http://localhost:3000/zendesk/oauth/callback" {
		t.Errorf("redirect_uri = %q, want %q", q.Get("redirect_uri"), "http://localhost:3000/zendesk/oauth/callback")
	}
	if q.Get("scope") != "users:read" {
		t.Errorf("scope = %q, want %q", q.Get("scope"), "users:read")
	}
}

func TestAuthorizationURL_ScopeIsConfigurable(t *testing.T) {
	p := NewZendeskOAuthProvider(ZendeskOAuthConfig{
		ClientID:    "test-client-id",
		RedirectURI: "http://localhost:3000/zendesk/oauth/callback",
		Scope:       "users:read hc:read hc:write",
	}, nil)

	u, err := url.Parse(p.AuthorizationURL("acme"))
	if err != nil {
		t.Fatalf("認可URLのパースに失敗した: %v", err)
	}

	if got := u.Query().Get("scope"); got != "users:read hc:read hc:write" {
		t.Errorf("scope = %q, want %q", got, "users:read hc:read hc:write")
	}
}

func TestExchangeCode_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("HTTPメソッド = %s, want POST", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/oauth/tokens") {
			t.Errorf("path = %q, want suffix /oauth/tokens", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q, want form-urlencoded", ct)
		}

		if err := r.ParseForm(); err != nil {
			t.Fatalf("フォームのパースに失敗した: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q, want %q", got, "authorization_code")
		}
		if got := r.PostForm.Get("code"); got != "abc123" {
			t.Errorf("code = %q, want %q", got, "abc123")
		}
		if got := r.PostForm.Get("client_secret"); got != "test-client-secret" {
			t.Errorf("client_secret = %q, want %q", got, "test-client-secret")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-xyz","token_type":"bearer","scope":"users:read"}`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)

	token, err := p.ExchangeCode(context.Background(), "acme", "abc123")
	if err != nil {
		t.Fatalf("ExchangeCode がエラーを返した: %v", err)
	}
	if token != "tok-xyz" {
		t.Errorf("token = %q, want %q", token, "tok-xyz")
	}
}

func TestExchangeCode_Non200Status_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)

	_, err := p.ExchangeCode(context.Background(), "acme", "bad-code")
	if err == nil {
		t.Fatal("非2xxレスポンスに対してエラーを返すべき")
	}
}

func TestExchangeCode_MalformedBody_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not-json`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)

	_, err := p.ExchangeCode(context.Background(), "acme", "abc123")
	if err == nil {
		t.Fatal("不正なレスポンスボディに対してエラーを返すべき")
	}
}

func TestExchangeCode_EmptyAccessToken_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":""}`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)

	_, err := p.ExchangeCode(context.Background(), "acme", "abc123")
	if err == nil {
		t.Fatal("空のaccess_tokenに対してエラーを返すべき")
	}
}
