package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/zenport/internal/model"
	"github.com/hitoshi/zenport/internal/repository"
	"github.com/hitoshi/zenport/internal/session"
)

// --- モック定義 ---

type fakeTokenRepo struct {
	tokens    []string
	insertErr error
	getCalls  int
}

func (f *fakeTokenRepo) Insert(ctx context.Context, token string) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.tokens = append(f.tokens, token)
	return nil
}

func (f *fakeTokenRepo) GetMostRecent(ctx context.Context) (*model.AccessToken, error) {
	f.getCalls++
	if len(f.tokens) == 0 {
		return nil, repository.ErrTokenNotFound
	}
	return &model.AccessToken{
		ID:    int64(len(f.tokens)),
		Token: f.tokens[len(f.tokens)-1],
	}, nil
}

type fakeProvider struct {
	authURLFn      func(subdomain string) string
	exchangeCodeFn func(ctx context.Context, subdomain, code string) (string, error)
}

func (f *fakeProvider) AuthorizationURL(subdomain string) string {
	if f.authURLFn != nil {
		return f.authURLFn(subdomain)
	}
	return "https://" + subdomain + ".zendesk.com/oauth/authorizations/new"
}

func (f *fakeProvider) ExchangeCode(ctx context.Context, subdomain, code string) (string, error) {
	if f.exchangeCodeFn != nil {
		return f.exchangeCodeFn(ctx, subdomain, code)
	}
	return "tok-default", nil
}

type fakeValidator struct {
	err    error
	gotURL string
}

func (f *fakeValidator) ValidateURL(rawURL string) error {
	f.gotURL = rawURL
	return f.err
}

// --- テスト ---

func TestBeginAuthorization_EmptySubdomain_ReturnsUserInputError(t *testing.T) {
	svc := NewService(&fakeProvider{}, &fakeTokenRepo{}, session.NewContext(), nil)

	for _, subdomain := range []string{"", "   "} {
		_, err := svc.BeginAuthorization(subdomain)

		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("subdomain=%q: *model.APIError を返すべき, got %v", subdomain, err)
		}
		if apiErr.Code != model.ErrCodeMissingSubdomain {
			t.Errorf("subdomain=%q: code = %q, want %q", subdomain, apiErr.Code, model.ErrCodeMissingSubdomain)
		}
	}
}

func TestBeginAuthorization_RecordsSubdomainAndReturnsURL(t *testing.T) {
	sess := session.NewContext()
	svc := NewService(&fakeProvider{}, &fakeTokenRepo{}, sess, nil)

	redirectURL, err := svc.BeginAuthorization("acme")
	if err != nil {
		t.Fatalf("BeginAuthorization がエラーを返した: %v", err)
	}

	if redirectURL != "https://acme.zendesk.com/oauth/authorizations/new" {
		t.Errorf("redirectURL = %q", redirectURL)
	}
	if sess.Subdomain() != "acme" {
		t.Errorf("セッションのsubdomain = %q, want %q", sess.Subdomain(), "acme")
	}
}

func TestBeginAuthorization_ValidatorReceivesAuthorizationURL(t *testing.T) {
	validator := &fakeValidator{}
	svc := NewService(&fakeProvider{}, &fakeTokenRepo{}, session.NewContext(), validator)

	if _, err := svc.BeginAuthorization("acme"); err != nil {
		t.Fatalf("BeginAuthorization がエラーを返した: %v", err)
	}

	if validator.gotURL != "https://acme.zendesk.com/oauth/authorizations/new" {
		t.Errorf("検証対象URL = %q", validator.gotURL)
	}
}

func TestBeginAuthorization_RejectedAuthURL_ReturnsUserInputError(t *testing.T) {
	sess := session.NewContext()
	validator := &fakeValidator{err: errors.New("blocked IP address: 127.0.0.1")}
	svc := NewService(&fakeProvider{}, &fakeTokenRepo{}, sess, validator)

	_, err := svc.BeginAuthorization("127.0.0.1/")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("*model.APIError を返すべき, got %v", err)
	}
	if apiErr.Code != model.ErrCodeMissingSubdomain {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeMissingSubdomain)
	}
	if sess.Subdomain() != "" {
		t.Errorf("拒否されたsubdomainは記録すべきでない: %q", sess.Subdomain())
	}
}

func TestCompleteAuthorization_UsesSessionSubdomain_NotCallbackInput(t *testing.T) {
	var gotSubdomain string
	provider := &fakeProvider{
		exchangeCodeFn: func(ctx context.Context, subdomain, code string) (string, error) {
			gotSubdomain = subdomain
			return "tok-abc", nil
		},
	}
	sess := session.NewContext()
	repo := &fakeTokenRepo{}
	svc := NewService(provider, repo, sess, nil)

	if _, err := svc.BeginAuthorization("acme"); err != nil {
		t.Fatalf("BeginAuthorization がエラーを返した: %v", err)
	}

	token, err := svc.CompleteAuthorization(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("CompleteAuthorization がエラーを返した: %v", err)
	}

	if gotSubdomain != "acme" {
		t.Errorf("交換に使用されたsubdomain = %q, want %q", gotSubdomain, "acme")
	}
	if token != "tok-abc" {
		t.Errorf("token = %q, want %q", token, "tok-abc")
	}
	if len(repo.tokens) != 1 || repo.tokens[0] != "tok-abc" {
		t.Errorf("ストアには1件のトークンが保存されるべき: %v", repo.tokens)
	}
	if sess.Token() != "tok-abc" {
		t.Errorf("セッションのtoken = %q, want %q", sess.Token(), "tok-abc")
	}
}

func TestCompleteAuthorization_NoSubdomainInSession_ReturnsError(t *testing.T) {
	svc := NewService(&fakeProvider{}, &fakeTokenRepo{}, session.NewContext(), nil)

	_, err := svc.CompleteAuthorization(context.Background(), "abc123")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeMissingSubdomain {
		t.Fatalf("MISSING_SUBDOMAIN を返すべき, got %v", err)
	}
}

func TestCompleteAuthorization_ExchangeFails_PersistsNothing(t *testing.T) {
	provider := &fakeProvider{
		exchangeCodeFn: func(ctx context.Context, subdomain, code string) (string, error) {
			return "", errors.New("token exchange failed with status 401")
		},
	}
	repo := &fakeTokenRepo{}
	svc := NewService(provider, repo, session.NewContext(), nil)

	if _, err := svc.BeginAuthorization("acme"); err != nil {
		t.Fatalf("BeginAuthorization がエラーを返した: %v", err)
	}

	before := len(repo.tokens)
	_, err := svc.CompleteAuthorization(context.Background(), "bad-code")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAuthExchangeFailed {
		t.Fatalf("AUTH_EXCHANGE_FAILED を返すべき, got %v", err)
	}

	// 交換失敗時は部分的なトークンも保存しない
	if len(repo.tokens) != before {
		t.Errorf("ストアの行数が変化した: before=%d after=%d", before, len(repo.tokens))
	}
}

func TestCurrentToken_EmptyStore_ReturnsMissingCredential(t *testing.T) {
	svc := NewService(&fakeProvider{}, &fakeTokenRepo{}, session.NewContext(), nil)

	_, err := svc.CurrentToken(context.Background())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeMissingCredential {
		t.Fatalf("MISSING_CREDENTIAL を返すべき, got %v", err)
	}
}

func TestCurrentToken_BlankStoredToken_ReturnsMissingCredential(t *testing.T) {
	// 空文字列で保存されたトークンは有効な資格情報として扱わない
	repo := &fakeTokenRepo{tokens: []string{""}}
	svc := NewService(&fakeProvider{}, repo, session.NewContext(), nil)

	_, err := svc.CurrentToken(context.Background())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeMissingCredential {
		t.Fatalf("MISSING_CREDENTIAL を返すべき, got %v", err)
	}
}

func TestCurrentToken_ReturnsMostRecent(t *testing.T) {
	repo := &fakeTokenRepo{tokens: []string{"tok-old", "tok-new"}}
	svc := NewService(&fakeProvider{}, repo, session.NewContext(), nil)

	token, err := svc.CurrentToken(context.Background())
	if err != nil {
		t.Fatalf("CurrentToken がエラーを返した: %v", err)
	}
	if token != "tok-new" {
		t.Errorf("token = %q, want %q", token, "tok-new")
	}
}

func TestCurrentToken_IdempotentBetweenInserts(t *testing.T) {
	repo := &fakeTokenRepo{tokens: []string{"tok-abc"}}
	svc := NewService(&fakeProvider{}, repo, session.NewContext(), nil)

	first, err := svc.CurrentToken(context.Background())
	if err != nil {
		t.Fatalf("1回目の CurrentToken がエラーを返した: %v", err)
	}
	second, err := svc.CurrentToken(context.Background())
	if err != nil {
		t.Fatalf("2回目の CurrentToken がエラーを返した: %v", err)
	}

	if first != second {
		t.Errorf("挿入を挟まない2回の呼び出しは同じ値を返すべき: %q != %q", first, second)
	}
}

func TestCurrentToken_UsesSessionCacheAfterCompletion(t *testing.T) {
	// 認可完了後はキャッシュから返し、DBに問い合わせない
	sess := session.NewContext()
	repo := &fakeTokenRepo{}
	svc := NewService(&fakeProvider{}, repo, sess, nil)

	if _, err := svc.BeginAuthorization("acme"); err != nil {
		t.Fatalf("BeginAuthorization がエラーを返した: %v", err)
	}
	if _, err := svc.CompleteAuthorization(context.Background(), "abc123"); err != nil {
		t.Fatalf("CompleteAuthorization がエラーを返した: %v", err)
	}

	token, err := svc.CurrentToken(context.Background())
	if err != nil {
		t.Fatalf("CurrentToken がエラーを返した: %v", err)
	}
	if token != "tok-default" {
		t.Errorf("token = %q, want %q", token, "tok-default")
	}
	if repo.getCalls != 0 {
		t.Errorf("キャッシュ済みの場合はGetMostRecentを呼ぶべきでない: %d回呼ばれた", repo.getCalls)
	}
}
