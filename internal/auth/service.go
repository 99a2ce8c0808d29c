// Package auth はZendesk OAuth認可フローとトークン管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/zenport/internal/model"
	"github.com/hitoshi/zenport/internal/repository"
	"github.com/hitoshi/zenport/internal/session"
)

// OAuthProvider はOAuth認可プロバイダーのインターフェース。
// テスト時の差し替え、および将来の複数プロバイダー対応のための抽象化。
type OAuthProvider interface {
	// AuthorizationURL は指定テナントの認可エンドポイントURLを生成する。
	AuthorizationURL(subdomain string) string
	// ExchangeCode は認可コードをアクセストークンに交換する。
	ExchangeCode(ctx context.Context, subdomain, code string) (string, error)
}

// URLValidator は送信前URLの静的検証機能。security.OutboundGuardServiceが満たす。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Service はトークンライフサイクル（取得・永続化・参照）を管理する。
type Service struct {
	oauth     OAuthProvider
	tokenRepo repository.TokenRepository
	sess      *session.Context
	validator URLValidator // nil可
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, tokenRepo repository.TokenRepository, sess *session.Context, validator URLValidator) *Service {
	return &Service{
		oauth:     oauth,
		tokenRepo: tokenRepo,
		sess:      sess,
		validator: validator,
	}
}

// BeginAuthorization は認可フローを開始する。
// サブドメインをセッションに記録し、認可エンドポイントへのリダイレクトURLを返す。
// サブドメインが空の場合、またはサブドメインから組み立てた認可URLが
// 検証を通らない場合はMISSING_SUBDOMAINエラーを返し、何も記録しない。
func (s *Service) BeginAuthorization(subdomain string) (string, error) {
	subdomain = strings.TrimSpace(subdomain)
	if subdomain == "" {
		return "", model.NewMissingSubdomainError()
	}

	// サブドメインはユーザー入力なので、組み立てた認可URLを
	// リダイレクト先として返す前に検証する。
	authURL := s.oauth.AuthorizationURL(subdomain)
	if s.validator != nil {
		if err := s.validator.ValidateURL(authURL); err != nil {
			slog.Warn("authorization URL rejected",
				slog.String("subdomain", subdomain),
				slog.String("error", err.Error()),
			)
			return "", model.NewMissingSubdomainError()
		}
	}

	s.sess.SetSubdomain(subdomain)
	return authURL, nil
}

// CompleteAuthorization は認可コードをアクセストークンに交換し永続化する。
// サブドメインはコールバックのクエリではなくBeginAuthorizationで記録した
// セッション値を使用する。交換に失敗した場合は何も永続化しない。
func (s *Service) CompleteAuthorization(ctx context.Context, code string) (string, error) {
	subdomain := s.sess.Subdomain()
	if subdomain == "" {
		return "", model.NewMissingSubdomainError()
	}

	token, err := s.oauth.ExchangeCode(ctx, subdomain, code)
	if err != nil {
		slog.Error("oauth code exchange failed",
			slog.String("subdomain", subdomain),
			slog.String("error", err.Error()),
		)
		return "", model.NewAuthExchangeFailedError(err.Error())
	}

	if err := s.tokenRepo.Insert(ctx, token); err != nil {
		return "", fmt.Errorf("failed to persist access token: %w", err)
	}

	s.sess.SetToken(token)
	slog.Info("access token persisted", slog.String("subdomain", subdomain))

	return token, nil
}

// CurrentToken は最後に永続化されたアクセストークンを返す。
// 同一プロセス内で認可を完了している場合はセッションのキャッシュを返し、
// DBへの問い合わせを省略する（キャッシュは永続化成功後にのみ書かれるため
// 常に最新行と一致する）。トークンが未保存、または空文字列で保存されている
// 場合はMISSING_CREDENTIALエラーを返す。呼び出し側はこのエラーを
// フェッチ前の前提条件違反として扱うこと。
func (s *Service) CurrentToken(ctx context.Context) (string, error) {
	if cached := s.sess.Token(); cached != "" {
		return cached, nil
	}

	token, err := s.tokenRepo.GetMostRecent(ctx)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return "", model.NewMissingCredentialError()
	}
	if err != nil {
		return "", fmt.Errorf("failed to load access token: %w", err)
	}

	// 空文字列で保存されたトークンを有効扱いすると "Bearer " の
	// 不正なヘッダが送信されるため、未保存として扱う。
	if strings.TrimSpace(token.Token) == "" {
		return "", model.NewMissingCredentialError()
	}

	return token.Token, nil
}
