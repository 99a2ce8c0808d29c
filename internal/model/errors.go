// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, fetch, llm, export, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingSubdomain    = "MISSING_SUBDOMAIN"
	ErrCodeAuthExchangeFailed  = "AUTH_EXCHANGE_FAILED"
	ErrCodeMissingCredential   = "MISSING_CREDENTIAL"
	ErrCodeFetchFailed         = "FETCH_FAILED"
	ErrCodeArticleNotFound     = "ARTICLE_NOT_FOUND"
	ErrCodeTranslationFailed   = "TRANSLATION_FAILED"
	ErrCodeCompletionFailed    = "COMPLETION_FAILED"
	ErrCodeExportFailed        = "EXPORT_FAILED"
	ErrCodeInvalidExportTarget = "INVALID_EXPORT_TARGET"
)

// NewMissingSubdomainError はサブドメイン未指定エラーを生成する。
// 認可フローはサブドメインなしでは開始できない。
func NewMissingSubdomainError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingSubdomain,
		Message:  "Zendeskサブドメインが指定されていません。",
		Category: "validation",
		Action:   "subdomainパラメータにZendeskのサブドメインを指定してください。",
	}
}

// NewAuthExchangeFailedError は認可コード交換失敗エラーを生成する。
func NewAuthExchangeFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeAuthExchangeFailed,
		Message:  fmt.Sprintf("アクセストークンの取得に失敗しました: %s", reason),
		Category: "auth",
		Action:   "認可フローを最初からやり直してください。",
	}
}

// NewMissingCredentialError はアクセストークン未保存エラーを生成する。
// 空文字列で保存されたトークンも未保存として扱う。
func NewMissingCredentialError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingCredential,
		Message:  "アクセストークンが保存されていません。",
		Category: "auth",
		Action:   "先に /zendesk/auth から認可フローを完了してください。",
	}
}

// NewFetchFailedError は記事取得失敗エラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("記事の取得に失敗しました: %s", reason),
		Category: "fetch",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(articleID string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", articleID),
		Category: "fetch",
		Action:   "記事IDを確認してください。",
	}
}

// NewTranslationFailedError は翻訳の作成・更新失敗エラーを生成する。
func NewTranslationFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeTranslationFailed,
		Message:  fmt.Sprintf("記事翻訳の反映に失敗しました: %s", reason),
		Category: "fetch",
		Action:   "ロケールと記事IDを確認し、再度お試しください。",
	}
}

// NewCompletionFailedError はLLM補完失敗エラーを生成する。
func NewCompletionFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCompletionFailed,
		Message:  "本文のリライト生成に失敗しました。",
		Category: "llm",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewExportFailedError はエクスポート失敗エラーを生成する。
func NewExportFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeExportFailed,
		Message:  fmt.Sprintf("記事のエクスポートに失敗しました: %s", reason),
		Category: "export",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidExportTargetError はメール送付先不正エラーを生成する。
func NewInvalidExportTargetError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidExportTarget,
		Message:  "送付先メールアドレスが指定されていません。",
		Category: "validation",
		Action:   "toフィールドに送付先メールアドレスを指定してください。",
	}
}
