package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/zenport/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// StatusCodeFor はAPIエラーコードに対応するHTTPステータスコードを返す。
// 未知のコードは500にフォールバックする。
func StatusCodeFor(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeMissingSubdomain, model.ErrCodeInvalidExportTarget:
		return http.StatusBadRequest
	case model.ErrCodeMissingCredential:
		return http.StatusUnauthorized
	case model.ErrCodeArticleNotFound:
		return http.StatusNotFound
	case model.ErrCodeAuthExchangeFailed, model.ErrCodeFetchFailed,
		model.ErrCodeTranslationFailed, model.ErrCodeCompletionFailed:
		return http.StatusBadGateway
	case model.ErrCodeExportFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
