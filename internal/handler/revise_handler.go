package handler

import (
	"context"
	"encoding/json"
	"net/http"
)

// ReviseServiceInterface はLLMハンドラーが必要とするサービスインターフェース。
type ReviseServiceInterface interface {
	// Revise は記事本文をプロンプトの指示に従って書き直す。
	Revise(ctx context.Context, articleBody, userPrompt string) (string, error)
	// TranslateTitle はタイトルを指定言語に翻訳する。
	TranslateTitle(ctx context.Context, title, language string) (string, error)
}

// LLMMetricsRecorder はLLM呼び出しの記録機能。metrics.Collectorが満たす。
type LLMMetricsRecorder interface {
	RecordLLMCall(operation string)
}

// ReviseHandler はLLMによる記事リライトのHTTPハンドラー。
type ReviseHandler struct {
	service ReviseServiceInterface
	metrics LLMMetricsRecorder // nil可
}

// NewReviseHandler はReviseHandlerを生成する。
func NewReviseHandler(service ReviseServiceInterface, metrics LLMMetricsRecorder) *ReviseHandler {
	return &ReviseHandler{
		service: service,
		metrics: metrics,
	}
}

// reviseRequest は記事リライトリクエストのボディ。
type reviseRequest struct {
	ArticleBody string `json:"article_body"`
	Prompt      string `json:"prompt"`
}

// translateTitleRequest はタイトル翻訳リクエストのボディ。
type translateTitleRequest struct {
	Title    string `json:"title"`
	Language string `json:"language"`
}

// Revise は記事本文をリライトする。
// POST /api/revise
func (h *ReviseHandler) Revise(w http.ResponseWriter, r *http.Request) {
	var req reviseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.service.Revise(r.Context(), req.ArticleBody, req.Prompt)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordLLMCall("revise")
	}
	writeJSON(w, http.StatusOK, map[string]string{"revised_body": result})
}

// TranslateTitle はタイトルを翻訳する。
// POST /api/translate-title
func (h *ReviseHandler) TranslateTitle(w http.ResponseWriter, r *http.Request) {
	var req translateTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.service.TranslateTitle(r.Context(), req.Title, req.Language)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordLLMCall("translate_title")
	}
	writeJSON(w, http.StatusOK, map[string]string{"translated_title": result})
}
