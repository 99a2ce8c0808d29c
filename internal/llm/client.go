// Package llm はOpenAI chat completions APIを使った記事本文のリライトと
// タイトル翻訳を提供する。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/zenport/internal/model"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	// defaultModel は補完に使用するモデル。
	defaultModel = "gpt-3.5-turbo"
	// defaultTemperature は出力のばらつき。リライト用途のため低めに固定する。
	defaultTemperature = 0.3

	// reviseSystemPrompt は本文リライト時の固定指示。ユーザー指示の前に連結される。
	reviseSystemPrompt = "Preserve original HTML structure; Make specified revisions to body text only; Output should be HTML format only. Make the requested changes: "
)

// Client はchat completions APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	model      string

	// テスト用にエンドポイントを差し替え可能
	endpoint string
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientがnilの場合はhttp.DefaultClientを使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger, apiKey string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		model:      defaultModel,
		endpoint:   defaultEndpoint,
	}
}

// message はchat completionsの1メッセージ。
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionRequest はchat completions APIのリクエストボディ。
type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// completionResponse はchat completions APIのレスポンスボディ。
type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// complete はメッセージ列を送信し、最初のchoiceの本文を返す。
// APIキー未設定・通信失敗・非200応答・不正応答はいずれもCOMPLETION_FAILEDとして
// 返し、原因の詳細はログにのみ出力する。
func (c *Client) complete(ctx context.Context, messages []message) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		if c.logger != nil {
			c.logger.Error("completion API key is not configured")
		}
		return "", model.NewCompletionFailedError()
	}

	reqBody, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: defaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("completion request failed", slog.String("error", err.Error()))
		}
		return "", model.NewCompletionFailedError()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("failed to read completion response", slog.String("error", err.Error()))
		}
		return "", model.NewCompletionFailedError()
	}

	if resp.StatusCode != http.StatusOK {
		if c.logger != nil {
			c.logger.Error("completion API returned error status",
				slog.Int("http_status", resp.StatusCode),
				slog.String("body", string(body)),
			)
		}
		return "", model.NewCompletionFailedError()
	}

	var compResp completionResponse
	if err := json.Unmarshal(body, &compResp); err != nil {
		if c.logger != nil {
			c.logger.Error("failed to parse completion response", slog.String("error", err.Error()))
		}
		return "", model.NewCompletionFailedError()
	}

	if len(compResp.Choices) == 0 {
		if c.logger != nil {
			c.logger.Error("completion response contains no choices")
		}
		return "", model.NewCompletionFailedError()
	}

	return compResp.Choices[0].Message.Content, nil
}

// Revise は記事本文（HTML）にユーザー指示のリライトを適用した本文を返す。
func (c *Client) Revise(ctx context.Context, articleBody, userPrompt string) (string, error) {
	return c.complete(ctx, []message{
		{Role: "user", Content: articleBody},
		{Role: "system", Content: reviseSystemPrompt + userPrompt},
	})
}

// TranslateTitle は記事タイトルを指定言語に翻訳して返す。
func (c *Client) TranslateTitle(ctx context.Context, title, language string) (string, error) {
	return c.complete(ctx, []message{
		{Role: "user", Content: title},
		{Role: "system", Content: fmt.Sprintf("Translate this title to %s:", language)},
	})
}
