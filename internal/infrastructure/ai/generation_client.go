package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"GazetteHere-App/internal/domain/model"
	"GazetteHere-App/internal/domain/repository"
)

// GenerationClient は生成プロキシ（POST /api/openai）に会話履歴を送信するクライアント
type GenerationClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewGenerationClient は新しいGenerationClientを作成
func NewGenerationClient(endpoint string) repository.GenerationRepository {
	return &GenerationClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type generationRequest struct {
	Messages    []model.Message `json:"messages"`
	Model       string          `json:"model"`
	MaxTokens   int             `json:"maxTokens"`
	Temperature float64         `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message model.Message `json:"message"`
	} `json:"choices"`
}

// Generate は履歴全体を送信して応答テキストを返す。失敗しても再試行はしない
func (c *GenerationClient) Generate(ctx context.Context, messages []model.Message, cfg model.GenerationConfig) (string, error) {
	endpoint := c.endpoint
	if cfg.BackendEndpoint != "" {
		endpoint = cfg.BackendEndpoint
	}

	reqBody, err := json.Marshal(generationRequest{
		Messages:    messages,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		return "", &model.BackendError{Kind: model.BackendGeneric, Message: "failed to encode request", Err: err}
	}

	status, body, err := postJSON(ctx, c.httpClient, endpoint, reqBody, nil)
	if err != nil {
		return "", &model.BackendError{Kind: model.BackendGeneric, Status: status, Message: "network error", Err: err}
	}
	if status != http.StatusOK {
		return "", classifyProxyError(status, body)
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &model.BackendError{Kind: model.BackendGeneric, Status: status, Message: "failed to parse response", Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &model.BackendError{Kind: model.BackendGeneric, Status: status, Message: "empty response"}
	}
	return resp.Choices[0].Message.Content, nil
}

// proxyErrorBody はプロキシのエラー形式 {"error": "...", "code": "..."}
// OpenAI形式の {"error": {"message": "...", "code": "..."}} も受け付ける
type proxyErrorBody struct {
	Error json.RawMessage `json:"error"`
	Code  string          `json:"code"`
}

type providerError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// parseErrorBody エラーレスポンスからメッセージとエラーコードを取り出す
func parseErrorBody(body []byte) (message, code string) {
	var parsed proxyErrorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", ""
	}
	code = parsed.Code

	var text string
	if json.Unmarshal(parsed.Error, &text) == nil {
		return text, code
	}
	var provider providerError
	if json.Unmarshal(parsed.Error, &provider) == nil {
		if code == "" {
			code = provider.Code
		}
		return provider.Message, code
	}
	return "", code
}

// classifyProxyError はエラーコード、ステータスコードの順に判定して BackendError に分類する
func classifyProxyError(status int, body []byte) *model.BackendError {
	message, code := parseErrorBody(body)
	be := &model.BackendError{Status: status, Code: code, Message: message}

	switch {
	case code == "insufficient_quota":
		be.Kind = model.BackendQuotaExceeded
	case code == "invalid_api_key":
		be.Kind = model.BackendUnauthorized
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		be.Kind = model.BackendUnauthorized
	case status == http.StatusPaymentRequired:
		be.Kind = model.BackendQuotaExceeded
	case status == http.StatusTooManyRequests:
		be.Kind = model.BackendRateLimited
	case strings.Contains(strings.ToLower(message), "quota"):
		be.Kind = model.BackendQuotaExceeded
	default:
		be.Kind = model.BackendGeneric
		if be.Message == "" {
			be.Message = "Unknown error"
		}
	}
	return be
}

// IsBackendFailure はサーキットブレーカーで失敗として数えるエラーかどうか
// 認証やクォータのエラーはバックエンドの障害ではないため数えない
func IsBackendFailure(err error) bool {
	if err == nil {
		return false
	}
	var be *model.BackendError
	if errors.As(err, &be) {
		return be.Kind == model.BackendGeneric
	}
	return true
}
