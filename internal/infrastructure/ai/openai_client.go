package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"GazetteHere-App/internal/domain/model"
)

const defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient はサーバー側でAPIキーを付与してOpenAI Chat Completions APIを呼び出すクライアント
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient は新しいOpenAIClientインスタンスを作成
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: defaultOpenAIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithBaseURL 接続先を差し替える（テストやOpenAI互換APIで使用）
func (c *OpenAIClient) WithBaseURL(url string) *OpenAIClient {
	c.baseURL = url
	return c
}

// ChatCompletionRequest はChat Completions APIへのリクエスト構造体
type ChatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []model.Message `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

// UpstreamResponse はOpenAIからの応答（成功時のボディはそのままクライアントへ返す）
type UpstreamResponse struct {
	StatusCode   int
	Body         []byte
	ErrorCode    string
	ErrorMessage string
}

// OK 成功レスポンスかどうか
func (r *UpstreamResponse) OK() bool {
	return r.StatusCode == http.StatusOK
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Forward はリクエストをOpenAIに転送する。HTTPレベルの失敗はエラーではなく UpstreamResponse で返す
func (c *OpenAIClient) Forward(ctx context.Context, req ChatCompletionRequest) (*UpstreamResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("リクエストのシリアライズに失敗: %w", err)
	}

	status, body, err := postJSON(ctx, c.httpClient, c.baseURL, reqBody, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	})
	if err != nil {
		return nil, err
	}

	upstream := &UpstreamResponse{StatusCode: status, Body: body}
	if !upstream.OK() {
		var errBody openAIErrorBody
		if json.Unmarshal(body, &errBody) == nil {
			upstream.ErrorCode = errBody.Error.Code
			upstream.ErrorMessage = errBody.Error.Message
		}
	}
	return upstream, nil
}
