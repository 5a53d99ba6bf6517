package handler

import (
	"context"
	"net/http"

	"GazetteHere-App/internal/domain/model"
	"GazetteHere-App/internal/infrastructure/ai"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ChatCompletionForwarder はAPIキーを付与して上流の生成APIへ転送する
type ChatCompletionForwarder interface {
	Forward(ctx context.Context, req ai.ChatCompletionRequest) (*ai.UpstreamResponse, error)
}

// GenerationProxyHandler は生成APIのプロキシ（APIキーをブラウザに渡さないためサーバー側で付与する）
type GenerationProxyHandler struct {
	forwarder ChatCompletionForwarder
	limiter   *rate.Limiter
	logger    *zap.SugaredLogger
}

// NewGenerationProxyHandler は新しいGenerationProxyHandlerを作成
// forwarder が nil の場合はAPIキー未設定として500を返す。limiter が nil の場合は制限しない
func NewGenerationProxyHandler(forwarder ChatCompletionForwarder, limiter *rate.Limiter, logger *zap.SugaredLogger) *GenerationProxyHandler {
	return &GenerationProxyHandler{
		forwarder: forwarder,
		limiter:   limiter,
		logger:    logger,
	}
}

// Handle は生成リクエストを転送するエンドポイント
// POST /api/openai
func (h *GenerationProxyHandler) Handle(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
		return
	}

	if h.forwarder == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "OpenAI API key not configured. Please set OPENAI_API_KEY in your .env file.",
		})
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
		return
	}

	var req model.GenerationProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Messages == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Messages array is required"})
		return
	}

	upstream, err := h.forwarder.Forward(c.Request.Context(), toChatCompletionRequest(req))
	if err != nil {
		h.logger.Errorf("❌ 生成APIへの転送に失敗: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if upstream.OK() {
		c.Data(http.StatusOK, "application/json", upstream.Body)
		return
	}

	h.logger.Warnf("⚠️ 生成APIがエラーを返しました (status: %d, code: %s): %s", upstream.StatusCode, upstream.ErrorCode, upstream.ErrorMessage)
	status, body := mapUpstreamError(upstream)
	c.JSON(status, body)
}

// toChatCompletionRequest 省略された項目を既定値で補う
func toChatCompletionRequest(req model.GenerationProxyRequest) ai.ChatCompletionRequest {
	out := ai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: model.DefaultTemperature,
	}
	if out.Model == "" {
		out.Model = model.DefaultModel
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = model.DefaultMaxTokens
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	return out
}

// mapUpstreamError 上流のエラーを {error: string} に正規化する
func mapUpstreamError(upstream *ai.UpstreamResponse) (int, gin.H) {
	switch {
	case upstream.ErrorCode == "insufficient_quota":
		return http.StatusPaymentRequired, gin.H{"error": "OpenAI quota exceeded", "code": upstream.ErrorCode}
	case upstream.StatusCode == http.StatusUnauthorized || upstream.ErrorCode == "invalid_api_key":
		return http.StatusUnauthorized, gin.H{"error": "Invalid OpenAI API key", "code": upstream.ErrorCode}
	case upstream.StatusCode == http.StatusTooManyRequests:
		return http.StatusTooManyRequests, gin.H{"error": "OpenAI rate limit exceeded", "code": upstream.ErrorCode}
	default:
		message := upstream.ErrorMessage
		if message == "" {
			message = "OpenAI API error"
		}
		return upstream.StatusCode, gin.H{"error": message, "code": upstream.ErrorCode}
	}
}
