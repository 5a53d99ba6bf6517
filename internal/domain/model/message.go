package model

import "time"

// Role バックエンドに送るメッセージの役割
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 会話履歴の1件（作成後は不変）
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TranscriptEntry 利用者に表示されるチャット欄の1件
// バックエンドに送る履歴とは別管理（診断メッセージや測位エラーはこちらにのみ残る）
type TranscriptEntry struct {
	Kind Role      `json:"type"`
	Text string    `json:"message"`
	At   time.Time `json:"timestamp"`
}

// GenerationConfig 生成バックエンド呼び出しの設定
type GenerationConfig struct {
	Model           string  `json:"model"`
	MaxTokens       int     `json:"maxTokens"`
	Temperature     float64 `json:"temperature"`
	BackendEndpoint string  `json:"-"` // 空の場合バックエンド連携は無効
}

// デフォルトの生成設定
const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
)
