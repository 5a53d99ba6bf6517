package repository

import (
	"GazetteHere-App/internal/domain/model"
	"context"
)

// GenerationRepository は会話履歴から応答文を生成するリポジトリインターフェース
type GenerationRepository interface {
	// Generate は履歴全体を送信し、アシスタントの応答テキストを返す（失敗時は *model.BackendError）
	Generate(ctx context.Context, messages []model.Message, cfg model.GenerationConfig) (string, error)
}
