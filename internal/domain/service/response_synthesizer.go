package service

import (
	"context"

	"GazetteHere-App/internal/domain/model"
	"GazetteHere-App/internal/domain/repository"

	"go.uber.org/zap"
)

// バックエンド失敗時に記録する通知文
const (
	QuotaDiagnostic        = "💳 OpenAI quota exceeded. Using offline responses while you add billing at platform.openai.com/account/billing"
	UnauthorizedDiagnostic = "🔑 Invalid API key. Please check your .env file and restart the server."
	OfflineDiagnostic      = "Note: Using offline responses. Full AI features may be unavailable."
)

// BackendDiagnostic はエラー種別に応じた通知文を返す
func BackendDiagnostic(err *model.BackendError) string {
	if err == nil {
		return OfflineDiagnostic
	}
	switch err.Kind {
	case model.BackendQuotaExceeded:
		return QuotaDiagnostic
	case model.BackendUnauthorized:
		return UnauthorizedDiagnostic
	default:
		return OfflineDiagnostic
	}
}

// Turn は1回の応答で追加された内容
type Turn struct {
	Reply   string
	Entries []model.TranscriptEntry
}

// ResponseSynthesizer は生成バックエンドとフォールバックを切り替えて応答を作る
type ResponseSynthesizer interface {
	// Respond ユーザーメッセージに応答する。バックエンドが失敗してもフォールバックで必ず応答を返す
	Respond(ctx context.Context, session *ConversationSession, userMessage string) Turn
	// Introduce 新しい場所での最初の応答を作る
	Introduce(ctx context.Context, session *ConversationSession) Turn
}

type responseSynthesizer struct {
	generator repository.GenerationRepository
	fallback  FallbackResponder
	config    model.GenerationConfig
	logger    *zap.SugaredLogger
}

// NewResponseSynthesizer は新しいResponseSynthesizerを作成
// generator が nil の場合はバックエンド連携を無効とし、全ての応答をフォールバックで返す
func NewResponseSynthesizer(generator repository.GenerationRepository, fallback FallbackResponder, config model.GenerationConfig, logger *zap.SugaredLogger) ResponseSynthesizer {
	return &responseSynthesizer{
		generator: generator,
		fallback:  fallback,
		config:    config,
		logger:    logger,
	}
}

func (s *responseSynthesizer) Respond(ctx context.Context, session *ConversationSession, userMessage string) Turn {
	var turn Turn
	turn.Entries = append(turn.Entries, session.Record(model.RoleUser, userMessage))

	if s.generator == nil {
		turn.Reply = s.fallback.Answer(userMessage, session.LocationContext())
		turn.Entries = append(turn.Entries, session.Record(model.RoleAssistant, turn.Reply))
		return turn
	}

	session.EnsureSeeded(BuildSystemPrompt(session.LocationContext()))
	session.AppendUser(userMessage)

	reply, err := s.generator.Generate(ctx, session.HistorySnapshot(), s.config)
	if err != nil {
		backendErr := model.ClassifyBackendError(err)
		s.logger.Warnf("⚠️ 生成バックエンドの呼び出しに失敗、フォールバック応答を使用: %v", backendErr)
		turn.Entries = append(turn.Entries, session.Record(model.RoleSystem, BackendDiagnostic(backendErr)))
		reply = s.fallback.Answer(userMessage, session.LocationContext())
	}

	session.AppendAssistant(reply)
	turn.Reply = reply
	turn.Entries = append(turn.Entries, session.Record(model.RoleAssistant, reply))
	return turn
}

func (s *responseSynthesizer) Introduce(ctx context.Context, session *ConversationSession) Turn {
	var turn Turn

	if s.generator == nil {
		turn.Reply = s.fallback.OpeningStatement(session.LocationContext())
		turn.Entries = append(turn.Entries, session.Record(model.RoleAssistant, turn.Reply))
		return turn
	}

	session.EnsureSeeded(BuildSystemPrompt(session.LocationContext()))
	session.AppendUser(IntroductionPrompt)

	reply, err := s.generator.Generate(ctx, session.HistorySnapshot(), s.config)
	if err != nil {
		backendErr := model.ClassifyBackendError(err)
		s.logger.Warnf("⚠️ 紹介文の生成に失敗、フォールバック応答を使用: %v", backendErr)
		turn.Entries = append(turn.Entries, session.Record(model.RoleSystem, BackendDiagnostic(backendErr)))
		reply = s.fallback.OpeningStatement(session.LocationContext())
	}

	session.AppendAssistant(reply)
	turn.Reply = reply
	turn.Entries = append(turn.Entries, session.Record(model.RoleAssistant, reply))
	return turn
}
