package service

import (
	"sync"
	"time"

	"GazetteHere-App/internal/domain/model"

	"github.com/google/uuid"
)

// ConversationSession は1つの場所に紐づく会話履歴と表示用の記録を保持する
//
// History はバックエンドへの送信内容そのもの（挿入順が意味を持つ）。
// Transcript は利用者に見せるメッセージ（システム通知を含む）で、History とは別に管理する。
type ConversationSession struct {
	mu              sync.RWMutex
	id              string
	locationContext *model.LocationContext
	history         []model.Message
	transcript      []model.TranscriptEntry
	now             func() time.Time
}

// NewConversationSession は新しいセッションを作成
func NewConversationSession(lc *model.LocationContext) *ConversationSession {
	s := &ConversationSession{now: time.Now}
	s.Reset(lc)
	return s
}

// Reset 履歴を破棄して新しい場所のコンテキストを設定する（システムプロンプトは未投入状態に戻る）
func (s *ConversationSession) Reset(lc *model.LocationContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = uuid.NewString()
	s.locationContext = lc
	s.history = nil
	s.transcript = nil
}

// ID セッションID（Resetのたびに変わる）
func (s *ConversationSession) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// LocationContext 現在の場所のコンテキスト
func (s *ConversationSession) LocationContext() *model.LocationContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locationContext
}

// EnsureSeeded 履歴が空の場合のみシステムメッセージを先頭に追加する。追加した場合true
func (s *ConversationSession) EnsureSeeded(systemPrompt string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) > 0 {
		return false
	}
	s.history = append(s.history, model.Message{Role: model.RoleSystem, Content: systemPrompt})
	return true
}

// AppendUser ユーザーメッセージを履歴に追加
func (s *ConversationSession) AppendUser(text string) {
	s.appendMessage(model.RoleUser, text)
}

// AppendAssistant アシスタントメッセージを履歴に追加
func (s *ConversationSession) AppendAssistant(text string) {
	s.appendMessage(model.RoleAssistant, text)
}

func (s *ConversationSession) appendMessage(role model.Role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, model.Message{Role: role, Content: text})
}

// HistorySnapshot 履歴のコピーを返す（そのままバックエンドへのリクエストに使う）
func (s *ConversationSession) HistorySnapshot() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]model.Message, len(s.history))
	copy(snapshot, s.history)
	return snapshot
}

// Record 表示用の記録にエントリを追加する（履歴には影響しない）
func (s *ConversationSession) Record(kind model.Role, text string) model.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := model.TranscriptEntry{Kind: kind, Text: text, At: s.now()}
	s.transcript = append(s.transcript, entry)
	return entry
}

// Transcript 表示用の記録のコピー
func (s *ConversationSession) Transcript() []model.TranscriptEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.TranscriptEntry, len(s.transcript))
	copy(entries, s.transcript)
	return entries
}
