package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"GazetteHere-App/internal/domain/model"
	"GazetteHere-App/internal/domain/repository"
	"GazetteHere-App/internal/domain/service"

	"go.uber.org/zap"
)

// 地名検索で利用者に表示するメッセージ
const (
	SearchEmptyMessage    = "Please enter a location to search."
	SearchNotFoundMessage = "Location not found. Please try a different search term."
	SearchErrorMessage    = "Error searching for location. Please try again."
)

// GazetteerUseCase は位置の取得から会話までをまとめるユースケース
type GazetteerUseCase interface {
	// LocateOnce 現在地を1回取得して処理する
	LocateOnce(ctx context.Context) (*model.LocationUpdateResponse, error)
	// LocateForced 複数サンプルから最も精度の良い位置を取得し、距離に関係なくGateに渡す
	LocateForced(ctx context.Context) (*model.LocationUpdateResponse, error)
	// SearchLocation 地名を検索してその場所に移動する
	SearchLocation(ctx context.Context, query string) (*model.LocationUpdateResponse, error)
	// StartTracking 継続追跡を開始する（既に追跡中なら何もしない）
	StartTracking(ctx context.Context) (*model.TrackingStatusResponse, error)
	// StopTracking 継続追跡を停止する（何度呼んでもよい）
	StopTracking() *model.TrackingStatusResponse
	// TrackingStatus 現在の測位モード
	TrackingStatus() *model.TrackingStatusResponse
	// Chat ユーザーメッセージに応答する
	Chat(ctx context.Context, message string) (*model.ChatResponse, error)
	// Snapshot 現在のセッション状態
	Snapshot() *model.SessionSnapshot
}

// gazetteerUseCaseImpl はGazetteerUseCaseの実装
//
// 状態（受け入れ済みの位置、会話セッション、測位モード）は全て mu を保持した状態でのみ変更する。
// 継続追跡のコールバックは trackingGen で自分がまだ現在の購読かを確認してから状態を変更する。
// tracker は StopTracking が mu を待たずに転送中の処理を取り消せるよう atomic で持つ。
type gazetteerUseCaseImpl struct {
	acquisition service.PositionAcquisitionService
	sensor      repository.PositionSensor
	geocoder    repository.GeocodingRepository
	synthesizer service.ResponseSynthesizer
	gate        service.LocationGate
	logger      *zap.SugaredLogger

	mu          sync.Mutex
	current     *model.Position
	session     *service.ConversationSession
	mode        model.TrackingMode
	tracker     atomic.Pointer[service.ContinuousTracker]
	trackingGen uint64
	lastError   string
}

// NewGazetteerUseCase は新しいGazetteerUseCaseインスタンスを作成
func NewGazetteerUseCase(
	acquisition service.PositionAcquisitionService,
	sensor repository.PositionSensor,
	geocoder repository.GeocodingRepository,
	synthesizer service.ResponseSynthesizer,
	logger *zap.SugaredLogger,
) GazetteerUseCase {
	return &gazetteerUseCaseImpl{
		acquisition: acquisition,
		sensor:      sensor,
		geocoder:    geocoder,
		synthesizer: synthesizer,
		gate:        service.NewLocationGate(acquisition.Policy().NewPlaceMeters),
		logger:      logger,
		mode:        model.TrackingIdle,
	}
}

// beginAcquisition 測位モードを切り替える。他のモードが動作中なら ErrTrackingActive
func (u *gazetteerUseCaseImpl) beginAcquisition(mode model.TrackingMode) (*model.Position, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.mode != model.TrackingIdle {
		return nil, fmt.Errorf("%w: %s", model.ErrTrackingActive, u.mode)
	}
	u.mode = mode
	return u.current, nil
}

func (u *gazetteerUseCaseImpl) LocateOnce(ctx context.Context) (*model.LocationUpdateResponse, error) {
	previous, err := u.beginAcquisition(model.TrackingSingleShot)
	if err != nil {
		return nil, err
	}
	u.logger.Infof("📍 現在地の取得を開始")

	result, acqErr := u.acquisition.AcquireOnce(ctx, previous)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.mode = model.TrackingIdle

	if acqErr != nil {
		return nil, u.reportAcquisitionError(acqErr)
	}
	u.lastError = ""
	if result.SameArea {
		return &model.LocationUpdateResponse{
			Status:    model.LocationNoUpdate,
			SessionID: u.sessionID(),
			Position:  result.Position,
		}, nil
	}
	return u.processPosition(ctx, *result.Position), nil
}

func (u *gazetteerUseCaseImpl) LocateForced(ctx context.Context) (*model.LocationUpdateResponse, error) {
	if _, err := u.beginAcquisition(model.TrackingForcedMultiSample); err != nil {
		return nil, err
	}
	u.logger.Infof("🎯 精度優先の位置取得を開始")

	pos, acqErr := u.acquisition.AcquireForced(ctx)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.mode = model.TrackingIdle

	if acqErr != nil {
		return nil, u.reportAcquisitionError(acqErr)
	}
	u.lastError = ""
	return u.processPosition(ctx, *pos), nil
}

func (u *gazetteerUseCaseImpl) SearchLocation(ctx context.Context, query string) (*model.LocationUpdateResponse, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	query = strings.TrimSpace(query)
	if query == "" {
		u.recordSystem(SearchEmptyMessage)
		return nil, model.ErrEmptyQuery
	}
	if u.mode == model.TrackingSingleShot || u.mode == model.TrackingForcedMultiSample {
		return nil, fmt.Errorf("%w: %s", model.ErrTrackingActive, u.mode)
	}

	coords, err := u.geocoder.Search(ctx, query)
	if err != nil {
		if errors.Is(err, model.ErrLocationNotFound) {
			u.recordSystem(SearchNotFoundMessage)
			return nil, err
		}
		u.logger.Errorf("❌ 地名検索に失敗: %v", err)
		u.recordSystem(SearchErrorMessage)
		return nil, fmt.Errorf("地名検索に失敗: %w", err)
	}

	u.logger.Infof("🔎 検索結果: %q -> %.4f, %.4f", query, coords.Lat, coords.Lng)
	pos := model.Position{
		Latitude:   coords.Lat,
		Longitude:  coords.Lng,
		CapturedAt: time.Now(),
	}
	return u.processPosition(ctx, pos), nil
}

func (u *gazetteerUseCaseImpl) StartTracking(ctx context.Context) (*model.TrackingStatusResponse, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.mode == model.TrackingContinuous {
		return u.statusLocked(), nil
	}
	if u.mode != model.TrackingIdle {
		return nil, fmt.Errorf("%w: %s", model.ErrTrackingActive, u.mode)
	}

	u.trackingGen++
	gen := u.trackingGen

	tracker, err := service.StartContinuousTracking(
		ctx,
		u.sensor,
		u.acquisition.Policy(),
		u.current,
		func(ctx context.Context, pos model.Position) { u.onTrackedPosition(ctx, gen, pos) },
		func(err error) { u.onTrackingEnded(gen, err) },
		u.logger,
	)
	if err != nil {
		return nil, u.reportAcquisitionError(err)
	}

	u.tracker.Store(tracker)
	u.mode = model.TrackingContinuous
	u.lastError = ""
	return u.statusLocked(), nil
}

// onTrackedPosition 継続追跡から転送された位置を処理する（停止済みの購読からの呼び出しは無視）
func (u *gazetteerUseCaseImpl) onTrackedPosition(ctx context.Context, gen uint64, pos model.Position) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if gen != u.trackingGen || u.mode != model.TrackingContinuous || ctx.Err() != nil {
		return
	}
	u.logger.Infof("🚗 移動を検知: %.4f, %.4f", pos.Latitude, pos.Longitude)
	u.processPosition(ctx, pos)
}

func (u *gazetteerUseCaseImpl) onTrackingEnded(gen uint64, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if gen != u.trackingGen {
		return
	}
	u.trackingGen++
	u.tracker.Store(nil)
	u.mode = model.TrackingIdle
	if err != nil {
		u.reportAcquisitionError(err)
	}
}

func (u *gazetteerUseCaseImpl) StopTracking() *model.TrackingStatusResponse {
	// 転送中の位置の逆ジオコーディングや生成が mu を保持している場合があるため、先に取り消して終了を待つ
	if tracker := u.tracker.Load(); tracker != nil {
		tracker.Stop()
	}

	u.mu.Lock()
	tracker := u.tracker.Swap(nil)
	if u.mode == model.TrackingContinuous {
		u.trackingGen++
		u.mode = model.TrackingIdle
	}
	status := u.statusLocked()
	u.mu.Unlock()

	// 上の Stop と入れ違いで開始された購読
	if tracker != nil {
		tracker.Stop()
	}
	return status
}

func (u *gazetteerUseCaseImpl) TrackingStatus() *model.TrackingStatusResponse {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.statusLocked()
}

func (u *gazetteerUseCaseImpl) Chat(ctx context.Context, message string) (*model.ChatResponse, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, model.ErrEmptyMessage
	}
	if u.session == nil {
		return nil, model.ErrNoLocation
	}

	turn := u.synthesizer.Respond(ctx, u.session, message)
	return &model.ChatResponse{
		SessionID: u.session.ID(),
		Reply:     turn.Reply,
		Entries:   turn.Entries,
	}, nil
}

func (u *gazetteerUseCaseImpl) Snapshot() *model.SessionSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()

	snapshot := &model.SessionSnapshot{
		Position:     u.current,
		Transcript:   []model.TranscriptEntry{},
		History:      []model.Message{},
		TrackingMode: u.mode,
	}
	if u.session != nil {
		lc := u.session.LocationContext()
		snapshot.SessionID = u.session.ID()
		snapshot.LocationContext = lc
		snapshot.FormattedName = lc.FormattedName()
		snapshot.Transcript = u.session.Transcript()
		snapshot.History = u.session.HistorySnapshot()
	}
	return snapshot
}

// processPosition Gateで判定し、新しい場所なら会話をリセットして紹介文を作る（mu を保持して呼ぶこと）
func (u *gazetteerUseCaseImpl) processPosition(ctx context.Context, pos model.Position) *model.LocationUpdateResponse {
	decision := u.gate.Classify(u.current, pos)
	u.current = &pos
	if tracker := u.tracker.Load(); tracker != nil {
		tracker.Rebase(pos)
	}
	u.logger.Infof("🧭 ゲート判定: %s (%.5f, %.5f, 精度 %.0fm)", decision, pos.Latitude, pos.Longitude, pos.AccuracyMeters)

	resp := &model.LocationUpdateResponse{
		Status:   model.StatusFromDecision(decision),
		Position: &pos,
	}

	if decision == model.GateSameArea && u.session != nil {
		lc := u.session.LocationContext()
		resp.SessionID = u.session.ID()
		resp.LocationContext = lc
		resp.FormattedName = lc.FormattedName()
		return resp
	}

	lc, err := u.geocoder.Reverse(ctx, pos.LatLng())
	if err != nil {
		u.logger.Warnf("⚠️ 逆ジオコーディングに失敗、座標のみで続行: %v", err)
		lc = model.NewFallbackLocationContext(pos.LatLng())
	}

	if u.session == nil {
		u.session = service.NewConversationSession(lc)
	} else {
		u.session.Reset(lc)
	}
	u.logger.Infof("🗺️ 新しい場所: %s (session: %s)", lc.FormattedName(), u.session.ID())

	turn := u.synthesizer.Introduce(ctx, u.session)

	resp.Status = model.LocationNewPlace
	resp.SessionID = u.session.ID()
	resp.LocationContext = lc
	resp.FormattedName = lc.FormattedName()
	resp.Reply = turn.Reply
	return resp
}

// reportAcquisitionError 測位エラーを記録して返す（mu を保持して呼ぶこと）
func (u *gazetteerUseCaseImpl) reportAcquisitionError(err error) error {
	if acqErr, ok := model.AsAcquisitionError(err); ok {
		u.logger.Warnf("⚠️ 位置取得に失敗: %v", acqErr)
		u.lastError = acqErr.UserMessage()
		u.recordSystem(acqErr.UserMessage())
		return acqErr
	}
	u.logger.Errorf("❌ 位置取得に失敗: %v", err)
	u.lastError = err.Error()
	return err
}

// recordSystem セッションがあれば表示用の記録にシステムメッセージを残す
func (u *gazetteerUseCaseImpl) recordSystem(text string) {
	if u.session != nil {
		u.session.Record(model.RoleSystem, text)
	}
}

func (u *gazetteerUseCaseImpl) sessionID() string {
	if u.session == nil {
		return ""
	}
	return u.session.ID()
}

func (u *gazetteerUseCaseImpl) statusLocked() *model.TrackingStatusResponse {
	return &model.TrackingStatusResponse{Mode: u.mode, LastError: u.lastError}
}
