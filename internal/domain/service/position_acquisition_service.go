package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GazetteHere-App/internal/domain/helper"
	"GazetteHere-App/internal/domain/model"
	"GazetteHere-App/internal/domain/repository"

	"go.uber.org/zap"
)

// AcquisitionResult は単発取得の結果
type AcquisitionResult struct {
	Position *model.Position
	// SameArea が true の場合、直前の位置から SameAreaMeters 以内なので Gate に渡さない
	SameArea bool
}

// PositionAcquisitionService は端末から位置を取得する
type PositionAcquisitionService interface {
	// AcquireOnce キャッシュを使わずに1回分の位置を取得する（失敗時は再試行）
	AcquireOnce(ctx context.Context, previous *model.Position) (*AcquisitionResult, error)
	// AcquireForced 一定時間サンプリングして最も精度の良い位置を返す
	AcquireForced(ctx context.Context) (*model.Position, error)
	// Policy 使用中のポリシー
	Policy() AcquisitionPolicy
}

// Sleeper はバックオフの待機を行う関数（ctx がキャンセルされたらエラー）
type Sleeper func(ctx context.Context, d time.Duration) error

// AcquisitionOption はPositionAcquisitionServiceのオプション
type AcquisitionOption func(*positionAcquisitionService)

// WithClock 現在時刻の取得関数を差し替える
func WithClock(now func() time.Time) AcquisitionOption {
	return func(s *positionAcquisitionService) { s.now = now }
}

// WithSleeper 待機関数を差し替える
func WithSleeper(sleep Sleeper) AcquisitionOption {
	return func(s *positionAcquisitionService) { s.sleep = sleep }
}

type positionAcquisitionService struct {
	sensor repository.PositionSensor
	policy AcquisitionPolicy
	logger *zap.SugaredLogger
	now    func() time.Time
	sleep  Sleeper
}

// NewPositionAcquisitionService は新しいPositionAcquisitionServiceを作成
// sensor が nil の場合、全ての取得は unsupported エラーになる
func NewPositionAcquisitionService(sensor repository.PositionSensor, policy AcquisitionPolicy, logger *zap.SugaredLogger, opts ...AcquisitionOption) PositionAcquisitionService {
	s := &positionAcquisitionService{
		sensor: sensor,
		policy: policy.withDefaults(),
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *positionAcquisitionService) Policy() AcquisitionPolicy {
	return s.policy
}

func (s *positionAcquisitionService) AcquireOnce(ctx context.Context, previous *model.Position) (*AcquisitionResult, error) {
	if s.sensor == nil {
		return nil, model.NewAcquisitionError(model.AcquisitionUnsupported, nil)
	}

	opts := model.SensorOptions{
		HighAccuracy: true,
		Timeout:      s.policy.SingleShotTimeout,
		MaximumAge:   0,
	}

	var lastErr error
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		pos, err := s.sensor.CurrentPosition(ctx, opts)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			acqErr := toAcquisitionError(err)
			if acqErr.Kind == model.AcquisitionUnsupported {
				return nil, acqErr
			}
			s.logger.Warnf("⚠️ 位置取得に失敗 (試行 %d/%d): %v", attempt, s.policy.MaxAttempts, acqErr)
			lastErr = acqErr

		default:
			if reason := s.staleReason(*pos); reason != "" {
				s.logger.Warnf("⚠️ キャッシュされた位置の可能性があるため再取得 (試行 %d/%d): %s", attempt, s.policy.MaxAttempts, reason)
				lastErr = model.NewAcquisitionError(model.AcquisitionPositionUnavailable, errors.New(reason))
				break
			}

			result := &AcquisitionResult{Position: pos}
			if previous != nil && helper.WithinMeters(*previous, *pos, s.policy.SameAreaMeters) {
				result.SameArea = true
				s.logger.Infof("📍 前回の位置から%.0fm以内のため更新しません", s.policy.SameAreaMeters)
			}
			return result, nil
		}

		if attempt < s.policy.MaxAttempts {
			if err := s.sleep(ctx, s.policy.RetryBackoff*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}
	}

	return nil, lastErr
}

// staleReason 古い測位結果と判断した理由を返す（問題なければ空文字列）
func (s *positionAcquisitionService) staleReason(pos model.Position) string {
	age := pos.Age(s.now())

	if s.policy.MaxReadingAge > 0 && age > s.policy.MaxReadingAge {
		return fmt.Sprintf("reading is %s old (max %s)", age.Round(time.Second), s.policy.MaxReadingAge)
	}

	if age <= s.policy.SuspectMinAge {
		return ""
	}
	for _, suspect := range s.policy.SuspectCoordinates {
		if helper.WithinTolerance(pos, suspect, s.policy.SuspectToleranceDegrees) {
			return fmt.Sprintf("reading matches suspect coordinate %.4f, %.4f and is %s old", suspect.Lat, suspect.Lng, age.Round(time.Second))
		}
	}
	return ""
}

func (s *positionAcquisitionService) AcquireForced(ctx context.Context) (*model.Position, error) {
	if s.sensor == nil {
		return nil, model.NewAcquisitionError(model.AcquisitionUnsupported, nil)
	}

	// 時間枠が終わるか、ループが先に終わった時点でタイマーと購読を止める
	windowCtx, cancel := context.WithTimeout(ctx, s.policy.ForcedWindow)
	defer cancel()

	readings, err := s.sensor.Watch(windowCtx, model.SensorOptions{
		HighAccuracy: true,
		Timeout:      s.policy.ForcedWindow,
		MaximumAge:   0,
	})
	if err != nil {
		return nil, toAcquisitionError(err)
	}

	var best *model.Position
	var lastErr error
	samples := 0

collect:
	for samples < s.policy.ForcedMaxSamples {
		select {
		case <-windowCtx.Done():
			break collect
		case reading, ok := <-readings:
			if !ok {
				break collect
			}
			if reading.Err != nil {
				acqErr := toAcquisitionError(reading.Err)
				lastErr = acqErr
				if acqErr.Terminal() {
					break collect
				}
				continue
			}
			if reading.Position == nil {
				continue
			}

			samples++
			pos := *reading.Position
			s.logger.Debugf("📡 サンプル %d: 精度 %.1fm", samples, pos.AccuracyMeters)
			if best == nil || pos.AccuracyMeters < best.AccuracyMeters {
				best = &pos
			}
			if pos.AccuracyMeters < s.policy.ForcedTargetAccuracy {
				break collect
			}
		}
	}

	if best != nil {
		s.logger.Infof("🎯 %dサンプル中最も精度の良い位置を採用 (精度 %.1fm)", samples, best.AccuracyMeters)
		return best, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, model.NewAcquisitionError(model.AcquisitionTimeout, errors.New("no samples within the sampling window"))
}

// toAcquisitionError センサーのエラーを AcquisitionError に揃える
func toAcquisitionError(err error) *model.AcquisitionError {
	if acqErr, ok := model.AsAcquisitionError(err); ok {
		return acqErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.NewAcquisitionError(model.AcquisitionTimeout, err)
	}
	return model.NewAcquisitionError(model.AcquisitionPositionUnavailable, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
