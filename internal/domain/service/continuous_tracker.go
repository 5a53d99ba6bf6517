package service

import (
	"context"
	"sync"

	"GazetteHere-App/internal/domain/helper"
	"GazetteHere-App/internal/domain/model"
	"GazetteHere-App/internal/domain/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContinuousTracker は継続的な位置監視の購読を表す
type ContinuousTracker struct {
	id     string
	policy AcquisitionPolicy
	logger *zap.SugaredLogger

	onPosition func(context.Context, model.Position)
	onEnd      func(error)

	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	stopped bool

	// baseline は onPosition の中からも Rebase できるよう mu とは別のロックで守る
	baselineMu   sync.Mutex
	lastAccepted *model.Position
}

// StartContinuousTracking はセンサーの監視を開始する
//
// 受け取った位置は、最後に受け入れた位置から MovementMeters を超えて移動した場合のみ onPosition に渡す。
// 受け入れ位置が追跡の外で変わった場合は Rebase で基準を合わせること。
// onPosition に渡す ctx は Stop で取り消される。
// 致命的な測位エラーで監視は自動停止し、onEnd にエラーが渡される（再開はしない）。
// Stop を呼んだ後は onPosition も onEnd も呼ばれない。
func StartContinuousTracking(
	ctx context.Context,
	sensor repository.PositionSensor,
	policy AcquisitionPolicy,
	initial *model.Position,
	onPosition func(context.Context, model.Position),
	onEnd func(error),
	logger *zap.SugaredLogger,
) (*ContinuousTracker, error) {
	if sensor == nil {
		return nil, model.NewAcquisitionError(model.AcquisitionUnsupported, nil)
	}
	policy = policy.withDefaults()

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	readings, err := sensor.Watch(watchCtx, model.SensorOptions{
		HighAccuracy: true,
		MaximumAge:   policy.WatchMaximumAge,
	})
	if err != nil {
		cancel()
		return nil, toAcquisitionError(err)
	}

	t := &ContinuousTracker{
		id:         uuid.NewString(),
		policy:     policy,
		logger:     logger,
		onPosition: onPosition,
		onEnd:      onEnd,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	if initial != nil {
		p := *initial
		t.lastAccepted = &p
	}

	go t.run(watchCtx, readings)
	logger.Infof("🛰️ 継続追跡を開始 (id: %s)", t.id)
	return t, nil
}

// ID 購読ID
func (t *ContinuousTracker) ID() string {
	return t.id
}

func (t *ContinuousTracker) run(ctx context.Context, readings <-chan model.SensorReading) {
	defer close(t.done)
	defer t.cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case reading, ok := <-readings:
			if !ok {
				if ctx.Err() == nil {
					t.finish(nil)
				}
				return
			}
			if reading.Err != nil {
				acqErr := toAcquisitionError(reading.Err)
				if acqErr.Terminal() {
					t.logger.Warnf("⚠️ 継続追跡を終了 (id: %s): %v", t.id, acqErr)
					t.finish(acqErr)
					return
				}
				t.logger.Debugf("⏱️ 一時的な測位エラーを無視: %v", acqErr)
				continue
			}
			if reading.Position != nil {
				t.handle(ctx, *reading.Position)
			}
		}
	}
}

// handle 停止済みでないことを確認してから転送する（Stop後の古いコールバックによる状態変更を防ぐ）
func (t *ContinuousTracker) handle(ctx context.Context, pos model.Position) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || ctx.Err() != nil {
		return
	}

	t.baselineMu.Lock()
	if t.lastAccepted != nil {
		moved := helper.Distance(*t.lastAccepted, pos)
		if moved <= t.policy.MovementMeters {
			t.baselineMu.Unlock()
			t.logger.Debugf("🚶 移動距離 %.0fm はしきい値以下のため無視", moved)
			return
		}
	}
	t.lastAccepted = &pos
	t.baselineMu.Unlock()

	t.onPosition(ctx, pos)
}

// Rebase 移動判定の基準を受け入れ済みの位置に合わせる（検索などで追跡の外から位置が変わった場合）
func (t *ContinuousTracker) Rebase(pos model.Position) {
	t.baselineMu.Lock()
	defer t.baselineMu.Unlock()
	t.lastAccepted = &pos
}

func (t *ContinuousTracker) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	if t.onEnd != nil {
		t.onEnd(err)
	}
}

// Stop 監視を停止する。何度呼んでもよく、戻った後に転送は発生しない
// 転送中の onPosition があれば先に ctx を取り消してから終了を待つ
func (t *ContinuousTracker) Stop() {
	t.cancel()

	t.mu.Lock()
	alreadyStopped := t.stopped
	t.stopped = true
	t.mu.Unlock()

	<-t.done
	if !alreadyStopped {
		t.logger.Infof("🛑 継続追跡を停止 (id: %s)", t.id)
	}
}

// Done 監視ゴルーチンが終了すると閉じられる
func (t *ContinuousTracker) Done() <-chan struct{} {
	return t.done
}
