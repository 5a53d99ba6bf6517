package sensor

import (
	"context"
	"sync"
	"time"

	"GazetteHere-App/internal/domain/model"
	"GazetteHere-App/internal/domain/repository"
)

const watchBuffer = 16

// PushSensor は端末からHTTPで送られてくる測位結果を PositionSensor として提供する
//
// 端末側の測位APIの結果を Push で受け取り、待機中の CurrentPosition と全ての Watch 購読者に配信する。
type PushSensor struct {
	mu       sync.Mutex
	last     *model.Position
	waiters  map[chan model.SensorReading]struct{}
	watchers map[chan model.SensorReading]struct{}
	now      func() time.Time
}

// NewPushSensor は新しいPushSensorを作成
func NewPushSensor() *PushSensor {
	return &PushSensor{
		waiters:  make(map[chan model.SensorReading]struct{}),
		watchers: make(map[chan model.SensorReading]struct{}),
		now:      time.Now,
	}
}

// Push 測位結果（またはエラー）を配信する
// 購読者のバッファが一杯の場合は最も古い未読の結果を捨てて最新の結果を入れる
func (s *PushSensor) Push(reading model.SensorReading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reading.Position != nil {
		p := *reading.Position
		s.last = &p
	}
	for ch := range s.waiters {
		select {
		case ch <- reading:
		default:
		}
		delete(s.waiters, ch)
	}
	for ch := range s.watchers {
		deliverLatest(ch, reading)
	}
}

// deliverLatest ch に reading を入れる。送信は s.mu を保持した Push からのみ行うので、1件読み捨てれば必ず空きができる
func deliverLatest(ch chan model.SensorReading, reading model.SensorReading) {
	select {
	case ch <- reading:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- reading:
	default:
	}
}

// CurrentPosition 次の測位結果を待つ。MaximumAge 以内の結果があればそれを返す
func (s *PushSensor) CurrentPosition(ctx context.Context, opts model.SensorOptions) (*model.Position, error) {
	s.mu.Lock()
	if opts.MaximumAge > 0 && s.last != nil && s.last.Age(s.now()) <= opts.MaximumAge {
		p := *s.last
		s.mu.Unlock()
		return &p, nil
	}
	ch := make(chan model.SensorReading, 1)
	s.waiters[ch] = struct{}{}
	s.mu.Unlock()

	waitCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	select {
	case reading := <-ch:
		if reading.Err != nil {
			return nil, reading.Err
		}
		return reading.Position, nil
	case <-waitCtx.Done():
		s.mu.Lock()
		delete(s.waiters, ch)
		s.mu.Unlock()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, model.NewAcquisitionError(model.AcquisitionTimeout, waitCtx.Err())
	}
}

// Watch 測位結果の購読を開始する。ctx が終わるとチャネルは閉じられる
func (s *PushSensor) Watch(ctx context.Context, opts model.SensorOptions) (<-chan model.SensorReading, error) {
	ch := make(chan model.SensorReading, watchBuffer)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	if opts.MaximumAge > 0 && s.last != nil && s.last.Age(s.now()) <= opts.MaximumAge {
		p := *s.last
		ch <- model.SensorReading{Position: &p}
	}
	s.mu.Unlock()

	context.AfterFunc(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, ch)
		close(ch)
	})
	return ch, nil
}

// WatcherCount 購読者数
func (s *PushSensor) WatcherCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

var _ repository.PositionSensor = (*PushSensor)(nil)
