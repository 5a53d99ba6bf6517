package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"GazetteHere-App/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type forwardRecorder struct {
	mu        sync.Mutex
	positions []model.Position
	ended     chan error
}

func newForwardRecorder() *forwardRecorder {
	return &forwardRecorder{ended: make(chan error, 1)}
}

func (r *forwardRecorder) onPosition(_ context.Context, p model.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = append(r.positions, p)
}

func (r *forwardRecorder) onEnd(err error) {
	r.ended <- err
}

func (r *forwardRecorder) forwarded() []model.Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Position(nil), r.positions...)
}

func TestContinuousTracker_ForwardsOnlyBeyondMovementThreshold(t *testing.T) {
	defer goleak.VerifyNone(t)

	sensor := &scriptedSensor{watch: []model.SensorReading{
		at(48.8566, 2.3522, 10),  // 0m
		at(48.85795, 2.3522, 10), // 約150m
		at(48.85885, 2.3522, 10), // 約250m
	}}
	rec := newForwardRecorder()

	tracker, err := StartContinuousTracking(context.Background(), sensor, DefaultAcquisitionPolicy(), nil, rec.onPosition, rec.onEnd, zap.NewNop().Sugar())
	require.NoError(t, err)

	select {
	case err := <-rec.ended:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ストリーム終了が通知されない")
	}
	tracker.Stop()

	forwarded := rec.forwarded()
	require.Len(t, forwarded, 2)
	assert.Equal(t, 48.8566, forwarded[0].Latitude)
	assert.Equal(t, 48.85885, forwarded[1].Latitude)
	assert.Equal(t, 10*time.Second, sensor.watchOpts.MaximumAge)
}

func TestContinuousTracker_InitialPositionIsBaseline(t *testing.T) {
	defer goleak.VerifyNone(t)

	sensor := &scriptedSensor{watch: []model.SensorReading{at(48.8566, 2.3522, 10)}}
	rec := newForwardRecorder()
	initial := &model.Position{Latitude: 48.85665, Longitude: 2.3522}

	tracker, err := StartContinuousTracking(context.Background(), sensor, DefaultAcquisitionPolicy(), initial, rec.onPosition, rec.onEnd, zap.NewNop().Sugar())
	require.NoError(t, err)
	<-rec.ended
	tracker.Stop()

	assert.Empty(t, rec.forwarded())
}

func TestContinuousTracker_TerminalErrorSelfStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	sensor := &scriptedSensor{
		watch: []model.SensorReading{
			at(48.8566, 2.3522, 10),
			failWith(model.AcquisitionTimeout),
			failWith(model.AcquisitionPermissionDenied),
			at(49.2764, -0.7024, 10),
		},
		holdOpen: true,
	}
	rec := newForwardRecorder()

	tracker, err := StartContinuousTracking(context.Background(), sensor, DefaultAcquisitionPolicy(), nil, rec.onPosition, rec.onEnd, zap.NewNop().Sugar())
	require.NoError(t, err)

	select {
	case err := <-rec.ended:
		acqErr, ok := model.AsAcquisitionError(err)
		require.True(t, ok)
		assert.Equal(t, model.AcquisitionPermissionDenied, acqErr.Kind)
	case <-time.After(time.Second):
		t.Fatal("致命的なエラーで停止しない")
	}

	<-tracker.Done()
	assert.Len(t, rec.forwarded(), 1)
	tracker.Stop()
}

func TestContinuousTracker_StopIsIdempotentAndFinal(t *testing.T) {
	defer goleak.VerifyNone(t)

	sensor := &scriptedSensor{holdOpen: true}
	rec := newForwardRecorder()

	tracker, err := StartContinuousTracking(context.Background(), sensor, DefaultAcquisitionPolicy(), nil, rec.onPosition, rec.onEnd, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.NotEmpty(t, tracker.ID())

	tracker.Stop()
	tracker.Stop()

	tracker.handle(context.Background(), model.Position{Latitude: 10, Longitude: 10})
	tracker.finish(nil)

	assert.Empty(t, rec.forwarded())
	assert.Empty(t, rec.ended)
}

func TestContinuousTracker_CallerContextDoesNotStopTracking(t *testing.T) {
	defer goleak.VerifyNone(t)

	sensor := &scriptedSensor{holdOpen: true}
	rec := newForwardRecorder()
	ctx, cancel := context.WithCancel(context.Background())

	tracker, err := StartContinuousTracking(ctx, sensor, DefaultAcquisitionPolicy(), nil, rec.onPosition, rec.onEnd, zap.NewNop().Sugar())
	require.NoError(t, err)
	cancel()

	select {
	case <-tracker.Done():
		t.Fatal("リクエストのコンテキスト終了で追跡が止まった")
	case <-time.After(50 * time.Millisecond):
	}
	tracker.Stop()
}

func TestContinuousTracker_NoSensor(t *testing.T) {
	_, err := StartContinuousTracking(context.Background(), nil, DefaultAcquisitionPolicy(), nil, func(context.Context, model.Position) {}, nil, zap.NewNop().Sugar())

	acqErr, ok := model.AsAcquisitionError(err)
	require.True(t, ok)
	assert.Equal(t, model.AcquisitionUnsupported, acqErr.Kind)
}

func TestContinuousTracker_RebaseMovesMovementBaseline(t *testing.T) {
	defer goleak.VerifyNone(t)

	sensor := &scriptedSensor{holdOpen: true}
	rec := newForwardRecorder()
	paris := &model.Position{Latitude: 48.8566, Longitude: 2.3522}

	tracker, err := StartContinuousTracking(context.Background(), sensor, DefaultAcquisitionPolicy(), paris, rec.onPosition, rec.onEnd, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer tracker.Stop()

	t.Run("基準から200m以内は転送しない", func(t *testing.T) {
		tracker.handle(context.Background(), model.Position{Latitude: 48.85795, Longitude: 2.3522})
		assert.Empty(t, rec.forwarded())
	})

	t.Run("基準を移すと元の基準の近くでも転送する", func(t *testing.T) {
		tracker.Rebase(model.Position{Latitude: 49.2764, Longitude: -0.7024})
		tracker.handle(context.Background(), model.Position{Latitude: 48.85795, Longitude: 2.3522})

		forwarded := rec.forwarded()
		require.Len(t, forwarded, 1)
		assert.Equal(t, 48.85795, forwarded[0].Latitude)
	})
}

func TestContinuousTracker_StopCancelsInFlightForward(t *testing.T) {
	defer goleak.VerifyNone(t)

	sensor := &scriptedSensor{watch: []model.SensorReading{at(48.8566, 2.3522, 10)}, holdOpen: true}
	entered := make(chan struct{})
	cancelled := make(chan error, 1)
	onPosition := func(ctx context.Context, _ model.Position) {
		close(entered)
		<-ctx.Done()
		cancelled <- ctx.Err()
	}

	tracker, err := StartContinuousTracking(context.Background(), sensor, DefaultAcquisitionPolicy(), nil, onPosition, nil, zap.NewNop().Sugar())
	require.NoError(t, err)

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("位置が転送されない")
	}

	stopped := make(chan struct{})
	go func() {
		tracker.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("転送中の処理が取り消されず Stop が戻らない")
	}
	assert.ErrorIs(t, <-cancelled, context.Canceled)
}
