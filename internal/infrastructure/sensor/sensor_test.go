package sensor

import (
	"context"
	"strings"
	"testing"
	"time"

	"GazetteHere-App/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func position(lat, lng float64) model.SensorReading {
	return model.SensorReading{Position: &model.Position{Latitude: lat, Longitude: lng, AccuracyMeters: 10, CapturedAt: time.Now()}}
}

func TestPushSensor_CurrentPosition(t *testing.T) {
	t.Run("次に送られた測位結果を返す", func(t *testing.T) {
		s := NewPushSensor()
		result := make(chan *model.Position, 1)
		go func() {
			pos, err := s.CurrentPosition(context.Background(), model.SensorOptions{Timeout: time.Second})
			assert.NoError(t, err)
			result <- pos
		}()

		require.Eventually(t, func() bool {
			s.mu.Lock()
			defer s.mu.Unlock()
			return len(s.waiters) == 1
		}, time.Second, time.Millisecond)
		s.Push(position(48.8566, 2.3522))

		pos := <-result
		require.NotNil(t, pos)
		assert.Equal(t, 48.8566, pos.Latitude)
	})

	t.Run("タイムアウト", func(t *testing.T) {
		s := NewPushSensor()
		_, err := s.CurrentPosition(context.Background(), model.SensorOptions{Timeout: 20 * time.Millisecond})

		acqErr, ok := model.AsAcquisitionError(err)
		require.True(t, ok)
		assert.Equal(t, model.AcquisitionTimeout, acqErr.Kind)
	})

	t.Run("MaximumAge以内ならキャッシュを返す", func(t *testing.T) {
		s := NewPushSensor()
		s.Push(position(1, 2))

		pos, err := s.CurrentPosition(context.Background(), model.SensorOptions{Timeout: 20 * time.Millisecond, MaximumAge: time.Minute})
		require.NoError(t, err)
		assert.Equal(t, 1.0, pos.Latitude)
	})

	t.Run("MaximumAgeが0ならキャッシュを使わない", func(t *testing.T) {
		s := NewPushSensor()
		s.Push(position(1, 2))

		_, err := s.CurrentPosition(context.Background(), model.SensorOptions{Timeout: 20 * time.Millisecond})
		assert.Error(t, err)
	})
}

func TestPushSensor_Watch(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewPushSensor()
	ctx, cancel := context.WithCancel(context.Background())

	readings, err := s.Watch(ctx, model.SensorOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, s.WatcherCount())

	s.Push(position(1, 1))
	s.Push(model.SensorReading{Err: model.NewAcquisitionError(model.AcquisitionTimeout, nil)})

	first := <-readings
	assert.Equal(t, 1.0, first.Position.Latitude)
	second := <-readings
	assert.Error(t, second.Err)

	cancel()
	for range readings {
	}
	assert.Equal(t, 0, s.WatcherCount())

	assert.NotPanics(t, func() { s.Push(position(2, 2)) })
}

func TestPushSensor_SlowWatcherKeepsLatestReading(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewPushSensor()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	readings, err := s.Watch(ctx, model.SensorOptions{})
	require.NoError(t, err)

	const pushed = 20
	for i := 0; i < pushed; i++ {
		s.Push(position(float64(i), 0))
	}

	var delivered []float64
	for len(delivered) < watchBuffer {
		delivered = append(delivered, (<-readings).Position.Latitude)
	}

	t.Run("最後に送られた結果は必ず届く", func(t *testing.T) {
		assert.Equal(t, float64(pushed-1), delivered[len(delivered)-1])
	})

	t.Run("捨てるのは古い結果で順序は保たれる", func(t *testing.T) {
		assert.Equal(t, float64(pushed-watchBuffer), delivered[0])
		assert.IsIncreasing(t, delivered)
	})

	t.Run("読み切った後に余分な結果は残らない", func(t *testing.T) {
		select {
		case r := <-readings:
			t.Fatalf("想定外の結果: %+v", r)
		default:
		}
	})
}

func TestReplaySensor(t *testing.T) {
	defer goleak.VerifyNone(t)

	input := strings.Join([]string{
		`# paris walk`,
		`{"latitude":48.8566,"longitude":2.3522,"accuracy":12}`,
		``,
		`{"error":"timeout"}`,
		`{"latitude":48.85885,"longitude":2.3522,"accuracy":8,"timestamp":"2024-06-01T12:00:00Z"}`,
	}, "\n")

	s, err := NewReplaySensor(strings.NewReader(input), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	readings, err := s.Watch(context.Background(), model.SensorOptions{})
	require.NoError(t, err)

	var got []model.SensorReading
	for r := range readings {
		got = append(got, r)
	}
	require.Len(t, got, 3)
	assert.Equal(t, 48.8566, got[0].Position.Latitude)
	assert.Equal(t, 12.0, got[0].Position.AccuracyMeters)
	acqErr, ok := model.AsAcquisitionError(got[1].Err)
	require.True(t, ok)
	assert.Equal(t, model.AcquisitionTimeout, acqErr.Kind)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), got[2].Position.CapturedAt)

	_, err = s.CurrentPosition(context.Background(), model.SensorOptions{})
	assert.Error(t, err)
}

func TestReplaySensor_InvalidLine(t *testing.T) {
	_, err := NewReplaySensor(strings.NewReader(`{"latitude":91,"longitude":0}`), 0)
	assert.ErrorContains(t, err, "1行目")

	_, err = NewReplaySensor(strings.NewReader(`{"error":"exploded"}`), 0)
	assert.Error(t, err)
}
