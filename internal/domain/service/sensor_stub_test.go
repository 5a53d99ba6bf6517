package service

import (
	"context"
	"sync"

	"GazetteHere-App/internal/domain/model"
)

// scriptedSensor は決められた順に結果を返すテスト用センサー
type scriptedSensor struct {
	mu       sync.Mutex
	current  []model.SensorReading
	calls    int
	lastOpts model.SensorOptions

	watch     []model.SensorReading
	watchOpts model.SensorOptions
	// holdOpen が true の場合、全て送った後も ctx が終わるまでチャネルを閉じない
	holdOpen bool
}

func (s *scriptedSensor) CurrentPosition(_ context.Context, opts model.SensorOptions) (*model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.lastOpts = opts
	if len(s.current) == 0 {
		return nil, model.NewAcquisitionError(model.AcquisitionTimeout, nil)
	}
	next := s.current[0]
	s.current = s.current[1:]
	return next.Position, next.Err
}

func (s *scriptedSensor) Watch(ctx context.Context, opts model.SensorOptions) (<-chan model.SensorReading, error) {
	s.mu.Lock()
	s.watchOpts = opts
	readings := append([]model.SensorReading(nil), s.watch...)
	holdOpen := s.holdOpen
	s.mu.Unlock()

	ch := make(chan model.SensorReading)
	go func() {
		defer close(ch)
		for _, r := range readings {
			select {
			case ch <- r:
			case <-ctx.Done():
				return
			}
		}
		if holdOpen {
			<-ctx.Done()
		}
	}()
	return ch, nil
}

func (s *scriptedSensor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func at(lat, lng, accuracy float64) model.SensorReading {
	return model.SensorReading{Position: &model.Position{Latitude: lat, Longitude: lng, AccuracyMeters: accuracy}}
}

func failWith(kind model.AcquisitionErrorKind) model.SensorReading {
	return model.SensorReading{Err: model.NewAcquisitionError(kind, nil)}
}
