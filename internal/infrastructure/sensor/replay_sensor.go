package sensor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"GazetteHere-App/internal/domain/model"
	"GazetteHere-App/internal/domain/repository"
)

// ReplaySensor はJSON Lines形式で記録された測位結果を順に再生する
// 1行が1つの model.SensorReadingRequest（{"latitude":..,"longitude":..,"accuracy":..} または {"error":"timeout"}）
type ReplaySensor struct {
	readings []model.SensorReading
	interval time.Duration

	mu     sync.Mutex
	cursor int
}

// NewReplaySensor は r から全ての行を読み込んでReplaySensorを作成する
func NewReplaySensor(r io.Reader, interval time.Duration) (*ReplaySensor, error) {
	now := time.Now()
	scanner := bufio.NewScanner(r)

	var readings []model.SensorReading
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var req model.SensorReadingRequest
		if err := json.Unmarshal([]byte(text), &req); err != nil {
			return nil, fmt.Errorf("%d行目のパースに失敗: %w", line, err)
		}
		reading, err := req.ToSensorReading(now)
		if err != nil {
			return nil, fmt.Errorf("%d行目が不正です: %w", line, err)
		}
		readings = append(readings, reading)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("読み込みに失敗: %w", err)
	}

	return &ReplaySensor{readings: readings, interval: interval}, nil
}

// OpenReplayFile はファイルからReplaySensorを作成する
func OpenReplayFile(path string, interval time.Duration) (*ReplaySensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("再生ファイルを開けません: %w", err)
	}
	defer f.Close()
	return NewReplaySensor(f, interval)
}

// Len 記録されている測位結果の数
func (s *ReplaySensor) Len() int {
	return len(s.readings)
}

// CurrentPosition 次の記録を返す。全て再生済みなら position_unavailable
func (s *ReplaySensor) CurrentPosition(ctx context.Context, _ model.SensorOptions) (*model.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor >= len(s.readings) {
		return nil, model.NewAcquisitionError(model.AcquisitionPositionUnavailable, io.EOF)
	}
	reading := s.readings[s.cursor]
	s.cursor++
	return reading.Position, reading.Err
}

// Watch 残りの記録を interval 間隔で配信し、終わったらチャネルを閉じる
func (s *ReplaySensor) Watch(ctx context.Context, _ model.SensorOptions) (<-chan model.SensorReading, error) {
	ch := make(chan model.SensorReading)

	go func() {
		defer close(ch)
		for {
			s.mu.Lock()
			if s.cursor >= len(s.readings) {
				s.mu.Unlock()
				return
			}
			reading := s.readings[s.cursor]
			s.cursor++
			s.mu.Unlock()

			select {
			case ch <- reading:
			case <-ctx.Done():
				return
			}

			if s.interval > 0 {
				timer := time.NewTimer(s.interval)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return
				}
			}
		}
	}()
	return ch, nil
}

var _ repository.PositionSensor = (*ReplaySensor)(nil)
