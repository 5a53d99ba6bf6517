package model

import (
	"fmt"
	"time"
)

// SensorReadingRequest 端末から送られる測位結果（POST /api/sensor/readings、replayファイルの1行）
type SensorReadingRequest struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Accuracy  float64    `json:"accuracy"`
	Timestamp *time.Time `json:"timestamp"`
	Error     string     `json:"error,omitempty"` // permission_denied / position_unavailable / timeout / unsupported
}

// ToSensorReading リクエストを検証してSensorReadingに変換
func (r *SensorReadingRequest) ToSensorReading(now time.Time) (SensorReading, error) {
	if r.Error != "" {
		kind, ok := ParseAcquisitionErrorKind(r.Error)
		if !ok {
			return SensorReading{}, fmt.Errorf("unknown sensor error kind: %s", r.Error)
		}
		return SensorReading{Err: NewAcquisitionError(kind, nil)}, nil
	}

	if r.Latitude == nil || r.Longitude == nil {
		return SensorReading{}, fmt.Errorf("latitude and longitude are required")
	}
	if *r.Latitude < -90 || *r.Latitude > 90 {
		return SensorReading{}, fmt.Errorf("latitude must be between -90 and 90")
	}
	if *r.Longitude < -180 || *r.Longitude > 180 {
		return SensorReading{}, fmt.Errorf("longitude must be between -180 and 180")
	}
	if r.Accuracy < 0 {
		return SensorReading{}, fmt.Errorf("accuracy must not be negative")
	}

	capturedAt := now
	if r.Timestamp != nil {
		capturedAt = *r.Timestamp
	}

	return SensorReading{Position: &Position{
		Latitude:       *r.Latitude,
		Longitude:      *r.Longitude,
		AccuracyMeters: r.Accuracy,
		CapturedAt:     capturedAt,
	}}, nil
}

// LocationSearchRequest 地名検索リクエスト
type LocationSearchRequest struct {
	Query string `json:"query"`
}

// LocationUpdateResponse 位置取得・検索の結果
type LocationUpdateResponse struct {
	Status          LocationUpdateStatus `json:"status"`
	SessionID       string               `json:"session_id,omitempty"`
	Position        *Position            `json:"position,omitempty"`
	LocationContext *LocationContext     `json:"location_context,omitempty"`
	FormattedName   string               `json:"formatted_name,omitempty"`
	Reply           string               `json:"reply,omitempty"` // 新しい場所での最初の応答
}

// ChatRequest チャットリクエスト
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse チャットレスポンス
type ChatResponse struct {
	SessionID string            `json:"session_id"`
	Reply     string            `json:"reply"`
	Entries   []TranscriptEntry `json:"entries"` // このターンで追加された表示用メッセージ
}

// TrackingStatusResponse 測位モードの状態
type TrackingStatusResponse struct {
	Mode      TrackingMode `json:"mode"`
	LastError string       `json:"last_error,omitempty"`
}

// SessionSnapshot 現在のセッション状態
type SessionSnapshot struct {
	SessionID       string            `json:"session_id,omitempty"`
	Position        *Position         `json:"position,omitempty"`
	LocationContext *LocationContext  `json:"location_context,omitempty"`
	FormattedName   string            `json:"formatted_name,omitempty"`
	Transcript      []TranscriptEntry `json:"transcript"`
	History         []Message         `json:"history"`
	TrackingMode    TrackingMode      `json:"tracking_mode"`
}

// GenerationProxyRequest 生成プロキシ（POST /api/openai）のリクエスト
type GenerationProxyRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	MaxTokens   int       `json:"maxTokens"`
	Temperature *float64  `json:"temperature"`
}
