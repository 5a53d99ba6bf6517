package model

import (
	"time"

	"github.com/paulmach/orb"
)

// LatLng 緯度経度を表す基本的な型
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Point orb.Point ([lng, lat]) に変換
func (l LatLng) Point() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

// Position センサーから取得した1回分の測位結果（取得後は不変）
type Position struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy"`
	CapturedAt     time.Time `json:"timestamp"`
}

// Point orb.Point に変換（距離計算で使用）
func (p Position) Point() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// LatLng PositionをLatLng型に変換
func (p Position) LatLng() LatLng {
	return LatLng{Lat: p.Latitude, Lng: p.Longitude}
}

// Age 取得時刻からの経過時間
func (p Position) Age(now time.Time) time.Duration {
	if p.CapturedAt.IsZero() {
		return 0
	}
	return now.Sub(p.CapturedAt)
}

// SensorOptions プラットフォームの測位APIに渡すオプション
type SensorOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration // 0 の場合キャッシュを使わない
}

// SensorReading 監視ストリームで届く1件分の結果（位置かエラーのどちらか）
type SensorReading struct {
	Position *Position
	Err      error
}
