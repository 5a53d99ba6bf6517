package service

import (
	"time"

	"GazetteHere-App/internal/domain/model"
)

// AcquisitionPolicy は測位の取得方法としきい値をまとめた設定値
type AcquisitionPolicy struct {
	// 単発取得
	SingleShotTimeout time.Duration `yaml:"single_shot_timeout"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryBackoff      time.Duration `yaml:"retry_backoff"` // 試行回数に比例して待つ
	SameAreaMeters    float64       `yaml:"same_area_meters"`

	// キャッシュされた古い測位結果の検出
	SuspectCoordinates      []model.LatLng `yaml:"suspect_coordinates"`
	SuspectToleranceDegrees float64        `yaml:"suspect_tolerance_degrees"`
	SuspectMinAge           time.Duration  `yaml:"suspect_min_age"`
	MaxReadingAge           time.Duration  `yaml:"max_reading_age"` // 0 の場合は無効

	// 精度優先の複数サンプル取得
	ForcedWindow         time.Duration `yaml:"forced_window"`
	ForcedMaxSamples     int           `yaml:"forced_max_samples"`
	ForcedTargetAccuracy float64       `yaml:"forced_target_accuracy"`

	// 継続追跡
	WatchMaximumAge time.Duration `yaml:"watch_maximum_age"`
	MovementMeters  float64       `yaml:"movement_meters"`

	// Gate
	NewPlaceMeters float64 `yaml:"new_place_meters"`
}

// DefaultAcquisitionPolicy は既定の取得ポリシー
func DefaultAcquisitionPolicy() AcquisitionPolicy {
	return AcquisitionPolicy{
		SingleShotTimeout:       15 * time.Second,
		MaxAttempts:             3,
		RetryBackoff:            time.Second,
		SameAreaMeters:          SameAreaSuppressMeters,
		SuspectToleranceDegrees: 0.001,
		SuspectMinAge:           30 * time.Second,
		ForcedWindow:            10 * time.Second,
		ForcedMaxSamples:        5,
		ForcedTargetAccuracy:    10,
		WatchMaximumAge:         10 * time.Second,
		MovementMeters:          ContinuousMovementMeters,
		NewPlaceMeters:          NewPlaceThresholdMeters,
	}
}

// withDefaults 未設定（ゼロ値）の項目を既定値で補う
func (p AcquisitionPolicy) withDefaults() AcquisitionPolicy {
	d := DefaultAcquisitionPolicy()
	if p.SingleShotTimeout <= 0 {
		p.SingleShotTimeout = d.SingleShotTimeout
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.RetryBackoff < 0 {
		p.RetryBackoff = 0
	}
	if p.SameAreaMeters <= 0 {
		p.SameAreaMeters = d.SameAreaMeters
	}
	if p.SuspectToleranceDegrees <= 0 {
		p.SuspectToleranceDegrees = d.SuspectToleranceDegrees
	}
	if p.ForcedWindow <= 0 {
		p.ForcedWindow = d.ForcedWindow
	}
	if p.ForcedMaxSamples <= 0 {
		p.ForcedMaxSamples = d.ForcedMaxSamples
	}
	if p.ForcedTargetAccuracy <= 0 {
		p.ForcedTargetAccuracy = d.ForcedTargetAccuracy
	}
	if p.WatchMaximumAge < 0 {
		p.WatchMaximumAge = 0
	}
	if p.MovementMeters <= 0 {
		p.MovementMeters = d.MovementMeters
	}
	if p.NewPlaceMeters <= 0 {
		p.NewPlaceMeters = d.NewPlaceMeters
	}
	return p
}
